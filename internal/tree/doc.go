// Package tree implements spec.md §4.4's ordered search tree over the Node
// table: an explicit two-child binary search tree, used both as a
// per-table name index and as an area's mapping-set subtree.
//
// Balancing choice: insertion is a straightforward unbalanced BST, exactly
// as spec.md §4.4 permits ("a straightforward unbalanced insertion is
// acceptable for the current scale... an implementation should document
// its balancing choice"). No pack example ships a standalone on-disk
// search tree to ground a self-balancing variant on, and the fixed table
// capacities this module operates over keep worst-case depth bounded in
// practice; a self-balancing rotation scheme (AVL/red-black) is future
// work if deep skew becomes an issue at larger capacities.
package tree
