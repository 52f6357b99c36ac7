package tree

import (
	"github.com/ufs/ufs/internal/table"
	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// Comparator orders two keys for a Tree's purposes: negative if a sorts
// before b, zero if equal, positive otherwise. Name indices compare by
// interned name; mapping sets compare by raw storage id (spec.md §4.4).
type Comparator func(a, b ufsdefs.ID) int

// Tree is an ordered binary search tree whose nodes live in a shared
// Node-table slot array. A single Table backs many independent Trees (one
// per directory's file index, one per area's mapping set, plus the two
// global directory/area name indices); each Tree only knows its own root.
//
// This package stores exactly one key per occupied node (keys[1] of the
// underlying NodeSlot stays unused) even though spec.md §3 reserves room
// for two. The two-key representation's intended split/promote semantics
// are not specified beyond the field shapes, so this keeps the tree a
// classic single-key BST over the same on-disk slot layout.
type Tree struct {
	nodes *table.Table
	root  ufsdefs.ID
	cmp   Comparator
}

// New creates an empty Tree over nodes, ordered by cmp.
func New(nodes *table.Table, cmp Comparator) *Tree {
	return &Tree{nodes: nodes, cmp: cmp}
}

// Root returns the current root node id, or 0 if the tree is empty.
func (t *Tree) Root() ufsdefs.ID { return t.root }

// SetRoot rehomes the tree onto an already-built subtree, e.g. after
// reconstructing a mapping set's root during engine startup.
func (t *Tree) SetRoot(id ufsdefs.ID) { t.root = id }

func (t *Tree) newLeaf(key ufsdefs.ID) (ufsdefs.ID, error) {
	id, err := t.nodes.Allocate()
	if err != nil {
		return 0, err
	}
	n, err := t.nodes.Node(id)
	if err != nil {
		return 0, err
	}
	n.SetKey(0, key)
	n.SetKeyCount(1)
	n.SetLeft(0)
	n.SetRight(0)
	return id, nil
}

// Insert adds key to the tree. Returns ALREADY_EXISTS if key is present.
func (t *Tree) Insert(key ufsdefs.ID) error {
	if t.root == 0 {
		id, err := t.newLeaf(key)
		if err != nil {
			return err
		}
		t.root = id
		return nil
	}
	return t.insertUnder(t.root, key)
}

func (t *Tree) insertUnder(nodeID, key ufsdefs.ID) error {
	n, err := t.nodes.Node(nodeID)
	if err != nil {
		return err
	}

	switch c := t.cmp(key, n.Key(0)); {
	case c == 0:
		return errors.New(ufsdefs.AlreadyExists, "tree: key already present")
	case c < 0:
		if n.Left() == 0 {
			child, err := t.newLeaf(key)
			if err != nil {
				return err
			}
			n.SetLeft(child)
			return nil
		}
		return t.insertUnder(n.Left(), key)
	default:
		if n.Right() == 0 {
			child, err := t.newLeaf(key)
			if err != nil {
				return err
			}
			n.SetRight(child)
			return nil
		}
		return t.insertUnder(n.Right(), key)
	}
}

// Remove deletes key from the tree. Returns DOES_NOT_EXIST if key is
// absent.
func (t *Tree) Remove(key ufsdefs.ID) error {
	newRoot, err := t.removeUnder(t.root, key)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Tree) removeUnder(nodeID, key ufsdefs.ID) (ufsdefs.ID, error) {
	if nodeID == 0 {
		return 0, errors.New(ufsdefs.DoesNotExist, "tree: key not present")
	}
	n, err := t.nodes.Node(nodeID)
	if err != nil {
		return 0, err
	}

	switch c := t.cmp(key, n.Key(0)); {
	case c < 0:
		newLeft, err := t.removeUnder(n.Left(), key)
		if err != nil {
			return 0, err
		}
		n.SetLeft(newLeft)
		return nodeID, nil
	case c > 0:
		newRight, err := t.removeUnder(n.Right(), key)
		if err != nil {
			return 0, err
		}
		n.SetRight(newRight)
		return nodeID, nil
	default:
		switch {
		case n.Left() == 0 && n.Right() == 0:
			return 0, t.nodes.Free(nodeID)
		case n.Left() == 0:
			right := n.Right()
			return right, t.nodes.Free(nodeID)
		case n.Right() == 0:
			left := n.Left()
			return left, t.nodes.Free(nodeID)
		default:
			succKey, err := t.min(n.Right())
			if err != nil {
				return 0, err
			}
			n.SetKey(0, succKey)
			newRight, err := t.removeUnder(n.Right(), succKey)
			if err != nil {
				return 0, err
			}
			n.SetRight(newRight)
			return nodeID, nil
		}
	}
}

func (t *Tree) min(nodeID ufsdefs.ID) (ufsdefs.ID, error) {
	n, err := t.nodes.Node(nodeID)
	if err != nil {
		return 0, err
	}
	if n.Left() == 0 {
		return n.Key(0), nil
	}
	return t.min(n.Left())
}

// Contains reports whether key is present.
func (t *Tree) Contains(key ufsdefs.ID) (bool, error) {
	id := t.root
	for id != 0 {
		n, err := t.nodes.Node(id)
		if err != nil {
			return false, err
		}
		switch c := t.cmp(key, n.Key(0)); {
		case c == 0:
			return true, nil
		case c < 0:
			id = n.Left()
		default:
			id = n.Right()
		}
	}
	return false, nil
}

// FindBy walks the tree using probe, which compares an external value (such
// as a name not yet attached to any id) against the key stored at each
// visited node; probe must use the same ordering as the tree's Comparator.
// It returns the first key for which probe reports equality, used by name
// lookups that have no candidate id to hand to Contains.
func (t *Tree) FindBy(probe func(key ufsdefs.ID) int) (ufsdefs.ID, bool, error) {
	id := t.root
	for id != 0 {
		n, err := t.nodes.Node(id)
		if err != nil {
			return 0, false, err
		}
		switch c := probe(n.Key(0)); {
		case c == 0:
			return n.Key(0), true, nil
		case c < 0:
			id = n.Left()
		default:
			id = n.Right()
		}
	}
	return 0, false, nil
}

// InOrder visits every key in ascending order. Iteration stops and
// InOrder returns visit's error the first time visit returns a non-nil
// error.
func (t *Tree) InOrder(visit func(ufsdefs.ID) error) error {
	return t.inOrderUnder(t.root, visit)
}

func (t *Tree) inOrderUnder(nodeID ufsdefs.ID, visit func(ufsdefs.ID) error) error {
	if nodeID == 0 {
		return nil
	}
	n, err := t.nodes.Node(nodeID)
	if err != nil {
		return err
	}
	if err := t.inOrderUnder(n.Left(), visit); err != nil {
		return err
	}
	if err := visit(n.Key(0)); err != nil {
		return err
	}
	return t.inOrderUnder(n.Right(), visit)
}
