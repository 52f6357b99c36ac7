package ufs

import (
	"github.com/ufs/ufs/internal/table"
	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// ownerRootIndex is a small BST over the shared Node table, keyed by an
// owner id (a directory or area id) and carrying a second id as payload:
// the root of that owner's own Tree (a per-directory file index or a
// per-area mapping set). spec.md §3 reserves a second key slot on every
// NodeSlot that the single-key Tree in internal/tree never uses; this type
// spends it, so that the per-owner tree roots survive a restart inside the
// same image instead of living only in process memory.
type ownerRootIndex struct {
	nodes *table.Table
	root  ufsdefs.ID
}

func newOwnerRootIndex(nodes *table.Table, root ufsdefs.ID) *ownerRootIndex {
	return &ownerRootIndex{nodes: nodes, root: root}
}

// Root returns the index's own root node id, persisted by the caller.
func (x *ownerRootIndex) Root() ufsdefs.ID { return x.root }

// Get returns the root id stored for owner, or ok == false if owner has no
// entry (an owner with no entry has an empty Tree of its own).
func (x *ownerRootIndex) Get(owner ufsdefs.ID) (ufsdefs.ID, bool, error) {
	id := x.root
	for id != 0 {
		n, err := x.nodes.Node(id)
		if err != nil {
			return 0, false, err
		}
		switch {
		case owner == n.Key(0):
			return n.Key(1), true, nil
		case owner < n.Key(0):
			id = n.Left()
		default:
			id = n.Right()
		}
	}
	return 0, false, nil
}

// Set records rootID as owner's tree root, inserting a new entry or
// updating the existing one.
func (x *ownerRootIndex) Set(owner, rootID ufsdefs.ID) error {
	if x.root == 0 {
		id, err := x.newLeaf(owner, rootID)
		if err != nil {
			return err
		}
		x.root = id
		return nil
	}
	return x.setUnder(x.root, owner, rootID)
}

func (x *ownerRootIndex) newLeaf(owner, rootID ufsdefs.ID) (ufsdefs.ID, error) {
	id, err := x.nodes.Allocate()
	if err != nil {
		return 0, err
	}
	n, err := x.nodes.Node(id)
	if err != nil {
		return 0, err
	}
	n.SetKey(0, owner)
	n.SetKey(1, rootID)
	n.SetKeyCount(2)
	n.SetLeft(0)
	n.SetRight(0)
	return id, nil
}

func (x *ownerRootIndex) setUnder(nodeID, owner, rootID ufsdefs.ID) error {
	n, err := x.nodes.Node(nodeID)
	if err != nil {
		return err
	}
	switch {
	case owner == n.Key(0):
		n.SetKey(1, rootID)
		return nil
	case owner < n.Key(0):
		if n.Left() == 0 {
			child, err := x.newLeaf(owner, rootID)
			if err != nil {
				return err
			}
			n.SetLeft(child)
			return nil
		}
		return x.setUnder(n.Left(), owner, rootID)
	default:
		if n.Right() == 0 {
			child, err := x.newLeaf(owner, rootID)
			if err != nil {
				return err
			}
			n.SetRight(child)
			return nil
		}
		return x.setUnder(n.Right(), owner, rootID)
	}
}

// Delete removes owner's entry entirely, used when the owner itself is
// being removed (RemoveDirectory, RemoveArea).
func (x *ownerRootIndex) Delete(owner ufsdefs.ID) error {
	newRoot, err := x.deleteUnder(x.root, owner)
	if err != nil {
		return err
	}
	x.root = newRoot
	return nil
}

func (x *ownerRootIndex) deleteUnder(nodeID, owner ufsdefs.ID) (ufsdefs.ID, error) {
	if nodeID == 0 {
		return 0, errors.New(ufsdefs.DoesNotExist, "ufs: owner has no root-index entry")
	}
	n, err := x.nodes.Node(nodeID)
	if err != nil {
		return 0, err
	}
	switch {
	case owner < n.Key(0):
		newLeft, err := x.deleteUnder(n.Left(), owner)
		if err != nil {
			return 0, err
		}
		n.SetLeft(newLeft)
		return nodeID, nil
	case owner > n.Key(0):
		newRight, err := x.deleteUnder(n.Right(), owner)
		if err != nil {
			return 0, err
		}
		n.SetRight(newRight)
		return nodeID, nil
	default:
		switch {
		case n.Left() == 0 && n.Right() == 0:
			return 0, x.nodes.Free(nodeID)
		case n.Left() == 0:
			right := n.Right()
			return right, x.nodes.Free(nodeID)
		case n.Right() == 0:
			left := n.Left()
			return left, x.nodes.Free(nodeID)
		default:
			succOwner, succRoot, err := x.min(n.Right())
			if err != nil {
				return 0, err
			}
			n.SetKey(0, succOwner)
			n.SetKey(1, succRoot)
			newRight, err := x.deleteUnder(n.Right(), succOwner)
			if err != nil {
				return 0, err
			}
			n.SetRight(newRight)
			return nodeID, nil
		}
	}
}

func (x *ownerRootIndex) min(nodeID ufsdefs.ID) (ufsdefs.ID, ufsdefs.ID, error) {
	n, err := x.nodes.Node(nodeID)
	if err != nil {
		return 0, 0, err
	}
	if n.Left() == 0 {
		return n.Key(0), n.Key(1), nil
	}
	return x.min(n.Left())
}
