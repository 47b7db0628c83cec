package workflowy

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NodeRef is a typed reference into a Tree's arena. The zero NodeRef is
// invalid; references to deleted nodes fail Valid and read as zero
// values.
type NodeRef struct {
	t *Tree
	i int
}

// Valid reports whether the reference points at a live arena slot.
func (n NodeRef) Valid() bool {
	return n.t != nil && n.i >= 0 && n.i < len(n.t.nodes) && !n.t.nodes[n.i].deleted
}

// IsRoot reports whether the reference is the synthetic root.
func (n NodeRef) IsRoot() bool { return n.Valid() && n.i == 0 }

// get returns the arena slot. The pointer must not be held across any
// call that grows the arena.
func (n NodeRef) get() *node { return &n.t.nodes[n.i] }

// ID returns the node id, RootID for the root.
func (n NodeRef) ID() string {
	if !n.Valid() {
		return ""
	}
	return n.get().id
}

// Name returns the node's text.
func (n NodeRef) Name() string {
	if !n.Valid() {
		return ""
	}
	return n.get().name
}

// Note returns the node's note body.
func (n NodeRef) Note() string {
	if !n.Valid() {
		return ""
	}
	return n.get().note
}

// IsCompleted reports whether the node is checked off.
func (n NodeRef) IsCompleted() bool {
	return n.Valid() && n.get().completedAt != nil
}

// CompletedAt returns the completion time; ok is false for open nodes.
func (n NodeRef) CompletedAt() (time.Time, bool) {
	if !n.Valid() || n.get().completedAt == nil {
		return time.Time{}, false
	}
	return *n.get().completedAt, true
}

// LastModifiedAt returns the last edit time, zero when the service sent
// none.
func (n NodeRef) LastModifiedAt() time.Time {
	if !n.Valid() {
		return time.Time{}
	}
	return n.get().lastModified
}

// IsMirror reports whether the node is the root of a mirror.
func (n NodeRef) IsMirror() bool { return n.Valid() && n.get().mirrorRoot }

// OriginalID returns the mirrored node's id, empty for ordinary nodes.
func (n NodeRef) OriginalID() string {
	if !n.Valid() {
		return ""
	}
	return n.get().originalID
}

// IsSharedViaURL reports whether the node has a share link.
func (n NodeRef) IsSharedViaURL() bool { return n.Valid() && n.get().sharedURL != "" }

// SharedURL returns the node's share link, empty when unshared.
func (n NodeRef) SharedURL() string {
	if !n.Valid() {
		return ""
	}
	return n.get().sharedURL
}

// Parent returns the parent reference; ok is false at the root.
func (n NodeRef) Parent() (NodeRef, bool) {
	if !n.Valid() || n.i == 0 {
		return NodeRef{}, false
	}
	return NodeRef{t: n.t, i: n.get().parent}, true
}

// Children returns references to the node's children in outline order.
func (n NodeRef) Children() []NodeRef {
	if !n.Valid() {
		return nil
	}
	kids := n.get().children
	out := make([]NodeRef, len(kids))
	for i, idx := range kids {
		out[i] = NodeRef{t: n.t, i: idx}
	}
	return out
}

// ChildCount reports the number of children.
func (n NodeRef) ChildCount() int {
	if !n.Valid() {
		return 0
	}
	return len(n.get().children)
}

// Priority returns the node's position under its parent, 0 at the root.
func (n NodeRef) Priority() int {
	parent, ok := n.Parent()
	if !ok {
		return 0
	}
	for pos, idx := range parent.get().children {
		if idx == n.i {
			return pos
		}
	}
	return 0
}

var (
	errStaleRef  = errors.New("workflowy: reference to a deleted or missing node")
	errRootEdit  = errors.New("workflowy: the root cannot be edited")
	errRootMove  = errors.New("workflowy: the root cannot be moved or deleted")
	errStaleDest = errors.New("workflowy: move target is deleted or missing")
)

// editable rejects mutations on stale references and on the root.
func (n NodeRef) editable() error {
	if !n.Valid() {
		return errStaleRef
	}
	if n.i == 0 {
		return errRootEdit
	}
	return nil
}

// Rename replaces the node's text and queues an edit operation.
func (n NodeRef) Rename(name string) error {
	if err := n.editable(); err != nil {
		return err
	}
	nd := n.get()
	nd.name = name
	nd.lastModified = now().UTC()
	n.t.queue(opEdit, opData{ProjectID: nd.id, Name: &name})
	return nil
}

// SetNote replaces the node's note and queues an edit operation.
func (n NodeRef) SetNote(note string) error {
	if err := n.editable(); err != nil {
		return err
	}
	nd := n.get()
	nd.note = note
	nd.lastModified = now().UTC()
	n.t.queue(opEdit, opData{ProjectID: nd.id, Description: &note})
	return nil
}

// SetCompleted checks the node off or reopens it. Setting the state it
// already has queues nothing.
func (n NodeRef) SetCompleted(done bool) error {
	if err := n.editable(); err != nil {
		return err
	}
	nd := n.get()
	if done == (nd.completedAt != nil) {
		return nil
	}
	if done {
		ts := now().UTC()
		nd.completedAt = &ts
		n.t.queue(opComplete, opData{ProjectID: nd.id})
	} else {
		nd.completedAt = nil
		n.t.queue(opUncomplete, opData{ProjectID: nd.id})
	}
	nd.lastModified = now().UTC()
	return nil
}

// CreateChild adds an empty node under this one at the given priority
// (child position; negative appends) and returns its reference. Ids are
// generated client-side, as the wire protocol requires.
func (n NodeRef) CreateChild(priority int) (NodeRef, error) {
	if !n.Valid() {
		return NodeRef{}, errStaleRef
	}
	t := n.t
	id := uuid.NewString()
	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{id: id, lastModified: now().UTC(), parent: n.i})
	t.index[id] = idx
	pos := clampPriority(priority, len(t.nodes[n.i].children))
	t.nodes[n.i].children = insertIndex(t.nodes[n.i].children, pos, idx)
	t.queue(opCreate, opData{ProjectID: id, ParentID: n.ID(), Priority: &pos})
	return NodeRef{t: t, i: idx}, nil
}

// Move reparents the node to position priority under newParent (negative
// appends). Moving the root, moving to a stale target, and moving a node
// into its own subtree are rejected.
func (n NodeRef) Move(newParent NodeRef, priority int) error {
	if !n.Valid() {
		return errStaleRef
	}
	if n.i == 0 {
		return errRootMove
	}
	if !newParent.Valid() || newParent.t != n.t {
		return errStaleDest
	}
	for anc, ok := newParent, true; ok; anc, ok = anc.Parent() {
		if anc.i == n.i {
			return fmt.Errorf("workflowy: cannot move %q into its own subtree", n.ID())
		}
	}

	t := n.t
	oldParent := t.nodes[n.i].parent
	t.nodes[oldParent].children = removeIndex(t.nodes[oldParent].children, n.i)
	pos := clampPriority(priority, len(t.nodes[newParent.i].children))
	t.nodes[newParent.i].children = insertIndex(t.nodes[newParent.i].children, pos, n.i)
	t.nodes[n.i].parent = newParent.i
	t.nodes[n.i].lastModified = now().UTC()
	t.queue(opMove, opData{ProjectID: n.ID(), ParentID: newParent.ID(), Priority: &pos})
	return nil
}

// Delete removes the node and its whole subtree from the outline.
func (n NodeRef) Delete() error {
	if !n.Valid() {
		return errStaleRef
	}
	if n.i == 0 {
		return errRootMove
	}
	t := n.t
	id := n.ID()
	parent := t.nodes[n.i].parent
	t.nodes[parent].children = removeIndex(t.nodes[parent].children, n.i)
	n.tombstone()
	t.queue(opDelete, opData{ProjectID: id})
	return nil
}

// tombstone unlinks the subtree from the id index and marks its slots
// deleted. Slots stay allocated so stale references fail instead of
// aliasing a later node.
func (n NodeRef) tombstone() {
	nd := n.get()
	for _, child := range nd.children {
		(NodeRef{t: n.t, i: child}).tombstone()
	}
	nd.deleted = true
	delete(n.t.index, nd.id)
}
