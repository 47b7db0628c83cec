package workflowy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RootID is the id the service gives the invisible root of an account's
// outline. Operations targeting the top level use it as the parent id.
const RootID = "None"

// rootName labels the synthetic root in projected output.
const rootName = "Home"

// now is a package-level var to allow test injection.
var now = time.Now

// PushFunc persists one batch of queued operations, already encoded in
// wire format, and returns the transaction id to adopt. The Session
// implementation posts the batch to push_and_poll; tests record it.
type PushFunc func(ctx context.Context, clientID, txid string, operations json.RawMessage) (string, error)

// Tree is a flat arena holding every node of a fetched outline. The
// arena owns the nodes; NodeRef values are indices into it, id lookups go
// through a single map, and parent/child links are plain ints. All reads
// and mutations go through NodeRef.
type Tree struct {
	nodes   []node
	index   map[string]int
	pending []operation

	clientID   string
	txid       string
	ownerID    int64
	dateJoined time.Time

	push PushFunc
}

// node is one arena slot.
type node struct {
	id           string
	name         string
	note         string
	completedAt  *time.Time
	lastModified time.Time
	mirrorRoot   bool
	originalID   string
	sharedURL    string
	parent       int   // arena index; -1 above the root
	children     []int // arena indices in outline order
	deleted      bool
}

// NewTree returns an outline holding only the synthetic root. Mutations
// queue operations as usual; Save needs a push function, which may be nil
// for trees that are never persisted.
func NewTree(push PushFunc) *Tree {
	t := &Tree{
		index:      map[string]int{},
		dateJoined: now().UTC(),
		push:       push,
	}
	t.nodes = append(t.nodes, node{id: RootID, name: rootName, parent: -1})
	t.index[RootID] = 0
	return t
}

// buildTree assembles the arena from an initialization payload.
func buildTree(info mainProjectTreeInfo, clientID string, push PushFunc) *Tree {
	t := &Tree{
		index:      map[string]int{},
		clientID:   clientID,
		txid:       info.InitialTransactionID,
		ownerID:    info.OwnerID,
		dateJoined: time.Unix(info.DateJoinedTimestampInSeconds, 0).UTC(),
		push:       push,
	}
	t.nodes = append(t.nodes, node{id: RootID, name: rootName, parent: -1})
	t.index[RootID] = 0
	for _, child := range info.RootProjectChildren {
		t.addWire(child, 0)
	}
	return t
}

// addWire copies one wire node and its subtree into the arena.
func (t *Tree) addWire(w wireNode, parent int) {
	n := node{
		id:           w.ID,
		name:         w.Name,
		note:         w.Note,
		lastModified: t.wireTime(w.LastModified),
		parent:       parent,
	}
	if w.CompletedAt != nil {
		ts := t.wireTime(*w.CompletedAt)
		n.completedAt = &ts
	}
	if w.Metadata != nil && w.Metadata.Mirror != nil {
		n.mirrorRoot = w.Metadata.Mirror.IsMirrorRoot
		n.originalID = w.Metadata.Mirror.OriginalID
	}
	if w.Shared != nil && w.Shared.URLSharedInfo != nil && w.Shared.URLSharedInfo.AccessToken != "" {
		n.sharedURL = "https://workflowy.com/s/" + w.Shared.URLSharedInfo.AccessToken
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, n)
	t.index[w.ID] = idx
	t.nodes[parent].children = append(t.nodes[parent].children, idx)
	for _, child := range w.Children {
		t.addWire(child, idx)
	}
}

// wireTime converts join-relative wire seconds to absolute time.
func (t *Tree) wireTime(rel int64) time.Time {
	if rel == 0 {
		return time.Time{}
	}
	return t.dateJoined.Add(time.Duration(rel) * time.Second)
}

// stamp returns the current time in join-relative wire seconds.
func (t *Tree) stamp() int64 {
	return int64(now().UTC().Sub(t.dateJoined) / time.Second)
}

// Root returns the synthetic root reference.
func (t *Tree) Root() NodeRef { return NodeRef{t: t, i: 0} }

// Node resolves an id through the arena index.
func (t *Tree) Node(id string) (NodeRef, bool) {
	i, ok := t.index[id]
	if !ok {
		return NodeRef{}, false
	}
	return NodeRef{t: t, i: i}, true
}

// Len reports the number of live nodes, the synthetic root included.
func (t *Tree) Len() int { return len(t.index) }

// IsDirty reports whether mutations are queued but not yet persisted.
func (t *Tree) IsDirty() bool { return len(t.pending) > 0 }

// PendingOps reports how many operations are queued.
func (t *Tree) PendingOps() int { return len(t.pending) }

// Save pushes every queued operation as one batch and adopts the
// returned transaction id. A clean tree saves as a no-op; the queue is
// kept intact when the push fails so a later Save can repeat it.
func (t *Tree) Save(ctx context.Context) error {
	if !t.IsDirty() {
		return nil
	}
	if t.push == nil {
		return errors.New("workflowy: tree has no push transport")
	}
	raw, err := json.Marshal(t.pending)
	if err != nil {
		return fmt.Errorf("workflowy: encoding operations: %w", err)
	}
	txid, err := t.push(ctx, t.clientID, t.txid, raw)
	if err != nil {
		return err
	}
	t.txid = txid
	t.pending = t.pending[:0]
	return nil
}

// queue appends one wire operation stamped with the current time.
func (t *Tree) queue(opType string, data opData) {
	t.pending = append(t.pending, operation{
		Type:            opType,
		Data:            data,
		ClientTimestamp: t.stamp(),
	})
}

func removeIndex(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func insertIndex(s []int, pos, v int) []int {
	s = append(s, 0)
	copy(s[pos+1:], s[pos:])
	s[pos] = v
	return s
}

// clampPriority maps negative or out-of-range positions to "append".
func clampPriority(p, n int) int {
	if p < 0 || p > n {
		return n
	}
	return p
}
