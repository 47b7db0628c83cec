package projection

import (
	"errors"
	"time"

	"github.com/calebwren/treeline/internal/telemetry"
	"github.com/calebwren/treeline/internal/workflowy"
)

type hydrator func(n workflowy.NodeRef) (any, error)

// metadataFields maps each hydratable field to its hydrator. Hydrators
// are independent: one failing field degrades only itself, never the
// record. Field names not in this map and not base fields are ignored.
var metadataFields = map[string]hydrator{
	"parentId":       hydrateParentID,
	"parentName":     hydrateParentName,
	"priority":       hydratePriority,
	"lastModifiedAt": hydrateLastModified,
	"completedAt":    hydrateCompletedAt,
	"isMirror":       hydrateIsMirror,
	"originalId":     hydrateOriginalID,
	"isSharedViaUrl": hydrateIsShared,
	"sharedUrl":      hydrateSharedURL,
	"hierarchy":      hydrateHierarchy,
	"siblings":       hydrateSiblings,
	"siblingCount":   hydrateSiblingCount,
}

// errNoValue marks fields that simply do not apply to the node, such as
// the root's parent. The field is skipped without a log line.
var errNoValue = errors.New("no value")

func (e *Engine) hydrate(out ProjectedNode, n workflowy.NodeRef, fields []string) {
	for _, f := range fields {
		h, ok := metadataFields[f]
		if !ok {
			continue
		}
		v, err := h(n)
		if err != nil {
			if !errors.Is(err, errNoValue) {
				e.log.Warn("metadata hydration failed", telemetry.Ctx{
					"field":  f,
					"nodeId": n.ID(),
					"error":  err.Error(),
				})
			}
			continue
		}
		out[f] = v
	}
}

func hydrateParentID(n workflowy.NodeRef) (any, error) {
	parent, ok := n.Parent()
	if !ok {
		return nil, errNoValue
	}
	return parent.ID(), nil
}

func hydrateParentName(n workflowy.NodeRef) (any, error) {
	parent, ok := n.Parent()
	if !ok {
		return nil, errNoValue
	}
	return parent.Name(), nil
}

func hydratePriority(n workflowy.NodeRef) (any, error) {
	return n.Priority(), nil
}

func hydrateLastModified(n workflowy.NodeRef) (any, error) {
	lm := n.LastModifiedAt()
	if lm.IsZero() {
		return nil, errNoValue
	}
	return lm.UTC().Format(time.RFC3339), nil
}

func hydrateCompletedAt(n workflowy.NodeRef) (any, error) {
	at, ok := n.CompletedAt()
	if !ok {
		return nil, errNoValue
	}
	return at.UTC().Format(time.RFC3339), nil
}

func hydrateIsMirror(n workflowy.NodeRef) (any, error) {
	return n.IsMirror(), nil
}

func hydrateOriginalID(n workflowy.NodeRef) (any, error) {
	id := n.OriginalID()
	if id == "" {
		return nil, errNoValue
	}
	return id, nil
}

func hydrateIsShared(n workflowy.NodeRef) (any, error) {
	return n.IsSharedViaURL(), nil
}

func hydrateSharedURL(n workflowy.NodeRef) (any, error) {
	u := n.SharedURL()
	if u == "" {
		return nil, errNoValue
	}
	return u, nil
}

// hydrateHierarchy lists ancestor names from the top of the outline down
// to the node's parent. The synthetic root is not part of the path.
func hydrateHierarchy(n workflowy.NodeRef) (any, error) {
	var path []string
	for anc, ok := n.Parent(); ok; anc, ok = anc.Parent() {
		if anc.IsRoot() {
			break
		}
		path = append(path, anc.Name())
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	if path == nil {
		path = []string{}
	}
	return path, nil
}

// hydrateSiblings lists the parent's other children as id/name/priority
// triples, in outline order.
func hydrateSiblings(n workflowy.NodeRef) (any, error) {
	parent, ok := n.Parent()
	if !ok {
		return []map[string]any{}, nil
	}
	siblings := []map[string]any{}
	for _, s := range parent.Children() {
		if s.ID() == n.ID() {
			continue
		}
		siblings = append(siblings, map[string]any{
			"id":       s.ID(),
			"name":     s.Name(),
			"priority": s.Priority(),
		})
	}
	return siblings, nil
}

func hydrateSiblingCount(n workflowy.NodeRef) (any, error) {
	parent, ok := n.Parent()
	if !ok {
		return 0, nil
	}
	return parent.ChildCount(), nil
}
