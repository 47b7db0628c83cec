// Package outline is the operation façade over the WorkFlowy client.
//
// Each operation opens a fresh outline snapshot, works on it under the
// retry policy matching its risk class, and records the outcome in the
// structured log and the metrics store. Snapshots are confined to the
// call that opened them, so operations never share mutable state and
// need no locks.
package outline

import (
	"context"
	"errors"
	"time"

	"github.com/calebwren/treeline/internal/fault"
	"github.com/calebwren/treeline/internal/metrics"
	"github.com/calebwren/treeline/internal/projection"
	"github.com/calebwren/treeline/internal/retry"
	"github.com/calebwren/treeline/internal/telemetry"
	"github.com/calebwren/treeline/internal/workflowy"
)

// Source yields authenticated outline snapshots. *workflowy.Client is
// the production implementation.
type Source interface {
	// Verify proves the configured credentials without fetching data.
	Verify(ctx context.Context) error

	// OpenTree authenticates and fetches a fresh outline snapshot.
	OpenTree(ctx context.Context) (*workflowy.Tree, error)
}

// Policies maps operation risk classes to retry policies.
type Policies struct {
	Auth  retry.Policy
	Read  retry.Policy
	Write retry.Policy
	Batch retry.Policy
}

// DefaultPolicies returns the catalog assignment: reads replay safely
// and retry hardest, mutations are paced down by their blast radius.
func DefaultPolicies() Policies {
	return Policies{
		Auth:  retry.Quick,
		Read:  retry.Standard,
		Write: retry.Write,
		Batch: retry.Batch,
	}
}

// Service executes outline operations.
type Service struct {
	source   Source
	log      *telemetry.Logger
	metrics  *metrics.Store
	engine   *projection.Engine
	policies Policies
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records finished operations in st. A nil store disables
// recording.
func WithMetrics(st *metrics.Store) Option {
	return func(s *Service) { s.metrics = st }
}

// WithPolicies overrides the default policy assignment.
func WithPolicies(p Policies) Option {
	return func(s *Service) { s.policies = p }
}

// New creates a Service reading from source and reporting to log.
func New(source Source, log *telemetry.Logger, opts ...Option) *Service {
	s := &Service{
		source:   source,
		log:      log,
		engine:   projection.New(log),
		policies: DefaultPolicies(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run executes body under the policy, logging every failed attempt and
// recording the final outcome. The retry layer decides whether a failure
// is worth another attempt; run only counts and reports them.
func run[T any](ctx context.Context, s *Service, op string, p retry.Policy, fields telemetry.Ctx, body func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	attempts := 0
	out, err := retry.Do(ctx, p, func(ctx context.Context) (T, error) {
		attempts++
		v, err := body(ctx)
		if err != nil {
			s.log.Warn("attempt failed", telemetry.Ctx{
				"operation": op,
				"attempt":   attempts,
				"policy":    p.Name,
				"error":     err.Error(),
			})
		}
		return v, err
	})
	s.finish(op, p, start, attempts, fields, err)
	return out, err
}

// runTree opens a fresh snapshot for every attempt and hands it to body,
// so a retried mutation replays against current state rather than a
// stale arena.
func runTree[T any](ctx context.Context, s *Service, op string, p retry.Policy, fields telemetry.Ctx, body func(context.Context, *workflowy.Tree) (T, error)) (T, error) {
	return run(ctx, s, op, p, fields, func(ctx context.Context) (T, error) {
		tree, err := s.source.OpenTree(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return body(ctx, tree)
	})
}

func (s *Service) finish(op string, p retry.Policy, start time.Time, attempts int, fields telemetry.Ctx, err error) {
	duration := time.Since(start)
	c := telemetry.Ctx{"policy": p.Name, "attempts": attempts}
	for k, v := range fields {
		c[k] = v
	}
	kind := ""
	if err != nil {
		kind = fault.Classify(err).Kind.String()
		c["errorKind"] = kind
	}
	s.log.RecordAPICall(op, duration, err == nil, c)

	if merr := s.metrics.Record(metrics.Call{
		Operation: op,
		Duration:  duration,
		Success:   err == nil,
		ErrorKind: kind,
		Attempts:  attempts,
	}); merr != nil {
		s.log.Warn("metrics write failed", telemetry.Ctx{"operation": op, "error": merr.Error()})
	}
}

// save persists queued mutations. A body whose edits all turned out to
// be no-ops leaves the tree clean and skips the push entirely.
func save(ctx context.Context, tree *workflowy.Tree) error {
	if !tree.IsDirty() {
		return nil
	}
	return tree.Save(ctx)
}

// CheckAuth proves the configured credentials against the service. The
// server runs it once in the background at startup so a bad password
// shows up in the log immediately instead of on the first tool call.
func (s *Service) CheckAuth(ctx context.Context) error {
	_, err := run(ctx, s, "check_auth", s.policies.Auth, nil, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.source.Verify(ctx)
	})
	return err
}

// GetRoot projects the outline from its root under spec.
func (s *Service) GetRoot(ctx context.Context, spec projection.Spec) (projection.ProjectedNode, error) {
	return runTree(ctx, s, "get_root", s.policies.Read, nil,
		func(ctx context.Context, tree *workflowy.Tree) (projection.ProjectedNode, error) {
			return s.engine.Project(tree.Root(), spec, 0), nil
		})
}

// GetNode projects one node by id.
func (s *Service) GetNode(ctx context.Context, id string, spec projection.Spec) (projection.ProjectedNode, error) {
	return runTree(ctx, s, "get_node", s.policies.Read, telemetry.Ctx{"nodeId": id},
		func(ctx context.Context, tree *workflowy.Tree) (projection.ProjectedNode, error) {
			n, ok := tree.Node(id)
			if !ok {
				return nil, fault.NotFound(id)
			}
			return s.engine.Project(n, spec, 0), nil
		})
}

// GetChildren projects the direct children of a node, each treated as a
// depth-0 subtree root under spec.
func (s *Service) GetChildren(ctx context.Context, parentID string, spec projection.Spec) ([]projection.ProjectedNode, error) {
	return runTree(ctx, s, "get_children", s.policies.Read, telemetry.Ctx{"nodeId": parentID},
		func(ctx context.Context, tree *workflowy.Tree) ([]projection.ProjectedNode, error) {
			parent, ok := tree.Node(parentID)
			if !ok {
				return nil, fault.NotFound(parentID)
			}
			out := []projection.ProjectedNode{}
			for _, child := range parent.Children() {
				out = append(out, s.engine.Project(child, spec, 0))
			}
			return out, nil
		})
}

// SearchResult pairs matches with their payload size estimate.
type SearchResult struct {
	Nodes    []projection.ProjectedNode
	Estimate projection.Estimate
}

// Search scans the outline for nodes whose name contains query.
func (s *Service) Search(ctx context.Context, query string, limit int, spec projection.Spec) (SearchResult, error) {
	return runTree(ctx, s, "search", s.policies.Read, telemetry.Ctx{"query": query},
		func(ctx context.Context, tree *workflowy.Tree) (SearchResult, error) {
			nodes, est := s.engine.Search(tree.Root(), query, limit, spec)
			return SearchResult{Nodes: nodes, Estimate: est}, nil
		})
}

// CreateParams describes one node to create.
type CreateParams struct {
	ParentID string
	Name     string
	Note     string
	Priority int // position under the parent; negative appends
}

// Create adds a node and persists the change. The id is generated
// client-side, as the wire protocol requires, and returned once the
// push succeeds.
func (s *Service) Create(ctx context.Context, p CreateParams) (string, error) {
	return runTree(ctx, s, "create", s.policies.Write, telemetry.Ctx{"parentId": p.ParentID},
		func(ctx context.Context, tree *workflowy.Tree) (string, error) {
			parent, ok := tree.Node(p.ParentID)
			if !ok {
				return "", fault.NotFound(p.ParentID)
			}
			n, err := parent.CreateChild(p.Priority)
			if err != nil {
				return "", fault.Invalid(err)
			}
			if err := n.Rename(p.Name); err != nil {
				return "", fault.Invalid(err)
			}
			if p.Note != "" {
				if err := n.SetNote(p.Note); err != nil {
					return "", fault.Invalid(err)
				}
			}
			if err := save(ctx, tree); err != nil {
				return "", err
			}
			return n.ID(), nil
		})
}

// UpdateParams describes an in-place edit. Nil fields are untouched.
type UpdateParams struct {
	ID   string
	Name *string
	Note *string
}

// Update rewrites a node's name and note.
func (s *Service) Update(ctx context.Context, p UpdateParams) error {
	if p.Name == nil && p.Note == nil {
		return fault.Invalid(errors.New("update needs a new name or note"))
	}
	_, err := runTree(ctx, s, "update", s.policies.Write, telemetry.Ctx{"nodeId": p.ID},
		func(ctx context.Context, tree *workflowy.Tree) (struct{}, error) {
			var zero struct{}
			n, ok := tree.Node(p.ID)
			if !ok {
				return zero, fault.NotFound(p.ID)
			}
			if p.Name != nil {
				if err := n.Rename(*p.Name); err != nil {
					return zero, fault.Invalid(err)
				}
			}
			if p.Note != nil {
				if err := n.SetNote(*p.Note); err != nil {
					return zero, fault.Invalid(err)
				}
			}
			return zero, save(ctx, tree)
		})
	return err
}

// Delete removes a node and its whole subtree.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := runTree(ctx, s, "delete", s.policies.Write, telemetry.Ctx{"nodeId": id},
		func(ctx context.Context, tree *workflowy.Tree) (struct{}, error) {
			var zero struct{}
			n, ok := tree.Node(id)
			if !ok {
				return zero, fault.NotFound(id)
			}
			if err := n.Delete(); err != nil {
				return zero, fault.Invalid(err)
			}
			return zero, save(ctx, tree)
		})
	return err
}

// SetCompleted checks a node off or reopens it. Asking for the state the
// node already has acknowledges without a push.
func (s *Service) SetCompleted(ctx context.Context, id string, completed bool) error {
	_, err := runTree(ctx, s, "set_completed", s.policies.Write, telemetry.Ctx{"nodeId": id, "completed": completed},
		func(ctx context.Context, tree *workflowy.Tree) (struct{}, error) {
			var zero struct{}
			n, ok := tree.Node(id)
			if !ok {
				return zero, fault.NotFound(id)
			}
			if err := n.SetCompleted(completed); err != nil {
				return zero, fault.Invalid(err)
			}
			return zero, save(ctx, tree)
		})
	return err
}

// MoveParams describes a reparenting.
type MoveParams struct {
	ID       string
	ParentID string
	Priority int // position under the new parent; negative appends
}

// Move reparents a node. Cycles are rejected before anything is queued.
func (s *Service) Move(ctx context.Context, p MoveParams) error {
	_, err := runTree(ctx, s, "move", s.policies.Write, telemetry.Ctx{"nodeId": p.ID, "parentId": p.ParentID},
		func(ctx context.Context, tree *workflowy.Tree) (struct{}, error) {
			var zero struct{}
			n, ok := tree.Node(p.ID)
			if !ok {
				return zero, fault.NotFound(p.ID)
			}
			dest, ok := tree.Node(p.ParentID)
			if !ok {
				return zero, fault.NotFound(p.ParentID)
			}
			if err := n.Move(dest, p.Priority); err != nil {
				return zero, fault.Invalid(err)
			}
			return zero, save(ctx, tree)
		})
	return err
}

// BatchItem is one node of a batch create request.
type BatchItem struct {
	Name string `json:"name"`
	Note string `json:"note,omitempty"`
}

// BatchCreate appends items in order under one parent and persists them
// as a single push, so the service sees one batch instead of a round
// trip per item. Returns the new ids in item order.
func (s *Service) BatchCreate(ctx context.Context, parentID string, items []BatchItem) ([]string, error) {
	if len(items) == 0 {
		return nil, fault.Invalid(errors.New("batch create needs at least one item"))
	}
	return runTree(ctx, s, "batch_create", s.policies.Batch, telemetry.Ctx{"parentId": parentID, "items": len(items)},
		func(ctx context.Context, tree *workflowy.Tree) ([]string, error) {
			parent, ok := tree.Node(parentID)
			if !ok {
				return nil, fault.NotFound(parentID)
			}
			ids := make([]string, 0, len(items))
			for _, item := range items {
				n, err := parent.CreateChild(-1)
				if err != nil {
					return nil, fault.Invalid(err)
				}
				if err := n.Rename(item.Name); err != nil {
					return nil, fault.Invalid(err)
				}
				if item.Note != "" {
					if err := n.SetNote(item.Note); err != nil {
						return nil, fault.Invalid(err)
					}
				}
				ids = append(ids, n.ID())
			}
			if err := save(ctx, tree); err != nil {
				return nil, err
			}
			return ids, nil
		})
}
