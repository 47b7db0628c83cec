package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calebwren/treeline/internal/metrics"
	"github.com/calebwren/treeline/internal/outline"
	"github.com/calebwren/treeline/internal/retry"
	"github.com/calebwren/treeline/internal/workflowy"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Test helpers ---

// toolPayload is the canned account snapshot behind every tool test:
//
//	Work            (id-work)
//	  Inbox         (id-inbox)
//	  Errands       (id-errands, note "weekly")
//	  Done          (id-done, completed)
//	Personal        (id-personal)
const toolPayload = `{
  "projectTreeData": {
    "clientId": "client-1",
    "mainProjectTreeInfo": {
      "rootProjectChildren": [
        {
          "id": "id-work", "nm": "Work", "lm": 100,
          "ch": [
            {"id": "id-inbox", "nm": "Inbox", "lm": 110},
            {"id": "id-errands", "nm": "Errands", "no": "weekly", "lm": 120},
            {"id": "id-done", "nm": "Done", "cp": 130, "lm": 130}
          ]
        },
        {"id": "id-personal", "nm": "Personal", "lm": 200}
      ],
      "initialMostRecentOperationTransactionId": "tx-0",
      "ownerId": 7,
      "dateJoinedTimestampInSeconds": 1000000
    }
  }
}`

// pushRecorder collects the operation batches Saves push.
type pushRecorder struct {
	batches []json.RawMessage
}

func (r *pushRecorder) push(_ context.Context, _, _ string, ops json.RawMessage) (string, error) {
	r.batches = append(r.batches, append(json.RawMessage(nil), ops...))
	return "tx-next", nil
}

// toolSource implements outline.Source over the canned payload.
type toolSource struct {
	rec *pushRecorder
}

func (s *toolSource) Verify(context.Context) error { return nil }

func (s *toolSource) OpenTree(context.Context) (*workflowy.Tree, error) {
	return workflowy.ParseTree(strings.NewReader(toolPayload), s.rec.push)
}

func newTestService(t *testing.T) (*outline.Service, *toolSource) {
	t.Helper()
	src := &toolSource{rec: &pushRecorder{}}
	fast := func(name string, attempts int) retry.Policy {
		return retry.Policy{Name: name, MaxAttempts: attempts, BaseDelay: time.Millisecond, Multiplier: 1.5}
	}
	svc := outline.New(src, nil, outline.WithPolicies(outline.Policies{
		Auth:  fast("quick", 2),
		Read:  fast("standard", 4),
		Write: fast("write", 3),
		Batch: fast("batch", 2),
	}))
	return svc, src
}

// makeRequest builds a CallToolRequest carrying args. Numbers must be
// passed as float64, matching how JSON arrives off the wire.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// pushedOp mirrors the wire operation shape for assertions.
type pushedOp struct {
	Type string `json:"type"`
	Data struct {
		ProjectID string  `json:"projectid"`
		ParentID  string  `json:"parentid"`
		Name      *string `json:"name"`
	} `json:"data"`
}

func decodeBatch(t *testing.T, raw json.RawMessage) []pushedOp {
	t.Helper()
	var ops []pushedOp
	if err := json.Unmarshal(raw, &ops); err != nil {
		t.Fatalf("decoding pushed batch: %v", err)
	}
	return ops
}

// --- projectionSpec ---

func TestProjectionSpecDefaults(t *testing.T) {
	spec := projectionSpec(makeRequest(map[string]any{}))

	if spec.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", spec.MaxDepth)
	}
	if spec.PreviewLength != 0 {
		t.Errorf("PreviewLength = %d, want 0", spec.PreviewLength)
	}
	if spec.Fields != nil {
		t.Errorf("Fields = %v, want none", spec.Fields)
	}
}

func TestProjectionSpecParsesParams(t *testing.T) {
	spec := projectionSpec(makeRequest(map[string]any{
		"max_depth":      float64(0),
		"fields":         " id, name ,,note ",
		"preview_length": float64(40),
	}))

	if spec.MaxDepth != 0 {
		t.Errorf("MaxDepth = %d, want explicit 0", spec.MaxDepth)
	}
	if spec.PreviewLength != 40 {
		t.Errorf("PreviewLength = %d, want 40", spec.PreviewLength)
	}
	want := []string{"id", "name", "note"}
	if len(spec.Fields) != len(want) {
		t.Fatalf("Fields = %v, want %v", spec.Fields, want)
	}
	for i, f := range want {
		if spec.Fields[i] != f {
			t.Errorf("Fields[%d] = %q, want %q", i, spec.Fields[i], f)
		}
	}
}

// --- GetRootTool ---

func TestGetRootTool_Handle(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewGetRootTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	var root map[string]any
	if err := json.Unmarshal([]byte(getResultText(result)), &root); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if root["id"] != "None" || root["name"] != "Home" {
		t.Errorf("root = %v/%v", root["id"], root["name"])
	}
	items := root["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("root has %d items, want 2", len(items))
	}
	work := items[0].(map[string]any)
	if work["id"] != "id-work" {
		t.Errorf("items[0] = %v", work["id"])
	}
	// Default max_depth 2 includes the grandchildren.
	if kids := work["items"].([]any); len(kids) != 3 {
		t.Errorf("Work has %d projected children, want 3", len(kids))
	}
}

func TestGetRootTool_FieldSelection(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewGetRootTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"fields":    "id",
		"max_depth": float64(0),
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var root map[string]any
	if err := json.Unmarshal([]byte(getResultText(result)), &root); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(root) != 2 {
		t.Errorf("root has keys %v, want id and items only", root)
	}
}

// --- GetNodeTool ---

func TestGetNodeTool_Handle(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewGetNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"id":     "id-errands",
		"fields": "id,name,note",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var node map[string]any
	if err := json.Unmarshal([]byte(getResultText(result)), &node); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if node["name"] != "Errands" || node["note"] != "weekly" {
		t.Errorf("node = %v", node)
	}
}

func TestGetNodeTool_MissingID(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewGetNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "'id' is required") {
		t.Errorf("result = %q", getResultText(result))
	}
}

func TestGetNodeTool_UnknownID(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewGetNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"id": "id-ghost"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "not found") {
		t.Errorf("result = %q", getResultText(result))
	}
}

// --- ListChildrenTool ---

func TestListChildrenTool_Handle(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewListChildrenTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"parent_id": "id-work"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var children []map[string]any
	if err := json.Unmarshal([]byte(getResultText(result)), &children); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(children) != 3 || children[0]["id"] != "id-inbox" {
		t.Errorf("children = %v", children)
	}
}

func TestListChildrenTool_MissingParent(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewListChildrenTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "'parent_id' is required") {
		t.Errorf("result = %q", getResultText(result))
	}
}

// --- SearchTool ---

func TestSearchTool_Handle(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewSearchTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"query": "inbox"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	text := getResultText(result)
	if !strings.Contains(text, "Found 1 node(s)") || !strings.Contains(text, "id-inbox") {
		t.Errorf("result = %q", text)
	}
	if !strings.Contains(text, "Estimated response size") {
		t.Errorf("missing token footer: %q", text)
	}
	if strings.Contains(text, "Large result set") {
		t.Errorf("tiny result flagged oversized: %q", text)
	}
}

func TestSearchTool_NoMatches(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewSearchTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"query": "no such text"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(getResultText(result), `No nodes match "no such text"`) {
		t.Errorf("result = %q", getResultText(result))
	}
}

func TestSearchTool_MissingQuery(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewSearchTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "'query' is required") {
		t.Errorf("result = %q", getResultText(result))
	}
}

// --- CreateNodeTool ---

func TestCreateNodeTool_Handle(t *testing.T) {
	svc, src := newTestService(t)
	tool := NewCreateNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"parent_id": "id-work",
		"name":      "Standup",
		"note":      "daily at 9",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	if len(src.rec.batches) != 1 {
		t.Fatalf("pushed %d batches, want 1", len(src.rec.batches))
	}
	ops := decodeBatch(t, src.rec.batches[0])
	if ops[0].Type != "create" || ops[0].Data.ParentID != "id-work" {
		t.Errorf("create op = %+v", ops[0])
	}
	text := getResultText(result)
	if !strings.Contains(text, "Created node") || !strings.Contains(text, ops[0].Data.ProjectID) {
		t.Errorf("ack %q does not carry the new id %q", text, ops[0].Data.ProjectID)
	}
}

func TestCreateNodeTool_MissingName(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewCreateNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"parent_id": "id-work"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "'name' is required") {
		t.Errorf("result = %q", getResultText(result))
	}
}

// --- UpdateNodeTool ---

func TestUpdateNodeTool_Handle(t *testing.T) {
	svc, src := newTestService(t)
	tool := NewUpdateNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"id":   "id-errands",
		"name": "Errands v2",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if text := getResultText(result); text != "Updated name of node `id-errands`." {
		t.Errorf("ack = %q", text)
	}

	ops := decodeBatch(t, src.rec.batches[0])
	if len(ops) != 1 || ops[0].Type != "edit" || *ops[0].Data.Name != "Errands v2" {
		t.Errorf("ops = %+v", ops)
	}
}

func TestUpdateNodeTool_NothingToChange(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewUpdateNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"id": "id-errands"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "Provide 'name', 'note', or both") {
		t.Errorf("result = %q", getResultText(result))
	}
}

// --- DeleteNodeTool ---

func TestDeleteNodeTool_Handle(t *testing.T) {
	svc, src := newTestService(t)
	tool := NewDeleteNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"id": "id-inbox"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if text := getResultText(result); !strings.Contains(text, "Deleted node `id-inbox`") {
		t.Errorf("ack = %q", text)
	}

	ops := decodeBatch(t, src.rec.batches[0])
	if len(ops) != 1 || ops[0].Type != "delete" || ops[0].Data.ProjectID != "id-inbox" {
		t.Errorf("ops = %+v", ops)
	}
}

// --- CompleteNodeTool ---

func TestCompleteNodeTool_DefaultsToComplete(t *testing.T) {
	svc, src := newTestService(t)
	tool := NewCompleteNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"id": "id-inbox"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if text := getResultText(result); !strings.Contains(text, "Completed node `id-inbox`") {
		t.Errorf("ack = %q", text)
	}
	ops := decodeBatch(t, src.rec.batches[0])
	if len(ops) != 1 || ops[0].Type != "complete" {
		t.Errorf("ops = %+v", ops)
	}
}

func TestCompleteNodeTool_Reopen(t *testing.T) {
	svc, src := newTestService(t)
	tool := NewCompleteNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"id":        "id-done",
		"completed": false,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if text := getResultText(result); !strings.Contains(text, "Reopened node `id-done`") {
		t.Errorf("ack = %q", text)
	}
	ops := decodeBatch(t, src.rec.batches[0])
	if len(ops) != 1 || ops[0].Type != "uncomplete" {
		t.Errorf("ops = %+v", ops)
	}
}

// --- MoveNodeTool ---

func TestMoveNodeTool_Handle(t *testing.T) {
	svc, src := newTestService(t)
	tool := NewMoveNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"id":        "id-inbox",
		"parent_id": "id-personal",
		"priority":  float64(0),
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if text := getResultText(result); !strings.Contains(text, "Moved node `id-inbox` under `id-personal`") {
		t.Errorf("ack = %q", text)
	}
	ops := decodeBatch(t, src.rec.batches[0])
	if len(ops) != 1 || ops[0].Type != "move" || ops[0].Data.ParentID != "id-personal" {
		t.Errorf("ops = %+v", ops)
	}
}

func TestMoveNodeTool_RejectsCycle(t *testing.T) {
	svc, src := newTestService(t)
	tool := NewMoveNodeTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"id":        "id-work",
		"parent_id": "id-inbox",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "subtree") {
		t.Errorf("result = %q", getResultText(result))
	}
	if len(src.rec.batches) != 0 {
		t.Error("rejected move must not push")
	}
}

// --- BatchCreateTool ---

func TestBatchCreateTool_Handle(t *testing.T) {
	svc, src := newTestService(t)
	tool := NewBatchCreateTool(svc)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
		"parent_id": "id-personal",
		"items":     `[{"name": "Groceries"}, {"name": "Gym"}]`,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := getResultText(result)
	if !strings.Contains(text, "Created 2 nodes under `id-personal`") {
		t.Errorf("ack = %q", text)
	}

	if len(src.rec.batches) != 1 {
		t.Fatalf("pushed %d batches, want 1", len(src.rec.batches))
	}
	ops := decodeBatch(t, src.rec.batches[0])
	if len(ops) != 4 {
		t.Errorf("pushed %d ops, want create+edit per item", len(ops))
	}
}

func TestBatchCreateTool_BadItems(t *testing.T) {
	svc, _ := newTestService(t)
	tool := NewBatchCreateTool(svc)

	tests := []struct {
		name  string
		items string
		want  string
	}{
		{"not json", "milk, eggs", "JSON array"},
		{"empty array", "[]", "at least one item"},
		{"missing name", `[{"name": "ok"}, {"note": "nameless"}]`, "items[1] needs a name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Handle(context.Background(), makeRequest(map[string]any{
				"parent_id": "id-personal",
				"items":     tt.items,
			}))
			if err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			if !isErrorResult(result) || !strings.Contains(getResultText(result), tt.want) {
				t.Errorf("result = %q, want mention of %q", getResultText(result), tt.want)
			}
		})
	}
}

// --- OpsStatsTool ---

func TestOpsStatsTool_DisabledStore(t *testing.T) {
	tool := NewOpsStatsTool(nil)

	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(getResultText(result), "disabled") {
		t.Errorf("result = %q", getResultText(result))
	}
}

func TestOpsStatsTool_Handle(t *testing.T) {
	store, err := metrics.Open(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("metrics.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	calls := []metrics.Call{
		{Operation: "create", Duration: 100 * time.Millisecond, Success: true, Attempts: 1},
		{Operation: "create", Duration: 300 * time.Millisecond, Success: false, ErrorKind: "network_transient", Attempts: 2},
	}
	for _, c := range calls {
		if err := store.Record(c); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	tool := NewOpsStatsTool(store)
	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{"recent": float64(1)}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	text := getResultText(result)
	if !strings.Contains(text, "| create | 2 | 1 | 200 | 300 | 3 |") {
		t.Errorf("summary table missing aggregate row:\n%s", text)
	}
	if !strings.Contains(text, "❌ create") || !strings.Contains(text, "network_transient") {
		t.Errorf("recent listing missing failure entry:\n%s", text)
	}
}

func TestOpsStatsTool_EmptyStore(t *testing.T) {
	store, err := metrics.Open(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("metrics.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	tool := NewOpsStatsTool(store)
	result, err := tool.Handle(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(getResultText(result), "No operations recorded yet") {
		t.Errorf("result = %q", getResultText(result))
	}
}
