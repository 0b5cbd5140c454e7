package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/okdokhae/okdok/internal/evaluation"
	"github.com/okdokhae/okdok/internal/model"
	"github.com/okdokhae/okdok/internal/session"
	"github.com/okdokhae/okdok/internal/tutor"
)

const passage = "Industrialization changed production methods. " +
	"Consequently, urbanization accelerated and a new laboring class formed."

// referenceEvaluator passes answers that repeat the reference.
type referenceEvaluator struct{}

func (referenceEvaluator) EvaluateBatch(_ context.Context, reqs []evaluation.Request) []evaluation.Result {
	out := make([]evaluation.Result, len(reqs))
	for i, r := range reqs {
		out[i] = evaluation.Result{NLILabel: model.LabelNeutral, Feedback: "Include more."}
		if r.Answer == r.Reference {
			out[i] = evaluation.Result{FinalScore: 1, IsPassed: true, NLILabel: model.LabelEntailment, Feedback: "Well done."}
		}
	}
	return out
}

func newTestTutor(t *testing.T) *tutor.Engine {
	t.Helper()
	e, err := tutor.New(nil, tutor.Options{Evaluator: referenceEvaluator{}, Seed: 3})
	if err != nil {
		t.Fatalf("tutor.New: %v", err)
	}
	return e
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode(t *testing.T, r *mcp.CallToolResult, v any) {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool returned error: %s", resultText(r))
	}
	if err := json.Unmarshal([]byte(resultText(r)), v); err != nil {
		t.Fatalf("decode result: %v\n%s", err, resultText(r))
	}
}

func TestServerRegistersTools(t *testing.T) {
	if New(newTestTutor(t), "test") == nil {
		t.Fatal("New returned nil")
	}
}

func TestDefinitions(t *testing.T) {
	e := newTestTutor(t)
	tests := []struct {
		def      mcp.Tool
		name     string
		required []string
	}{
		{NewAnalyzeTool(e).Definition(), "analyze_passage", []string{"passage"}},
		{NewQuestionTool(e).Definition(), "generate_question", []string{"passage"}},
		{NewStartSessionTool(e).Definition(), "start_session", []string{"passage"}},
		{NewSubmitAnswerTool(e).Definition(), "submit_answer", []string{"session_id", "answer"}},
		{NewGetSessionTool(e).Definition(), "get_session", []string{"session_id"}},
	}
	for _, tt := range tests {
		if tt.def.Name != tt.name {
			t.Errorf("tool name = %q, want %q", tt.def.Name, tt.name)
		}
		for _, r := range tt.required {
			found := false
			for _, got := range tt.def.InputSchema.Required {
				if got == r {
					found = true
				}
			}
			if !found {
				t.Errorf("%s: %q should be required", tt.name, r)
			}
		}
	}
}

func TestAnalyzeTool(t *testing.T) {
	tool := NewAnalyzeTool(newTestTutor(t))

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"passage": passage}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	var a tutor.Analysis
	decode(t, res, &a)
	if len(a.Nodes) != 2 || len(a.KeyNodes) != 2 {
		t.Errorf("analysis = %+v", a)
	}

	res, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !res.IsError {
		t.Error("expected error for missing passage")
	}
}

func TestQuestionTool(t *testing.T) {
	e := newTestTutor(t)
	tool := NewQuestionTool(e)
	ctx := context.Background()

	res, _ := tool.Handle(ctx, makeReq(map[string]interface{}{"passage": passage}))
	var first questionResult
	decode(t, res, &first)
	if first.Question == "" || first.NodeID == "" || len(first.History) != 1 {
		t.Fatalf("first = %+v", first)
	}

	history := []interface{}{first.Question}
	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{
		"passage": passage,
		"node_id": first.NodeID,
		"history": history,
	}))
	var second questionResult
	decode(t, res, &second)
	if second.Question == first.Question {
		t.Errorf("question repeated: %q", second.Question)
	}
	if len(second.History) != 2 {
		t.Errorf("history = %v", second.History)
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"passage": passage, "node_id": "nope"}))
	if !res.IsError || !strings.Contains(resultText(res), "not found") {
		t.Errorf("unknown node result = %q", resultText(res))
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"passage": "ok."}))
	if !res.IsError {
		t.Error("expected error for passage without key nodes")
	}
}

func TestSessionTools(t *testing.T) {
	e := newTestTutor(t)
	ctx := context.Background()
	start := NewStartSessionTool(e)
	submit := NewSubmitAnswerTool(e)
	get := NewGetSessionTool(e)

	res, _ := start.Handle(ctx, makeReq(map[string]interface{}{"passage": passage, "layout": "lesson"}))
	var s session.Session
	decode(t, res, &s)
	if len(s.Stages) != 4 || s.ID == "" {
		t.Fatalf("session = %+v", s)
	}

	res, _ = submit.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": s.ID,
		"answer":     s.Stages[0].Reference,
	}))
	var out tutor.SubmitResult
	decode(t, res, &out)
	if !out.Evaluation.IsPassed || out.Next.Kind != session.ActionAdvance {
		t.Errorf("submit = %+v", out)
	}
	if out.Next.Stage == nil || out.Next.Stage.ID != s.Stages[1].ID {
		t.Errorf("next stage = %+v", out.Next.Stage)
	}

	res, _ = get.Handle(ctx, makeReq(map[string]interface{}{"session_id": s.ID}))
	var loaded sessionResult
	decode(t, res, &loaded)
	if loaded.Session.CurrentStageIndex != 1 || loaded.Summary.Passed != 1 {
		t.Errorf("loaded = %+v / %+v", loaded.Session, loaded.Summary)
	}

	// Wrong stage and unknown session come back as tool errors.
	res, _ = submit.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": s.ID,
		"stage_id":   s.Stages[3].ID,
		"answer":     "An answer long enough to count for anything.",
	}))
	if !res.IsError || !strings.Contains(resultText(res), "stage_mismatch") {
		t.Errorf("mismatch result = %q", resultText(res))
	}

	res, _ = get.Handle(ctx, makeReq(map[string]interface{}{"session_id": "missing"}))
	if !res.IsError || !strings.Contains(resultText(res), "session_not_found") {
		t.Errorf("missing result = %q", resultText(res))
	}

	res, _ = start.Handle(ctx, makeReq(map[string]interface{}{"passage": passage, "layout": "grid"}))
	if !res.IsError {
		t.Error("expected error for unknown layout")
	}
}
