package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/okdokhae/okdok/internal/discourse"
	"github.com/okdokhae/okdok/internal/question"
	"github.com/okdokhae/okdok/internal/session"
	"github.com/okdokhae/okdok/internal/tutor"
)

// Tutor is the engine surface the tools drive.
type Tutor interface {
	AnalyzePassage(text string) tutor.Analysis
	GenerateQuestion(node discourse.Node, history *question.History) string
	StartSession(ctx context.Context, workID, passage string, layout session.Layout) (*session.Session, error)
	SubmitAnswer(ctx context.Context, sessionID, stageRef, answer string, evidenceIDs []string) (tutor.SubmitResult, error)
	GetSession(ctx context.Context, id string) (*session.Session, error)
}

var _ Tutor = (*tutor.Engine)(nil)

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult maps engine errors to messages for the client.
func errorResult(action string, err error) *mcp.CallToolResult {
	var ge *session.GateError
	if errors.As(err, &ge) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s (%s)", action, ge.Err, ge.Check))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
}

// ─── AnalyzeTool ────────────────────────────────────────────────────────────

// AnalyzeTool handles the analyze_passage MCP tool.
type AnalyzeTool struct {
	tutor Tutor
}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool(t Tutor) *AnalyzeTool {
	return &AnalyzeTool{tutor: t}
}

// Definition returns the MCP tool definition for analyze_passage.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_passage",
		mcp.WithDescription(
			"Split a reading passage into sentences, tag each with rhetorical roles "+
				"(definition, claim, evidence, cause, result, contrast, report, general) "+
				"and mark the key nodes worth asking about.",
		),
		mcp.WithString("passage",
			mcp.Required(),
			mcp.Description("The passage text"),
		),
	)
}

// Handle processes the analyze_passage tool call.
func (t *AnalyzeTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	passage := req.GetString("passage", "")
	if passage == "" {
		return mcp.NewToolResultError("'passage' is required"), nil
	}
	return jsonResult(t.tutor.AnalyzePassage(passage))
}

// ─── QuestionTool ───────────────────────────────────────────────────────────

// QuestionTool handles the generate_question MCP tool.
type QuestionTool struct {
	tutor Tutor
}

// NewQuestionTool creates a QuestionTool.
func NewQuestionTool(t Tutor) *QuestionTool {
	return &QuestionTool{tutor: t}
}

// Definition returns the MCP tool definition for generate_question.
func (t *QuestionTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_question",
		mcp.WithDescription(
			"Generate a probing question about one sentence of a passage. "+
				"Pass previously asked questions to avoid repeats.",
		),
		mcp.WithString("passage",
			mcp.Required(),
			mcp.Description("The passage text"),
		),
		mcp.WithString("node_id",
			mcp.Description("Sentence node to ask about (defaults to the first key node)"),
		),
		mcp.WithArray("history",
			mcp.Description("Questions already asked"),
			mcp.WithStringItems(),
		),
	)
}

type questionResult struct {
	NodeID   string           `json:"node_id"`
	Role     discourse.Role   `json:"role"`
	Question string           `json:"question"`
	History  question.History `json:"history"`
}

// Handle processes the generate_question tool call.
func (t *QuestionTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	passage := req.GetString("passage", "")
	if passage == "" {
		return mcp.NewToolResultError("'passage' is required"), nil
	}

	a := t.tutor.AnalyzePassage(passage)
	nodeID := req.GetString("node_id", "")

	var node discourse.Node
	switch {
	case nodeID != "":
		n, ok := discourse.FindNode(a.Nodes, nodeID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("node %q not found in passage", nodeID)), nil
		}
		node = n
	case len(a.KeyNodes) > 0:
		node = a.KeyNodes[0]
	default:
		return mcp.NewToolResultError("passage has no key nodes"), nil
	}

	history := question.History(req.GetStringSlice("history", nil))
	q := t.tutor.GenerateQuestion(node, &history)
	return jsonResult(questionResult{NodeID: node.ID, Role: node.PrimaryRole, Question: q, History: history})
}

// ─── StartSessionTool ───────────────────────────────────────────────────────

// StartSessionTool handles the start_session MCP tool.
type StartSessionTool struct {
	tutor Tutor
}

// NewStartSessionTool creates a StartSessionTool.
func NewStartSessionTool(t Tutor) *StartSessionTool {
	return &StartSessionTool{tutor: t}
}

// Definition returns the MCP tool definition for start_session.
func (t *StartSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("start_session",
		mcp.WithDescription(
			"Start a staged reading session over a passage. Returns the session "+
				"with its stages; answer the current stage with submit_answer.",
		),
		mcp.WithString("passage",
			mcp.Required(),
			mcp.Description("The passage text"),
		),
		mcp.WithString("work_id",
			mcp.Description("Identifier of the work the passage belongs to"),
		),
		mcp.WithString("layout",
			mcp.Description("Stage layout"),
			mcp.Enum(string(session.LayoutLesson), string(session.LayoutChunk)),
		),
	)
}

// Handle processes the start_session tool call.
func (t *StartSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	passage := req.GetString("passage", "")
	if passage == "" {
		return mcp.NewToolResultError("'passage' is required"), nil
	}
	layout, err := session.ParseLayout(req.GetString("layout", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s, err := t.tutor.StartSession(ctx, req.GetString("work_id", ""), passage, layout)
	if err != nil {
		return errorResult("failed to start session", err), nil
	}
	return jsonResult(s)
}

// ─── SubmitAnswerTool ───────────────────────────────────────────────────────

// SubmitAnswerTool handles the submit_answer MCP tool.
type SubmitAnswerTool struct {
	tutor Tutor
}

// NewSubmitAnswerTool creates a SubmitAnswerTool.
func NewSubmitAnswerTool(t Tutor) *SubmitAnswerTool {
	return &SubmitAnswerTool{tutor: t}
}

// Definition returns the MCP tool definition for submit_answer.
func (t *SubmitAnswerTool) Definition() mcp.Tool {
	return mcp.NewTool("submit_answer",
		mcp.WithDescription(
			"Submit the reader's answer to the current stage. Returns the evaluation "+
				"and the next action: ADVANCE, RETRY, ESCALATE or SESSION_END.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier from start_session"),
		),
		mcp.WithString("answer",
			mcp.Required(),
			mcp.Description("The reader's answer"),
		),
		mcp.WithString("stage_id",
			mcp.Description("Stage being answered (defaults to the current stage)"),
		),
		mcp.WithArray("evidence_ids",
			mcp.Description("Evidence sentence ids the reader selected"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the submit_answer tool call.
func (t *SubmitAnswerTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	res, err := t.tutor.SubmitAnswer(ctx, id,
		req.GetString("stage_id", ""),
		req.GetString("answer", ""),
		req.GetStringSlice("evidence_ids", nil),
	)
	if err != nil {
		return errorResult("failed to submit answer", err), nil
	}
	return jsonResult(res)
}

// ─── GetSessionTool ─────────────────────────────────────────────────────────

// GetSessionTool handles the get_session MCP tool.
type GetSessionTool struct {
	tutor Tutor
}

// NewGetSessionTool creates a GetSessionTool.
func NewGetSessionTool(t Tutor) *GetSessionTool {
	return &GetSessionTool{tutor: t}
}

// Definition returns the MCP tool definition for get_session.
func (t *GetSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("get_session",
		mcp.WithDescription("Load a session to resume it, with a summary of its progress."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	)
}

type sessionResult struct {
	Session *session.Session `json:"session"`
	Summary *session.Summary `json:"summary"`
}

// Handle processes the get_session tool call.
func (t *GetSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	s, err := t.tutor.GetSession(ctx, id)
	if err != nil {
		return errorResult("failed to load session", err), nil
	}
	return jsonResult(sessionResult{Session: s, Summary: session.Summarize(s)})
}
