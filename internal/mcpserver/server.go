// Package mcpserver exposes the tutor engine as MCP tools over stdio.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// New creates the MCP server with every tutor tool registered.
func New(t Tutor, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"okdok",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	analyze := NewAnalyzeTool(t)
	s.AddTool(analyze.Definition(), analyze.Handle)

	ask := NewQuestionTool(t)
	s.AddTool(ask.Definition(), ask.Handle)

	start := NewStartSessionTool(t)
	s.AddTool(start.Definition(), start.Handle)

	submit := NewSubmitAnswerTool(t)
	s.AddTool(submit.Definition(), submit.Handle)

	get := NewGetSessionTool(t)
	s.AddTool(get.Definition(), get.Handle)

	return s
}

// Serve runs s on stdin and stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `okdok is a Socratic reading tutor.

Use start_session with a passage, then show the reader the current stage's
question and pass each answer to submit_answer. Follow the returned next
action: ADVANCE moves to the next stage, RETRY and ESCALATE repeat the
stage with a hint, SESSION_END finishes. Do not answer for the reader.`
