// Package oracle abstracts the external reasoning service. The orchestrator
// never models the oracle's reasoning; it only sends prompts plus an optional
// tool catalogue and receives text or structured tool-call requests back.
package oracle

import "context"

// Message is one prompt turn. Role is "system", "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// ToolDef describes one callable tool in the catalogue. Parameters is a JSON
// schema object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is a structured request from the oracle to invoke a named tool.
// Arguments is the raw JSON argument object as emitted by the oracle.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Request is one completion call.
type Request struct {
	System      string
	Messages    []Message
	Tools       []ToolDef
	MaxTokens   int64
	Temperature float64
}

// Result is the oracle's response: free text, tool-call requests, or both.
type Result struct {
	Text      string
	ToolCalls []ToolCall
}

// Empty reports whether the oracle produced neither text nor tool calls.
func (r Result) Empty() bool {
	return r.Text == "" && len(r.ToolCalls) == 0
}

// Completer is the oracle interface consumed by the orchestrator.
type Completer interface {
	Complete(ctx context.Context, req Request) (Result, error)
}
