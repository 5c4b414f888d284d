package agent

import (
	"context"

	"github.com/dvloznov/ledger-assistant/internal/tools"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a session transcript.
type Message struct {
	Role Role
	Text string
	// Calls are the tool calls an assistant message asked for.
	Calls []tools.Call
	// Results answer the calls of the preceding assistant message, in order.
	Results []tools.Result
	// Native is model-specific state returned with an assistant message.
	// Adapters replay it verbatim and everything else ignores it.
	Native any
}

// TurnRequest is everything a model needs for one round-trip.
type TurnRequest struct {
	System     string
	Tools      []tools.Definition
	Transcript []Message
}

// TurnResult is the model's answer: text, tool calls, or both.
type TurnResult struct {
	Text   string
	Calls  []tools.Call
	Native any
}

// Model sends one turn to a language model.
type Model interface {
	SendTurn(ctx context.Context, req TurnRequest) (TurnResult, error)
}

// ToolExecutor runs tool calls. A non-nil error aborts the turn.
type ToolExecutor interface {
	Execute(ctx context.Context, call tools.Call) (tools.Result, error)
}
