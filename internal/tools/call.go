package tools

import "github.com/dvloznov/ledger-assistant/internal/domain"

// Call is one tool invocation requested by the model.
type Call struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Error codes carried in a failed Result.
const (
	CodeInvalidArguments = "invalid_arguments"
	CodeValidation       = "validation_error"
	CodeNotFound         = "not_found"
	CodeUnknownTool      = "unknown_tool"
	CodeAborted          = "aborted"
)

// ErrorInfo is the model-visible description of a failed call.
type ErrorInfo struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

// Result answers one Call. Exactly one of Output and Error is set.
type Result struct {
	ID     string     `json:"id,omitempty"`
	Name   string     `json:"name"`
	Output any        `json:"output,omitempty"`
	Error  *ErrorInfo `json:"error,omitempty"`
}

// Failed reports whether the call produced an error result.
func (r Result) Failed() bool { return r.Error != nil }

// Payload renders the result as the {"output": ...} / {"error": ...} object
// that function-calling models expect.
func (r Result) Payload() map[string]any {
	if r.Error != nil {
		return map[string]any{"error": r.Error}
	}
	return map[string]any{"output": r.Output}
}

// Aborted builds the result recorded for a call that never ran because the
// turn was cut short.
func Aborted(c Call) Result {
	return Result{
		ID:    c.ID,
		Name:  c.Name,
		Error: &ErrorInfo{Code: CodeAborted, Message: "not executed: the request was aborted"},
	}
}
