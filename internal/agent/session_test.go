package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/tools"
)

// MockModel implements Model with an overridable function.
type MockModel struct {
	mu           sync.Mutex
	calls        int
	SendTurnFunc func(ctx context.Context, req TurnRequest, call int) (TurnResult, error)
}

func (m *MockModel) SendTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()
	return m.SendTurnFunc(ctx, req, n)
}

func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockExecutor implements ToolExecutor with an overridable function.
type MockExecutor struct {
	mu          sync.Mutex
	executed    []tools.Call
	ExecuteFunc func(ctx context.Context, call tools.Call) (tools.Result, error)
}

func (m *MockExecutor) Execute(ctx context.Context, call tools.Call) (tools.Result, error) {
	m.mu.Lock()
	m.executed = append(m.executed, call)
	m.mu.Unlock()
	if m.ExecuteFunc == nil {
		return tools.Result{ID: call.ID, Name: call.Name, Output: "ok"}, nil
	}
	return m.ExecuteFunc(ctx, call)
}

func queryCall(id string) tools.Call {
	return tools.Call{ID: id, Name: tools.QueryTransactions, Args: map[string]any{}}
}

func testConfig() Config {
	return Config{
		MaxToolRounds: 8,
		TurnTimeout:   5 * time.Second,
		Now:           func() time.Time { return time.Date(2024, 5, 20, 9, 0, 0, 0, time.Local) },
	}
}

func TestSessionExecutesExactlyNToolRounds(t *testing.T) {
	for _, n := range []int{0, 1, 3, 8} {
		model := &MockModel{SendTurnFunc: func(_ context.Context, _ TurnRequest, call int) (TurnResult, error) {
			if call <= n {
				return TurnResult{Calls: []tools.Call{queryCall("q")}}, nil
			}
			return TurnResult{Text: "Here is your summary."}, nil
		}}
		exec := &MockExecutor{}
		s := NewSession("s1", model, exec, testConfig(), zerolog.Nop())

		reply, err := s.SendMessage(context.Background(), "How much did I spend?")
		if err != nil {
			t.Fatalf("n=%d: SendMessage() error = %v", n, err)
		}
		if reply.Outcome != OutcomeCompleted || reply.Text != "Here is your summary." {
			t.Errorf("n=%d: reply = %+v", n, reply)
		}
		if len(exec.executed) != n || reply.Rounds != n {
			t.Errorf("n=%d: executed %d tools over %d rounds", n, len(exec.executed), reply.Rounds)
		}
		if s.State() != StateIdle {
			t.Errorf("n=%d: state = %s after reply", n, s.State())
		}
	}
}

func TestSessionStopsAtRoundLimit(t *testing.T) {
	model := &MockModel{SendTurnFunc: func(context.Context, TurnRequest, int) (TurnResult, error) {
		return TurnResult{Calls: []tools.Call{queryCall("loop")}}, nil
	}}
	exec := &MockExecutor{}
	cfg := testConfig()
	cfg.MaxToolRounds = 3
	s := NewSession("s1", model, exec, cfg, zerolog.Nop())

	reply, err := s.SendMessage(context.Background(), "keep going")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if reply.Outcome != OutcomeIterationLimit {
		t.Errorf("outcome = %s, want iteration_limit", reply.Outcome)
	}
	if len(exec.executed) != 3 {
		t.Errorf("executed %d tool calls, want 3", len(exec.executed))
	}
	if model.Calls() != 4 {
		t.Errorf("model called %d times, want 4", model.Calls())
	}
	if !strings.Contains(reply.Text, "could not complete") {
		t.Errorf("reply text = %q", reply.Text)
	}

	transcript := s.Transcript()
	last := transcript[len(transcript)-1]
	prev := transcript[len(transcript)-2]
	if last.Role != RoleAssistant || prev.Role != RoleTool || prev.Results[0].Error.Code != tools.CodeAborted {
		t.Errorf("transcript tail = %+v, %+v", prev, last)
	}
}

func TestSessionExecutesCallsInOrderWithCorrelation(t *testing.T) {
	model := &MockModel{SendTurnFunc: func(_ context.Context, req TurnRequest, call int) (TurnResult, error) {
		if call == 1 {
			return TurnResult{Calls: []tools.Call{queryCall("a"), queryCall("b"), queryCall("c")}}, nil
		}
		last := req.Transcript[len(req.Transcript)-1]
		if last.Role != RoleTool || len(last.Results) != 3 {
			t.Errorf("model did not receive all results: %+v", last)
		}
		for i, id := range []string{"a", "b", "c"} {
			if last.Results[i].ID != id {
				t.Errorf("result %d id = %s, want %s", i, last.Results[i].ID, id)
			}
		}
		return TurnResult{Text: "done"}, nil
	}}
	exec := &MockExecutor{}
	s := NewSession("s1", model, exec, testConfig(), zerolog.Nop())

	if _, err := s.SendMessage(context.Background(), "query three times"); err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, c := range exec.executed {
		order = append(order, c.ID)
	}
	if strings.Join(order, "") != "abc" {
		t.Errorf("execution order = %v", order)
	}
}

func TestSessionRejectsConcurrentMessage(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	model := &MockModel{SendTurnFunc: func(ctx context.Context, _ TurnRequest, _ int) (TurnResult, error) {
		close(entered)
		<-release
		return TurnResult{Text: "first done"}, nil
	}}
	s := NewSession("s1", model, &MockExecutor{}, testConfig(), zerolog.Nop())

	done := make(chan Reply)
	go func() {
		reply, _ := s.SendMessage(context.Background(), "first")
		done <- reply
	}()
	<-entered

	if s.State() != StateAwaitingModel {
		t.Errorf("state = %s, want awaiting_model", s.State())
	}
	reply, err := s.SendMessage(context.Background(), "second")
	if !errors.Is(err, ErrBusy) || reply.Outcome != OutcomeBusy {
		t.Errorf("concurrent SendMessage() = %+v, %v, want ErrBusy", reply, err)
	}

	close(release)
	if first := <-done; first.Text != "first done" {
		t.Errorf("first reply = %+v", first)
	}
	if model.Calls() != 1 {
		t.Errorf("model called %d times, want 1", model.Calls())
	}
}

func TestSessionStoreUnavailable(t *testing.T) {
	model := &MockModel{SendTurnFunc: func(_ context.Context, _ TurnRequest, call int) (TurnResult, error) {
		if call == 1 {
			return TurnResult{Calls: []tools.Call{queryCall("a"), queryCall("b")}}, nil
		}
		return TurnResult{Text: "recovered"}, nil
	}}
	fail := true
	exec := &MockExecutor{ExecuteFunc: func(_ context.Context, call tools.Call) (tools.Result, error) {
		if fail {
			return tools.Result{}, domain.Unavailable("Query", errors.New("dial tcp: refused"))
		}
		return tools.Result{ID: call.ID, Name: call.Name, Output: "ok"}, nil
	}}
	s := NewSession("s1", model, exec, testConfig(), zerolog.Nop())

	reply, err := s.SendMessage(context.Background(), "這個月花了多少")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if reply.Outcome != OutcomeStoreUnavailable {
		t.Errorf("outcome = %s", reply.Outcome)
	}
	if strings.Contains(reply.Text, "dial tcp") {
		t.Errorf("backend error leaked to user: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "抱歉") {
		t.Errorf("reply should be Traditional Chinese, got %q", reply.Text)
	}

	transcript := s.Transcript()
	if len(transcript) != 4 || transcript[0].Text != "這個月花了多少" {
		t.Fatalf("transcript = %+v", transcript)
	}
	if got := transcript[2].Results; len(got) != 2 || got[0].Error.Code != tools.CodeAborted {
		t.Errorf("tool turn = %+v", got)
	}

	fail = false
	reply, err = s.SendMessage(context.Background(), "try again")
	if err != nil || reply.Text != "recovered" || reply.Outcome != OutcomeCompleted {
		t.Errorf("session not usable after failure: %+v, %v", reply, err)
	}
}

func TestSessionCredentialFailure(t *testing.T) {
	model := &MockModel{SendTurnFunc: func(context.Context, TurnRequest, int) (TurnResult, error) {
		return TurnResult{}, &CredentialError{Err: errors.New("API key expired")}
	}}
	s := NewSession("s1", model, &MockExecutor{}, testConfig(), zerolog.Nop())

	reply, err := s.SendMessage(context.Background(), "hello")
	if !errors.Is(err, ErrCredentials) {
		t.Fatalf("error = %v, want ErrCredentials", err)
	}
	if !reply.NeedsCredentials || reply.Outcome != OutcomeNeedsCredentials {
		t.Errorf("reply = %+v", reply)
	}

	s.SetModel(&MockModel{SendTurnFunc: func(context.Context, TurnRequest, int) (TurnResult, error) {
		return TurnResult{Text: "Hi! What would you like to record?"}, nil
	}})
	reply, err = s.SendMessage(context.Background(), "hello")
	if err != nil || reply.Outcome != OutcomeCompleted {
		t.Errorf("after SetModel: %+v, %v", reply, err)
	}
}

func TestSessionModelUnavailable(t *testing.T) {
	model := &MockModel{SendTurnFunc: func(context.Context, TurnRequest, int) (TurnResult, error) {
		return TurnResult{}, errors.New("connection reset")
	}}
	s := NewSession("s1", model, &MockExecutor{}, testConfig(), zerolog.Nop())

	reply, err := s.SendMessage(context.Background(), "hello")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("error = %v, want ErrModelUnavailable", err)
	}
	if reply.Outcome != OutcomeModelUnavailable || strings.Contains(reply.Text, "connection reset") {
		t.Errorf("reply = %+v", reply)
	}
}

func TestSessionTimeout(t *testing.T) {
	model := &MockModel{SendTurnFunc: func(ctx context.Context, _ TurnRequest, _ int) (TurnResult, error) {
		<-ctx.Done()
		return TurnResult{}, ctx.Err()
	}}
	cfg := testConfig()
	cfg.TurnTimeout = 20 * time.Millisecond
	s := NewSession("s1", model, &MockExecutor{}, cfg, zerolog.Nop())

	reply, err := s.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if reply.Outcome != OutcomeTimedOut {
		t.Errorf("outcome = %s, want timed_out", reply.Outcome)
	}
}

func TestSessionEmptyReplyFallback(t *testing.T) {
	model := &MockModel{SendTurnFunc: func(context.Context, TurnRequest, int) (TurnResult, error) {
		return TurnResult{Text: "  "}, nil
	}}
	s := NewSession("s1", model, &MockExecutor{}, testConfig(), zerolog.Nop())

	reply, _ := s.SendMessage(context.Background(), "刪除最後一筆")
	if reply.Text != "我已處理完成，但沒有文字回應。" {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestSessionSendsSystemInstructionWithToday(t *testing.T) {
	var got TurnRequest
	model := &MockModel{SendTurnFunc: func(_ context.Context, req TurnRequest, _ int) (TurnResult, error) {
		got = req
		return TurnResult{Text: "ok"}, nil
	}}
	s := NewSession("s1", model, &MockExecutor{}, testConfig(), zerolog.Nop())

	if _, err := s.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.System, "TODAY: 2024-05-20") {
		t.Error("system instruction does not carry today's date")
	}
	if len(got.Tools) != 4 {
		t.Errorf("sent %d tool definitions, want 4", len(got.Tools))
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Role != RoleUser {
		t.Errorf("transcript = %+v", got.Transcript)
	}
}

func TestSessionLogsKeywordHints(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []string
		wantNot []string
	}{
		{
			name: "simplified expense",
			text: "这个午餐花了120",
			want: []string{`"hint_kind":"expense"`, `"hint_category":"Food"`, `"simplified_input":true`},
		},
		{
			name:    "english without cue",
			text:    "lunch 12",
			want:    []string{`"language":"en"`, `"hint_category":"Food"`},
			wantNot: []string{"hint_kind", "simplified_input"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			model := &MockModel{SendTurnFunc: func(context.Context, TurnRequest, int) (TurnResult, error) {
				return TurnResult{Text: "ok"}, nil
			}}
			s := NewSession("s1", model, &MockExecutor{}, testConfig(), zerolog.New(&buf))

			if _, err := s.SendMessage(context.Background(), tt.text); err != nil {
				t.Fatal(err)
			}

			out := buf.String()
			if !strings.Contains(out, "User message received") {
				t.Fatalf("no hint line logged: %s", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("log missing %s: %s", w, out)
				}
			}
			for _, w := range tt.wantNot {
				if strings.Contains(out, w) {
					t.Errorf("log unexpectedly has %s: %s", w, out)
				}
			}
		})
	}
}
