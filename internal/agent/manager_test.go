package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func staticModel(text string) *MockModel {
	return &MockModel{SendTurnFunc: func(context.Context, TurnRequest, int) (TurnResult, error) {
		return TurnResult{Text: text}, nil
	}}
}

func TestManagerLifecycle(t *testing.T) {
	var keys []string
	factory := func(_ context.Context, apiKey string) (Model, error) {
		keys = append(keys, apiKey)
		if apiKey == "" {
			return staticModel("default key"), nil
		}
		return staticModel("key " + apiKey), nil
	}
	m := NewManager(factory, &MockExecutor{}, testConfig(), zerolog.Nop())
	ctx := context.Background()

	s, err := m.GetOrCreate(ctx, "")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if s.ID() == "" || m.Len() != 1 {
		t.Fatalf("session id %q, %d sessions", s.ID(), m.Len())
	}

	same, err := m.GetOrCreate(ctx, s.ID())
	if err != nil || same != s {
		t.Errorf("GetOrCreate(existing) = %v, %v", same, err)
	}
	if _, err := m.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrSessionNotFound", err)
	}

	if err := m.UpdateCredentials(ctx, s.ID(), "abc"); err != nil {
		t.Fatalf("UpdateCredentials() error = %v", err)
	}
	reply, err := s.SendMessage(ctx, "hello")
	if err != nil || reply.Text != "key abc" {
		t.Errorf("reply after new key = %q, %v", reply.Text, err)
	}
	if len(keys) != 2 || keys[0] != "" || keys[1] != "abc" {
		t.Errorf("factory keys = %q", keys)
	}

	if !m.End(s.ID()) {
		t.Error("End() = false for live session")
	}
	if m.End(s.ID()) {
		t.Error("End() = true for ended session")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after End", m.Len())
	}
}

func TestManagerFactoryFailure(t *testing.T) {
	factory := func(context.Context, string) (Model, error) {
		return nil, &CredentialError{Err: errors.New("no API key configured")}
	}
	m := NewManager(factory, &MockExecutor{}, testConfig(), zerolog.Nop())

	if _, err := m.Create(context.Background()); !errors.Is(err, ErrCredentials) {
		t.Errorf("Create() error = %v, want ErrCredentials", err)
	}
	if err := m.UpdateCredentials(context.Background(), "missing", "k"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("UpdateCredentials() error = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerSweep(t *testing.T) {
	factory := func(context.Context, string) (Model, error) { return staticModel("ok"), nil }
	cfg := testConfig()
	m := NewManager(factory, &MockExecutor{}, cfg, zerolog.Nop())

	if _, err := m.Create(context.Background()); err != nil {
		t.Fatal(err)
	}
	created := cfg.Now()

	if n := m.Sweep(created.Add(10*time.Minute), time.Hour); n != 0 {
		t.Errorf("Sweep() removed %d fresh sessions", n)
	}
	if n := m.Sweep(created.Add(2*time.Hour), time.Hour); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after sweep", m.Len())
	}
}
