package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/dvloznov/ledger-assistant/internal/policy"
	"github.com/dvloznov/ledger-assistant/internal/tools"
)

const (
	DefaultMaxToolRounds = 8
	DefaultTurnTimeout   = 60 * time.Second
)

// State is the orchestration state of a session.
type State int

const (
	StateIdle State = iota
	StateAwaitingModel
	StateExecutingTools
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTools:
		return "executing_tools"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome summarizes how a message was handled.
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeIterationLimit   Outcome = "iteration_limit"
	OutcomeStoreUnavailable Outcome = "store_unavailable"
	OutcomeTimedOut         Outcome = "timed_out"
	OutcomeModelUnavailable Outcome = "model_unavailable"
	OutcomeNeedsCredentials Outcome = "needs_credentials"
	OutcomeBusy             Outcome = "busy"
)

// Reply is what the user sees for one message.
type Reply struct {
	Text             string
	Outcome          Outcome
	NeedsCredentials bool
	// ToolResults lists every tool result produced while handling the message.
	ToolResults []tools.Result
	// Rounds counts executed tool round-trips.
	Rounds int
}

// Config tunes a session.
type Config struct {
	MaxToolRounds int
	TurnTimeout   time.Duration
	Now           func() time.Time
}

func (c Config) withDefaults() Config {
	if c.MaxToolRounds <= 0 {
		c.MaxToolRounds = DefaultMaxToolRounds
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = DefaultTurnTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Session is one conversation with the assistant. It handles one message at
// a time; a second concurrent SendMessage fails fast with ErrBusy.
type Session struct {
	id     string
	exec   ToolExecutor
	cfg    Config
	log    zerolog.Logger
	today  civil.Date
	system string
	defs   []tools.Definition

	busy atomic.Bool

	mu         sync.Mutex
	model      Model
	state      State
	transcript []Message
	lastActive time.Time
}

// NewSession starts a conversation. Today's date is fixed at creation and
// embedded in the system instruction.
func NewSession(id string, model Model, exec ToolExecutor, cfg Config, log zerolog.Logger) *Session {
	cfg = cfg.withDefaults()
	now := cfg.Now()
	today := civil.DateOf(now)
	return &Session{
		id:         id,
		exec:       exec,
		cfg:        cfg,
		log:        log.With().Str("session_id", id).Logger(),
		today:      today,
		system:     policy.SystemInstruction(today),
		defs:       tools.Definitions(),
		model:      model,
		lastActive: now,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Today returns the date the session treats as "today".
func (s *Session) Today() civil.Date { return s.today }

// State returns the current orchestration state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// SetModel swaps the model, e.g. after the user supplied a new API key.
func (s *Session) SetModel(m Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
}

// LastActive reports when the session last received a message.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SendMessage runs the model/tool loop for one user message and returns the
// final reply. Handled failures (store outage, iteration limit, timeout) come
// back as a Reply with a nil error; ErrBusy, credential and model failures
// are also returned as errors so callers can react.
func (s *Session) SendMessage(ctx context.Context, text string) (Reply, error) {
	lang := policy.ResponseLanguage(text)

	if !s.busy.CompareAndSwap(false, true) {
		return Reply{Text: policy.Message(lang, policy.MsgBusy), Outcome: OutcomeBusy}, ErrBusy
	}
	defer s.busy.Store(false)
	defer s.setState(StateIdle)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TurnTimeout)
	defer cancel()

	s.mu.Lock()
	s.lastActive = s.cfg.Now()
	s.mu.Unlock()

	s.append(Message{Role: RoleUser, Text: text})
	s.logHints(lang, text)

	var executed []tools.Result
	for round := 0; ; round++ {
		s.setState(StateAwaitingModel)

		res, err := s.currentModel().SendTurn(ctx, TurnRequest{
			System:     s.system,
			Tools:      s.defs,
			Transcript: s.Transcript(),
		})
		if err != nil {
			return s.modelFailure(ctx, lang, err, executed, round)
		}

		if len(res.Calls) == 0 {
			reply := strings.TrimSpace(res.Text)
			if reply == "" {
				reply = policy.Message(lang, policy.MsgEmptyReply)
			}
			s.append(Message{Role: RoleAssistant, Text: reply, Native: res.Native})
			return Reply{Text: reply, Outcome: OutcomeCompleted, ToolResults: executed, Rounds: round}, nil
		}

		s.append(Message{Role: RoleAssistant, Text: res.Text, Calls: res.Calls, Native: res.Native})

		if round >= s.cfg.MaxToolRounds {
			s.log.Warn().Int("rounds", round).Msg("Tool round limit reached")
			s.append(abortedTurn(res.Calls, nil))
			return s.finish(lang, policy.MsgIterationLimit, OutcomeIterationLimit, executed, round), nil
		}

		s.setState(StateExecutingTools)
		results, err := s.runTools(ctx, res.Calls)
		executed = append(executed, results...)
		if err != nil {
			s.append(abortedTurn(res.Calls, results))
			if ctx.Err() != nil {
				s.log.Warn().Err(err).Msg("Turn timed out during tool execution")
				return s.finish(lang, policy.MsgTimedOut, OutcomeTimedOut, executed, round), nil
			}
			s.log.Error().Err(err).Msg("Tool execution failed")
			return s.finish(lang, policy.MsgStoreUnavailable, OutcomeStoreUnavailable, executed, round), nil
		}
		s.append(Message{Role: RoleTool, Results: results})
	}
}

// logHints records what the keyword table suggests for text so the model's
// tool calls can be compared against it when debugging.
func (s *Session) logHints(lang language.Tag, text string) {
	ev := s.log.Debug().Str("language", lang.String())
	if kind, ok := policy.InferKind(text); ok {
		ev = ev.Str("hint_kind", string(kind))
	}
	if rule, ok := policy.InferCategory(text); ok {
		ev = ev.Str("hint_category", rule.Category)
	}
	if policy.IsSimplified(text) {
		ev = ev.Bool("simplified_input", true)
	}
	ev.Msg("User message received")
}

// runTools executes calls in order, stopping at the first fatal error.
func (s *Session) runTools(ctx context.Context, calls []tools.Call) ([]tools.Result, error) {
	results := make([]tools.Result, 0, len(calls))
	for _, call := range calls {
		res, err := s.exec.Execute(ctx, call)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// abortedTurn completes a partially executed tool turn so the transcript
// keeps one result per call.
func abortedTurn(calls []tools.Call, done []tools.Result) Message {
	results := make([]tools.Result, 0, len(calls))
	results = append(results, done...)
	for _, call := range calls[len(done):] {
		results = append(results, tools.Aborted(call))
	}
	return Message{Role: RoleTool, Results: results}
}

func (s *Session) modelFailure(ctx context.Context, lang language.Tag, err error, executed []tools.Result, round int) (Reply, error) {
	switch {
	case errors.Is(err, ErrCredentials):
		s.log.Warn().Err(err).Msg("Model rejected credentials")
		reply := s.finish(lang, policy.MsgNeedsCredentials, OutcomeNeedsCredentials, executed, round)
		reply.NeedsCredentials = true
		return reply, err
	case ctx.Err() != nil:
		s.log.Warn().Err(err).Msg("Turn timed out waiting for model")
		return s.finish(lang, policy.MsgTimedOut, OutcomeTimedOut, executed, round), nil
	default:
		s.log.Error().Err(err).Msg("Model call failed")
		reply := s.finish(lang, policy.MsgModelUnavailable, OutcomeModelUnavailable, executed, round)
		if !errors.Is(err, ErrModelUnavailable) {
			err = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return reply, err
	}
}

// finish records a canned assistant reply so the transcript stays well formed.
func (s *Session) finish(lang language.Tag, key policy.MessageKey, outcome Outcome, executed []tools.Result, round int) Reply {
	text := policy.Message(lang, key)
	s.append(Message{Role: RoleAssistant, Text: text})
	return Reply{Text: text, Outcome: outcome, ToolResults: executed, Rounds: round}
}

func (s *Session) append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, m)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) currentModel() Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}
