package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/agent"
	"github.com/dvloznov/ledger-assistant/internal/config"
	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/export"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
	"github.com/dvloznov/ledger-assistant/internal/logger"
	"github.com/dvloznov/ledger-assistant/internal/report"
	"github.com/dvloznov/ledger-assistant/internal/tools"
)

func runChat(cfg *config.Config, log zerolog.Logger) {
	// Keep the console for the conversation.
	if log.GetLevel() < zerolog.WarnLevel {
		log = log.Level(zerolog.WarnLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	res, bus := openLedger(ctx, cfg, log)
	defer res.Cleanup()

	sessions := agent.NewManager(
		agent.GeminiFactory(cfg.GeminiAPIKey, cfg.GeminiModel, log),
		tools.NewExecutor(res.Ledger, bus),
		agent.Config{MaxToolRounds: cfg.MaxToolRounds, TurnTimeout: cfg.TurnTimeout},
		log,
	)

	c := &chatConsole{
		sessions: sessions,
		in:       bufio.NewScanner(os.Stdin),
		out:      os.Stdout,
	}
	sub := bus.Subscribe(events.All, func(ev events.Event) { c.announce(ctx, res.Ledger, ev) })
	defer sub.Unsubscribe()

	if err := c.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Chat ended with error")
	}
}

// chatConsole is a line-oriented REPL around one assistant session.
type chatConsole struct {
	sessions *agent.Manager
	session  *agent.Session
	in       *bufio.Scanner
	out      io.Writer
}

func (c *chatConsole) run(ctx context.Context) error {
	fmt.Fprintln(c.out, "Ledger assistant. Type a message, or /quit to leave.")

	if err := c.open(ctx); err != nil {
		return err
	}

	for {
		fmt.Fprint(c.out, "> ")
		line, ok := c.readLine()
		if !ok {
			return nil
		}
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/key":
			if err := c.promptKey(ctx); err != nil {
				return err
			}
			continue
		}

		reply, err := c.session.SendMessage(ctx, line)
		fmt.Fprintln(c.out, reply.Text)
		if reply.NeedsCredentials || errors.Is(err, agent.ErrCredentials) {
			if err := c.promptKey(ctx); err != nil {
				return err
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// open starts the session, asking for a key when none is configured.
func (c *chatConsole) open(ctx context.Context) error {
	s, err := c.sessions.Create(ctx)
	if err == nil {
		c.session = s
		return nil
	}
	if !errors.Is(err, agent.ErrCredentials) {
		return err
	}
	fmt.Fprintln(c.out, "No Gemini API key is configured.")
	return c.promptKey(ctx)
}

func (c *chatConsole) promptKey(ctx context.Context) error {
	for {
		fmt.Fprint(c.out, "Gemini API key: ")
		key, ok := c.readLine()
		if !ok {
			return io.EOF
		}
		if key == "" {
			continue
		}

		var err error
		if c.session == nil {
			var s *agent.Session
			if s, err = c.sessions.CreateWithKey(ctx, key); err == nil {
				c.session = s
			}
		} else {
			err = c.sessions.UpdateCredentials(ctx, c.session.ID(), key)
		}
		if err == nil {
			fmt.Fprintln(c.out, "Key saved for this session.")
			return nil
		}
		fmt.Fprintf(c.out, "That key did not work: %v\n", err)
	}
}

func (c *chatConsole) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// announce echoes tool side effects the way the web views react to them.
func (c *chatConsole) announce(ctx context.Context, store ledger.Store, ev events.Event) {
	switch e := ev.(type) {
	case events.TransactionAddedEvent:
		fmt.Fprintf(c.out, "  [saved %s on %s]\n", e.ID, e.Date)
	case events.TransactionDeletedEvent:
		fmt.Fprintf(c.out, "  [deleted %s]\n", e.ID)
	case events.PrintReportRequestedEvent:
		period, err := export.PeriodOf(e.ReportType, e.DateStart, e.DateEnd)
		if err != nil {
			fmt.Fprintf(c.out, "  [cannot print report: %v]\n", err)
			return
		}
		rep, err := report.Generate(ctx, store, period)
		if err != nil {
			fmt.Fprintf(c.out, "  [cannot print report: %v]\n", err)
			return
		}
		report.RenderText(c.out, rep)
	}
}
