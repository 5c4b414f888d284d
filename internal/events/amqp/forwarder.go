package amqp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/events"
)

// EventPublisher sends one event to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Forwarder copies every bus event to a broker. Delivery happens on a
// buffered channel so bus publishers never wait on the network.
type Forwarder struct {
	pub     EventPublisher
	log     zerolog.Logger
	pending chan events.Event
	retries uint64
}

// NewForwarder creates a forwarder buffering up to buffer events.
func NewForwarder(pub EventPublisher, buffer int, log zerolog.Logger) *Forwarder {
	return &Forwarder{pub: pub, log: log, pending: make(chan events.Event, buffer), retries: 3}
}

// Attach subscribes the forwarder to every event on bus.
func (f *Forwarder) Attach(bus *events.Bus) *events.Subscription {
	return bus.Subscribe(events.All, func(ev events.Event) {
		select {
		case f.pending <- ev:
		default:
			f.log.Warn().Str("event", string(ev.EventName())).Msg("Forward buffer full, dropping event")
		}
	})
}

// Run publishes buffered events until ctx is done. Connection errors are
// retried with exponential backoff.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-f.pending:
			f.forward(ctx, ev)
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, ev events.Event) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second

	op := func() error {
		err := f.pub.Publish(ctx, ev)
		if err != nil && !IsConnectionError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, f.retries), ctx)); err != nil {
		f.log.Error().Err(err).Str("event", string(ev.EventName())).Msg("Failed to forward event")
	}
}

// IsConnectionError reports whether err looks like a broken broker
// connection worth retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
