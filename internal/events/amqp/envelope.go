// Package amqp forwards ledger events to RabbitMQ and consumes them back.
package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-assistant/internal/events"
)

// Envelope is the wire form of a bus event.
type Envelope struct {
	Name      events.Name     `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Encode wraps ev in an envelope and marshals it.
func Encode(ev events.Event, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", ev.EventName(), err)
	}
	return json.Marshal(Envelope{Name: ev.EventName(), Payload: payload, Timestamp: now})
}

// Decode parses an envelope back into its typed event.
func Decode(data []byte) (events.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	var (
		ev  events.Event
		err error
	)
	switch env.Name {
	case events.LedgerChanged:
		var e events.LedgerChangedEvent
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case events.TransactionAdded:
		var e events.TransactionAddedEvent
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case events.TransactionDeleted:
		var e events.TransactionDeletedEvent
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case events.PrintReportRequested:
		var e events.PrintReportRequestedEvent
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unknown event %q", env.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", env.Name, err)
	}
	return ev, nil
}
