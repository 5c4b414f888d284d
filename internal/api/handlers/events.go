package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/api/middleware"
	"github.com/dvloznov/ledger-assistant/internal/events"
)

// EventsHandler streams bus events to browsers as Server-Sent Events.
type EventsHandler struct {
	bus       *events.Bus
	buffer    int
	keepAlive time.Duration
	log       zerolog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(bus *events.Bus, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{bus: bus, buffer: 32, keepAlive: 25 * time.Second, log: log}
}

// Stream handles GET /api/events
// Events that arrive while the client's buffer is full are dropped.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	queue := make(chan events.Event, h.buffer)
	sub := h.bus.Subscribe(events.All, func(ev events.Event) {
		select {
		case queue <- ev:
		default:
			h.log.Warn().Str("event", string(ev.EventName())).Msg("SSE client too slow, event dropped")
		}
	})
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-queue:
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Error().Err(err).Str("event", string(ev.EventName())).Msg("Failed to encode event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.EventName(), data)
			flusher.Flush()
		}
	}
}
