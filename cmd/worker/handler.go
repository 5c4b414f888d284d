package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/jobs"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
	"github.com/dvloznov/ledger-assistant/internal/notionsync"
)

// eventRouter dispatches broker events to the worker's jobs.
type eventRouter struct {
	exports reportEnqueuer
	// syncs coalesces Notion sync requests; nil when the mirror is off.
	syncs chan struct{}
	log   zerolog.Logger
}

type reportEnqueuer interface {
	Enqueue(ctx context.Context, req events.PrintReportRequestedEvent) (*jobs.ExportReportJob, error)
}

func newEventRouter(exports reportEnqueuer, notionEnabled bool, log zerolog.Logger) *eventRouter {
	r := &eventRouter{exports: exports, log: log}
	if notionEnabled {
		r.syncs = make(chan struct{}, 1)
	}
	return r
}

// Handle implements the AMQP consumer callback. A returned error requeues
// the message.
func (r *eventRouter) Handle(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case events.PrintReportRequestedEvent:
		job, err := r.exports.Enqueue(ctx, e)
		if err != nil {
			return err
		}
		r.log.Info().Str("job_id", job.JobID).Msg("Queued report export from broker event")
	case events.LedgerChangedEvent:
		r.requestSync()
	default:
		r.log.Debug().Str("event", string(ev.EventName())).Msg("Ignoring event")
	}
	return nil
}

func (r *eventRouter) requestSync() {
	if r.syncs == nil {
		return
	}
	select {
	case r.syncs <- struct{}{}:
	default:
	}
}

// runNotionSync mirrors the ledger after each burst of changes, waiting
// settle for the burst to end.
func (r *eventRouter) runNotionSync(ctx context.Context, syncer *notionsync.Syncer, store ledger.Store, settle time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.syncs:
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(settle):
		}
		// Changes seen during the settle window are covered by this run.
		select {
		case <-r.syncs:
		default:
		}

		stats, err := syncer.Sync(ctx, store, false)
		if err != nil {
			r.log.Error().Err(err).Msg("Notion sync failed")
			continue
		}
		r.log.Info().
			Int("created", stats.Created).
			Int("updated", stats.Updated).
			Int("deleted", stats.Deleted).
			Int("skipped", stats.Skipped).
			Msg("Notion sync completed")
	}
}
