package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/jobs"
)

// MockEnqueuer is a mock implementation of reportEnqueuer.
type MockEnqueuer struct {
	EnqueueFunc func(ctx context.Context, req events.PrintReportRequestedEvent) (*jobs.ExportReportJob, error)
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, req events.PrintReportRequestedEvent) (*jobs.ExportReportJob, error) {
	return m.EnqueueFunc(ctx, req)
}

func TestEventRouterExports(t *testing.T) {
	var got []events.PrintReportRequestedEvent
	enq := &MockEnqueuer{EnqueueFunc: func(_ context.Context, req events.PrintReportRequestedEvent) (*jobs.ExportReportJob, error) {
		got = append(got, req)
		return &jobs.ExportReportJob{JobID: "j1"}, nil
	}}
	r := newEventRouter(enq, false, zerolog.Nop())

	req := events.PrintReportRequestedEvent{ReportType: "monthly", DateStart: "2024-05-01", DateEnd: "2024-05-31"}
	if err := r.Handle(context.Background(), req); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(got) != 1 || got[0] != req {
		t.Errorf("enqueued %+v", got)
	}

	// Without a Notion mirror ledger changes are ignored.
	if err := r.Handle(context.Background(), events.LedgerChangedEvent{Op: events.OpAdd}); err != nil {
		t.Errorf("Handle(ledger-changed) error = %v", err)
	}
}

func TestEventRouterEnqueueFailureRequeues(t *testing.T) {
	enq := &MockEnqueuer{EnqueueFunc: func(context.Context, events.PrintReportRequestedEvent) (*jobs.ExportReportJob, error) {
		return nil, errors.New("queue is closed")
	}}
	r := newEventRouter(enq, false, zerolog.Nop())

	if err := r.Handle(context.Background(), events.PrintReportRequestedEvent{ReportType: "weekly"}); err == nil {
		t.Error("Handle() should return the enqueue error")
	}
}

func TestEventRouterCoalescesSyncRequests(t *testing.T) {
	r := newEventRouter(&MockEnqueuer{}, true, zerolog.Nop())

	for i := 0; i < 5; i++ {
		if err := r.Handle(context.Background(), events.LedgerChangedEvent{Op: events.OpAdd, ID: "x"}); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}
	if n := len(r.syncs); n != 1 {
		t.Errorf("pending sync requests = %d, want 1", n)
	}
	if err := r.Handle(context.Background(), events.TransactionDeletedEvent{ID: "x"}); err != nil {
		t.Errorf("Handle(other) error = %v", err)
	}
}
