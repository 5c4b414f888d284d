// Package export turns report requests into rendered files in an object
// store.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/jobs"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
	"github.com/dvloznov/ledger-assistant/internal/objectstore"
	"github.com/dvloznov/ledger-assistant/internal/report"
)

// Exporter renders report export jobs as CSV files.
type Exporter struct {
	store   ledger.Store
	objects objectstore.Store
	log     zerolog.Logger
}

// NewExporter creates an exporter reading from store and writing to objects.
func NewExporter(store ledger.Store, objects objectstore.Store, log zerolog.Logger) *Exporter {
	return &Exporter{store: store, objects: objects, log: log}
}

// Handle implements jobs.JobHandler.
func (e *Exporter) Handle(ctx context.Context, job jobs.Job) error {
	j, ok := job.(*jobs.ExportReportJob)
	if !ok {
		return fmt.Errorf("Handle: unsupported job type %s", job.GetType())
	}

	period, err := PeriodOf(j.ReportType, j.DateStart, j.DateEnd)
	if err != nil {
		return fmt.Errorf("Handle: %w", err)
	}

	rep, err := report.Generate(ctx, e.store, period)
	if err != nil {
		return fmt.Errorf("Handle: %w", err)
	}

	var buf bytes.Buffer
	if err := report.RenderCSV(&buf, rep); err != nil {
		return fmt.Errorf("Handle: render: %w", err)
	}

	uri, err := e.objects.Put(ctx, ObjectName(j), "text/csv", &buf)
	if err != nil {
		return fmt.Errorf("Handle: store report: %w", err)
	}
	j.Location = uri

	e.log.Info().
		Str("job_id", j.JobID).
		Str("location", uri).
		Int("transactions", len(rep.Transactions)).
		Msg("Report exported")
	return nil
}

// PeriodOf resolves the period of an export request. The requested bounds
// are used as given, swapped when reversed.
func PeriodOf(reportType, start, end string) (report.Period, error) {
	r, err := report.ParseRange(reportType)
	if err != nil {
		return report.Period{}, err
	}
	s, err := civil.ParseDate(start)
	if err != nil {
		return report.Period{}, fmt.Errorf("invalid start date %q", start)
	}
	e, err := civil.ParseDate(end)
	if err != nil {
		return report.Period{}, fmt.Errorf("invalid end date %q", end)
	}
	if e.Before(s) {
		s, e = e, s
	}
	return report.Period{Range: r, Start: s, End: e}, nil
}

// ObjectName is the file name an export job is stored under.
func ObjectName(j *jobs.ExportReportJob) string {
	return fmt.Sprintf("reports/%s_%s_%s_%s.csv", j.ReportType, j.DateStart, j.DateEnd, j.JobID)
}

// Bridge enqueues an export job for every print-report request on the bus.
type Bridge struct {
	publisher jobs.Publisher
	timeout   time.Duration
	log       zerolog.Logger
}

// NewBridge creates a bridge publishing to publisher.
func NewBridge(publisher jobs.Publisher, log zerolog.Logger) *Bridge {
	return &Bridge{publisher: publisher, timeout: 5 * time.Second, log: log}
}

// Attach subscribes the bridge to bus. The returned subscription detaches it.
func (b *Bridge) Attach(bus *events.Bus) *events.Subscription {
	return bus.Subscribe(events.PrintReportRequested, func(ev events.Event) {
		req, ok := ev.(events.PrintReportRequestedEvent)
		if !ok {
			return
		}
		if _, err := b.Enqueue(context.Background(), req); err != nil {
			b.log.Error().Err(err).Str("report_type", req.ReportType).Msg("Failed to enqueue report export")
		}
	})
}

// Enqueue publishes an export job for req and returns it.
func (b *Bridge) Enqueue(ctx context.Context, req events.PrintReportRequestedEvent) (*jobs.ExportReportJob, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	job := &jobs.ExportReportJob{
		ReportType: req.ReportType,
		DateStart:  req.DateStart,
		DateEnd:    req.DateEnd,
	}
	if err := b.publisher.PublishExportReport(ctx, job); err != nil {
		return nil, fmt.Errorf("Enqueue: %w", err)
	}
	b.log.Info().Str("job_id", job.JobID).Str("report_type", job.ReportType).Msg("Report export enqueued")
	return job, nil
}
