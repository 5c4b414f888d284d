package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/api/middleware"
	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/jobs"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
	"github.com/dvloznov/ledger-assistant/internal/report"
)

// ExportEnqueuer queues a report export.
type ExportEnqueuer interface {
	Enqueue(ctx context.Context, req events.PrintReportRequestedEvent) (*jobs.ExportReportJob, error)
}

// ReportsHandler serves period reports and ledger maintenance.
type ReportsHandler struct {
	store    ledger.Store
	exporter ExportEnqueuer
	now      func() time.Time
	log      zerolog.Logger
}

// NewReportsHandler creates a new reports handler. exporter may be nil, in
// which case export requests are rejected.
func NewReportsHandler(store ledger.Store, exporter ExportEnqueuer, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{store: store, exporter: exporter, now: time.Now, log: log}
}

// GetReport handles GET /api/reports
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	period, err := h.period(query.Get("range"), query.Get("date"), query.Get("start"), query.Get("end"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := report.Generate(r.Context(), h.store, period)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate report")
		if errors.Is(err, domain.ErrStoreUnavailable) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Ledger is temporarily unavailable")
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	switch query.Get("format") {
	case "", "json":
		middleware.WriteJSON(w, http.StatusOK, rep)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="report_`+rep.Start+`_`+rep.End+`.csv"`)
		if err := report.RenderCSV(w, rep); err != nil {
			h.log.Error().Err(err).Msg("Failed to render CSV report")
		}
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.RenderText(w, rep); err != nil {
			h.log.Error().Err(err).Msg("Failed to render text report")
		}
	default:
		middleware.WriteError(w, http.StatusBadRequest, "format must be json, csv or text")
	}
}

// ExportReport handles POST /api/reports/export
func (h *ReportsHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Report export is not configured")
		return
	}

	var req events.PrintReportRequestedEvent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	period, err := h.period(req.ReportType, req.DateStart, req.DateStart, req.DateEnd)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ReportType = string(period.Range)
	req.DateStart = period.Start.String()
	req.DateEnd = period.End.String()

	job, err := h.exporter.Enqueue(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue report export")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue report export")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// ResetLedger handles POST /api/ledger/reset
// Without force=true the reset only happens once per day.
func (h *ReportsHandler) ResetLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		reset bool
		err   error
	)
	if r.URL.Query().Get("force") == "true" {
		err = h.store.ForceReset(ctx)
		reset = err == nil
	} else {
		reset, err = h.store.ResetWithSeedData(ctx)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to reset ledger")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to reset ledger")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"reset": reset})
}

// period resolves report parameters. ref anchors week/month/year ranges and
// defaults to today.
func (h *ReportsHandler) period(rangeName, ref, start, end string) (report.Period, error) {
	rng, err := report.ParseRange(rangeName)
	if err != nil {
		return report.Period{}, err
	}

	refDate := civil.DateOf(h.now())
	if ref != "" {
		if refDate, err = civil.ParseDate(ref); err != nil {
			return report.Period{}, errors.New("date must be YYYY-MM-DD")
		}
	}

	var startDate, endDate civil.Date
	if rng == report.RangeCustom {
		if startDate, err = civil.ParseDate(start); err != nil {
			return report.Period{}, errors.New("start must be YYYY-MM-DD")
		}
		if endDate, err = civil.ParseDate(end); err != nil {
			return report.Period{}, errors.New("end must be YYYY-MM-DD")
		}
	}

	return report.PeriodFor(rng, refDate, startDate, endDate)
}
