package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
	"github.com/dvloznov/ledger-assistant/internal/logger"
)

// QueryOutput is returned to the model by queryTransactions.
type QueryOutput struct {
	Count        int                  `json:"count"`
	TotalIncome  float64              `json:"totalIncome"`
	TotalExpense float64              `json:"totalExpense"`
	Net          float64              `json:"net"`
	Transactions []domain.Transaction `json:"transactions"`
}

// StatusOutput acknowledges side-effect-only tools.
type StatusOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Executor dispatches tool calls against the ledger.
type Executor struct {
	store ledger.Store
	bus   events.Publisher
}

// NewExecutor creates an executor. Tool side effects are announced on bus.
func NewExecutor(store ledger.Store, bus events.Publisher) *Executor {
	if bus == nil {
		bus = events.Discard{}
	}
	return &Executor{store: store, bus: bus}
}

// Execute runs one call. Domain failures (bad arguments, validation, unknown
// ids or tools) come back as an error Result for the model to read; the
// returned error is reserved for failures that must abort the turn, such as
// an unavailable store or a cancelled context.
func (e *Executor) Execute(ctx context.Context, call Call) (Result, error) {
	log := logger.FromContext(ctx).With().Str("tool", call.Name).Str("call_id", call.ID).Logger()

	var (
		output any
		err    error
	)
	switch call.Name {
	case AddTransaction:
		output, err = e.addTransaction(ctx, args(call.Args))
	case QueryTransactions:
		output, err = e.queryTransactions(ctx, args(call.Args))
	case DeleteTransaction:
		output, err = e.deleteTransaction(ctx, args(call.Args))
	case PrintReport:
		output, err = e.printReport(args(call.Args))
	default:
		log.Warn().Msg("Model requested unknown tool")
		return Result{
			ID:    call.ID,
			Name:  call.Name,
			Error: &ErrorInfo{Code: CodeUnknownTool, Message: fmt.Sprintf("unknown tool %q", call.Name)},
		}, nil
	}

	if err == nil {
		log.Debug().Msg("Tool executed")
		return Result{ID: call.ID, Name: call.Name, Output: output}, nil
	}

	if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Error().Err(err).Msg("Tool execution aborted")
		return Result{}, fmt.Errorf("Execute %s: %w", call.Name, err)
	}

	info := errorInfo(err)
	log.Info().Str("code", info.Code).Str("reason", info.Message).Msg("Tool call rejected")
	return Result{ID: call.ID, Name: call.Name, Error: info}, nil
}

func errorInfo(err error) *ErrorInfo {
	var (
		argErr *ArgumentError
		valErr *domain.ValidationError
		nfErr  *domain.NotFoundError
	)
	switch {
	case errors.As(err, &argErr):
		return &ErrorInfo{
			Code:    CodeInvalidArguments,
			Message: argErr.Error(),
			Fields:  []domain.FieldError{{Field: argErr.Field, Message: argErr.Message}},
		}
	case errors.As(err, &valErr):
		return &ErrorInfo{Code: CodeValidation, Message: valErr.Error(), Fields: valErr.Fields}
	case errors.As(err, &nfErr):
		return &ErrorInfo{Code: CodeNotFound, Message: "ID not found"}
	}
	return &ErrorInfo{Code: CodeInvalidArguments, Message: err.Error()}
}

func (e *Executor) addTransaction(ctx context.Context, a args) (any, error) {
	date, err := a.requiredDate("date")
	if err != nil {
		return nil, err
	}
	kind, err := a.kind(true)
	if err != nil {
		return nil, err
	}
	category, err := a.requiredString("category")
	if err != nil {
		return nil, err
	}
	amount, err := a.requiredNumber("amount")
	if err != nil {
		return nil, err
	}
	description, err := a.optionalString("description")
	if err != nil {
		return nil, err
	}

	tx, err := e.store.Add(ctx, domain.Draft{
		Date:        date,
		Kind:        kind,
		Category:    category,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	e.bus.Publish(events.TransactionAddedEvent{ID: tx.ID, Date: tx.Date.String()})
	return tx, nil
}

func (e *Executor) queryTransactions(ctx context.Context, a args) (any, error) {
	var (
		f   domain.Filter
		err error
	)
	if f.DateStart, err = a.optionalDate("dateStart"); err != nil {
		return nil, err
	}
	if f.DateEnd, err = a.optionalDate("dateEnd"); err != nil {
		return nil, err
	}
	if f.Kind, err = a.kind(false); err != nil {
		return nil, err
	}
	if f.Category, err = a.optionalString("category"); err != nil {
		return nil, err
	}

	txs, err := e.store.Query(ctx, f)
	if err != nil {
		return nil, err
	}

	out := QueryOutput{Count: len(txs), Transactions: txs}
	for _, tx := range txs {
		if tx.Kind == domain.KindIncome {
			out.TotalIncome += tx.Amount
		} else {
			out.TotalExpense += tx.Amount
		}
	}
	out.Net = out.TotalIncome - out.TotalExpense
	if out.Transactions == nil {
		out.Transactions = []domain.Transaction{}
	}
	return out, nil
}

func (e *Executor) deleteTransaction(ctx context.Context, a args) (any, error) {
	id, err := a.requiredString("id")
	if err != nil {
		return nil, err
	}

	deleted, err := e.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, &domain.NotFoundError{ID: id}
	}

	e.bus.Publish(events.TransactionDeletedEvent{ID: id})
	return StatusOutput{Success: true, Message: "Deleted"}, nil
}

func (e *Executor) printReport(a args) (any, error) {
	reportType, err := a.requiredString("reportType")
	if err != nil {
		return nil, err
	}
	if !contains(reportTypes, reportType) {
		return nil, &ArgumentError{Field: "reportType", Message: fmt.Sprintf("must be one of %v, got %q", reportTypes, reportType)}
	}
	start, err := a.requiredDate("dateStart")
	if err != nil {
		return nil, err
	}
	end, err := a.requiredDate("dateEnd")
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, &ArgumentError{Field: "dateEnd", Message: "must not be before dateStart"}
	}

	e.bus.Publish(events.PrintReportRequestedEvent{
		ReportType: reportType,
		DateStart:  start.String(),
		DateEnd:    end.String(),
	})
	return StatusOutput{Success: true, Message: "Print dialog opened"}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
