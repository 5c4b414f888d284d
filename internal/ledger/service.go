package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/logger"
)

const (
	// ResetMarkerKey is the settings key holding the last reset marker.
	ResetMarkerKey = "last_reset_date"
	// SeedVersion is bumped whenever the demo data shape changes so that
	// existing deployments reseed on their next start.
	SeedVersion = "v2"
)

// Service implements Store on top of a Repository.
type Service struct {
	repo   Repository
	bus    events.Publisher
	seeder Seeder
	now    func() time.Time
	newID  func() string

	resetMu sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for CreatedAt and the reset marker.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides transaction id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService wires a ledger around repo. Mutations are announced on bus.
func NewService(repo Repository, bus events.Publisher, seeder Seeder, opts ...Option) *Service {
	if bus == nil {
		bus = events.Discard{}
	}
	s := &Service{
		repo:   repo,
		bus:    bus,
		seeder: seeder,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates d and persists it as a new transaction.
func (s *Service) Add(ctx context.Context, d domain.Draft) (domain.Transaction, error) {
	d, err := domain.Normalize(d)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := domain.Transaction{
		ID:          s.newID(),
		Date:        d.Date,
		Kind:        d.Kind,
		Category:    d.Category,
		Amount:      d.Amount,
		Description: d.Description,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, tx); err != nil {
		return domain.Transaction{}, domain.Unavailable("Add", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("transaction_id", tx.ID).
		Str("category", tx.Category).
		Float64("amount", tx.Amount).
		Msg("Transaction added")

	s.bus.Publish(events.LedgerChangedEvent{Op: events.OpAdd, ID: tx.ID})
	return tx, nil
}

// Update merges p onto the stored transaction and re-validates the result.
func (s *Service) Update(ctx context.Context, id string, p domain.Patch) (domain.Transaction, error) {
	current, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Transaction{}, domain.Unavailable("Update", err)
	}
	if !ok {
		return domain.Transaction{}, &domain.NotFoundError{ID: id}
	}

	merged, err := domain.Normalize(p.Apply(current.Draft()))
	if err != nil {
		return domain.Transaction{}, err
	}

	updated := current
	updated.Date = merged.Date
	updated.Kind = merged.Kind
	updated.Category = merged.Category
	updated.Amount = merged.Amount
	updated.Description = merged.Description

	if err := s.repo.Replace(ctx, updated); err != nil {
		return domain.Transaction{}, domain.Unavailable("Update", err)
	}

	s.bus.Publish(events.LedgerChangedEvent{Op: events.OpUpdate, ID: id})
	return updated, nil
}

// Delete removes the transaction. It returns false when id does not exist.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.repo.Remove(ctx, id)
	if err != nil {
		return false, domain.Unavailable("Delete", err)
	}
	if removed {
		s.bus.Publish(events.LedgerChangedEvent{Op: events.OpDelete, ID: id})
	}
	return removed, nil
}

// GetAll returns every transaction, newest first.
func (s *Service) GetAll(ctx context.Context) ([]domain.Transaction, error) {
	return s.Query(ctx, domain.Filter{})
}

// Query returns the transactions matching f, newest first.
func (s *Service) Query(ctx context.Context, f domain.Filter) ([]domain.Transaction, error) {
	txs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, domain.Unavailable("Query", err)
	}
	domain.SortTransactions(txs)
	return txs, nil
}

// ResetWithSeedData replaces the ledger with demo data unless it was already
// reset today under the current seed version. It reports whether a reset ran.
func (s *Service) ResetWithSeedData(ctx context.Context) (bool, error) {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()

	marker, err := s.repo.Marker(ctx, ResetMarkerKey)
	if err != nil {
		return false, domain.Unavailable("ResetWithSeedData", err)
	}
	today := civil.DateOf(s.now())
	if marker == resetMarker(today) {
		return false, nil
	}
	if err := s.reset(ctx, today); err != nil {
		return false, err
	}
	return true, nil
}

// ForceReset replaces the ledger with demo data regardless of the marker.
func (s *Service) ForceReset(ctx context.Context) error {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()

	return s.reset(ctx, civil.DateOf(s.now()))
}

func (s *Service) reset(ctx context.Context, today civil.Date) error {
	if s.seeder == nil {
		return errors.New("reset: no seeder configured")
	}

	drafts := s.seeder.Generate(today)
	base := s.now().UTC()
	txs := make([]domain.Transaction, 0, len(drafts))
	for i, d := range drafts {
		d, err := domain.Normalize(d)
		if err != nil {
			return fmt.Errorf("reset: seed entry %d: %w", i, err)
		}
		txs = append(txs, domain.Transaction{
			ID:          s.newID(),
			Date:        d.Date,
			Kind:        d.Kind,
			Category:    d.Category,
			Amount:      d.Amount,
			Description: d.Description,
			CreatedAt:   base.Add(time.Duration(i) * time.Millisecond),
		})
	}

	if err := s.repo.ReplaceAll(ctx, txs); err != nil {
		return domain.Unavailable("Reset", err)
	}
	if err := s.repo.SetMarker(ctx, ResetMarkerKey, resetMarker(today)); err != nil {
		return domain.Unavailable("Reset", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("transactions", len(txs)).
		Str("date", today.String()).
		Msg("Ledger reset with seed data")

	s.bus.Publish(events.LedgerChangedEvent{Op: events.OpReset})
	return nil
}

func resetMarker(today civil.Date) string {
	return today.String() + "-" + SeedVersion
}
