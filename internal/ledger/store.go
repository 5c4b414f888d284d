package ledger

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

// Store is the contract every caller of the ledger depends on.
// All methods are safe for concurrent use.
type Store interface {
	Add(ctx context.Context, d domain.Draft) (domain.Transaction, error)
	Update(ctx context.Context, id string, p domain.Patch) (domain.Transaction, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetAll(ctx context.Context) ([]domain.Transaction, error)
	Query(ctx context.Context, f domain.Filter) ([]domain.Transaction, error)
	ResetWithSeedData(ctx context.Context) (bool, error)
	ForceReset(ctx context.Context) error
}

// Repository is the narrow persistence surface a backend provides.
// Implementations report failures as plain errors; Service wraps them.
type Repository interface {
	Insert(ctx context.Context, tx domain.Transaction) error
	Get(ctx context.Context, id string) (domain.Transaction, bool, error)
	Replace(ctx context.Context, tx domain.Transaction) error
	Remove(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f domain.Filter) ([]domain.Transaction, error)
	ReplaceAll(ctx context.Context, txs []domain.Transaction) error
	Marker(ctx context.Context, key string) (string, error)
	SetMarker(ctx context.Context, key, value string) error
	Close() error
}

// Seeder produces demo drafts for the window ending today.
type Seeder interface {
	Generate(today civil.Date) []domain.Draft
}
