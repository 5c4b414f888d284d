package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
)

// Repository is the remote relational ledger backend. It holds one shared
// BigQuery client for all operations.
type Repository struct {
	client *bigquery.Client
	ds     Dataset
}

// NewRepository creates a client for ds.ProjectID.
func NewRepository(ctx context.Context, ds Dataset) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, ds.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, ds: ds}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client exposes the shared client for migrations.
func (r *Repository) Client() *bigquery.Client { return r.client }

func (r *Repository) Insert(ctx context.Context, tx domain.Transaction) error {
	return InsertTransactionWithClient(ctx, r.client, r.ds, tx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Transaction, bool, error) {
	row, err := GetTransactionWithClient(ctx, r.client, r.ds, id)
	if err != nil || row == nil {
		return domain.Transaction{}, false, err
	}
	return row.toDomain(), true, nil
}

func (r *Repository) Replace(ctx context.Context, tx domain.Transaction) error {
	n, err := UpdateTransactionWithClient(ctx, r.client, r.ds, tx)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("Replace: transaction %s does not exist", tx.ID)
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, id string) (bool, error) {
	n, err := DeleteTransactionWithClient(ctx, r.client, r.ds, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) List(ctx context.Context, f domain.Filter) ([]domain.Transaction, error) {
	rows, err := QueryTransactionsWithClient(ctx, r.client, r.ds, f)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (r *Repository) ReplaceAll(ctx context.Context, txs []domain.Transaction) error {
	return ReplaceAllTransactionsWithClient(ctx, r.client, r.ds, txs)
}

func (r *Repository) Marker(ctx context.Context, key string) (string, error) {
	return GetSettingWithClient(ctx, r.client, r.ds, key)
}

func (r *Repository) SetMarker(ctx context.Context, key, value string) error {
	return SetSettingWithClient(ctx, r.client, r.ds, key, value)
}

var _ ledger.Repository = (*Repository)(nil)
