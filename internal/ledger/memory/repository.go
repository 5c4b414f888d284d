package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
)

// Repository keeps the ledger in process memory.
// Data is lost on restart; use the sqlite or bigquery backend for persistence.
type Repository struct {
	mu       sync.RWMutex
	txs      map[string]domain.Transaction
	settings map[string]string
}

// NewRepository creates an empty in-memory ledger.
func NewRepository() *Repository {
	return &Repository{
		txs:      make(map[string]domain.Transaction),
		settings: make(map[string]string),
	}
}

func (r *Repository) Insert(ctx context.Context, tx domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.txs[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	r.txs[tx.ID] = tx
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Transaction, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.txs[id]
	return tx, ok, nil
}

func (r *Repository) Replace(ctx context.Context, tx domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.txs[tx.ID]; !exists {
		return fmt.Errorf("transaction %s does not exist", tx.ID)
	}
	r.txs[tx.ID] = tx
	return nil
}

func (r *Repository) Remove(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.txs[id]; !exists {
		return false, nil
	}
	delete(r.txs, id)
	return true, nil
}

func (r *Repository) List(ctx context.Context, f domain.Filter) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Transaction, 0, len(r.txs))
	for _, tx := range r.txs {
		if f.Matches(tx) {
			result = append(result, tx)
		}
	}
	domain.SortTransactions(result)
	return result, nil
}

func (r *Repository) ReplaceAll(ctx context.Context, txs []domain.Transaction) error {
	next := make(map[string]domain.Transaction, len(txs))
	for _, tx := range txs {
		next[tx.ID] = tx
	}

	r.mu.Lock()
	r.txs = next
	r.mu.Unlock()
	return nil
}

func (r *Repository) Marker(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings[key], nil
}

func (r *Repository) SetMarker(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[key] = value
	return nil
}

// Close is a no-op.
func (r *Repository) Close() error { return nil }

var _ ledger.Repository = (*Repository)(nil)
