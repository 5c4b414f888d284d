package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
)

// createdAtLayout is fixed width so that text ordering matches time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// Repository is the local persistent ledger backend.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) the database at dbPath and migrates it.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("NewRepository: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: open sqlite database: %w", err)
	}
	// one writer at a time; avoids SQLITE_BUSY under concurrent handlers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewRepository: ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewRepository: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Insert(ctx context.Context, tx domain.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, kind, category, amount, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Date.String(), string(tx.Kind), tx.Category, tx.Amount, tx.Description,
		tx.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Transaction, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, date, kind, category, amount, description, created_at
		 FROM transactions WHERE id = ?`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, false, nil
	}
	if err != nil {
		return domain.Transaction{}, false, fmt.Errorf("Get: %w", err)
	}
	return tx, true, nil
}

func (r *Repository) Replace(ctx context.Context, tx domain.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET date = ?, kind = ?, category = ?, amount = ?, description = ?
		 WHERE id = ?`,
		tx.Date.String(), string(tx.Kind), tx.Category, tx.Amount, tx.Description, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("Replace: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Replace: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Replace: transaction %s does not exist", tx.ID)
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("Remove: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Remove: rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) List(ctx context.Context, f domain.Filter) ([]domain.Transaction, error) {
	query, args := buildListQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: iterate: %w", err)
	}
	return result, nil
}

func buildListQuery(f domain.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.DateStart != nil {
		where = append(where, "date >= ?")
		args = append(args, f.DateStart.String())
	}
	if f.DateEnd != nil {
		where = append(where, "date <= ?")
		args = append(args, f.DateEnd.String())
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		// Literal substring, so % and _ in the input match themselves.
		where = append(where, "INSTR(LOWER(category), ?) > 0")
		args = append(args, strings.ToLower(f.Category))
	}

	query := `SELECT id, date, kind, category, amount, description, created_at FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"
	return query, args
}

// ReplaceAll swaps the whole ledger in a single SQL transaction.
func (r *Repository) ReplaceAll(ctx context.Context, txs []domain.Transaction) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReplaceAll: begin: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("ReplaceAll: clear: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx,
		`INSERT INTO transactions (id, date, kind, category, amount, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("ReplaceAll: prepare: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx,
			tx.ID, tx.Date.String(), string(tx.Kind), tx.Category, tx.Amount, tx.Description,
			tx.CreatedAt.UTC().Format(createdAtLayout),
		); err != nil {
			return fmt.Errorf("ReplaceAll: insert %s: %w", tx.ID, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("ReplaceAll: commit: %w", err)
	}
	return nil
}

func (r *Repository) Marker(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("Marker: %w", err)
	}
	return value, nil
}

func (r *Repository) SetMarker(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("SetMarker: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (domain.Transaction, error) {
	var (
		tx        domain.Transaction
		date      string
		kind      string
		createdAt string
	)
	if err := s.Scan(&tx.ID, &date, &kind, &tx.Category, &tx.Amount, &tx.Description, &createdAt); err != nil {
		return domain.Transaction{}, err
	}

	d, err := civil.ParseDate(date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	ts, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	tx.Date = d
	tx.Kind = domain.Kind(kind)
	tx.CreatedAt = ts
	return tx, nil
}

var _ ledger.Repository = (*Repository)(nil)
