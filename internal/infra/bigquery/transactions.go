package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

const transactionsTable = "transactions"

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	TransactionID   string                 `bigquery:"transaction_id"`   // REQUIRED
	TransactionDate civil.Date             `bigquery:"transaction_date"` // REQUIRED
	Kind            string                 `bigquery:"kind"`             // REQUIRED, income|expense
	Category        string                 `bigquery:"category"`         // REQUIRED
	Amount          *big.Rat               `bigquery:"amount"`           // REQUIRED NUMERIC
	Description     bigquery.NullString    `bigquery:"description"`      // NULLABLE
	CreatedTS       time.Time              `bigquery:"created_ts"`       // REQUIRED
	UpdatedTS       bigquery.NullTimestamp `bigquery:"updated_ts"`       // NULLABLE
}

// toRow converts a domain transaction to its table representation.
func toRow(tx domain.Transaction) (*TransactionRow, error) {
	amount := new(big.Rat)
	if amount.SetFloat64(tx.Amount) == nil {
		return nil, fmt.Errorf("toRow: amount %v is not finite", tx.Amount)
	}
	return &TransactionRow{
		TransactionID:   tx.ID,
		TransactionDate: tx.Date,
		Kind:            string(tx.Kind),
		Category:        tx.Category,
		Amount:          amount,
		Description:     bigquery.NullString{StringVal: tx.Description, Valid: tx.Description != ""},
		CreatedTS:       tx.CreatedAt.UTC(),
	}, nil
}

// toDomain converts a table row back into a domain transaction.
func (r *TransactionRow) toDomain() domain.Transaction {
	var amount float64
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}
	tx := domain.Transaction{
		ID:        r.TransactionID,
		Date:      r.TransactionDate,
		Kind:      domain.Kind(r.Kind),
		Category:  r.Category,
		Amount:    amount,
		CreatedAt: r.CreatedTS,
	}
	if r.Description.Valid {
		tx.Description = r.Description.StringVal
	}
	return tx
}

// loadRow is the newline-delimited JSON shape used by load jobs.
type loadRow struct {
	TransactionID   string `json:"transaction_id"`
	TransactionDate string `json:"transaction_date"`
	Kind            string `json:"kind"`
	Category        string `json:"category"`
	Amount          string `json:"amount"`
	Description     string `json:"description,omitempty"`
	CreatedTS       string `json:"created_ts"`
}

const loadTimestampLayout = "2006-01-02 15:04:05.999999-07:00"

func toLoadRow(tx domain.Transaction) loadRow {
	return loadRow{
		TransactionID:   tx.ID,
		TransactionDate: tx.Date.String(),
		Kind:            string(tx.Kind),
		Category:        tx.Category,
		Amount:          big.NewRat(0, 1).SetFloat64(tx.Amount).FloatString(9),
		Description:     tx.Description,
		CreatedTS:       tx.CreatedAt.UTC().Format(loadTimestampLayout),
	}
}
