package bigquery

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

func TestRowConversion(t *testing.T) {
	tx := domain.Transaction{
		ID:          "t1",
		Date:        civil.Date{Year: 2024, Month: 7, Day: 4},
		Kind:        domain.KindExpense,
		Category:    "Travel",
		Amount:      1234.5,
		Description: "train",
		CreatedAt:   time.Date(2024, 7, 4, 8, 0, 0, 0, time.UTC),
	}

	row, err := toRow(tx)
	if err != nil {
		t.Fatalf("toRow() error = %v", err)
	}
	if row.Amount.FloatString(2) != "1234.50" {
		t.Errorf("amount = %s", row.Amount.FloatString(2))
	}

	back := row.toDomain()
	if back.ID != tx.ID || back.Date != tx.Date || back.Kind != tx.Kind || back.Category != tx.Category ||
		back.Amount != tx.Amount || back.Description != tx.Description || !back.CreatedAt.Equal(tx.CreatedAt) {
		t.Errorf("toDomain() = %+v, want %+v", back, tx)
	}

	load := toLoadRow(tx)
	if load.TransactionDate != "2024-07-04" || !strings.HasPrefix(load.Amount, "1234.5") {
		t.Errorf("toLoadRow() = %+v", load)
	}
	if load.CreatedTS != "2024-07-04 08:00:00+00:00" {
		t.Errorf("created_ts = %s", load.CreatedTS)
	}
}

func TestBuildTransactionsQuery(t *testing.T) {
	ds := Dataset{ProjectID: "p", DatasetID: "d"}
	end := civil.Date{Year: 2024, Month: 1, Day: 31}

	sql, params := buildTransactionsQuery(ds, domain.Filter{DateEnd: &end, Category: "Food"})

	if !strings.Contains(sql, "FROM `p.d.transactions` WHERE transaction_date <= @date_end AND STRPOS(LOWER(category), @category) > 0") {
		t.Errorf("sql = %s", sql)
	}
	if !strings.HasSuffix(sql, "ORDER BY transaction_date DESC, created_ts DESC") {
		t.Errorf("sql missing ordering: %s", sql)
	}
	if len(params) != 2 || params[1].Value != "food" {
		t.Errorf("params = %+v", params)
	}

	all, none := buildTransactionsQuery(ds, domain.Filter{})
	if strings.Contains(all, "WHERE") || len(none) != 0 {
		t.Errorf("empty filter produced %s %v", all, none)
	}
}
