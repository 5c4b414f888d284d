package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPeriodFor(t *testing.T) {
	tests := []struct {
		name       string
		r          Range
		ref        string
		start, end string
		wantStart  string
		wantEnd    string
		wantLabel  string
	}{
		{name: "week from wednesday", r: RangeWeek, ref: "2024-05-22", wantStart: "2024-05-20", wantEnd: "2024-05-26", wantLabel: "May 20 - May 26, 2024"},
		{name: "week from sunday", r: RangeWeek, ref: "2024-05-26", wantStart: "2024-05-20", wantEnd: "2024-05-26", wantLabel: "May 20 - May 26, 2024"},
		{name: "week from monday", r: RangeWeek, ref: "2024-05-20", wantStart: "2024-05-20", wantEnd: "2024-05-26", wantLabel: "May 20 - May 26, 2024"},
		{name: "leap february", r: RangeMonth, ref: "2024-02-10", wantStart: "2024-02-01", wantEnd: "2024-02-29", wantLabel: "February 2024"},
		{name: "december", r: RangeMonth, ref: "2023-12-31", wantStart: "2023-12-01", wantEnd: "2023-12-31", wantLabel: "December 2023"},
		{name: "year", r: RangeYear, ref: "2024-07-04", wantStart: "2024-01-01", wantEnd: "2024-12-31", wantLabel: "2024"},
		{name: "custom", r: RangeCustom, ref: "2024-07-04", start: "2024-03-01", end: "2024-03-15", wantStart: "2024-03-01", wantEnd: "2024-03-15", wantLabel: "Mar 1, 2024 - Mar 15, 2024"},
		{name: "custom reversed", r: RangeCustom, ref: "2024-07-04", start: "2024-03-15", end: "2024-03-01", wantStart: "2024-03-01", wantEnd: "2024-03-15", wantLabel: "Mar 1, 2024 - Mar 15, 2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var start, end civil.Date
			if tt.start != "" {
				start, end = date(tt.start), date(tt.end)
			}
			p, err := PeriodFor(tt.r, date(tt.ref), start, end)
			if err != nil {
				t.Fatalf("PeriodFor() error = %v", err)
			}
			if p.Start.String() != tt.wantStart || p.End.String() != tt.wantEnd {
				t.Errorf("PeriodFor() = %s..%s, want %s..%s", p.Start, p.End, tt.wantStart, tt.wantEnd)
			}
			if p.Label() != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", p.Label(), tt.wantLabel)
			}
		})
	}
}

func TestPeriodForRejectsIncompleteCustom(t *testing.T) {
	if _, err := PeriodFor(RangeCustom, date("2024-01-01"), civil.Date{}, date("2024-01-02")); err == nil {
		t.Error("expected an error for a custom period without a start")
	}
	if _, err := PeriodFor("fortnight", date("2024-01-01"), civil.Date{}, civil.Date{}); err == nil {
		t.Error("expected an error for an unknown range")
	}
}

func TestParseRange(t *testing.T) {
	tests := map[string]Range{
		"week": RangeWeek, "weekly": RangeWeek,
		"": RangeMonth, "monthly": RangeMonth,
		"yearly": RangeYear, "custom": RangeCustom,
	}
	for in, want := range tests {
		if got, err := ParseRange(in); err != nil || got != want {
			t.Errorf("ParseRange(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseRange("daily"); err == nil {
		t.Error("ParseRange(daily) should fail")
	}
}

func sampleTransactions() []domain.Transaction {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Transaction{
		{ID: "1", Date: date("2024-05-01"), Kind: domain.KindIncome, Category: "Salary", Amount: 3000, CreatedAt: created},
		{ID: "2", Date: date("2024-05-02"), Kind: domain.KindExpense, Category: "Food", Amount: 12.5, Description: "lunch", CreatedAt: created},
		{ID: "3", Date: date("2024-05-03"), Kind: domain.KindExpense, Category: "Food", Amount: 30, Description: "dinner, with friends", CreatedAt: created},
		{ID: "4", Date: date("2024-05-03"), Kind: domain.KindExpense, Category: "Rent", Amount: 1200, CreatedAt: created},
		{ID: "5", Date: date("2024-06-01"), Kind: domain.KindExpense, Category: "Rent", Amount: 1200, CreatedAt: created},
	}
}

func TestBuild(t *testing.T) {
	p, _ := PeriodFor(RangeMonth, date("2024-05-15"), civil.Date{}, civil.Date{})
	r := Build(p, sampleTransactions())

	if r.TotalIncome != 3000 || r.TotalExpense != 1242.5 || r.Net != 1757.5 {
		t.Errorf("totals = %v / %v / %v", r.TotalIncome, r.TotalExpense, r.Net)
	}
	if len(r.Transactions) != 4 {
		t.Fatalf("got %d transactions, want 4 (June excluded)", len(r.Transactions))
	}
	if r.Transactions[0].Date.String() != "2024-05-03" || r.Transactions[3].ID != "1" {
		t.Errorf("transactions not newest first: %+v", r.Transactions)
	}

	want := []CategoryTotal{
		{Category: "Salary", Income: 3000, Count: 1},
		{Category: "Rent", Expense: 1200, Count: 1},
		{Category: "Food", Expense: 42.5, Count: 2},
	}
	if len(r.Categories) != len(want) {
		t.Fatalf("categories = %+v", r.Categories)
	}
	for i := range want {
		if r.Categories[i] != want[i] {
			t.Errorf("category %d = %+v, want %+v", i, r.Categories[i], want[i])
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	p, _ := PeriodFor(RangeYear, date("2020-01-01"), civil.Date{}, civil.Date{})
	r := Build(p, sampleTransactions())
	if len(r.Transactions) != 0 || len(r.Categories) != 0 || r.Net != 0 {
		t.Errorf("report = %+v", r)
	}
	if r.Transactions == nil || r.Categories == nil {
		t.Error("empty report should carry empty, non-nil slices")
	}
}

// MockStore implements ledger.Store for report generation.
type MockStore struct {
	ledger.Store
	QueryFunc func(ctx context.Context, f domain.Filter) ([]domain.Transaction, error)
}

func (m *MockStore) Query(ctx context.Context, f domain.Filter) ([]domain.Transaction, error) {
	return m.QueryFunc(ctx, f)
}

func TestGenerate(t *testing.T) {
	p, _ := PeriodFor(RangeWeek, date("2024-05-02"), civil.Date{}, civil.Date{})
	store := &MockStore{QueryFunc: func(_ context.Context, f domain.Filter) ([]domain.Transaction, error) {
		if *f.DateStart != p.Start || *f.DateEnd != p.End {
			t.Errorf("queried %s..%s, want %s..%s", f.DateStart, f.DateEnd, p.Start, p.End)
		}
		return sampleTransactions()[:3], nil
	}}

	r, err := Generate(context.Background(), store, p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(r.Transactions) != 3 {
		t.Errorf("got %d transactions", len(r.Transactions))
	}

	store.QueryFunc = func(context.Context, domain.Filter) ([]domain.Transaction, error) {
		return nil, domain.Unavailable("Query", errors.New("down"))
	}
	if _, err := Generate(context.Background(), store, p); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("Generate() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestRenderText(t *testing.T) {
	p, _ := PeriodFor(RangeMonth, date("2024-05-15"), civil.Date{}, civil.Date{})
	var buf bytes.Buffer
	if err := RenderText(&buf, Build(p, sampleTransactions())); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"May 2024", "$3,000.00", "$1,242.50", "$1,757.50", "Salary", "dinner, with friends"} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	p, _ := PeriodFor(RangeMonth, date("2024-05-15"), civil.Date{}, civil.Date{})
	var buf bytes.Buffer
	if err := RenderCSV(&buf, Build(p, sampleTransactions())); err != nil {
		t.Fatal(err)
	}

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("CSV output does not parse: %v", err)
	}
	if strings.Join(rows[0], ",") != "date,type,category,amount,description" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][4] != "dinner, with friends" || rows[1][3] != "30.00" {
		t.Errorf("row = %v", rows[1])
	}
	last := rows[len(rows)-1]
	if last[0] != "net" || last[1] != "1757.50" {
		t.Errorf("last row = %v", last)
	}
}
