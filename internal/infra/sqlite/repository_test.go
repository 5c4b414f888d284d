package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sample(id string, day int, kind domain.Kind, category string, created time.Time) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		Date:        civil.Date{Year: 2024, Month: 6, Day: day},
		Kind:        kind,
		Category:    category,
		Amount:      12.5,
		Description: "note " + id,
		CreatedAt:   created,
	}
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	created := time.Date(2024, 6, 1, 10, 0, 0, 123, time.UTC)

	tx := sample("a", 3, domain.KindExpense, "Food", created)
	if err := repo.Insert(ctx, tx); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, ok, err := repo.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.Date != tx.Date || got.Kind != tx.Kind || got.Description != "note a" || !got.CreatedAt.Equal(created) {
		t.Errorf("Get() = %+v, want %+v", got, tx)
	}

	if _, ok, _ := repo.Get(ctx, "missing"); ok {
		t.Error("Get(missing) reported found")
	}

	tx.Amount = 99
	if err := repo.Replace(ctx, tx); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := repo.Replace(ctx, sample("nope", 1, domain.KindExpense, "Food", created)); err == nil {
		t.Error("Replace() of missing row should fail")
	}

	removed, err := repo.Remove(ctx, "a")
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v", removed, err)
	}
	removed, err = repo.Remove(ctx, "a")
	if err != nil || removed {
		t.Fatalf("second Remove() = %v, %v", removed, err)
	}
}

func TestRepositoryListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := []domain.Transaction{
		sample("salary", 1, domain.KindIncome, "Salary", base),
		sample("lunch", 10, domain.KindExpense, "Food", base),
		sample("dinner", 10, domain.KindExpense, "Food", base.Add(time.Hour)),
		sample("bus", 20, domain.KindExpense, "Transport", base),
	}
	if err := repo.ReplaceAll(ctx, rows); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	all, err := repo.List(ctx, domain.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []string
	for _, tx := range all {
		ids = append(ids, tx.ID)
	}
	if strings.Join(ids, ",") != "bus,dinner,lunch,salary" {
		t.Errorf("List() order = %v", ids)
	}

	start := civil.Date{Year: 2024, Month: 6, Day: 10}
	end := civil.Date{Year: 2024, Month: 6, Day: 20}
	ranged, _ := repo.List(ctx, domain.Filter{DateStart: &start, DateEnd: &end, Category: "FOO"})
	if len(ranged) != 2 {
		t.Errorf("filtered List() returned %d rows, want 2", len(ranged))
	}

	income, _ := repo.List(ctx, domain.Filter{Kind: domain.KindIncome})
	if len(income) != 1 || income[0].ID != "salary" {
		t.Errorf("income List() = %+v", income)
	}
}

func TestRepositoryCategoryFilterIsLiteral(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := []domain.Transaction{
		sample("lunch", 10, domain.KindExpense, "Food", base),
		sample("flight", 12, domain.KindExpense, "Travel", base),
	}
	if err := repo.ReplaceAll(ctx, rows); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	tests := []struct {
		category string
		want     int
	}{
		{category: "_", want: 0},
		{category: "%", want: 0},
		{category: "o_d", want: 0},
		{category: `\`, want: 0},
		{category: "oo", want: 1},
		{category: "TRAV", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			f := domain.Filter{Category: tt.category}
			got, err := repo.List(ctx, f)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List(%q) returned %d rows, want %d", tt.category, len(got), tt.want)
			}

			var matched int
			for _, tx := range rows {
				if f.Matches(tx) {
					matched++
				}
			}
			if matched != len(got) {
				t.Errorf("List(%q) returned %d rows, Filter.Matches accepts %d", tt.category, len(got), matched)
			}
		})
	}
}

func TestRepositoryMarker(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if v, err := repo.Marker(ctx, "last_reset_date"); err != nil || v != "" {
		t.Fatalf("Marker() = %q, %v", v, err)
	}
	for _, v := range []string{"2024-06-01-v2", "2024-06-02-v2"} {
		if err := repo.SetMarker(ctx, "last_reset_date", v); err != nil {
			t.Fatalf("SetMarker() error = %v", err)
		}
	}
	if v, _ := repo.Marker(ctx, "last_reset_date"); v != "2024-06-02-v2" {
		t.Errorf("Marker() = %q", v)
	}
}

func TestBuildListQuery(t *testing.T) {
	start := civil.Date{Year: 2024, Month: 1, Day: 1}
	query, args := buildListQuery(domain.Filter{DateStart: &start, Kind: domain.KindExpense})

	if !strings.Contains(query, "WHERE date >= ? AND kind = ?") {
		t.Errorf("query = %s", query)
	}
	if len(args) != 2 || args[0] != "2024-01-01" || args[1] != "expense" {
		t.Errorf("args = %v", args)
	}

	query, args = buildListQuery(domain.Filter{Category: "Fo%"})
	if !strings.Contains(query, "WHERE INSTR(LOWER(category), ?) > 0") {
		t.Errorf("query = %s", query)
	}
	if len(args) != 1 || args[0] != "fo%" {
		t.Errorf("args = %v", args)
	}
}
