package memory

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	tx := domain.Transaction{
		ID:        "t1",
		Date:      civil.Date{Year: 2024, Month: 1, Day: 2},
		Kind:      domain.KindExpense,
		Category:  "Food",
		Amount:    10,
		CreatedAt: time.Now(),
	}
	if err := repo.Insert(ctx, tx); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := repo.Insert(ctx, tx); err == nil {
		t.Error("duplicate Insert() should fail")
	}

	got, ok, err := repo.Get(ctx, "t1")
	if err != nil || !ok || got.Amount != 10 {
		t.Fatalf("Get() = %+v, %v, %v", got, ok, err)
	}

	tx.Amount = 20
	if err := repo.Replace(ctx, tx); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	list, _ := repo.List(ctx, domain.Filter{Kind: domain.KindExpense})
	if len(list) != 1 || list[0].Amount != 20 {
		t.Errorf("List() = %+v", list)
	}

	removed, _ := repo.Remove(ctx, "t1")
	again, _ := repo.Remove(ctx, "t1")
	if !removed || again {
		t.Errorf("Remove() = %v then %v", removed, again)
	}
}

func TestReplaceAllAndMarker(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	_ = repo.Insert(ctx, domain.Transaction{ID: "old"})
	if err := repo.ReplaceAll(ctx, []domain.Transaction{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "old"); ok {
		t.Error("ReplaceAll() kept old rows")
	}

	if v, _ := repo.Marker(ctx, "k"); v != "" {
		t.Errorf("unset marker = %q", v)
	}
	_ = repo.SetMarker(ctx, "k", "2024-01-01-v2")
	if v, _ := repo.Marker(ctx, "k"); v != "2024-01-01-v2" {
		t.Errorf("marker = %q", v)
	}
}
