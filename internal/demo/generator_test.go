package demo

import (
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

func TestGenerateStructure(t *testing.T) {
	today := civil.Date{Year: 2024, Month: 5, Day: 20}
	start := civil.Date{Year: 2024, Month: 2, Day: 20}

	for seed := uint64(1); seed <= 5; seed++ {
		drafts := NewGenerator(seed).Generate(today)
		if len(drafts) == 0 {
			t.Fatalf("seed %d: no drafts generated", seed)
		}

		type dayStats struct {
			salary, rent, expenses int
		}
		stats := make(map[civil.Date]*dayStats)

		for _, d := range drafts {
			if _, err := domain.Normalize(d); err != nil {
				t.Fatalf("seed %d: generated invalid draft %+v: %v", seed, d, err)
			}
			if d.Date.Before(start) || d.Date.After(today) {
				t.Fatalf("seed %d: date %s outside window", seed, d.Date)
			}
			if d.Amount != float64(int(d.Amount)) {
				t.Errorf("seed %d: amount %v is not whole", seed, d.Amount)
			}

			s := stats[d.Date]
			if s == nil {
				s = &dayStats{}
				stats[d.Date] = s
			}
			switch {
			case d.Category == "Salary":
				s.salary++
				limit := 8000.0
				if d.Date.Day == 15 {
					limit = 4000
				}
				if d.Amount > limit {
					t.Errorf("seed %d: salary %v on day %d exceeds %v", seed, d.Amount, d.Date.Day, limit)
				}
			case d.Category == "Rent":
				s.rent++
			case d.Kind == domain.KindExpense:
				s.expenses++
			}
		}

		for day := start; !day.After(today); day = day.AddDays(1) {
			s := stats[day]
			special := day.Day == 1 || day.Day == 15
			if special {
				if s == nil || s.salary != 1 {
					t.Errorf("seed %d: %s should carry exactly one salary", seed, day)
				}
				if day.Day == 1 && (s == nil || s.rent != 1) {
					t.Errorf("seed %d: %s should carry rent", seed, day)
				}
			}
			if s == nil {
				continue
			}
			if s.expenses < 1 || s.expenses > 3 {
				t.Errorf("seed %d: %s has %d non-rent expenses, want 1-3", seed, day, s.expenses)
			}
			if day.Day != 1 && s.rent != 0 {
				t.Errorf("seed %d: rent on %s", seed, day)
			}
			if !special && s.salary != 0 {
				t.Errorf("seed %d: salary on %s", seed, day)
			}
		}
	}
}

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	today := civil.Date{Year: 2024, Month: 1, Day: 10}
	a := NewGenerator(42).Generate(today)
	b := NewGenerator(42).Generate(today)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("draft %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestMonthsBefore(t *testing.T) {
	tests := []struct {
		in, want civil.Date
	}{
		{civil.Date{Year: 2024, Month: 5, Day: 31}, civil.Date{Year: 2024, Month: 2, Day: 29}},
		{civil.Date{Year: 2024, Month: 2, Day: 10}, civil.Date{Year: 2023, Month: 11, Day: 10}},
		{civil.Date{Year: 2023, Month: 3, Day: 1}, civil.Date{Year: 2022, Month: 12, Day: 1}},
	}
	for _, tt := range tests {
		if got := monthsBefore(tt.in, 3); got != tt.want {
			t.Errorf("monthsBefore(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
