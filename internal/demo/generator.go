package demo

import (
	"math/rand/v2"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

// WindowMonths is how far back generated history reaches.
const WindowMonths = 3

const (
	skipProbability        = 0.35
	otherIncomeProbability = 0.08
)

type amountRange struct{ min, max int }

var expenseAmounts = map[string]amountRange{
	"Food":          {8, 80},
	"Transport":     {5, 50},
	"Utilities":     {30, 200},
	"Rent":          {800, 2000},
	"Entertainment": {10, 100},
	"Health":        {20, 300},
	"Shopping":      {15, 250},
	"Education":     {20, 300},
	"Travel":        {40, 600},
	"Other":         {10, 150},
}

var incomeAmounts = map[string]amountRange{
	"Salary":     {3000, 8000},
	"Investment": {50, 500},
	"Bonus":      {500, 3000},
	"Freelance":  {200, 1500},
	"Gift":       {20, 300},
	"Other":      {100, 1000},
}

var (
	defaultExpenseAmount = amountRange{10, 100}
	defaultIncomeAmount  = amountRange{50, 500}
)

var expenseDescriptions = map[string][]string{
	"Food":          {"Lunch at restaurant", "Grocery shopping", "Coffee shop", "Dinner takeout", "Breakfast", "Snacks"},
	"Transport":     {"Uber ride", "Gas station", "Bus ticket", "Metro card", "Parking fee", "Taxi"},
	"Utilities":     {"Electric bill", "Water bill", "Internet bill", "Phone bill", "Gas bill"},
	"Rent":          {"Monthly rent", "Rent payment"},
	"Entertainment": {"Movie tickets", "Netflix subscription", "Concert", "Video game", "Spotify", "Books"},
	"Health":        {"Pharmacy", "Doctor visit", "Gym membership", "Vitamins", "Dental checkup"},
	"Shopping":      {"Clothes", "Shoes", "Electronics", "Home decor"},
	"Education":     {"Online course", "Textbooks", "Workshop fee"},
	"Travel":        {"Hotel night", "Train ticket", "Flight change fee", "Travel insurance"},
	"Other":         {"Household items", "Repair", "Miscellaneous"},
}

var incomeDescriptions = map[string][]string{
	"Salary":     {"Monthly salary", "Salary deposit", "Paycheck"},
	"Investment": {"Stock dividend", "Interest income", "Investment return"},
	"Bonus":      {"Year-end bonus", "Performance bonus", "Holiday bonus"},
	"Freelance":  {"Freelance work", "Consulting invoice"},
	"Gift":       {"Gift received", "Red envelope"},
	"Other":      {"Refund", "Side income"},
}

// Generator produces plausible demo transactions.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator with a deterministic seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns drafts for every day from WindowMonths before today up to
// and including today. The 1st and 15th always carry salary (and rent on the
// 1st); other days may be skipped.
func (g *Generator) Generate(today civil.Date) []domain.Draft {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := monthsBefore(today, WindowMonths)

	var drafts []domain.Draft
	for day := start; !day.After(today); day = day.AddDays(1) {
		special := day.Day == 1 || day.Day == 15

		if !special && g.rng.Float64() < skipProbability {
			continue
		}

		if special {
			salary := incomeAmounts["Salary"]
			if day.Day == 15 {
				salary = amountRange{salary.min / 2, salary.max / 2}
			}
			drafts = append(drafts, g.income(day, "Salary", salary))

			if day.Day == 1 {
				drafts = append(drafts, g.expense(day, "Rent"))
			}
		}

		if g.rng.Float64() < otherIncomeProbability {
			category := g.pick(withoutCategory(domain.IncomeCategories, "Salary"))
			drafts = append(drafts, g.income(day, category, rangeOr(incomeAmounts, category, defaultIncomeAmount)))
		}

		expenseCategories := withoutCategory(domain.ExpenseCategories, "Rent")
		for n := g.between(1, 3); n > 0; n-- {
			drafts = append(drafts, g.expense(day, g.pick(expenseCategories)))
		}
	}
	return drafts
}

func (g *Generator) income(day civil.Date, category string, r amountRange) domain.Draft {
	return domain.Draft{
		Date:        day,
		Kind:        domain.KindIncome,
		Category:    category,
		Amount:      float64(g.between(r.min, r.max)),
		Description: g.description(incomeDescriptions, category, "Income"),
	}
}

func (g *Generator) expense(day civil.Date, category string) domain.Draft {
	r := rangeOr(expenseAmounts, category, defaultExpenseAmount)
	return domain.Draft{
		Date:        day,
		Kind:        domain.KindExpense,
		Category:    category,
		Amount:      float64(g.between(r.min, r.max)),
		Description: g.description(expenseDescriptions, category, "Expense"),
	}
}

func (g *Generator) description(pools map[string][]string, category, fallback string) string {
	pool, ok := pools[category]
	if !ok || len(pool) == 0 {
		return fallback
	}
	return g.pick(pool)
}

// between returns an integer in [min, max].
func (g *Generator) between(min, max int) int {
	return min + g.rng.IntN(max-min+1)
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.IntN(len(options))]
}

// monthsBefore steps back n calendar months, clamping to the last day of a
// shorter month (May 31 minus 3 months is Feb 28/29).
func monthsBefore(d civil.Date, n int) civil.Date {
	first := time.Date(d.Year, d.Month-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	day := d.Day
	if day > lastDay {
		day = lastDay
	}
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: day}
}

func rangeOr(m map[string]amountRange, key string, def amountRange) amountRange {
	if r, ok := m[key]; ok {
		return r
	}
	return def
}

func withoutCategory(categories []string, exclude string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c != exclude {
			out = append(out, c)
		}
	}
	return out
}
