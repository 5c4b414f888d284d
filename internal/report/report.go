package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/ledger"
)

// CategoryTotal aggregates one category within a period.
type CategoryTotal struct {
	Category string  `json:"category"`
	Income   float64 `json:"income"`
	Expense  float64 `json:"expense"`
	Count    int     `json:"count"`
}

// Report summarizes the ledger over a period.
type Report struct {
	Period       Period               `json:"-"`
	Label        string               `json:"label"`
	Start        string               `json:"start"`
	End          string               `json:"end"`
	Categories   []CategoryTotal      `json:"categories"`
	TotalIncome  float64              `json:"totalIncome"`
	TotalExpense float64              `json:"totalExpense"`
	Net          float64              `json:"net"`
	Transactions []domain.Transaction `json:"transactions"`
}

// Build aggregates txs that fall inside p. Transactions are listed newest
// first; categories are ordered by their largest amount.
func Build(p Period, txs []domain.Transaction) Report {
	r := Report{
		Period:       p,
		Label:        p.Label(),
		Start:        p.Start.String(),
		End:          p.End.String(),
		Categories:   []CategoryTotal{},
		Transactions: []domain.Transaction{},
	}

	byCategory := make(map[string]*CategoryTotal)
	for _, tx := range txs {
		if !p.Contains(tx.Date) {
			continue
		}
		r.Transactions = append(r.Transactions, tx)

		ct, ok := byCategory[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category}
			byCategory[tx.Category] = ct
		}
		ct.Count++
		if tx.Kind == domain.KindIncome {
			ct.Income += tx.Amount
			r.TotalIncome += tx.Amount
		} else {
			ct.Expense += tx.Amount
			r.TotalExpense += tx.Amount
		}
	}
	r.Net = r.TotalIncome - r.TotalExpense

	for _, ct := range byCategory {
		r.Categories = append(r.Categories, *ct)
	}
	sort.Slice(r.Categories, func(i, j int) bool {
		a, b := r.Categories[i], r.Categories[j]
		if ma, mb := max(a.Income, a.Expense), max(b.Income, b.Expense); ma != mb {
			return ma > mb
		}
		return a.Category < b.Category
	})
	domain.SortTransactions(r.Transactions)
	return r
}

// Generate queries store for p and builds the report.
func Generate(ctx context.Context, store ledger.Store, p Period) (Report, error) {
	start, end := p.Start, p.End
	txs, err := store.Query(ctx, domain.Filter{DateStart: &start, DateEnd: &end})
	if err != nil {
		return Report{}, fmt.Errorf("Generate: query ledger: %w", err)
	}
	return Build(p, txs), nil
}
