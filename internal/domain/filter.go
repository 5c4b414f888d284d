package domain

import (
	"sort"
	"strings"

	"cloud.google.com/go/civil"
)

// Filter narrows a ledger query. Zero-valued fields do not constrain.
// Date bounds are inclusive; Category is a case-insensitive substring match.
type Filter struct {
	DateStart *civil.Date
	DateEnd   *civil.Date
	Kind      Kind
	Category  string
}

// Matches reports whether t satisfies every set constraint of f.
func (f Filter) Matches(t Transaction) bool {
	if f.DateStart != nil && t.Date.Before(*f.DateStart) {
		return false
	}
	if f.DateEnd != nil && t.Date.After(*f.DateEnd) {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Category != "" && !strings.Contains(strings.ToLower(t.Category), strings.ToLower(f.Category)) {
		return false
	}
	return true
}

// SortTransactions orders txs by date descending, then creation time descending.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
