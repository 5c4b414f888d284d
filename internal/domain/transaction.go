package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Kind distinguishes money coming in from money going out.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is one of the two known kinds.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// ParseKind accepts any casing of "income" or "expense".
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// Transaction is one persisted ledger entry.
// ID and CreatedAt are assigned by the store and never change afterwards.
type Transaction struct {
	ID          string     `json:"id"`
	Date        civil.Date `json:"date"`
	Kind        Kind       `json:"type"`
	Category    string     `json:"category"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Draft carries the caller-supplied fields of a new transaction.
type Draft struct {
	Date        civil.Date `json:"date"`
	Kind        Kind       `json:"type" validate:"required,oneof=income expense"`
	Category    string     `json:"category" validate:"required"`
	Amount      float64    `json:"amount" validate:"gt=0"`
	Description string     `json:"description" validate:"max=200"`
}

// Draft returns the mutable fields of t.
func (t Transaction) Draft() Draft {
	return Draft{
		Date:        t.Date,
		Kind:        t.Kind,
		Category:    t.Category,
		Amount:      t.Amount,
		Description: t.Description,
	}
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Date        *civil.Date `json:"date,omitempty"`
	Kind        *Kind       `json:"type,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Amount      *float64    `json:"amount,omitempty"`
	Description *string     `json:"description,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Date == nil && p.Kind == nil && p.Category == nil && p.Amount == nil && p.Description == nil
}

// Apply merges the patch onto d and returns the result.
func (p Patch) Apply(d Draft) Draft {
	if p.Date != nil {
		d.Date = *p.Date
	}
	if p.Kind != nil {
		d.Kind = *p.Kind
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Amount != nil {
		d.Amount = *p.Amount
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	return d
}
