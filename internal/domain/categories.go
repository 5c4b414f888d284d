package domain

import "strings"

// IncomeCategories is the controlled vocabulary for income entries.
var IncomeCategories = []string{"Salary", "Investment", "Bonus", "Freelance", "Gift", "Other"}

// ExpenseCategories is the controlled vocabulary for expense entries.
var ExpenseCategories = []string{
	"Food", "Transport", "Shopping", "Entertainment", "Health",
	"Utilities", "Rent", "Education", "Travel", "Other",
}

// CategoriesFor returns the vocabulary for kind, or nil for an unknown kind.
func CategoriesFor(kind Kind) []string {
	switch kind {
	case KindIncome:
		return IncomeCategories
	case KindExpense:
		return ExpenseCategories
	}
	return nil
}

// CanonicalCategory matches name case-insensitively against the vocabulary of
// kind and returns the canonical spelling.
func CanonicalCategory(kind Kind, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range CategoriesFor(kind) {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}
