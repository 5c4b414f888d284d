package policy

import (
	"strings"
	"unicode"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

// KeywordRule maps everyday words onto a ledger category.
type KeywordRule struct {
	Kind     domain.Kind
	Category string
	Keywords []string
}

// Keywords is the fixed keyword → category table the assistant follows.
// Order matters: the first matching rule wins.
var Keywords = []KeywordRule{
	{domain.KindExpense, "Food", []string{"午餐", "早餐", "晚餐", "吃飯", "宵夜", "lunch", "breakfast", "dinner", "meal", "groceries", "coffee"}},
	{domain.KindExpense, "Transport", []string{"打車", "計程車", "公車", "捷運", "加油", "taxi", "uber", "bus", "metro", "subway", "gas", "fuel", "parking"}},
	{domain.KindExpense, "Utilities", []string{"水電", "電話費", "網路", "electricity", "water bill", "phone bill", "internet"}},
	{domain.KindIncome, "Salary", []string{"薪水", "工資", "salary", "paycheck", "wage", "wages"}},
	{domain.KindIncome, "Bonus", []string{"獎金", "bonus"}},
	{domain.KindExpense, "Entertainment", []string{"電影", "遊戲", "KTV", "movie", "cinema", "game", "concert", "netflix"}},
	{domain.KindExpense, "Shopping", []string{"買衣服", "購物", "衣服", "shopping", "clothes", "shoes"}},
	{domain.KindExpense, "Health", []string{"看醫生", "買藥", "醫院", "doctor", "medicine", "pharmacy", "hospital", "dentist"}},
	{domain.KindExpense, "Rent", []string{"房租", "租金", "rent"}},
	{domain.KindExpense, "Education", []string{"學費", "補習", "tuition", "course", "textbook"}},
	{domain.KindExpense, "Travel", []string{"旅遊", "機票", "飯店", "travel", "flight", "hotel"}},
}

var (
	expenseCues = []string{"花了", "花", "付了", "買了", "支出", "spent", "spend", "paid", "pay", "bought", "cost"}
	incomeCues  = []string{"賺了", "收到", "收入", "入帳", "earned", "received", "got paid", "income"}
)

// InferCategory returns the first keyword rule matching text.
func InferCategory(text string) (KeywordRule, bool) {
	words := latinWords(text)
	for _, rule := range Keywords {
		for _, kw := range rule.Keywords {
			if containsKeyword(text, words, kw) {
				return rule, true
			}
		}
	}
	return KeywordRule{}, false
}

// InferKind guesses income or expense from cue words such as "spent" or "賺了".
func InferKind(text string) (domain.Kind, bool) {
	words := latinWords(text)
	for _, cue := range incomeCues {
		if containsKeyword(text, words, cue) {
			return domain.KindIncome, true
		}
	}
	for _, cue := range expenseCues {
		if containsKeyword(text, words, cue) {
			return domain.KindExpense, true
		}
	}
	return "", false
}

// containsKeyword matches Latin keywords on word boundaries ("rent" must not
// hit "parent") and everything else as a plain substring.
func containsKeyword(text string, words []string, kw string) bool {
	if !isLatin(kw) {
		return strings.Contains(strings.ToLower(text), strings.ToLower(kw))
	}
	parts := latinWords(kw)
	for i := 0; i+len(parts) <= len(words); i++ {
		match := true
		for j, p := range parts {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func latinWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	})
}

func isLatin(s string) bool {
	for _, r := range s {
		if r >= unicode.MaxASCII {
			return false
		}
	}
	return true
}
