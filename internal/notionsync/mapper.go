package notionsync

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

// Property names of the ledger mirror database.
const (
	PropName          = "Name"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropType          = "Type"
	PropCategory      = "Category"
	PropAmount        = "Amount"
	PropFingerprint   = "Fingerprint"
)

// TransactionToNotionProperties converts a ledger transaction into the
// properties of one mirror row.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	name := tx.Description
	if name == "" {
		name = tx.Category
	}
	date := notionapi.Date(tx.Date.In(time.UTC))

	return notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: []notionapi.RichText{richText(name)},
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(tx.ID)},
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		PropType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Kind)},
		},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Category},
		},
		PropAmount: notionapi.NumberProperty{
			Number: tx.Amount,
		},
		PropFingerprint: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(Fingerprint(tx))},
		},
	}
}

// Fingerprint summarizes the mirrored fields of tx. A page whose stored
// fingerprint differs from the ledger's is out of date.
func Fingerprint(tx domain.Transaction) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		tx.Date, tx.Kind, tx.Category, strconv.FormatFloat(tx.Amount, 'f', 2, 64), tx.Description)
}

func richText(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

// plainText reads the first rich-text fragment of prop.
func plainText(page notionapi.Page, prop string) string {
	p, ok := page.Properties[prop]
	if !ok {
		return ""
	}
	var texts []notionapi.RichText
	switch v := p.(type) {
	case *notionapi.RichTextProperty:
		texts = v.RichText
	case *notionapi.TitleProperty:
		texts = v.Title
	}
	if len(texts) == 0 {
		return ""
	}
	if texts[0].PlainText != "" {
		return texts[0].PlainText
	}
	if texts[0].Text != nil {
		return texts[0].Text.Content
	}
	return ""
}

// extractTransactionID returns the ledger id stored on a mirror page, or ""
// for pages the sync did not create.
func extractTransactionID(page notionapi.Page) string {
	return plainText(page, PropTransactionID)
}

func extractFingerprint(page notionapi.Page) string {
	return plainText(page, PropFingerprint)
}
