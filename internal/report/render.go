package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dvloznov/ledger-assistant/internal/policy"
)

// RenderText writes a printable report with aligned columns.
func RenderText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "Report\t%s\t\n", r.Label)
	fmt.Fprintf(tw, "Income\t%s\t\n", policy.FormatCurrency(r.TotalIncome))
	fmt.Fprintf(tw, "Expense\t%s\t\n", policy.FormatCurrency(r.TotalExpense))
	fmt.Fprintf(tw, "Net\t%s\t\n", policy.FormatCurrency(r.Net))
	fmt.Fprintln(tw, "\t\t")

	fmt.Fprintln(tw, "Category\tIncome\tExpense\tCount\t")
	for _, c := range r.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t\n", c.Category,
			policy.FormatCurrency(c.Income), policy.FormatCurrency(c.Expense), c.Count)
	}
	fmt.Fprintln(tw, "\t\t\t\t")

	fmt.Fprintln(tw, "Date\tType\tCategory\tAmount\tDescription\t")
	for _, tx := range r.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", tx.Date, tx.Kind, tx.Category,
			policy.FormatCurrency(tx.Amount), tx.Description)
	}
	return tw.Flush()
}

// RenderCSV writes the report transactions followed by category totals.
func RenderCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)

	rows := [][]string{{"date", "type", "category", "amount", "description"}}
	for _, tx := range r.Transactions {
		rows = append(rows, []string{tx.Date.String(), string(tx.Kind), tx.Category, money(tx.Amount), tx.Description})
	}
	rows = append(rows, nil, []string{"category", "income", "expense", "count"})
	for _, c := range r.Categories {
		rows = append(rows, []string{c.Category, money(c.Income), money(c.Expense), strconv.Itoa(c.Count)})
	}
	rows = append(rows,
		nil,
		[]string{"total_income", money(r.TotalIncome)},
		[]string{"total_expense", money(r.TotalExpense)},
		[]string{"net", money(r.Net)},
	)

	for _, row := range rows {
		if row == nil {
			row = []string{}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("RenderCSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
