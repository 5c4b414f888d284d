package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledger-assistant/internal/domain"
)

const transactionColumns = `transaction_id, transaction_date, kind, category, amount, description, created_ts, updated_ts`

// InsertTransactionWithClient inserts one transaction with a DML statement.
// DML rows are immediately mutable, unlike rows still in the streaming buffer.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, tx domain.Transaction) error {
	row, err := toRow(tx)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}

	q := client.Query(`
		INSERT INTO ` + ds.table(transactionsTable) + `
		(transaction_id, transaction_date, kind, category, amount, description, created_ts)
		VALUES (@transaction_id, @transaction_date, @kind, @category, @amount, @description, @created_ts)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "kind", Value: row.Kind},
		{Name: "category", Value: row.Category},
		{Name: "amount", Value: row.Amount},
		{Name: "description", Value: tx.Description},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// GetTransactionWithClient fetches one transaction by id.
func GetTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string) (*TransactionRow, error) {
	q := client.Query(`
		SELECT ` + transactionColumns + `
		FROM ` + ds.table(transactionsTable) + `
		WHERE transaction_id = @transaction_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
	}

	rows, err := readTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// UpdateTransactionWithClient overwrites the mutable columns of a transaction
// and returns the number of affected rows.
func UpdateTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, tx domain.Transaction) (int64, error) {
	row, err := toRow(tx)
	if err != nil {
		return 0, fmt.Errorf("UpdateTransaction: %w", err)
	}

	q := client.Query(`
		UPDATE ` + ds.table(transactionsTable) + `
		SET transaction_date = @transaction_date,
		    kind = @kind,
		    category = @category,
		    amount = @amount,
		    description = @description,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE transaction_id = @transaction_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "kind", Value: row.Kind},
		{Name: "category", Value: row.Category},
		{Name: "amount", Value: row.Amount},
		{Name: "description", Value: tx.Description},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("UpdateTransaction: %w", err)
	}
	return n, nil
}

// DeleteTransactionWithClient deletes a transaction and returns the number of
// deleted rows.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string) (int64, error) {
	q := client.Query(`
		DELETE FROM ` + ds.table(transactionsTable) + `
		WHERE transaction_id = @transaction_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteTransaction: %w", err)
	}
	return n, nil
}

// QueryTransactionsWithClient lists transactions matching f, newest first.
func QueryTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, f domain.Filter) ([]*TransactionRow, error) {
	sql, params := buildTransactionsQuery(ds, f)
	q := client.Query(sql)
	q.Parameters = params

	rows, err := readTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactions: %w", err)
	}
	return rows, nil
}

func buildTransactionsQuery(ds Dataset, f domain.Filter) (string, []bigquery.QueryParameter) {
	var (
		where  []string
		params []bigquery.QueryParameter
	)
	if f.DateStart != nil {
		where = append(where, "transaction_date >= @date_start")
		params = append(params, bigquery.QueryParameter{Name: "date_start", Value: *f.DateStart})
	}
	if f.DateEnd != nil {
		where = append(where, "transaction_date <= @date_end")
		params = append(params, bigquery.QueryParameter{Name: "date_end", Value: *f.DateEnd})
	}
	if f.Kind != "" {
		where = append(where, "kind = @kind")
		params = append(params, bigquery.QueryParameter{Name: "kind", Value: string(f.Kind)})
	}
	if f.Category != "" {
		where = append(where, "STRPOS(LOWER(category), @category) > 0")
		params = append(params, bigquery.QueryParameter{Name: "category", Value: strings.ToLower(f.Category)})
	}

	sql := "SELECT " + transactionColumns + " FROM " + ds.table(transactionsTable)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY transaction_date DESC, created_ts DESC"
	return sql, params
}

// ReplaceAllTransactionsWithClient atomically swaps the table contents for txs
// using a WRITE_TRUNCATE load job.
func ReplaceAllTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, txs []domain.Transaction) error {
	if len(txs) == 0 {
		q := client.Query(`DELETE FROM ` + ds.table(transactionsTable) + ` WHERE TRUE`)
		if _, err := runDML(ctx, q); err != nil {
			return fmt.Errorf("ReplaceAllTransactions: clear: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, tx := range txs {
		if err := enc.Encode(toLoadRow(tx)); err != nil {
			return fmt.Errorf("ReplaceAllTransactions: encode %s: %w", tx.ID, err)
		}
	}

	src := bigquery.NewReaderSource(&buf)
	src.SourceFormat = bigquery.JSON

	loader := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(transactionsTable).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateNever

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("ReplaceAllTransactions: start load: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("ReplaceAllTransactions: wait for load: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("ReplaceAllTransactions: load error: %w", err)
	}
	return nil
}

func readTransactions(ctx context.Context, q *bigquery.Query) ([]*TransactionRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// runDML runs a DML statement to completion and returns the affected row count.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}
