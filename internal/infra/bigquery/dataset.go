package bigquery

import "fmt"

// Dataset locates the ledger tables.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// table returns the fully qualified, backtick-quoted table name.
func (d Dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}
