package tools

// Tool names understood by the executor.
const (
	AddTransaction    = "addTransaction"
	QueryTransactions = "queryTransactions"
	DeleteTransaction = "deleteTransaction"
	PrintReport       = "printReport"
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeNumber ParamType = "number"
)

// Param describes one tool argument.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Enum        []string
	Format      string
}

// Definition is the model-facing description of a tool.
type Definition struct {
	Name        string
	Description string
	Params      []Param
	Required    []string
}

// Report types accepted by printReport.
var reportTypes = []string{"monthly", "weekly", "yearly", "custom"}

// Definitions returns the closed set of tools offered to the model.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        AddTransaction,
			Description: "Add a new income or expense transaction to the ledger. Only call this when date, kind, category and amount are all known.",
			Params: []Param{
				{Name: "date", Type: TypeString, Format: "date", Description: "Business date in YYYY-MM-DD format."},
				{Name: "kind", Type: TypeString, Enum: []string{"income", "expense"}, Description: "Whether money came in (income) or went out (expense)."},
				{Name: "category", Type: TypeString, Description: "Category from the allowed list for the kind, e.g. Food, Transport, Salary."},
				{Name: "amount", Type: TypeNumber, Description: "Positive amount of money."},
				{Name: "description", Type: TypeString, Description: "Optional short note about the transaction."},
			},
			Required: []string{"date", "kind", "category", "amount"},
		},
		{
			Name:        QueryTransactions,
			Description: "Search the ledger. All filters are optional; dates are inclusive and category matches case-insensitively by substring.",
			Params: []Param{
				{Name: "dateStart", Type: TypeString, Format: "date", Description: "Earliest date, YYYY-MM-DD."},
				{Name: "dateEnd", Type: TypeString, Format: "date", Description: "Latest date, YYYY-MM-DD."},
				{Name: "kind", Type: TypeString, Enum: []string{"income", "expense"}, Description: "Only income or only expense."},
				{Name: "category", Type: TypeString, Description: "Category name or part of it."},
			},
		},
		{
			Name:        DeleteTransaction,
			Description: "Delete one transaction by its id. Query first to find the id when the user did not give it.",
			Params: []Param{
				{Name: "id", Type: TypeString, Description: "Transaction id."},
			},
			Required: []string{"id"},
		},
		{
			Name:        PrintReport,
			Description: "Open the print/export dialog for a report covering a date range. Use when the user asks to print, export or download a report.",
			Params: []Param{
				{Name: "reportType", Type: TypeString, Enum: reportTypes, Description: "monthly for a calendar month, custom for an arbitrary range."},
				{Name: "dateStart", Type: TypeString, Format: "date", Description: "First day of the report, YYYY-MM-DD."},
				{Name: "dateEnd", Type: TypeString, Format: "date", Description: "Last day of the report, YYYY-MM-DD."},
			},
			Required: []string{"reportType", "dateStart", "dateEnd"},
		},
	}
}

// Known reports whether name is one of the defined tools.
func Known(name string) bool {
	for _, d := range Definitions() {
		if d.Name == name {
			return true
		}
	}
	return false
}
