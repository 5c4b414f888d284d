package events

// Name identifies an event on the bus.
type Name string

const (
	// All subscribes a handler to every event.
	All Name = "*"

	LedgerChanged        Name = "ledger-changed"
	TransactionAdded     Name = "transaction-added"
	TransactionDeleted   Name = "transaction-deleted"
	PrintReportRequested Name = "print-report-requested"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	EventName() Name
}

// LedgerOp describes which mutation caused a LedgerChangedEvent.
type LedgerOp string

const (
	OpAdd    LedgerOp = "add"
	OpUpdate LedgerOp = "update"
	OpDelete LedgerOp = "delete"
	OpReset  LedgerOp = "reset"
)

// LedgerChangedEvent is emitted after any successful store mutation.
type LedgerChangedEvent struct {
	Op LedgerOp `json:"op"`
	ID string   `json:"id,omitempty"`
}

func (LedgerChangedEvent) EventName() Name { return LedgerChanged }

// TransactionAddedEvent is emitted when the assistant records a transaction,
// so views can jump to its date.
type TransactionAddedEvent struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

func (TransactionAddedEvent) EventName() Name { return TransactionAdded }

// TransactionDeletedEvent is emitted when the assistant deletes a transaction.
type TransactionDeletedEvent struct {
	ID string `json:"id"`
}

func (TransactionDeletedEvent) EventName() Name { return TransactionDeleted }

// PrintReportRequestedEvent asks report consumers to produce a printable report.
type PrintReportRequestedEvent struct {
	ReportType string `json:"reportType"`
	DateStart  string `json:"dateStart"`
	DateEnd    string `json:"dateEnd"`
}

func (PrintReportRequestedEvent) EventName() Name { return PrintReportRequested }
