package core

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MissingTransactionID is the transaction_id recorded for rejected rows that have none.
const MissingTransactionID = "<missing>"

// Lead is one cleaned row from the CRM lead source.
// Nullable fields use pgtype values; Valid=false means the value was absent or invalid.
type Lead struct {
	Identity      pgtype.UUID
	Email         pgtype.Text
	FirstName     pgtype.Text
	LastName      pgtype.Text
	LeadTimestamp pgtype.Timestamptz

	row int // position in the source, used as the dedup tie-breaker
}

// ActivitySummary aggregates all web activity events for one identity.
type ActivitySummary struct {
	Identity       pgtype.UUID
	TotalPageViews int64
	LastSeen       pgtype.Timestamptz
}

// TransactionSummary aggregates the accepted transactions for one identity.
type TransactionSummary struct {
	Identity          pgtype.UUID
	TotalSpent        decimal.Decimal
	TransactionsCount int64
	LastTransaction   pgtype.Timestamptz
}

// RejectionReason names the check a transaction row failed.
type RejectionReason string

const (
	ReasonInvalidUUID       RejectionReason = "INVALID_UUID"
	ReasonNonPositiveAmount RejectionReason = "NON_POSITIVE_AMOUNT"
	ReasonInvalidStatus     RejectionReason = "INVALID_STATUS"
)

// RejectionReasons lists the reasons in the order rejections are reported.
var RejectionReasons = []RejectionReason{
	ReasonInvalidUUID,
	ReasonNonPositiveAmount,
	ReasonInvalidStatus,
}

// Rejection is one audit entry: a transaction and one reason it was excluded.
type Rejection struct {
	TransactionID string
	Reason        RejectionReason
}

// Customer360 is one row of the merged output dataset.
type Customer360 struct {
	Identity          pgtype.UUID
	Email             pgtype.Text
	FirstName         pgtype.Text
	LastName          pgtype.Text
	LeadTimestamp     pgtype.Timestamptz
	TotalPageViews    int64
	LastSeen          pgtype.Timestamptz
	TotalSpent        decimal.Decimal
	TransactionsCount int64
	LastTransaction   pgtype.Timestamptz
}

// Customer360Columns is the fixed column order of the output dataset.
var Customer360Columns = []string{
	"identity",
	"email",
	"first_name",
	"last_name",
	"lead_timestamp",
	"total_page_views",
	"last_seen",
	"total_spent",
	"transactions_count",
	"last_transaction",
}

// HeaderIndex maps column names (lowercase) to their position in a delimited row.
type HeaderIndex map[string]int

// LeadStats describes what the lead normalizer did with its input.
type LeadStats struct {
	RowsRead        int `yaml:"rows_read"`
	Duplicates      int `yaml:"duplicates_dropped"`
	MissingEmail    int `yaml:"missing_email"`
	InvalidIdentity int `yaml:"invalid_identity"`
}

// ActivityStats describes what the activity aggregator did with its input.
type ActivityStats struct {
	LinesRead  int `yaml:"lines_read"`
	Malformed  int `yaml:"malformed_lines"`
	Discarded  int `yaml:"discarded_invalid_identity"`
	Identities int `yaml:"identities"`
}

// TransactionStats describes what the transaction validator did with its input.
type TransactionStats struct {
	RowsRead   int `yaml:"rows_read"`
	Accepted   int `yaml:"accepted"`
	Rejected   int `yaml:"rejected_rows"`
	Rejections int `yaml:"rejection_records"`
	Identities int `yaml:"identities"`
}

// LeadResult is the output of NormalizeLeads.
type LeadResult struct {
	Leads []Lead
	Stats LeadStats
}

// ActivityResult is the output of AggregateActivity.
type ActivityResult struct {
	Summaries []ActivitySummary
	Stats     ActivityStats
}

// TransactionResult is the output of ValidateTransactions.
type TransactionResult struct {
	Summaries  []TransactionSummary
	Rejections []Rejection
	Stats      TransactionStats
}

// RunPhase indicates the current stage of a pipeline run.
type RunPhase string

const (
	PhaseStarting RunPhase = "starting"
	PhaseReading  RunPhase = "reading"
	PhaseMerging  RunPhase = "merging"
	PhaseWriting  RunPhase = "writing"
	PhaseComplete RunPhase = "complete"
	PhaseFailed   RunPhase = "failed"
)

// RunSummary is the human-readable record of a completed run.
type RunSummary struct {
	RunID        string           `yaml:"run_id"`
	StartedAt    time.Time        `yaml:"started_at"`
	FinishedAt   time.Time        `yaml:"finished_at"`
	Sources      Sources          `yaml:"sources"`
	OutputFormat string           `yaml:"output_format"`
	Artifacts    []string         `yaml:"artifacts"`
	Customers    int              `yaml:"customers"`
	Leads        LeadStats        `yaml:"leads"`
	Activity     ActivityStats    `yaml:"activity"`
	Transactions TransactionStats `yaml:"transactions"`
	BytesRead    int64            `yaml:"bytes_read"`
	LoadedRows   int64            `yaml:"loaded_rows,omitempty"`
}

// Duration returns the wall-clock time of the run.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Sources holds the paths of the three inputs.
type Sources struct {
	Leads        string `yaml:"leads"`
	Activity     string `yaml:"activity"`
	Transactions string `yaml:"transactions"`
}
