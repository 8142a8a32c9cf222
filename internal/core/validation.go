package core

// validation.go provides row-level validation for ledger transactions.
//
// Every check runs on every row; a failing check never hides a later one.
// A row that fails two checks produces two rejection records, which is what
// the audit log needs to explain every reason a row was excluded.

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// StatusCompleted is the only status accepted into aggregation.
const StatusCompleted = "completed"

// TransactionRow is one ledger row after field coercion, before validation.
type TransactionRow struct {
	TransactionID pgtype.Text
	Identity      pgtype.UUID
	Amount        decimal.NullDecimal
	Status        pgtype.Text // trimmed and lowercased
	Timestamp     pgtype.Timestamptz
}

// ValidationResult contains the result of validating a row.
type ValidationResult struct {
	Valid   bool              // True if all checks passed
	Reasons []RejectionReason // Failed checks, in RejectionReasons order
}

// transactionCheck pairs a rejection reason with the predicate a row must pass.
type transactionCheck struct {
	reason RejectionReason
	pass   func(TransactionRow) bool
}

var transactionChecks = []transactionCheck{
	{
		reason: ReasonInvalidUUID,
		pass:   func(r TransactionRow) bool { return r.Identity.Valid },
	},
	{
		reason: ReasonNonPositiveAmount,
		pass:   func(r TransactionRow) bool { return r.Amount.Valid && r.Amount.Decimal.IsPositive() },
	},
	{
		reason: ReasonInvalidStatus,
		pass:   func(r TransactionRow) bool { return r.Status.Valid && r.Status.String == StatusCompleted },
	},
}

// ValidateTransaction runs every check against the row and returns all failures.
func ValidateTransaction(row TransactionRow) ValidationResult {
	result := ValidationResult{Valid: true}
	for _, check := range transactionChecks {
		if !check.pass(row) {
			result.Valid = false
			result.Reasons = append(result.Reasons, check.reason)
		}
	}
	return result
}

// RejectionID returns the transaction_id to record for a rejected row.
func (r TransactionRow) RejectionID() string {
	if !r.TransactionID.Valid {
		return MissingTransactionID
	}
	return r.TransactionID.String
}
