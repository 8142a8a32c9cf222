package core

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Ledger column names (after header normalization).
const (
	colTransactionID = "transaction_id"
	colAmount        = "amount"
	colStatus        = "status"
)

// ValidateTransactions reads the pipe-delimited ledger, records a rejection
// for every failed check, and aggregates the accepted rows per identity.
//
// Rejections are grouped by reason (INVALID_UUID, then NON_POSITIVE_AMOUNT,
// then INVALID_STATUS) and keep source order within each group.
func ValidateTransactions(r io.Reader) (TransactionResult, error) {
	idx, rows, err := readDelimited(r, '|')
	if err != nil {
		return TransactionResult{}, fmt.Errorf("transactions: %w", err)
	}

	tsCol, hasTS := idx.FirstPresent(TransactionTimestampColumns)

	var stats TransactionStats
	byReason := make(map[RejectionReason][]Rejection, len(RejectionReasons))
	acc := make(map[[16]byte]*TransactionSummary)

	for _, raw := range rows {
		if isEmptyRow(raw) {
			continue
		}
		stats.RowsRead++

		row := parseTransactionRow(idx, raw, tsCol, hasTS)
		result := ValidateTransaction(row)
		if !result.Valid {
			stats.Rejected++
			for _, reason := range result.Reasons {
				byReason[reason] = append(byReason[reason], Rejection{
					TransactionID: row.RejectionID(),
					Reason:        reason,
				})
			}
			continue
		}

		stats.Accepted++
		sum, ok := acc[row.Identity.Bytes]
		if !ok {
			sum = &TransactionSummary{Identity: row.Identity, TotalSpent: decimal.Zero}
			acc[row.Identity.Bytes] = sum
		}
		sum.TotalSpent = sum.TotalSpent.Add(row.Amount.Decimal)
		sum.TransactionsCount++
		sum.LastTransaction = maxTimestamptz(sum.LastTransaction, row.Timestamp)
	}

	rejections := make([]Rejection, 0)
	for _, reason := range RejectionReasons {
		rejections = append(rejections, byReason[reason]...)
	}

	summaries := make([]TransactionSummary, 0, len(acc))
	for _, sum := range acc {
		summaries = append(summaries, *sum)
	}
	slices.SortFunc(summaries, func(a, b TransactionSummary) int {
		return bytes.Compare(a.Identity.Bytes[:], b.Identity.Bytes[:])
	})

	stats.Rejections = len(rejections)
	stats.Identities = len(summaries)

	return TransactionResult{
		Summaries:  summaries,
		Rejections: rejections,
		Stats:      stats,
	}, nil
}

// parseTransactionRow coerces each ledger field. Nothing here rejects a row;
// that is ValidateTransaction's job.
func parseTransactionRow(idx HeaderIndex, raw []string, tsCol string, hasTS bool) TransactionRow {
	var row TransactionRow

	if v, ok := idx.Cell(raw, colTransactionID, LedgerMissing); ok {
		row.TransactionID = pgtype.Text{String: v, Valid: true}
	}
	if v, ok := idx.Cell(raw, colIdentity, LedgerMissing); ok {
		row.Identity = ValidateIdentity(v)
	}
	if v, ok := idx.Cell(raw, colAmount, LedgerMissing); ok {
		if d, ok := ToDecimal(v); ok {
			row.Amount = decimal.NullDecimal{Decimal: d, Valid: true}
		}
	}
	if v, ok := idx.Cell(raw, colStatus, LedgerMissing); ok {
		row.Status = pgtype.Text{String: strings.ToLower(v), Valid: true}
	}
	if hasTS {
		if v, ok := idx.Cell(raw, tsCol, LedgerMissing); ok {
			row.Timestamp = ToPgTimestamptz(v)
		}
	}

	return row
}
