// Package core provides the validation and merge logic for the Customer 360 build.
//
// This package holds every rule that decides what a valid identity, a valid
// transaction and a single customer row are. It knows nothing about output
// formats or databases; artifacts are handed to a [Sink] and, optionally, a
// [Loader].
//
// # Pipeline
//
// A run reads three independent sources and merges them:
//
//  1. [NormalizeLeads] cleans the comma-delimited lead table and keeps the
//     newest row per email
//  2. [AggregateActivity] folds the JSON-lines activity log into one summary
//     per identity
//  3. [ValidateTransactions] checks every ledger row, records rejections and
//     sums the accepted rows per identity
//  4. [Merge] left-joins the three on identity, one output row per lead
//
// Steps 1-3 run concurrently in [Service.Run]; step 4 waits for all of them.
// A structural failure in any source (missing file, no header) aborts the run
// before anything is written.
//
// # Nullable Values
//
// Cleaned fields use pgtype values: Valid=false means the value was absent or
// could not be coerced. Coercion never fails a run; see convert.go.
//
// # Amounts
//
// Transaction amounts are decimal.Decimal values, so total_spent is the exact sum
// of the accepted amounts.
package core
