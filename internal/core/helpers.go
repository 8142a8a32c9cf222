package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// LeadTimestampColumns is the priority order for the lead timestamp column.
var LeadTimestampColumns = []string{"created_at", "created", "signup_date", "updated_at", "timestamp"}

// TransactionTimestampColumns is the priority order for the transaction timestamp column.
var TransactionTimestampColumns = []string{"timestamp", "created_at", "tx_ts"}

// MissingSet is a set of cell tokens that mean "no value".
type MissingSet map[string]struct{}

// NewMissingSet builds a MissingSet from tokens. Matching is exact and case-sensitive.
func NewMissingSet(tokens ...string) MissingSet {
	m := make(MissingSet, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// Has reports whether the trimmed cell is a missing-value token.
func (m MissingSet) Has(cell string) bool {
	_, ok := m[strings.TrimSpace(cell)]
	return ok
}

// LeadMissing are the tokens treated as absent in the lead source.
var LeadMissing = NewMissingSet("", "null", "NaN")

// LedgerMissing are the tokens treated as absent in the transaction ledger.
// This is the usual spreadsheet/dataframe NA vocabulary.
var LedgerMissing = NewMissingSet(
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
)

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are trimmed and lowercased. When two columns normalize to the same
// name, the first one wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if key == "" {
			continue
		}
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// Has reports whether the column exists.
func (h HeaderIndex) Has(col string) bool {
	_, ok := h[col]
	return ok
}

// FirstPresent returns the first candidate column present in the header.
// Returns ok=false when none of them is.
func (h HeaderIndex) FirstPresent(candidates []string) (string, bool) {
	for _, c := range candidates {
		if h.Has(c) {
			return c, true
		}
	}
	return "", false
}

// Cell returns the cleaned value of col in row, or ok=false if the column is
// absent, the row is short, or the value is a missing token.
func (h HeaderIndex) Cell(row []string, col string, missing MissingSet) (string, bool) {
	pos, ok := h[col]
	if !ok || pos >= len(row) {
		return "", false
	}
	v := CleanCell(row[pos])
	if missing.Has(v) {
		return "", false
	}
	return v, true
}

// CleanCell removes surrounding whitespace and a UTF-8 BOM from a cell value.
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	return strings.TrimSpace(s)
}

// readDelimited parses a delimited table with a header row.
// A missing or blank header is a structural error; short or long rows are not.
func readDelimited(r io.Reader, comma rune) (HeaderIndex, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	idx := MakeHeaderIndex(header)
	if len(idx) == 0 {
		return nil, nil, ErrEmptyHeader
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}

	return idx, rows, nil
}

// isEmptyRow reports whether every cell in the row is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// maxTimestamptz returns the later of two timestamps, ignoring invalid ones.
func maxTimestamptz(a, b pgtype.Timestamptz) pgtype.Timestamptz {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	case b.Time.After(a.Time):
		return b
	default:
		return a
	}
}
