package core

import (
	"cmp"
	"fmt"
	"io"
	"slices"
)

// Lead source column names (after header normalization).
const (
	colIdentity  = "user_uuid"
	colEmail     = "email"
	colFirstName = "first_name"
	colLastName  = "last_name"
	colName      = "name"
)

// NormalizeLeads reads the comma-delimited lead table and returns one lead
// per unique email, keeping the most recent row for each.
//
// Rows without an email are all kept: email is the dedup key, and a row
// without one has no duplicate to be collapsed into.
func NormalizeLeads(r io.Reader) (LeadResult, error) {
	idx, rows, err := readDelimited(r, ',')
	if err != nil {
		return LeadResult{}, fmt.Errorf("leads: %w", err)
	}

	hasFirst := idx.Has(colFirstName)
	hasLast := idx.Has(colLastName)
	splitName := idx.Has(colName) && !hasFirst && !hasLast
	tsCol, hasTS := idx.FirstPresent(LeadTimestampColumns)

	var stats LeadStats
	leads := make([]Lead, 0, len(rows))

	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		cell := func(col string) string {
			v, _ := idx.Cell(row, col, LeadMissing)
			return v
		}

		lead := Lead{
			Email: NormalizeEmail(cell(colEmail)),
			row:   len(leads),
		}

		if hasFirst {
			lead.FirstName = NormalizeName(cell(colFirstName))
		}
		if hasLast {
			lead.LastName = NormalizeName(cell(colLastName))
		}
		if splitName {
			lead.FirstName, lead.LastName = SplitName(cell(colName))
		}

		if raw, ok := idx.Cell(row, colIdentity, LeadMissing); ok {
			lead.Identity = ValidateIdentity(raw)
			if !lead.Identity.Valid {
				stats.InvalidIdentity++
			}
		}

		if hasTS {
			lead.LeadTimestamp = ToPgTimestamptz(cell(tsCol))
		}

		if !lead.Email.Valid {
			stats.MissingEmail++
		}

		leads = append(leads, lead)
	}

	stats.RowsRead = len(leads)
	deduped := DedupLeads(leads)
	stats.Duplicates = len(leads) - len(deduped)

	return LeadResult{Leads: deduped, Stats: stats}, nil
}

// DedupLeads orders leads newest first (missing timestamps last, then source
// order) and keeps the first lead seen for each email.
// Leads without an email are never treated as duplicates of each other.
func DedupLeads(leads []Lead) []Lead {
	sorted := slices.Clone(leads)
	slices.SortStableFunc(sorted, compareLeads)

	seen := make(map[string]struct{}, len(sorted))
	out := make([]Lead, 0, len(sorted))

	for _, l := range sorted {
		if l.Email.Valid {
			if _, dup := seen[l.Email.String]; dup {
				continue
			}
			seen[l.Email.String] = struct{}{}
		}
		out = append(out, l)
	}

	return out
}

func compareLeads(a, b Lead) int {
	at, bt := a.LeadTimestamp, b.LeadTimestamp
	switch {
	case at.Valid && !bt.Valid:
		return -1
	case !at.Valid && bt.Valid:
		return 1
	case at.Valid && bt.Valid:
		if c := bt.Time.Compare(at.Time); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.row, b.row)
}
