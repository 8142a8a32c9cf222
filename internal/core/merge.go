package core

import "github.com/shopspring/decimal"

// Merge left-joins leads with the activity and transaction summaries on
// identity. Every lead appears exactly once, in input order. Metrics with no
// match default to zero and their timestamps stay null; a lead without a
// valid identity matches nothing.
func Merge(leads []Lead, activity []ActivitySummary, transactions []TransactionSummary) []Customer360 {
	activityByID := make(map[[16]byte]ActivitySummary, len(activity))
	for _, a := range activity {
		if a.Identity.Valid {
			activityByID[a.Identity.Bytes] = a
		}
	}

	txByID := make(map[[16]byte]TransactionSummary, len(transactions))
	for _, t := range transactions {
		if t.Identity.Valid {
			txByID[t.Identity.Bytes] = t
		}
	}

	out := make([]Customer360, 0, len(leads))
	for _, lead := range leads {
		row := Customer360{
			Identity:      lead.Identity,
			Email:         lead.Email,
			FirstName:     lead.FirstName,
			LastName:      lead.LastName,
			LeadTimestamp: lead.LeadTimestamp,
			TotalSpent:    decimal.Zero,
		}

		if lead.Identity.Valid {
			if a, ok := activityByID[lead.Identity.Bytes]; ok {
				row.TotalPageViews = a.TotalPageViews
				row.LastSeen = a.LastSeen
			}
			if t, ok := txByID[lead.Identity.Bytes]; ok {
				row.TotalSpent = t.TotalSpent
				row.TransactionsCount = t.TransactionsCount
				row.LastTransaction = t.LastTransaction
			}
		}

		out = append(out, row)
	}

	return out
}
