package storage

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
)

// CSVWriter writes the dataset as comma-separated text with a header row.
// Null values are empty cells; timestamps are RFC 3339 in UTC.
type CSVWriter struct{}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Format implements Writer.
func (w *CSVWriter) Format() string {
	return FormatCSV
}

// Probe implements Writer. Delimited text is always available.
func (w *CSVWriter) Probe() error {
	return nil
}

// Save implements Writer.
func (w *CSVWriter) Save(ctx context.Context, dir string, rows []core.Customer360) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return writeAtomic(dir, CSVFileName, func(out io.Writer) error {
		return EncodeCSV(out, rows)
	})
}

// EncodeCSV writes the header and one record per row.
func EncodeCSV(out io.Writer, rows []core.Customer360) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(core.Customer360Columns); err != nil {
		return err
	}
	for _, c := range rows {
		if err := cw.Write(csvRecord(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(c core.Customer360) []string {
	return []string{
		core.IdentityString(c.Identity),
		textCell(c.Email),
		textCell(c.FirstName),
		textCell(c.LastName),
		timeCell(c.LeadTimestamp),
		strconv.FormatInt(c.TotalPageViews, 10),
		timeCell(c.LastSeen),
		c.TotalSpent.String(),
		strconv.FormatInt(c.TransactionsCount, 10),
		timeCell(c.LastTransaction),
	}
}

func textCell(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

func timeCell(t pgtype.Timestamptz) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339Nano)
}
