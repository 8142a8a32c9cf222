package storage

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// total_spent is DECIMAL(38,9): a 16-byte big-endian two's-complement
// unscaled integer.
const (
	spentScale     = 9
	spentPrecision = 38
	spentBytes     = 16
)

var (
	spentLimit = new(big.Int).Exp(big.NewInt(10), big.NewInt(spentPrecision), nil)
	spentWrap  = new(big.Int).Lsh(big.NewInt(1), spentBytes*8)
)

// parquetRow is the columnar schema of the dataset. Field order matches
// core.Customer360Columns.
type parquetRow struct {
	Identity          *string          `parquet:"identity,optional"`
	Email             *string          `parquet:"email,optional"`
	FirstName         *string          `parquet:"first_name,optional"`
	LastName          *string          `parquet:"last_name,optional"`
	LeadTimestamp     *time.Time       `parquet:"lead_timestamp,optional"`
	TotalPageViews    int64            `parquet:"total_page_views"`
	LastSeen          *time.Time       `parquet:"last_seen,optional"`
	TotalSpent        [spentBytes]byte `parquet:"total_spent,decimal(9:38)"`
	TransactionsCount int64            `parquet:"transactions_count"`
	LastTransaction   *time.Time       `parquet:"last_transaction,optional"`
}

// ParquetWriter writes the dataset as a Parquet file.
type ParquetWriter struct{}

// NewParquetWriter creates a Parquet writer.
func NewParquetWriter() *ParquetWriter {
	return &ParquetWriter{}
}

// Format implements Writer.
func (w *ParquetWriter) Format() string {
	return FormatParquet
}

// Probe builds the schema and writes an empty file to io.Discard.
func (w *ParquetWriter) Probe() error {
	return encodeParquet(io.Discard, nil)
}

// Save implements Writer.
func (w *ParquetWriter) Save(ctx context.Context, dir string, rows []core.Customer360) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return writeAtomic(dir, ParquetFileName, func(out io.Writer) error {
		return encodeParquet(out, rows)
	})
}

// encodeParquet writes rows to out. Schema or encoder panics surface as
// ErrFormatUnsupported so the sink can fall back.
func encodeParquet(out io.Writer, rows []core.Customer360) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parquet: %v", ErrFormatUnsupported, r)
		}
	}()

	prows, err := toParquetRows(rows)
	if err != nil {
		return err
	}

	pw := parquet.NewGenericWriter[parquetRow](out)
	if len(prows) > 0 {
		if _, err := pw.Write(prows); err != nil {
			pw.Close()
			return fmt.Errorf("parquet write: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("parquet close: %w", err)
	}
	return nil
}

func toParquetRows(rows []core.Customer360) ([]parquetRow, error) {
	out := make([]parquetRow, len(rows))
	for i, c := range rows {
		spent, err := decimalBytes(c.TotalSpent)
		if err != nil {
			return nil, err
		}
		out[i] = parquetRow{
			Identity:          optionalString(core.IdentityString(c.Identity)),
			Email:             textPtr(c.Email),
			FirstName:         textPtr(c.FirstName),
			LastName:          textPtr(c.LastName),
			LeadTimestamp:     timePtr(c.LeadTimestamp),
			TotalPageViews:    c.TotalPageViews,
			LastSeen:          timePtr(c.LastSeen),
			TotalSpent:        spent,
			TransactionsCount: c.TransactionsCount,
			LastTransaction:   timePtr(c.LastTransaction),
		}
	}
	return out, nil
}

// decimalBytes encodes d as a total_spent value. Digits past the scale are
// rounded; values beyond the precision are ErrFormatUnsupported.
func decimalBytes(d decimal.Decimal) ([spentBytes]byte, error) {
	var out [spentBytes]byte
	unscaled := d.Shift(spentScale).Round(0).BigInt()
	if new(big.Int).Abs(unscaled).Cmp(spentLimit) >= 0 {
		return out, fmt.Errorf("%w: total_spent %s exceeds decimal(%d,%d)", ErrFormatUnsupported, d, spentPrecision, spentScale)
	}
	if unscaled.Sign() < 0 {
		unscaled.Add(unscaled, spentWrap)
	}
	unscaled.FillBytes(out[:])
	return out, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
