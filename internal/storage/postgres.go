package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table the loader replaces when none is configured.
const DefaultTable = "customer_360"

var tableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// copier is the subset of pgx.Tx used to load rows.
type copier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// PostgresLoader replaces the contents of a table with the merged dataset
// inside a single transaction.
type PostgresLoader struct {
	pool    *pgxpool.Pool
	table   string
	timeout time.Duration
}

// NewPostgresLoader creates a loader for table. The name must be a plain
// lowercase identifier.
func NewPostgresLoader(pool *pgxpool.Pool, table string, timeout time.Duration) (*PostgresLoader, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres loader: pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRegex.MatchString(table) {
		return nil, fmt.Errorf("postgres loader: invalid table name %q", table)
	}
	return &PostgresLoader{pool: pool, table: table, timeout: timeout}, nil
}

// Load implements core.Loader.
func (l *PostgresLoader) Load(ctx context.Context, rows []core.Customer360) (int64, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	var n int64
	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		var err error
		n, err = loadRows(ctx, tx, l.table, rows)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", l.table, err)
	}
	return n, nil
}

// loadRows creates the table if needed, empties it and copies rows in.
func loadRows(ctx context.Context, db copier, table string, rows []core.Customer360) (int64, error) {
	ident := pgx.Identifier{table}.Sanitize()

	if _, err := db.Exec(ctx, fmt.Sprintf(createTableSQL, ident)); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE "+ident); err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}

	values := make([][]any, len(rows))
	for i, c := range rows {
		rec, err := copyValues(c)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		values[i] = rec
	}

	n, err := db.CopyFrom(ctx, pgx.Identifier{table}, core.Customer360Columns, pgx.CopyFromRows(values))
	if err != nil {
		return 0, fmt.Errorf("copy: %w", err)
	}
	return n, nil
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	identity           UUID,
	email              TEXT,
	first_name         TEXT,
	last_name          TEXT,
	lead_timestamp     TIMESTAMPTZ,
	total_page_views   BIGINT NOT NULL DEFAULT 0,
	last_seen          TIMESTAMPTZ,
	total_spent        NUMERIC NOT NULL DEFAULT 0,
	transactions_count BIGINT NOT NULL DEFAULT 0,
	last_transaction   TIMESTAMPTZ
)`

func copyValues(c core.Customer360) ([]any, error) {
	var spent pgtype.Numeric
	if err := spent.Scan(c.TotalSpent.String()); err != nil {
		return nil, fmt.Errorf("total_spent: %w", err)
	}
	return []any{
		c.Identity,
		c.Email,
		c.FirstName,
		c.LastName,
		c.LeadTimestamp,
		c.TotalPageViews,
		c.LastSeen,
		spent,
		c.TransactionsCount,
		c.LastTransaction,
	}, nil
}
