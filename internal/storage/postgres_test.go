package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCopier records statements and drains the copy source.
type fakeCopier struct {
	execs   []string
	table   pgx.Identifier
	columns []string
	rows    [][]any
	execErr error
	copyErr error
}

func (f *fakeCopier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (f *fakeCopier) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.table = table
	f.columns = columns
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.rows = append(f.rows, values)
	}
	return int64(len(f.rows)), src.Err()
}

func TestLoadRows(t *testing.T) {
	db := &fakeCopier{}

	n, err := loadRows(context.Background(), db, "customer_360", sampleRows())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, db.execs, 2)
	assert.True(t, strings.HasPrefix(db.execs[0], `CREATE TABLE IF NOT EXISTS "customer_360"`))
	assert.Equal(t, `TRUNCATE "customer_360"`, db.execs[1])

	assert.Equal(t, pgx.Identifier{"customer_360"}, db.table)
	assert.Equal(t, core.Customer360Columns, db.columns)
	require.Len(t, db.rows, 2)
	require.Len(t, db.rows[0], len(core.Customer360Columns))

	spent, ok := db.rows[0][7].(pgtype.Numeric)
	require.True(t, ok, "total_spent is copied as numeric")
	assert.True(t, spent.Valid)

	assert.Equal(t, int64(12), db.rows[0][5])
	assert.False(t, db.rows[1][0].(pgtype.UUID).Valid)
}

func TestLoadRows_ExecError(t *testing.T) {
	db := &fakeCopier{execErr: errors.New("permission denied")}

	_, err := loadRows(context.Background(), db, "customer_360", sampleRows())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table")
	assert.Nil(t, db.rows)
}

func TestLoadRows_CopyError(t *testing.T) {
	db := &fakeCopier{copyErr: errors.New("connection reset")}

	_, err := loadRows(context.Background(), db, "customer_360", sampleRows())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy")
}

func TestNewPostgresLoader_Validation(t *testing.T) {
	_, err := NewPostgresLoader(nil, "customer_360", 0)
	assert.Error(t, err)
}

func TestTableNameRegex(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"customer_360", true},
		{"_staging", true},
		{"Customer360", false},
		{"360_customers", false},
		{"customers; drop table x", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tableNameRegex.MatchString(tt.name); got != tt.want {
			t.Errorf("tableNameRegex(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
