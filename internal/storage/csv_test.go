package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []core.Customer360 {
	return []core.Customer360{
		{
			Identity:          core.ValidateIdentity("AAAAAAAA-1111-2222-3333-444444444444"),
			Email:             core.NormalizeEmail("ann@x.com"),
			FirstName:         core.NormalizeName("ann"),
			LastName:          core.NormalizeName("lee, jr"),
			LeadTimestamp:     core.ToPgTimestamptz("2024-01-01T09:30:00+01:00"),
			TotalPageViews:    12,
			LastSeen:          core.ToPgTimestamptz("2024-02-01T00:00:00Z"),
			TotalSpent:        decimal.RequireFromString("10.30"),
			TransactionsCount: 2,
			LastTransaction:   core.ToPgTimestamptz("2024-03-01T00:00:00.5Z"),
		},
		{
			Email:      core.NormalizeEmail("anon@x.com"),
			TotalSpent: decimal.Zero,
		},
	}
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, core.Customer360Columns, records[0])
	assert.Equal(t, []string{
		"aaaaaaaa-1111-2222-3333-444444444444",
		"ann@x.com",
		"Ann",
		"Lee, Jr",
		"2024-01-01T08:30:00Z",
		"12",
		"2024-02-01T00:00:00Z",
		"10.3",
		"2",
		"2024-03-01T00:00:00.5Z",
	}, records[1])
	assert.Equal(t, []string{"", "anon@x.com", "", "", "", "0", "", "0", "0", ""}, records[2])
}

func TestEncodeCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, nil))
	assert.Equal(t, strings.Join(core.Customer360Columns, ",")+"\n", buf.String())
}

func TestCSVWriter_Save(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter()
	require.NoError(t, w.Probe())

	path, err := w.Save(context.Background(), dir, sampleRows())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, CSVFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "identity,email,first_name,"))
}
