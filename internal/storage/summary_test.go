package storage

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteSummary(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	summary := core.RunSummary{
		RunID:        "run-42",
		StartedAt:    start,
		FinishedAt:   start.Add(1500 * time.Millisecond),
		Sources:      core.Sources{Leads: "crm_leads.csv", Activity: "web_activity.json", Transactions: "transactions.txt"},
		OutputFormat: FormatCSV,
		Artifacts:    []string{"out/customer_360.csv"},
		Customers:    7,
		Leads:        core.LeadStats{RowsRead: 9, Duplicates: 2},
		Activity:     core.ActivityStats{LinesRead: 20, Malformed: 1, Discarded: 3, Identities: 5},
		Transactions: core.TransactionStats{RowsRead: 10, Accepted: 8, Rejected: 2, Rejections: 3, Identities: 4},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, summary))
	out := buf.String()

	require.True(t, strings.HasPrefix(out, "---\n"))
	parts := strings.SplitN(out[len("---\n"):], "---\n", 2)
	require.Len(t, parts, 2)

	var front core.RunSummary
	require.NoError(t, yaml.Unmarshal([]byte(parts[0]), &front))
	assert.Equal(t, "run-42", front.RunID)
	assert.Equal(t, 7, front.Customers)
	assert.Equal(t, 2, front.Leads.Duplicates)
	assert.True(t, front.StartedAt.Equal(start))

	body := parts[1]
	assert.Contains(t, body, SummaryStatusLine)
	assert.Contains(t, body, "1.5s")
	assert.Contains(t, body, "| Leads        | crm_leads.csv     | 9    | 7    | 2       |")
	assert.Contains(t, body, "- `out/customer_360.csv`")
}

func TestFormatTable(t *testing.T) {
	got := formatTable([][]string{
		{"Name", "N"},
		{"日本", "1"},
		{"ab", "100"},
	})

	assert.Equal(t, []string{
		"| Name | N   |",
		"| ---- | --- |",
		"| 日本 | 1   |",
		"| ab   | 100 |",
	}, got)
}

func TestFormatTable_Empty(t *testing.T) {
	assert.Nil(t, formatTable(nil))
}
