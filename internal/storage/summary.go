package storage

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// SummaryStatusLine is the first line of the summary body.
const SummaryStatusLine = "Customer 360 ETL executed successfully."

// WriteSummary renders the run summary as Markdown with YAML front matter.
func WriteSummary(w io.Writer, summary core.RunSummary) error {
	front, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(front)
	buf.WriteString("---\n\n")
	buf.WriteString(SummaryStatusLine + "\n\n")

	fmt.Fprintf(&buf, "Run `%s` finished in %s with %d customer records (%s).\n\n",
		summary.RunID, summary.Duration().Round(time.Millisecond), summary.Customers, summary.OutputFormat)

	buf.WriteString("## Sources\n\n")
	for _, line := range formatTable([][]string{
		{"Source", "Path", "Read", "Kept", "Dropped"},
		{"Leads", summary.Sources.Leads, itoa(summary.Leads.RowsRead), itoa(summary.Leads.RowsRead - summary.Leads.Duplicates), itoa(summary.Leads.Duplicates)},
		{"Activity", summary.Sources.Activity, itoa(summary.Activity.LinesRead), itoa(summary.Activity.Identities), itoa(summary.Activity.Malformed + summary.Activity.Discarded)},
		{"Transactions", summary.Sources.Transactions, itoa(summary.Transactions.RowsRead), itoa(summary.Transactions.Accepted), itoa(summary.Transactions.Rejected)},
	}) {
		buf.WriteString(line + "\n")
	}

	if len(summary.Artifacts) > 0 {
		buf.WriteString("\n## Artifacts\n\n")
		for _, a := range summary.Artifacts {
			fmt.Fprintf(&buf, "- `%s`\n", a)
		}
	}

	_, err = w.Write(buf.Bytes())
	return err
}

// formatTable renders rows as a Markdown table. The first row is the header.
// Columns are padded to their display width so wide runes line up.
func formatTable(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	colCount := 0
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	widths := make([]int, colCount)
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	render := func(cells []string) string {
		var sb strings.Builder
		sb.WriteString("|")
		for j := 0; j < colCount; j++ {
			content := ""
			if j < len(cells) {
				content = cells[j]
			}
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(content, widths[j]))
			sb.WriteString(" |")
		}
		return sb.String()
	}

	sep := make([]string, colCount)
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}

	out := make([]string, 0, len(rows)+1)
	out = append(out, render(rows[0]), render(sep))
	for _, row := range rows[1:] {
		out = append(out, render(row))
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
