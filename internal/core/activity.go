package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// Activity event field names (after key normalization).
const (
	fieldPageViews = "page_view_count"
	fieldLastSeen  = "last_seen_ts"
)

// AggregateActivity reads JSON-lines web activity and returns one summary per
// valid identity: page views summed, last_seen the latest event timestamp.
//
// Lines that are not a single JSON object are skipped. Events without a valid
// identity are discarded. An empty source yields an empty result, not an error.
// The output is sorted by identity, so it does not depend on line order.
func AggregateActivity(r io.Reader) (ActivityResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("activity: read: %w", err)
	}

	var stats ActivityStats
	acc := make(map[[16]byte]*ActivitySummary)

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		stats.LinesRead++

		event, ok := decodeObject(line)
		if !ok {
			stats.Malformed++
			continue
		}

		raw, _ := event[colIdentity].(string)
		id := ValidateIdentity(raw)
		if !id.Valid {
			stats.Discarded++
			continue
		}

		sum, ok := acc[id.Bytes]
		if !ok {
			sum = &ActivitySummary{Identity: id}
			acc[id.Bytes] = sum
		}
		sum.TotalPageViews = addCounts(sum.TotalPageViews, ToCount(event[fieldPageViews]))
		sum.LastSeen = maxTimestamptz(sum.LastSeen, ToPgTimestamptzValue(event[fieldLastSeen]))
	}

	out := make([]ActivitySummary, 0, len(acc))
	for _, sum := range acc {
		out = append(out, *sum)
	}
	slices.SortFunc(out, func(a, b ActivitySummary) int {
		return bytes.Compare(a.Identity.Bytes[:], b.Identity.Bytes[:])
	})

	stats.Identities = len(out)
	return ActivityResult{Summaries: out, Stats: stats}, nil
}

// decodeObject parses a line holding exactly one JSON object.
// Keys are trimmed and lowercased; numbers are kept as json.Number.
// When several keys normalize to the same name, a key already in normal
// form wins, then the lowest key in byte order.
func decodeObject(line string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}

	out := make(map[string]any, len(obj))
	exact := make(map[string]bool, len(obj))
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		norm := strings.ToLower(strings.TrimSpace(k))
		if exact[norm] {
			continue
		}
		if _, seen := out[norm]; seen && k != norm {
			continue
		}
		out[norm] = obj[k]
		exact[norm] = k == norm
	}
	return out, true
}
