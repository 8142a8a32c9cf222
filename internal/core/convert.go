package core

// convert.go provides the field coercions shared by the three source readers.
//
// These functions handle the messy reality of exported CRM, clickstream and
// ledger data:
//   - UUIDs in any case, with stray whitespace, or not UUIDs at all
//   - Many timestamp layouts, with or without a zone
//   - Numbers as JSON numbers, numeric strings, or garbage
//
// All ToPg* functions return pgtype values with Valid=false for empty/invalid
// input. None of them return errors: a bad value is a data-quality problem,
// never a reason to stop the run.

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// identityRegex is the only accepted identity shape. uuid.Parse alone is too
// lenient: it also takes braces, urn:uuid: prefixes and undashed hex.
var identityRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Timestamp layouts tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006 15:04:05 -0700",
	time.RFC1123Z,
	time.RFC1123,
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
// 1e11 seconds is in the year 5138; 1e11 milliseconds is March 1973.
const epochMillisThreshold = 1e11

// ValidateIdentity returns the trimmed value as a UUID if it has the exact
// 8-4-4-4-12 hex shape. Anything else is an absent identity.
func ValidateIdentity(s string) pgtype.UUID {
	s = strings.TrimSpace(s)
	if !identityRegex.MatchString(s) {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// IdentityString returns the canonical lowercase form of an identity.
// Returns empty string if the identity is absent.
func IdentityString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(s string) pgtype.Text {
	t := ToPgText(s)
	if t.Valid {
		t.String = strings.ToLower(t.String)
	}
	return t
}

// NormalizeName trims, lowercases and title-cases each word: "jOHN  smith" -> "John  Smith".
func NormalizeName(s string) pgtype.Text {
	t := ToPgText(s)
	if !t.Valid {
		return t
	}
	// A Caser carries state, so one is built per call.
	t.String = cases.Title(language.Und).String(strings.ToLower(t.String))
	return t
}

// SplitName splits a combined name on its first run of whitespace.
// The second part is everything after that run, and may itself contain spaces.
func SplitName(s string) (first, last pgtype.Text) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}, pgtype.Text{}
	}
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return NormalizeName(s), pgtype.Text{}
	}
	return NormalizeName(s[:idx]), NormalizeName(strings.TrimLeftFunc(s[idx:], unicode.IsSpace))
}

// ToPgTimestamptz converts a string to a UTC pgtype.Timestamptz.
// Unparseable values are invalid, never an error.
func ToPgTimestamptz(s string) pgtype.Timestamptz {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Timestamptz{Valid: false}
	}

	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
		}
	}

	return pgtype.Timestamptz{Valid: false}
}

// ToPgTimestamptzValue converts a decoded JSON value to a UTC timestamp.
// Strings go through ToPgTimestamptz; numbers are epoch seconds, or epoch
// milliseconds when too large to be seconds.
func ToPgTimestamptzValue(v any) pgtype.Timestamptz {
	switch val := v.(type) {
	case string:
		return ToPgTimestamptz(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return pgtype.Timestamptz{Valid: false}
		}
		return epochToTimestamptz(f)
	case float64:
		return epochToTimestamptz(val)
	default:
		return pgtype.Timestamptz{Valid: false}
	}
}

func epochToTimestamptz(f float64) pgtype.Timestamptz {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return pgtype.Timestamptz{Valid: false}
	}
	if f >= epochMillisThreshold {
		return pgtype.Timestamptz{Time: time.UnixMilli(int64(f)).UTC(), Valid: true}
	}
	sec, frac := math.Modf(f)
	return pgtype.Timestamptz{Time: time.Unix(int64(sec), int64(frac*1e9)).UTC(), Valid: true}
}

// ToDecimal parses a numeric string exactly.
// Returns ok=false for empty or non-numeric input.
func ToDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ToCount converts a decoded JSON value to a non-negative count.
// Fractions truncate toward zero. Anything unparseable, negative or beyond
// the int64 range counts as 0.
func ToCount(v any) int64 {
	var d decimal.Decimal
	switch val := v.(type) {
	case json.Number:
		parsed, ok := ToDecimal(val.String())
		if !ok {
			return 0
		}
		d = parsed
	case string:
		parsed, ok := ToDecimal(val)
		if !ok {
			return 0
		}
		d = parsed
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0
		}
		d = decimal.NewFromFloat(val)
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return 0
	}

	if d.IsNegative() || d.GreaterThan(maxCount) {
		return 0
	}
	return d.IntPart()
}

var maxCount = decimal.NewFromInt(math.MaxInt64)

// addCounts adds two non-negative counts, saturating at math.MaxInt64.
func addCounts(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
