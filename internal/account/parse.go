package account

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FieldParseError reports a timestamp value that could not be read as a
// calendar date. It never aborts a run; the field degrades to Unknown.
type FieldParseError struct {
	Field Field
	Value string
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("%s: unsupported timestamp %q", e.Field, e.Value)
}

var errUnsupported = errors.New("unsupported timestamp format")

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"01-02-2006",
}

var neverMarkers = map[string]struct{}{
	"":        {},
	"never":   {},
	"0":       {},
	"n/a":     {},
	"na":      {},
	"none":    {},
	"null":    {},
	"-":       {},
	"(never)": {},
}

var (
	generalizedTime = regexp.MustCompile(`^(\d{14})(?:\.\d+)?Z?$`)
	digitsOnly      = regexp.MustCompile(`^\d+$`)
	relativeAge     = regexp.MustCompile(`(?i)^(?:(\d+)\s*years?,?\s*(?:and\s+)?)?(?:(\d+)\s*months?,?\s*(?:and\s+)?)?(?:(\d+)\s*days?)?(?:\s*ago)?$`)
)

// directoryEpoch is the FILETIME origin. Directory exports print it, or
// anything before it, for attributes that were never set.
var directoryEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	filetimeUnixOffset = 11644473600
	filetimeNever      = "9223372036854775807"
)

// IsNeverMarker reports whether the value is an explicit "no value" marker.
func IsNeverMarker(value string) bool {
	_, ok := neverMarkers[strings.ToLower(strings.TrimSpace(value))]
	return ok || strings.TrimSpace(value) == filetimeNever
}

// ParseTime reads an absolute timestamp in any supported encoding.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	if m := generalizedTime.FindStringSubmatch(value); m != nil {
		return time.Parse("20060102150405", m[1])
	}
	if digitsOnly.MatchString(value) {
		return parseNumeric(value)
	}
	// Layouts only hold numeric fields and upper-case markers, so folding
	// the case admits lower-case am/pm and t/z separators.
	upper := strings.ToUpper(value)
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, upper); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s", errUnsupported, value)
}

func parseNumeric(value string) (time.Time, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", errUnsupported, value)
	}
	switch {
	case len(value) >= 17:
		// FILETIME: 100ns ticks since 1601-01-01.
		secs := n/10_000_000 - filetimeUnixOffset
		nanos := (n % 10_000_000) * 100
		return time.Unix(secs, nanos).UTC(), nil
	case len(value) >= 9 && len(value) <= 11:
		return time.Unix(n, 0).UTC(), nil
	case len(value) == 8:
		return time.Parse("20060102", value)
	}
	return time.Time{}, fmt.Errorf("%w: %s", errUnsupported, value)
}

// parseRelative resolves "N years, M months and D days" against now.
func parseRelative(value string, now time.Time) (time.Time, bool) {
	m := relativeAge.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return time.Time{}, false
	}
	parts := [3]int{}
	for i, group := range m[1:4] {
		if group == "" {
			continue
		}
		n, err := strconv.Atoi(group)
		if err != nil {
			return time.Time{}, false
		}
		parts[i] = n
	}
	return now.AddDate(-parts[0], -parts[1], -parts[2]), true
}

// ParseTimestamp converts one raw field value. Never-markers and the
// directory epoch yield Unknown with a nil error; anything else that cannot
// be read yields Unknown with a *FieldParseError.
func ParseTimestamp(field Field, value string, now time.Time) (Timestamp, error) {
	if IsNeverMarker(value) {
		return Unknown, nil
	}
	if parsed, err := ParseTime(value); err == nil {
		if !parsed.After(directoryEpoch) {
			return Unknown, nil
		}
		return KnownAt(parsed), nil
	}
	if parsed, ok := parseRelative(value, now); ok {
		return KnownAt(parsed), nil
	}
	return Unknown, &FieldParseError{Field: field, Value: strings.TrimSpace(value)}
}
