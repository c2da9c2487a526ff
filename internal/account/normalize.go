package account

import (
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// ParseStats counts per-field values that carried no timestamp. Missing
// values were explicit never-markers; unparsable ones were text the
// normalizer could not read.
type ParseStats struct {
	Missing    [fieldCount]int
	Unparsable [fieldCount]int
}

func (s ParseStats) MissingCount(f Field) int    { return s.Missing[f] }
func (s ParseStats) UnparsableCount(f Field) int { return s.Unparsable[f] }

// TotalUnparsable sums unparsable values across fields.
func (s ParseStats) TotalUnparsable() int {
	total := 0
	for _, n := range s.Unparsable {
		total += n
	}
	return total
}

// Merge adds other into s. Merging is associative and commutative, so
// per-worker partials combine to the same totals in any order.
func (s *ParseStats) Merge(other ParseStats) {
	for i := range s.Missing {
		s.Missing[i] += other.Missing[i]
		s.Unparsable[i] += other.Unparsable[i]
	}
}

// Normalizer turns raw rows into records. Relative age strings are resolved
// against the reference time it was built with.
type Normalizer struct {
	now time.Time
	log logrus.FieldLogger
}

func NewNormalizer(now time.Time, log logrus.FieldLogger) *Normalizer {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Normalizer{now: now, log: log}
}

// Normalize parses every timestamp field of the row. It never fails:
// unreadable fields become Unknown and are tallied in stats.
func (n *Normalizer) Normalize(raw RawRow, stats *ParseStats) Record {
	rec := Record{
		Domain: raw.Domain,
		Name:   raw.Name,
		Raw:    raw,
	}
	for _, f := range Fields() {
		ts := n.parseField(f, raw, stats)
		switch f {
		case FieldLastLogon:
			rec.LastLogon = ts
		case FieldPasswordChanged:
			rec.PasswordChanged = ts
		case FieldCreated:
			rec.Created = ts
		}
	}
	return rec
}

func (n *Normalizer) parseField(f Field, raw RawRow, stats *ParseStats) Timestamp {
	ts, err := ParseTimestamp(f, raw.Value(f), n.now)
	if err != nil {
		var perr *FieldParseError
		if errors.As(err, &perr) {
			n.log.WithFields(logrus.Fields{
				"line":  raw.Line,
				"name":  raw.Name,
				"field": perr.Field.String(),
				"value": perr.Value,
			}).Debug("unparsable timestamp, treating as unknown")
		}
		stats.Unparsable[f]++
		return Unknown
	}
	if !ts.Known() {
		stats.Missing[f]++
	}
	return ts
}
