package account

import "time"

// Field identifies one of the timestamp attributes carried by an account row.
type Field int

const (
	FieldLastLogon Field = iota
	FieldPasswordChanged
	FieldCreated

	fieldCount = 3
)

var fieldNames = [fieldCount]string{
	FieldLastLogon:       "last_logon",
	FieldPasswordChanged: "last_password_change",
	FieldCreated:         "account_created",
}

func (f Field) String() string {
	if f < 0 || int(f) >= fieldCount {
		return "unknown_field"
	}
	return fieldNames[f]
}

// Fields lists every timestamp field in report order.
func Fields() []Field {
	return []Field{FieldLastLogon, FieldPasswordChanged, FieldCreated}
}

// Timestamp is either a known instant or unknown. The zero value is unknown.
type Timestamp struct {
	at    time.Time
	known bool
}

// KnownAt returns a known timestamp normalized to UTC.
func KnownAt(t time.Time) Timestamp {
	return Timestamp{at: t.UTC(), known: true}
}

// Unknown is the timestamp recorded for missing or unparsable values.
var Unknown = Timestamp{}

func (t Timestamp) Known() bool { return t.known }

// Time returns the instant and whether it is known.
func (t Timestamp) Time() (time.Time, bool) {
	return t.at, t.known
}

func (t Timestamp) String() string {
	if !t.known {
		return "unknown"
	}
	return t.at.Format(time.RFC3339)
}

// RawRow is one input row before timestamp parsing.
type RawRow struct {
	Line            int
	Domain          string
	Name            string
	LastLogon       string
	PasswordChanged string
	Created         string
}

// Value returns the raw text of a timestamp field.
func (r RawRow) Value(f Field) string {
	switch f {
	case FieldLastLogon:
		return r.LastLogon
	case FieldPasswordChanged:
		return r.PasswordChanged
	case FieldCreated:
		return r.Created
	}
	return ""
}

// Record is a normalized account row. Unparsable timestamps stay in the
// record as Unknown rather than dropping the row.
type Record struct {
	Domain          string
	Name            string
	LastLogon       Timestamp
	PasswordChanged Timestamp
	Created         Timestamp
	Raw             RawRow
}

// Timestamp returns the normalized value of a field.
func (r Record) Timestamp(f Field) Timestamp {
	switch f {
	case FieldLastLogon:
		return r.LastLogon
	case FieldPasswordChanged:
		return r.PasswordChanged
	case FieldCreated:
		return r.Created
	}
	return Unknown
}

// QualifiedName renders the account as DOMAIN\name.
func (r Record) QualifiedName() string {
	if r.Domain == "" {
		return r.Name
	}
	return r.Domain + `\` + r.Name
}
