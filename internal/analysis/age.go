package analysis

import (
	"time"

	"password-age-audit/internal/account"
)

// DaysPerYear is the day-count convention used for every derived age.
const DaysPerYear = 365.25

const secondsPerDay = 86400

// Age is either a known duration or unknown. Known ages may be negative
// when the source timestamp lies after the reference time.
type Age struct {
	days  float64
	known bool
}

// KnownDays builds a known age from a day count.
func KnownDays(days float64) Age {
	return Age{days: days, known: true}
}

// KnownYears builds a known age from a year count.
func KnownYears(years float64) Age {
	return Age{days: years * DaysPerYear, known: true}
}

func (a Age) Known() bool { return a.known }

func (a Age) Days() (float64, bool) { return a.days, a.known }

func (a Age) Years() (float64, bool) { return a.days / DaysPerYear, a.known }

// over reports whether the age is known and strictly greater than years.
func (a Age) over(years float64) bool {
	return a.known && a.days > years*DaysPerYear
}

// ageAt measures now - ts on Unix seconds so timestamps centuries apart do
// not saturate time.Duration.
func ageAt(ts account.Timestamp, now time.Time) Age {
	at, ok := ts.Time()
	if !ok {
		return Age{}
	}
	secs := float64(now.Unix()-at.Unix()) + float64(now.Nanosecond()-at.Nanosecond())/1e9
	return KnownDays(secs / secondsPerDay)
}

// Derived is a record with its three ages measured against one reference
// time. It is not mutated after derivation.
type Derived struct {
	account.Record
	PasswordAge Age
	LogonAge    Age
	AccountAge  Age
}

// Derive computes the ages of rec relative to now.
func Derive(rec account.Record, now time.Time) Derived {
	return Derived{
		Record:      rec,
		PasswordAge: ageAt(rec.PasswordChanged, now),
		LogonAge:    ageAt(rec.LastLogon, now),
		AccountAge:  ageAt(rec.Created, now),
	}
}
