package analysis

import (
	"sort"
	"time"
)

// AgePoint pairs the account age and password age of one account, in years.
type AgePoint struct {
	Name        string
	AccountAge  float64
	PasswordAge float64
}

// CreationPoint places one account creation on the timeline.
type CreationPoint struct {
	Domain  string
	Name    string
	Created time.Time
}

// Brackets are the account-age ranges of the per-domain distribution.
var Brackets = []string{"<90 days", "90d-1yr", "1-2yr", "2-5yr", "5-10yr", "10-15yr", "15-20yr", ">20yr", "future", "unknown"}

var bracketBounds = []float64{0.25, 1, 2, 5, 10, 15, 20}

// DomainBrackets counts accounts per age bracket for one domain, indexed
// like Brackets.
type DomainBrackets struct {
	Domain string
	Counts []int
}

// Series holds the numeric sequences a chart renderer needs. Nothing in it
// is computed beyond what the derived records already carry.
type Series struct {
	Scatter        []AgePoint
	PasswordAges   []float64
	LogonAges      []float64
	Timeline       []CreationPoint
	DomainBrackets []DomainBrackets
}

// BuildSeries extracts chart series. Scatter and histogram values keep
// input order; the timeline is ordered by creation time, then domain.
func BuildSeries(derived []Derived, domains []DomainSummary) Series {
	s := Series{
		PasswordAges: knownYears(derived, passwordAge),
		LogonAges:    knownYears(derived, logonAge),
	}

	brackets := make(map[string][]int, len(domains))
	for _, d := range derived {
		acct, okA := d.AccountAge.Years()
		pwd, okP := d.PasswordAge.Years()
		if okA && okP {
			s.Scatter = append(s.Scatter, AgePoint{Name: d.QualifiedName(), AccountAge: acct, PasswordAge: pwd})
		}

		domain := d.Domain
		if created, ok := d.Created.Time(); ok {
			s.Timeline = append(s.Timeline, CreationPoint{Domain: domain, Name: d.Name, Created: created})
		}

		counts, ok := brackets[domain]
		if !ok {
			counts = make([]int, len(Brackets))
			brackets[domain] = counts
		}
		counts[bracketIndex(d.AccountAge)]++
	}

	sort.SliceStable(s.Timeline, func(i, j int) bool {
		if !s.Timeline[i].Created.Equal(s.Timeline[j].Created) {
			return s.Timeline[i].Created.Before(s.Timeline[j].Created)
		}
		return s.Timeline[i].Domain < s.Timeline[j].Domain
	})

	for _, ds := range domains {
		if counts, ok := brackets[ds.Domain]; ok {
			s.DomainBrackets = append(s.DomainBrackets, DomainBrackets{Domain: ds.Domain, Counts: counts})
		}
	}
	return s
}

func bracketIndex(age Age) int {
	years, ok := age.Years()
	switch {
	case !ok:
		return len(Brackets) - 1
	case years < 0:
		return len(Brackets) - 2
	}
	for i, bound := range bracketBounds {
		if years <= bound {
			return i
		}
	}
	return len(bracketBounds)
}
