package analysis

import (
	"fmt"
	"math"
	"sort"
)

// ComputationError signals an aggregate that came out non-finite. Unknown
// ages never reach the aggregates, so this is a defect and aborts the run.
type ComputationError struct {
	Metric string
	Value  float64
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation error: %s produced %v", e.Metric, e.Value)
}

// Stats summarizes the known values of one age series, in years. When
// Count is zero no other field is meaningful.
type Stats struct {
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	StdDev float64
}

func (s Stats) Defined() bool { return s.Count > 0 }

// HasStdDev reports whether a sample standard deviation exists.
func (s Stats) HasStdDev() bool { return s.Count > 1 }

// Summarize computes the statistics of values. The values are sorted before
// summing, so the result does not depend on input order.
func Summarize(metric string, values []float64) (Stats, error) {
	if len(values) == 0 {
		return Stats{}, nil
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	n := len(sorted)
	s := Stats{
		Count: n,
		Mean:  sum / float64(n),
		Min:   sorted[0],
		Max:   sorted[n-1],
	}
	mid := n / 2
	if n%2 == 0 {
		s.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		s.Median = sorted[mid]
	}
	if n > 1 {
		sq := 0.0
		for _, v := range sorted {
			sq += (v - s.Mean) * (v - s.Mean)
		}
		s.StdDev = math.Sqrt(sq / float64(n-1))
	}

	checks := []struct {
		name  string
		value float64
	}{
		{"mean", s.Mean}, {"median", s.Median}, {"min", s.Min}, {"max", s.Max}, {"stddev", s.StdDev},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return Stats{}, &ComputationError{Metric: metric + "." + c.name, Value: c.value}
		}
	}
	return s, nil
}

// knownYears collects the known values of one age series in input order.
func knownYears(derived []Derived, pick func(Derived) Age) []float64 {
	values := make([]float64, 0, len(derived))
	for _, d := range derived {
		if years, ok := pick(d).Years(); ok {
			values = append(values, years)
		}
	}
	return values
}

func passwordAge(d Derived) Age { return d.PasswordAge }
func logonAge(d Derived) Age    { return d.LogonAge }
func accountAge(d Derived) Age  { return d.AccountAge }

// NoDomainLabel is shown for rows exported without a domain. Those rows are
// grouped under the empty domain, never under a real domain name.
const NoDomainLabel = "(no domain)"

// DomainLabel returns the display name of domain.
func DomainLabel(domain string) string {
	if domain == "" {
		return NoDomainLabel
	}
	return domain
}

// DomainSummary is one row of the domain distribution.
type DomainSummary struct {
	Domain  string  `json:"domain"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// SummarizeDomains counts accounts per domain, ordered by count descending
// then name, with the empty domain last among equal counts. Shares are apportioned in tenths of a percent with the largest
// remainder method, so they total exactly 100.0 for any non-empty input.
func SummarizeDomains(derived []Derived) []DomainSummary {
	counts := map[string]int{}
	for _, d := range derived {
		counts[d.Domain]++
	}

	result := make([]DomainSummary, 0, len(counts))
	for domain, count := range counts {
		result = append(result, DomainSummary{Domain: domain, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		if (result[i].Domain == "") != (result[j].Domain == "") {
			return result[j].Domain == ""
		}
		return result[i].Domain < result[j].Domain
	})

	total := len(derived)
	if total == 0 {
		return result
	}

	tenths := make([]int, len(result))
	remainders := make([]int, len(result))
	assigned := 0
	for i, entry := range result {
		tenths[i] = entry.Count * 1000 / total
		remainders[i] = entry.Count * 1000 % total
		assigned += tenths[i]
	}
	order := make([]int, len(result))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for k := 0; assigned < 1000; k++ {
		tenths[order[k%len(order)]]++
		assigned++
	}
	for i := range result {
		result[i].Percent = float64(tenths[i]) / 10
	}
	return result
}

// Percent returns n/total as a percentage rounded half-to-even to one
// decimal place. It is zero when total is zero.
func Percent(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	scaled := n * 1000
	q, r := scaled/total, scaled%total
	switch {
	case 2*r > total:
		q++
	case 2*r == total && q%2 == 1:
		q++
	}
	return float64(q) / 10
}
