// Package chartdata writes the numeric series behind each report chart as
// CSV so any plotting tool can render them.
package chartdata

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"password-age-audit/internal/analysis"
)

const (
	ScatterFile      = "account_vs_password_age.csv"
	PasswordHistFile = "password_age_distribution.csv"
	LogonHistFile    = "last_logon_distribution.csv"
	TimelineFile     = "account_creation_timeline.csv"
	BracketsFile     = "account_age_distribution_by_domain.csv"
)

// Write stores every series under dir and returns the written paths.
func Write(dir string, s analysis.Series) ([]string, error) {
	files := []struct {
		name string
		rows [][]string
	}{
		{ScatterFile, scatterRows(s.Scatter)},
		{PasswordHistFile, valueRows("password_age_years", s.PasswordAges)},
		{LogonHistFile, valueRows("years_since_logon", s.LogonAges)},
		{TimelineFile, timelineRows(s.Timeline)},
		{BracketsFile, bracketRows(s.DomainBrackets)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeCSV(path, f.rows); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func scatterRows(points []analysis.AgePoint) [][]string {
	rows := [][]string{{"account", "account_age_years", "password_age_years"}}
	for _, p := range points {
		rows = append(rows, []string{p.Name, formatFloat(p.AccountAge), formatFloat(p.PasswordAge)})
	}
	return rows
}

func valueRows(header string, values []float64) [][]string {
	rows := [][]string{{header}}
	for _, v := range values {
		rows = append(rows, []string{formatFloat(v)})
	}
	return rows
}

// timelineRows adds the running per-domain count the timeline plots on its
// y axis.
func timelineRows(points []analysis.CreationPoint) [][]string {
	rows := [][]string{{"domain", "account", "created", "cumulative_count"}}
	running := map[string]int{}
	for _, p := range points {
		running[p.Domain]++
		rows = append(rows, []string{analysis.DomainLabel(p.Domain), p.Name, p.Created.Format("2006-01-02T15:04:05Z"), strconv.Itoa(running[p.Domain])})
	}
	return rows
}

func bracketRows(domains []analysis.DomainBrackets) [][]string {
	rows := [][]string{append([]string{"domain"}, analysis.Brackets...)}
	for _, d := range domains {
		row := []string{analysis.DomainLabel(d.Domain)}
		for _, n := range d.Counts {
			row = append(row, strconv.Itoa(n))
		}
		rows = append(rows, row)
	}
	return rows
}

// writeCSV reports the first of the write, flush and close errors.
func writeCSV(path string, rows [][]string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
