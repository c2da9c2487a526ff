package report

import (
	"encoding/json"
	"os"

	"password-age-audit/internal/account"
	"password-age-audit/internal/analysis"
)

type statsJSON struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	StdDev *float64 `json:"stddev"`
}

type findingJSON struct {
	analysis.Finding
	Accounts []string `json:"accounts"`
}

type fieldDiagnostics struct {
	Missing    int `json:"missing"`
	Unparsable int `json:"unparsable"`
}

// Document is the machine-readable form of a run.
type Document struct {
	AsOf        string                      `json:"as_of"`
	Total       int                         `json:"total_accounts"`
	Domains     []analysis.DomainSummary    `json:"domains"`
	PasswordAge statsJSON                   `json:"password_age_years"`
	LogonAge    statsJSON                   `json:"logon_age_years"`
	AccountAge  statsJSON                   `json:"account_age_years"`
	Findings    []findingJSON               `json:"findings"`
	Compliance  analysis.ComplianceSummary  `json:"compliance"`
	Diagnostics map[string]fieldDiagnostics `json:"parse_diagnostics"`
}

// NewDocument converts composer input to its JSON form. Undefined
// statistics become null rather than zero.
func NewDocument(in Input) Document {
	doc := Document{
		AsOf:        in.AsOf.UTC().Format("2006-01-02T15:04:05Z"),
		Total:       in.Total,
		Domains:     in.Domains,
		PasswordAge: toStatsJSON(in.PasswordAge),
		LogonAge:    toStatsJSON(in.LogonAge),
		AccountAge:  toStatsJSON(in.AccountAge),
		Compliance:  in.Compliance,
		Diagnostics: map[string]fieldDiagnostics{},
	}
	if doc.Domains == nil {
		doc.Domains = []analysis.DomainSummary{}
	}
	for _, f := range in.Findings {
		names := make([]string, 0, len(f.Accounts))
		for _, d := range f.Accounts {
			names = append(names, d.QualifiedName())
		}
		doc.Findings = append(doc.Findings, findingJSON{Finding: f, Accounts: names})
	}
	for _, field := range account.Fields() {
		doc.Diagnostics[field.String()] = fieldDiagnostics{
			Missing:    in.ParseStats.MissingCount(field),
			Unparsable: in.ParseStats.UnparsableCount(field),
		}
	}
	return doc
}

func toStatsJSON(s analysis.Stats) statsJSON {
	out := statsJSON{Count: s.Count}
	if !s.Defined() {
		return out
	}
	mean, median, lo, hi := s.Mean, s.Median, s.Min, s.Max
	out.Mean, out.Median, out.Min, out.Max = &mean, &median, &lo, &hi
	if s.HasStdDev() {
		sd := s.StdDev
		out.StdDev = &sd
	}
	return out
}

// WriteJSON writes the document for in to path.
func WriteJSON(in Input, path string) error {
	data, err := json.MarshalIndent(NewDocument(in), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
