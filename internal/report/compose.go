package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"password-age-audit/internal/account"
	"password-age-audit/internal/analysis"
)

const ruleWidth = 80

// Input is everything the composer renders. It carries already computed
// values only; composing never recomputes a count.
type Input struct {
	AsOf        time.Time
	Total       int
	Domains     []analysis.DomainSummary
	Findings    []analysis.Finding
	PasswordAge analysis.Stats
	LogonAge    analysis.Stats
	AccountAge  analysis.Stats
	Compliance  analysis.ComplianceSummary
	ParseStats  account.ParseStats
}

// FromResult selects the composer input from an analysis result.
func FromResult(res *analysis.Result) Input {
	return Input{
		AsOf:        res.AsOf,
		Total:       res.Total,
		Domains:     res.Domains,
		Findings:    res.Findings,
		PasswordAge: res.PasswordAge,
		LogonAge:    res.LogonAge,
		AccountAge:  res.AccountAge,
		Compliance:  res.Compliance,
		ParseStats:  res.ParseStats,
	}
}

// Compose renders the security report. The output depends only on in.
func Compose(in Input) string {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	b.WriteString("SECURITY ANALYSIS REPORT\n")
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	fmt.Fprintf(&b, "As of: %s\n", in.AsOf.UTC().Format("2006-01-02 15:04:05 UTC"))

	section(&b, "DOMAIN OVERVIEW")
	fmt.Fprintf(&b, "Total Domains: %d\n", len(in.Domains))
	fmt.Fprintf(&b, "Total Accounts: %d\n", in.Total)
	b.WriteString("\nDomain Distribution:\n")
	if len(in.Domains) == 0 {
		b.WriteString("• No accounts found.\n")
	}
	for _, d := range in.Domains {
		fmt.Fprintf(&b, "• %s: %d accounts (%s%%)\n", analysis.DomainLabel(d.Domain), d.Count, one(d.Percent))
	}

	section(&b, "CRITICAL FINDINGS")
	for _, f := range in.Findings {
		fmt.Fprintf(&b, "• [%s] %d accounts (%s%%) %s\n", strings.ToUpper(string(f.Severity)), f.Count, one(f.Percent), f.Title)
	}

	section(&b, "PASSWORD AGE METRICS")
	metric(&b, "Average password age", in.PasswordAge, in.PasswordAge.Mean, " years")
	metric(&b, "Median password age", in.PasswordAge, in.PasswordAge.Median, " years")
	metric(&b, "Oldest password", in.PasswordAge, in.PasswordAge.Max, " years")
	metric(&b, "Newest password", in.PasswordAge, in.PasswordAge.Min, " years")

	section(&b, "LAST LOGON METRICS")
	metric(&b, "Average time since last logon", in.LogonAge, in.LogonAge.Mean, " years")
	metric(&b, "Median time since last logon", in.LogonAge, in.LogonAge.Median, " years")
	metric(&b, "Longest time without logon", in.LogonAge, in.LogonAge.Max, " years")
	metric(&b, "Most recent logon", in.LogonAge, in.LogonAge.Min, " years ago")

	section(&b, "ACCOUNT AGE METRICS")
	metric(&b, "Average account age", in.AccountAge, in.AccountAge.Mean, " years")
	metric(&b, "Median account age", in.AccountAge, in.AccountAge.Median, " years")
	metric(&b, "Oldest account", in.AccountAge, in.AccountAge.Max, " years")
	metric(&b, "Newest account", in.AccountAge, in.AccountAge.Min, " years")

	section(&b, "RECOMMENDED ACTIONS")
	writeActions(&b, in, false)

	section(&b, "COMPLIANCE METRICS")
	c := in.Compliance
	fmt.Fprintf(&b, "Based on a maximum password age of %d days:\n", c.PolicyDays)
	fmt.Fprintf(&b, "• Compliant accounts (≤ %d days): %d (%s%%)\n", c.PolicyDays, c.Compliant, one(c.CompliantPercent))
	fmt.Fprintf(&b, "• Overdue for password change (> %d days): %d (%s%%)\n", c.PolicyDays, c.Overdue, one(c.OverduePercent))
	fmt.Fprintf(&b, "• Accounts with a known password age: %d of %d\n", c.Known, c.Total)
	b.WriteString("\nExtended Compliance Metrics:\n")
	fmt.Fprintf(&b, "• Passwords > 1 year old: %d (%s%%)\n", c.Over1Year, one(c.Over1YearPercent))
	fmt.Fprintf(&b, "• Passwords > 2 years old: %d (%s%%)\n", c.Over2Years, one(c.Over2YearsPercent))

	b.WriteString("\n" + strings.Repeat("=", ruleWidth) + "\n")
	return b.String()
}

// policyRecommendations is fixed guidance printed in every report.
var policyRecommendations = []string{
	"Maximum password age: 90-180 days",
	"Password complexity requirements",
	"Enable password expiry",
	"Use advanced password enforcers such as Entra Password Protection (Banned Passwords)",
	"Account lockout threshold of 3-5 attempts",
	"Locked account duration of 1 hour, or indefinite where culture and internal IT capabilities allow it",
	"Regular password audits",
}

// writeActions renders the action list from finding and compliance counts.
// The archival variant adds the longer-horizon cleanup and audit guidance.
func writeActions(b *strings.Builder, in Input, archival bool) {
	b.WriteString("1. Immediate password resets required for:\n")
	fmt.Fprintf(b, "   - All accounts with passwords over 20 years old (%d accounts)\n", count(in.Findings, analysis.PasswordOver20Y))
	fmt.Fprintf(b, "   - All accounts with passwords over 15 years old (%d accounts)\n", count(in.Findings, analysis.PasswordOver15Y))
	fmt.Fprintf(b, "   - All accounts with passwords over 1 year old (%d accounts)\n", in.Compliance.Over1Year)
	b.WriteString("2. Account cleanup required:\n")
	fmt.Fprintf(b, "   - Review %d accounts inactive for over 1 year\n", count(in.Findings, analysis.LogonOver1Y))
	fmt.Fprintf(b, "   - Review %d accounts that have never logged in\n", count(in.Findings, analysis.NeverLoggedIn))
	if archival {
		b.WriteString("   - Consider automatic account disable after 90 days of inactivity\n")
	}
	b.WriteString("3. Implement or harden password policies:\n")
	for _, rec := range policyRecommendations {
		fmt.Fprintf(b, "   - %s\n", rec)
	}
	if archival {
		b.WriteString("   - Regular account activity audits\n")
	}
	fmt.Fprintf(b, "4. Review all %d accounts that have never had password changes\n", count(in.Findings, analysis.PasswordNeverChanged))
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n" + title + "\n")
	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
}

func metric(b *strings.Builder, label string, s analysis.Stats, value float64, unit string) {
	if !s.Defined() {
		fmt.Fprintf(b, "• %s: n/a\n", label)
		return
	}
	fmt.Fprintf(b, "• %s: %s%s\n", label, one(value), unit)
}

func count(findings []analysis.Finding, category analysis.Category) int {
	f, _ := analysis.Lookup(findings, category)
	return f.Count
}

// one formats with one decimal place.
func one(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
