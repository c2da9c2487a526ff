package report

import (
	"fmt"
	"strings"

	"password-age-audit/internal/account"
	"password-age-audit/internal/analysis"
)

const detailWidth = 50

// ComposeDetailed renders the archival findings dump: every finding with
// its matching accounts, the compliance split, parse diagnostics, the
// recommended actions and a summary. It reuses the records in in and computes nothing new.
func ComposeDetailed(in Input) string {
	var b strings.Builder

	b.WriteString("DETAILED SECURITY FINDINGS REPORT\n")
	b.WriteString(strings.Repeat("=", detailWidth) + "\n")
	fmt.Fprintf(&b, "As of: %s\n", in.AsOf.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Total accounts analysed: %d\n", in.Total)

	for i, f := range in.Findings {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, strings.ToUpper(string(f.Severity)), f.Category)
		b.WriteString(strings.Repeat("-", detailWidth) + "\n")
		fmt.Fprintf(&b, "%d accounts (%s%%) %s\n", f.Count, one(f.Percent), f.Title)
		if len(f.Accounts) == 0 {
			b.WriteString("   None found\n")
			continue
		}
		for _, d := range f.Accounts {
			writeAccount(&b, d)
		}
	}

	b.WriteString("\nCOMPLIANCE\n")
	b.WriteString(strings.Repeat("-", detailWidth) + "\n")
	c := in.Compliance
	fmt.Fprintf(&b, "Policy maximum password age: %d days\n", c.PolicyDays)
	fmt.Fprintf(&b, "Known password age: %d of %d accounts\n", c.Known, c.Total)
	fmt.Fprintf(&b, "Compliant: %d (%s%% of known)\n", c.Compliant, one(c.CompliantPercent))
	fmt.Fprintf(&b, "Overdue: %d (%s%% of known)\n", c.Overdue, one(c.OverduePercent))
	fmt.Fprintf(&b, "Passwords > 1 year: %d (%s%% of all)\n", c.Over1Year, one(c.Over1YearPercent))
	fmt.Fprintf(&b, "Passwords > 2 years: %d (%s%% of all)\n", c.Over2Years, one(c.Over2YearsPercent))

	b.WriteString("\nAGE DISTRIBUTION\n")
	b.WriteString(strings.Repeat("-", detailWidth) + "\n")
	spread(&b, "Password age", in.PasswordAge)
	spread(&b, "Time since logon", in.LogonAge)
	spread(&b, "Account age", in.AccountAge)

	b.WriteString("\nPARSE DIAGNOSTICS\n")
	b.WriteString(strings.Repeat("-", detailWidth) + "\n")
	for _, field := range account.Fields() {
		fmt.Fprintf(&b, "%s: %d missing, %d unparsable\n", field, in.ParseStats.MissingCount(field), in.ParseStats.UnparsableCount(field))
	}

	b.WriteString("\nRECOMMENDED ACTIONS\n")
	b.WriteString(strings.Repeat("-", detailWidth) + "\n")
	writeActions(&b, in, true)

	b.WriteString("\nSUMMARY OF FINDINGS\n")
	b.WriteString(strings.Repeat("-", detailWidth) + "\n")
	fmt.Fprintf(&b, "Total Accounts Analysed: %d\n", in.Total)
	for _, f := range in.Findings {
		fmt.Fprintf(&b, "%s: %d\n", f.Category, f.Count)
	}
	return b.String()
}

func writeAccount(b *strings.Builder, d analysis.Derived) {
	fmt.Fprintf(b, "   - %s\n", d.QualifiedName())
	fmt.Fprintf(b, "     Last Logon: %s%s\n", rawOrNever(d.Raw.LastLogon), ageSuffix(d.LogonAge))
	fmt.Fprintf(b, "     Last Password Change: %s%s\n", rawOrNever(d.Raw.PasswordChanged), ageSuffix(d.PasswordAge))
	fmt.Fprintf(b, "     Account Created: %s%s\n", rawOrNever(d.Raw.Created), ageSuffix(d.AccountAge))
}

func rawOrNever(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}

func ageSuffix(a analysis.Age) string {
	years, ok := a.Years()
	if !ok {
		return " (unknown)"
	}
	return fmt.Sprintf(" (%s years)", one(years))
}

func spread(b *strings.Builder, label string, s analysis.Stats) {
	if !s.Defined() {
		fmt.Fprintf(b, "%s: no known values\n", label)
		return
	}
	stddev := "n/a"
	if s.HasStdDev() {
		stddev = one(s.StdDev)
	}
	fmt.Fprintf(b, "%s: n=%d mean=%s median=%s min=%s max=%s stddev=%s\n",
		label, s.Count, one(s.Mean), one(s.Median), one(s.Min), one(s.Max), stddev)
}
