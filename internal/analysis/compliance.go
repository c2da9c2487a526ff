package analysis

// DefaultPolicyDays is the maximum password age used when none is configured.
const DefaultPolicyDays = 90

// ComplianceSummary compares password ages with the policy threshold.
//
// Compliant and Overdue percentages are shares of Known, the accounts with a
// known password age. The extended buckets are shares of Total, matching the
// findings.
type ComplianceSummary struct {
	PolicyDays        int     `json:"policy_days"`
	Total             int     `json:"total_accounts"`
	Known             int     `json:"known_password_age"`
	Compliant         int     `json:"compliant"`
	CompliantPercent  float64 `json:"compliant_percent"`
	Overdue           int     `json:"overdue"`
	OverduePercent    float64 `json:"overdue_percent"`
	Over1Year         int     `json:"over_1_year"`
	Over1YearPercent  float64 `json:"over_1_year_percent"`
	Over2Years        int     `json:"over_2_years"`
	Over2YearsPercent float64 `json:"over_2_years_percent"`
}

// Unknown returns the number of accounts excluded from the strict split.
func (c ComplianceSummary) Unknown() int { return c.Total - c.Known }

// Evaluate classifies every account with a known password age.
func Evaluate(derived []Derived, policyDays int) ComplianceSummary {
	c := ComplianceSummary{PolicyDays: policyDays, Total: len(derived)}
	for _, d := range derived {
		days, ok := d.PasswordAge.Days()
		if !ok {
			continue
		}
		c.Known++
		if days <= float64(policyDays) {
			c.Compliant++
		} else {
			c.Overdue++
		}
		if d.PasswordAge.over(1) {
			c.Over1Year++
		}
		if d.PasswordAge.over(2) {
			c.Over2Years++
		}
	}
	c.CompliantPercent = Percent(c.Compliant, c.Known)
	c.OverduePercent = Percent(c.Overdue, c.Known)
	c.Over1YearPercent = Percent(c.Over1Year, c.Total)
	c.Over2YearsPercent = Percent(c.Over2Years, c.Total)
	return c
}
