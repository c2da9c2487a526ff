package analysis

// Severity ranks a finding for display.
type Severity string

const (
	SeverityCritical      Severity = "critical"
	SeverityWarning       Severity = "warning"
	SeverityInformational Severity = "informational"
)

// Category names a threshold rule.
type Category string

const (
	PasswordOver20Y       Category = "PASSWORD_OVER_20Y"
	PasswordOver15Y       Category = "PASSWORD_OVER_15Y"
	PasswordNeverChanged  Category = "PASSWORD_NEVER_CHANGED"
	LogonOver1Y           Category = "LOGON_OVER_1Y"
	NeverLoggedIn         Category = "NEVER_LOGGED_IN"
	PasswordSetAtCreation Category = "PASSWORD_SET_AT_CREATION"
	FutureTimestamp       Category = "FUTURE_TIMESTAMP"
)

// Finding is the outcome of one rule over the whole population. Percent
// always uses the total account count as its denominator.
type Finding struct {
	Category Category  `json:"category"`
	Severity Severity  `json:"severity"`
	Title    string    `json:"title"`
	Count    int       `json:"count"`
	Percent  float64   `json:"percent"`
	Accounts []Derived `json:"-"`
}

type rule struct {
	category Category
	severity Severity
	title    string
	match    func(Derived) bool
}

// rules are evaluated independently; one account may match several.
var rules = []rule{
	{
		category: PasswordOver20Y,
		severity: SeverityCritical,
		title:    "have passwords older than 20 years",
		match:    func(d Derived) bool { return d.PasswordAge.over(20) },
	},
	{
		category: PasswordOver15Y,
		severity: SeverityCritical,
		title:    "have passwords older than 15 years",
		match:    func(d Derived) bool { return d.PasswordAge.over(15) },
	},
	{
		category: PasswordNeverChanged,
		severity: SeverityCritical,
		title:    "have never had their passwords changed",
		match:    func(d Derived) bool { return !d.PasswordAge.Known() && d.Created.Known() },
	},
	{
		category: LogonOver1Y,
		severity: SeverityWarning,
		title:    "haven't logged in for over 1 year",
		match:    func(d Derived) bool { return d.LogonAge.over(1) },
	},
	{
		category: NeverLoggedIn,
		severity: SeverityWarning,
		title:    "have never logged in",
		match:    func(d Derived) bool { return !d.LastLogon.Known() },
	},
	{
		category: PasswordSetAtCreation,
		severity: SeverityInformational,
		title:    "still use the password set when the account was created",
		match: func(d Derived) bool {
			changed, ok := d.PasswordChanged.Time()
			created, ok2 := d.Created.Time()
			return ok && ok2 && changed.Unix() == created.Unix()
		},
	},
	{
		category: FutureTimestamp,
		severity: SeverityInformational,
		title:    "carry a timestamp later than the analysis time",
		match: func(d Derived) bool {
			for _, age := range []Age{d.PasswordAge, d.LogonAge, d.AccountAge} {
				if days, ok := age.Days(); ok && days < 0 {
					return true
				}
			}
			return false
		},
	},
}

// Categories lists every rule category in evaluation order.
func Categories() []Category {
	out := make([]Category, len(rules))
	for i, r := range rules {
		out[i] = r.category
	}
	return out
}

// Classify evaluates every rule. All categories are returned, including
// those with no matching accounts.
func Classify(derived []Derived) []Finding {
	total := len(derived)
	findings := make([]Finding, 0, len(rules))
	for _, r := range rules {
		f := Finding{Category: r.category, Severity: r.severity, Title: r.title}
		for _, d := range derived {
			if r.match(d) {
				f.Accounts = append(f.Accounts, d)
			}
		}
		f.Count = len(f.Accounts)
		f.Percent = Percent(f.Count, total)
		findings = append(findings, f)
	}
	return findings
}

// Lookup returns the finding for category.
func Lookup(findings []Finding, category Category) (Finding, bool) {
	for _, f := range findings {
		if f.Category == category {
			return f, true
		}
	}
	return Finding{}, false
}
