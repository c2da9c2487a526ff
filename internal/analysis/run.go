package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"password-age-audit/internal/account"
)

// Options configures one analysis run.
type Options struct {
	// Now is the reference instant every age is measured against.
	Now        time.Time
	PolicyDays int
	Workers    int
	Progress   Tracker
	Logger     logrus.FieldLogger
}

// Result is everything a run produces. It is built once and only read
// afterwards.
type Result struct {
	AsOf        time.Time
	Total       int
	Domains     []DomainSummary
	PasswordAge Stats
	LogonAge    Stats
	AccountAge  Stats
	Findings    []Finding
	Compliance  ComplianceSummary
	Series      Series
	ParseStats  account.ParseStats
}

// Run normalizes the rows, derives ages and computes every aggregate.
func Run(ctx context.Context, rows []account.RawRow, opts Options) (*Result, error) {
	if opts.Now.IsZero() {
		return nil, errors.New("analysis: reference time is required")
	}
	if opts.PolicyDays <= 0 {
		opts.PolicyDays = DefaultPolicyDays
	}
	now := opts.Now.UTC()

	normalizer := account.NewNormalizer(now, opts.Logger)
	derived, parseStats, err := DeriveAll(ctx, rows, normalizer, now, opts.Workers, opts.Progress)
	if err != nil {
		return nil, fmt.Errorf("derive ages: %w", err)
	}

	res := &Result{
		AsOf:       now,
		Total:      len(derived),
		Domains:    SummarizeDomains(derived),
		Findings:   Classify(derived),
		Compliance: Evaluate(derived, opts.PolicyDays),
		ParseStats: parseStats,
	}
	if res.PasswordAge, err = Summarize("password_age", knownYears(derived, passwordAge)); err != nil {
		return nil, err
	}
	if res.LogonAge, err = Summarize("logon_age", knownYears(derived, logonAge)); err != nil {
		return nil, err
	}
	if res.AccountAge, err = Summarize("account_age", knownYears(derived, accountAge)); err != nil {
		return nil, err
	}
	res.Series = BuildSeries(derived, res.Domains)
	return res, nil
}
