package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"password-age-audit/internal/account"
	"password-age-audit/internal/analysis"
)

func runSample(t *testing.T) *analysis.Result {
	t.Helper()
	rows := []account.RawRow{
		{Domain: "CORP", Name: "a", LastLogon: "Never", PasswordChanged: "2001-01-01", Created: "2000-01-01"},
		{Domain: "CORP", Name: "b", LastLogon: "2026-01-01", PasswordChanged: "2026-01-20", Created: "2020-01-01"},
		{Domain: "LAB", Name: "c", LastLogon: "bogus", PasswordChanged: "Never", Created: "2020-01-01"},
	}
	res, err := analysis.Run(context.Background(), rows, analysis.Options{
		Now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return res
}

func TestRecorderObserve(t *testing.T) {
	rec := NewRecorder()
	rec.Observe(runSample(t))

	assert.Equal(t, 3.0, testutil.ToFloat64(rec.accounts))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.findings.WithLabelValues("PASSWORD_OVER_20Y", "critical")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.findings.WithLabelValues("NEVER_LOGGED_IN", "warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.compliance.WithLabelValues("compliant")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.compliance.WithLabelValues("overdue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.compliance.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.unparsable.WithLabelValues("last_logon")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.missing.WithLabelValues("last_password_change")))

	expected := `
# HELP password_audit_accounts_total Accounts analysed in the last run.
# TYPE password_audit_accounts_total gauge
password_audit_accounts_total 3
`
	require.NoError(t, testutil.GatherAndCompare(rec.reg, strings.NewReader(expected), "password_audit_accounts_total"))
}

func TestWriteTextfile(t *testing.T) {
	rec := NewRecorder()
	rec.Observe(runSample(t))

	path := filepath.Join(t.TempDir(), "password_audit.prom")
	require.NoError(t, rec.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `password_audit_finding_accounts{category="PASSWORD_OVER_15Y",severity="critical"} 1`)
	assert.Contains(t, string(raw), "# TYPE password_audit_last_run_timestamp_seconds gauge")
	assert.Equal(t, 1769904000.0, testutil.ToFloat64(rec.lastRun))
}
