package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"password-age-audit/internal/account"
	"password-age-audit/internal/analysis"
)

var asOf = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func sampleRows() []account.RawRow {
	return []account.RawRow{
		{Line: 2, Domain: "CORP", Name: "legacy", LastLogon: "2025-11-01", PasswordChanged: "2004-05-01", Created: "2003-01-01"},
		{Line: 3, Domain: "CORP", Name: "svc-print", LastLogon: "Never", PasswordChanged: "2009-07-01", Created: "2009-07-01"},
		{Line: 4, Domain: "CORP", Name: "alice", LastLogon: "2026-01-30", PasswordChanged: "2025-12-15", Created: "2018-03-01"},
		{Line: 5, Domain: "LAB", Name: "tmp", LastLogon: "2023-06-01", PasswordChanged: "Never", Created: "2022-01-01"},
	}
}

func sampleInput(t *testing.T) Input {
	t.Helper()
	res, err := analysis.Run(context.Background(), sampleRows(), analysis.Options{Now: asOf, PolicyDays: 90})
	require.NoError(t, err)
	return FromResult(res)
}

func TestComposeSectionOrder(t *testing.T) {
	text := Compose(sampleInput(t))

	headers := []string{
		"DOMAIN OVERVIEW",
		"CRITICAL FINDINGS",
		"PASSWORD AGE METRICS",
		"LAST LOGON METRICS",
		"ACCOUNT AGE METRICS",
		"RECOMMENDED ACTIONS",
		"COMPLIANCE METRICS",
	}
	last := -1
	for _, h := range headers {
		idx := strings.Index(text, "\n"+h+"\n")
		require.NotEqual(t, -1, idx, h)
		assert.Greater(t, idx, last, h)
		last = idx
	}
}

func TestComposeContent(t *testing.T) {
	text := Compose(sampleInput(t))

	assert.Contains(t, text, "Total Accounts: 4\n")
	assert.Contains(t, text, "• CORP: 3 accounts (75.0%)\n")
	assert.Contains(t, text, "• LAB: 1 accounts (25.0%)\n")
	assert.Contains(t, text, "• [CRITICAL] 1 accounts (25.0%) have passwords older than 20 years\n")
	assert.Contains(t, text, "• [CRITICAL] 2 accounts (50.0%) have passwords older than 15 years\n")
	assert.Contains(t, text, "• [CRITICAL] 1 accounts (25.0%) have never had their passwords changed\n")
	assert.Contains(t, text, "• [WARNING] 1 accounts (25.0%) have never logged in\n")
	assert.Contains(t, text, "   - Review 1 accounts that have never logged in\n")
	assert.Contains(t, text, "• Compliant accounts (≤ 90 days): 1 (33.3%)\n")
	assert.Contains(t, text, "• Overdue for password change (> 90 days): 2 (66.7%)\n")
	assert.Contains(t, text, "• Passwords > 2 years old: 2 (50.0%)\n")
	assert.Contains(t, text, "   - All accounts with passwords over 1 year old (2 accounts)\n")
}

func TestComposeActionsFollowFindingCounts(t *testing.T) {
	in := sampleInput(t)
	for i := range in.Findings {
		if in.Findings[i].Category == analysis.LogonOver1Y {
			in.Findings[i].Count = 37
		}
	}
	text := Compose(in)
	assert.Contains(t, text, "   - Review 37 accounts inactive for over 1 year\n")
}

func TestComposeIsDeterministic(t *testing.T) {
	first := Compose(sampleInput(t))
	second := Compose(sampleInput(t))
	assert.Equal(t, first, second)

	assert.Equal(t, ComposeDetailed(sampleInput(t)), ComposeDetailed(sampleInput(t)))
}

func TestComposeZeroAccounts(t *testing.T) {
	res, err := analysis.Run(context.Background(), nil, analysis.Options{Now: asOf})
	require.NoError(t, err)
	text := Compose(FromResult(res))

	assert.Contains(t, text, "Total Accounts: 0\n")
	assert.Contains(t, text, "• No accounts found.\n")
	assert.Contains(t, text, "• Average password age: n/a\n")
	assert.Contains(t, text, "• Most recent logon: n/a\n")
	assert.Contains(t, text, "• Oldest account: n/a\n")
	assert.Contains(t, text, "• [CRITICAL] 0 accounts (0.0%) have passwords older than 20 years\n")
	assert.Contains(t, text, "• Compliant accounts (≤ 90 days): 0 (0.0%)\n")
	assert.NotContains(t, text, "NaN")
}

func TestComposeDetailedListsAccounts(t *testing.T) {
	text := ComposeDetailed(sampleInput(t))

	assert.True(t, strings.HasPrefix(text, "DETAILED SECURITY FINDINGS REPORT\n"))
	assert.Contains(t, text, `   - CORP\legacy`+"\n")
	assert.Contains(t, text, "     Last Password Change: 2004-05-01 (21.8 years)\n")
	assert.Contains(t, text, "     Last Logon: Never (unknown)\n")
	assert.Contains(t, text, "PASSWORD_SET_AT_CREATION")
	assert.Contains(t, text, "   None found\n")
	assert.Contains(t, text, "last_logon: 1 missing, 0 unparsable\n")
	assert.Contains(t, text, "NEVER_LOGGED_IN: 1\n")
}

func TestComposeDetailedRecommendedActions(t *testing.T) {
	in := sampleInput(t)
	for i := range in.Findings {
		if in.Findings[i].Category == analysis.NeverLoggedIn {
			in.Findings[i].Count = 12
		}
	}
	text := ComposeDetailed(in)

	actions := strings.Index(text, "\nRECOMMENDED ACTIONS\n")
	summary := strings.Index(text, "\nSUMMARY OF FINDINGS\n")
	require.NotEqual(t, -1, actions)
	assert.Greater(t, summary, actions)

	block := text[actions:summary]
	assert.Contains(t, block, "   - All accounts with passwords over 20 years old (1 accounts)\n")
	assert.Contains(t, block, "   - All accounts with passwords over 1 year old (2 accounts)\n")
	assert.Contains(t, block, "   - Review 12 accounts that have never logged in\n")
	assert.Contains(t, block, "   - Consider automatic account disable after 90 days of inactivity\n")
	assert.Contains(t, block, "   - Regular account activity audits\n")
	for _, rec := range policyRecommendations {
		assert.Contains(t, block, rec)
	}

	summaryText := Compose(in)
	assert.Contains(t, summaryText, "   - Review 12 accounts that have never logged in\n")
	assert.NotContains(t, summaryText, "automatic account disable")
}

func TestWriteJSON(t *testing.T) {
	res, err := analysis.Run(context.Background(), nil, analysis.Options{Now: asOf})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSON(FromResult(res), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	pwd := doc["password_age_years"].(map[string]any)
	assert.Nil(t, pwd["mean"])
	assert.Equal(t, float64(0), pwd["count"])
	assert.Equal(t, "2026-02-01T00:00:00Z", doc["as_of"])
	assert.Len(t, doc["findings"], len(analysis.Categories()))
}

func TestNewDocumentAccounts(t *testing.T) {
	doc := NewDocument(sampleInput(t))
	for _, f := range doc.Findings {
		if f.Category == analysis.NeverLoggedIn {
			assert.Equal(t, []string{`CORP\svc-print`}, f.Accounts)
		}
	}
}
