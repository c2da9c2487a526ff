package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequiredColumns(t *testing.T) {
	csvData := "Domain,Name,Last Logon,Last Password Change,Account Creation Date\n" +
		"CORP,alice,2026-01-10,2025-12-01,2015-04-01\n" +
		",,,,\n" +
		"LAB,bob,Never,\"3 years, 2 months and 5 days\",2019-01-01\n"

	rows, err := Read(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "CORP", rows[0].Domain)
	assert.Equal(t, "alice", rows[0].Name)
	assert.Equal(t, "2025-12-01", rows[0].PasswordChanged)
	assert.Equal(t, 2, rows[0].Line)

	assert.Equal(t, "Never", rows[1].LastLogon)
	assert.Equal(t, 4, rows[1].Line)
}

func TestReadQuotedRelativeAges(t *testing.T) {
	csvData := "Domain,Name,Last Logon,Last Password Change,Account Creation Date\n" +
		`CORP,carol,"1 year, 0 months and 3 days","21 years, 1 months and 2 days","22 years, 0 months and 0 days"` + "\n"

	rows, err := Read(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "21 years, 1 months and 2 days", rows[0].PasswordChanged)
}

func TestReadHeaderAliases(t *testing.T) {
	csvData := "\ufeffdomain,SamAccountName,LastLogonTimestamp,pwdLastSet,whenCreated\n" +
		"CORP,dave,133540000000000000,0,20100101000000.0Z\n"

	rows, err := Read(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "dave", rows[0].Name)
	assert.Equal(t, "20100101000000.0Z", rows[0].Created)
}

func TestReadMissingColumn(t *testing.T) {
	csvData := "Domain,Name,Last Logon\nCORP,alice,2026-01-10\n"

	_, err := Read(strings.NewReader(csvData))
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Last Password Change", "Account Creation Date"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "missing Last Password Change, Account Creation Date")
}

func TestReadEmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Len(t, schemaErr.Missing, len(RequiredColumns))
}

func TestReadHeaderOnly(t *testing.T) {
	rows, err := Read(strings.NewReader("Domain,Name,Last Logon,Last Password Change,Account Creation Date\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.csv")
	require.NoError(t, os.WriteFile(path, []byte("Domain,Name,Last Logon,Last Password Change,Account Creation Date\nCORP,erin,Never,Never,2020-01-01\n"), 0644))

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
