package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"password-age-audit/internal/account"
)

// SchemaError means the input lacks one or more required columns. It is
// raised before any row is read.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input must contain columns: %s (missing %s)",
		strings.Join(RequiredColumns, ", "), strings.Join(e.Missing, ", "))
}

// RequiredColumns lists the canonical header names in export order.
var RequiredColumns = []string{"Domain", "Name", "Last Logon", "Last Password Change", "Account Creation Date"}

type column int

const (
	colDomain column = iota
	colName
	colLastLogon
	colPasswordChanged
	colCreated
)

// aliases accepts the attribute names used by raw directory exports.
var aliases = [][]string{
	colDomain:          {"Domain", "domain_name", "netbios_domain"},
	colName:            {"Name", "sam_account_name", "samaccountname", "username", "account"},
	colLastLogon:       {"Last Logon", "lastlogontimestamp", "last_logon_date", "lastlogondate"},
	colPasswordChanged: {"Last Password Change", "pwdlastset", "password_last_set", "passwordlastset"},
	colCreated:         {"Account Creation Date", "whencreated", "created", "account_created"},
}

// Load reads the CSV file at path.
func Load(path string) ([]account.RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}

// Read parses CSV input. A missing required column fails with *SchemaError;
// blank rows are skipped.
func Read(r io.Reader) ([]account.RawRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Missing: append([]string{}, RequiredColumns...)}
		}
		return nil, fmt.Errorf("unable to read header: %w", err)
	}

	colMap := normalizeHeaders(headers)
	idx := make([]int, len(aliases))
	var missing []string
	for col, names := range aliases {
		i, ok := findColumn(colMap, names)
		if !ok {
			missing = append(missing, RequiredColumns[col])
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	var rows []account.RawRow
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("unable to read CSV: %w", err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, account.RawRow{
			Line:            line,
			Domain:          clean(getValue(record, idx[colDomain])),
			Name:            clean(getValue(record, idx[colName])),
			LastLogon:       getValue(record, idx[colLastLogon]),
			PasswordChanged: getValue(record, idx[colPasswordChanged]),
			Created:         getValue(record, idx[colCreated]),
		})
	}
	return rows, nil
}

func normalizeHeaders(headers []string) map[string]int {
	result := make(map[string]int, len(headers))
	for idx, header := range headers {
		normalized := normalizeHeader(header)
		if _, exists := result[normalized]; !exists {
			result[normalized] = idx
		}
	}
	return result
}

func normalizeHeader(value string) string {
	value = strings.TrimPrefix(value, "\ufeff")
	value = cases.Fold().String(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}

func findColumn(headers map[string]int, names []string) (int, bool) {
	for _, name := range names {
		if idx, ok := headers[normalizeHeader(name)]; ok {
			return idx, true
		}
	}
	return -1, false
}

func getValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func clean(value string) string {
	return norm.NFC.String(value)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
