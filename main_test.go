package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"password-age-audit/internal/analysis"
	"password-age-audit/internal/chartdata"
	"password-age-audit/internal/loader"
	"password-age-audit/internal/store"
)

const exportCSV = "Domain,Name,Last Logon,Last Password Change,Account Creation Date\n" +
	"CORP,legacy,2025-11-01,2004-05-01,2003-01-01\n" +
	"CORP,svc-print,Never,2009-07-01,2009-07-01\n" +
	"CORP,alice,2026-01-30,2025-12-15,2018-03-01\n" +
	"LAB,tmp,\"2 years, 8 months ago\",Never,2022-01-01\n"

func writeExport(t *testing.T, data string) string {
	t.Helper()
	file, err := os.CreateTemp(t.TempDir(), "accounts-*.csv")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := file.WriteString(data); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	return file.Name()
}

func baseArgs(t *testing.T, input, outDir string) []string {
	return []string{
		"-env-file", filepath.Join(t.TempDir(), "none.env"),
		"-input", input,
		"-output", outDir,
		"-as-of", "2026-02-01",
		"-progress=false",
		"-log-level", "error",
	}
}

func TestRunWritesArtifacts(t *testing.T) {
	input := writeExport(t, exportCSV)
	outDir := filepath.Join(t.TempDir(), "out")
	jsonPath := filepath.Join(t.TempDir(), "report.json")
	metricsPath := filepath.Join(t.TempDir(), "audit.prom")

	args := append(baseArgs(t, input, outDir), "-json", jsonPath, "-metrics-textfile", metricsPath)
	var stdout bytes.Buffer
	if err := run(context.Background(), args, nil, &stdout, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.Contains(stdout.String(), "SECURITY ANALYSIS REPORT") {
		t.Fatalf("report not printed:\n%s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "Total Accounts: 4") {
		t.Fatalf("unexpected account total:\n%s", stdout.String())
	}

	saved, err := os.ReadFile(filepath.Join(outDir, summaryFile))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), string(saved)) {
		t.Fatalf("saved summary differs from printed report")
	}

	for _, name := range []string{
		detailedFile,
		chartdata.ScatterFile,
		chartdata.PasswordHistFile,
		chartdata.LogonHistFile,
		chartdata.TimelineFile,
		chartdata.BracketsFile,
	} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	for _, path := range []string{jsonPath, metricsPath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}
}

func TestRunSchemaErrorWritesNothing(t *testing.T) {
	input := writeExport(t, "Domain,Name,Last Logon\nCORP,a,Never\n")
	outDir := filepath.Join(t.TempDir(), "out")

	var stdout bytes.Buffer
	err := run(context.Background(), baseArgs(t, input, outDir), nil, &stdout, io.Discard)

	var schemaErr *loader.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if len(schemaErr.Missing) != 2 {
		t.Fatalf("expected 2 missing columns, got %v", schemaErr.Missing)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no report output, got %q", stdout.String())
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("output dir should not exist: %v", err)
	}
}

func TestRunChartFailureLeavesNoReport(t *testing.T) {
	input := writeExport(t, exportCSV)
	outDir := t.TempDir()
	// a directory where a chart CSV belongs makes that write fail
	if err := os.Mkdir(filepath.Join(outDir, chartdata.ScatterFile), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var stdout bytes.Buffer
	err := run(context.Background(), baseArgs(t, input, outDir), nil, &stdout, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "write chart data") {
		t.Fatalf("expected chart write error, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no report output, got %q", stdout.String())
	}
	for _, name := range []string{summaryFile, detailedFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); !os.IsNotExist(err) {
			t.Fatalf("%s should not exist: %v", name, err)
		}
	}
}

func TestRunRequiresInput(t *testing.T) {
	args := []string{"-env-file", filepath.Join(t.TempDir(), "none.env")}
	if err := run(context.Background(), args, nil, io.Discard, io.Discard); err == nil {
		t.Fatal("expected error without input")
	}
}

func TestRunArchivesToDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	orig := openStore
	openStore = func(url string) (*sql.DB, store.Dialect, error) {
		if url != "postgres://u:p@localhost/audit" {
			t.Fatalf("unexpected url %q", url)
		}
		return db, store.Postgres, nil
	}
	defer func() { openStore = orig }()

	for i := 0; i < 6; i++ {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectBegin()
	// one run row, every finding, two domains
	for i := 0; i < 1+len(analysis.Categories())+2; i++ {
		mock.ExpectExec("INSERT INTO password_age_audit").WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()
	mock.ExpectClose()

	input := writeExport(t, exportCSV)
	args := append(baseArgs(t, input, t.TempDir()), "-db", "-db-tag", "nightly")
	environ := []string{"DATABASE_URL=postgres://u:p@localhost/audit"}

	var stdout bytes.Buffer
	if err := run(context.Background(), args, environ, &stdout, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "Stored audit run (run_id=") {
		t.Fatalf("missing archive confirmation:\n%s", stdout.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
