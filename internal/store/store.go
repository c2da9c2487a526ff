// Package store archives run summaries in Postgres or MySQL so posture can be
// tracked across runs. Nothing here feeds back into analysis.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"password-age-audit/internal/analysis"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name       string
	Driver     string
	idType     string
	timeType   string
	numType    string
	numbered   bool
	ifNotIndex bool
}

var (
	Postgres = Dialect{
		Name:       "postgres",
		Driver:     "pgx",
		idType:     "uuid",
		timeType:   "timestamptz",
		numType:    "numeric(10,2)",
		numbered:   true,
		ifNotIndex: true,
	}
	MySQL = Dialect{
		Name:     "mysql",
		Driver:   "mysql",
		idType:   "char(36)",
		timeType: "datetime",
		numType:  "decimal(10,2)",
	}
)

// placeholders returns the bind markers for n arguments.
func (d Dialect) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if d.numbered {
			marks[i] = "$" + strconv.Itoa(i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ",")
}

// Open connects to the database named by rawURL. postgres:// and
// postgresql:// use pgx; mysql:// and mariadb:// use the MySQL driver.
func Open(rawURL string) (*sql.DB, Dialect, error) {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		db, err := sql.Open(Postgres.Driver, rawURL)
		return db, Postgres, err
	case strings.HasPrefix(rawURL, "mysql://"), strings.HasPrefix(rawURL, "mariadb://"):
		dsn, err := toMySQLDSN(rawURL)
		if err != nil {
			return nil, Dialect{}, err
		}
		db, err := sql.Open(MySQL.Driver, dsn)
		if err != nil {
			return nil, Dialect{}, err
		}
		db.SetMaxOpenConns(4)
		db.SetConnMaxLifetime(30 * time.Minute)
		return db, MySQL, nil
	case rawURL == "":
		return nil, Dialect{}, errors.New("database url is required")
	default:
		return nil, Dialect{}, fmt.Errorf("unsupported database url scheme: %s", redact(rawURL))
	}
}

func toMySQLDSN(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	user, pass := "", ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	name := strings.TrimPrefix(u.Path, "/")
	if user == "" || u.Host == "" || name == "" {
		return "", errors.New("incomplete mysql dsn (user/host/db)")
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC", user, pass, u.Host, name), nil
}

func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}

var schemaName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func sanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	if !schemaName.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	schema  string
}

func New(db *sql.DB, dialect Dialect, schema string) (*Store, error) {
	schema, err := sanitizeSchema(schema)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: dialect, schema: schema}, nil
}

func (s *Store) table(name string) string {
	return s.schema + "." + name
}

// EnsureSchema creates the schema and tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	d := s.dialect
	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s PRIMARY KEY,
			as_of %s NOT NULL,
			policy_days integer NOT NULL,
			total_accounts integer NOT NULL,
			password_age_mean %s,
			password_age_median %s,
			password_age_max %s,
			logon_age_mean %s,
			account_age_mean %s,
			known_password_count integer NOT NULL,
			compliant_count integer NOT NULL,
			overdue_count integer NOT NULL,
			unparsable_fields integer NOT NULL,
			run_tag varchar(255),
			created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, s.table("audit_runs"), d.idType, d.timeType, d.numType, d.numType, d.numType, d.numType, d.numType, d.timeType),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s PRIMARY KEY,
			run_id %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			category varchar(64) NOT NULL,
			severity varchar(32) NOT NULL,
			account_count integer NOT NULL,
			percent %s NOT NULL
		)`, s.table("audit_findings"), d.idType, d.idType, s.table("audit_runs"), d.numType),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s PRIMARY KEY,
			run_id %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			domain varchar(255) NOT NULL,
			account_count integer NOT NULL,
			percent %s NOT NULL
		)`, s.table("audit_domains"), d.idType, d.idType, s.table("audit_runs"), d.numType),
	}
	if d.ifNotIndex {
		statements = append(statements,
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_audit_findings_run_idx ON %s (run_id)`, s.schema, s.table("audit_findings")),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_audit_domains_run_idx ON %s (run_id)`, s.schema, s.table("audit_domains")),
		)
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun writes the run summary with its findings and domains in one
// transaction and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, res *analysis.Result, tag string) (runID uuid.UUID, err error) {
	runID = uuid.New()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, as_of, policy_days, total_accounts,
			password_age_mean, password_age_median, password_age_max,
			logon_age_mean, account_age_mean, known_password_count,
			compliant_count, overdue_count, unparsable_fields, run_tag
		) VALUES (%s)`, s.table("audit_runs"), s.dialect.placeholders(14)),
		runID.String(),
		res.AsOf.UTC(),
		res.Compliance.PolicyDays,
		res.Total,
		nullFloat(res.PasswordAge.Mean, res.PasswordAge.Defined()),
		nullFloat(res.PasswordAge.Median, res.PasswordAge.Defined()),
		nullFloat(res.PasswordAge.Max, res.PasswordAge.Defined()),
		nullFloat(res.LogonAge.Mean, res.LogonAge.Defined()),
		nullFloat(res.AccountAge.Mean, res.AccountAge.Defined()),
		res.Compliance.Known,
		res.Compliance.Compliant,
		res.Compliance.Overdue,
		res.ParseStats.TotalUnparsable(),
		nullString(tag),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	insertFinding := fmt.Sprintf(`
		INSERT INTO %s (
			id, run_id, category, severity, account_count, percent
		) VALUES (%s)`, s.table("audit_findings"), s.dialect.placeholders(6))
	for _, f := range res.Findings {
		_, err = tx.ExecContext(ctx, insertFinding,
			uuid.New().String(),
			runID.String(),
			string(f.Category),
			string(f.Severity),
			f.Count,
			f.Percent,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert finding %s: %w", f.Category, err)
		}
	}

	insertDomain := fmt.Sprintf(`
		INSERT INTO %s (
			id, run_id, domain, account_count, percent
		) VALUES (%s)`, s.table("audit_domains"), s.dialect.placeholders(5))
	for _, d := range res.Domains {
		_, err = tx.ExecContext(ctx, insertDomain,
			uuid.New().String(),
			runID.String(),
			d.Domain,
			d.Count,
			d.Percent,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert domain %s: %w", d.Domain, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return runID, nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullFloat(value float64, ok bool) sql.NullFloat64 {
	if !ok {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: value, Valid: true}
}
