// Package config resolves run settings from defaults, an optional YAML file,
// a .env file, PASSWORD_AUDIT_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"password-age-audit/internal/account"
	"password-age-audit/internal/analysis"
)

const EnvPrefix = "PASSWORD_AUDIT_"

type Config struct {
	Input           string    `yaml:"input" env:"INPUT" validate:"required"`
	OutputDir       string    `yaml:"output_dir" env:"OUTPUT_DIR" validate:"required"`
	PolicyDays      int       `yaml:"policy_days" env:"POLICY_DAYS" validate:"gt=0"`
	AsOf            string    `yaml:"as_of" env:"AS_OF"`
	Workers         int       `yaml:"workers" env:"WORKERS" validate:"gte=0"`
	JSONPath        string    `yaml:"json" env:"JSON"`
	MetricsTextfile string    `yaml:"metrics_textfile" env:"METRICS_TEXTFILE"`
	Progress        bool      `yaml:"progress" env:"PROGRESS"`
	Log             LogConfig `yaml:"log" envPrefix:"LOG_"`
	DB              DBConfig  `yaml:"db" envPrefix:"DB_"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL" validate:"oneof=trace debug info warn warning error"`
	Format     string `yaml:"format" env:"FORMAT" validate:"oneof=text json"`
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS" validate:"gte=0"`
}

type DBConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	URL     string `yaml:"url" env:"URL" validate:"required_if=Enabled true"`
	Schema  string `yaml:"schema" env:"SCHEMA" validate:"required"`
	Tag     string `yaml:"tag" env:"TAG"`
}

func Default() Config {
	return Config{
		OutputDir:  "output",
		PolicyDays: analysis.DefaultPolicyDays,
		Progress:   true,
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		DB: DBConfig{Schema: "password_age_audit"},
	}
}

// Load resolves the configuration for one invocation. environ uses the
// os.Environ format.
func Load(args []string, environ []string, usage io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("password-age-audit", flag.ContinueOnError)
	fs.SetOutput(usage)
	configPath := fs.String("config", "", "Optional YAML config file")
	dotenvPath := fs.String("env-file", ".env", "Optional .env file with PASSWORD_AUDIT_* settings")

	fl := Default()
	fs.StringVar(&fl.Input, "input", "", "Path to the account export CSV")
	fs.StringVar(&fl.OutputDir, "output", fl.OutputDir, "Directory for report artifacts")
	fs.IntVar(&fl.PolicyDays, "policy-days", fl.PolicyDays, "Maximum password age policy in days")
	fs.StringVar(&fl.AsOf, "as-of", "", "Analysis reference time (defaults to now)")
	fs.IntVar(&fl.Workers, "workers", 0, "Parallel derivation workers; 0 uses every CPU")
	fs.StringVar(&fl.JSONPath, "json", "", "Optional JSON report output path")
	fs.StringVar(&fl.MetricsTextfile, "metrics-textfile", "", "Optional Prometheus textfile output path")
	fs.BoolVar(&fl.Progress, "progress", fl.Progress, "Show a progress bar on stderr")
	fs.StringVar(&fl.Log.Level, "log-level", fl.Log.Level, "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&fl.Log.Format, "log-format", fl.Log.Format, "Log format (text, json)")
	fs.StringVar(&fl.Log.File, "log-file", "", "Optional rotating log file")
	fs.BoolVar(&fl.DB.Enabled, "db", false, "Archive the run summary (requires PASSWORD_AUDIT_DB_URL or DATABASE_URL)")
	fs.StringVar(&fl.DB.Schema, "db-schema", fl.DB.Schema, "Database schema for audit tables")
	fs.StringVar(&fl.DB.Tag, "db-tag", "", "Optional label for this audit run")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *configPath != "" {
		if err := loadYAML(*configPath, &cfg); err != nil {
			return nil, err
		}
	}

	vars, err := environment(*dotenvPath, environ)
	if err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.DB.URL == "" {
		cfg.DB.URL = strings.TrimSpace(vars["DATABASE_URL"])
	}

	fs.Visit(func(f *flag.Flag) { override(&cfg, &fl, f.Name) })
	if cfg.Input == "" && fs.NArg() > 0 {
		cfg.Input = fs.Arg(0)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// environment merges the .env file under the process environment. A
// missing .env file is not an error.
func environment(dotenvPath string, environ []string) (map[string]string, error) {
	vars := map[string]string{}
	if dotenvPath != "" {
		fileVars, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars, nil
}

func override(cfg, fl *Config, name string) {
	switch name {
	case "input":
		cfg.Input = fl.Input
	case "output":
		cfg.OutputDir = fl.OutputDir
	case "policy-days":
		cfg.PolicyDays = fl.PolicyDays
	case "as-of":
		cfg.AsOf = fl.AsOf
	case "workers":
		cfg.Workers = fl.Workers
	case "json":
		cfg.JSONPath = fl.JSONPath
	case "metrics-textfile":
		cfg.MetricsTextfile = fl.MetricsTextfile
	case "progress":
		cfg.Progress = fl.Progress
	case "log-level":
		cfg.Log.Level = fl.Log.Level
	case "log-format":
		cfg.Log.Format = fl.Log.Format
	case "log-file":
		cfg.Log.File = fl.Log.File
	case "db":
		cfg.DB.Enabled = fl.DB.Enabled
	case "db-schema":
		cfg.DB.Schema = fl.DB.Schema
	case "db-tag":
		cfg.DB.Tag = fl.DB.Tag
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field in one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Now returns the reference time: the parsed as-of value, or clock() when
// none is set.
func (c *Config) Now(clock func() time.Time) (time.Time, error) {
	if strings.TrimSpace(c.AsOf) == "" {
		return clock().UTC(), nil
	}
	t, err := account.ParseTime(c.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as-of %q: %w", c.AsOf, err)
	}
	return t.UTC(), nil
}
