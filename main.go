package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"password-age-audit/internal/analysis"
	"password-age-audit/internal/chartdata"
	"password-age-audit/internal/config"
	"password-age-audit/internal/loader"
	"password-age-audit/internal/logging"
	"password-age-audit/internal/report"
	"password-age-audit/internal/store"
	"password-age-audit/internal/telemetry"
)

const (
	summaryFile  = "security_report.txt"
	detailedFile = "detailed_findings.txt"
)

var openStore = store.Open

func main() {
	if err := run(context.Background(), os.Args[1:], os.Environ(), os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		exitWithError(err)
	}
}

func run(ctx context.Context, args []string, environ []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args, environ, stderr)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	now, err := cfg.Now(time.Now)
	if err != nil {
		return err
	}

	rows, err := loader.Load(cfg.Input)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"input": cfg.Input, "rows": len(rows)}).Info("loaded account export")

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	opts := analysis.Options{
		Now:        now,
		PolicyDays: cfg.PolicyDays,
		Workers:    workers,
		Logger:     logger,
	}
	if cfg.Progress && len(rows) > 0 {
		bar := newProgressBar(len(rows), stderr)
		defer bar.Finish()
		opts.Progress = bar
	}

	res, err := analysis.Run(ctx, rows, opts)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"accounts":   res.Total,
		"domains":    len(res.Domains),
		"unparsable": res.ParseStats.TotalUnparsable(),
	}).Info("analysis complete")

	in := report.FromResult(res)
	summary := report.Compose(in)
	detailed := report.ComposeDetailed(in)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// The report texts go last so their presence means every artifact was
	// written; stdout only sees the report once all of them are on disk.
	charts, err := chartdata.Write(cfg.OutputDir, res.Series)
	if err != nil {
		return fmt.Errorf("write chart data: %w", err)
	}
	logger.WithField("files", charts).Debug("chart data written")

	if cfg.JSONPath != "" {
		if err := report.WriteJSON(in, cfg.JSONPath); err != nil {
			return err
		}
	}

	if cfg.MetricsTextfile != "" {
		rec := telemetry.NewRecorder()
		rec.Observe(res)
		if err := rec.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		logger.WithField("path", cfg.MetricsTextfile).Info("metrics textfile written")
	}

	detailedPath := filepath.Join(cfg.OutputDir, detailedFile)
	if err := os.WriteFile(detailedPath, []byte(detailed), 0644); err != nil {
		return err
	}
	summaryPath := filepath.Join(cfg.OutputDir, summaryFile)
	if err := os.WriteFile(summaryPath, []byte(summary), 0644); err != nil {
		return err
	}

	fmt.Fprint(stdout, summary)
	fmt.Fprintf(stdout, "\nReport saved to %s\n", summaryPath)
	fmt.Fprintf(stdout, "Detailed findings saved to %s\n", detailedPath)
	if cfg.JSONPath != "" {
		fmt.Fprintf(stdout, "JSON report saved to %s\n", cfg.JSONPath)
	}

	if cfg.DB.Enabled {
		runID, err := archive(ctx, res, cfg.DB)
		if err != nil {
			return fmt.Errorf("archive run: %w", err)
		}
		logger.WithField("run_id", runID.String()).Info("run archived")
		fmt.Fprintf(stdout, "Stored audit run (run_id=%s)\n", runID)
	}
	return nil
}

func newProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions64(int64(total),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("deriving account ages"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}

func archive(ctx context.Context, res *analysis.Result, cfg config.DBConfig) (uuid.UUID, error) {
	db, dialect, err := openStore(cfg.URL)
	if err != nil {
		return uuid.Nil, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return uuid.Nil, err
	}
	st, err := store.New(db, dialect, cfg.Schema)
	if err != nil {
		return uuid.Nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		return uuid.Nil, err
	}
	return st.SaveRun(ctx, res, cfg.Tag)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
