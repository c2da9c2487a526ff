// Package telemetry exposes run results as Prometheus gauges written to a
// node-exporter textfile.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"password-age-audit/internal/account"
	"password-age-audit/internal/analysis"
)

type Recorder struct {
	reg        *prometheus.Registry
	accounts   prometheus.Gauge
	findings   *prometheus.GaugeVec
	compliance *prometheus.GaugeVec
	missing    *prometheus.GaugeVec
	unparsable *prometheus.GaugeVec
	lastRun    prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "password_audit_accounts_total",
			Help: "Accounts analysed in the last run.",
		}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "password_audit_finding_accounts",
			Help: "Accounts matching each finding rule.",
		}, []string{"category", "severity"}),
		compliance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "password_audit_compliance_accounts",
			Help: "Accounts per password policy status.",
		}, []string{"status"}),
		missing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "password_audit_missing_fields",
			Help: "Timestamp fields exported as never set.",
		}, []string{"field"}),
		unparsable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "password_audit_unparsable_fields",
			Help: "Timestamp fields that could not be parsed.",
		}, []string{"field"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "password_audit_last_run_timestamp_seconds",
			Help: "Reference time of the last run.",
		}),
	}
	r.reg.MustRegister(r.accounts, r.findings, r.compliance, r.missing, r.unparsable, r.lastRun)
	return r
}

// Observe sets every gauge from res.
func (r *Recorder) Observe(res *analysis.Result) {
	r.accounts.Set(float64(res.Total))
	for _, f := range res.Findings {
		r.findings.WithLabelValues(string(f.Category), string(f.Severity)).Set(float64(f.Count))
	}
	c := res.Compliance
	r.compliance.WithLabelValues("compliant").Set(float64(c.Compliant))
	r.compliance.WithLabelValues("overdue").Set(float64(c.Overdue))
	r.compliance.WithLabelValues("unknown").Set(float64(c.Unknown()))
	for _, field := range account.Fields() {
		r.missing.WithLabelValues(field.String()).Set(float64(res.ParseStats.MissingCount(field)))
		r.unparsable.WithLabelValues(field.String()).Set(float64(res.ParseStats.UnparsableCount(field)))
	}
	r.lastRun.Set(float64(res.AsOf.Unix()))
}

// WriteTextfile writes the registry atomically in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
