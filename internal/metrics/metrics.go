// Package metrics records per-run counters in a private Prometheus registry
// and writes them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "iptv_merge"

// Run holds the metrics of one pipeline run.
type Run struct {
	reg *prometheus.Registry

	Skips       *prometheus.CounterVec
	Accepted    prometheus.Counter
	Channels    prometheus.Gauge
	Retained    prometheus.Gauge
	Blacklist   prometheus.Gauge
	BucketLines *prometheus.GaugeVec
	Sources     *prometheus.CounterVec
	Duration    prometheus.Gauge
	LastSuccess prometheus.Gauge
}

// NewRun registers a fresh metric set.
func NewRun() *Run {
	r := &Run{
		reg: prometheus.NewRegistry(),
		Skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "skipped_total",
			Help: "Lines, candidates and sources skipped, by reason.",
		}, []string{"reason"}),
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "candidates_accepted_total",
			Help: "Candidate URLs that passed the blacklist and duplicate checks.",
		}),
		Channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "channels",
			Help: "Distinct channel names after normalization.",
		}),
		Retained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "candidates_retained",
			Help: "Candidate URLs held after ranking.",
		}),
		Blacklist: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "blacklist_size",
			Help: "Distinct blacklisted URLs.",
		}),
		BucketLines: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "bucket_lines",
			Help: "Channel lines written per category.",
		}, []string{"category"}),
		Sources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sources_total",
			Help: "Remote sources processed, by result.",
		}, []string{"result"}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time the last run finished writing outputs.",
		}),
	}
	r.reg.MustRegister(r.Skips, r.Accepted, r.Channels, r.Retained, r.Blacklist,
		r.BucketLines, r.Sources, r.Duration, r.LastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry { return r.reg }

// Finish records the run duration and success time.
func (r *Run) Finish(elapsed time.Duration, now time.Time) {
	r.Duration.Set(elapsed.Seconds())
	r.LastSuccess.Set(float64(now.Unix()))
}

// WriteTextfile writes all metrics to path atomically.
func (r *Run) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics textfile: %w", err)
	}
	return nil
}
