// Package metrics collects Prometheus metrics about crawls.
//
// A Recorder owns its own registry so several recorders (one per test, or
// one per process) never collide on the global default registerer. The
// registry can be exported for the node-exporter textfile collector with
// WriteTextfile.
//
// Metrics:
//   - quotecrawl_pages_fetched_total (Counter): pages fetched successfully
//   - quotecrawl_fetch_errors_total (Counter): page fetches that failed
//   - quotecrawl_fetch_duration_seconds (Histogram): fetch and parse duration
//   - quotecrawl_records_extracted_total (Counter): records emitted
//   - quotecrawl_missing_fields_total{field} (Counter): fields that degraded to empty
//   - quotecrawl_branch_stops_total{reason} (Counter): branches ended, by stop reason
//   - quotecrawl_last_run_pages{host} (Gauge): pages of the last finished run
//   - quotecrawl_last_run_records{host} (Gauge): records of the last finished run
//   - quotecrawl_last_run_timestamp_seconds{host} (Gauge): end time of the last finished run
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/quotecrawl/internal/model"
)

const namespace = "quotecrawl"

// Recorder records crawl metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	pagesFetched     prometheus.Counter
	fetchErrors      prometheus.Counter
	fetchDuration    prometheus.Histogram
	recordsExtracted prometheus.Counter
	missingFields    *prometheus.CounterVec
	branchStops      *prometheus.CounterVec
	lastRunPages     *prometheus.GaugeVec
	lastRunRecords   *prometheus.GaugeVec
	lastRunTime      *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of listing pages fetched successfully",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Total number of page fetches that failed",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetching and parsing one page",
			Buckets:   prometheus.DefBuckets,
		}),
		recordsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_extracted_total",
			Help:      "Total number of quote records emitted",
		}),
		missingFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_fields_total",
			Help:      "Total number of record fields that degraded to an empty value",
		}, []string{"field"}),
		branchStops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "branch_stops_total",
			Help:      "Total number of crawl branches that ended, by stop reason",
		}, []string{"reason"}),
		lastRunPages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_pages",
			Help:      "Number of pages fetched by the last finished run",
		}, []string{"host"}),
		lastRunRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_records",
			Help:      "Number of records emitted by the last finished run",
		}, []string{"host"}),
		lastRunTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}, []string{"host"}),
	}

	r.registry.MustRegister(
		r.pagesFetched,
		r.fetchErrors,
		r.fetchDuration,
		r.recordsExtracted,
		r.missingFields,
		r.branchStops,
		r.lastRunPages,
		r.lastRunRecords,
		r.lastRunTime,
	)
	return r
}

// Registry returns the registry holding all metrics of r.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// PageFetched records a successful fetch that took d.
func (r *Recorder) PageFetched(d time.Duration) {
	if r == nil {
		return
	}
	r.pagesFetched.Inc()
	r.fetchDuration.Observe(d.Seconds())
}

// FetchFailed records a failed fetch.
func (r *Recorder) FetchFailed() {
	if r == nil {
		return
	}
	r.fetchErrors.Inc()
}

// RecordsExtracted adds n emitted records.
func (r *Recorder) RecordsExtracted(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.recordsExtracted.Add(float64(n))
}

// MissingField records one degraded field.
func (r *Recorder) MissingField(field string) {
	if r == nil {
		return
	}
	r.missingFields.WithLabelValues(field).Inc()
}

// BranchStopped records the end of a branch.
func (r *Recorder) BranchStopped(reason model.StopReason) {
	if r == nil || reason == model.StopNone {
		return
	}
	r.branchStops.WithLabelValues(string(reason)).Inc()
}

// RunFinished sets the last-run gauges from a finished report.
func (r *Recorder) RunFinished(report *model.CrawlReport) {
	if r == nil || report == nil {
		return
	}
	host := report.Host()
	r.lastRunPages.WithLabelValues(host).Set(float64(report.PageCount()))
	r.lastRunRecords.WithLabelValues(host).Set(float64(report.RecordCount()))

	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	r.lastRunTime.WithLabelValues(host).Set(float64(finished.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format to path,
// atomically, for the node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
