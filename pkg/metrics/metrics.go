// Package metrics provides Prometheus metrics for clover import runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ramsey-B/clover/pkg/models"
)

var (
	// ImportRunsTotal tracks finished import runs by status
	ImportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Total number of import runs by status",
		},
		[]string{"status"},
	)

	// ImportRunDuration tracks import run duration in seconds
	ImportRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "import",
			Name:      "run_duration_seconds",
			Help:      "Duration of import runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	// LastRunTimestamp is the unix time the last import run finished
	LastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "import",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last import run finished, by status",
		},
		[]string{"status"},
	)

	// IngestionRowsTotal tracks feed rows by validation outcome
	IngestionRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingestion",
			Name:      "rows_total",
			Help:      "Total number of feed rows by outcome",
		},
		[]string{"outcome"},
	)

	// StagingWriteFailuresTotal tracks valid rows that could not be staged
	StagingWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingestion",
			Name:      "staging_write_failures_total",
			Help:      "Total number of valid rows that failed to write to staging",
		},
	)

	// MergeVariantsTotal tracks merged variants by outcome
	MergeVariantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "variants_total",
			Help:      "Total number of merged variants by outcome",
		},
		[]string{"outcome"},
	)

	// CreatedRecordsTotal tracks canonical records created by kind
	CreatedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "created_records_total",
			Help:      "Total number of canonical records created by kind",
		},
		[]string{"kind"},
	)

	// SkippedProductsTotal tracks staging products skipped by identity or product merge failures
	SkippedProductsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "skipped_products_total",
			Help:      "Total number of staging products skipped",
		},
	)

	// RunErrorsTotal tracks recoverable errors by pipeline stage
	RunErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "import",
			Name:      "errors_total",
			Help:      "Total number of recoverable errors by pipeline stage",
		},
		[]string{"stage"},
	)
)

// RecordRun exports the counters of a finished run.
func RecordRun(run *models.Run) {
	status := string(run.Status)
	ImportRunsTotal.WithLabelValues(status).Inc()
	if run.FinishedAt != nil {
		ImportRunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
		LastRunTimestamp.WithLabelValues(status).Set(float64(run.FinishedAt.Unix()))
	}

	ingestion := run.Report.Ingestion
	IngestionRowsTotal.WithLabelValues("valid").Add(float64(ingestion.ValidRows))
	IngestionRowsTotal.WithLabelValues("invalid").Add(float64(ingestion.InvalidRows))
	StagingWriteFailuresTotal.Add(float64(ingestion.StagingWriteFailures))

	merge := run.Report.Merge
	MergeVariantsTotal.WithLabelValues("created").Add(float64(merge.NewVariants))
	MergeVariantsTotal.WithLabelValues("updated").Add(float64(merge.UpdatedVariants))
	MergeVariantsTotal.WithLabelValues("unchanged").Add(float64(merge.UnchangedVariants))
	MergeVariantsTotal.WithLabelValues("failed").Add(float64(merge.FailedVariants))

	CreatedRecordsTotal.WithLabelValues("manufacturer").Add(float64(merge.NewManufacturers))
	CreatedRecordsTotal.WithLabelValues("vendor").Add(float64(merge.NewVendors))
	CreatedRecordsTotal.WithLabelValues("base_product").Add(float64(merge.NewBaseProducts))
	CreatedRecordsTotal.WithLabelValues("product").Add(float64(merge.NewProducts))
	SkippedProductsTotal.Add(float64(merge.SkippedProducts))

	for _, stageErr := range run.Report.Errors {
		RunErrorsTotal.WithLabelValues(string(stageErr.Stage)).Inc()
	}
}

// RunRecorder hands finished runs to RecordRun.
type RunRecorder struct{}

func NewRunRecorder() *RunRecorder {
	return &RunRecorder{}
}

func (RunRecorder) RecordRun(run *models.Run) {
	RecordRun(run)
}
