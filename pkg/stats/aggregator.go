// Package stats aggregates the counters and errors of a single import run.
package stats

import (
	"sync"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
)

const DefaultRejectionTraceLimit = 1000

// VariantOutcome is the result of merging one staging variant.
type VariantOutcome string

const (
	VariantCreated   VariantOutcome = "created"
	VariantUpdated   VariantOutcome = "updated"
	VariantUnchanged VariantOutcome = "unchanged"
)

// Aggregator is scoped to one run and passed explicitly to every stage. It is safe for concurrent use.
type Aggregator struct {
	mu sync.Mutex

	traceLimit int
	ingestion  models.IngestionReport
	merge      models.MergeReport
	errors     []models.StageError
}

func NewAggregator(traceLimit int) *Aggregator {
	if traceLimit < 0 {
		traceLimit = 0
	}
	return &Aggregator{
		traceLimit: traceLimit,
		ingestion: models.IngestionReport{
			Status:       models.RunStatusRunning,
			RejectedRows: []models.RejectedRow{},
		},
		errors: []models.StageError{},
	}
}

func (a *Aggregator) AddChunk() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ingestion.Chunks++
}

func (a *Aggregator) AddValidRow() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ingestion.ValidRows++
}

// AddInvalidRow counts a rejected row and keeps its trace until the trace limit is reached.
func (a *Aggregator) AddInvalidRow(rejection *errors.RowValidationError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ingestion.InvalidRows++
	if len(a.ingestion.RejectedRows) >= a.traceLimit {
		a.ingestion.RejectedRowsDropped++
		return
	}
	a.ingestion.RejectedRows = append(a.ingestion.RejectedRows, rejection.Row)
}

func (a *Aggregator) AddStagingWrite() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ingestion.StagingWrites++
}

func (a *Aggregator) AddStagingWriteFailure(err error) {
	a.mu.Lock()
	a.ingestion.StagingWriteFailures++
	a.mu.Unlock()

	a.RecordError(models.StageStaging, err)
}

func (a *Aggregator) SetIngestionStatus(status models.RunStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ingestion.Status = status
}

func (a *Aggregator) AddStagingProduct() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.merge.StagingProducts++
}

func (a *Aggregator) AddManufacturer(created bool) {
	if !created {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.merge.NewManufacturers++
}

func (a *Aggregator) AddVendor(created bool) {
	if !created {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.merge.NewVendors++
}

// AddBaseProduct counts a resolved base product and, when created, a new one.
func (a *Aggregator) AddBaseProduct(created bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.merge.ResolvedProducts++
	if created {
		a.merge.NewBaseProducts++
	}
}

// AddSkippedProduct records a staging product whose variants were not merged.
func (a *Aggregator) AddSkippedProduct(stage models.Stage, err error) {
	a.mu.Lock()
	a.merge.SkippedProducts++
	a.mu.Unlock()

	a.RecordError(stage, err)
}

func (a *Aggregator) AddProduct(created bool) {
	if !created {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.merge.NewProducts++
}

func (a *Aggregator) AddVariant(outcome VariantOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch outcome {
	case VariantCreated:
		a.merge.NewVariants++
	case VariantUpdated:
		a.merge.UpdatedVariants++
	case VariantUnchanged:
		a.merge.UnchangedVariants++
	}
}

func (a *Aggregator) AddFailedVariant(err error) {
	a.mu.Lock()
	a.merge.FailedVariants++
	a.mu.Unlock()

	a.RecordError(models.StageMergeVariant, err)
}

// RecordError tags err with its stage and keeps it for the report.
func (a *Aggregator) RecordError(stage models.Stage, err error) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errors = append(a.errors, models.StageError{
		Stage:   stage,
		Message: err.Error(),
		Keys:    errors.Keys(err),
	})
}

// Errors returns the recorded errors of the given stages, or all of them when none are given.
func (a *Aggregator) Errors(stages ...models.Stage) []models.StageError {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(stages) == 0 {
		return append([]models.StageError{}, a.errors...)
	}
	return ectolinq.Filter(a.errors, func(e models.StageError) bool {
		return ectolinq.Contains(stages, e.Stage)
	})
}

// IngestionReport returns a snapshot of the ingestion counters.
func (a *Aggregator) IngestionReport() models.IngestionReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ingestionSnapshot()
}

// Report returns a snapshot of the whole run.
func (a *Aggregator) Report() models.RunReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	return models.RunReport{
		Ingestion: a.ingestionSnapshot(),
		Merge:     a.merge,
		Errors:    append([]models.StageError{}, a.errors...),
	}
}

func (a *Aggregator) ingestionSnapshot() models.IngestionReport {
	snapshot := a.ingestion
	snapshot.RejectedRows = append([]models.RejectedRow{}, a.ingestion.RejectedRows...)
	return snapshot
}

// InvalidFieldCounts tallies how often each field caused a rejection in the retained trace.
func (a *Aggregator) InvalidFieldCounts() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := map[string]int{}
	fieldLists := ectolinq.Map(a.ingestion.RejectedRows, func(row models.RejectedRow) []string {
		return row.InvalidFields
	})
	for _, fields := range fieldLists {
		for _, field := range fields {
			counts[field]++
		}
	}
	return counts
}
