// Package pipeline runs a complete import: truncate staging, ingest the feed, then resolve and merge
// every staging product into the catalog.
package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/identity"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/stats"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var ErrRunInProgress = stderrors.New("an import run is already in progress")

type StagingStore interface {
	Truncate(ctx context.Context) error
	Stream(ctx context.Context) (<-chan models.StagingProduct, <-chan error)
}

type Ingester interface {
	IngestFile(ctx context.Context, path string, agg *stats.Aggregator) (models.IngestionReport, error)
}

type Resolver interface {
	Resolve(ctx context.Context, manufacturerID, manufacturerName, productID string) (*identity.Result, error)
}

type Merger interface {
	Merge(ctx context.Context, staging models.StagingProduct, resolution models.Resolution, agg *stats.Aggregator) (*models.Product, bool, error)
}

type RunStore interface {
	Create(ctx context.Context, run *models.Run) error
	Finish(ctx context.Context, run *models.Run) error
}

// Projector copies a merged product into a derived store.
type Projector interface {
	ProjectProduct(ctx context.Context, staging models.StagingProduct, product *models.Product) error
}

type Publisher interface {
	PublishProductMerged(ctx context.Context, product *models.Product) error
	PublishRunReport(ctx context.Context, run *models.Run) error
}

type Recorder interface {
	RecordRun(run *models.Run)
}

type Config struct {
	FeedPath            string
	RejectionTraceLimit int
}

type Pipeline struct {
	staging  StagingStore
	ingester Ingester
	resolver Resolver
	merger   Merger
	runs     RunStore
	config   Config
	logger   ectologger.Logger

	projector Projector
	publisher Publisher
	recorder  Recorder

	running sync.Mutex

	mu         sync.Mutex
	background chan struct{}
}

func NewPipeline(
	staging StagingStore,
	ingester Ingester,
	resolver Resolver,
	merger Merger,
	runs RunStore,
	config Config,
	logger ectologger.Logger,
) *Pipeline {
	return &Pipeline{
		staging:  staging,
		ingester: ingester,
		resolver: resolver,
		merger:   merger,
		runs:     runs,
		config:   config,
		logger:   logger,
	}
}

func (p *Pipeline) WithProjector(projector Projector) *Pipeline {
	p.projector = projector
	return p
}

func (p *Pipeline) WithPublisher(publisher Publisher) *Pipeline {
	p.publisher = publisher
	return p
}

func (p *Pipeline) WithRecorder(recorder Recorder) *Pipeline {
	p.recorder = recorder
	return p
}

// Run executes one import of feedPath, or of the configured feed when feedPath is empty. A second
// call while a run is active returns ErrRunInProgress. The returned run carries the report even
// when the run failed.
func (p *Pipeline) Run(ctx context.Context, feedPath string) (*models.Run, error) {
	if !p.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.running.Unlock()

	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	ctx, run := p.begin(ctx, feedPath)
	err := p.complete(ctx, run)
	return run, err
}

// Start records a new run and executes it in the background. The returned run is a snapshot taken
// before execution starts. The run outlives cancellation of ctx.
func (p *Pipeline) Start(ctx context.Context, feedPath string) (*models.Run, error) {
	if !p.running.TryLock() {
		return nil, ErrRunInProgress
	}

	ctx, run := p.begin(context.WithoutCancel(ctx), feedPath)
	snapshot := *run

	done := make(chan struct{})
	p.mu.Lock()
	p.background = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer p.running.Unlock()

		ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Start")
		defer span.End()

		_ = p.complete(ctx, run)
	}()
	return &snapshot, nil
}

// Wait blocks until the latest run launched by Start has finished or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.background
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) begin(ctx context.Context, feedPath string) (context.Context, *models.Run) {
	if feedPath == "" {
		feedPath = p.config.FeedPath
	}

	run := &models.Run{
		ID:        uuid.NewString(),
		Status:    models.RunStatusRunning,
		FeedPath:  feedPath,
		StartedAt: time.Now().UTC(),
	}
	ctx = appctx.SetRunID(ctx, run.ID)
	logger := p.logger.WithContext(ctx).WithFields(map[string]any{"run_id": run.ID, "feed_path": feedPath})
	logger.Info("Starting import run")

	if err := p.runs.Create(ctx, run); err != nil {
		logger.WithError(err).Error("Failed to record run start")
	}
	return ctx, run
}

func (p *Pipeline) complete(ctx context.Context, run *models.Run) error {
	agg := stats.NewAggregator(p.config.RejectionTraceLimit)
	runErr := p.execute(ctx, run, agg)

	finishedAt := time.Now().UTC()
	run.FinishedAt = &finishedAt
	run.Report = agg.Report()
	run.Status = models.RunStatusCompleted
	if runErr != nil {
		run.Status = models.RunStatusFailed
		message := runErr.Error()
		run.Error = &message
		tracing.RecordError(ctx, runErr)
	}

	p.finish(ctx, run)
	return runErr
}

func (p *Pipeline) execute(ctx context.Context, run *models.Run, agg *stats.Aggregator) error {
	logger := p.logger.WithContext(ctx).WithField("run_id", run.ID)

	if err := p.staging.Truncate(ctx); err != nil {
		logger.WithError(err).Error("Failed to truncate staging")
		return pkgerrors.Wrap(err, "failed to truncate staging")
	}

	ingestion, err := p.ingester.IngestFile(ctx, run.FeedPath, agg)
	if err != nil {
		return err
	}
	logger.WithFields(map[string]any{
		"valid_rows":             ingestion.ValidRows,
		"invalid_rows":           ingestion.InvalidRows,
		"rejected_rows_dropped":  ingestion.RejectedRowsDropped,
		"staging_writes":         ingestion.StagingWrites,
		"staging_write_failures": ingestion.StagingWriteFailures,
		"invalid_fields":         agg.InvalidFieldCounts(),
	}).Info("Ingestion finished, starting merge pass")

	records, errs := p.staging.Stream(ctx)
	for staging := range records {
		p.mergeOne(ctx, staging, agg)
	}
	if err := <-errs; err != nil {
		logger.WithError(err).Error("Failed to stream staging products")
		return pkgerrors.Wrap(err, "failed to stream staging products")
	}
	return nil
}

// mergeOne resolves and merges a single staging product. Every failure is recorded on agg.
func (p *Pipeline) mergeOne(ctx context.Context, staging models.StagingProduct, agg *stats.Aggregator) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.mergeOne")
	defer span.End()

	agg.AddStagingProduct()

	resolved, err := p.resolver.Resolve(ctx, staging.ManufacturerID, staging.ManufacturerName, staging.ProductID)
	if err != nil {
		agg.AddSkippedProduct(models.StageIdentity, err)
		return
	}
	agg.AddManufacturer(resolved.ManufacturerCreated)
	agg.AddVendor(resolved.VendorCreated)
	agg.AddBaseProduct(resolved.BaseProductCreated)

	product, changed, err := p.merger.Merge(ctx, staging, resolved.Resolution, agg)
	if err != nil {
		agg.AddSkippedProduct(models.StageMergeProduct, err)
		return
	}
	if !changed {
		return
	}

	if p.projector != nil {
		if err := p.projector.ProjectProduct(ctx, staging, product); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithField("internal_product_id", product.ID).Warn("Failed to project product")
			agg.RecordError(models.StageProjection, err)
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishProductMerged(ctx, product); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithField("internal_product_id", product.ID).Warn("Failed to publish product event")
			agg.RecordError(models.StagePublish, err)
		}
	}
}

func (p *Pipeline) finish(ctx context.Context, run *models.Run) {
	logger := p.logger.WithContext(ctx).WithField("run_id", run.ID)

	if p.publisher != nil {
		if err := p.publisher.PublishRunReport(ctx, run); err != nil {
			logger.WithError(err).Warn("Failed to publish run report")
		}
	}
	if p.recorder != nil {
		p.recorder.RecordRun(run)
	}
	if err := p.runs.Finish(ctx, run); err != nil {
		logger.WithError(err).Error("Failed to record run result")
	}

	merge := run.Report.Merge
	fields := map[string]any{
		"status":             run.Status,
		"duration":           run.FinishedAt.Sub(run.StartedAt).String(),
		"valid_rows":         run.Report.Ingestion.ValidRows,
		"invalid_rows":       run.Report.Ingestion.InvalidRows,
		"staging_products":   merge.StagingProducts,
		"new_manufacturers":  merge.NewManufacturers,
		"new_vendors":        merge.NewVendors,
		"new_base_products":  merge.NewBaseProducts,
		"skipped_products":   merge.SkippedProducts,
		"new_products":       merge.NewProducts,
		"new_variants":       merge.NewVariants,
		"updated_variants":   merge.UpdatedVariants,
		"unchanged_variants": merge.UnchangedVariants,
		"failed_variants":    merge.FailedVariants,
		"errors":             len(run.Report.Errors),
	}
	if run.Status == models.RunStatusFailed {
		logger.WithFields(fields).Error("Import run failed")
		return
	}
	logger.WithFields(fields).Info("Import run completed")
}
