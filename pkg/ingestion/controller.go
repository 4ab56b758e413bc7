package ingestion

import (
	"context"
	"io"
	"os"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/feed"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizer"
	"github.com/Ramsey-B/clover/pkg/stats"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// StagingWriter appends one normalized row to its staging record.
type StagingWriter interface {
	AppendVariant(ctx context.Context, row models.StagingRow) error
}

// Controller streams a feed into staging one chunk at a time.
type Controller struct {
	writer StagingWriter
	config feed.Config
	logger ectologger.Logger
}

func NewController(writer StagingWriter, config feed.Config, logger ectologger.Logger) *Controller {
	return &Controller{
		writer: writer,
		config: config,
		logger: logger,
	}
}

// IngestFile opens path and ingests it.
func (c *Controller) IngestFile(ctx context.Context, path string, agg *stats.Aggregator) (models.IngestionReport, error) {
	file, err := os.Open(path)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("feed_path", path).Error("Failed to open feed")
		agg.SetIngestionStatus(models.RunStatusFailed)
		readErr := errors.NewFeedReadError(0, err)
		agg.RecordError(models.StageIngestion, readErr)
		return agg.IngestionReport(), readErr
	}
	defer file.Close()

	return c.Ingest(ctx, file, agg)
}

// Ingest reads src to completion. Row-level failures are counted on agg and never stop the feed.
// A FeedReadError or a cancelled context fails ingestion.
func (c *Controller) Ingest(ctx context.Context, src io.Reader, agg *stats.Aggregator) (models.IngestionReport, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestion.Controller.Ingest")
	defer span.End()

	chunks, errs := feed.NewReader(src, c.config).Chunks(ctx)
	for chunk := range chunks {
		c.processChunk(ctx, chunk, agg)
		chunk.Ack()
	}

	if err := <-errs; err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Failed to read feed, aborting ingestion")
		agg.SetIngestionStatus(models.RunStatusFailed)
		agg.RecordError(models.StageIngestion, err)
		return agg.IngestionReport(), err
	}

	agg.SetIngestionStatus(models.RunStatusCompleted)
	report := agg.IngestionReport()
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"chunks":         report.Chunks,
		"valid_rows":     report.ValidRows,
		"invalid_rows":   report.InvalidRows,
		"staging_writes": report.StagingWrites,
	}).Info("Feed ingestion completed")

	return report, nil
}

func (c *Controller) processChunk(ctx context.Context, chunk *feed.Chunk, agg *stats.Aggregator) {
	ctx, span := tracing.StartSpan(ctx, "ingestion.Controller.processChunk")
	defer span.End()

	agg.AddChunk()
	for _, raw := range chunk.Rows {
		row, rejection := normalizer.Normalize(raw)
		if rejection != nil {
			agg.AddInvalidRow(rejection)
			continue
		}
		agg.AddValidRow()

		if err := c.writer.AppendVariant(ctx, *row); err != nil {
			stagingErr := errors.NewStagingWriteError(err).
				AddLine(row.Line).
				AddKey(row.ProductID, row.ManufacturerID, row.Variant.SKU)
			c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"line":            row.Line,
				"product_id":      row.ProductID,
				"manufacturer_id": row.ManufacturerID,
				"sku":             row.Variant.SKU,
			}).Error("Failed to write staging row")
			agg.AddStagingWriteFailure(stagingErr)
			continue
		}
		agg.AddStagingWrite()
	}

	progress := agg.IngestionReport()
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"chunk":        chunk.Index,
		"rows":         len(chunk.Rows),
		"saved_rows":   progress.StagingWrites,
		"invalid_rows": progress.InvalidRows,
	}).Infof("Processed chunk %d: %d rows saved, %d invalid so far", chunk.Index, progress.StagingWrites, progress.InvalidRows)
}
