package ingestion

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/feed"
	"github.com/Ramsey-B/clover/pkg/memstore"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/stats"
)

const header = "ItemID\tManufacturerID\tManufacturerName\tProductID\tProductName\tPKG\tItemDescription\tUnitPrice\n"

func newLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type failingWriter struct {
	failSKU string
	written []models.StagingRow
}

func (w *failingWriter) AppendVariant(_ context.Context, row models.StagingRow) error {
	if row.Variant.SKU == w.failSKU {
		return stderrors.New("connection reset")
	}
	w.written = append(w.written, row)
	return nil
}

func TestController_Ingest(t *testing.T) {
	src := header +
		"item123\tmanu456\tAcme Corp\tprod789\tWidget\tbx\tA high-quality widget for various purposes.\t19.99\n" +
		"item124\tmanu456\tAcme Corp\tprod789\tWidget\tcs\tCase of widgets\t199.00\n" +
		"\tmanu456\tAcme Corp\tprod789\tWidget\tea\tMissing item\t1.00\n" +
		"item125\tmanu456\tAcme Corp\tprod790\tGadget\tea\tGadget\tabc\n" +
		"item126\tmanu999\tOther Inc\tprod789\tWidget\tea\tOther manufacturer\t\n"

	store := memstore.NewStagingStore()
	agg := stats.NewAggregator(stats.DefaultRejectionTraceLimit)
	controller := NewController(store, feed.Config{ChunkSize: 2}, newLogger())

	report, err := controller.Ingest(context.Background(), strings.NewReader(src), agg)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, report.Status)
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, 3, report.ValidRows)
	assert.Equal(t, 2, report.InvalidRows)
	assert.Equal(t, 3, report.StagingWrites)

	require.Len(t, report.RejectedRows, 2)
	assert.Equal(t, 4, report.RejectedRows[0].Line)
	assert.Equal(t, []string{"ItemID"}, report.RejectedRows[0].InvalidFields)
	assert.Equal(t, 5, report.RejectedRows[1].Line)
	assert.Equal(t, []string{"UnitPrice"}, report.RejectedRows[1].InvalidFields)

	assert.Equal(t, 2, store.Len())
	staged, ok := store.Get(models.StagingKey{ProductID: "prod789", ManufacturerID: "manu456"})
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", staged.ManufacturerName)
	require.Len(t, staged.Variants, 2)
	assert.Equal(t, "item123prod789BX", staged.Variants[0].SKU)
	assert.Equal(t, "item124prod789CS", staged.Variants[1].SKU)

	other, ok := store.Get(models.StagingKey{ProductID: "prod789", ManufacturerID: "manu999"})
	require.True(t, ok)
	assert.Nil(t, other.Variants[0].UnitPrice)
}

func TestController_StagingWriteFailureContinues(t *testing.T) {
	src := header +
		"i1\tm1\tAcme\tp1\t\t\t\t1\n" +
		"i2\tm1\tAcme\tp1\t\t\t\t2\n" +
		"i3\tm1\tAcme\tp1\t\t\t\t3\n"

	writer := &failingWriter{failSKU: "i2p1"}
	agg := stats.NewAggregator(stats.DefaultRejectionTraceLimit)
	controller := NewController(writer, feed.Config{}, newLogger())

	report, err := controller.Ingest(context.Background(), strings.NewReader(src), agg)
	require.NoError(t, err)

	assert.Equal(t, 3, report.ValidRows)
	assert.Equal(t, 2, report.StagingWrites)
	assert.Equal(t, 1, report.StagingWriteFailures)
	assert.Len(t, writer.written, 2)

	stageErrors := agg.Errors(models.StageStaging)
	require.Len(t, stageErrors, 1)
	assert.Equal(t, "i2p1", stageErrors[0].Keys["sku"])
	assert.Equal(t, 3, stageErrors[0].Keys["line"])
}

type brokenReader struct{}

func (brokenReader) Read(_ []byte) (int, error) {
	return 0, stderrors.New("device not ready")
}

func TestController_FeedReadErrorFailsIngestion(t *testing.T) {
	agg := stats.NewAggregator(stats.DefaultRejectionTraceLimit)
	controller := NewController(memstore.NewStagingStore(), feed.Config{}, newLogger())

	report, err := controller.Ingest(context.Background(), brokenReader{}, agg)
	require.Error(t, err)
	assert.True(t, errors.IsFeedReadError(err))
	assert.Equal(t, models.RunStatusFailed, report.Status)
	assert.Len(t, agg.Errors(models.StageIngestion), 1)
}

func TestController_IngestFileMissing(t *testing.T) {
	agg := stats.NewAggregator(stats.DefaultRejectionTraceLimit)
	controller := NewController(memstore.NewStagingStore(), feed.Config{}, newLogger())

	report, err := controller.IngestFile(context.Background(), "testdata/does-not-exist.txt", agg)
	require.Error(t, err)
	assert.True(t, errors.IsFeedReadError(err))
	assert.Equal(t, models.RunStatusFailed, report.Status)
}
