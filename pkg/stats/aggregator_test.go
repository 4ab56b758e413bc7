package stats

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
)

func rejection(line int, fields ...string) *errors.RowValidationError {
	return errors.NewRowValidationError(models.RejectedRow{Line: line, InvalidFields: fields})
}

func TestAggregator_RejectionTraceIsBounded(t *testing.T) {
	agg := NewAggregator(2)

	agg.AddInvalidRow(rejection(2, "ItemID"))
	agg.AddInvalidRow(rejection(3, "ProductID"))
	agg.AddInvalidRow(rejection(4, "ItemID", "UnitPrice"))

	report := agg.IngestionReport()
	assert.Equal(t, 3, report.InvalidRows)
	require.Len(t, report.RejectedRows, 2)
	assert.Equal(t, 2, report.RejectedRows[0].Line)
	assert.Equal(t, 3, report.RejectedRows[1].Line)
	assert.Equal(t, 1, report.RejectedRowsDropped)
}

func TestAggregator_InvalidFieldCounts(t *testing.T) {
	agg := NewAggregator(10)
	agg.AddInvalidRow(rejection(2, "ItemID"))
	agg.AddInvalidRow(rejection(3, "ItemID", "UnitPrice"))

	assert.Equal(t, map[string]int{"ItemID": 2, "UnitPrice": 1}, agg.InvalidFieldCounts())
}

func TestAggregator_MergeCounters(t *testing.T) {
	agg := NewAggregator(DefaultRejectionTraceLimit)

	agg.AddStagingProduct()
	agg.AddStagingProduct()
	agg.AddManufacturer(true)
	agg.AddManufacturer(false)
	agg.AddVendor(true)
	agg.AddBaseProduct(true)
	agg.AddBaseProduct(false)
	agg.AddProduct(true)
	agg.AddProduct(false)
	agg.AddVariant(VariantCreated)
	agg.AddVariant(VariantCreated)
	agg.AddVariant(VariantUpdated)
	agg.AddVariant(VariantUnchanged)

	merge := agg.Report().Merge
	assert.Equal(t, models.MergeReport{
		StagingProducts:   2,
		NewManufacturers:  1,
		NewVendors:        1,
		NewBaseProducts:   1,
		ResolvedProducts:  2,
		NewProducts:       1,
		NewVariants:       2,
		UpdatedVariants:   1,
		UnchangedVariants: 1,
	}, merge)
}

func TestAggregator_ErrorsAreTaggedWithStage(t *testing.T) {
	agg := NewAggregator(DefaultRejectionTraceLimit)

	agg.AddStagingWriteFailure(errors.NewStagingWriteError(stderrors.New("boom")).AddLine(7).AddKey("p1", "m1", "skuA"))
	agg.AddSkippedProduct(models.StageIdentity, errors.NewIdentityResolutionError("no vendor id").AddManufacturer("m1", "Acme"))
	agg.AddFailedVariant(errors.NewVariantMergeError("ip1", "skuB", stderrors.New("write failed")))
	agg.RecordError(models.StagePublish, nil)

	report := agg.Report()
	assert.Equal(t, 1, report.Ingestion.StagingWriteFailures)
	assert.Equal(t, 1, report.Merge.SkippedProducts)
	assert.Equal(t, 1, report.Merge.FailedVariants)
	require.Len(t, report.Errors, 3)

	assert.Equal(t, models.StageStaging, report.Errors[0].Stage)
	assert.Equal(t, 7, report.Errors[0].Keys["line"])
	assert.Equal(t, models.StageIdentity, report.Errors[1].Stage)
	assert.Equal(t, "m1", report.Errors[1].Keys["manufacturer_id"])
	assert.Equal(t, models.StageMergeVariant, report.Errors[2].Stage)
	assert.Equal(t, "skuB", report.Errors[2].Keys["sku"])

	identityOnly := agg.Errors(models.StageIdentity)
	require.Len(t, identityOnly, 1)
	assert.Equal(t, "no vendor id", identityOnly[0].Message)
}

func TestAggregator_SnapshotsAreIndependent(t *testing.T) {
	agg := NewAggregator(5)
	agg.AddInvalidRow(rejection(2, "ItemID"))

	snapshot := agg.IngestionReport()
	agg.AddInvalidRow(rejection(3, "ItemID"))

	assert.Len(t, snapshot.RejectedRows, 1)
	assert.Len(t, agg.IngestionReport().RejectedRows, 2)
}

func TestAggregator_ConcurrentUpdates(t *testing.T) {
	agg := NewAggregator(DefaultRejectionTraceLimit)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.AddValidRow()
			agg.AddStagingWrite()
			agg.AddVariant(VariantUnchanged)
		}()
	}
	wg.Wait()

	report := agg.Report()
	assert.Equal(t, 50, report.Ingestion.ValidRows)
	assert.Equal(t, 50, report.Ingestion.StagingWrites)
	assert.Equal(t, 50, report.Merge.UnchangedVariants)
}
