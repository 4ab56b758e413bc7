package product_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/manufacturer"
	"github.com/Ramsey-B/clover/internal/repositories/product"
	"github.com/Ramsey-B/clover/internal/repositories/productvendor"
	"github.com/Ramsey-B/clover/internal/repositories/repotest"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/stats"
)

func ptr[T any](v T) *T { return &v }

func TestRepository_Catalog(t *testing.T) {
	db := repotest.DB(t)
	logger := repotest.Logger()
	ctx := context.Background()

	supplierID := uuid.NewString()
	m, _, err := manufacturer.NewRepository(db, logger).GetOrCreate(ctx, supplierID, "Acme")
	require.NoError(t, err)
	v, _, err := productvendor.NewRepository(db, logger).GetOrCreate(ctx, supplierID, "Acme")
	require.NoError(t, err)

	repo := product.NewRepository(db, logger)
	seed := models.NewProduct(uuid.NewString(), ptr("Widget"), m.ID, v.ID)

	created, isNew, err := repo.GetOrCreate(ctx, seed)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "Widget", *created.Name)
	assert.Equal(t, models.ProductTypeNonInventory, created.Type)
	assert.Empty(t, created.Variants)

	seed.Name = ptr("Renamed")
	existing, isNew, err := repo.GetOrCreate(ctx, seed)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "Widget", *existing.Name)

	variant := models.Variant{
		ID:                 "abcdefghijkl",
		SKU:                "sku-1",
		Cost:               ptr(10.0),
		Price:              ptr(13.0),
		Currency:           models.DefaultCurrency,
		ManufacturerItemID: "item-1",
		OptionName:         "BX, Widget",
		Images:             []models.Image{{CDNLink: "https://cdn/1.png", FileName: "1.png"}},
	}

	t.Run("append assigns positions and ignores duplicates", func(t *testing.T) {
		appended, err := repo.AppendVariant(ctx, seed.ID, variant)
		require.NoError(t, err)
		assert.True(t, appended)

		appended, err = repo.AppendVariant(ctx, seed.ID, variant)
		require.NoError(t, err)
		assert.False(t, appended)

		second := variant
		second.ID = "bcdefghijklm"
		second.SKU = "sku-2"
		appended, err = repo.AppendVariant(ctx, seed.ID, second)
		require.NoError(t, err)
		assert.True(t, appended)

		stored, err := repo.GetProduct(ctx, seed.ID)
		require.NoError(t, err)
		require.Len(t, stored.Variants, 2)
		assert.Equal(t, 0, stored.Variants[0].Position)
		assert.Equal(t, "sku-2", stored.Variants[1].SKU)
		assert.Equal(t, 1, stored.Variants[1].Position)
		assert.Equal(t, variant.Images, stored.Variants[0].Images)
	})

	t.Run("update writes only patched fields", func(t *testing.T) {
		err := repo.UpdateVariant(ctx, seed.ID, "sku-1", models.VariantPatch{Cost: ptr(12.0), Price: ptr(15.6)})
		require.NoError(t, err)

		stored, err := repo.GetProduct(ctx, seed.ID)
		require.NoError(t, err)
		got, ok := stored.FindVariant("sku-1")
		require.True(t, ok)
		assert.Equal(t, 12.0, *got.Cost)
		assert.Equal(t, 15.6, *got.Price)
		assert.Equal(t, "BX, Widget", got.OptionName)
		assert.Equal(t, "abcdefghijkl", got.ID)
	})

	t.Run("update of an unknown sku is not found", func(t *testing.T) {
		err := repo.UpdateVariant(ctx, seed.ID, "missing", models.VariantPatch{Cost: ptr(1.0)})
		repotest.AssertNotFound(t, err)
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		_, err := repo.GetProduct(ctx, uuid.NewString())
		repotest.AssertNotFound(t, err)
	})
}

func TestRepository_MergeTwiceIsUnchanged(t *testing.T) {
	db := repotest.DB(t)
	logger := repotest.Logger()
	ctx := context.Background()

	supplierID := uuid.NewString()
	m, _, err := manufacturer.NewRepository(db, logger).GetOrCreate(ctx, supplierID, "Acme")
	require.NoError(t, err)
	v, _, err := productvendor.NewRepository(db, logger).GetOrCreate(ctx, supplierID, "Acme")
	require.NoError(t, err)

	repo := product.NewRepository(db, logger)
	engine, err := merging.NewEngine(repo, merging.Config{MarkupPercent: merging.DefaultMarkupPercent}, logger)
	require.NoError(t, err)

	staged := models.StagingProduct{
		ProductID:        "prod789",
		ManufacturerID:   supplierID,
		ManufacturerName: "Acme",
		Variants: []models.StagingVariant{{
			SKU:                  "item123prod789BX",
			ItemID:               "item123",
			ManufacturerID:       supplierID,
			ProductName:          ptr("Widget"),
			Package:              ptr("BX"),
			Description:          ptr("A widget"),
			UnitPrice:            ptr(19.99),
			ManufacturerItemCode: ptr("ACME-123"),
			ImageURL:             ptr("https://cdn.example.com/widget.png"),
			ImageFileName:        ptr("widget.png"),
			Availability:         ptr("Y"),
		}},
	}
	resolution := models.Resolution{ManufacturerID: m.ID, VendorID: v.ID, InternalProductID: uuid.NewString()}

	_, changed, err := engine.Merge(ctx, staged, resolution, stats.NewAggregator(10))
	require.NoError(t, err)
	assert.True(t, changed)

	agg := stats.NewAggregator(10)
	_, changed, err = engine.Merge(ctx, staged, resolution, agg)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, agg.Report().Merge.UnchangedVariants)
	assert.Equal(t, 0, agg.Report().Merge.UpdatedVariants)

	stored, err := repo.GetProduct(ctx, resolution.InternalProductID)
	require.NoError(t, err)
	require.Len(t, stored.Variants, 1)
	candidate := merging.BuildCandidate(staged.Variants[0], merging.DefaultMarkupPercent)
	assert.Empty(t, merging.Diff(stored.Variants[0], candidate).Fields())
}
