// Package merging reconciles staged variants into the canonical catalog. Only changed fields are
// written. Variants are never removed.
package merging

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	nanoid "github.com/jaevor/go-nanoid"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizer"
	"github.com/Ramsey-B/clover/pkg/stats"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	DefaultMarkupPercent = 30

	variantIDAlphabet = "abcdefghijklmnopqrstuvwxyz"
	variantIDLength   = 12
)

// CatalogStore persists canonical products and their variants.
type CatalogStore interface {
	GetOrCreate(ctx context.Context, seed *models.Product) (*models.Product, bool, error)
	// AppendVariant reports false when the product already has a variant with the same sku.
	AppendVariant(ctx context.Context, productID string, variant models.Variant) (bool, error)
	UpdateVariant(ctx context.Context, productID, sku string, patch models.VariantPatch) error
}

type Config struct {
	MarkupPercent float64
}

type Engine struct {
	store     CatalogStore
	markup    float64
	variantID func() string
	logger    ectologger.Logger
}

func NewEngine(store CatalogStore, config Config, logger ectologger.Logger) (*Engine, error) {
	variantID, err := nanoid.CustomASCII(variantIDAlphabet, variantIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create variant id generator: %w", err)
	}
	return &Engine{
		store:     store,
		markup:    config.MarkupPercent,
		variantID: variantID,
		logger:    logger,
	}, nil
}

// Merge merges one staging product and all of its variants. Variant failures are recorded on agg and
// do not stop the remaining variants. The bool reports whether the product was created or any variant
// was appended or updated. The returned error is always a product-level MergeError.
func (e *Engine) Merge(ctx context.Context, staging models.StagingProduct, resolution models.Resolution, agg *stats.Aggregator) (*models.Product, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Merge")
	defer span.End()

	product, created, err := e.MergeProduct(ctx, staging, resolution)
	if err != nil {
		return nil, false, err
	}
	agg.AddProduct(created)
	changed := created

	for _, variant := range staging.Variants {
		outcome, err := e.MergeVariant(ctx, variant, product)
		if err != nil {
			agg.AddFailedVariant(err)
			continue
		}
		agg.AddVariant(outcome)
		if outcome != stats.VariantUnchanged {
			changed = true
		}
	}
	return product, changed, nil
}

// MergeProduct fetches the canonical product for the resolution, creating it on first sight.
// An existing product is returned unchanged.
func (e *Engine) MergeProduct(ctx context.Context, staging models.StagingProduct, resolution models.Resolution) (*models.Product, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeProduct")
	defer span.End()

	seed := models.NewProduct(resolution.InternalProductID, ProductName(staging.Variants), resolution.ManufacturerID, resolution.VendorID)

	product, created, err := e.store.GetOrCreate(ctx, seed)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"internal_product_id": resolution.InternalProductID,
			"product_id":          staging.ProductID,
			"manufacturer_id":     staging.ManufacturerID,
		}).Error("Failed to get or create product")
		tracing.RecordError(ctx, err)
		return nil, false, errors.NewProductMergeError(resolution.InternalProductID, err)
	}
	if created {
		e.logger.WithContext(ctx).WithField("internal_product_id", product.ID).Debug("Created product")
	}
	return product, created, nil
}

// MergeVariant appends the staged variant to product when its sku is new, otherwise writes only the
// fields that differ from the stored variant. product is kept in step with what was written.
func (e *Engine) MergeVariant(ctx context.Context, staged models.StagingVariant, product *models.Product) (stats.VariantOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeVariant")
	defer span.End()

	candidate := BuildCandidate(staged, e.markup)

	stored, found := product.FindVariant(candidate.SKU)
	if !found {
		candidate.ID = e.variantID()
		appended, err := e.store.AppendVariant(ctx, product.ID, candidate)
		if err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"internal_product_id": product.ID,
				"sku":                 candidate.SKU,
			}).Error("Failed to append variant")
			return "", errors.NewVariantMergeError(product.ID, candidate.SKU, err)
		}
		if !appended {
			e.logger.WithContext(ctx).WithFields(map[string]any{
				"internal_product_id": product.ID,
				"sku":                 candidate.SKU,
			}).Warn("Variant already stored, skipping append")
			return stats.VariantUnchanged, nil
		}
		candidate.Position = len(product.Variants)
		product.Variants = append(product.Variants, candidate)
		return stats.VariantCreated, nil
	}

	patch := Diff(*stored, candidate)
	if patch.IsEmpty() {
		return stats.VariantUnchanged, nil
	}

	if err := e.store.UpdateVariant(ctx, product.ID, candidate.SKU, patch); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"internal_product_id": product.ID,
			"sku":                 candidate.SKU,
			"fields":              patch.Fields(),
		}).Error("Failed to update variant")
		return "", errors.NewVariantMergeError(product.ID, candidate.SKU, err)
	}
	patch.Apply(stored)
	return stats.VariantUpdated, nil
}

// ProductName is the sanitized name of the first staged variant that has one.
func ProductName(variants []models.StagingVariant) *string {
	named := ectolinq.Find(variants, func(v models.StagingVariant) bool {
		return v.ProductName != nil && *v.ProductName != ""
	})
	if named.ProductName == nil {
		return nil
	}
	name := normalizer.Sanitize(*named.ProductName)
	return &name
}

// BuildCandidate maps a staged variant onto the catalog variant shape. The id is left empty.
func BuildCandidate(staged models.StagingVariant, markupPercent float64) models.Variant {
	candidate := models.Variant{
		SKU:                  staged.SKU,
		Cost:                 staged.UnitPrice,
		Currency:             models.DefaultCurrency,
		ManufacturerItemID:   staged.ItemID,
		Packaging:            staged.Package,
		OptionName:           OptionName(staged.Package, staged.Description),
		ManufacturerItemCode: staged.ManufacturerItemCode,
		Description:          staged.Description,
		Available:            staged.Availability != nil && *staged.Availability != "",
		Images:               []models.Image{},
	}
	if staged.UnitPrice != nil {
		price := *staged.UnitPrice * (1 + markupPercent/100)
		candidate.Price = &price
	}
	if staged.ImageURL != nil && *staged.ImageURL != "" {
		fileName := ""
		if staged.ImageFileName != nil {
			fileName = *staged.ImageFileName
		}
		candidate.Images = []models.Image{{CDNLink: *staged.ImageURL, FileName: fileName}}
	}
	return candidate
}

// OptionName renders "<pkg>, <description>" with missing parts left blank.
func OptionName(pkg, description *string) string {
	return deref(pkg) + ", " + deref(description)
}

// Diff returns the candidate fields that are set and differ from stored. The id, sku and position
// are never part of a diff.
func Diff(stored, candidate models.Variant) models.VariantPatch {
	var patch models.VariantPatch

	if floatDiffers(stored.Cost, candidate.Cost) {
		patch.Cost = candidate.Cost
	}
	if floatDiffers(stored.Price, candidate.Price) {
		patch.Price = candidate.Price
	}
	if candidate.Currency != stored.Currency {
		patch.Currency = &candidate.Currency
	}
	if candidate.ManufacturerItemID != stored.ManufacturerItemID {
		patch.ManufacturerItemID = &candidate.ManufacturerItemID
	}
	if stringDiffers(stored.Packaging, candidate.Packaging) {
		patch.Packaging = candidate.Packaging
	}
	if candidate.OptionName != stored.OptionName {
		patch.OptionName = &candidate.OptionName
	}
	if stringDiffers(stored.ManufacturerItemCode, candidate.ManufacturerItemCode) {
		patch.ManufacturerItemCode = candidate.ManufacturerItemCode
	}
	if stringDiffers(stored.Description, candidate.Description) {
		patch.Description = candidate.Description
	}
	if candidate.Available != stored.Available {
		patch.Available = &candidate.Available
	}
	if ImagesDiffer(stored.Images, candidate.Images) {
		patch.Images = candidate.Images
	}
	return patch
}

// ImagesDiffer reports whether candidate should replace stored. An empty candidate never does.
func ImagesDiffer(stored, candidate []models.Image) bool {
	if len(candidate) == 0 {
		return false
	}
	if len(stored) != len(candidate) {
		return true
	}
	for i := range candidate {
		if !imageEqual(stored[i], candidate[i]) {
			return true
		}
	}
	return false
}

func imageEqual(a, b models.Image) bool {
	if a.CDNLink != b.CDNLink || a.FileName != b.FileName || a.Alt != b.Alt {
		return false
	}
	if a.Index == nil || b.Index == nil {
		return a.Index == b.Index
	}
	return *a.Index == *b.Index
}

func floatDiffers(stored, candidate *float64) bool {
	if candidate == nil {
		return false
	}
	return stored == nil || *stored != *candidate
}

func stringDiffers(stored, candidate *string) bool {
	if candidate == nil {
		return false
	}
	return stored == nil || *stored != *candidate
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
