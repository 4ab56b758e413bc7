package product

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreate inserts seed when no product has its id and returns the stored product with its
// variants. An existing product is never modified.
func (r *Repository) GetOrCreate(ctx context.Context, seed *models.Product) (*models.Product, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.GetOrCreate")
	defer span.End()

	ib := productStruct.Insert(productTable, FromProduct(seed)).OnConflictDoNothing("id")
	query, args := ib.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("internal_product_id", seed.ID).Error("Failed to insert product")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert product")
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("internal_product_id", seed.ID).Error("Failed to read product insert result")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert product")
	}

	product, err := r.GetProduct(ctx, seed.ID)
	if err != nil {
		return nil, false, err
	}
	return product, inserted > 0, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.GetProduct")
	defer span.End()

	sb := productStruct.SelectFrom(productTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	row := ProductRow{}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "product '%s' not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("internal_product_id", id).Error("Failed to get product")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get product")
	}

	vb := variantStruct.SelectFrom(variantTable)
	vb.Where(vb.Equal("product_id", id))
	vb.OrderBy("position").Asc()
	query, args = vb.Build()

	variants := []VariantRow{}
	if err := r.db.SelectContext(ctx, &variants, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("internal_product_id", id).Error("Failed to get product variants")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get product variants")
	}

	return ToProduct(&row, variants), nil
}

// AppendVariant stores variant after the product's last position. It reports false, writing
// nothing, when the sku is already stored on the product.
func (r *Repository) AppendVariant(ctx context.Context, productID string, variant models.Variant) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.AppendVariant")
	defer span.End()

	logger := r.logger.WithContext(ctx).WithFields(map[string]any{
		"internal_product_id": productID,
		"sku":                 variant.SKU,
	})

	nextPosition := sqlbuilder.Buildf(
		"(SELECT COALESCE(MAX(position) + 1, 0) FROM "+variantTable+" WHERE product_id = %v)",
		productID,
	)
	ib := database.NewInsertBuilder().
		InsertInto(variantTable).
		Cols(
			"product_id", "sku", "id", "position", "cost", "price", "currency", "manufacturer_item_id",
			"packaging", "option_name", "manufacturer_item_code", "description", "available", "images",
			"options_path", "option_items_path",
		).
		Values(
			productID, variant.SKU, variant.ID, nextPosition, nullFloat(variant.Cost), nullFloat(variant.Price),
			variant.Currency, variant.ManufacturerItemID, nullString(variant.Packaging), variant.OptionName,
			nullString(variant.ManufacturerItemCode), nullString(variant.Description), variant.Available,
			database.NewJSONB(nonNil(variant.Images)), variant.OptionsPath, variant.OptionItemsPath,
		).
		OnConflictDoNothing("product_id", "sku")

	var appended bool
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		query, args := ib.Build()
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		appended = affected > 0
		if !appended {
			return nil
		}
		return r.touchProduct(ctx, tx, productID)
	})
	if err != nil {
		logger.WithError(err).Error("Failed to append variant")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to append variant")
	}
	return appended, nil
}

// UpdateVariant writes only the columns set on patch.
func (r *Repository) UpdateVariant(ctx context.Context, productID, sku string, patch models.VariantPatch) error {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.UpdateVariant")
	defer span.End()

	if patch.IsEmpty() {
		return nil
	}

	logger := r.logger.WithContext(ctx).WithFields(map[string]any{
		"internal_product_id": productID,
		"sku":                 sku,
		"fields":              patch.Fields(),
	})

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(variantTable)
	ub.Set(variantAssignments(ub, patch)...)
	ub.Where(ub.Equal("product_id", productID), ub.Equal("sku", sku))

	var affected int64
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		query, args := ub.Build()
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if affected, err = result.RowsAffected(); err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		return r.touchProduct(ctx, tx, productID)
	})
	if err != nil {
		logger.WithError(err).Error("Failed to update variant")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update variant")
	}
	if affected == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "variant '%s' not found on product '%s'", sku, productID)
	}
	return nil
}

func (r *Repository) touchProduct(ctx context.Context, tx database.Tx, productID string) error {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(productTable)
	ub.Set(ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.Equal("id", productID))
	query, args := ub.Build()
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func variantAssignments(ub *sqlbuilder.UpdateBuilder, patch models.VariantPatch) []string {
	var assignments []string
	if patch.Cost != nil {
		assignments = append(assignments, ub.Assign("cost", *patch.Cost))
	}
	if patch.Price != nil {
		assignments = append(assignments, ub.Assign("price", *patch.Price))
	}
	if patch.Currency != nil {
		assignments = append(assignments, ub.Assign("currency", *patch.Currency))
	}
	if patch.ManufacturerItemID != nil {
		assignments = append(assignments, ub.Assign("manufacturer_item_id", *patch.ManufacturerItemID))
	}
	if patch.Packaging != nil {
		assignments = append(assignments, ub.Assign("packaging", *patch.Packaging))
	}
	if patch.OptionName != nil {
		assignments = append(assignments, ub.Assign("option_name", *patch.OptionName))
	}
	if patch.ManufacturerItemCode != nil {
		assignments = append(assignments, ub.Assign("manufacturer_item_code", *patch.ManufacturerItemCode))
	}
	if patch.Description != nil {
		assignments = append(assignments, ub.Assign("description", *patch.Description))
	}
	if patch.Available != nil {
		assignments = append(assignments, ub.Assign("available", *patch.Available))
	}
	if patch.Images != nil {
		assignments = append(assignments, ub.Assign("images", database.NewJSONB(patch.Images)))
	}
	return append(assignments, ub.Assign("updated_at", time.Now().UTC()))
}
