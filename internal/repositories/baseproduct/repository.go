package baseproduct

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const baseProductTable = "base_products"

var baseProductStruct = database.NewStruct(new(models.BaseProduct))

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

// GetOrCreate returns the base product for the natural key. A new row is assigned a fresh internal
// product id, which never changes afterwards.
func (r *Repository) GetOrCreate(ctx context.Context, manufacturerID, vendorID, vendorProductID string) (*models.BaseProduct, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "baseproduct.Repository.GetOrCreate")
	defer span.End()

	logger := r.logger.WithContext(ctx).WithFields(map[string]any{
		"manufacturer_id":   manufacturerID,
		"vendor_id":         vendorID,
		"vendor_product_id": vendorProductID,
	})

	ib := database.NewInsertBuilder().
		InsertInto(baseProductTable).
		Cols("id", "manufacturer_id", "vendor_id", "vendor_product_id", "internal_product_id").
		Values(uuid.NewString(), manufacturerID, vendorID, vendorProductID, uuid.NewString()).
		OnConflictDoNothing("manufacturer_id", "vendor_id", "vendor_product_id").
		Returning(baseProductStruct.Columns()...)

	query, args := ib.Build()
	record := models.BaseProduct{}
	err := r.db.GetContext(ctx, &record, query, args...)
	if err == nil {
		return &record, true, nil
	}
	if !database.IsNoRows(err) {
		logger.WithError(err).Error("Failed to insert base product")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert base product")
	}

	sb := baseProductStruct.SelectFrom(baseProductTable)
	sb.Where(
		sb.Equal("manufacturer_id", manufacturerID),
		sb.Equal("vendor_id", vendorID),
		sb.Equal("vendor_product_id", vendorProductID),
	)
	query, args = sb.Build()
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		logger.WithError(err).Error("Failed to get base product")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get base product")
	}
	return &record, false, nil
}
