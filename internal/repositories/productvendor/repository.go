package productvendor

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

const vendorTable = "vendors"

var vendorStruct = database.NewStruct(new(models.Vendor))

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

// GetOrCreate returns the vendor for the supplier key pair, inserting it on first sight.
// Concurrent callers converge on the same row through the unique constraint.
func (r *Repository) GetOrCreate(ctx context.Context, supplierID, supplierName string) (*models.Vendor, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "productvendor.Repository.GetOrCreate")
	defer span.End()

	logger := r.logger.WithContext(ctx).WithFields(map[string]any{
		"supplier_vendor_id":   supplierID,
		"supplier_vendor_name": supplierName,
	})

	ib := database.NewInsertBuilder().
		InsertInto(vendorTable).
		Cols("id", "supplier_vendor_id", "supplier_vendor_name").
		Values(uuid.NewString(), supplierID, supplierName).
		OnConflictDoNothing("supplier_vendor_id", "supplier_vendor_name").
		Returning(vendorStruct.Columns()...)

	query, args := ib.Build()
	record := models.Vendor{}
	err := r.db.GetContext(ctx, &record, query, args...)
	if err == nil {
		return &record, true, nil
	}
	if !database.IsNoRows(err) {
		logger.WithError(err).Error("Failed to insert vendor")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert vendor")
	}

	sb := vendorStruct.SelectFrom(vendorTable)
	sb.Where(
		sb.Equal("supplier_vendor_id", supplierID),
		sb.Equal("supplier_vendor_name", supplierName),
	)
	query, args = sb.Build()
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		logger.WithError(err).Error("Failed to get vendor")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get vendor")
	}
	return &record, false, nil
}
