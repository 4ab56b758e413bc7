package manufacturer

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

const manufacturerTable = "manufacturers"

var manufacturerStruct = database.NewStruct(new(models.Manufacturer))

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

// GetOrCreate returns the manufacturer for the supplier key pair, inserting it on first sight.
// Concurrent callers converge on the same row through the unique constraint.
func (r *Repository) GetOrCreate(ctx context.Context, supplierID, supplierName string) (*models.Manufacturer, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "manufacturer.Repository.GetOrCreate")
	defer span.End()

	logger := r.logger.WithContext(ctx).WithFields(map[string]any{
		"supplier_manufacturer_id":   supplierID,
		"supplier_manufacturer_name": supplierName,
	})

	ib := database.NewInsertBuilder().
		InsertInto(manufacturerTable).
		Cols("id", "supplier_manufacturer_id", "supplier_manufacturer_name").
		Values(uuid.NewString(), supplierID, supplierName).
		OnConflictDoNothing("supplier_manufacturer_id", "supplier_manufacturer_name").
		Returning(manufacturerStruct.Columns()...)

	query, args := ib.Build()
	record := models.Manufacturer{}
	err := r.db.GetContext(ctx, &record, query, args...)
	if err == nil {
		return &record, true, nil
	}
	if !database.IsNoRows(err) {
		logger.WithError(err).Error("Failed to insert manufacturer")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert manufacturer")
	}

	sb := manufacturerStruct.SelectFrom(manufacturerTable)
	sb.Where(
		sb.Equal("supplier_manufacturer_id", supplierID),
		sb.Equal("supplier_manufacturer_name", supplierName),
	)
	query, args = sb.Build()
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		logger.WithError(err).Error("Failed to get manufacturer")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get manufacturer")
	}
	return &record, false, nil
}
