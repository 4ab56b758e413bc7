package stagingproduct

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

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

// Truncate empties staging. It runs once at the start of every import.
func (r *Repository) Truncate(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "stagingproduct.Repository.Truncate")
	defer span.End()

	if _, err := r.db.ExecContext(ctx, "TRUNCATE TABLE "+stagingProductTable); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to truncate staging products")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to truncate staging products")
	}
	return nil
}

// AppendVariant upserts the staging record for the row's key, appending the variant to its list.
func (r *Repository) AppendVariant(ctx context.Context, row models.StagingRow) error {
	ctx, span := tracing.StartSpan(ctx, "stagingproduct.Repository.AppendVariant")
	defer span.End()

	ib := database.NewInsertBuilder().
		InsertInto(stagingProductTable).
		Cols("product_id", "manufacturer_id", "manufacturer_name", "variants").
		Values(row.ProductID, row.ManufacturerID, row.ManufacturerName, database.NewJSONB([]models.StagingVariant{row.Variant})).
		OnConflictDoUpdate(
			[]string{"product_id", "manufacturer_id"},
			"variants = "+stagingProductTable+".variants || "+database.Excluded("variants"),
			"updated_at = NOW()",
		)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"product_id":      row.ProductID,
			"manufacturer_id": row.ManufacturerID,
			"sku":             row.Variant.SKU,
		}).Error("Failed to append staging variant")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to append staging variant")
	}
	return nil
}

// Stream walks staging in insertion order through a server-side cursor. The records channel is
// closed when the cursor is exhausted; a failure is sent on the error channel first.
func (r *Repository) Stream(ctx context.Context) (<-chan models.StagingProduct, <-chan error) {
	records := make(chan models.StagingProduct)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(records)

		ctx, span := tracing.StartSpan(ctx, "stagingproduct.Repository.Stream")
		defer span.End()

		sb := stagingProductStruct.SelectFrom(stagingProductTable)
		sb.OrderBy("id").Asc()
		query, args := sb.Build()

		rows, err := r.db.QueryxContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to query staging products")
			errs <- httperror.NewHTTPError(http.StatusInternalServerError, "failed to query staging products")
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row StagingProductRow
			if err := rows.StructScan(&row); err != nil {
				r.logger.WithContext(ctx).WithError(err).Error("Failed to scan staging product")
				errs <- httperror.NewHTTPError(http.StatusInternalServerError, "failed to scan staging product")
				return
			}
			select {
			case records <- ToStagingProduct(&row):
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to iterate staging products")
			errs <- httperror.NewHTTPError(http.StatusInternalServerError, "failed to iterate staging products")
		}
	}()

	return records, errs
}
