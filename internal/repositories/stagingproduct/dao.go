package stagingproduct

import (
	"database/sql"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const stagingProductTable = "staging_products"

type StagingProductRow struct {
	ID               int64                                   `db:"id"`
	ProductID        string                                  `db:"product_id"`
	ManufacturerID   string                                  `db:"manufacturer_id"`
	ManufacturerName sql.NullString                          `db:"manufacturer_name"`
	Variants         database.JSONB[[]models.StagingVariant] `db:"variants"`
	CreatedAt        sql.NullTime                            `db:"created_at"`
	UpdatedAt        sql.NullTime                            `db:"updated_at"`
}

var stagingProductStruct = database.NewStruct(new(StagingProductRow))

func ToStagingProduct(row *StagingProductRow) models.StagingProduct {
	variants := row.Variants.Data
	if variants == nil {
		variants = []models.StagingVariant{}
	}
	return models.StagingProduct{
		ProductID:        row.ProductID,
		ManufacturerID:   row.ManufacturerID,
		ManufacturerName: row.ManufacturerName.String,
		Variants:         variants,
	}
}
