package product

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	productTable = "products"
	variantTable = "product_variants"
)

type ProductRow struct {
	ID                        string                          `db:"id"`
	Name                      sql.NullString                  `db:"name"`
	ManufacturerID            string                          `db:"manufacturer_id"`
	VendorID                  string                          `db:"vendor_id"`
	Type                      string                          `db:"product_type"`
	StorefrontPriceVisibility string                          `db:"storefront_price_visibility"`
	IsTaxable                 bool                            `db:"is_taxable"`
	IsFragile                 bool                            `db:"is_fragile"`
	DocType                   string                          `db:"doc_type"`
	Namespace                 string                          `db:"namespace"`
	Options                   database.JSONB[[]models.Option] `db:"options"`
	Images                    database.JSONB[[]models.Image]  `db:"images"`
	DataSource                string                          `db:"data_source"`
	CreatedAt                 time.Time                       `db:"created_at"`
	UpdatedAt                 time.Time                       `db:"updated_at"`
}

type VariantRow struct {
	ProductID            string                         `db:"product_id"`
	SKU                  string                         `db:"sku"`
	ID                   string                         `db:"id"`
	Position             int                            `db:"position"`
	Cost                 sql.NullFloat64                `db:"cost"`
	Price                sql.NullFloat64                `db:"price"`
	Currency             string                         `db:"currency"`
	ManufacturerItemID   string                         `db:"manufacturer_item_id"`
	Packaging            sql.NullString                 `db:"packaging"`
	OptionName           string                         `db:"option_name"`
	ManufacturerItemCode sql.NullString                 `db:"manufacturer_item_code"`
	Description          sql.NullString                 `db:"description"`
	Available            bool                           `db:"available"`
	Images               database.JSONB[[]models.Image] `db:"images"`
	OptionsPath          string                         `db:"options_path"`
	OptionItemsPath      string                         `db:"option_items_path"`
	CreatedAt            time.Time                      `db:"created_at"`
	UpdatedAt            time.Time                      `db:"updated_at"`
}

var (
	productStruct = database.NewStruct(new(ProductRow))
	variantStruct = database.NewStruct(new(VariantRow))
)

func FromProduct(p *models.Product) *ProductRow {
	return &ProductRow{
		ID:                        p.ID,
		Name:                      nullString(p.Name),
		ManufacturerID:            p.ManufacturerID,
		VendorID:                  p.VendorID,
		Type:                      p.Type,
		StorefrontPriceVisibility: p.StorefrontPriceVisibility,
		IsTaxable:                 p.IsTaxable,
		IsFragile:                 p.IsFragile,
		DocType:                   p.DocType,
		Namespace:                 p.Namespace,
		Options:                   database.NewJSONB(nonNil(p.Options)),
		Images:                    database.NewJSONB(nonNil(p.Images)),
		DataSource:                p.DataSource,
		CreatedAt:                 p.CreatedAt,
		UpdatedAt:                 p.UpdatedAt,
	}
}

func ToProduct(row *ProductRow, variants []VariantRow) *models.Product {
	product := &models.Product{
		ID:                        row.ID,
		Name:                      stringPtr(row.Name),
		ManufacturerID:            row.ManufacturerID,
		VendorID:                  row.VendorID,
		Type:                      row.Type,
		StorefrontPriceVisibility: row.StorefrontPriceVisibility,
		IsTaxable:                 row.IsTaxable,
		IsFragile:                 row.IsFragile,
		DocType:                   row.DocType,
		Namespace:                 row.Namespace,
		Options:                   nonNil(row.Options.Data),
		Images:                    nonNil(row.Images.Data),
		DataSource:                row.DataSource,
		Variants:                  make([]models.Variant, 0, len(variants)),
		CreatedAt:                 row.CreatedAt,
		UpdatedAt:                 row.UpdatedAt,
	}
	for i := range variants {
		product.Variants = append(product.Variants, ToVariant(&variants[i]))
	}
	return product
}

func ToVariant(row *VariantRow) models.Variant {
	return models.Variant{
		ID:                   row.ID,
		SKU:                  row.SKU,
		Cost:                 floatPtr(row.Cost),
		Price:                floatPtr(row.Price),
		Currency:             row.Currency,
		ManufacturerItemID:   row.ManufacturerItemID,
		Packaging:            stringPtr(row.Packaging),
		OptionName:           row.OptionName,
		ManufacturerItemCode: stringPtr(row.ManufacturerItemCode),
		Description:          stringPtr(row.Description),
		Available:            row.Available,
		Images:               nonNil(row.Images.Data),
		OptionsPath:          row.OptionsPath,
		OptionItemsPath:      row.OptionItemsPath,
		Position:             row.Position,
	}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
