package models

import "strings"

// StagingVariant is one normalized feed row. Optional fields stay nil when the feed omitted them.
type StagingVariant struct {
	SKU                  string   `json:"sku"`
	ItemID               string   `json:"item_id"`
	ManufacturerID       string   `json:"manufacturer_id"`
	ManufacturerName     *string  `json:"manufacturer_name,omitempty"`
	ProductName          *string  `json:"product_name,omitempty"`
	Package              *string  `json:"pkg,omitempty"`
	Description          *string  `json:"item_description,omitempty"`
	UnitPrice            *float64 `json:"unit_price,omitempty"`
	ManufacturerItemCode *string  `json:"manufacturer_item_code,omitempty"`
	NDCItemCode          *string  `json:"ndc_item_code,omitempty"`
	ImageURL             *string  `json:"item_image_url,omitempty"`
	ImageFileName        *string  `json:"image_file_name,omitempty"`
	Availability         *string  `json:"availability,omitempty"`
}

// StagingProduct accumulates every variant seen for one (product id, manufacturer id) pair during a run.
type StagingProduct struct {
	ProductID        string           `json:"product_id"`
	ManufacturerID   string           `json:"manufacturer_id"`
	ManufacturerName string           `json:"manufacturer_name"`
	Variants         []StagingVariant `json:"variants"`
}

// StagingKey identifies a staging record.
type StagingKey struct {
	ProductID      string
	ManufacturerID string
}

func (p StagingProduct) Key() StagingKey {
	return StagingKey{ProductID: p.ProductID, ManufacturerID: p.ManufacturerID}
}

// RawRow is one feed line keyed by header name. Line is 1-based and counts the header.
type RawRow struct {
	Line   int
	Values map[string]string
}

// Get returns the trimmed cell for field, or nil when the column is missing or blank.
func (r RawRow) Get(field string) *string {
	value, ok := r.Values[field]
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// StagingRow is a normalized row together with the staging key it belongs to.
type StagingRow struct {
	Line             int
	ProductID        string
	ManufacturerID   string
	ManufacturerName string
	Variant          StagingVariant
}
