package models

import "time"

// Manufacturer is the canonical identity for a supplier manufacturer key pair.
type Manufacturer struct {
	ID                       string    `json:"id" db:"id"`
	SupplierManufacturerID   string    `json:"supplier_manufacturer_id" db:"supplier_manufacturer_id"`
	SupplierManufacturerName string    `json:"supplier_manufacturer_name" db:"supplier_manufacturer_name"`
	CreatedAt                time.Time `json:"created_at" db:"created_at"`
}

// Vendor is the canonical identity for a supplier vendor key pair.
type Vendor struct {
	ID                 string    `json:"id" db:"id"`
	SupplierVendorID   string    `json:"supplier_vendor_id" db:"supplier_vendor_id"`
	SupplierVendorName string    `json:"supplier_vendor_name" db:"supplier_vendor_name"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// BaseProduct ties a supplier product to the canonical internal product id.
type BaseProduct struct {
	ID                string    `json:"id" db:"id"`
	ManufacturerID    string    `json:"manufacturer_id" db:"manufacturer_id"`
	VendorID          string    `json:"vendor_id" db:"vendor_id"`
	VendorProductID   string    `json:"vendor_product_id" db:"vendor_product_id"`
	InternalProductID string    `json:"internal_product_id" db:"internal_product_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Resolution is the set of canonical ids a staging product resolves to.
type Resolution struct {
	ManufacturerID    string `json:"manufacturer_id"`
	VendorID          string `json:"vendor_id"`
	InternalProductID string `json:"internal_product_id"`
}
