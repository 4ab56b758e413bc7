package models

import "time"

const (
	ProductTypeNonInventory    = "non-inventory"
	PriceVisibilityMembersOnly = "members-only"
	ProductDocTypeItem         = "item"
	ProductNamespaceItems      = "items"
	ProductDataSource          = "nao"
	DefaultCurrency            = "USD"
)

// Image is a variant or product image reference.
type Image struct {
	CDNLink  string `json:"cdn_link"`
	FileName string `json:"file_name"`
	Index    *int   `json:"i,omitempty"`
	Alt      string `json:"alt,omitempty"`
}

// OptionValue is one selectable value of a product option.
type OptionValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Option is a product-level option (e.g. packaging).
type Option struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	DataField string        `json:"data_field,omitempty"`
	Values    []OptionValue `json:"values"`
}

// Product is the canonical catalog record keyed by the internal product id.
type Product struct {
	ID                        string    `json:"id"`
	Name                      *string   `json:"name"`
	ManufacturerID            string    `json:"manufacturer_id"`
	VendorID                  string    `json:"vendor_id"`
	Type                      string    `json:"type"`
	StorefrontPriceVisibility string    `json:"storefront_price_visibility"`
	IsTaxable                 bool      `json:"is_taxable"`
	IsFragile                 bool      `json:"is_fragile"`
	DocType                   string    `json:"doc_type"`
	Namespace                 string    `json:"namespace"`
	Options                   []Option  `json:"options"`
	Images                    []Image   `json:"images"`
	DataSource                string    `json:"data_source"`
	Variants                  []Variant `json:"variants"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// NewProduct returns a product carrying the catalog defaults and empty collections.
func NewProduct(id string, name *string, manufacturerID, vendorID string) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:                        id,
		Name:                      name,
		ManufacturerID:            manufacturerID,
		VendorID:                  vendorID,
		Type:                      ProductTypeNonInventory,
		StorefrontPriceVisibility: PriceVisibilityMembersOnly,
		IsTaxable:                 true,
		IsFragile:                 false,
		DocType:                   ProductDocTypeItem,
		Namespace:                 ProductNamespaceItems,
		Options:                   []Option{},
		Images:                    []Image{},
		DataSource:                ProductDataSource,
		Variants:                  []Variant{},
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

// FindVariant returns the stored variant with the given sku.
func (p *Product) FindVariant(sku string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// Variant is a sellable unit of a product, unique by sku within it.
type Variant struct {
	ID                   string   `json:"id"`
	SKU                  string   `json:"sku"`
	Cost                 *float64 `json:"cost"`
	Price                *float64 `json:"price"`
	Currency             string   `json:"currency"`
	ManufacturerItemID   string   `json:"manufacturer_item_id"`
	Packaging            *string  `json:"packaging"`
	OptionName           string   `json:"option_name"`
	ManufacturerItemCode *string  `json:"manufacturer_item_code"`
	Description          *string  `json:"description"`
	Available            bool     `json:"available"`
	Images               []Image  `json:"images"`
	OptionsPath          string   `json:"options_path"`
	OptionItemsPath      string   `json:"option_items_path"`
	Position             int      `json:"position"`
}

// VariantPatch holds the fields of a stored variant that changed. Nil fields are left untouched.
type VariantPatch struct {
	Cost                 *float64 `json:"cost,omitempty"`
	Price                *float64 `json:"price,omitempty"`
	Currency             *string  `json:"currency,omitempty"`
	ManufacturerItemID   *string  `json:"manufacturer_item_id,omitempty"`
	Packaging            *string  `json:"packaging,omitempty"`
	OptionName           *string  `json:"option_name,omitempty"`
	ManufacturerItemCode *string  `json:"manufacturer_item_code,omitempty"`
	Description          *string  `json:"description,omitempty"`
	Available            *bool    `json:"available,omitempty"`
	Images               []Image  `json:"images,omitempty"`
}

// Fields lists the column names the patch touches.
func (p VariantPatch) Fields() []string {
	var fields []string
	if p.Cost != nil {
		fields = append(fields, "cost")
	}
	if p.Price != nil {
		fields = append(fields, "price")
	}
	if p.Currency != nil {
		fields = append(fields, "currency")
	}
	if p.ManufacturerItemID != nil {
		fields = append(fields, "manufacturer_item_id")
	}
	if p.Packaging != nil {
		fields = append(fields, "packaging")
	}
	if p.OptionName != nil {
		fields = append(fields, "option_name")
	}
	if p.ManufacturerItemCode != nil {
		fields = append(fields, "manufacturer_item_code")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Available != nil {
		fields = append(fields, "available")
	}
	if p.Images != nil {
		fields = append(fields, "images")
	}
	return fields
}

func (p VariantPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply writes the patched fields onto v.
func (p VariantPatch) Apply(v *Variant) {
	if p.Cost != nil {
		v.Cost = p.Cost
	}
	if p.Price != nil {
		v.Price = p.Price
	}
	if p.Currency != nil {
		v.Currency = *p.Currency
	}
	if p.ManufacturerItemID != nil {
		v.ManufacturerItemID = *p.ManufacturerItemID
	}
	if p.Packaging != nil {
		v.Packaging = p.Packaging
	}
	if p.OptionName != nil {
		v.OptionName = *p.OptionName
	}
	if p.ManufacturerItemCode != nil {
		v.ManufacturerItemCode = p.ManufacturerItemCode
	}
	if p.Description != nil {
		v.Description = p.Description
	}
	if p.Available != nil {
		v.Available = *p.Available
	}
	if p.Images != nil {
		v.Images = append([]Image(nil), p.Images...)
	}
}
