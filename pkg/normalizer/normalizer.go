// Package normalizer turns raw feed rows into staging variants. It is the only place loosely typed
// feed values are converted into the strict internal representation.
package normalizer

import (
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Feed header names.
const (
	FieldItemID               = "ItemID"
	FieldManufacturerID       = "ManufacturerID"
	FieldManufacturerName     = "ManufacturerName"
	FieldProductID            = "ProductID"
	FieldProductName          = "ProductName"
	FieldPackage              = "PKG"
	FieldItemDescription      = "ItemDescription"
	FieldUnitPrice            = "UnitPrice"
	FieldManufacturerItemCode = "ManufacturerItemCode"
	FieldNDCItemCode          = "NDCItemCode"
	FieldItemImageURL         = "ItemImageURL"
	FieldImageFileName        = "ImageFileName"
	FieldAvailability         = "Availability"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
	decimalNumber   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

var validate = newValidator()

// rowFields is the validated view of a row; the feed tag doubles as the reported field name.
type rowFields struct {
	ItemID         string `feed:"ItemID" validate:"required"`
	ManufacturerID string `feed:"ManufacturerID" validate:"required"`
	ProductID      string `feed:"ProductID" validate:"required"`
	UnitPrice      string `feed:"UnitPrice" validate:"omitempty,price"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("feed")
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		_, ok := ParsePrice(fl.Field().String())
		return ok
	})
	return v
}

// Normalize validates row and shapes it into a staging row. A rejected row returns a
// RowValidationError listing every offending field.
func Normalize(row models.RawRow) (*models.StagingRow, *errors.RowValidationError) {
	fields := rowFields{
		ItemID:         deref(row.Get(FieldItemID)),
		ManufacturerID: deref(row.Get(FieldManufacturerID)),
		ProductID:      deref(row.Get(FieldProductID)),
		UnitPrice:      deref(row.Get(FieldUnitPrice)),
	}

	if invalid := invalidFields(fields); len(invalid) > 0 {
		return nil, errors.NewRowValidationError(models.RejectedRow{
			Line:           row.Line,
			ItemID:         row.Get(FieldItemID),
			ManufacturerID: row.Get(FieldManufacturerID),
			ProductID:      row.Get(FieldProductID),
			UnitPrice:      row.Get(FieldUnitPrice),
			InvalidFields:  invalid,
		})
	}

	pkg := upper(row.Get(FieldPackage))
	manufacturerName := row.Get(FieldManufacturerName)

	variant := models.StagingVariant{
		SKU:                  BuildSKU(fields.ItemID, fields.ProductID, pkg),
		ItemID:               fields.ItemID,
		ManufacturerID:       fields.ManufacturerID,
		ManufacturerName:     manufacturerName,
		ProductName:          row.Get(FieldProductName),
		Package:              pkg,
		Description:          sanitizePtr(row.Get(FieldItemDescription)),
		ManufacturerItemCode: row.Get(FieldManufacturerItemCode),
		NDCItemCode:          row.Get(FieldNDCItemCode),
		ImageURL:             row.Get(FieldItemImageURL),
		ImageFileName:        row.Get(FieldImageFileName),
		Availability:         row.Get(FieldAvailability),
	}
	if fields.UnitPrice != "" {
		price, _ := ParsePrice(fields.UnitPrice)
		variant.UnitPrice = &price
	}

	return &models.StagingRow{
		Line:             row.Line,
		ProductID:        fields.ProductID,
		ManufacturerID:   fields.ManufacturerID,
		ManufacturerName: deref(manufacturerName),
		Variant:          variant,
	}, nil
}

func invalidFields(fields rowFields) []string {
	err := validate.Struct(fields)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	invalid := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		invalid = append(invalid, fe.Field())
	}
	return invalid
}

// BuildSKU concatenates item id, product id and the upper-cased package code. A missing package
// contributes nothing.
func BuildSKU(itemID, productID string, pkg *string) string {
	return itemID + productID + strings.ToUpper(deref(pkg))
}

// ParsePrice parses a unit price. Only finite, non-negative decimal numbers are accepted.
func ParsePrice(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if !decimalNumber.MatchString(value) {
		return 0, false
	}
	price, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, false
	}
	return price, true
}

// Sanitize strips every character that is not an ASCII letter, digit or space.
func Sanitize(value string) string {
	return nonAlphanumeric.ReplaceAllString(value, "")
}

func sanitizePtr(value *string) *string {
	if value == nil {
		return nil
	}
	sanitized := Sanitize(*value)
	return &sanitized
}

func upper(value *string) *string {
	if value == nil {
		return nil
	}
	upper := strings.ToUpper(*value)
	return &upper
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
