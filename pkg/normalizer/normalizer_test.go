package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func rawRow(values map[string]string) models.RawRow {
	return models.RawRow{Line: 2, Values: values}
}

func TestNormalize_WidgetRow(t *testing.T) {
	row := rawRow(map[string]string{
		FieldItemID:               "item123",
		FieldManufacturerID:       "manu456",
		FieldManufacturerName:     "Acme Corp",
		FieldProductID:            "prod789",
		FieldPackage:              "bx",
		FieldItemDescription:      "A high-quality widget for various purposes.",
		FieldUnitPrice:            "19.99",
		FieldManufacturerItemCode: "ACME-123",
	})

	result, rejection := Normalize(row)
	require.Nil(t, rejection)
	require.NotNil(t, result)

	assert.Equal(t, "prod789", result.ProductID)
	assert.Equal(t, "manu456", result.ManufacturerID)
	assert.Equal(t, "Acme Corp", result.ManufacturerName)

	v := result.Variant
	assert.Equal(t, "item123prod789BX", v.SKU)
	assert.Equal(t, "item123", v.ItemID)
	require.NotNil(t, v.Description)
	assert.Equal(t, "A highquality widget for various purposes", *v.Description)
	require.NotNil(t, v.UnitPrice)
	assert.InDelta(t, 19.99, *v.UnitPrice, 0.0001)
	require.NotNil(t, v.Package)
	assert.Equal(t, "BX", *v.Package)
	require.NotNil(t, v.ManufacturerItemCode)
	assert.Equal(t, "ACME-123", *v.ManufacturerItemCode)

	assert.Nil(t, v.ProductName)
	assert.Nil(t, v.NDCItemCode)
	assert.Nil(t, v.ImageURL)
	assert.Nil(t, v.ImageFileName)
	assert.Nil(t, v.Availability)
}

func TestNormalize_SKU(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		expected string
	}{
		{
			name:     "package upper-cased",
			values:   map[string]string{FieldItemID: "i1", FieldManufacturerID: "m1", FieldProductID: "p1", FieldPackage: "cs"},
			expected: "i1p1CS",
		},
		{
			name:     "missing package adds nothing",
			values:   map[string]string{FieldItemID: "i1", FieldManufacturerID: "m1", FieldProductID: "p1"},
			expected: "i1p1",
		},
		{
			name:     "blank package adds nothing",
			values:   map[string]string{FieldItemID: "i1", FieldManufacturerID: "m1", FieldProductID: "p1", FieldPackage: "  "},
			expected: "i1p1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, rejection := Normalize(rawRow(tt.values))
			require.Nil(t, rejection)
			assert.Equal(t, tt.expected, result.Variant.SKU)
		})
	}
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		expected []string
	}{
		{
			name:     "missing item id",
			values:   map[string]string{FieldManufacturerID: "m1", FieldProductID: "p1"},
			expected: []string{FieldItemID},
		},
		{
			name:     "all required missing",
			values:   map[string]string{FieldProductName: "Widget"},
			expected: []string{FieldItemID, FieldManufacturerID, FieldProductID},
		},
		{
			name:     "empty manufacturer id",
			values:   map[string]string{FieldItemID: "i1", FieldManufacturerID: "", FieldProductID: "p1"},
			expected: []string{FieldManufacturerID},
		},
		{
			name:     "unparseable price",
			values:   map[string]string{FieldItemID: "i1", FieldManufacturerID: "m1", FieldProductID: "p1", FieldUnitPrice: "abc"},
			expected: []string{FieldUnitPrice},
		},
		{
			name:     "negative price",
			values:   map[string]string{FieldItemID: "i1", FieldManufacturerID: "m1", FieldProductID: "p1", FieldUnitPrice: "-1"},
			expected: []string{FieldUnitPrice},
		},
		{
			name:     "infinite price and missing product",
			values:   map[string]string{FieldItemID: "i1", FieldManufacturerID: "m1", FieldUnitPrice: "Inf"},
			expected: []string{FieldProductID, FieldUnitPrice},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, rejection := Normalize(rawRow(tt.values))
			assert.Nil(t, result)
			require.NotNil(t, rejection)
			assert.Equal(t, tt.expected, rejection.Row.InvalidFields)
			assert.Equal(t, 2, rejection.Row.Line)
		})
	}
}

func TestNormalize_RejectionKeepsIdentityFields(t *testing.T) {
	_, rejection := Normalize(rawRow(map[string]string{
		FieldItemID:         "i1",
		FieldManufacturerID: "m1",
		FieldUnitPrice:      "twelve",
	}))
	require.NotNil(t, rejection)

	require.NotNil(t, rejection.Row.ItemID)
	assert.Equal(t, "i1", *rejection.Row.ItemID)
	assert.Nil(t, rejection.Row.ProductID)
	require.NotNil(t, rejection.Row.UnitPrice)
	assert.Equal(t, "twelve", *rejection.Row.UnitPrice)
}

func TestNormalize_AbsentPriceIsValid(t *testing.T) {
	result, rejection := Normalize(rawRow(map[string]string{
		FieldItemID:         "i1",
		FieldManufacturerID: "m1",
		FieldProductID:      "p1",
		FieldUnitPrice:      "",
	}))
	require.Nil(t, rejection)
	assert.Nil(t, result.Variant.UnitPrice)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		value string
		price float64
		ok    bool
	}{
		{"0", 0, true},
		{"12.5", 12.5, true},
		{" 3 ", 3, true},
		{"1e2", 100, true},
		{"-0.01", 0, false},
		{"NaN", 0, false},
		{"12abc", 0, false},
		{".5", 0.5, true},
		{"7.", 7, true},
		{"0x1p4", 0, false},
		{"0x10", 0, false},
		{"1_0", 0, false},
		{"Inf", 0, false},
		{"1e400", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			price, ok := ParsePrice(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.price, price)
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Gauze 4x4 12ply", Sanitize("Gauze 4\"x4\", 12-ply"))
	assert.Equal(t, "", Sanitize("!!!"))
	assert.Equal(t, "abc DEF 123", Sanitize("abc DEF 123"))
}
