package products

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/memstore"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
)

func TestHandler_Get(t *testing.T) {
	ctx := context.Background()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	catalog := memstore.NewCatalogStore()
	name := "Widget"
	_, _, err := catalog.GetOrCreate(ctx, models.NewProduct("prod-1", &name, "manu-1", "vend-1"))
	require.NoError(t, err)
	_, err = catalog.AppendVariant(ctx, "prod-1", models.Variant{ID: "v1", SKU: "item1prod1BX", Currency: models.DefaultCurrency})
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	NewHandler(catalog, logger).Register(e.Group("/api/v1/products"))

	tests := []struct {
		name         string
		id           string
		expectedCode int
	}{
		{name: "existing product", id: "prod-1", expectedCode: http.StatusOK},
		{name: "unknown product", id: "prod-2", expectedCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+tt.id, nil))
			require.Equal(t, tt.expectedCode, rec.Code)
			if tt.expectedCode != http.StatusOK {
				return
			}

			var product models.Product
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
			assert.Equal(t, "prod-1", product.ID)
			require.Len(t, product.Variants, 1)
			assert.Equal(t, "item1prod1BX", product.Variants[0].SKU)
		})
	}
}
