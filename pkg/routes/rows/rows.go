// Package rows exposes single-row feed validation, so a supplier line can be checked without a run.
package rows

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizer"
	"github.com/Ramsey-B/clover/pkg/utils"
)

func Register(g *echo.Group) {
	g.POST("/validate", Validate)
}

// ValidateRequest holds one feed row keyed by header name.
type ValidateRequest struct {
	Line   int               `json:"line" validate:"gte=0"`
	Values map[string]string `json:"values" validate:"required"`
}

// ValidateResponse is the staging shape the row would be written as.
type ValidateResponse struct {
	ProductID        string                `json:"product_id"`
	ManufacturerID   string                `json:"manufacturer_id"`
	ManufacturerName string                `json:"manufacturer_name"`
	Variant          models.StagingVariant `json:"variant"`
}

// Validate handles POST /rows/validate. A rejected row is answered with 422 and the offending fields.
func Validate(c echo.Context) error {
	req, err := utils.BindRequest[ValidateRequest](c)
	if err != nil {
		return err
	}

	row, rejection := normalizer.Normalize(models.RawRow{Line: req.Line, Values: req.Values})
	if rejection != nil {
		return rejection.ToHTTPError()
	}

	return c.JSON(http.StatusOK, ValidateResponse{
		ProductID:        row.ProductID,
		ManufacturerID:   row.ManufacturerID,
		ManufacturerName: row.ManufacturerName,
		Variant:          row.Variant,
	})
}
