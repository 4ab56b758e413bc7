package products

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// Handler handles canonical product lookups
type Handler struct {
	catalog Catalog
	logger  ectologger.Logger
}

func NewHandler(catalog Catalog, logger ectologger.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		logger:  logger,
	}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/:id", h.Get)
}

// Get handles GET /products/:id
func (h *Handler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "products.Handler.Get")
	defer span.End()

	product, err := h.catalog.GetProduct(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}
