package runs

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Runner triggers import runs.
type Runner interface {
	Run(ctx context.Context, feedPath string) (*models.Run, error)
	Start(ctx context.Context, feedPath string) (*models.Run, error)
}

// Store reads recorded runs.
type Store interface {
	Get(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, limit int) ([]models.Run, error)
}

// Handler handles import run API endpoints
type Handler struct {
	runner Runner
	store  Store
	logger ectologger.Logger
}

func NewHandler(runner Runner, store Store, logger ectologger.Logger) *Handler {
	return &Handler{
		runner: runner,
		store:  store,
		logger: logger,
	}
}

// Register registers the run routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Trigger)
	g.GET("", h.List)
	g.GET("/latest", h.Latest)
	g.GET("/:id", h.Get)
}

// TriggerRequest is the request body for starting a run. The configured feed is always imported.
type TriggerRequest struct {
	// Wait blocks until the run finishes and returns the full report.
	Wait bool `json:"wait"`
}

// Trigger handles POST /runs
func (h *Handler) Trigger(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "runs.Handler.Trigger")
	defer span.End()

	req, err := utils.BindRequest[TriggerRequest](c)
	if err != nil {
		return err
	}

	if !req.Wait {
		run, err := h.runner.Start(ctx, "")
		if err != nil {
			return h.runError(err, nil)
		}
		return c.JSON(http.StatusAccepted, run)
	}

	run, err := h.runner.Run(ctx, "")
	if err != nil {
		return h.runError(err, run)
	}
	return c.JSON(http.StatusOK, run)
}

func (h *Handler) runError(err error, run *models.Run) error {
	if stderrors.Is(err, pipeline.ErrRunInProgress) {
		return httperror.NewHTTPError(http.StatusConflict, err.Error())
	}

	var httpErr *httperror.HTTPError
	var feedErr *errors.FeedReadError
	if stderrors.As(err, &feedErr) {
		httpErr = feedErr.ToHTTPError()
	} else {
		httpErr = httperror.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if run != nil {
		httpErr = httpErr.AddMetaValue("run_id", run.ID)
	}
	return httpErr
}

// List handles GET /runs
func (h *Handler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "runs.Handler.List")
	defer span.End()

	limit, err := utils.QueryInt(c, "limit", defaultListLimit)
	if err != nil {
		return err
	}
	if err := utils.ValidateValue(limit, fmt.Sprintf("min=1,max=%d", maxListLimit)); err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	runs, err := h.store.List(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": runs})
}

// Latest handles GET /runs/latest
func (h *Handler) Latest(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "runs.Handler.Latest")
	defer span.End()

	runs, err := h.store.List(ctx, 1)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "no import run recorded yet")
	}
	return c.JSON(http.StatusOK, runs[0])
}

// Get handles GET /runs/:id
func (h *Handler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "runs.Handler.Get")
	defer span.End()

	run, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}
