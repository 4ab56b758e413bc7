package importrun

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const DefaultListLimit = 20

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Create(ctx context.Context, run *models.Run) error {
	ctx, span := tracing.StartSpan(ctx, "importrun.Repository.Create")
	defer span.End()

	query, args := importRunStruct.Insert(importRunTable, FromRun(run)).Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", run.ID).Error("Failed to create import run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create import run")
	}
	return nil
}

// Finish stores the final status, report and error of run.
func (r *Repository) Finish(ctx context.Context, run *models.Run) error {
	ctx, span := tracing.StartSpan(ctx, "importrun.Repository.Finish")
	defer span.End()

	row := FromRun(run)
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(importRunTable)
	ub.Set(
		ub.Assign("status", row.Status),
		ub.Assign("report", row.Report),
		ub.Assign("error", row.Error),
		ub.Assign("finished_at", row.FinishedAt),
	)
	ub.Where(ub.Equal("id", run.ID))
	query, args := ub.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", run.ID).Error("Failed to finish import run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to finish import run")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "run '%s' not found", run.ID)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Run, error) {
	ctx, span := tracing.StartSpan(ctx, "importrun.Repository.Get")
	defer span.End()

	// ids are uuids, anything else cannot match a stored run
	if _, err := uuid.Parse(id); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "run '%s' not found", id)
	}

	sb := importRunStruct.SelectFrom(importRunTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	row := ImportRunRow{}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "run '%s' not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", id).Error("Failed to get import run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get import run")
	}
	run := ToRun(&row)
	return &run, nil
}

// List returns the most recent runs first.
func (r *Repository) List(ctx context.Context, limit int) ([]models.Run, error) {
	ctx, span := tracing.StartSpan(ctx, "importrun.Repository.List")
	defer span.End()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	sb := importRunStruct.SelectFrom(importRunTable)
	sb.OrderBy("started_at").Desc()
	sb.Limit(limit)
	query, args := sb.Build()

	rows := []ImportRunRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list import runs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list import runs")
	}
	return ectolinq.Map(rows, func(row ImportRunRow) models.Run {
		return ToRun(&row)
	}), nil
}
