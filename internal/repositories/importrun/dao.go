package importrun

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const importRunTable = "import_runs"

type ImportRunRow struct {
	ID         string                           `db:"id"`
	Status     string                           `db:"status"`
	FeedPath   string                           `db:"feed_path"`
	Report     database.JSONB[models.RunReport] `db:"report"`
	Error      sql.NullString                   `db:"error"`
	StartedAt  time.Time                        `db:"started_at"`
	FinishedAt sql.NullTime                     `db:"finished_at"`
}

var importRunStruct = database.NewStruct(new(ImportRunRow))

func FromRun(run *models.Run) *ImportRunRow {
	row := &ImportRunRow{
		ID:        run.ID,
		Status:    string(run.Status),
		FeedPath:  run.FeedPath,
		Report:    database.NewJSONB(run.Report),
		StartedAt: run.StartedAt,
	}
	if run.Error != nil {
		row.Error = sql.NullString{String: *run.Error, Valid: true}
	}
	if run.FinishedAt != nil {
		row.FinishedAt = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}
	return row
}

func ToRun(row *ImportRunRow) models.Run {
	run := models.Run{
		ID:        row.ID,
		Status:    models.RunStatus(row.Status),
		FeedPath:  row.FeedPath,
		Report:    row.Report.Data,
		StartedAt: row.StartedAt,
	}
	if row.Error.Valid {
		run.Error = &row.Error.String
	}
	if row.FinishedAt.Valid {
		run.FinishedAt = &row.FinishedAt.Time
	}
	return run
}
