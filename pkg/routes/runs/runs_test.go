package runs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/memstore"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

type fakeRunner struct {
	run      *models.Run
	err      error
	startErr error
	calls    []string
}

func (f *fakeRunner) Run(_ context.Context, _ string) (*models.Run, error) {
	f.calls = append(f.calls, "run")
	return f.run, f.err
}

func (f *fakeRunner) Start(_ context.Context, _ string) (*models.Run, error) {
	f.calls = append(f.calls, "start")
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &models.Run{ID: "run-1", Status: models.RunStatusRunning}, nil
}

func newServer(runner Runner, store Store) *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	NewHandler(runner, store, logger).Register(e.Group("/api/v1/runs"))
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Trigger(t *testing.T) {
	finished := &models.Run{ID: "run-2", Status: models.RunStatusCompleted}
	failed := &models.Run{ID: "run-3", Status: models.RunStatusFailed}

	tests := []struct {
		name         string
		runner       *fakeRunner
		body         string
		expectedCode int
		expectedCall string
		expectedID   string
	}{
		{
			name:         "starts in the background by default",
			runner:       &fakeRunner{},
			expectedCode: http.StatusAccepted,
			expectedCall: "start",
			expectedID:   "run-1",
		},
		{
			name:         "waits for the report",
			runner:       &fakeRunner{run: finished},
			body:         `{"wait":true}`,
			expectedCode: http.StatusOK,
			expectedCall: "run",
			expectedID:   "run-2",
		},
		{
			name:         "run already in progress",
			runner:       &fakeRunner{startErr: pipeline.ErrRunInProgress},
			expectedCode: http.StatusConflict,
			expectedCall: "start",
		},
		{
			name:         "unreadable feed",
			runner:       &fakeRunner{run: failed, err: errors.NewFeedReadError(0, assert.AnError)},
			body:         `{"wait":true}`,
			expectedCode: http.StatusBadGateway,
			expectedCall: "run",
		},
		{
			name:         "malformed body",
			runner:       &fakeRunner{},
			body:         `{"wait":`,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer(tt.runner, memstore.NewRunStore())

			rec := do(e, http.MethodPost, "/api/v1/runs", tt.body)
			assert.Equal(t, tt.expectedCode, rec.Code)

			if tt.expectedCall == "" {
				assert.Empty(t, tt.runner.calls)
			} else {
				assert.Equal(t, []string{tt.expectedCall}, tt.runner.calls)
			}

			if tt.expectedID != "" {
				var run models.Run
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
				assert.Equal(t, tt.expectedID, run.ID)
			}
		})
	}

	t.Run("failed run carries its id", func(t *testing.T) {
		e := newServer(&fakeRunner{run: failed, err: errors.NewFeedReadError(0, assert.AnError)}, memstore.NewRunStore())

		rec := do(e, http.MethodPost, "/api/v1/runs", `{"wait":true}`)
		var resp middleware.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "run-3", resp.Meta["run_id"])
	})
}

func seedRuns(t *testing.T) *memstore.RunStore {
	t.Helper()
	store := memstore.NewRunStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, store.Create(context.Background(), &models.Run{
			ID:        id,
			Status:    models.RunStatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	return store
}

func TestHandler_List(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		expectedCode int
		expectedIDs  []string
	}{
		{name: "default limit", target: "/api/v1/runs", expectedCode: http.StatusOK, expectedIDs: []string{"newest", "middle", "oldest"}},
		{name: "explicit limit", target: "/api/v1/runs?limit=2", expectedCode: http.StatusOK, expectedIDs: []string{"newest", "middle"}},
		{name: "zero limit", target: "/api/v1/runs?limit=0", expectedCode: http.StatusBadRequest},
		{name: "limit too large", target: "/api/v1/runs?limit=1000", expectedCode: http.StatusBadRequest},
		{name: "limit not a number", target: "/api/v1/runs?limit=all", expectedCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer(&fakeRunner{}, seedRuns(t))

			rec := do(e, http.MethodGet, tt.target, "")
			require.Equal(t, tt.expectedCode, rec.Code)
			if tt.expectedIDs == nil {
				return
			}

			var resp struct {
				Runs []models.Run `json:"runs"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			ids := make([]string, 0, len(resp.Runs))
			for _, run := range resp.Runs {
				ids = append(ids, run.ID)
			}
			assert.Equal(t, tt.expectedIDs, ids)
		})
	}
}

func TestHandler_LatestAndGet(t *testing.T) {
	e := newServer(&fakeRunner{}, seedRuns(t))

	rec := do(e, http.MethodGet, "/api/v1/runs/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var run models.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "newest", run.ID)

	rec = do(e, http.MethodGet, "/api/v1/runs/middle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "middle", run.ID)

	rec = do(e, http.MethodGet, "/api/v1/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	empty := newServer(&fakeRunner{}, memstore.NewRunStore())
	rec = do(empty, http.MethodGet, "/api/v1/runs/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
