package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func serve(t *testing.T, checker *Checker, path string) (int, Response) {
	t.Helper()
	e := echo.New()
	checker.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestChecker_Health(t *testing.T) {
	tests := []struct {
		name         string
		checker      *Checker
		expectedCode int
		expected     Status
	}{
		{
			name:         "all healthy",
			checker:      NewChecker("test").AddCheck("database", ok, true).AddCheck("redis", ok, false),
			expectedCode: http.StatusOK,
			expected:     StatusHealthy,
		},
		{
			name:         "optional dependency down",
			checker:      NewChecker("test").AddCheck("database", ok, true).AddCheck("redis", failing, false),
			expectedCode: http.StatusOK,
			expected:     StatusDegraded,
		},
		{
			name:         "required dependency down",
			checker:      NewChecker("test").AddCheck("database", failing, true).AddCheck("redis", ok, false),
			expectedCode: http.StatusServiceUnavailable,
			expected:     StatusUnhealthy,
		},
		{
			name:         "required dependency not configured",
			checker:      NewChecker("test").AddCheck("database", nil, true),
			expectedCode: http.StatusServiceUnavailable,
			expected:     StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := serve(t, tt.checker, "/api/v1/health")
			assert.Equal(t, tt.expectedCode, code)
			assert.Equal(t, tt.expected, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checker.Names()))
		})
	}
}

func TestChecker_Readiness(t *testing.T) {
	checker := NewChecker("test").AddCheck("database", ok, true)

	code, resp := serve(t, checker, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Checks, "startup")

	checker.SetReady(true)
	code, resp = serve(t, checker, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusHealthy, resp.Checks["database"].Status)
}

func TestChecker_Liveness(t *testing.T) {
	checker := NewChecker("test").AddCheck("database", failing, true)

	code, resp := serve(t, checker, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)
}
