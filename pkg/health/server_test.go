package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/storefront-client/pkg/logger"
)

func TestHealthAllUp(t *testing.T) {
	s := NewServer(logger.Nop(), WithServiceName("storefront-client"), WithVersion("1.0.0"))
	s.Register("redis", CheckerFunc(func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUp}
	}))

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "storefront-client", resp.Service)
	assert.Equal(t, StatusUp, resp.Status)
	assert.Equal(t, StatusUp, resp.Checks["redis"].Status)
}

func TestHealthDegraded(t *testing.T) {
	s := NewServer(logger.Nop())
	s.Register("redis", CheckerFunc(func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUp}
	}))
	s.Register("auth-service", CheckerFunc(func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusDown, Error: "connection refused"}
	}))

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, StatusDown, resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["auth-service"].Error)
}

func TestBackendCheckerAcceptsAnyHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := BackendChecker(srv.Client(), srv.URL).Check(context.Background())
	assert.Equal(t, StatusUp, result.Status, "any HTTP response means the backend is alive")
}

func TestBackendCheckerReportsConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	result := BackendChecker(srv.Client(), srv.URL).Check(context.Background())
	assert.Equal(t, StatusDown, result.Status)
	assert.NotEmpty(t, result.Error)
}
