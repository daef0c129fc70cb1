package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optctl/opt-orchestrator/internal/config"
	"github.com/optctl/opt-orchestrator/internal/metrics"
	"github.com/optctl/opt-orchestrator/internal/obslog"
	"github.com/optctl/opt-orchestrator/internal/orchestrator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(secret string) *Server {
	cfg := config.Config{
		HTTPPort:            8080,
		ParamSpaceMax:       500,
		ConcurrencyLimitMax: 16,
		TopNLimit:           5,
		MaxRetries:          5,
		RetryBaseSeconds:    2,
		OrchestratorSecret:  secret,
		ObsMetricsEnabled:   false,
	}
	core := orchestrator.New(orchestrator.Config{
		ParamSpaceMax:       cfg.ParamSpaceMax,
		ConcurrencyLimitMax: cfg.ConcurrencyLimitMax,
		TopNLimit:           cfg.TopNLimit,
		MaxRetries:          cfg.MaxRetries,
		RetryBaseSeconds:    cfg.RetryBaseSeconds,
	}, obslog.New(obslog.Config{Enabled: false}), metrics.New(false))
	return New(cfg, core)
}

func doRequest(t *testing.T, s *Server, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := newTestServer("")
	rec := doRequest(t, s, http.MethodGet, "/internal/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateOptimization_MissingOwnerHeaderIsParamInvalid(t *testing.T) {
	s := newTestServer("")
	rec := doRequest(t, s, http.MethodPost, "/internal/optimizations", nil, map[string]any{
		"versionId":        "v1",
		"paramSpace":       map[string]any{"x": []any{1.0, 2.0}},
		"concurrencyLimit": 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "E.PARAM_INVALID", body["detail"]["code"])
}

func TestCreateOptimization_WrongSharedSecretIsForbidden(t *testing.T) {
	s := newTestServer("topsecret")
	rec := doRequest(t, s, http.MethodPost, "/internal/optimizations",
		map[string]string{"x-owner-id": "owner-1", "x-opt-shared-secret": "wrong"},
		map[string]any{
			"versionId":        "v1",
			"paramSpace":       map[string]any{"x": []any{1.0, 2.0}},
			"concurrencyLimit": 2,
		})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAndFetchOptimization_RoundTrip(t *testing.T) {
	s := newTestServer("")
	headers := map[string]string{"x-owner-id": "owner-1"}

	createRec := doRequest(t, s, http.MethodPost, "/internal/optimizations", headers, map[string]any{
		"versionId":        "v1",
		"paramSpace":       map[string]any{"x": []any{1.0, 2.0, 3.0}},
		"concurrencyLimit": 2,
	})
	require.Equal(t, http.StatusOK, createRec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	jobID, _ := created["id"].(string)
	require.NotEmpty(t, jobID)

	statusRec := doRequest(t, s, http.MethodGet, "/internal/optimizations/"+jobID+"/status", headers, nil)
	assert.Equal(t, http.StatusOK, statusRec.Code)
}

func TestGetOptimization_UnknownJobNotFound(t *testing.T) {
	s := newTestServer("")
	headers := map[string]string{"x-owner-id": "owner-1"}
	rec := doRequest(t, s, http.MethodGet, "/internal/optimizations/does-not-exist", headers, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOptimization_WrongOwnerForbidden(t *testing.T) {
	s := newTestServer("")
	createRec := doRequest(t, s, http.MethodPost, "/internal/optimizations",
		map[string]string{"x-owner-id": "owner-1"}, map[string]any{
			"versionId":        "v1",
			"paramSpace":       map[string]any{"x": []any{1.0}},
			"concurrencyLimit": 1,
		})
	require.Equal(t, http.StatusOK, createRec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	jobID, _ := created["id"].(string)

	rec := doRequest(t, s, http.MethodGet, "/internal/optimizations/"+jobID,
		map[string]string{"x-owner-id": "owner-2"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancelOptimization_WithoutBodySucceeds(t *testing.T) {
	s := newTestServer("")
	headers := map[string]string{"x-owner-id": "owner-1"}
	createRec := doRequest(t, s, http.MethodPost, "/internal/optimizations", headers, map[string]any{
		"versionId":        "v1",
		"paramSpace":       map[string]any{"x": []any{1.0, 2.0}},
		"concurrencyLimit": 2,
	})
	require.Equal(t, http.StatusOK, createRec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	jobID, _ := created["id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/internal/optimizations/"+jobID+"/cancel", nil)
	req.Header.Set("x-owner-id", "owner-1")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
