package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	config "crop-yield-api/configs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, withModel bool, apiKey string) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Port:                "0",
		Environment:         "test",
		ModelPath:           filepath.Join(dir, "trained_model.sav"),
		BackgroundImagePath: filepath.Join(dir, "missing.jpg"),
		CropEncoding:        "table",
		APIKey:              apiKey,
		PredictionCacheSize: 16,
	}
	if withModel {
		require.NoError(t, os.WriteFile(cfg.ModelPath, []byte(`{"type":"linear","intercept":250,"coefficients":[0,0,0,0,0,0]}`), 0o600))
	}

	srv, err := New(cfg, config.DefaultUIConfig(), nil)
	require.NoError(t, err)
	return srv
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t, true, "")
	assert.Equal(t, 1, srv.Loader().Attempts(), "model should be loaded at startup")

	testCases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{"GET", "/health", "", http.StatusOK},
		{"GET", "/", "", http.StatusOK},
		{"GET", "/api/v1/crops", "", http.StatusOK},
		{"GET", "/api/v1/model", "", http.StatusOK},
		{"GET", "/api/v1/monitoring/logs", "", http.StatusOK},
		{"POST", "/api/v1/predict", `{"area":100,"crop_type":"Wheat","year":2023,"rainfall":500,"pesticides":10,"avg_temp":25}`, http.StatusOK},
		{"GET", "/nope", "", http.StatusNotFound},
	}

	for _, tc := range testCases {
		req, _ := http.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		if tc.body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		srv.Engine().ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
	}

	// 繰り返しリクエストしてもモデルは再読み込みされない
	assert.Equal(t, 1, srv.Loader().Attempts())
}

func TestServerStartsWithoutModel(t *testing.T) {
	srv := newTestServer(t, false, "")

	req, _ := http.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Model file not found.")
}

func TestAPIKeyMiddleware(t *testing.T) {
	srv := newTestServer(t, true, "test-key")

	req, _ := http.NewRequest("GET", "/api/v1/crops", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req, _ = http.NewRequest("GET", "/api/v1/crops", nil)
	req.Header.Set("X-API-KEY", "test-key")
	w = httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// 画面はAPIキー無しで表示できる
	req, _ = http.NewRequest("GET", "/", nil)
	w = httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRejectsUnknownEncoding(t *testing.T) {
	cfg := &config.Config{ModelPath: "x.sav", CropEncoding: "onehot"}
	_, err := New(cfg, config.DefaultUIConfig(), nil)
	assert.Error(t, err)
}
