package services

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitoringDashboardAggregation(t *testing.T) {
	svc := NewMonitoringService(nil)
	now := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	svc.LogRequest(LogEntry{Timestamp: now.Add(-10 * time.Minute), Path: "/predict", Method: "POST", StatusCode: 200, ResponseTime: 20 * time.Millisecond})
	svc.LogRequest(LogEntry{Timestamp: now.Add(-20 * time.Minute), Path: "/predict", Method: "POST", StatusCode: 503, ResponseTime: 40 * time.Millisecond})
	svc.LogRequest(LogEntry{Timestamp: now.Add(-90 * time.Minute), Path: "/", Method: "GET", StatusCode: 200, ResponseTime: 5 * time.Millisecond})
	svc.LogRequest(LogEntry{Timestamp: now.Add(-48 * time.Hour), Path: "/", Method: "GET", StatusCode: 404})

	data := svc.GetDashboardData(24)

	require.Len(t, data.RequestsOverTime, 24)
	assert.Equal(t, 2, data.RequestsOverTime[23]["requests"])
	assert.Equal(t, 1, data.RequestsOverTime[22]["requests"])

	assert.Equal(t, map[string]int{"/predict": 2, "/": 1}, data.Endpoints)
	require.Len(t, data.RecentErrors, 1)
	assert.Equal(t, 503, data.RecentErrors[0].StatusCode)

	for _, sc := range data.StatusCodes {
		switch sc["name"] {
		case "2xx Success":
			assert.Equal(t, 2, sc["value"])
		case "4xx Client Error":
			assert.Equal(t, 0, sc["value"])
		case "5xx Server Error":
			assert.Equal(t, 1, sc["value"])
		}
	}

	require.Len(t, data.AvgResponseTimes, 2)
	assert.Equal(t, "/", data.AvgResponseTimes[0]["endpoint"])
	assert.Equal(t, int64(30), data.AvgResponseTimes[1]["responseTime"])
}

func TestMonitoringRecordPrediction(t *testing.T) {
	svc := NewMonitoringService(nil)

	svc.RecordPrediction("Wheat", nil)
	svc.RecordPrediction("Wheat", nil)
	svc.RecordPrediction("Rice", nil)
	svc.RecordPrediction("", ErrArtifactMissing)
	svc.RecordPrediction("Maize", &PredictionError{Message: "bad"})
	svc.RecordPrediction("Maize", errors.New("unexpected"))

	data := svc.GetDashboardData(1)
	assert.Equal(t, 3, data.Predictions[OutcomeSuccess])
	assert.Equal(t, 1, data.Predictions[OutcomeModelMissing])
	assert.Equal(t, 2, data.Predictions[OutcomePredictionError])
	assert.Equal(t, map[string]int{"Wheat": 2, "Rice": 1}, data.Crops)
}

func TestLoggingMiddlewareSkipsAdminPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewMonitoringService(nil)

	router := gin.New()
	router.Use(svc.LoggingMiddleware())
	router.GET("/api/v1/crops", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/admin/health-status", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/v1/crops", "/api/v1/admin/health-status", "/api/v1/crops"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	data := svc.GetDashboardData(1)
	assert.Equal(t, map[string]int{"/api/v1/crops": 2}, data.Endpoints)
}
