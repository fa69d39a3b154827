package services

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxLogEntries は保持するリクエストログの上限です。古いものから破棄します。
const maxLogEntries = 10000

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// 予測結果の分類
const (
	OutcomeSuccess         = "success"
	OutcomeModelMissing    = "model_missing"
	OutcomePredictionError = "prediction_error"
)

// MonitoringService はリクエストと予測結果の統計を提供します。
type MonitoringService struct {
	logs     []LogEntry
	outcomes map[string]int
	crops    map[string]int
	logger   *zap.Logger
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService(logger *zap.Logger) *MonitoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringService{
		logs:     make([]LogEntry, 0),
		outcomes: make(map[string]int),
		crops:    make(map[string]int),
		logger:   logger,
		now:      time.Now,
	}
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[len(s.logs)-maxLogEntries:]
	}
}

// RecordPrediction は予測1回分の結果を分類して集計します。
func (s *MonitoringService) RecordPrediction(crop string, err error) {
	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrArtifactMissing):
		outcome = OutcomeModelMissing
	default:
		outcome = OutcomePredictionError
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[outcome]++
	if err == nil && crop != "" {
		s.crops[crop]++
	}
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()

		c.Next()

		path := c.Request.URL.Path
		entry := LogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: s.now().Sub(start),
		}

		fields := []zap.Field{
			zap.String("method", entry.Method),
			zap.String("path", path),
			zap.Int("status", entry.StatusCode),
			zap.Duration("latency", entry.ResponseTime),
			zap.String("client_ip", c.ClientIP()),
		}
		if entry.StatusCode >= 500 {
			s.logger.Error("request", fields...)
		} else {
			s.logger.Info("request", fields...)
		}

		// 管理系・モニタリング系のパスは集計から除外
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}
		s.LogRequest(entry)
	}
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []map[string]interface{} `json:"requestsOverTime"`
	Endpoints        map[string]int           `json:"endpoints"`
	StatusCodes      []map[string]interface{} `json:"statusCodes"`
	AvgResponseTimes []map[string]interface{} `json:"avgResponseTimes"`
	Predictions      map[string]int           `json:"predictions"`
	Crops            map[string]int           `json:"crops"`
	RecentErrors     []LogEntry               `json:"recentErrors"`
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if periodHours <= 0 {
		periodHours = 24
	}

	now := s.now().UTC()
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	// 時間ごとのリクエスト数(過去から現在の順)
	requestsOverTime := make([]map[string]interface{}, periodHours)
	bucketIndex := make(map[time.Time]int, periodHours)
	for i := 0; i < periodHours; i++ {
		bucket := now.Add(-time.Duration(periodHours-1-i) * time.Hour).Truncate(time.Hour)
		bucketIndex[bucket] = i
		requestsOverTime[i] = map[string]interface{}{"time": bucket.Format("15:00"), "requests": 0}
	}
	for _, entry := range filtered {
		if i, ok := bucketIndex[entry.Timestamp.UTC().Truncate(time.Hour)]; ok {
			requestsOverTime[i]["requests"] = requestsOverTime[i]["requests"].(int) + 1
		}
	}

	endpoints := make(map[string]int)
	statusCodes := map[string]int{"2xx Success": 0, "4xx Client Error": 0, "5xx Server Error": 0}
	responseTimeSum := make(map[string]time.Duration)
	for _, entry := range filtered {
		endpoints[entry.Path]++
		responseTimeSum[entry.Path] += entry.ResponseTime
		switch {
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			statusCodes["2xx Success"]++
		case entry.StatusCode >= 400 && entry.StatusCode < 500:
			statusCodes["4xx Client Error"]++
		case entry.StatusCode >= 500:
			statusCodes["5xx Server Error"]++
		}
	}

	statusNames := make([]string, 0, len(statusCodes))
	for name := range statusCodes {
		statusNames = append(statusNames, name)
	}
	sort.Strings(statusNames)
	statusCodesSlice := make([]map[string]interface{}, 0, len(statusNames))
	for _, name := range statusNames {
		statusCodesSlice = append(statusCodesSlice, map[string]interface{}{"name": name, "value": statusCodes[name]})
	}

	paths := make([]string, 0, len(responseTimeSum))
	for path := range responseTimeSum {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	avgResponseTimes := make([]map[string]interface{}, 0, len(paths))
	for _, path := range paths {
		avg := responseTimeSum[path].Milliseconds() / int64(endpoints[path])
		avgResponseTimes = append(avgResponseTimes, map[string]interface{}{"endpoint": path, "responseTime": avg})
	}

	recentErrors := make([]LogEntry, 0)
	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if filtered[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, filtered[i])
		}
	}

	predictions := make(map[string]int, len(s.outcomes))
	for k, v := range s.outcomes {
		predictions[k] = v
	}
	crops := make(map[string]int, len(s.crops))
	for k, v := range s.crops {
		crops[k] = v
	}

	return DashboardData{
		RequestsOverTime: requestsOverTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodesSlice,
		AvgResponseTimes: avgResponseTimes,
		Predictions:      predictions,
		Crops:            crops,
		RecentErrors:     recentErrors,
	}
}
