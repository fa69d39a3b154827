package handlers

import (
	"net/http"

	"crop-yield-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler はモニタリング関連の操作のハンドラです。
type MonitoringHandler struct {
	Service *services.MonitoringService
}

// NewMonitoringHandler は新しいMonitoringHandlerを生成します。
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{
		Service: service,
	}
}

// GetLogs は集計されたログデータを返します。
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	var hours int

	switch c.DefaultQuery("period", "24h") {
	case "1h":
		hours = 1
	case "7d":
		hours = 24 * 7
	default:
		hours = 24
	}

	c.JSON(http.StatusOK, h.Service.GetDashboardData(hours))
}
