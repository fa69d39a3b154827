package handlers

import (
	"crypto/subtle"
	"net/http"
	"sync/atomic"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler は管理者向け操作のハンドラです。
type AdminHandler struct {
	AdminUsername string
	AdminPassword string
	predictor     *services.PredictionService

	// maintenance はサーバーがメンテナンスモードかどうかを示します。
	maintenance atomic.Bool
}

// NewAdminHandler は新しいAdminHandlerを生成します。
func NewAdminHandler(cfg *config.Config, predictor *services.PredictionService) *AdminHandler {
	return &AdminHandler{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		predictor:     predictor,
	}
}

// AdminCredentials は管理者認証のためのリクエストボディです。
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) authorize(c *gin.Context) bool {
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return false
	}

	// パスワード未設定の場合は管理APIを無効にする
	if h.AdminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(input.Username), []byte(h.AdminUsername)) != 1 ||
		subtle.ConstantTimeCompare([]byte(input.Password), []byte(h.AdminPassword)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return false
	}
	return true
}

// StartMaintenance はメンテナンスモードを開始します。
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Store(true)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode started"})
}

// StopMaintenance はメンテナンスモードを停止します。
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Store(false)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode stopped"})
}

// GetHealthStatus は現在のサーバーの状態を返します。
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"isMaintenanceMode": h.maintenance.Load(),
		"model":             h.predictor.ModelStatus(),
	})
}

// HealthCheck は外部のヘルスチェッカー（例: ロードバランサー）からのリクエストに応答します。
// モデルが無い状態でも画面はエラーを表示できるため、ここでは200を返します。
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	if h.maintenance.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "modelLoaded": h.predictor.Available()})
}

// MaintenanceMiddleware はメンテナンス中に予測系のリクエストを拒否します。
func (h *AdminHandler) MaintenanceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.maintenance.Load() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Server is in maintenance mode"})
			return
		}
		c.Next()
	}
}
