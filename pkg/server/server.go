package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/handlers"
	"crop-yield-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server bundles the gin engine and the services shared by every request.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	logger *zap.Logger
	loader *services.ModelLoader
}

// New はサービスとハンドラーを初期化し、ルーティングを登録します。
// モデルはここで一度だけ読み込まれ、以降のリクエストで共有されます。
func New(cfg *config.Config, ui *config.UIConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// サービスの初期化
	loader := services.NewModelLoader(cfg.ModelPath, logger.Named("model"))
	predictor, err := services.NewPredictionService(loader, ui.Crops, cfg.CropEncoding, cfg.PredictionCacheSize, logger.Named("prediction"))
	if err != nil {
		return nil, err
	}
	if _, err := loader.Load(); err != nil {
		logger.Warn("starting without a model; predictions are disabled", zap.Error(err))
	}
	monitoringService := services.NewMonitoringService(logger.Named("http"))
	batchService := services.NewBatchService(predictor, logger.Named("batch"))
	background := services.NewBackgroundAsset(cfg.BackgroundImagePath, logger.Named("asset"))

	// ハンドラーの初期化
	pageHandler := handlers.NewPageHandler(ui, predictor, background, monitoringService, cfg.ModelPath)
	predictionHandler := handlers.NewPredictionHandler(ui, predictor, batchService, monitoringService, cfg.ModelPath)
	adminHandler := handlers.NewAdminHandler(cfg, predictor)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-API-KEY")

	// ミドルウェアの登録
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.New(corsConfig))
	r.SetHTMLTemplate(handlers.PageTemplates())

	// ヘルスチェックエンドポイント
	r.GET("/health", adminHandler.HealthCheck)

	// 画面
	page := r.Group("/")
	page.Use(adminHandler.MaintenanceMiddleware())
	{
		page.GET("/", pageHandler.Index)
		page.POST("/predict", pageHandler.Submit)
	}

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(APIKeyMiddleware(cfg.APIKey))
	{
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}

		v1.GET("/crops", predictionHandler.GetCrops)
		v1.GET("/model", predictionHandler.GetModelStatus)

		predict := v1.Group("/predict")
		predict.Use(adminHandler.MaintenanceMiddleware())
		{
			predict.POST("", predictionHandler.Predict)
			predict.POST("/batch", predictionHandler.PredictBatch)
		}
	}

	return &Server{cfg: cfg, engine: r, logger: logger, loader: loader}, nil
}

// APIKeyMiddleware は X-API-KEY ヘッダーを検証します。キーが未設定の場合は検証しません。
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// Engine exposes the underlying gin engine (for tests and serverless handlers).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Loader exposes the model loader shared by the handlers.
func (s *Server) Loader() *services.ModelLoader {
	return s.loader
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("server listening", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
