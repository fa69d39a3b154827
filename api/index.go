package handler

import (
	"log"
	"net/http"
	"sync"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/logging"
	"crop-yield-api/pkg/server"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	app     http.Handler
	once    sync.Once
	initErr error
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() (http.Handler, error) {
	once.Do(func() {
		// .envファイルはVercelの環境変数設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()

		logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Production: true})
		if err != nil {
			initErr = err
			return
		}

		ui, err := config.LoadUIConfig(cfg.UIConfigPath)
		if err != nil {
			logger.Error("failed to load UI config", zap.Error(err))
			initErr = err
			return
		}

		gin.SetMode(gin.ReleaseMode)
		srv, err := server.New(cfg, ui, logger)
		if err != nil {
			logger.Error("failed to initialize server", zap.Error(err))
			initErr = err
			return
		}
		app = srv.Engine()
	})
	return app, initErr
}

// Handler はVercelからのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	h, err := setupApp()
	if err != nil {
		log.Printf("[Handler] initialization failed: %v", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	h.ServeHTTP(w, r)
}
