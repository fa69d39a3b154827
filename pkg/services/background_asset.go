package services

import (
	"encoding/base64"
	"os"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// BackgroundAsset は背景画像を一度だけ読み込み、data URLとして保持します。
// ファイルが無い場合は空文字を返し、エラーとしては扱いません。
type BackgroundAsset struct {
	path   string
	logger *zap.Logger

	once    sync.Once
	dataURL string
}

// NewBackgroundAsset は新しいBackgroundAssetを生成します。
func NewBackgroundAsset(path string, logger *zap.Logger) *BackgroundAsset {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackgroundAsset{path: path, logger: logger}
}

// DataURL returns "data:<mime>;base64,<payload>" or "" when the image is unavailable.
func (a *BackgroundAsset) DataURL() string {
	a.once.Do(func() {
		if a.path == "" {
			return
		}
		data, err := os.ReadFile(a.path)
		if err != nil || len(data) == 0 {
			a.logger.Debug("background image not available", zap.String("path", a.path), zap.Error(err))
			return
		}
		mime := mimetype.Detect(data)
		if !mime.Is("image/jpeg") && !mime.Is("image/png") && !mime.Is("image/webp") && !mime.Is("image/gif") {
			a.logger.Debug("background file is not an image", zap.String("path", a.path), zap.String("mime", mime.String()))
			return
		}
		a.dataURL = "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(data)
	})
	return a.dataURL
}
