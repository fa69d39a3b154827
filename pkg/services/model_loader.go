package services

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrArtifactMissing はモデルファイルが存在しない、または壊れている場合に返されます。
var ErrArtifactMissing = errors.New("model not available")

// ModelProvider supplies the process-wide model.
type ModelProvider interface {
	Load() (Model, error)
}

// ModelLoader はモデルファイルを一度だけ読み込み、その結果(失敗を含む)を保持します。
// サーバー起動時に1つ生成し、各ハンドラーに注入して使います。
type ModelLoader struct {
	path     string
	logger   *zap.Logger
	readFile func(string) ([]byte, error)

	once     sync.Once
	model    Model
	err      error
	attempts atomic.Int32
}

// NewModelLoader は新しいModelLoaderを生成します。読み込みは最初のLoad呼び出しまで遅延されます。
func NewModelLoader(path string, logger *zap.Logger) *ModelLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelLoader{
		path:     path,
		logger:   logger,
		readFile: os.ReadFile,
	}
}

// Load returns the cached model. Any I/O or decoding error is reported as
// ErrArtifactMissing; the underlying cause is kept in the wrapped message.
func (l *ModelLoader) Load() (Model, error) {
	l.once.Do(func() {
		l.attempts.Add(1)

		data, err := l.readFile(l.path)
		if err != nil {
			l.err = fmt.Errorf("%w: %v", ErrArtifactMissing, err)
			l.logger.Warn("model artifact could not be read", zap.String("path", l.path), zap.Error(err))
			return
		}

		model, err := DecodeModel(l.path, data)
		if err != nil {
			l.err = fmt.Errorf("%w: %v", ErrArtifactMissing, err)
			l.logger.Warn("model artifact could not be decoded", zap.String("path", l.path), zap.Error(err))
			return
		}

		info := model.Info()
		l.model = model
		l.logger.Info("model loaded",
			zap.String("path", l.path),
			zap.String("name", info.Name),
			zap.String("type", info.Type),
			zap.String("crop_encoding", info.CropEncoding),
		)
	})
	return l.model, l.err
}

// Path returns the artifact location.
func (l *ModelLoader) Path() string {
	return l.path
}

// Attempts reports how many times the artifact was actually read.
func (l *ModelLoader) Attempts() int {
	return int(l.attempts.Load())
}
