package services

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/models"

	"github.com/stretchr/testify/require"
)

// fixedModel は入力に関係なく同じ値を返すテスト用モデルです。
type fixedModel struct {
	value float64
	info  models.ModelInfo

	mu    sync.Mutex
	calls int
	rows  [][]float64
}

func (m *fixedModel) Predict(rows [][]float64) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.rows = rows
	out := make([]float64, len(rows))
	for i := range out {
		out[i] = m.value
	}
	return out, nil
}

func (m *fixedModel) Info() models.ModelInfo { return m.info }

func (m *fixedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// staticProvider returns a fixed model or error.
type staticProvider struct {
	model Model
	err   error
}

func (p staticProvider) Load() (Model, error) { return p.model, p.err }

func defaultCrops() []config.CropOption {
	return config.DefaultUIConfig().Crops
}

func sampleInput() models.PredictionInput {
	return models.PredictionInput{
		Area:       100,
		CropType:   "Wheat",
		Year:       2023,
		Rainfall:   500,
		Pesticides: 10,
		AvgTemp:    25,
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const constantLinearArtifact = `{
  "type": "linear",
  "name": "constant",
  "intercept": 250.0,
  "coefficients": [0, 0, 0, 0, 0, 0]
}`
