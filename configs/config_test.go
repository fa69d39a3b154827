package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// テスト用の環境変数を設定
	testCases := map[string]string{
		"PORT":                  "9090",
		"ENVIRONMENT":           "test",
		"MODEL_PATH":            "models/yield.json",
		"CROP_ENCODING":         "hash",
		"API_KEY":               "test-key",
		"PREDICTION_CACHE_SIZE": "16",
	}

	for key, value := range testCases {
		t.Setenv(key, value)
	}

	cfg := LoadConfig()

	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be '9090', got '%s'", cfg.Port)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected Environment to be 'test', got '%s'", cfg.Environment)
	}

	if cfg.ModelPath != "models/yield.json" {
		t.Errorf("Expected ModelPath to be 'models/yield.json', got '%s'", cfg.ModelPath)
	}

	assert.Equal(t, "hash", cfg.CropEncoding)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, 16, cfg.PredictionCacheSize)
	assert.Equal(t, ":9090", cfg.ListenAddr())
}

func TestLoadConfigDefaults(t *testing.T) {
	// 環境変数をクリア
	vars := []string{
		"PORT", "ENVIRONMENT", "MODEL_PATH", "CROP_ENCODING",
		"API_KEY", "PREDICTION_CACHE_SIZE", "LOG_FILE",
	}

	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	cfg := LoadConfig()

	// デフォルト値の検証
	if cfg.Port != "8080" {
		t.Errorf("Expected default Port to be '8080', got '%s'", cfg.Port)
	}

	if cfg.Environment != "development" {
		t.Errorf("Expected default Environment to be 'development', got '%s'", cfg.Environment)
	}

	assert.Equal(t, "trained_model.sav", cfg.ModelPath)
	assert.Equal(t, "table", cfg.CropEncoding)
	assert.Equal(t, 256, cfg.PredictionCacheSize)
	assert.Empty(t, cfg.LogFile)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigInvalidCacheSize(t *testing.T) {
	t.Setenv("PREDICTION_CACHE_SIZE", "lots")
	assert.Equal(t, 256, LoadConfig().PredictionCacheSize)
}

func TestLoadUIConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadUIConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Crop Yield Predictor", cfg.Page.Title)
	assert.Equal(t, []string{"Wheat", "Rice", "Maize", "Barley", "Soybeans", "Other"}, cfg.CropLabels())
	assert.Equal(t, 100.0, cfg.Defaults.Area)
	assert.Equal(t, 2023, cfg.Defaults.Year)
}

func TestLoadUIConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.yaml")
	content := `
page:
  title: "Yield Lab"
crops:
  - label: "Wheat"
    code: 10
  - label: "Rice"
    code: 20
defaults:
  crop: "Barley"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadUIConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Yield Lab", cfg.Page.Title)
	assert.Equal(t, "Crop Yield Prediction using Machine Learning", cfg.Page.Footer)
	assert.Equal(t, []CropOption{{Label: "Wheat", Code: 10}, {Label: "Rice", Code: 20}}, cfg.Crops)
	// 存在しない作物がデフォルトに指定された場合は先頭の作物に戻す
	assert.Equal(t, "Wheat", cfg.Defaults.Crop)
}

func TestLoadUIConfigRejectsDuplicateCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.yaml")
	content := `
crops:
  - label: "Wheat"
    code: 1
  - label: "Rice"
    code: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadUIConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share code 1")
}

func TestLoadUIConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crops: [unterminated"), 0o600))

	_, err := LoadUIConfig(path)
	assert.Error(t, err)
}
