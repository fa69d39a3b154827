package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port                string
	Environment         string
	ModelPath           string
	BackgroundImagePath string
	UIConfigPath        string
	CropEncoding        string
	APIKey              string
	AdminUsername       string
	AdminPassword       string
	LogLevel            string
	LogFile             string
	PredictionCacheSize int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:                getEnv("PORT", "8080"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		ModelPath:           getEnv("MODEL_PATH", "trained_model.sav"),
		BackgroundImagePath: getEnv("BACKGROUND_IMAGE_PATH", "getty-images-r_rXoOYAvy4-unsplash-1024x681.jpg"),
		UIConfigPath:        getEnv("UI_CONFIG_PATH", "configs/ui.yaml"),
		CropEncoding:        getEnv("CROP_ENCODING", "table"),
		APIKey:              getEnv("API_KEY", ""),
		AdminUsername:       getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFile:             getEnv("LOG_FILE", ""),
		PredictionCacheSize: getEnvInt("PREDICTION_CACHE_SIZE", 256),
	}
}

// ListenAddr returns the address passed to the HTTP server.
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}

// IsProduction reports whether gin should run in release mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt は整数の環境変数を読み込みます。パースできない場合はデフォルト値を返します。
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}
