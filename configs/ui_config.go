package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// UIConfig はページ描画に必要な設定をまとめたものです。
// レンダラーへ明示的に渡され、グローバルな状態は持ちません。
type UIConfig struct {
	Page struct {
		Title  string `yaml:"title"`
		Icon   string `yaml:"icon"`
		Layout string `yaml:"layout"`
		Footer string `yaml:"footer"`
	} `yaml:"page"`

	Crops []CropOption `yaml:"crops"`

	Defaults FieldDefaults `yaml:"defaults"`

	Messages struct {
		ModelMissing    string `yaml:"model_missing"`
		PredictionHint  string `yaml:"prediction_hint"`
		SubmitLabel     string `yaml:"submit_label"`
		SummaryHeading  string `yaml:"summary_heading"`
		PredictionError string `yaml:"prediction_error"`
	} `yaml:"messages"`
}

// CropOption はセレクトボックスの選択肢と、その数値コードです。
type CropOption struct {
	Label string `yaml:"label"`
	Code  int    `yaml:"code"`
}

// FieldDefaults holds the initial values shown in the form.
type FieldDefaults struct {
	Area       float64 `yaml:"area"`
	Crop       string  `yaml:"crop"`
	Year       int     `yaml:"year"`
	Rainfall   float64 `yaml:"rainfall"`
	Pesticides float64 `yaml:"pesticides"`
	AvgTemp    float64 `yaml:"avg_temp"`
}

// DefaultUIConfig returns the built-in page configuration.
func DefaultUIConfig() *UIConfig {
	cfg := &UIConfig{}
	cfg.Page.Title = "Crop Yield Predictor"
	cfg.Page.Icon = "🌾"
	cfg.Page.Layout = "wide"
	cfg.Page.Footer = "Crop Yield Prediction using Machine Learning"

	cfg.Crops = []CropOption{
		{Label: "Wheat", Code: 0},
		{Label: "Rice", Code: 1},
		{Label: "Maize", Code: 2},
		{Label: "Barley", Code: 3},
		{Label: "Soybeans", Code: 4},
		{Label: "Other", Code: 5},
	}

	cfg.Defaults = FieldDefaults{
		Area:       100.0,
		Crop:       "Wheat",
		Year:       2023,
		Rainfall:   500.0,
		Pesticides: 10.0,
		AvgTemp:    25.0,
	}

	cfg.Messages.ModelMissing = "Model file not found. Please ensure '{path}' exists in the directory."
	cfg.Messages.PredictionHint = "Please ensure the model was trained with compatible features."
	cfg.Messages.SubmitLabel = "Predict Crop Yield"
	cfg.Messages.SummaryHeading = "Prediction Summary:"
	cfg.Messages.PredictionError = "Error making prediction: {error}"
	return cfg
}

// LoadUIConfig はYAMLファイルからページ設定を読み込みます。
// ファイルが存在しない場合は組み込みのデフォルトを返します。
// YAMLに書かれていない項目はデフォルト値のまま残ります。
func LoadUIConfig(path string) (*UIConfig, error) {
	cfg := DefaultUIConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("UI設定ファイルの読み込みに失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("YAMLのパースに失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the crop table is usable as a stable encoding.
func (c *UIConfig) Validate() error {
	if len(c.Crops) == 0 {
		return errors.New("ui config: at least one crop is required")
	}
	labels := make(map[string]struct{}, len(c.Crops))
	codes := make(map[int]string, len(c.Crops))
	for _, crop := range c.Crops {
		if crop.Label == "" {
			return errors.New("ui config: crop label must not be empty")
		}
		if _, dup := labels[crop.Label]; dup {
			return fmt.Errorf("ui config: duplicate crop label %q", crop.Label)
		}
		if other, dup := codes[crop.Code]; dup {
			return fmt.Errorf("ui config: crops %q and %q share code %d", other, crop.Label, crop.Code)
		}
		labels[crop.Label] = struct{}{}
		codes[crop.Code] = crop.Label
	}
	if _, ok := labels[c.Defaults.Crop]; !ok {
		c.Defaults.Crop = c.Crops[0].Label
	}
	return nil
}

// CropLabels returns the crop labels in display order.
func (c *UIConfig) CropLabels() []string {
	labels := make([]string, 0, len(c.Crops))
	for _, crop := range c.Crops {
		labels = append(labels, crop.Label)
	}
	return labels
}
