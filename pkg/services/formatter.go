package services

import (
	"errors"
	"math"
	"strconv"
	"strings"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/models"
)

// メッセージテンプレート内の置換対象
const (
	PlaceholderPath  = "{path}"
	PlaceholderError = "{error}"
)

// Outcome は1回の送信結果を画面表示用にまとめたものです。
type Outcome struct {
	Success  bool
	Headline string
	Summary  []string
	Error    string
	Hint     string
	Blocking bool
}

// FormatArea echoes the area the way the form shows it ("100.0").
func FormatArea(area float64) string {
	if area == math.Trunc(area) {
		return strconv.FormatFloat(area, 'f', 1, 64)
	}
	return strconv.FormatFloat(area, 'f', -1, 64)
}

func formatTonnes(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatResult builds the success message: yield with 2 decimals, echo of crop and
// area, and the derived per-hectare yield.
func FormatResult(ui *config.UIConfig, result *models.PredictionResult) Outcome {
	return Outcome{
		Success:  true,
		Headline: "🎯 Predicted Crop Yield: " + formatTonnes(result.YieldTonnes) + " tonnes",
		Summary: []string{
			ui.Messages.SummaryHeading,
			"Crop: " + result.CropType,
			"Area: " + FormatArea(result.Area) + " hectares",
			"Expected yield per hectare: " + formatTonnes(result.YieldPerHectare) + " tonnes/hectare",
		},
	}
}

// FormatError maps a failure to the banner shown to the user.
func FormatError(ui *config.UIConfig, modelPath string, err error) Outcome {
	if errors.Is(err, ErrArtifactMissing) {
		return Outcome{
			Error:    strings.ReplaceAll(ui.Messages.ModelMissing, PlaceholderPath, modelPath),
			Blocking: true,
		}
	}
	return Outcome{
		Error: strings.ReplaceAll(ui.Messages.PredictionError, PlaceholderError, err.Error()),
		Hint:  ui.Messages.PredictionHint,
	}
}
