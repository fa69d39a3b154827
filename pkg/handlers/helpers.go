package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"crop-yield-api/pkg/services"

	"github.com/go-playground/validator/v10"
)

// fieldLabels はバリデーションエラーで表示するフィールド名です。
var fieldLabels = map[string]string{
	"Area":       "Area (hectares)",
	"CropType":   "Crop Type",
	"Year":       "Year",
	"Rainfall":   "Average Rainfall (mm/year)",
	"Pesticides": "Pesticides (tonnes)",
	"AvgTemp":    "Average Temperature (°C)",
}

// bindingErrorMessage はGinのバインドエラーを利用者向けの文章に変換します。
func bindingErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Sprintf("invalid request: %v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label, ok := fieldLabels[fe.Field()]
		if !ok {
			label = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", label))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", label, fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", label, fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", label, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", label))
		}
	}
	return strings.Join(msgs, "; ")
}

// statusForError maps prediction failures to HTTP status codes.
func statusForError(err error) int {
	var predErr *services.PredictionError
	switch {
	case errors.Is(err, services.ErrArtifactMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &predErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
