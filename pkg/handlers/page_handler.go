package handlers

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/models"
	"crop-yield-api/pkg/services"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PageTemplates parses the embedded HTML templates for gin's renderer.
func PageTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))
}

// formValues は画面に再表示する入力値です。
type formValues struct {
	Area       string
	CropType   string
	Year       string
	Rainfall   string
	Pesticides string
	AvgTemp    string
}

type pageData struct {
	UI         *config.UIConfig
	Background template.URL
	Crops      []string
	Form       formValues
	Outcome    services.Outcome
	MinYear    int
	MaxYear    int
	MinAvgTemp float64
	MaxAvgTemp float64
}

// PageHandler は予測フォームの画面を扱います。
type PageHandler struct {
	ui         *config.UIConfig
	predictor  *services.PredictionService
	background *services.BackgroundAsset
	monitoring *services.MonitoringService
	modelPath  string
}

// NewPageHandler は新しいPageHandlerを生成します。
func NewPageHandler(ui *config.UIConfig, predictor *services.PredictionService, background *services.BackgroundAsset, monitoring *services.MonitoringService, modelPath string) *PageHandler {
	return &PageHandler{
		ui:         ui,
		predictor:  predictor,
		background: background,
		monitoring: monitoring,
		modelPath:  modelPath,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (h *PageHandler) defaultForm() formValues {
	d := h.ui.Defaults
	return formValues{
		Area:       formatFloat(d.Area),
		CropType:   d.Crop,
		Year:       strconv.Itoa(d.Year),
		Rainfall:   formatFloat(d.Rainfall),
		Pesticides: formatFloat(d.Pesticides),
		AvgTemp:    formatFloat(d.AvgTemp),
	}
}

func (h *PageHandler) render(c *gin.Context, status int, form formValues, outcome services.Outcome) {
	c.HTML(status, "index.tmpl", pageData{
		UI:         h.ui,
		Background: template.URL(h.background.DataURL()),
		Crops:      h.ui.CropLabels(),
		Form:       form,
		Outcome:    outcome,
		MinYear:    models.MinYear,
		MaxYear:    models.MaxYear,
		MinAvgTemp: models.MinAvgTemp,
		MaxAvgTemp: models.MaxAvgTemp,
	})
}

// Index はフォームを表示します。モデルが無い場合はエラーのみを表示し、フォームは無効化します。
func (h *PageHandler) Index(c *gin.Context) {
	if !h.predictor.Available() {
		h.render(c, http.StatusOK, h.defaultForm(), services.FormatError(h.ui, h.modelPath, services.ErrArtifactMissing))
		return
	}
	h.render(c, http.StatusOK, h.defaultForm(), services.Outcome{})
}

// Submit はフォーム送信を受け取り、予測結果またはエラーを同じ画面に表示します。
func (h *PageHandler) Submit(c *gin.Context) {
	form := formValues{
		Area:       c.PostForm("area"),
		CropType:   c.PostForm("crop_type"),
		Year:       c.PostForm("year"),
		Rainfall:   c.PostForm("rainfall"),
		Pesticides: c.PostForm("pesticides"),
		AvgTemp:    c.PostForm("avg_temp"),
	}

	// モデルが無い場合は入力を検証せず、ブロッキングエラーを表示する
	if !h.predictor.Available() {
		h.monitoring.RecordPrediction("", services.ErrArtifactMissing)
		h.render(c, http.StatusServiceUnavailable, form, services.FormatError(h.ui, h.modelPath, services.ErrArtifactMissing))
		return
	}

	var input models.PredictionInput
	if err := c.ShouldBind(&input); err != nil {
		h.render(c, http.StatusBadRequest, form, services.Outcome{Error: bindingErrorMessage(err)})
		return
	}

	result, err := h.predictor.Predict(input)
	if err != nil {
		h.monitoring.RecordPrediction(input.CropType, err)
		h.render(c, statusForError(err), form, services.FormatError(h.ui, h.modelPath, err))
		return
	}

	h.monitoring.RecordPrediction(result.CropType, nil)
	h.render(c, http.StatusOK, form, services.FormatResult(h.ui, result))
}
