package handlers

import (
	"errors"
	"net/http"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/models"
	"crop-yield-api/pkg/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PredictionHandler は予測APIのハンドラです。
type PredictionHandler struct {
	ui         *config.UIConfig
	predictor  *services.PredictionService
	batch      *services.BatchService
	monitoring *services.MonitoringService
	modelPath  string
}

// NewPredictionHandler は新しいPredictionHandlerを生成します。
func NewPredictionHandler(ui *config.UIConfig, predictor *services.PredictionService, batch *services.BatchService, monitoring *services.MonitoringService, modelPath string) *PredictionHandler {
	return &PredictionHandler{
		ui:         ui,
		predictor:  predictor,
		batch:      batch,
		monitoring: monitoring,
		modelPath:  modelPath,
	}
}

// GetCrops は作物ラベルと数値コードの一覧を返します。
func (h *PredictionHandler) GetCrops(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.predictor.Crops(),
	})
}

// GetModelStatus はモデルの読み込み状態を返します。
func (h *PredictionHandler) GetModelStatus(c *gin.Context) {
	status := h.predictor.ModelStatus()
	code := http.StatusOK
	if !status.Loaded {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// Predict は1件の入力に対する予測を返します。
func (h *PredictionHandler) Predict(c *gin.Context) {
	if !h.predictor.Available() {
		h.monitoring.RecordPrediction("", services.ErrArtifactMissing)
		outcome := services.FormatError(h.ui, h.modelPath, services.ErrArtifactMissing)
		c.JSON(http.StatusServiceUnavailable, models.PredictionResponse{
			Success: false,
			Error:   outcome.Error,
		})
		return
	}

	var input models.PredictionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, models.PredictionResponse{
			Success: false,
			Error:   bindingErrorMessage(err),
		})
		return
	}

	result, err := h.predictor.Predict(input)
	if err != nil {
		h.monitoring.RecordPrediction(input.CropType, err)
		outcome := services.FormatError(h.ui, h.modelPath, err)
		c.JSON(statusForError(err), models.PredictionResponse{
			Success: false,
			Error:   outcome.Error,
			Hint:    outcome.Hint,
		})
		return
	}

	h.monitoring.RecordPrediction(result.CropType, nil)
	outcome := services.FormatResult(h.ui, result)
	c.JSON(http.StatusOK, models.PredictionResponse{
		Success: true,
		Result:  result,
		Message: outcome.Headline,
		Summary: outcome.Summary[1:],
	})
}

// PredictBatch はアップロードされたExcel/CSVの各行を予測します。
// format=xlsx を指定すると結果列を追加したExcelファイルを返します。
func (h *PredictionHandler) PredictBatch(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(10 << 20); err != nil { // 10MB limit
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "multipart form with a 'file' field is required"})
		return
	}

	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is required"})
		return
	}
	defer file.Close()

	rows, err := h.batch.ReadRows(fileHeader.Filename, file)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrUnsupportedFile) {
			status = http.StatusUnsupportedMediaType
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	results, err := h.batch.PredictRows(rows)
	if err != nil {
		status := http.StatusBadRequest
		msg := err.Error()
		if errors.Is(err, services.ErrArtifactMissing) {
			status = http.StatusServiceUnavailable
			msg = services.FormatError(h.ui, h.modelPath, err).Error
		}
		c.JSON(status, gin.H{"success": false, "error": msg})
		return
	}

	resp := models.BatchResponse{
		Success:  true,
		FileName: fileHeader.Filename,
		Total:    len(results),
		Rows:     results,
	}
	for _, r := range results {
		if r.Error != "" {
			resp.Failed++
			h.monitoring.RecordPrediction("", &services.PredictionError{Message: r.Error})
			continue
		}
		resp.Succeeded++
		h.monitoring.RecordPrediction(r.Result.CropType, nil)
	}

	if c.Query("format") == "xlsx" {
		buf, err := h.batch.WriteWorkbook(results)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="predictions.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
		return
	}

	c.JSON(http.StatusOK, resp)
}
