package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"crop-yield-api/pkg/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// MaxBatchRows はアップロード1回あたりの最大行数です。
const MaxBatchRows = 5000

// ErrUnsupportedFile はxlsx/csv以外のファイルが渡された場合に返されます。
var ErrUnsupportedFile = errors.New("unsupported file type: upload a .xlsx or .csv file")

// 列見出しの候補(大文字小文字は区別しない)
var batchColumns = [models.NumFeatures][]string{
	{"area", "area_ha", "hectares"},
	{"crop_type", "crop", "item"},
	{"year"},
	{"rainfall", "average_rain_fall_mm_per_year", "avg_rainfall"},
	{"pesticides", "pesticides_tonnes"},
	{"avg_temp", "temperature", "average_temperature"},
}

// BatchService はExcel/CSVの各行に対して予測を実行します。
type BatchService struct {
	predictor *PredictionService
	logger    *zap.Logger
}

// NewBatchService は新しいBatchServiceを生成します。
func NewBatchService(predictor *PredictionService, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{predictor: predictor, logger: logger}
}

// ReadRows reads the first sheet of an .xlsx file or a .csv file.
func (s *BatchService) ReadRows(fileName string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("read workbook: %w", err)
		}
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("read sheet rows: %w", err)
		}
		return rows, nil
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return rows, nil
	default:
		return nil, ErrUnsupportedFile
	}
}

// findIndex finds the index of the first candidate in a slice
func findIndex(slice []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, item := range slice {
			if strings.EqualFold(strings.TrimSpace(item), candidate) {
				return i
			}
		}
	}
	return -1
}

// columnIndexes は見出し行から各特徴量の列位置を解決します。
func columnIndexes(header []string) ([models.NumFeatures]int, error) {
	var idx [models.NumFeatures]int
	var missing []string
	for i, candidates := range batchColumns {
		idx[i] = findIndex(header, candidates...)
		if idx[i] < 0 {
			missing = append(missing, candidates[0])
		}
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// parseRow は1行分の文字列を入力値に変換します。
func parseRow(row []string, idx [models.NumFeatures]int) (models.PredictionInput, error) {
	var input models.PredictionInput
	floats := []struct {
		feature int
		dst     *float64
	}{
		{models.FeatureArea, &input.Area},
		{models.FeatureRainfall, &input.Rainfall},
		{models.FeaturePesticides, &input.Pesticides},
		{models.FeatureAvgTemp, &input.AvgTemp},
	}
	for _, f := range floats {
		raw := cell(row, idx[f.feature])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return input, fmt.Errorf("%s: invalid number %q", models.FeatureNames[f.feature], raw)
		}
		*f.dst = v
	}

	rawYear := cell(row, idx[models.FeatureYear])
	year, err := strconv.ParseFloat(rawYear, 64)
	if err != nil || year != float64(int(year)) {
		return input, fmt.Errorf("year: invalid value %q", rawYear)
	}
	input.Year = int(year)

	input.CropType = cell(row, idx[models.FeatureCrop])
	if input.CropType == "" {
		return input, errors.New("crop_type: value is required")
	}
	return input, nil
}

// PredictRows predicts every data row. 失敗した行はエラーメッセージ付きで返し、処理は続行します。
// モデルが利用できない場合のみ全体をErrArtifactMissingで失敗させます。
func (s *BatchService) PredictRows(rows [][]string) ([]models.BatchRowResult, error) {
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}
	if len(rows)-1 > MaxBatchRows {
		return nil, fmt.Errorf("too many rows: %d (max %d)", len(rows)-1, MaxBatchRows)
	}
	if !s.predictor.Available() {
		return nil, ErrArtifactMissing
	}

	idx, err := columnIndexes(rows[0])
	if err != nil {
		return nil, err
	}

	results := make([]models.BatchRowResult, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2 // 見出し行を1行目とする
		if isBlank(row) {
			continue
		}
		input, err := parseRow(row, idx)
		if err != nil {
			results = append(results, models.BatchRowResult{Row: rowNum, Error: err.Error()})
			continue
		}
		result, err := s.predictor.Predict(input)
		if err != nil {
			results = append(results, models.BatchRowResult{Row: rowNum, Input: &input, Error: err.Error()})
			continue
		}
		results = append(results, models.BatchRowResult{Row: rowNum, Input: &input, Result: result})
	}

	s.logger.Info("batch prediction finished", zap.Int("rows", len(results)))
	return results, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteWorkbook は予測結果を列として追加したExcelファイルを生成します。
func (s *BatchService) WriteWorkbook(results []models.BatchRowResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Predictions"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	header := []interface{}{"row", "area", "crop_type", "year", "rainfall", "pesticides", "avg_temp", "yield_tonnes", "yield_per_hectare", "error"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range results {
		values := make([]interface{}, len(header))
		values[0] = r.Row
		if r.Input != nil {
			values[1] = r.Input.Area
			values[2] = r.Input.CropType
			values[3] = r.Input.Year
			values[4] = r.Input.Rainfall
			values[5] = r.Input.Pesticides
			values[6] = r.Input.AvgTemp
		}
		if r.Result != nil {
			values[7] = round2(r.Result.YieldTonnes)
			values[8] = round2(r.Result.YieldPerHectare)
		}
		values[9] = r.Error

		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cellRef, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// round2 rounds to two decimals for the exported sheet.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
