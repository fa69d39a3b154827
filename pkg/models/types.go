package models

// NumFeatures は特徴量ベクトルの列数です。
const NumFeatures = 6

// 特徴量ベクトル内の列インデックス
const (
	FeatureArea = iota
	FeatureCrop
	FeatureYear
	FeatureRainfall
	FeaturePesticides
	FeatureAvgTemp
)

// FeatureNames は特徴量ベクトルの列名を順番通りに並べたものです。
var FeatureNames = [NumFeatures]string{"area", "crop", "year", "rainfall", "pesticides", "avg_temp"}

// 入力値の範囲
const (
	MinYear    = 1990
	MaxYear    = 2030
	MinAvgTemp = -10.0
	MaxAvgTemp = 50.0
)

// PredictionInput represents a single crop yield prediction request.
// JSON APIとフォーム送信の両方で利用します。
type PredictionInput struct {
	Area       float64 `json:"area" form:"area" binding:"gt=0"`
	CropType   string  `json:"crop_type" form:"crop_type" binding:"required"`
	Year       int     `json:"year" form:"year" binding:"gte=1990,lte=2030"`
	Rainfall   float64 `json:"rainfall" form:"rainfall" binding:"gte=0"`
	Pesticides float64 `json:"pesticides" form:"pesticides" binding:"gte=0"`
	AvgTemp    float64 `json:"avg_temp" form:"avg_temp" binding:"gte=-10,lte=50"`
}

// FeatureVector is the fixed-order numeric row consumed by the model:
// [area, cropEncoded, year, rainfall, pesticides, avgTemp].
type FeatureVector [NumFeatures]float64

// Row returns the vector as a slice for the model's single-row input.
func (v FeatureVector) Row() []float64 {
	row := make([]float64, NumFeatures)
	copy(row, v[:])
	return row
}

// PredictionResult represents the outcome of a successful prediction.
type PredictionResult struct {
	YieldTonnes     float64 `json:"yield_tonnes"`
	YieldPerHectare float64 `json:"yield_per_hectare"`
	CropType        string  `json:"crop_type"`
	Area            float64 `json:"area"`
	CropEncoded     int     `json:"crop_encoded"`
	// キャッシュから返した結果かどうか
	Cached bool `json:"cached,omitempty"`
}

// PredictionResponse is the JSON body returned by the prediction API.
type PredictionResponse struct {
	Success bool              `json:"success"`
	Result  *PredictionResult `json:"result,omitempty"`
	Message string            `json:"message"`
	Summary []string          `json:"summary,omitempty"`
	Error   string            `json:"error,omitempty"`
	Hint    string            `json:"hint,omitempty"`
}

// ModelInfo describes a loaded model artifact.
type ModelInfo struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Version      string   `json:"version,omitempty"`
	FeatureNames []string `json:"feature_names"`
	CropEncoding string   `json:"crop_encoding,omitempty"`
	TrainedAt    string   `json:"trained_at,omitempty"`
	Path         string   `json:"path"`
}

// ModelStatus is returned by the model status endpoint.
type ModelStatus struct {
	Loaded bool       `json:"loaded"`
	Info   *ModelInfo `json:"info,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// CropEntry is a crop label with its numeric encoding.
type CropEntry struct {
	Label string `json:"label"`
	Code  int    `json:"code"`
}

// BatchRowResult represents the prediction outcome of one uploaded row.
type BatchRowResult struct {
	Row    int               `json:"row"`
	Input  *PredictionInput  `json:"input,omitempty"`
	Result *PredictionResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// BatchResponse is the JSON body returned by the batch prediction API.
type BatchResponse struct {
	Success   bool             `json:"success"`
	FileName  string           `json:"file_name"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Rows      []BatchRowResult `json:"rows"`
}
