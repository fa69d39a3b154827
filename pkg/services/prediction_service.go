package services

import (
	"errors"
	"fmt"
	"math"
	"sync"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/models"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ErrInvalidInput はPredictionErrorに包まれ、入力値の不備を示します。
var ErrInvalidInput = errors.New("invalid input")

// PredictionError is a non-fatal failure of a single submission.
// ユーザーは入力を修正して再送信できます。
type PredictionError struct {
	Message string
	Err     error
}

func (e *PredictionError) Error() string {
	return e.Message
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

func predictionErrorf(cause error, format string, args ...interface{}) *PredictionError {
	return &PredictionError{Message: fmt.Sprintf(format, args...), Err: cause}
}

// PredictionService は入力のエンコード、特徴量ベクトルの組み立て、モデル呼び出しを行います。
type PredictionService struct {
	provider ModelProvider
	crops    []config.CropOption
	encoder  CropEncoder
	cache    *lru.Cache[models.PredictionInput, models.PredictionResult]
	logger   *zap.Logger

	resolveOnce sync.Once
	active      CropEncoder
}

// NewPredictionService は新しいPredictionServiceを生成します。
// cacheSizeが0の場合、予測結果のキャッシュは無効になります。
func NewPredictionService(provider ModelProvider, crops []config.CropOption, policy string, cacheSize int, logger *zap.Logger) (*PredictionService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	encoder, err := NewCropEncoder(policy, crops)
	if err != nil {
		return nil, err
	}

	s := &PredictionService{
		provider: provider,
		crops:    crops,
		encoder:  encoder,
		logger:   logger,
	}
	if cacheSize > 0 {
		cache, err := lru.New[models.PredictionInput, models.PredictionResult](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("prediction cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// ModelStatus reports whether the model is available.
func (s *PredictionService) ModelStatus() models.ModelStatus {
	model, err := s.provider.Load()
	if err != nil {
		return models.ModelStatus{Loaded: false, Error: err.Error()}
	}
	info := model.Info()
	return models.ModelStatus{Loaded: true, Info: &info}
}

// Available reports whether predictions can be attempted at all.
func (s *PredictionService) Available() bool {
	_, err := s.provider.Load()
	return err == nil
}

// Crops returns the crop labels with the codes of the encoder in use.
func (s *PredictionService) Crops() []models.CropEntry {
	if model, err := s.provider.Load(); err == nil {
		return s.encoderFor(model).Entries()
	}
	return s.encoder.Entries()
}

// encoderFor はモデルファイルにエンコーディング方式が記録されていればそれを優先します。
func (s *PredictionService) encoderFor(model Model) CropEncoder {
	s.resolveOnce.Do(func() {
		s.active = s.encoder
		policy := model.Info().CropEncoding
		if policy == "" || policy == s.encoder.Policy() {
			return
		}
		enc, err := NewCropEncoder(policy, s.crops)
		if err != nil {
			s.logger.Warn("artifact crop encoding ignored", zap.String("policy", policy), zap.Error(err))
			return
		}
		s.active = enc
	})
	return s.active
}

// ValidateInput checks the ranges the form enforces. Area must be positive so
// that the per-hectare yield is defined.
func ValidateInput(input models.PredictionInput) error {
	for name, v := range map[string]float64{
		"area":       input.Area,
		"rainfall":   input.Rainfall,
		"pesticides": input.Pesticides,
		"avg_temp":   input.AvgTemp,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return predictionErrorf(ErrInvalidInput, "%s must be a finite number", name)
		}
	}
	switch {
	case input.Area <= 0:
		return predictionErrorf(ErrInvalidInput, "area must be greater than 0 hectares, got %v", input.Area)
	case input.Year < models.MinYear || input.Year > models.MaxYear:
		return predictionErrorf(ErrInvalidInput, "year must be between %d and %d, got %d", models.MinYear, models.MaxYear, input.Year)
	case input.Rainfall < 0:
		return predictionErrorf(ErrInvalidInput, "rainfall must not be negative, got %v", input.Rainfall)
	case input.Pesticides < 0:
		return predictionErrorf(ErrInvalidInput, "pesticides must not be negative, got %v", input.Pesticides)
	case input.AvgTemp < models.MinAvgTemp || input.AvgTemp > models.MaxAvgTemp:
		return predictionErrorf(ErrInvalidInput, "average temperature must be between %.0f and %.0f, got %v", models.MinAvgTemp, models.MaxAvgTemp, input.AvgTemp)
	}
	return nil
}

// BuildFeatureVector assembles [area, cropEncoded, year, rainfall, pesticides, avgTemp].
func BuildFeatureVector(input models.PredictionInput, cropEncoded int) models.FeatureVector {
	var v models.FeatureVector
	v[models.FeatureArea] = input.Area
	v[models.FeatureCrop] = float64(cropEncoded)
	v[models.FeatureYear] = float64(input.Year)
	v[models.FeatureRainfall] = input.Rainfall
	v[models.FeaturePesticides] = input.Pesticides
	v[models.FeatureAvgTemp] = input.AvgTemp
	return v
}

// Predict runs encode → assemble → predict → derive for one submission.
// モデルが利用できない場合は特徴量ベクトルを組み立てずにErrArtifactMissingを返します。
// それ以外の失敗はすべて*PredictionErrorとして返し、パニックも回復します。
func (s *PredictionService) Predict(input models.PredictionInput) (*models.PredictionResult, error) {
	model, err := s.provider.Load()
	if err != nil {
		return nil, err
	}

	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	encoder := s.encoderFor(model)
	crop, err := encoder.Encode(input.CropType)
	if err != nil {
		return nil, predictionErrorf(ErrInvalidInput, "%v", err)
	}

	key := input
	key.CropType = crop.Label
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.logger.Debug("prediction cache hit", zap.String("crop", key.CropType), zap.Float64("area", key.Area))
			result := cached
			result.Cached = true
			return &result, nil
		}
	}

	vector := BuildFeatureVector(input, crop.Code)
	yield, err := s.invoke(model, vector)
	if err != nil {
		s.logger.Warn("prediction failed", zap.String("crop", key.CropType), zap.Error(err))
		return nil, err
	}

	perHectare := yield / input.Area
	if math.IsNaN(perHectare) || math.IsInf(perHectare, 0) {
		return nil, predictionErrorf(nil, "per-hectare yield is undefined for area %v", input.Area)
	}

	result := models.PredictionResult{
		YieldTonnes:     yield,
		YieldPerHectare: perHectare,
		CropType:        key.CropType,
		Area:            input.Area,
		CropEncoded:     crop.Code,
	}
	if s.cache != nil {
		s.cache.Add(key, result)
	}

	s.logger.Info("prediction completed",
		zap.String("crop", result.CropType),
		zap.Int("crop_encoded", crop.Code),
		zap.Float64("area", input.Area),
		zap.Float64("yield_tonnes", yield),
	)
	return &result, nil
}

// invoke はモデルを1行の入力で呼び出し、最初の出力値を返します。
func (s *PredictionService) invoke(model Model, vector models.FeatureVector) (yield float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = predictionErrorf(nil, "model panicked: %v", r)
		}
	}()

	out, err := model.Predict([][]float64{vector.Row()})
	if err != nil {
		return 0, predictionErrorf(err, "%v", err)
	}
	if len(out) == 0 {
		return 0, predictionErrorf(nil, "model returned no output")
	}
	if math.IsNaN(out[0]) || math.IsInf(out[0], 0) {
		return 0, predictionErrorf(nil, "model returned a non-finite value")
	}
	return out[0], nil
}
