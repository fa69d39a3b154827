package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/models"
	"crop-yield-api/pkg/services"

	"github.com/joho/godotenv"
)

// model_check はモデルファイルを読み込み、サンプル入力で予測を1回実行する確認用ツールです。
func main() {
	_ = godotenv.Load()
	cfg := config.LoadConfig()

	modelPath := flag.String("model", cfg.ModelPath, "path to the model artifact")
	crop := flag.String("crop", "Wheat", "crop type")
	area := flag.Float64("area", 100, "area in hectares")
	year := flag.Int("year", 2023, "year")
	rainfall := flag.Float64("rainfall", 500, "average rainfall (mm/year)")
	pesticides := flag.Float64("pesticides", 10, "pesticides (tonnes)")
	avgTemp := flag.Float64("avg-temp", 25, "average temperature (°C)")
	flag.Parse()

	fmt.Println("=== モデル確認 ===")

	ui, err := config.LoadUIConfig(cfg.UIConfigPath)
	if err != nil {
		log.Fatalf("UI設定の読み込みに失敗: %v", err)
	}

	loader := services.NewModelLoader(*modelPath, nil)
	predictor, err := services.NewPredictionService(loader, ui.Crops, cfg.CropEncoding, 0, nil)
	if err != nil {
		log.Fatalf("初期化エラー: %v", err)
	}

	status := predictor.ModelStatus()
	if !status.Loaded {
		fmt.Println(services.FormatError(ui, *modelPath, services.ErrArtifactMissing).Error)
		fmt.Printf("詳細: %s\n", status.Error)
		os.Exit(1)
	}
	fmt.Printf("モデル: %s (%s)\n", status.Info.Name, status.Info.Type)
	fmt.Printf("特徴量: %v\n", status.Info.FeatureNames)

	result, err := predictor.Predict(models.PredictionInput{
		Area:       *area,
		CropType:   *crop,
		Year:       *year,
		Rainfall:   *rainfall,
		Pesticides: *pesticides,
		AvgTemp:    *avgTemp,
	})
	if err != nil {
		outcome := services.FormatError(ui, *modelPath, err)
		fmt.Println(outcome.Error)
		fmt.Println(outcome.Hint)
		os.Exit(1)
	}

	outcome := services.FormatResult(ui, result)
	fmt.Println(outcome.Headline)
	for _, line := range outcome.Summary {
		fmt.Println(line)
	}
}
