package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"crop-yield-api/pkg/models"

	"gopkg.in/yaml.v3"
)

// Model は読み込み済みの回帰モデルです。読み込み後は変更されないため、
// 複数のリクエストから同時に利用できます。
type Model interface {
	// Predict は行ごとに1つの予測値を返します。
	Predict(rows [][]float64) ([]float64, error)
	Info() models.ModelInfo
}

// モデル種別
const (
	ModelTypeLinear       = "linear"
	ModelTypeTreeEnsemble = "tree_ensemble"
)

// modelArtifact はモデルファイル(JSON/YAML)の構造を定義します。
type modelArtifact struct {
	Type         string   `json:"type" yaml:"type"`
	Name         string   `json:"name" yaml:"name"`
	Version      string   `json:"version" yaml:"version"`
	FeatureNames []string `json:"feature_names" yaml:"feature_names"`
	CropEncoding string   `json:"crop_encoding" yaml:"crop_encoding"`
	TrainedAt    string   `json:"trained_at" yaml:"trained_at"`

	// linear
	Intercept    float64   `json:"intercept" yaml:"intercept"`
	Coefficients []float64 `json:"coefficients" yaml:"coefficients"`

	// tree_ensemble
	BaseScore   float64        `json:"base_score" yaml:"base_score"`
	Aggregation string         `json:"aggregation" yaml:"aggregation"`
	Trees       []treeArtifact `json:"trees" yaml:"trees"`
}

type treeArtifact struct {
	Nodes []TreeNode `json:"nodes" yaml:"nodes"`
}

// TreeNode is one node of a flattened regression tree.
type TreeNode struct {
	Feature   int     `json:"feature" yaml:"feature"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Left      int     `json:"left" yaml:"left"`
	Right     int     `json:"right" yaml:"right"`
	Value     float64 `json:"value" yaml:"value"`
	Leaf      bool    `json:"leaf" yaml:"leaf"`
}

// DecodeModel はモデルファイルの内容をデコードします。
// 拡張子が .yaml / .yml の場合はYAML、それ以外はJSONとして扱います。
func DecodeModel(path string, data []byte) (Model, error) {
	var art modelArtifact
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &art); err != nil {
			return nil, fmt.Errorf("decode yaml artifact: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &art); err != nil {
			return nil, fmt.Errorf("decode json artifact: %w", err)
		}
	}

	if len(art.FeatureNames) == 0 {
		art.FeatureNames = models.FeatureNames[:]
	}
	if len(art.FeatureNames) != models.NumFeatures {
		return nil, fmt.Errorf("artifact declares %d features, expected %d", len(art.FeatureNames), models.NumFeatures)
	}

	info := models.ModelInfo{
		Name:         art.Name,
		Type:         art.Type,
		Version:      art.Version,
		FeatureNames: art.FeatureNames,
		CropEncoding: art.CropEncoding,
		TrainedAt:    art.TrainedAt,
		Path:         path,
	}
	if info.Name == "" {
		info.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	switch art.Type {
	case ModelTypeLinear:
		return newLinearModel(info, art.Intercept, art.Coefficients)
	case ModelTypeTreeEnsemble:
		return newTreeEnsemble(info, art.BaseScore, art.Aggregation, art.Trees)
	case "":
		return nil, errors.New("artifact has no model type")
	default:
		return nil, fmt.Errorf("unsupported model type %q", art.Type)
	}
}

// checkShape は入力行の列数を検証します。
func checkShape(rows [][]float64, want int) error {
	if len(rows) == 0 {
		return errors.New("no input rows")
	}
	for i, row := range rows {
		if len(row) != want {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), want)
		}
	}
	return nil
}

// LinearModel computes intercept + Σ coef_i * x_i.
type LinearModel struct {
	info         models.ModelInfo
	intercept    float64
	coefficients []float64
}

func newLinearModel(info models.ModelInfo, intercept float64, coefficients []float64) (*LinearModel, error) {
	if len(coefficients) != models.NumFeatures {
		return nil, fmt.Errorf("linear model has %d coefficients, expected %d", len(coefficients), models.NumFeatures)
	}
	for i, c := range coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	coef := make([]float64, len(coefficients))
	copy(coef, coefficients)
	return &LinearModel{info: info, intercept: intercept, coefficients: coef}, nil
}

func (m *LinearModel) Predict(rows [][]float64) ([]float64, error) {
	if err := checkShape(rows, len(m.coefficients)); err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		sum := m.intercept
		for j, x := range row {
			sum += m.coefficients[j] * x
		}
		out[i] = sum
	}
	return out, nil
}

func (m *LinearModel) Info() models.ModelInfo {
	return m.info
}

// TreeEnsemble is a set of flattened regression trees.
// aggregation "sum" は勾配ブースティング、"mean" はランダムフォレスト相当です。
type TreeEnsemble struct {
	info        models.ModelInfo
	baseScore   float64
	aggregation string
	trees       [][]TreeNode
}

func newTreeEnsemble(info models.ModelInfo, baseScore float64, aggregation string, trees []treeArtifact) (*TreeEnsemble, error) {
	if len(trees) == 0 {
		return nil, errors.New("tree ensemble has no trees")
	}
	switch aggregation {
	case "":
		aggregation = "mean"
	case "mean", "sum":
	default:
		return nil, fmt.Errorf("unsupported aggregation %q", aggregation)
	}

	flat := make([][]TreeNode, 0, len(trees))
	for t, tree := range trees {
		if err := validateTree(tree.Nodes); err != nil {
			return nil, fmt.Errorf("tree %d: %w", t, err)
		}
		flat = append(flat, tree.Nodes)
	}
	return &TreeEnsemble{info: info, baseScore: baseScore, aggregation: aggregation, trees: flat}, nil
}

func validateTree(nodes []TreeNode) error {
	if len(nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, node := range nodes {
		if node.Leaf {
			continue
		}
		if node.Feature < 0 || node.Feature >= models.NumFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.Feature)
		}
		if node.Left <= i || node.Left >= len(nodes) || node.Right <= i || node.Right >= len(nodes) {
			return fmt.Errorf("node %d: invalid child index", i)
		}
	}
	return nil
}

// walk は1本の木を辿って葉の値を返します。子ノードは常に親より後ろにあるため必ず終了します。
func walk(nodes []TreeNode, row []float64) float64 {
	idx := 0
	for {
		node := nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if row[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

func (m *TreeEnsemble) Predict(rows [][]float64) ([]float64, error) {
	if err := checkShape(rows, models.NumFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		var sum float64
		for _, tree := range m.trees {
			sum += walk(tree, row)
		}
		if m.aggregation == "mean" {
			sum /= float64(len(m.trees))
		}
		out[i] = m.baseScore + sum
	}
	return out, nil
}

func (m *TreeEnsemble) Info() models.ModelInfo {
	return m.info
}
