package services

import (
	"fmt"
	"hash/fnv"
	"strings"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// エンコーディング方式
const (
	EncodingTable = "table"
	EncodingHash  = "hash"
)

// hashModulus は旧来のハッシュ方式で使う剰余です。
const hashModulus = 1000

// CropEncoder maps a crop label to the numeric value placed in the feature vector.
// 実装はラベルの純粋関数であり、同じラベルには常に同じ値を返します。
type CropEncoder interface {
	// Encode は正規化したラベルと数値コードを返します。
	Encode(label string) (models.CropEntry, error)
	Policy() string
	Entries() []models.CropEntry
}

// NormalizeCropLabel trims the label and title-cases it so "wheat" matches "Wheat".
func NormalizeCropLabel(label string) string {
	// cases.Caser はゴルーチン間で共有できないため、呼び出しごとに生成する
	return cases.Title(language.English).String(strings.TrimSpace(label))
}

// NewCropEncoder は指定された方式のエンコーダーを生成します。
func NewCropEncoder(policy string, crops []config.CropOption) (CropEncoder, error) {
	if len(crops) == 0 {
		return nil, fmt.Errorf("crop encoder: no crops configured")
	}
	switch policy {
	case EncodingTable, "":
		return newTableEncoder(crops), nil
	case EncodingHash:
		return newHashEncoder(crops), nil
	default:
		return nil, fmt.Errorf("crop encoder: unknown policy %q", policy)
	}
}

// TableEncoder uses an explicit label→code table.
type TableEncoder struct {
	codes   map[string]models.CropEntry
	entries []models.CropEntry
}

func newTableEncoder(crops []config.CropOption) *TableEncoder {
	enc := &TableEncoder{codes: make(map[string]models.CropEntry, len(crops))}
	for _, crop := range crops {
		entry := models.CropEntry{Label: crop.Label, Code: crop.Code}
		enc.codes[NormalizeCropLabel(crop.Label)] = entry
		enc.entries = append(enc.entries, entry)
	}
	return enc
}

func (e *TableEncoder) Encode(label string) (models.CropEntry, error) {
	entry, ok := e.codes[NormalizeCropLabel(label)]
	if !ok {
		return models.CropEntry{}, fmt.Errorf("unknown crop type %q", label)
	}
	return entry, nil
}

func (e *TableEncoder) Policy() string { return EncodingTable }

func (e *TableEncoder) Entries() []models.CropEntry {
	out := make([]models.CropEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

// HashEncoder reproduces the legacy "hash(label) % 1000" encoding with FNV-1a,
// so values are stable across restarts.
type HashEncoder struct {
	labels map[string]string
	order  []string
}

func newHashEncoder(crops []config.CropOption) *HashEncoder {
	enc := &HashEncoder{labels: make(map[string]string, len(crops))}
	for _, crop := range crops {
		enc.labels[NormalizeCropLabel(crop.Label)] = crop.Label
		enc.order = append(enc.order, crop.Label)
	}
	return enc
}

// HashLabel returns FNV-1a(label) mod 1000.
func HashLabel(label string) int {
	h := fnv.New32a()
	h.Write([]byte(label))
	return int(h.Sum32() % hashModulus)
}

func (e *HashEncoder) Encode(label string) (models.CropEntry, error) {
	canonical, ok := e.labels[NormalizeCropLabel(label)]
	if !ok {
		return models.CropEntry{}, fmt.Errorf("unknown crop type %q", label)
	}
	return models.CropEntry{Label: canonical, Code: HashLabel(canonical)}, nil
}

func (e *HashEncoder) Policy() string { return EncodingHash }

func (e *HashEncoder) Entries() []models.CropEntry {
	out := make([]models.CropEntry, 0, len(e.order))
	for _, label := range e.order {
		out = append(out, models.CropEntry{Label: label, Code: HashLabel(label)})
	}
	return out
}
