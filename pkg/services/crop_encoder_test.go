package services

import (
	"testing"

	config "crop-yield-api/configs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableEncoder(t *testing.T) {
	enc, err := NewCropEncoder(EncodingTable, defaultCrops())
	require.NoError(t, err)
	assert.Equal(t, EncodingTable, enc.Policy())

	testCases := []struct {
		label    string
		expected int
	}{
		{"Wheat", 0},
		{"Rice", 1},
		{"Maize", 2},
		{"Barley", 3},
		{"Soybeans", 4},
		{"Other", 5},
		{"  wheat ", 0},
		{"SOYBEANS", 4},
	}

	for _, tc := range testCases {
		entry, err := enc.Encode(tc.label)
		require.NoError(t, err, tc.label)
		assert.Equal(t, tc.expected, entry.Code, tc.label)
	}

	entry, _ := enc.Encode("soybeans")
	assert.Equal(t, "Soybeans", entry.Label)
}

func TestEncoderIsPureFunctionOfLabel(t *testing.T) {
	for _, policy := range []string{EncodingTable, EncodingHash} {
		enc, err := NewCropEncoder(policy, defaultCrops())
		require.NoError(t, err)

		first, err := enc.Encode("Wheat")
		require.NoError(t, err)
		for i := 0; i < 100; i++ {
			again, err := enc.Encode("Wheat")
			require.NoError(t, err)
			assert.Equal(t, first, again, policy)
		}
	}
}

func TestHashEncoder(t *testing.T) {
	enc, err := NewCropEncoder(EncodingHash, defaultCrops())
	require.NoError(t, err)

	entry, err := enc.Encode("wheat")
	require.NoError(t, err)
	assert.Equal(t, HashLabel("Wheat"), entry.Code)
	assert.GreaterOrEqual(t, entry.Code, 0)
	assert.Less(t, entry.Code, 1000)

	// FNV-1a はプロセスをまたいでも同じ値になる
	assert.Equal(t, HashLabel("Wheat"), HashLabel("Wheat"))
	assert.Len(t, enc.Entries(), 6)
}

func TestEncoderRejectsUnknownCrop(t *testing.T) {
	for _, policy := range []string{EncodingTable, EncodingHash} {
		enc, err := NewCropEncoder(policy, defaultCrops())
		require.NoError(t, err)

		_, err = enc.Encode("Cassava")
		assert.Error(t, err, policy)
	}
}

func TestNewCropEncoderErrors(t *testing.T) {
	_, err := NewCropEncoder("onehot", defaultCrops())
	assert.Error(t, err)

	_, err = NewCropEncoder(EncodingTable, []config.CropOption{})
	assert.Error(t, err)
}

func TestTableEncoderEntriesAreCopied(t *testing.T) {
	enc, err := NewCropEncoder(EncodingTable, defaultCrops())
	require.NoError(t, err)

	entries := enc.Entries()
	entries[0].Code = 99
	again := enc.Entries()
	assert.Equal(t, 0, again[0].Code)
}
