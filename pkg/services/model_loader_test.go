package services

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelLoaderMissingArtifact(t *testing.T) {
	loader := NewModelLoader(filepath.Join(t.TempDir(), "trained_model.sav"), nil)

	model, err := loader.Load()
	assert.Nil(t, model)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArtifactMissing))
}

func TestModelLoaderCorruptArtifact(t *testing.T) {
	path := writeFile(t, "trained_model.sav", "\x80\x04\x95\x00 not a model")
	loader := NewModelLoader(path, nil)

	_, err := loader.Load()
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestModelLoaderLoadsOnce(t *testing.T) {
	path := writeFile(t, "trained_model.sav", constantLinearArtifact)
	loader := NewModelLoader(path, nil)

	reads := 0
	loader.readFile = func(p string) ([]byte, error) {
		reads++
		return []byte(constantLinearArtifact), nil
	}

	first, err := loader.Load()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		m, err := loader.Load()
		require.NoError(t, err)
		assert.Same(t, first, m)
	}

	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, loader.Attempts())
	assert.Equal(t, path, loader.Path())
}

func TestModelLoaderCachesFailure(t *testing.T) {
	loader := NewModelLoader(filepath.Join(t.TempDir(), "absent.sav"), nil)

	for i := 0; i < 5; i++ {
		_, err := loader.Load()
		assert.ErrorIs(t, err, ErrArtifactMissing)
	}
	assert.Equal(t, 1, loader.Attempts())
}

func TestModelLoaderConcurrentFirstUse(t *testing.T) {
	path := writeFile(t, "trained_model.sav", constantLinearArtifact)
	loader := NewModelLoader(path, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := loader.Load()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loader.Attempts())
}
