package assets

import (
	"path/filepath"
	"testing"

	"prefabpreview/internal/preview"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModelMissingFile(t *testing.T) {
	m := NewManager(nil)
	_, err := m.LoadModel(filepath.Join(t.TempDir(), "crate.glb"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "load model")
	assert.Empty(t, m.models)
}

func TestThumbnailSkipsEmptyResults(t *testing.T) {
	uploads := 0
	m := NewManager(func(*preview.Result) rl.Texture2D {
		uploads++
		return rl.Texture2D{}
	})

	_, ok := m.Thumbnail(1, nil)
	assert.False(t, ok)
	_, ok = m.Thumbnail(1, &preview.Result{})
	assert.False(t, ok)
	assert.Equal(t, 0, uploads)
}
