// Package assets caches GPU resources loaded by the viewer: models named by
// prefabs and the textures uploaded for preview thumbnails.
package assets

import (
	"fmt"
	"os"

	"prefabpreview/internal/preview"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Uploader turns a capture into a texture.
type Uploader func(res *preview.Result) rl.Texture2D

type Manager struct {
	models   map[string]rl.Model
	textures map[uint64]thumbnail
	upload   Uploader
}

type thumbnail struct {
	result  *preview.Result
	texture rl.Texture2D
}

func NewManager(upload Uploader) *Manager {
	return &Manager{
		models:   make(map[string]rl.Model),
		textures: make(map[uint64]thumbnail),
		upload:   upload,
	}
}

// LoadModel loads path once and shares it with every renderer that names it.
func (m *Manager) LoadModel(path string) (rl.Model, error) {
	if model, exists := m.models[path]; exists {
		return model, nil
	}
	if _, err := os.Stat(path); err != nil {
		return rl.Model{}, fmt.Errorf("load model: %w", err)
	}

	model := rl.LoadModel(path)
	if model.MeshCount == 0 {
		return rl.Model{}, fmt.Errorf("load model %s: no meshes", path)
	}
	m.models[path] = model
	return model, nil
}

// Thumbnail returns the texture for the preview of object uid, uploading it
// the first time. A new result for the same object replaces the old texture.
func (m *Manager) Thumbnail(uid uint64, res *preview.Result) (rl.Texture2D, bool) {
	if res == nil || res.Image == nil {
		return rl.Texture2D{}, false
	}
	if th, exists := m.textures[uid]; exists {
		if th.result == res {
			return th.texture, true
		}
		rl.UnloadTexture(th.texture)
	}
	tex := m.upload(res)
	m.textures[uid] = thumbnail{result: res, texture: tex}
	return tex, true
}

// DropThumbnails unloads every thumbnail texture; models are kept.
func (m *Manager) DropThumbnails() {
	for _, th := range m.textures {
		rl.UnloadTexture(th.texture)
	}
	m.textures = make(map[uint64]thumbnail)
}

func (m *Manager) Unload() {
	for _, model := range m.models {
		rl.UnloadModel(model)
	}
	m.DropThumbnails()
	m.models = make(map[string]rl.Model)
}
