package components

import (
	"prefabpreview/internal/engine"
	"prefabpreview/internal/geom"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// ModelRenderer draws a loaded model. The model is shared with the asset
// cache, so clones reference the same GPU data and never unload it.
type ModelRenderer struct {
	engine.BaseComponent
	Model   rl.Model
	Path    string
	Color   rl.Color
	Enabled bool
	local   geom.AABB
}

func NewModelRenderer(model rl.Model, path string, color rl.Color) *ModelRenderer {
	box := rl.GetModelBoundingBox(model)
	return &ModelRenderer{
		Model:   model,
		Path:    path,
		Color:   color,
		Enabled: true,
		local:   geom.AABB{Min: box.Min, Max: box.Max},
	}
}

func (m *ModelRenderer) IsEnabled() bool {
	return m.Enabled
}

func (m *ModelRenderer) Tint() rl.Color {
	return m.Color
}

func (m *ModelRenderer) LocalBounds() geom.AABB {
	return m.local
}

func (m *ModelRenderer) WorldCorners() [8]rl.Vector3 {
	return worldCorners(m.GetGameObject(), m.local)
}

func (m *ModelRenderer) WorldBounds() (rl.Vector3, rl.Vector3) {
	if m.GetGameObject() == nil {
		return rl.Vector3{}, rl.Vector3{}
	}
	corners := m.WorldCorners()
	b := geom.FromPoints(corners[:]...)
	return b.Min, b.Max
}

func (m *ModelRenderer) CloneComponent() engine.Component {
	dup := *m
	dup.BaseComponent = engine.BaseComponent{}
	return &dup
}

func (m *ModelRenderer) Draw() {
	g := m.GetGameObject()
	if g == nil || !m.Enabled || !g.ActiveInHierarchy() {
		return
	}

	// Build scale matrix
	scale := g.WorldScale()
	scaleMatrix := rl.MatrixScale(scale.X, scale.Y, scale.Z)

	rotMatrix := engine.RotationMatrix(g.WorldRotation())

	pos := g.WorldPosition()
	transMatrix := rl.MatrixTranslate(pos.X, pos.Y, pos.Z)

	// Combine: scale -> rotate -> translate
	m.Model.Transform = rl.MatrixMultiply(rl.MatrixMultiply(scaleMatrix, rotMatrix), transMatrix)

	rl.DrawModel(m.Model, rl.Vector3Zero(), 1.0, m.Color)
}
