package components

import (
	"prefabpreview/internal/engine"
	"prefabpreview/internal/geom"

	rl "github.com/gen2brain/raylib-go/raylib"
)

type MeshType int

const (
	MeshCube MeshType = iota
	MeshSphere
	MeshPlane
)

func (m MeshType) String() string {
	switch m {
	case MeshCube:
		return "cube"
	case MeshSphere:
		return "sphere"
	case MeshPlane:
		return "plane"
	}
	return "unknown"
}

// MeshRenderer draws a primitive centred on its object plus Offset.
// Size is the full box for cubes, X is the radius for spheres, and X/Z span planes.
type MeshRenderer struct {
	engine.BaseComponent
	MeshType MeshType
	Color    rl.Color
	Size     rl.Vector3
	Offset   rl.Vector3
	Enabled  bool
}

func NewMeshRenderer(meshType MeshType, color rl.Color, size rl.Vector3) *MeshRenderer {
	return &MeshRenderer{
		MeshType: meshType,
		Color:    color,
		Size:     size,
		Enabled:  true,
	}
}

func (m *MeshRenderer) IsEnabled() bool {
	return m.Enabled
}

func (m *MeshRenderer) Tint() rl.Color {
	return m.Color
}

// LocalBounds is the primitive's box before the object transform.
func (m *MeshRenderer) LocalBounds() geom.AABB {
	var size rl.Vector3
	switch m.MeshType {
	case MeshSphere:
		d := m.Size.X * 2
		size = rl.Vector3{X: d, Y: d, Z: d}
	case MeshPlane:
		size = rl.Vector3{X: m.Size.X, Z: m.Size.Z}
	default:
		size = m.Size
	}
	return geom.NewAABBFromCenter(m.Offset, size)
}

// WorldCorners returns the transformed corners of LocalBounds.
func (m *MeshRenderer) WorldCorners() [8]rl.Vector3 {
	return worldCorners(m.GetGameObject(), m.LocalBounds())
}

func (m *MeshRenderer) WorldBounds() (rl.Vector3, rl.Vector3) {
	if m.GetGameObject() == nil {
		return rl.Vector3{}, rl.Vector3{}
	}
	corners := m.WorldCorners()
	b := geom.FromPoints(corners[:]...)
	return b.Min, b.Max
}

func (m *MeshRenderer) CloneComponent() engine.Component {
	dup := *m
	dup.BaseComponent = engine.BaseComponent{}
	return &dup
}

func (m *MeshRenderer) Draw() {
	g := m.GetGameObject()
	if g == nil || !m.Enabled || !g.ActiveInHierarchy() {
		return
	}

	pushTransform(g)
	defer rl.PopMatrix()

	switch m.MeshType {
	case MeshCube:
		rl.DrawCubeV(m.Offset, m.Size, m.Color)
	case MeshSphere:
		rl.DrawSphere(m.Offset, m.Size.X, m.Color)
	case MeshPlane:
		rl.DrawPlane(m.Offset, rl.Vector2{X: m.Size.X, Y: m.Size.Z}, m.Color)
	}
}
