package components

import (
	"prefabpreview/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// PreviewCamera is an orthographic camera that looks down -Z from its
// object's world position. It only renders while Enabled.
type PreviewCamera struct {
	engine.BaseComponent
	Near       float32
	Far        float32
	HalfHeight float32 // orthographic size
	Aspect     float32 // width / height of the view volume
	Background rl.Color
	Enabled    bool
}

func NewPreviewCamera() *PreviewCamera {
	return &PreviewCamera{
		Near:       0.01,
		Far:        1000.0,
		HalfHeight: 1,
		Aspect:     1,
	}
}

// Forward is the view direction.
func (c *PreviewCamera) Forward() rl.Vector3 {
	return rl.Vector3{Z: -1}
}

func (c *PreviewCamera) HalfWidth() float32 {
	return c.HalfHeight * c.Aspect
}

func (c *PreviewCamera) GetRaylibCamera() rl.Camera3D {
	g := c.GetGameObject()
	if g == nil {
		return rl.Camera3D{}
	}
	eye := g.WorldPosition()
	return rl.Camera3D{
		Position:   eye,
		Target:     rl.Vector3Add(eye, c.Forward()),
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       c.HalfHeight * 2,
		Projection: rl.CameraOrthographic,
	}
}

// Projection is the ortho matrix for the camera's own aspect. It is set
// explicitly because BeginMode3D derives aspect from the framebuffer.
func (c *PreviewCamera) Projection() rl.Matrix {
	hw := c.HalfWidth()
	return rl.MatrixOrtho(-hw, hw, -c.HalfHeight, c.HalfHeight, c.Near, c.Far)
}

// WorldToView maps a world point into camera space, where +X is right, +Y is
// up and depth grows along Forward.
func (c *PreviewCamera) WorldToView(p rl.Vector3) (x, y, depth float32) {
	eye := c.GetGameObject().WorldPosition()
	d := rl.Vector3Subtract(p, eye)
	return d.X, d.Y, -d.Z
}
