package preview

import (
	"prefabpreview/internal/components"
	"prefabpreview/internal/engine"
	"prefabpreview/internal/geom"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	cameraNear     float32 = 0.01
	cameraDistance float32 = 2 // gap between the camera and the front face
	cameraDepthPad float32 = 4
)

// CameraSetup is the orthographic framing derived from content bounds.
type CameraSetup struct {
	Position   rl.Vector3
	Near       float32
	Far        float32
	HalfHeight float32
	Aspect     float32
	Clear      rl.Color
}

// FrameBounds places the camera in front of the bounds centre on +Z so it
// looks down -Z across the whole box.
func FrameBounds(b geom.AABB, bg Background) CameraSetup {
	ext := b.SafeExtents()
	size := b.SafeSize()
	center := b.Center()

	clear := bg.Color
	if bg.IsTransparent() {
		clear = rl.Color{}
	}

	return CameraSetup{
		Position:   rl.Vector3{X: center.X, Y: center.Y, Z: center.Z + ext.Z + cameraDistance},
		Near:       cameraNear,
		Far:        size.Z + cameraDepthPad,
		HalfHeight: ext.Y,
		Aspect:     ext.X / ext.Y,
		Clear:      clear,
	}
}

// newCameraObject builds the disabled temporary camera for a request.
func newCameraObject(setup CameraSetup) (*engine.GameObject, *components.PreviewCamera) {
	obj := engine.NewGameObject("Preview generator camera")
	obj.Transform.Position = setup.Position

	cam := components.NewPreviewCamera()
	cam.Near = setup.Near
	cam.Far = setup.Far
	cam.HalfHeight = setup.HalfHeight
	cam.Aspect = setup.Aspect
	cam.Background = setup.Clear
	cam.Enabled = false
	obj.AddComponent(cam)
	return obj, cam
}
