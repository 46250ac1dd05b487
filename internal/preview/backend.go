package preview

import (
	"image"

	"prefabpreview/internal/components"
	"prefabpreview/internal/engine"
)

// PreviewDepthBits is the depth precision requested for offscreen targets.
const PreviewDepthBits = 16

// PixelLayout picks the channels copied out of a target.
type PixelLayout int

const (
	LayoutRGBA PixelLayout = iota
	LayoutRGB  // alpha is forced opaque
)

// Target is an offscreen colour buffer with a depth channel.
type Target interface {
	Size() (w, h int)
}

// Backend is the render surface the engine drives. The engine calls it only
// from the thread that calls Capture and pumps the Scheduler.
type Backend interface {
	NewTarget(w, h, depthBits int) (Target, error)
	ReleaseTarget(t Target)

	// ActiveTarget is the current render target, nil meaning the default framebuffer.
	ActiveTarget() Target
	SetActiveTarget(t Target)

	// Render draws every active renderer in scene through cam into the active target.
	Render(cam *components.PreviewCamera, scene *engine.Scene) error

	// ReadPixels copies w x h pixels of the active target into a new image,
	// top row first.
	ReadPixels(w, h int, layout PixelLayout) (*image.NRGBA, error)
}
