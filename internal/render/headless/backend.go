// Package headless is a software preview backend. It rasterizes the world
// boxes of renderers through the orthographic preview camera, which is
// enough to check framing, colour and transparency without a GPU.
package headless

import (
	"errors"
	"fmt"
	"image"
	"math"

	"prefabpreview/internal/components"
	"prefabpreview/internal/engine"
	"prefabpreview/internal/preview"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var (
	ErrTooLarge    = errors.New("target exceeds pixel budget")
	ErrDepthFormat = errors.New("unsupported depth format")
	ErrNoTarget    = errors.New("no active offscreen target")
	ErrForeign     = errors.New("target was not allocated by this backend")
)

// Solid is a renderer the rasterizer can draw as a tinted box.
type Solid interface {
	engine.Renderer
	WorldCorners() [8]rl.Vector3
	Tint() rl.Color
}

// Target is an RGBA framebuffer with a 16-bit depth buffer.
type Target struct {
	width, height int
	Color         []uint8
	Depth         []uint16
	released      bool
}

func (t *Target) Size() (int, int) {
	return t.width, t.height
}

func (t *Target) clear(c rl.Color) {
	for i := 0; i < len(t.Color); i += 4 {
		t.Color[i] = c.R
		t.Color[i+1] = c.G
		t.Color[i+2] = c.B
		t.Color[i+3] = c.A
	}
	for i := range t.Depth {
		t.Depth[i] = math.MaxUint16
	}
}

type Backend struct {
	maxPixels int
	active    *Target
	live      int
	allocated int
	renders   int
}

type Option func(*Backend)

// WithMaxPixels makes allocations above n pixels fail.
func WithMaxPixels(n int) Option {
	return func(b *Backend) {
		b.maxPixels = n
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) NewTarget(w, h, depthBits int) (preview.Target, error) {
	if depthBits != 16 {
		return nil, fmt.Errorf("%w: %d bits", ErrDepthFormat, depthBits)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", w, h)
	}
	if b.maxPixels > 0 && w*h > b.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d over %d", ErrTooLarge, w, h, b.maxPixels)
	}
	b.live++
	b.allocated++
	return &Target{
		width:  w,
		height: h,
		Color:  make([]uint8, w*h*4),
		Depth:  make([]uint16, w*h),
	}, nil
}

func (b *Backend) ReleaseTarget(t preview.Target) {
	target, ok := t.(*Target)
	if !ok || target == nil || target.released {
		return
	}
	target.released = true
	target.Color = nil
	target.Depth = nil
	b.live--
	if b.active == target {
		b.active = nil
	}
}

func (b *Backend) ActiveTarget() preview.Target {
	if b.active == nil {
		return nil
	}
	return b.active
}

func (b *Backend) SetActiveTarget(t preview.Target) {
	target, _ := t.(*Target)
	b.active = target
}

// LiveTargets is the number of allocated, unreleased targets.
func (b *Backend) LiveTargets() int {
	return b.live
}

// Allocations counts every target handed out.
func (b *Backend) Allocations() int {
	return b.allocated
}

// Renders counts completed Render calls.
func (b *Backend) Renders() int {
	return b.renders
}

func (b *Backend) Render(cam *components.PreviewCamera, scene *engine.Scene) error {
	t := b.active
	if t == nil || t.released {
		return ErrNoTarget
	}
	if cam == nil || cam.GetGameObject() == nil {
		return errors.New("preview camera is not attached")
	}
	if !cam.Enabled {
		return errors.New("preview camera is disabled")
	}

	t.clear(cam.Background)
	r := rasterizer{target: t, cam: cam}
	for _, root := range scene.GameObjects {
		for _, solid := range engine.GetComponentsInChildren[Solid](root, false) {
			if solid.IsEnabled() {
				r.drawBox(solid.WorldCorners(), solid.Tint())
			}
		}
	}
	b.renders++
	return nil
}

func (b *Backend) ReadPixels(w, h int, layout preview.PixelLayout) (*image.NRGBA, error) {
	t := b.active
	if t == nil || t.released {
		return nil, ErrNoTarget
	}
	if w > t.width || h > t.height {
		return nil, fmt.Errorf("read %dx%d from %dx%d target", w, h, t.width, t.height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := t.Color[y*t.width*4 : (y*t.width+w)*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+w*4]
		copy(dst, src)
		if layout == preview.LayoutRGB {
			for i := 3; i < len(dst); i += 4 {
				dst[i] = 0xff
			}
		}
	}
	return img, nil
}
