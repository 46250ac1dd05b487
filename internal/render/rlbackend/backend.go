// Package rlbackend captures previews on the GPU through raylib. It needs
// an open raylib window and must be used from the thread that owns it.
package rlbackend

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"prefabpreview/internal/components"
	"prefabpreview/internal/engine"
	"prefabpreview/internal/preview"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var ErrNoTarget = errors.New("no active render texture")

// drawable is implemented by MeshRenderer and ModelRenderer.
type drawable interface {
	engine.Renderer
	Draw()
}

// Target wraps a render texture. Its depth attachment is the renderbuffer
// raylib allocates with the framebuffer.
type Target struct {
	rt       rl.RenderTexture2D
	released bool
}

func (t *Target) Size() (int, int) {
	return int(t.rt.Texture.Width), int(t.rt.Texture.Height)
}

func (t *Target) Texture() rl.Texture2D {
	return t.rt.Texture
}

type Backend struct {
	active *Target
	live   int
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) NewTarget(w, h, depthBits int) (preview.Target, error) {
	if depthBits > 24 {
		return nil, fmt.Errorf("depth buffer of %d bits is not supported", depthBits)
	}
	rt := rl.LoadRenderTexture(int32(w), int32(h))
	if rt.ID == 0 || rt.Texture.ID == 0 {
		return nil, fmt.Errorf("load render texture %dx%d failed", w, h)
	}
	b.live++
	return &Target{rt: rt}, nil
}

func (b *Backend) ReleaseTarget(t preview.Target) {
	target, ok := t.(*Target)
	if !ok || target == nil || target.released {
		return
	}
	if b.active == target {
		b.SetActiveTarget(nil)
	}
	rl.UnloadRenderTexture(target.rt)
	target.released = true
	b.live--
}

func (b *Backend) LiveTargets() int {
	return b.live
}

func (b *Backend) ActiveTarget() preview.Target {
	if b.active == nil {
		return nil
	}
	return b.active
}

// SetActiveTarget switches texture mode. Nil returns to the window framebuffer.
func (b *Backend) SetActiveTarget(t preview.Target) {
	target, _ := t.(*Target)
	if target == b.active {
		return
	}
	if b.active != nil {
		rl.EndTextureMode()
	}
	b.active = target
	if target != nil {
		rl.BeginTextureMode(target.rt)
		return
	}
	rl.Viewport(0, 0, int32(rl.GetRenderWidth()), int32(rl.GetRenderHeight()))
}

func (b *Backend) Render(cam *components.PreviewCamera, scene *engine.Scene) error {
	if b.active == nil {
		return ErrNoTarget
	}
	if cam == nil || cam.GetGameObject() == nil || !cam.Enabled {
		return errors.New("preview camera is not ready")
	}

	rl.ClearBackground(cam.Background)
	rl.BeginMode3D(cam.GetRaylibCamera())
	// BeginMode3D derives the aspect from the texture size; keep the camera's own volume
	rl.SetMatrixProjection(cam.Projection())

	for _, root := range scene.GameObjects {
		for _, d := range engine.GetComponentsInChildren[drawable](root, false) {
			if d.IsEnabled() {
				d.Draw()
			}
		}
	}

	rl.EndMode3D()
	return nil
}

func (b *Backend) ReadPixels(w, h int, layout preview.PixelLayout) (*image.NRGBA, error) {
	if b.active == nil {
		return nil, ErrNoTarget
	}
	tw, th := b.active.Size()
	if w > tw || h > th {
		return nil, fmt.Errorf("read %dx%d from %dx%d target", w, h, tw, th)
	}

	img := rl.LoadImageFromTexture(b.active.rt.Texture)
	if img == nil {
		return nil, errors.New("read render texture failed")
	}
	defer rl.UnloadImage(img)
	// render textures are stored bottom row first
	rl.ImageFlipVertical(img)

	colors := rl.LoadImageColors(img)
	defer rl.UnloadImageColors(colors)
	return toNRGBA(colors, tw, w, h, layout), nil
}

// toNRGBA copies the top-left w x h pixels of a stride-wide colour slice.
func toNRGBA(colors []color.RGBA, stride, w, h int, layout preview.PixelLayout) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := colors[y*stride+x]
			if layout == preview.LayoutRGB {
				c.A = 0xff
			}
			i := out.PixOffset(x, y)
			out.Pix[i] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = c.A
		}
	}
	return out
}

// Upload turns a capture result into a texture with the result's filter.
// The caller owns the texture.
func Upload(res *preview.Result) rl.Texture2D {
	img := rl.NewImageFromImage(res.Image)
	defer rl.UnloadImage(img)
	tex := rl.LoadTextureFromImage(img)
	filter := rl.FilterPoint
	if res.Filter == preview.FilterBilinear {
		filter = rl.FilterBilinear
	}
	rl.SetTextureFilter(tex, filter)
	return tex
}
