package preview

import (
	"errors"
	"fmt"

	"prefabpreview/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// DefaultMaxImageDimension bounds both axes of every preview.
const DefaultMaxImageDimension = 2048

// DefaultSolidColor is used when a solid background has no explicit colour.
var DefaultSolidColor = rl.NewColor(77, 77, 77, 255)

type BackgroundMode int

const (
	BackgroundTransparent BackgroundMode = iota
	BackgroundSolid
)

func (b BackgroundMode) String() string {
	if b == BackgroundSolid {
		return "solid"
	}
	return "transparent"
}

// Background selects the clear colour. Color is kept for transparent
// captures too, it is zeroed when the camera is built.
type Background struct {
	Mode  BackgroundMode
	Color rl.Color
}

func Transparent() Background {
	return Background{Mode: BackgroundTransparent, Color: DefaultSolidColor}
}

func SolidColor(c rl.Color) Background {
	return Background{Mode: BackgroundSolid, Color: c}
}

func (b Background) IsTransparent() bool {
	return b.Mode == BackgroundTransparent
}

type SizingKind int

const (
	SizePixelsPerUnit SizingKind = iota
	SizeFitWithinBox
	SizeFillBox
	SizeStretch
)

func (k SizingKind) String() string {
	switch k {
	case SizePixelsPerUnit:
		return "pixels-per-unit"
	case SizeFitWithinBox:
		return "fit"
	case SizeFillBox:
		return "fill"
	case SizeStretch:
		return "stretch"
	}
	return fmt.Sprintf("SizingKind(%d)", int(k))
}

// Sizing maps content bounds to output pixels. Density is used by
// SizePixelsPerUnit, Width and Height by the box policies.
type Sizing struct {
	Kind    SizingKind
	Density float32
	Width   int
	Height  int
}

func PixelsPerUnit(density float32) Sizing {
	return Sizing{Kind: SizePixelsPerUnit, Density: density}
}

func FitWithinBox(w, h int) Sizing {
	return Sizing{Kind: SizeFitWithinBox, Width: w, Height: h}
}

func FillBox(w, h int) Sizing {
	return Sizing{Kind: SizeFillBox, Width: w, Height: h}
}

func Stretch(w, h int) Sizing {
	return Sizing{Kind: SizeStretch, Width: w, Height: h}
}

func (s Sizing) String() string {
	if s.Kind == SizePixelsPerUnit {
		return fmt.Sprintf("%s(%g)", s.Kind, s.Density)
	}
	return fmt.Sprintf("%s(%dx%d)", s.Kind, s.Width, s.Height)
}

func (s Sizing) validate() error {
	switch s.Kind {
	case SizePixelsPerUnit:
		if s.Density <= 0 {
			return fmt.Errorf("pixels per unit must be positive, got %g", s.Density)
		}
	case SizeFitWithinBox, SizeFillBox, SizeStretch:
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("%s box must be positive, got %dx%d", s.Kind, s.Width, s.Height)
		}
	default:
		return fmt.Errorf("unknown sizing policy %d", int(s.Kind))
	}
	return nil
}

type FilterMode int

const (
	FilterPoint FilterMode = iota
	FilterBilinear
)

func (f FilterMode) String() string {
	if f == FilterBilinear {
		return "bilinear"
	}
	return "point"
}

type TimingKind int

const (
	TimingImmediate TimingKind = iota
	TimingEndOfFrame
	TimingAfterFrames
	TimingAfterSeconds
)

func (k TimingKind) String() string {
	switch k {
	case TimingImmediate:
		return "immediate"
	case TimingEndOfFrame:
		return "end-of-frame"
	case TimingAfterFrames:
		return "after-frames"
	case TimingAfterSeconds:
		return "after-seconds"
	}
	return fmt.Sprintf("TimingKind(%d)", int(k))
}

// Timing decides when the render runs relative to the request.
type Timing struct {
	Kind      TimingKind
	Frames    int
	Seconds   float64
	WallClock bool // count Seconds in real time instead of scaled frame time
}

func Immediate() Timing {
	return Timing{Kind: TimingImmediate}
}

func EndOfFrame() Timing {
	return Timing{Kind: TimingEndOfFrame}
}

func AfterFrames(n int) Timing {
	return Timing{Kind: TimingAfterFrames, Frames: n}
}

func AfterSeconds(seconds float64, wallClock bool) Timing {
	return Timing{Kind: TimingAfterSeconds, Seconds: seconds, WallClock: wallClock}
}

func (t Timing) Deferred() bool {
	return t.Kind != TimingImmediate
}

func (t Timing) validate() error {
	switch t.Kind {
	case TimingImmediate, TimingEndOfFrame, TimingAfterFrames:
	case TimingAfterSeconds:
		if t.Seconds < 0 {
			return fmt.Errorf("delay must not be negative, got %g", t.Seconds)
		}
	default:
		return fmt.Errorf("unknown timing policy %d", int(t.Kind))
	}
	return nil
}

// Config describes one capture request. Treat it as immutable once passed
// to Capture; use Clone and the With helpers to derive variants.
type Config struct {
	Background        Background
	Sizing            Sizing
	Filter            FilterMode
	Timing            Timing
	MaxImageDimension int

	// Isolated captures work on a deep clone of the target. Otherwise the
	// target itself is staged and moved back afterwards.
	Isolated bool

	// OnPreCapture runs on the staged object right before the render.
	OnPreCapture func(staged *engine.GameObject)
	// OnCaptured receives the result, or nil when nothing was captured.
	OnCaptured func(res *Result)
}

// DefaultConfig matches the stock generator: transparent, 32 pixels per
// unit, point filtering, immediate, isolated.
func DefaultConfig() *Config {
	return &Config{
		Background:        Transparent(),
		Sizing:            PixelsPerUnit(32),
		Filter:            FilterPoint,
		Timing:            Immediate(),
		MaxImageDimension: DefaultMaxImageDimension,
		Isolated:          true,
	}
}

// Clone returns a shallow copy; callbacks are shared.
func (c *Config) Clone() *Config {
	dup := *c
	return &dup
}

func (c *Config) WithCaptured(fn func(res *Result)) *Config {
	dup := c.Clone()
	dup.OnCaptured = fn
	return dup
}

func (c *Config) WithPreCapture(fn func(staged *engine.GameObject)) *Config {
	dup := c.Clone()
	dup.OnPreCapture = fn
	return dup
}

func (c *Config) WithTiming(t Timing) *Config {
	dup := c.Clone()
	dup.Timing = t
	return dup
}

func (c *Config) WithSizing(s Sizing) *Config {
	dup := c.Clone()
	dup.Sizing = s
	return dup
}

func (c *Config) Validate() error {
	var errs []error
	if err := c.Sizing.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Timing.validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxImageDimension <= 0 {
		errs = append(errs, fmt.Errorf("max image dimension must be positive, got %d", c.MaxImageDimension))
	}
	if c.Filter != FilterPoint && c.Filter != FilterBilinear {
		errs = append(errs, fmt.Errorf("unknown filter mode %d", int(c.Filter)))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *Config) notify(res *Result) {
	if c.OnCaptured != nil {
		c.OnCaptured(res)
	}
}
