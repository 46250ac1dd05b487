package preview

import (
	"math"

	"prefabpreview/internal/geom"
)

// FallbackDimension replaces a non-positive size right before readback.
const FallbackDimension = 512

// ceilTolerance is the slack given to ceilings of scaled products: the
// Fit/Fill factor and the max-dimension clamp. It keeps 3000*(2048/3000) at
// 2048 instead of 2049. PixelsPerUnit sizes use an exact ceiling.
const ceilTolerance = 1e-6

// ImageSize derives output pixels from bounds. The policy runs first, then
// the result is scaled down to fit maxDim while keeping the chosen aspect,
// and finally each axis is floored to 1.
func ImageSize(bounds geom.AABB, s Sizing, maxDim int) (w, h int) {
	size := bounds.SafeSize()
	sx, sy := float64(size.X), float64(size.Y)

	switch s.Kind {
	case SizePixelsPerUnit:
		w = ceilExact(sx * float64(s.Density))
		h = ceilExact(sy * float64(s.Density))
	case SizeStretch:
		w, h = s.Width, s.Height
	case SizeFitWithinBox, SizeFillBox:
		fx := float64(s.Width) / sx
		fy := float64(s.Height) / sy
		factor := math.Min(fx, fy)
		if s.Kind == SizeFillBox {
			factor = math.Max(fx, fy)
		}
		w = ceilInt(sx * factor)
		h = ceilInt(sy * factor)
	default:
		w, h = 1, 1
	}

	if maxDim > 0 && (w > maxDim || h > maxDim) {
		factor := math.Min(float64(maxDim)/float64(w), float64(maxDim)/float64(h))
		w = ceilInt(float64(w) * factor)
		h = ceilInt(float64(h) * factor)
	}

	return max(w, 1), max(h, 1)
}

// readbackSize applies the last-resort fallback for non-positive sizes.
func readbackSize(w, h int) (int, int) {
	if w <= 0 {
		w = FallbackDimension
	}
	if h <= 0 {
		h = FallbackDimension
	}
	return w, h
}

// ceilInt rounds a scaled product up, ignoring overshoot below ceilTolerance.
func ceilInt(v float64) int {
	return ceilExact(v - ceilTolerance)
}

func ceilExact(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Ceil(v))
}
