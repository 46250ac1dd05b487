package viewer

import (
	"prefabpreview/internal/preview"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var sizingModes = []string{"Fit", "Fill", "Stretch", "Pixels/unit"}

var timingModes = []string{"Immediate", "End of frame", "2 frames", "0.5 s"}

// captureConfig derives the browser config from base for the selected toggles.
// Box policies use the cell size, pixels per unit keeps base's density.
func captureConfig(base *preview.Config, sizing, timing int32, cell int) *preview.Config {
	cfg := base.Clone()
	cfg.OnCaptured = nil
	cfg.OnPreCapture = nil

	switch sizing {
	case 1:
		cfg.Sizing = preview.FillBox(cell, cell)
	case 2:
		cfg.Sizing = preview.Stretch(cell, cell)
	case 3:
		density := base.Sizing.Density
		if base.Sizing.Kind != preview.SizePixelsPerUnit || density <= 0 {
			density = 32
		}
		cfg.Sizing = preview.PixelsPerUnit(density)
	default:
		cfg.Sizing = preview.FitWithinBox(cell, cell)
	}

	switch timing {
	case 1:
		cfg.Timing = preview.EndOfFrame()
	case 2:
		cfg.Timing = preview.AfterFrames(2)
	case 3:
		cfg.Timing = preview.AfterSeconds(0.5, true)
	default:
		cfg.Timing = preview.Immediate()
	}
	return cfg
}

// gridColumns is how many cells of width item fit in width with gap spacing.
func gridColumns(width, item, gap int32) int32 {
	cols := (width - gap) / (item + gap)
	if cols < 1 {
		cols = 1
	}
	return cols
}

// cellRect places cell i of a grid that starts at origin.
func cellRect(i int, cols int32, origin rl.Vector2, item, gap int32, scroll int32) rl.Rectangle {
	col := int32(i) % cols
	row := int32(i) / cols
	return rl.Rectangle{
		X:      origin.X + float32(col*(item+gap)),
		Y:      origin.Y + float32(row*(item+gap)-scroll),
		Width:  float32(item),
		Height: float32(item),
	}
}

// fitRect centres a w x h image inside cell, scaled down to fit.
func fitRect(w, h int, cell rl.Rectangle) rl.Rectangle {
	if w <= 0 || h <= 0 {
		return rl.Rectangle{X: cell.X, Y: cell.Y}
	}
	scale := min(cell.Width/float32(w), cell.Height/float32(h), 1)
	dw, dh := float32(w)*scale, float32(h)*scale
	return rl.Rectangle{
		X:      cell.X + (cell.Width-dw)/2,
		Y:      cell.Y + (cell.Height-dh)/2,
		Width:  dw,
		Height: dh,
	}
}
