package preview

import (
	"image"

	"prefabpreview/internal/geom"

	"github.com/gofrs/uuid/v5"
)

// Result is a finished capture. Image is Width x Height, top row first.
type Result struct {
	ID          uuid.UUID
	Image       *image.NRGBA
	Width       int
	Height      int
	Filter      FilterMode
	Transparent bool

	// Bounds are the staged content bounds the camera was framed on.
	Bounds geom.AABB
	Slot   int
}
