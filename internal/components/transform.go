package components

import (
	"prefabpreview/internal/engine"
	"prefabpreview/internal/geom"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// worldCorners maps the corners of a local-space box through g's world
// transform: scale, then rotate, then translate.
func worldCorners(g *engine.GameObject, local geom.AABB) [8]rl.Vector3 {
	corners := local.Corners()
	scale := g.WorldScale()
	rot := engine.RotationMatrix(g.WorldRotation())
	pos := g.WorldPosition()
	for i, c := range corners {
		c = rl.Vector3{X: c.X * scale.X, Y: c.Y * scale.Y, Z: c.Z * scale.Z}
		corners[i] = rl.Vector3Add(pos, rl.Vector3Transform(c, rot))
	}
	return corners
}

// pushTransform loads g's world transform onto the rlgl matrix stack.
// Callers must pair it with rl.PopMatrix.
func pushTransform(g *engine.GameObject) {
	pos := g.WorldPosition()
	rot := g.WorldRotation()
	scale := g.WorldScale()

	rl.PushMatrix()
	rl.Translatef(pos.X, pos.Y, pos.Z)
	// rlgl applies the most recent call first, so Z is pushed before X
	rl.Rotatef(rot.Z, 0, 0, 1)
	rl.Rotatef(rot.Y, 0, 1, 0)
	rl.Rotatef(rot.X, 1, 0, 0)
	rl.Scalef(scale.X, scale.Y, scale.Z)
}
