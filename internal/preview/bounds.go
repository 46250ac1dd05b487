package preview

import (
	"prefabpreview/internal/engine"
	"prefabpreview/internal/geom"
)

// enabledRenderers lists renderers that are enabled and on active objects.
func enabledRenderers(target *engine.GameObject) []engine.Renderer {
	var out []engine.Renderer
	for _, r := range engine.GetComponentsInChildren[engine.Renderer](target, false) {
		if r != nil && r.IsEnabled() {
			out = append(out, r)
		}
	}
	return out
}

// CanCapture is true for a live target with at least one enabled renderer
// on an active object in its hierarchy.
func CanCapture(target *engine.GameObject) bool {
	if target == nil || target.Destroyed() {
		return false
	}
	return len(enabledRenderers(target)) > 0
}

// RendererBounds is the union of the world bounds of every enabled renderer
// under target. It is empty when nothing renders.
func RendererBounds(target *engine.GameObject) geom.AABB {
	b := geom.Empty()
	if target == nil {
		return b
	}
	for _, r := range enabledRenderers(target) {
		lo, hi := r.WorldBounds()
		b = b.Encapsulate(geom.AABB{Min: lo, Max: hi})
	}
	return b
}
