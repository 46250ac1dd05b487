package engine

import rl "github.com/gen2brain/raylib-go/raylib"

type Component interface {
	SetGameObject(g *GameObject)
	GetGameObject() *GameObject
}

// Renderer is implemented by components that put visible geometry in the world.
type Renderer interface {
	Component
	IsEnabled() bool
	// WorldBounds returns the axis-aligned box enclosing the geometry in world space.
	WorldBounds() (min, max rl.Vector3)
}

// Cloner is implemented by components that survive GameObject.Clone.
// CloneComponent returns a detached copy; the clone attaches it.
type Cloner interface {
	CloneComponent() Component
}

// CaptureObserver is notified around an offscreen capture of the object it
// is attached to.
type CaptureObserver interface {
	OnPreviewCapturing(target *GameObject)
	OnPreviewCaptured(target *GameObject)
}

// AddCaptureObserver attaches o to g. Observers are notified in attach order.
func (g *GameObject) AddCaptureObserver(o CaptureObserver) {
	if o == nil {
		return
	}
	g.observers = append(g.observers, o)
}

// CaptureObservers returns the observers on g and its active descendants.
func (g *GameObject) CaptureObservers() []CaptureObserver {
	var out []CaptureObserver
	g.Walk(func(obj *GameObject) bool {
		if !obj.Active {
			return false
		}
		out = append(out, obj.observers...)
		return true
	})
	return out
}

// BaseComponent provides default implementation for Component interface
type BaseComponent struct {
	gameObject *GameObject
}

func (b *BaseComponent) SetGameObject(g *GameObject) {
	b.gameObject = g
}

func (b *BaseComponent) GetGameObject() *GameObject {
	return b.gameObject
}
