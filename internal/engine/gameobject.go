package engine

import (
	"math"
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var nextUID atomic.Uint64

type Transform struct {
	Position rl.Vector3
	Rotation rl.Vector3 // Euler angles in degrees
	Scale    rl.Vector3
}

type GameObject struct {
	UID        uint64
	Name       string
	Tags       []string
	Transform  Transform
	Active     bool
	Scene      *Scene
	Parent     *GameObject
	Children   []*GameObject
	components []Component
	observers  []CaptureObserver
	destroyed  bool
}

func NewGameObject(name string) *GameObject {
	return &GameObject{
		UID:    nextUID.Add(1),
		Name:   name,
		Active: true,
		Transform: Transform{
			Position: rl.Vector3{},
			Rotation: rl.Vector3{},
			Scale:    rl.Vector3{X: 1, Y: 1, Z: 1},
		},
		components: make([]Component, 0),
		Children:   make([]*GameObject, 0),
	}
}

func (g *GameObject) AddComponent(c Component) {
	c.SetGameObject(g)
	g.components = append(g.components, c)
}

// GetComponent returns the first component of type T on g.
func GetComponent[T Component](g *GameObject) T {
	var zero T
	for _, c := range g.components {
		if typed, ok := c.(T); ok {
			return typed
		}
	}
	return zero
}

// GetComponentsInChildren collects every component of type T on g and its
// descendants, depth first. Inactive objects are skipped unless includeInactive.
func GetComponentsInChildren[T any](g *GameObject, includeInactive bool) []T {
	var out []T
	g.Walk(func(obj *GameObject) bool {
		if !obj.Active && !includeInactive {
			return false
		}
		for _, c := range obj.components {
			if typed, ok := c.(T); ok {
				out = append(out, typed)
			}
		}
		return true
	})
	return out
}

func (g *GameObject) Components() []Component {
	return g.components
}

func (g *GameObject) HasTag(tag string) bool {
	for _, t := range g.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Destroyed reports whether the object was removed through Scene.Destroy.
func (g *GameObject) Destroyed() bool {
	return g == nil || g.destroyed
}

func (g *GameObject) AddChild(child *GameObject) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = g
	g.Children = append(g.Children, child)
	if g.Scene != nil {
		g.Scene.register(child)
	}
}

func (g *GameObject) RemoveChild(child *GameObject) {
	for i, c := range g.Children {
		if c == child {
			g.Children = append(g.Children[:i], g.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// Walk visits g and its descendants depth first. Returning false from fn
// skips the children of the visited object.
func (g *GameObject) Walk(fn func(obj *GameObject) bool) {
	if !fn(g) {
		return
	}
	for _, c := range g.Children {
		c.Walk(fn)
	}
}

// ActiveInHierarchy is true when g and every ancestor are active.
func (g *GameObject) ActiveInHierarchy() bool {
	for obj := g; obj != nil; obj = obj.Parent {
		if !obj.Active {
			return false
		}
	}
	return true
}

// Clone deep-copies g and its children. Components implementing Cloner are
// duplicated, others are dropped. Capture observers that are components of
// the source hierarchy are remapped onto their copies; external observers are
// shared. The clone has no parent and no scene.
func (g *GameObject) Clone() *GameObject {
	remap := make(map[Component]Component)
	clone := g.cloneTree(remap)
	clone.Walk(func(obj *GameObject) bool {
		for i, o := range obj.observers {
			if c, ok := o.(Component); ok {
				if mapped, ok := remap[c]; ok {
					if mo, ok := mapped.(CaptureObserver); ok {
						obj.observers[i] = mo
					}
				}
			}
		}
		return true
	})
	return clone
}

func (g *GameObject) cloneTree(remap map[Component]Component) *GameObject {
	c := NewGameObject(g.Name)
	c.Tags = append([]string(nil), g.Tags...)
	c.Transform = g.Transform
	c.Active = g.Active
	c.observers = append([]CaptureObserver(nil), g.observers...)

	for _, comp := range g.components {
		cl, ok := comp.(Cloner)
		if !ok {
			continue
		}
		dup := cl.CloneComponent()
		c.AddComponent(dup)
		remap[comp] = dup
	}

	for _, child := range g.Children {
		c.AddChild(child.cloneTree(remap))
	}
	return c
}

func (g *GameObject) WorldPosition() rl.Vector3 {
	if g.Parent == nil {
		return g.Transform.Position
	}
	parentPos := g.Parent.WorldPosition()
	parentScale := g.Parent.WorldScale()

	// Scale local position by parent's world scale
	scaled := rl.Vector3{
		X: g.Transform.Position.X * parentScale.X,
		Y: g.Transform.Position.Y * parentScale.Y,
		Z: g.Transform.Position.Z * parentScale.Z,
	}

	rotated := rl.Vector3Transform(scaled, RotationMatrix(g.Parent.WorldRotation()))
	return rl.Vector3Add(parentPos, rotated)
}

// SetWorldPosition moves g so its world position becomes p.
func (g *GameObject) SetWorldPosition(p rl.Vector3) {
	if g.Parent == nil {
		g.Transform.Position = p
		return
	}
	delta := rl.Vector3Subtract(p, g.WorldPosition())

	// Undo the parent rotation (orthonormal, so the transpose inverts it), then the scale.
	inv := rl.MatrixTranspose(RotationMatrix(g.Parent.WorldRotation()))
	local := rl.Vector3Transform(delta, inv)
	ps := g.Parent.WorldScale()
	if ps.X != 0 {
		local.X /= ps.X
	}
	if ps.Y != 0 {
		local.Y /= ps.Y
	}
	if ps.Z != 0 {
		local.Z /= ps.Z
	}
	g.Transform.Position = rl.Vector3Add(g.Transform.Position, local)
}

func (g *GameObject) WorldRotation() rl.Vector3 {
	if g.Parent == nil {
		return g.Transform.Rotation
	}
	return rl.Vector3Add(g.Parent.WorldRotation(), g.Transform.Rotation)
}

func (g *GameObject) WorldScale() rl.Vector3 {
	if g.Parent == nil {
		return g.Transform.Scale
	}
	ps := g.Parent.WorldScale()
	return rl.Vector3{
		X: ps.X * g.Transform.Scale.X,
		Y: ps.Y * g.Transform.Scale.Y,
		Z: ps.Z * g.Transform.Scale.Z,
	}
}

// RotationMatrix builds the X then Y then Z rotation used for every transform
// in the engine from Euler angles in degrees.
func RotationMatrix(euler rl.Vector3) rl.Matrix {
	rx := float64(euler.X) * math.Pi / 180
	ry := float64(euler.Y) * math.Pi / 180
	rz := float64(euler.Z) * math.Pi / 180
	rotX := rl.MatrixRotateX(float32(rx))
	rotY := rl.MatrixRotateY(float32(ry))
	rotZ := rl.MatrixRotateZ(float32(rz))
	return rl.MatrixMultiply(rl.MatrixMultiply(rotX, rotY), rotZ)
}
