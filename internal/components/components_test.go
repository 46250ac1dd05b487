package components

import (
	"math"
	"testing"

	"prefabpreview/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVecNear(t *testing.T, want, got rl.Vector3) {
	t.Helper()
	const eps = 1e-3
	ok := math.Abs(float64(want.X-got.X)) < eps &&
		math.Abs(float64(want.Y-got.Y)) < eps &&
		math.Abs(float64(want.Z-got.Z)) < eps
	assert.True(t, ok, "expected %v, got %v", want, got)
}

func TestMeshRendererWorldBounds(t *testing.T) {
	tests := []struct {
		name    string
		mesh    *MeshRenderer
		pos     rl.Vector3
		rot     rl.Vector3
		scale   rl.Vector3
		wantMin rl.Vector3
		wantMax rl.Vector3
	}{
		{
			name:    "cube at origin",
			mesh:    NewMeshRenderer(MeshCube, rl.Red, rl.Vector3{X: 2, Y: 3, Z: 1}),
			scale:   rl.Vector3{X: 1, Y: 1, Z: 1},
			wantMin: rl.Vector3{X: -1, Y: -1.5, Z: -0.5},
			wantMax: rl.Vector3{X: 1, Y: 1.5, Z: 0.5},
		},
		{
			name:    "scaled and moved cube",
			mesh:    NewMeshRenderer(MeshCube, rl.Red, rl.Vector3{X: 1, Y: 1, Z: 1}),
			pos:     rl.Vector3{X: 10},
			scale:   rl.Vector3{X: 4, Y: 2, Z: 1},
			wantMin: rl.Vector3{X: 8, Y: -1, Z: -0.5},
			wantMax: rl.Vector3{X: 12, Y: 1, Z: 0.5},
		},
		{
			name:    "cube rotated a quarter turn around Y swaps X and Z",
			mesh:    NewMeshRenderer(MeshCube, rl.Red, rl.Vector3{X: 4, Y: 1, Z: 2}),
			rot:     rl.Vector3{Y: 90},
			scale:   rl.Vector3{X: 1, Y: 1, Z: 1},
			wantMin: rl.Vector3{X: -1, Y: -0.5, Z: -2},
			wantMax: rl.Vector3{X: 1, Y: 0.5, Z: 2},
		},
		{
			name:    "sphere radius",
			mesh:    NewMeshRenderer(MeshSphere, rl.Blue, rl.Vector3{X: 1.5}),
			scale:   rl.Vector3{X: 1, Y: 1, Z: 1},
			wantMin: rl.Vector3{X: -1.5, Y: -1.5, Z: -1.5},
			wantMax: rl.Vector3{X: 1.5, Y: 1.5, Z: 1.5},
		},
		{
			name:    "plane is flat in Y",
			mesh:    NewMeshRenderer(MeshPlane, rl.Green, rl.Vector3{X: 6, Z: 2}),
			scale:   rl.Vector3{X: 1, Y: 1, Z: 1},
			wantMin: rl.Vector3{X: -3, Z: -1},
			wantMax: rl.Vector3{X: 3, Z: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := engine.NewGameObject("mesh")
			g.Transform.Position = tt.pos
			g.Transform.Rotation = tt.rot
			g.Transform.Scale = tt.scale
			g.AddComponent(tt.mesh)

			gotMin, gotMax := tt.mesh.WorldBounds()
			assertVecNear(t, tt.wantMin, gotMin)
			assertVecNear(t, tt.wantMax, gotMax)
		})
	}
}

func TestMeshRendererBoundsFollowParent(t *testing.T) {
	parent := engine.NewGameObject("parent")
	parent.Transform.Position = rl.Vector3{X: 5, Y: 5}

	child := engine.NewGameObject("child")
	child.Transform.Position = rl.Vector3{X: 1}
	mesh := NewMeshRenderer(MeshCube, rl.Red, rl.Vector3{X: 2, Y: 2, Z: 2})
	child.AddComponent(mesh)
	parent.AddChild(child)

	gotMin, gotMax := mesh.WorldBounds()
	assertVecNear(t, rl.Vector3{X: 5, Y: 4, Z: -1}, gotMin)
	assertVecNear(t, rl.Vector3{X: 7, Y: 6, Z: 1}, gotMax)
}

func TestMeshRendererCloneIsDetached(t *testing.T) {
	g := engine.NewGameObject("mesh")
	mesh := NewMeshRenderer(MeshCube, rl.Red, rl.Vector3{X: 1, Y: 1, Z: 1})
	g.AddComponent(mesh)

	dup, ok := mesh.CloneComponent().(*MeshRenderer)
	require.True(t, ok)
	assert.Nil(t, dup.GetGameObject())
	assert.Equal(t, mesh.Size, dup.Size)
	assert.Equal(t, mesh.Color, dup.Color)
	assert.True(t, dup.IsEnabled())

	dup.Size.X = 9
	assert.Equal(t, float32(1), mesh.Size.X)
}

func TestPreviewCameraProjection(t *testing.T) {
	g := engine.NewGameObject("cam")
	g.Transform.Position = rl.Vector3{X: 1, Y: 2, Z: 10}
	cam := NewPreviewCamera()
	cam.HalfHeight = 2
	cam.Aspect = 1.5
	g.AddComponent(cam)

	rc := cam.GetRaylibCamera()
	assert.Equal(t, rl.CameraOrthographic, rc.Projection)
	assert.Equal(t, float32(4), rc.Fovy)
	assert.Equal(t, rl.Vector3{X: 1, Y: 2, Z: 9}, rc.Target)
	assert.Equal(t, float32(3), cam.HalfWidth())

	x, y, depth := cam.WorldToView(rl.Vector3{X: 2, Y: 1, Z: 4})
	assert.Equal(t, float32(1), x)
	assert.Equal(t, float32(-1), y)
	assert.Equal(t, float32(6), depth)
}
