package preview_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"prefabpreview/internal/components"
	"prefabpreview/internal/engine"
	"prefabpreview/internal/preview"
	"prefabpreview/internal/render/headless"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = rl.NewColor(255, 0, 0, 255)
	blue = rl.NewColor(0, 0, 255, 255)
)

type fixture struct {
	scene   *engine.Scene
	backend *headless.Backend
	sched   *preview.Scheduler
	engine  *preview.Engine
}

func newFixture(t *testing.T, opts ...headless.Option) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		scene:   engine.NewScene("test"),
		backend: headless.New(opts...),
		sched:   preview.NewScheduler(preview.WithSchedulerLogger(logger)),
	}
	f.engine = preview.NewEngine(f.scene, f.backend, f.sched, preview.WithLogger(logger))
	return f
}

// assertClean checks that nothing staged by the engine is left behind.
func (f *fixture) assertClean(t *testing.T, objects int) {
	t.Helper()
	assert.Equal(t, objects, f.scene.ObjectCount(), "scene objects")
	assert.Equal(t, 0, f.backend.LiveTargets(), "offscreen targets")
	assert.Equal(t, 0, f.engine.InFlight(), "staging slots")
	assert.Equal(t, 0, f.engine.Pending(), "waiting requests")
}

func cube(name string, size rl.Vector3, c rl.Color) *engine.GameObject {
	obj := engine.NewGameObject(name)
	obj.AddComponent(components.NewMeshRenderer(components.MeshCube, c, size))
	return obj
}

// recorder collects every OnCaptured call.
type recorder struct {
	results []*preview.Result
}

func (r *recorder) config() *preview.Config {
	return preview.DefaultConfig().WithCaptured(func(res *preview.Result) {
		r.results = append(r.results, res)
	})
}

func TestCaptureImmediate(t *testing.T) {
	f := newFixture(t)
	target := cube("crate", rl.Vector3{X: 2, Y: 3, Z: 1}, red)
	target.Transform.Position = rl.Vector3{X: 4, Y: 5, Z: 6}
	f.scene.AddGameObject(target)
	before := f.scene.ObjectCount()

	var fired []*preview.Result
	f.engine.Captured.AddListener(func(res *preview.Result) { fired = append(fired, res) })

	var rec recorder
	res, err := f.engine.Capture(context.Background(), target, rec.config())
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 64, res.Width)
	assert.Equal(t, 96, res.Height)
	assert.Equal(t, 64, res.Image.Bounds().Dx())
	assert.Equal(t, 96, res.Image.Bounds().Dy())
	assert.True(t, res.Transparent)
	assert.Equal(t, preview.FilterPoint, res.Filter)
	assert.InDelta(t, 2, res.Bounds.Size().X, 1e-3)
	assert.InDelta(t, 3, res.Bounds.Size().Y, 1e-3)

	px := res.Image.NRGBAAt(32, 48)
	assert.Equal(t, uint8(255), px.R)
	assert.Equal(t, uint8(255), px.A)

	require.Len(t, rec.results, 1)
	assert.Same(t, res, rec.results[0])
	require.Len(t, fired, 1)
	assert.Same(t, res, fired[0])

	assert.Equal(t, rl.Vector3{X: 4, Y: 5, Z: 6}, target.Transform.Position, "isolated capture leaves the target alone")
	f.assertClean(t, before)
}

func TestCaptureEmptyResults(t *testing.T) {
	disabled := cube("disabled", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	engine.GetComponent[*components.MeshRenderer](disabled).Enabled = false

	inactiveChild := engine.NewGameObject("group")
	hidden := cube("hidden", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	hidden.Active = false
	inactiveChild.AddChild(hidden)

	tests := []struct {
		name   string
		target func(f *fixture) *engine.GameObject
	}{
		{"nil target", func(*fixture) *engine.GameObject { return nil }},
		{"empty group", func(*fixture) *engine.GameObject { return engine.NewGameObject("group") }},
		{"disabled renderer", func(*fixture) *engine.GameObject { return disabled }},
		{"inactive child", func(*fixture) *engine.GameObject { return inactiveChild }},
		{"destroyed target", func(f *fixture) *engine.GameObject {
			obj := cube("gone", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
			f.scene.AddGameObject(obj)
			f.scene.Destroy(obj)
			return obj
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			target := tt.target(f)
			before := f.scene.ObjectCount()

			var rec recorder
			res, err := f.engine.Capture(context.Background(), target, rec.config())
			require.NoError(t, err)
			assert.Nil(t, res)
			require.Len(t, rec.results, 1)
			assert.Nil(t, rec.results[0])
			assert.False(t, f.engine.CanCapture(target))
			assert.Equal(t, 0, f.backend.Allocations())
			f.assertClean(t, before)
		})
	}
}

func TestCaptureConfigErrors(t *testing.T) {
	f := newFixture(t)
	target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)

	_, err := f.engine.Capture(context.Background(), target, nil)
	assert.ErrorIs(t, err, preview.ErrNilConfig)

	_, err = f.engine.Capture(context.Background(), target, preview.DefaultConfig().WithSizing(preview.PixelsPerUnit(0)))
	assert.ErrorIs(t, err, preview.ErrInvalidConfig)
	f.assertClean(t, 0)
}

func TestCaptureEndOfFrame(t *testing.T) {
	f := newFixture(t)
	target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	f.scene.AddGameObject(target)

	var rec recorder
	res, err := f.engine.Capture(context.Background(), target, rec.config().WithTiming(preview.EndOfFrame()))
	require.NoError(t, err)
	assert.Nil(t, res, "deferred captures only report through the callback")
	assert.Empty(t, rec.results)
	assert.Equal(t, 1, f.engine.InFlight())
	assert.Equal(t, 3, f.scene.ObjectCount(), "target, staged clone and camera")

	f.sched.Tick(0.016)
	assert.Empty(t, rec.results)

	f.sched.EndFrame()
	require.Len(t, rec.results, 1)
	require.NotNil(t, rec.results[0])
	assert.Equal(t, 32, rec.results[0].Width)
	f.assertClean(t, 1)
}

func TestCaptureAfterFrames(t *testing.T) {
	f := newFixture(t)
	target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)

	var rec recorder
	_, err := f.engine.Capture(context.Background(), target, rec.config().WithTiming(preview.AfterFrames(3)))
	require.NoError(t, err)

	f.sched.Tick(0.016)
	f.sched.Tick(0.016)
	assert.Empty(t, rec.results)
	f.sched.Tick(0.016)
	require.Len(t, rec.results, 1)
	assert.NotNil(t, rec.results[0])
	f.assertClean(t, 0)
}

func TestConcurrentCapturesStayApart(t *testing.T) {
	f := newFixture(t)
	sizes := []rl.Vector3{
		{X: 1, Y: 1, Z: 1},
		{X: 2, Y: 1, Z: 1},
		{X: 1, Y: 3, Z: 2},
		{X: 4, Y: 2, Z: 1},
	}
	colors := []rl.Color{red, blue, rl.NewColor(0, 255, 0, 255), rl.NewColor(255, 255, 0, 255)}

	results := make([]*preview.Result, len(sizes))
	for i, size := range sizes {
		// every target sits at the origin, overlapping the others
		target := cube("crate", size, colors[i])
		f.scene.AddGameObject(target)
		cfg := preview.DefaultConfig().WithTiming(preview.EndOfFrame()).WithCaptured(func(res *preview.Result) {
			results[i] = res
		})
		_, err := f.engine.Capture(context.Background(), target, cfg)
		require.NoError(t, err)
	}
	assert.Equal(t, len(sizes), f.engine.InFlight())

	f.sched.EndFrame()

	slots := make(map[int]bool)
	for i, res := range results {
		require.NotNil(t, res, "capture %d", i)
		assert.False(t, slots[res.Slot], "slot %d reused while live", res.Slot)
		slots[res.Slot] = true

		assert.InDelta(t, sizes[i].X, res.Bounds.Size().X, 1e-3, "capture %d", i)
		assert.InDelta(t, sizes[i].Y, res.Bounds.Size().Y, 1e-3, "capture %d", i)
		assert.Equal(t, int(sizes[i].X*32), res.Width)
		assert.Equal(t, int(sizes[i].Y*32), res.Height)

		for _, p := range [][2]int{{0, 0}, {res.Width / 2, res.Height / 2}, {res.Width - 1, res.Height - 1}} {
			px := res.Image.NRGBAAt(p[0], p[1])
			assert.Equal(t, colors[i], rl.NewColor(px.R, px.G, px.B, px.A), "capture %d pixel %v", i, p)
		}
	}
	f.assertClean(t, len(sizes))
}

func TestSlotsStayDistinctWhenFinishingOutOfOrder(t *testing.T) {
	f := newFixture(t)
	var late, early, third *preview.Result

	capture := func(timing preview.Timing, out **preview.Result) {
		cfg := preview.DefaultConfig().WithTiming(timing).WithCaptured(func(res *preview.Result) { *out = res })
		_, err := f.engine.Capture(context.Background(), cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red), cfg)
		require.NoError(t, err)
	}

	capture(preview.AfterFrames(2), &late)
	capture(preview.EndOfFrame(), &early)
	f.sched.EndFrame()
	require.NotNil(t, early)
	assert.Equal(t, 1, early.Slot)

	capture(preview.AfterFrames(1), &third)
	f.sched.Tick(0.016)
	f.sched.Tick(0.016)
	require.NotNil(t, late)
	require.NotNil(t, third)
	assert.NotEqual(t, late.Slot, third.Slot)
	f.assertClean(t, 0)
}

func TestCaptureAllocationFailure(t *testing.T) {
	f := newFixture(t, headless.WithMaxPixels(100))
	target := cube("crate", rl.Vector3{X: 2, Y: 3, Z: 1}, red)
	f.scene.AddGameObject(target)

	var rec recorder
	res, err := f.engine.Capture(context.Background(), target, rec.config())
	require.NoError(t, err)
	assert.Nil(t, res)
	require.Len(t, rec.results, 1)
	assert.Nil(t, rec.results[0])
	assert.Equal(t, 0, f.backend.Renders())
	f.assertClean(t, 1)
}

func TestCapturePanicReleasesResources(t *testing.T) {
	f := newFixture(t)
	target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	f.scene.AddGameObject(target)

	var rec recorder
	cfg := rec.config().WithPreCapture(func(*engine.GameObject) { panic("setup failed") })
	res, err := f.engine.Capture(context.Background(), target, cfg)
	require.NoError(t, err)
	assert.Nil(t, res)
	require.Len(t, rec.results, 1)
	assert.Nil(t, rec.results[0])
	f.assertClean(t, 1)
}

// hook is a cloneable component that logs capture notifications.
type hook struct {
	engine.BaseComponent
	log *[]string
}

func (h *hook) CloneComponent() engine.Component {
	return &hook{log: h.log}
}

func (h *hook) OnPreviewCapturing(*engine.GameObject) { *h.log = append(*h.log, "capturing") }
func (h *hook) OnPreviewCaptured(*engine.GameObject)  { *h.log = append(*h.log, "captured") }

func TestCaptureNotificationOrder(t *testing.T) {
	f := newFixture(t)
	var events []string

	target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	h := &hook{log: &events}
	target.AddComponent(h)
	target.AddCaptureObserver(h)

	var staged *engine.GameObject
	cfg := preview.DefaultConfig().
		WithPreCapture(func(g *engine.GameObject) {
			staged = g
			events = append(events, "pre")
		}).
		WithCaptured(func(*preview.Result) { events = append(events, "done") })

	_, err := f.engine.Capture(context.Background(), target, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"pre", "capturing", "captured", "done"}, events)
	require.NotNil(t, staged)
	assert.NotSame(t, target, staged, "isolated captures hand the clone to the hook")
	assert.True(t, staged.Destroyed())
}

func TestNonIsolatedCaptureRestoresTarget(t *testing.T) {
	f := newFixture(t)
	target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	target.Transform.Position = rl.Vector3{X: 5, Y: 6, Z: 7}
	f.scene.AddGameObject(target)

	cfg := preview.DefaultConfig()
	cfg.Isolated = false
	var stagedAt rl.Vector3
	cfg.OnPreCapture = func(g *engine.GameObject) {
		assert.Same(t, target, g)
		stagedAt = g.WorldPosition()
	}

	res, err := f.engine.Capture(context.Background(), target, cfg)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, preview.DefaultStagingOrigin, stagedAt)
	assert.Equal(t, rl.Vector3{X: 5, Y: 6, Z: 7}, target.WorldPosition())
	assert.Same(t, f.scene, target.Scene)
	f.assertClean(t, 1)
}

func TestNonIsolatedCaptureOfDetachedTarget(t *testing.T) {
	f := newFixture(t)
	target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)

	cfg := preview.DefaultConfig()
	cfg.Isolated = false
	res, err := f.engine.Capture(context.Background(), target, cfg)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, uint8(255), res.Image.NRGBAAt(16, 16).R)
	assert.Nil(t, target.Scene, "detached targets are only attached for the render")
	f.assertClean(t, 0)
}

func TestSolidBackground(t *testing.T) {
	f := newFixture(t)
	group := engine.NewGameObject("pair")
	left := cube("left", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	left.Transform.Position = rl.Vector3{X: -2}
	right := cube("right", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	right.Transform.Position = rl.Vector3{X: 2}
	group.AddChild(left)
	group.AddChild(right)

	transparent, err := f.engine.Capture(context.Background(), group, preview.DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, transparent)
	assert.Equal(t, 160, transparent.Width)
	assert.Equal(t, uint8(0), transparent.Image.NRGBAAt(80, 16).A, "gap between the cubes is clear")
	assert.Equal(t, uint8(255), transparent.Image.NRGBAAt(8, 16).A)

	cfg := preview.DefaultConfig()
	cfg.Background = preview.SolidColor(preview.DefaultSolidColor)
	solid, err := f.engine.Capture(context.Background(), group, cfg)
	require.NoError(t, err)
	require.NotNil(t, solid)
	assert.False(t, solid.Transparent)
	gap := solid.Image.NRGBAAt(80, 16)
	assert.Equal(t, preview.DefaultSolidColor, rl.NewColor(gap.R, gap.G, gap.B, gap.A))
	f.assertClean(t, 0)
}

func TestDeferredCaptureCancelledByContext(t *testing.T) {
	f := newFixture(t)
	target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	f.scene.AddGameObject(target)

	ctx, cancel := context.WithCancel(context.Background())
	var rec recorder
	_, err := f.engine.Capture(ctx, target, rec.config().WithTiming(preview.AfterSeconds(1, false)))
	require.NoError(t, err)

	cancel()
	f.sched.Tick(0.016)
	require.Len(t, rec.results, 1)
	assert.Nil(t, rec.results[0])
	assert.Equal(t, 0, f.backend.Renders())
	f.assertClean(t, 1)
}

func TestDeferredCaptureOfDestroyedTarget(t *testing.T) {
	f := newFixture(t)
	target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
	f.scene.AddGameObject(target)

	var rec recorder
	_, err := f.engine.Capture(context.Background(), target, rec.config().WithTiming(preview.EndOfFrame()))
	require.NoError(t, err)

	f.scene.Destroy(target)
	f.sched.EndFrame()
	require.Len(t, rec.results, 1)
	assert.Nil(t, rec.results[0])
	assert.Equal(t, 0, f.backend.Renders())
	f.assertClean(t, 0)
}

func TestEngineClose(t *testing.T) {
	f := newFixture(t)
	var rec recorder
	for range 3 {
		_, err := f.engine.Capture(context.Background(), cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red),
			rec.config().WithTiming(preview.AfterFrames(5)))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.engine.Pending())

	f.engine.Close()
	require.Len(t, rec.results, 3)
	for _, res := range rec.results {
		assert.Nil(t, res)
	}
	f.assertClean(t, 0)
	assert.Equal(t, 0, f.sched.Pending())

	_, err := f.engine.Capture(context.Background(), cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red), rec.config())
	assert.ErrorIs(t, err, preview.ErrEngineClosed)
}

func TestDeferredCaptureAfterSchedulerClose(t *testing.T) {
	f := newFixture(t)
	f.sched.Close()

	var rec recorder
	res, err := f.engine.Capture(context.Background(), cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red),
		rec.config().WithTiming(preview.EndOfFrame()))
	require.NoError(t, err)
	assert.Nil(t, res)
	require.Len(t, rec.results, 1)
	assert.Nil(t, rec.results[0])
	f.assertClean(t, 0)
}

// captureBatch queues n EndOfFrame captures, each counting its own callbacks.
// onFirst runs inside the first callback. The targets are appended to
// targets when it is not nil.
func captureBatch(t *testing.T, f *fixture, n int, onFirst func(), targets *[]*engine.GameObject) [][]*preview.Result {
	t.Helper()
	calls := make([][]*preview.Result, n)
	for i := range n {
		cfg := preview.DefaultConfig().WithTiming(preview.EndOfFrame()).WithCaptured(func(res *preview.Result) {
			calls[i] = append(calls[i], res)
			if i == 0 && len(calls[0]) == 1 {
				onFirst()
			}
		})
		target := cube("crate", rl.Vector3{X: 1, Y: 1, Z: 1}, red)
		if targets != nil {
			*targets = append(*targets, target)
		}
		_, err := f.engine.Capture(context.Background(), target, cfg)
		require.NoError(t, err)
	}
	return calls
}

func TestEngineClosedFromCallbackDuringFrame(t *testing.T) {
	f := newFixture(t)
	calls := captureBatch(t, f, 3, f.engine.Close, nil)

	require.NotPanics(t, f.sched.EndFrame)

	require.Len(t, calls[0], 1)
	assert.NotNil(t, calls[0][0])
	for i := 1; i < len(calls); i++ {
		require.Len(t, calls[i], 1, "capture %d", i)
		assert.Nil(t, calls[i][0], "capture %d", i)
	}
	f.assertClean(t, 0)
	assert.Equal(t, 0, f.sched.Pending())
}

func TestSchedulerClosedFromCallbackDuringFrame(t *testing.T) {
	f := newFixture(t)
	calls := captureBatch(t, f, 3, f.sched.Close, nil)

	require.NotPanics(t, f.sched.EndFrame)

	require.Len(t, calls[0], 1)
	assert.NotNil(t, calls[0][0])
	for i := 1; i < len(calls); i++ {
		require.Len(t, calls[i], 1, "capture %d", i)
		assert.Nil(t, calls[i][0], "capture %d", i)
	}
	f.assertClean(t, 0)
}

func TestSiblingTargetDestroyedFromCallbackDuringFrame(t *testing.T) {
	f := newFixture(t)
	var targets []*engine.GameObject
	calls := captureBatch(t, f, 2, func() { f.scene.Destroy(targets[1]) }, &targets)

	require.NotPanics(t, f.sched.EndFrame)

	require.Len(t, calls[0], 1)
	assert.NotNil(t, calls[0][0])
	require.Len(t, calls[1], 1)
	assert.Nil(t, calls[1][0], "a target destroyed mid-frame resolves as cancelled")
	f.assertClean(t, 0)
}
