package preview

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"prefabpreview/internal/components"
	"prefabpreview/internal/engine"
	"prefabpreview/internal/geom"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/gofrs/uuid/v5"
)

// Engine captures preview images of scene objects. It owns the staging slots
// and the requests suspended on its Scheduler. All methods must be called
// from the thread that pumps the Scheduler.
type Engine struct {
	scene     *engine.Scene
	backend   Backend
	scheduler *Scheduler
	logger    *slog.Logger
	staging   StagingArea

	slots   *slotPool
	pending map[*request]*Task
	closed  bool

	// Captured fires after OnCaptured for every non-empty result.
	Captured engine.EventWithArg[*Result]
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithStaging(area StagingArea) Option {
	return func(e *Engine) {
		e.staging = area
	}
}

// NewEngine renders into scene through backend. Deferred captures wait on
// scheduler, which the host must pump.
func NewEngine(scene *engine.Scene, backend Backend, scheduler *Scheduler, opts ...Option) *Engine {
	e := &Engine{
		scene:     scene,
		backend:   backend,
		scheduler: scheduler,
		logger:    slog.Default(),
		staging:   DefaultStagingArea(),
		slots:     newSlotPool(),
		pending:   make(map[*request]*Task),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// request is one capture between staging and release.
type request struct {
	id     uuid.UUID
	cfg    *Config
	target *engine.GameObject

	working     *engine.GameObject
	cloned      bool
	attached    bool // non-isolated target added to the scene for the render
	originalPos rl.Vector3

	slot          int
	bounds        geom.AABB
	width, height int

	cameraObj *engine.GameObject
	camera    *components.PreviewCamera

	fsm      stateMachine
	released bool
}

func (e *Engine) CanCapture(target *engine.GameObject) bool {
	return CanCapture(target)
}

// Capture renders target according to cfg. With immediate timing the result
// is returned and also passed to cfg.OnCaptured. Deferred timing returns nil
// and delivers the result through cfg.OnCaptured alone, once the scheduler
// reaches it. Empty results are reported as a nil Result without an error.
// Errors are returned only for a nil or invalid cfg and a closed engine.
func (e *Engine) Capture(ctx context.Context, target *engine.GameObject, cfg *Config) (*Result, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if e.closed {
		return nil, ErrEngineClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if !CanCapture(target) {
		e.logger.Debug("Nothing to capture", "target", objectName(target))
		cfg.notify(nil)
		return nil, nil
	}

	req := e.stage(target, cfg.Clone())

	if !req.cfg.Timing.Deferred() {
		e.mustTransition(req, StateImmediate)
		return e.execute(req), nil
	}

	e.mustTransition(req, StateWaiting)
	task, err := e.scheduler.Schedule(ctx, req.cfg.Timing,
		func() { e.resume(req) },
		func() { e.cancel(req) },
	)
	if err != nil {
		e.logger.Warn("Could not defer capture", "id", req.id, "error", err)
		e.cancel(req)
		return nil, nil
	}
	e.pending[req] = task
	return nil, nil
}

// stage parks the working copy in its slot and frames the camera on it.
func (e *Engine) stage(target *engine.GameObject, cfg *Config) *request {
	req := &request{
		id:     uuid.Must(uuid.NewV4()),
		cfg:    cfg,
		target: target,
		fsm:    stateMachine{current: StatePending},
		slot:   e.slots.acquire(),
	}

	if cfg.Isolated {
		clone := target.Clone()
		clone.Transform = engine.Transform{
			Position: target.WorldPosition(),
			Rotation: target.WorldRotation(),
			Scale:    target.WorldScale(),
		}
		e.scene.AddGameObject(clone)
		req.working = clone
		req.cloned = true
	} else {
		req.working = target
		req.originalPos = target.WorldPosition()
		if target.Scene != e.scene && target.Parent == nil {
			e.scene.AddGameObject(target)
			req.attached = true
		}
	}

	req.working.SetWorldPosition(e.staging.SlotPosition(req.slot))
	req.bounds = RendererBounds(req.working)
	req.width, req.height = ImageSize(req.bounds, cfg.Sizing, cfg.MaxImageDimension)

	req.cameraObj, req.camera = newCameraObject(FrameBounds(req.bounds, cfg.Background))
	e.scene.AddGameObject(req.cameraObj)

	e.logger.Debug("Staged preview capture",
		"id", req.id,
		"target", target.Name,
		"slot", req.slot,
		"sizing", cfg.Sizing.String(),
		"size", fmt.Sprintf("%dx%d", req.width, req.height),
		"timing", cfg.Timing.Kind.String(),
	)
	return req
}

func (e *Engine) resume(req *request) {
	delete(e.pending, req)
	if req.working.Destroyed() || req.target.Destroyed() {
		e.logger.Debug("Capture target destroyed while waiting", "id", req.id)
		e.resolveCancelled(req)
		return
	}
	e.execute(req)
}

func (e *Engine) cancel(req *request) {
	delete(e.pending, req)
	e.resolveCancelled(req)
}

func (e *Engine) resolveCancelled(req *request) {
	if req.fsm.State().Terminal() {
		return
	}
	e.mustTransition(req, StateCancelled)
	e.release(req)
	req.cfg.notify(nil)
}

// execute renders, releases the request and then notifies, so callbacks see
// a scene with no staged leftovers.
func (e *Engine) execute(req *request) *Result {
	e.mustTransition(req, StateRendering)
	res := e.render(req)
	e.release(req)
	e.mustTransition(req, StateComplete)

	req.cfg.notify(res)
	if res != nil {
		e.Captured.Invoke(res)
	}
	return res
}

// render runs the pre-capture hook and the observers around the readback.
// Panics from callers' hooks or the backend end the capture with no image.
func (e *Engine) render(req *request) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Preview render panicked", "id", req.id, "panic", r)
			res = nil
		}
	}()

	if req.cfg.OnPreCapture != nil {
		req.cfg.OnPreCapture(req.working)
	}

	observers := req.working.CaptureObservers()
	for _, o := range observers {
		o.OnPreviewCapturing(req.working)
	}
	defer func() {
		for _, o := range observers {
			o.OnPreviewCaptured(req.working)
		}
	}()

	img, err := e.readback(req)
	if err != nil {
		e.logger.Warn("Preview capture failed", "id", req.id, "target", req.target.Name, "error", err)
		return nil
	}

	w, h := readbackSize(req.width, req.height)
	return &Result{
		ID:          req.id,
		Image:       img,
		Width:       w,
		Height:      h,
		Filter:      req.cfg.Filter,
		Transparent: req.cfg.Background.IsTransparent(),
		Bounds:      req.bounds,
		Slot:        req.slot,
	}
}

// readback draws one frame into a fresh offscreen target and copies it out.
// The previously active target is restored before the offscreen one is freed.
func (e *Engine) readback(req *request) (*image.NRGBA, error) {
	w, h := readbackSize(req.width, req.height)

	prev := e.backend.ActiveTarget()
	target, err := e.backend.NewTarget(w, h, PreviewDepthBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %dx%d: %w", ErrTargetAllocation, w, h, err)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %dx%d", ErrTargetAllocation, w, h)
	}
	defer e.backend.ReleaseTarget(target)

	e.backend.SetActiveTarget(target)
	defer e.backend.SetActiveTarget(prev)

	req.camera.Enabled = true
	err = e.backend.Render(req.camera, e.scene)
	req.camera.Enabled = false
	if err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}

	layout := LayoutRGB
	if req.cfg.Background.IsTransparent() {
		layout = LayoutRGBA
	}
	img, err := e.backend.ReadPixels(w, h, layout)
	if err != nil {
		return nil, fmt.Errorf("read preview pixels: %w", err)
	}
	return img, nil
}

// release frees the slot and drops the working copy and camera. Safe to call
// more than once.
func (e *Engine) release(req *request) {
	if req.released {
		return
	}
	req.released = true
	e.slots.release(req.slot)

	switch {
	case req.cloned:
		e.scene.Destroy(req.working)
	case !req.working.Destroyed():
		req.working.SetWorldPosition(req.originalPos)
		if req.attached {
			e.scene.RemoveGameObject(req.working)
		}
	}
	e.scene.Destroy(req.cameraObj)
}

func (e *Engine) mustTransition(req *request, to State) {
	if err := req.fsm.Transition(to); err != nil {
		panic(fmt.Sprintf("preview request %s: %v", req.id, err))
	}
}

// InFlight is the number of staged requests not yet released.
func (e *Engine) InFlight() int {
	return e.slots.inFlight()
}

// Pending is the number of requests waiting on the scheduler.
func (e *Engine) Pending() int {
	return len(e.pending)
}

// Close cancels every waiting request, each resolving to OnCaptured(nil),
// and rejects further captures. The scheduler stays usable by other owners.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	for req, task := range e.pending {
		delete(e.pending, req)
		task.Cancel()
	}
	e.Captured.RemoveAllListeners()
}

func objectName(g *engine.GameObject) string {
	if g == nil {
		return "<nil>"
	}
	return g.Name
}
