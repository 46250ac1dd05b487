package preview

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Scheduler resumes deferred captures from the host's frame loop. It never
// starts goroutines: Tick and EndFrame run due continuations on the caller's
// thread, and every other method must be called from that same thread.
type Scheduler struct {
	now       func() time.Time
	logger    *slog.Logger
	timeScale float64

	frame      uint64
	scaledTime float64
	nextID     uint64
	tasks      []*Task
	closed     bool
}

type SchedulerOption func(*Scheduler)

// WithClock replaces time.Now for wall-clock delays.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTimeScale scales the dt passed to Tick for scaled-time delays.
func WithTimeScale(scale float64) SchedulerOption {
	return func(s *Scheduler) {
		if scale >= 0 {
			s.timeScale = scale
		}
	}
}

func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		now:       time.Now,
		logger:    slog.Default(),
		timeScale: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Task is a suspended continuation. Exactly one of run or cancel is called.
type Task struct {
	id     uint64
	ctx    context.Context
	timing Timing

	dueFrame  uint64
	dueScaled float64
	dueWall   time.Time

	run    func()
	cancel func()
	done   bool
	sched  *Scheduler
}

func (t *Task) ID() uint64 {
	return t.id
}

func (t *Task) Done() bool {
	return t.done
}

// Cancel drops the task and runs its cancel callback now. It is a no-op on a
// finished task.
func (t *Task) Cancel() {
	if t.done {
		return
	}
	t.sched.remove(t)
	t.finish(false)
}

// finish resolves t once; later calls are no-ops.
func (t *Task) finish(run bool) {
	if t.done {
		return
	}
	t.done = true
	if run {
		if t.run != nil {
			t.run()
		}
		return
	}
	if t.cancel != nil {
		t.cancel()
	}
}

// Schedule suspends run until timing says it is due. cancel runs instead if
// ctx ends first, the task is cancelled, or the scheduler closes. Immediate
// timing is not accepted; callers run those inline.
func (s *Scheduler) Schedule(ctx context.Context, timing Timing, run, cancel func()) (*Task, error) {
	if s.closed {
		return nil, ErrSchedulerClosed
	}
	if !timing.Deferred() {
		return nil, fmt.Errorf("%w: %s timing cannot be scheduled", ErrInvalidConfig, timing.Kind)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.nextID++
	t := &Task{
		id:     s.nextID,
		ctx:    ctx,
		timing: timing,
		run:    run,
		cancel: cancel,
		sched:  s,
	}

	switch timing.Kind {
	case TimingAfterFrames:
		t.dueFrame = s.frame + uint64(max(timing.Frames, 1))
	case TimingAfterSeconds:
		if timing.WallClock {
			t.dueWall = s.now().Add(time.Duration(timing.Seconds * float64(time.Second)))
		} else {
			t.dueScaled = s.scaledTime + timing.Seconds
		}
	}

	s.tasks = append(s.tasks, t)
	s.logger.Debug("Scheduled capture task", "task", t.id, "timing", timing.Kind.String())
	return t, nil
}

// Tick advances one frame by dt seconds of unscaled frame time and runs the
// frame and timer tasks that became due.
func (s *Scheduler) Tick(dt float64) {
	if s.closed {
		return
	}
	s.frame++
	if dt > 0 {
		s.scaledTime += dt * s.timeScale
	}
	now := s.now()
	s.pump(func(t *Task) bool {
		switch t.timing.Kind {
		case TimingAfterFrames:
			return s.frame >= t.dueFrame
		case TimingAfterSeconds:
			if t.timing.WallClock {
				return !now.Before(t.dueWall)
			}
			return s.scaledTime >= t.dueScaled
		}
		return false
	})
}

// EndFrame runs tasks waiting for the end of the current frame.
func (s *Scheduler) EndFrame() {
	if s.closed {
		return
	}
	s.pump(func(t *Task) bool {
		return t.timing.Kind == TimingEndOfFrame
	})
}

// pump splits off cancelled and due tasks before running any of them, so
// continuations may schedule new work without it running in the same pass.
// A continuation may cancel a sibling from the same pass or close the
// scheduler; tasks resolved that way are skipped and, once closed, the rest
// of the pass is cancelled instead of run.
func (s *Scheduler) pump(due func(t *Task) bool) {
	var fire, drop []*Task
	keep := s.tasks[:0]
	for _, t := range s.tasks {
		switch {
		case t.ctx.Err() != nil:
			drop = append(drop, t)
		case due(t):
			fire = append(fire, t)
		default:
			keep = append(keep, t)
		}
	}
	clear(s.tasks[len(keep):])
	s.tasks = keep

	for _, t := range drop {
		if t.done {
			continue
		}
		s.logger.Debug("Capture task cancelled by context", "task", t.id, "error", t.ctx.Err())
		t.finish(false)
	}
	for _, t := range fire {
		if t.done {
			continue
		}
		t.finish(!s.closed)
	}
}

func (s *Scheduler) remove(t *Task) {
	for i, candidate := range s.tasks {
		if candidate == t {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}

// Pending is the number of suspended tasks.
func (s *Scheduler) Pending() int {
	return len(s.tasks)
}

// Frame is the number of completed ticks.
func (s *Scheduler) Frame() uint64 {
	return s.frame
}

// Close cancels every suspended task and rejects new ones.
func (s *Scheduler) Close() {
	if s.closed {
		return
	}
	s.closed = true
	tasks := s.tasks
	s.tasks = nil
	for _, t := range tasks {
		t.finish(false)
	}
}
