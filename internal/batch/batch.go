// Package batch captures a directory of prefabs without a window.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"prefabpreview/internal/engine"
	"prefabpreview/internal/geom"
	"prefabpreview/internal/prefab"
	"prefabpreview/internal/preview"
	"prefabpreview/internal/thumbstore"
)

// frameStep is the simulated frame time used to drive deferred captures.
const frameStep = time.Second / 60

// maxFrames bounds the wait for deferred captures.
const maxFrames = 60 * 60

var ErrStalled = errors.New("deferred captures did not finish")

type Options struct {
	Backend   preview.Backend
	Capture   *preview.Config
	Staging   preview.StagingArea
	OutputDir string            // empty skips PNG files
	Store     *thumbstore.Store // optional
	Logger    *slog.Logger
}

// Report describes the outcome for one prefab.
type Report struct {
	Name   string
	Path   string
	Output string
	Width  int
	Height int
	Bounds geom.AABB
	Err    error
}

func (r Report) Skipped() bool {
	return r.Err == nil && r.Width == 0
}

// Runner owns a private scene and scheduler for one batch.
type Runner struct {
	opts   Options
	logger *slog.Logger
	scene  *engine.Scene
	sched  *preview.Scheduler
	engine *preview.Engine
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Backend == nil {
		return nil, errors.New("batch: backend is required")
	}
	if opts.Capture == nil {
		opts.Capture = preview.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Staging == (preview.StagingArea{}) {
		opts.Staging = preview.DefaultStagingArea()
	}
	if err := opts.Capture.Validate(); err != nil {
		return nil, err
	}

	scene := engine.NewScene("batch")
	sched := preview.NewScheduler(preview.WithSchedulerLogger(opts.Logger))
	eng := preview.NewEngine(scene, opts.Backend, sched,
		preview.WithLogger(opts.Logger),
		preview.WithStaging(opts.Staging),
	)
	return &Runner{opts: opts, logger: opts.Logger, scene: scene, sched: sched, engine: eng}, nil
}

// Close cancels anything still waiting.
func (r *Runner) Close() {
	r.engine.Close()
	r.sched.Close()
}

// Render captures every prefab and writes the results. Per-prefab failures
// are recorded in the reports; the returned error covers the batch itself.
func (r *Runner) Render(ctx context.Context, prefabs []*prefab.Prefab) ([]Report, error) {
	if r.opts.OutputDir != "" {
		if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	names := OutputNames(prefabs)
	reports := make([]Report, len(prefabs))
	for i, p := range prefabs {
		reports[i] = Report{Name: p.Name, Path: p.Path, Bounds: preview.RendererBounds(p.Root)}
		cfg := r.opts.Capture.WithCaptured(func(res *preview.Result) {
			r.collect(ctx, &reports[i], names[i], res)
		})
		if _, err := r.engine.Capture(ctx, p.Root, cfg); err != nil {
			reports[i].Err = err
		}
	}

	if err := r.drain(ctx); err != nil {
		return reports, err
	}
	return reports, nil
}

// drain runs simulated frames until no capture is waiting.
func (r *Runner) drain(ctx context.Context) error {
	for frame := 0; r.engine.Pending() > 0; frame++ {
		if err := ctx.Err(); err != nil {
			r.engine.Close()
			return err
		}
		if frame >= maxFrames {
			return fmt.Errorf("%w: %d still pending", ErrStalled, r.engine.Pending())
		}
		r.sched.Tick(frameStep.Seconds())
		r.sched.EndFrame()
		if r.opts.Capture.Timing.Kind == preview.TimingAfterSeconds && r.opts.Capture.Timing.WallClock {
			time.Sleep(frameStep)
		}
	}
	return nil
}

func (r *Runner) collect(ctx context.Context, rep *Report, file string, res *preview.Result) {
	if res == nil {
		r.logger.Debug("No preview produced", "prefab", rep.Name)
		return
	}
	rep.Width, rep.Height = res.Width, res.Height
	rep.Bounds = res.Bounds

	if r.opts.OutputDir != "" {
		out := filepath.Join(r.opts.OutputDir, file)
		if err := writePNG(out, res); err != nil {
			rep.Err = err
			return
		}
		rep.Output = out
	}
	if r.opts.Store != nil {
		if err := r.opts.Store.Put(ctx, StoreKey(rep.Path, r.opts.Capture), res.Image); err != nil {
			r.logger.Warn("Failed to store preview", "prefab", rep.Name, "error", err)
		}
	}
	r.logger.Info("Captured preview", "prefab", rep.Name, "width", res.Width, "height", res.Height)
}

func writePNG(path string, res *preview.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, res.Image); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// OutputName turns a prefab name into a file-system friendly PNG name.
func OutputName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "prefab"
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if clean == "" {
		clean = "prefab"
	}
	return clean + ".png"
}

// OutputNames assigns each prefab a PNG name, numbering later prefabs whose
// names clean up to one already taken. Names are compared case-insensitively.
func OutputNames(prefabs []*prefab.Prefab) []string {
	names := make([]string, len(prefabs))
	taken := make(map[string]bool, len(prefabs))
	for i, p := range prefabs {
		base := strings.TrimSuffix(OutputName(p.Name), ".png")
		name := base + ".png"
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s-%d.png", base, n)
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// StoreKey identifies one prefab and the settings that shape its image.
// The background colour only takes part for solid backgrounds.
func StoreKey(path string, cfg *preview.Config) string {
	bg := cfg.Background.Mode.String()
	if !cfg.Background.IsTransparent() {
		c := cfg.Background.Color
		bg = fmt.Sprintf("%s#%02x%02x%02x%02x", bg, c.R, c.G, c.B, c.A)
	}
	return thumbstore.Key(path, cfg.Sizing.String(), bg, cfg.Filter.String(), strconv.Itoa(cfg.MaxImageDimension))
}

// Measurement is the size a prefab would be captured at.
type Measurement struct {
	Name   string
	Bounds geom.AABB
	Width  int
	Height int
}

func (m Measurement) Capturable() bool {
	return !m.Bounds.IsEmpty()
}

// Measure reports bounds and image size without rendering.
func Measure(prefabs []*prefab.Prefab, cfg *preview.Config) []Measurement {
	out := make([]Measurement, 0, len(prefabs))
	for _, p := range prefabs {
		m := Measurement{Name: p.Name, Bounds: preview.RendererBounds(p.Root)}
		if preview.CanCapture(p.Root) {
			m.Width, m.Height = preview.ImageSize(m.Bounds, cfg.Sizing, cfg.MaxImageDimension)
		}
		out = append(out, m)
	}
	return out
}
