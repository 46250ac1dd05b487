// Package viewer is a raylib window that browses prefab thumbnails.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"prefabpreview/internal/assets"
	"prefabpreview/internal/batch"
	"prefabpreview/internal/engine"
	"prefabpreview/internal/prefab"
	"prefabpreview/internal/preview"
	"prefabpreview/internal/render/rlbackend"
	"prefabpreview/internal/thumbstore"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	itemSize   int32 = 128
	itemGap    int32 = 10
	headerH    int32 = 44
	labelH     int32 = 18
	scrollStep       = 40
)

var (
	colorBgDark    = rl.NewColor(10, 10, 15, 255)
	colorBgPanel   = rl.NewColor(18, 18, 24, 245)
	colorBgElement = rl.NewColor(28, 28, 38, 255)
	colorBgHover   = rl.NewColor(38, 38, 52, 255)
	colorAccent    = rl.NewColor(108, 99, 255, 255)

	colorTextPrimary   = rl.NewColor(255, 255, 255, 255)
	colorTextSecondary = rl.NewColor(200, 200, 208, 255)
	colorTextMuted     = rl.NewColor(119, 119, 119, 255)
)

type Options struct {
	Title     string
	Width     int32
	Height    int32
	PrefabDir string
	Capture   *preview.Config
	Staging   preview.StagingArea
	Store     *thumbstore.Store // optional second cache level
	Logger    *slog.Logger
}

type Viewer struct {
	opts   Options
	logger *slog.Logger

	scene  *engine.Scene
	sched  *preview.Scheduler
	engine *preview.Engine
	cache  *preview.Cache
	assets *assets.Manager
	loader *prefab.Loader

	prefabs []*prefab.Prefab
	paths   map[uint64]string

	sizing int32
	timing int32
	scroll int32
	status string
}

func New(opts Options) *Viewer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Capture == nil {
		opts.Capture = preview.DefaultConfig()
	}
	if opts.Title == "" {
		opts.Title = "Prefab previews"
	}
	if opts.Staging == (preview.StagingArea{}) {
		opts.Staging = preview.DefaultStagingArea()
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1024, 720
	}
	return &Viewer{opts: opts, logger: opts.Logger, paths: make(map[uint64]string)}
}

// Run opens the window and blocks until it is closed or ctx ends.
func (v *Viewer) Run(ctx context.Context) error {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(v.opts.Width, v.opts.Height, v.opts.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)
	initStyle()

	v.scene = engine.NewScene("previews")
	v.sched = preview.NewScheduler(preview.WithSchedulerLogger(v.logger))
	v.engine = preview.NewEngine(v.scene, rlbackend.New(), v.sched,
		preview.WithLogger(v.logger),
		preview.WithStaging(v.opts.Staging),
	)
	v.assets = assets.NewManager(rlbackend.Upload)
	v.loader = prefab.NewLoader(v.assets, v.logger)
	defer func() {
		v.engine.Close()
		v.sched.Close()
		v.assets.Unload()
	}()

	v.reload()
	v.resetCache()

	for !rl.WindowShouldClose() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		v.sched.Tick(float64(rl.GetFrameTime()))
		v.request(ctx)

		rl.BeginDrawing()
		rl.ClearBackground(colorBgDark)
		v.drawGrid(ctx)
		v.drawHeader()
		rl.EndDrawing()

		v.sched.EndFrame()
	}
	return nil
}

func (v *Viewer) reload() {
	prefabs, err := v.loader.LoadDir(v.opts.PrefabDir)
	v.prefabs = prefabs
	clear(v.paths)
	for _, p := range prefabs {
		v.paths[p.Root.UID] = p.Path
	}
	v.status = fmt.Sprintf("%d prefabs", len(prefabs))
	if err != nil {
		v.logger.Warn("Some prefabs failed to load", "dir", v.opts.PrefabDir, "error", err)
		v.status += " (some failed, see log)"
	}
}

func (v *Viewer) resetCache() {
	v.assets.DropThumbnails()
	cfg := captureConfig(v.opts.Capture, v.sizing, v.timing, int(itemSize))
	v.cache = preview.NewCache(v.engine, cfg)
	if v.opts.Store != nil {
		v.cache.WithPersister(v.opts.Store, func(g *engine.GameObject) string {
			path, ok := v.paths[g.UID]
			if !ok {
				return ""
			}
			return batch.StoreKey(path, cfg)
		})
	}
}

// request starts captures outside of BeginDrawing so texture mode never
// nests inside the window pass.
func (v *Viewer) request(ctx context.Context) {
	for _, p := range v.prefabs {
		v.cache.Get(ctx, p.Root, true)
	}
}

func (v *Viewer) drawHeader() {
	w := float32(rl.GetScreenWidth())
	rl.DrawRectangle(0, 0, int32(w), headerH, colorBgPanel)

	sizing := gui.ToggleGroup(rl.Rectangle{X: 10, Y: 10, Width: 80, Height: 24}, strings.Join(sizingModes, ";"), v.sizing)
	timing := gui.ToggleGroup(rl.Rectangle{X: 350, Y: 10, Width: 90, Height: 24}, strings.Join(timingModes, ";"), v.timing)
	if sizing != v.sizing || timing != v.timing {
		v.sizing, v.timing = sizing, timing
		v.resetCache()
	}

	if gui.Button(rl.Rectangle{X: w - 90, Y: 10, Width: 80, Height: 24}, "Refresh") {
		v.reload()
		v.resetCache()
	}
	status := fmt.Sprintf("%s, %d in flight", v.status, v.engine.InFlight())
	rl.DrawText(status, 720, 16, 14, colorTextMuted)
}

func (v *Viewer) drawGrid(ctx context.Context) {
	width := int32(rl.GetScreenWidth())
	height := int32(rl.GetScreenHeight())
	cols := gridColumns(width, itemSize, itemGap)
	origin := rl.Vector2{X: float32(itemGap), Y: float32(headerH + itemGap)}

	rows := (int32(len(v.prefabs)) + cols - 1) / cols
	maxScroll := max(rows*(itemSize+labelH+itemGap)-(height-headerH), 0)
	v.scroll = min(max(v.scroll-int32(rl.GetMouseWheelMove()*scrollStep), 0), maxScroll)

	mouse := rl.GetMousePosition()
	rl.BeginScissorMode(0, headerH, width, height-headerH)
	defer rl.EndScissorMode()

	for i, p := range v.prefabs {
		cell := cellRect(i, cols, origin, itemSize, itemGap, v.scroll)
		cell.Y += float32(int32(i)/cols) * float32(labelH)
		if cell.Y+cell.Height < float32(headerH) || cell.Y > float32(height) {
			continue
		}

		bg := colorBgElement
		if rl.CheckCollisionPointRec(mouse, cell) {
			bg = colorBgHover
			if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
				v.cache.Remove(p.Root)
			}
		}
		rl.DrawRectangleRounded(cell, 0.1, 4, bg)

		if res := v.cache.Get(ctx, p.Root, false); res != nil {
			if tex, ok := v.assets.Thumbnail(p.Root.UID, res); ok {
				src := rl.Rectangle{Width: float32(tex.Width), Height: float32(tex.Height)}
				rl.DrawTexturePro(tex, src, fitRect(res.Width, res.Height, cell), rl.Vector2{}, 0, rl.White)
			}
		} else {
			rl.DrawText("...", int32(cell.X+cell.Width/2)-6, int32(cell.Y+cell.Height/2)-6, 14, colorAccent)
		}

		name := p.Name
		if len(name) > 16 {
			name = name[:15] + "~"
		}
		textW := rl.MeasureText(name, 13)
		rl.DrawText(name, int32(cell.X)+(itemSize-textW)/2, int32(cell.Y+cell.Height)+3, 13, colorTextSecondary)
	}
}

func initStyle() {
	gui.SetStyle(gui.DEFAULT, gui.BACKGROUND_COLOR, gui.NewColorPropertyValue(colorBgDark))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_NORMAL, gui.NewColorPropertyValue(colorBgElement))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_FOCUSED, gui.NewColorPropertyValue(colorBgHover))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_PRESSED, gui.NewColorPropertyValue(colorAccent))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_NORMAL, gui.NewColorPropertyValue(colorTextSecondary))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_FOCUSED, gui.NewColorPropertyValue(colorTextPrimary))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_PRESSED, gui.NewColorPropertyValue(colorTextPrimary))
	gui.SetStyle(gui.DEFAULT, gui.BORDER_COLOR_FOCUSED, gui.NewColorPropertyValue(colorAccent))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_SIZE, 14)
}

