// Package config loads the prefabpreview TOML file and maps it onto
// capture settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"prefabpreview/internal/preview"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pelletier/go-toml/v2"
)

const EnvPrefix = "PREFABPREVIEW_"

var (
	ErrUnknownSizing     = errors.New("unknown sizing policy")
	ErrUnknownTiming     = errors.New("unknown timing policy")
	ErrUnknownBackground = errors.New("unknown background mode")
	ErrUnknownFilter     = errors.New("unknown filter mode")
	ErrBadColor          = errors.New("invalid colour")
)

type Config struct {
	LogLevel  string `toml:"log_level"`
	LogJSON   bool   `toml:"log_json"`
	PrefabDir string `toml:"prefab_dir"`
	OutputDir string `toml:"output_dir"`
	StorePath string `toml:"store_path"`

	Capture Capture `toml:"capture"`
	Staging Staging `toml:"staging"`
}

// Capture mirrors preview.Config in file form.
type Capture struct {
	Background        string  `toml:"background"` // transparent, solid
	Color             string  `toml:"color"`      // #rrggbb or #rrggbbaa
	Sizing            string  `toml:"sizing"`     // pixels-per-unit, fit, fill, stretch
	Width             int     `toml:"width"`
	Height            int     `toml:"height"`
	PixelsPerUnit     float32 `toml:"pixels_per_unit"`
	Filter            string  `toml:"filter"` // point, bilinear
	Timing            string  `toml:"timing"` // immediate, end-of-frame, frames, seconds, realtime-seconds
	TimingCounter     float64 `toml:"timing_counter"`
	MaxImageDimension int     `toml:"max_image_dimension"`
	Isolated          bool    `toml:"isolated"`
}

type Staging struct {
	Origin     [3]float32 `toml:"origin"`
	SlotOffset [3]float32 `toml:"slot_offset"`
}

func Default() *Config {
	o, s := preview.DefaultStagingOrigin, preview.DefaultSlotOffset
	return &Config{
		LogLevel:  "info",
		PrefabDir: "prefabs",
		OutputDir: "previews",
		StorePath: "previews.db",
		Capture: Capture{
			Background:        "transparent",
			Color:             "#4d4d4d",
			Sizing:            "fit",
			Width:             128,
			Height:            128,
			PixelsPerUnit:     32,
			Filter:            "point",
			Timing:            "immediate",
			MaxImageDimension: preview.DefaultMaxImageDimension,
			Isolated:          true,
		},
		Staging: Staging{
			Origin:     [3]float32{o.X, o.Y, o.Z},
			SlotOffset: [3]float32{s.X, s.Y, s.Z},
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults without touching the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not set.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ApplyEnv overrides file values with PREFABPREVIEW_* variables.
func (c *Config) ApplyEnv() {
	c.LogLevel = GetEnv(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.PrefabDir = GetEnv(EnvPrefix+"PREFAB_DIR", c.PrefabDir)
	c.OutputDir = GetEnv(EnvPrefix+"OUTPUT_DIR", c.OutputDir)
	c.StorePath = GetEnv(EnvPrefix+"STORE_PATH", c.StorePath)
	c.Capture.Sizing = GetEnv(EnvPrefix+"SIZING", c.Capture.Sizing)
	c.Capture.Timing = GetEnv(EnvPrefix+"TIMING", c.Capture.Timing)
	if v, err := strconv.ParseBool(GetEnv(EnvPrefix+"LOG_JSON", "")); err == nil {
		c.LogJSON = v
	}
}

func (c *Config) Validate() error {
	_, err := c.PreviewConfig()
	return err
}

// PreviewConfig builds the capture config the file describes.
func (c *Config) PreviewConfig() (*preview.Config, error) {
	var errs []error
	out := preview.DefaultConfig()
	cc := c.Capture

	switch strings.ToLower(cc.Background) {
	case "", "transparent":
		out.Background = preview.Transparent()
	case "solid":
		col, err := ParseColor(cc.Color)
		if err != nil {
			errs = append(errs, err)
		}
		out.Background = preview.SolidColor(col)
	default:
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownBackground, cc.Background))
	}

	switch strings.ToLower(cc.Sizing) {
	case "pixels-per-unit", "ppu":
		out.Sizing = preview.PixelsPerUnit(cc.PixelsPerUnit)
	case "fit":
		out.Sizing = preview.FitWithinBox(cc.Width, cc.Height)
	case "fill":
		out.Sizing = preview.FillBox(cc.Width, cc.Height)
	case "stretch":
		out.Sizing = preview.Stretch(cc.Width, cc.Height)
	default:
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownSizing, cc.Sizing))
	}

	switch strings.ToLower(cc.Filter) {
	case "", "point":
		out.Filter = preview.FilterPoint
	case "bilinear":
		out.Filter = preview.FilterBilinear
	default:
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownFilter, cc.Filter))
	}

	switch strings.ToLower(cc.Timing) {
	case "", "immediate":
		out.Timing = preview.Immediate()
	case "end-of-frame":
		out.Timing = preview.EndOfFrame()
	case "frames":
		out.Timing = preview.AfterFrames(int(cc.TimingCounter))
	case "seconds":
		out.Timing = preview.AfterSeconds(cc.TimingCounter, false)
	case "realtime-seconds":
		out.Timing = preview.AfterSeconds(cc.TimingCounter, true)
	default:
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownTiming, cc.Timing))
	}

	out.MaxImageDimension = cc.MaxImageDimension
	out.Isolated = cc.Isolated

	if len(errs) == 0 {
		if err := out.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("capture config: %w", errors.Join(errs...))
	}
	return out, nil
}

func (c *Config) StagingArea() preview.StagingArea {
	o, s := c.Staging.Origin, c.Staging.SlotOffset
	return preview.StagingArea{
		Origin:     rl.Vector3{X: o[0], Y: o[1], Z: o[2]},
		SlotOffset: rl.Vector3{X: s[0], Y: s[1], Z: s[2]},
	}
}

// ParseColor reads #rrggbb or #rrggbbaa.
func ParseColor(s string) (rl.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return rl.Color{}, fmt.Errorf("%w %q", ErrBadColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return rl.Color{}, fmt.Errorf("%w %q: %w", ErrBadColor, s, err)
	}
	return rl.NewColor(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)), nil
}
