// Package prefab reads JSON prefab definitions into GameObject hierarchies.
package prefab

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"prefabpreview/internal/components"
	"prefabpreview/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// --- JSON types ---

type ObjectDef struct {
	Name       string            `json:"name"`
	Tags       []string          `json:"tags,omitempty"`
	Active     *bool             `json:"active,omitempty"`
	Position   [3]float32        `json:"position"`
	Rotation   [3]float32        `json:"rotation"`
	Scale      [3]float32        `json:"scale"`
	Components []json.RawMessage `json:"components"`
	Children   []ObjectDef       `json:"children,omitempty"`
}

type componentHeader struct {
	Type string `json:"type"`
}

type meshRendererDef struct {
	Type    string     `json:"type"`
	Mesh    string     `json:"mesh"`
	Size    [3]float32 `json:"size"`
	Offset  [3]float32 `json:"offset,omitempty"`
	Color   string     `json:"color"`
	Enabled *bool      `json:"enabled,omitempty"`
}

type modelRendererDef struct {
	Type    string `json:"type"`
	Model   string `json:"model"`
	Color   string `json:"color"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// ModelSource loads model files for ModelRenderer entries.
type ModelSource interface {
	LoadModel(path string) (rl.Model, error)
}

var ErrNoModelSource = errors.New("prefab uses a model but no model source is configured")

// Prefab is one decoded file. Root is detached from any scene.
type Prefab struct {
	Path string
	Name string
	Root *engine.GameObject
}

type Loader struct {
	Models ModelSource
	Logger *slog.Logger
}

func NewLoader(models ModelSource, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Models: models, Logger: logger}
}

// --- Color mapping ---

var colorByName = map[string]rl.Color{
	"Red":       rl.Red,
	"Blue":      rl.Blue,
	"DarkBlue":  rl.DarkBlue,
	"Green":     rl.Green,
	"DarkGreen": rl.DarkGreen,
	"Purple":    rl.Purple,
	"Orange":    rl.Orange,
	"Yellow":    rl.Yellow,
	"Pink":      rl.Pink,
	"SkyBlue":   rl.SkyBlue,
	"Lime":      rl.Lime,
	"Magenta":   rl.Magenta,
	"White":     rl.White,
	"LightGray": rl.LightGray,
	"Gray":      rl.Gray,
	"DarkGray":  rl.DarkGray,
	"Black":     rl.Black,
	"Brown":     rl.Brown,
	"Beige":     rl.Beige,
	"Maroon":    rl.Maroon,
	"Gold":      rl.Gold,
}

// LookupColor resolves a raylib colour name or #rrggbb[aa]. Anything else is white.
func LookupColor(name string) rl.Color {
	if c, ok := colorByName[name]; ok {
		return c
	}
	hex := strings.TrimPrefix(name, "#")
	if hex == name {
		return rl.White
	}
	var r, g, b uint8
	a := uint8(255)
	switch len(hex) {
	case 6:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
			return rl.White
		}
	case 8:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
			return rl.White
		}
	default:
		return rl.White
	}
	return rl.NewColor(r, g, b, a)
}

// --- Loading ---

func (l *Loader) Load(path string) (*Prefab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefab: %w", err)
	}
	root, err := l.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	name := root.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		root.Name = name
	}
	return &Prefab{Path: path, Name: name, Root: root}, nil
}

func (l *Loader) Decode(data []byte) (*engine.GameObject, error) {
	var def ObjectDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse prefab: %w", err)
	}
	return l.build(def)
}

// LoadDir loads every *.json file in dir, sorted by name. Files that fail
// are skipped and reported together in the returned error.
func (l *Loader) LoadDir(dir string) ([]*Prefab, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read prefab dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		out  []*Prefab
		errs []error
	)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		p, err := l.Load(filepath.Join(dir, e.Name()))
		if err != nil {
			l.Logger.Warn("Skipping prefab", "file", e.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

func (l *Loader) build(def ObjectDef) (*engine.GameObject, error) {
	g := engine.NewGameObject(def.Name)
	g.Tags = def.Tags
	if def.Active != nil {
		g.Active = *def.Active
	}
	g.Transform.Position = vec(def.Position)
	g.Transform.Rotation = vec(def.Rotation)
	// Default scale to 1 if zero
	if def.Scale != [3]float32{} {
		g.Transform.Scale = vec(def.Scale)
	}

	for _, raw := range def.Components {
		var header componentHeader
		if err := json.Unmarshal(raw, &header); err != nil {
			return nil, fmt.Errorf("object %q: component header: %w", def.Name, err)
		}

		switch header.Type {
		case "MeshRenderer":
			if err := loadMeshRenderer(g, raw); err != nil {
				return nil, fmt.Errorf("object %q: %w", def.Name, err)
			}
		case "ModelRenderer":
			if err := l.loadModelRenderer(g, raw); err != nil {
				return nil, fmt.Errorf("object %q: %w", def.Name, err)
			}
		default:
			l.Logger.Debug("Ignoring prefab component", "object", def.Name, "type", header.Type)
		}
	}

	for _, childDef := range def.Children {
		child, err := l.build(childDef)
		if err != nil {
			return nil, err
		}
		g.AddChild(child)
	}
	return g, nil
}

func loadMeshRenderer(g *engine.GameObject, raw json.RawMessage) error {
	var def meshRendererDef
	if err := json.Unmarshal(raw, &def); err != nil {
		return fmt.Errorf("mesh renderer: %w", err)
	}

	var mesh components.MeshType
	switch def.Mesh {
	case "cube", "":
		mesh = components.MeshCube
	case "sphere":
		mesh = components.MeshSphere
	case "plane":
		mesh = components.MeshPlane
	default:
		return fmt.Errorf("mesh renderer: unknown mesh %q", def.Mesh)
	}

	r := components.NewMeshRenderer(mesh, LookupColor(def.Color), vec(def.Size))
	r.Offset = vec(def.Offset)
	if def.Enabled != nil {
		r.Enabled = *def.Enabled
	}
	g.AddComponent(r)
	return nil
}

func (l *Loader) loadModelRenderer(g *engine.GameObject, raw json.RawMessage) error {
	var def modelRendererDef
	if err := json.Unmarshal(raw, &def); err != nil {
		return fmt.Errorf("model renderer: %w", err)
	}
	if l.Models == nil {
		return fmt.Errorf("%w: %s", ErrNoModelSource, def.Model)
	}
	model, err := l.Models.LoadModel(def.Model)
	if err != nil {
		return fmt.Errorf("model renderer: %w", err)
	}

	r := components.NewModelRenderer(model, def.Model, LookupColor(def.Color))
	if def.Enabled != nil {
		r.Enabled = *def.Enabled
	}
	g.AddComponent(r)
	return nil
}

func vec(v [3]float32) rl.Vector3 {
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}
}
