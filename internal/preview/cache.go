package preview

import (
	"context"
	"image"
	"log/slog"

	"prefabpreview/internal/engine"
)

// Persister is an optional second cache level keyed by a stable string.
// LoadImage returns nil, nil for a miss.
type Persister interface {
	LoadImage(key string) (*image.NRGBA, error)
	SaveImage(key string, img *image.NRGBA) error
}

// DefaultCacheConfig is the browser thumbnail setup: transparent, fit inside
// 512x512.
func DefaultCacheConfig() *Config {
	cfg := DefaultConfig()
	cfg.Sizing = FitWithinBox(512, 512)
	return cfg
}

// Cache keeps one preview per object. Entries are filled when a capture
// resolves, so deferred configs populate it on a later frame.
type Cache struct {
	engine *Engine
	config *Config
	logger *slog.Logger

	entries map[uint64]*Result
	pending map[uint64]struct{}

	persist Persister
	keyFn   func(*engine.GameObject) string
}

// NewCache captures with cfg, or DefaultCacheConfig when cfg is nil.
func NewCache(e *Engine, cfg *Config) *Cache {
	if cfg == nil {
		cfg = DefaultCacheConfig()
	}
	return &Cache{
		engine:  e,
		config:  cfg,
		logger:  e.logger,
		entries: make(map[uint64]*Result),
		pending: make(map[uint64]struct{}),
	}
}

// WithPersister adds p as a second level. key names an object for p; an
// empty key skips persistence for that object.
func (c *Cache) WithPersister(p Persister, key func(*engine.GameObject) string) *Cache {
	c.persist = p
	c.keyFn = key
	return c
}

// Get returns the cached preview of target. On a miss with canCreate set it
// tries the persister, then starts a capture. A nil return means there is no
// preview yet.
func (c *Cache) Get(ctx context.Context, target *engine.GameObject, canCreate bool) *Result {
	if target == nil || target.Destroyed() {
		return nil
	}
	if res, ok := c.entries[target.UID]; ok {
		return res
	}
	if !canCreate {
		return nil
	}
	if _, waiting := c.pending[target.UID]; waiting {
		return nil
	}

	key := c.key(target)
	if res := c.load(key); res != nil {
		c.entries[target.UID] = res
		return res
	}

	uid := target.UID
	chained := c.config.OnCaptured
	cfg := c.config.WithCaptured(func(res *Result) {
		delete(c.pending, uid)
		if res != nil {
			c.entries[uid] = res
			c.save(key, res)
		}
		if chained != nil {
			chained(res)
		}
	})

	c.pending[uid] = struct{}{}
	res, err := c.engine.Capture(ctx, target, cfg)
	if err != nil {
		delete(c.pending, uid)
		c.logger.Warn("Preview cache capture rejected", "target", target.Name, "error", err)
		return nil
	}
	return res
}

func (c *Cache) key(target *engine.GameObject) string {
	if c.persist == nil || c.keyFn == nil {
		return ""
	}
	return c.keyFn(target)
}

func (c *Cache) load(key string) *Result {
	if key == "" {
		return nil
	}
	img, err := c.persist.LoadImage(key)
	if err != nil {
		c.logger.Warn("Could not load stored preview", "key", key, "error", err)
		return nil
	}
	if img == nil {
		return nil
	}
	b := img.Bounds()
	return &Result{
		Image:       img,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Filter:      c.config.Filter,
		Transparent: c.config.Background.IsTransparent(),
		Slot:        -1,
	}
}

func (c *Cache) save(key string, res *Result) {
	if key == "" || res.Image == nil {
		return
	}
	if err := c.persist.SaveImage(key, res.Image); err != nil {
		c.logger.Warn("Could not store preview", "key", key, "error", err)
	}
}

// Remove drops the preview of target so the next Get captures again.
func (c *Cache) Remove(target *engine.GameObject) {
	if target == nil {
		return
	}
	delete(c.entries, target.UID)
}

// Clear drops every cached preview. Captures still in flight will refill
// their entries when they resolve.
func (c *Cache) Clear() {
	clear(c.entries)
}

func (c *Cache) Len() int {
	return len(c.entries)
}
