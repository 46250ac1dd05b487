// Package thumbstore persists rendered previews as PNG blobs in sqlite.
package thumbstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS thumbnails (
	key        TEXT PRIMARY KEY,
	width      INTEGER NOT NULL,
	height     INTEGER NOT NULL,
	png        BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`

// Entry is one stored preview.
type Entry struct {
	Key       string
	Image     *image.NRGBA
	Size      int64 // encoded bytes
	CreatedAt time.Time
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Key hashes the parts that identify a preview: the source path plus
// whatever capture settings change the image.
func Key(parts ...string) string {
	hash := md5.Sum([]byte(strings.Join(parts, "_")))
	return hex.EncodeToString(hash[:])
}

// Open creates the database file and its directory if needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open thumbnail store: %w", err)
	}
	// one writer keeps sqlite from reporting SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create thumbnail schema: %w", err)
	}
	logger.Debug("Opened thumbnail store", "path", path)
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, key string, img *image.NRGBA) error {
	if img == nil {
		return errors.New("put thumbnail: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	b := img.Bounds()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO thumbnails (key, width, height, png, created_at) VALUES (?, ?, ?, ?, ?)`,
		key, b.Dx(), b.Dy(), buf.Bytes(), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store thumbnail %s: %w", key, err)
	}
	return nil
}

// Get returns nil, nil when key is not stored.
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	var (
		data    []byte
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT png, created_at FROM thumbnails WHERE key = ?`, key,
	).Scan(&data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load thumbnail %s: %w", key, err)
	}

	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail %s: %w", key, err)
	}
	return &Entry{
		Key:       key,
		Image:     img,
		Size:      int64(len(data)),
		CreatedAt: time.Unix(created, 0),
	}, nil
}

func decode(data []byte) (*image.NRGBA, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if n, ok := src.(*image.NRGBA); ok {
		return n, nil
	}
	// opaque images come back as RGB
	out := image.NewNRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM thumbnails WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete thumbnail %s: %w", key, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM thumbnails`); err != nil {
		return fmt.Errorf("clear thumbnails: %w", err)
	}
	return nil
}

// Stats reports the stored count and the total encoded size.
func (s *Store) Stats(ctx context.Context) (count int, totalSize int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(png)), 0) FROM thumbnails`,
	).Scan(&count, &totalSize)
	if err != nil {
		return 0, 0, fmt.Errorf("thumbnail stats: %w", err)
	}
	return count, totalSize, nil
}

// LoadImage and SaveImage let the store back a preview.Cache.

func (s *Store) LoadImage(key string) (*image.NRGBA, error) {
	e, err := s.Get(context.Background(), key)
	if err != nil || e == nil {
		return nil, err
	}
	return e.Image, nil
}

func (s *Store) SaveImage(key string, img *image.NRGBA) error {
	return s.Put(context.Background(), key, img)
}
