package thumbstore

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"prefabpreview/internal/preview"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ preview.Persister = (*Store)(nil)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "thumbs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func checker(w, h int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: alpha})
			}
		}
	}
	return img
}

func TestKeyIsStable(t *testing.T) {
	a := Key("prefabs/crate.json", "fit(128x128)", "transparent")
	assert.Len(t, a, 32)
	assert.Equal(t, a, Key("prefabs/crate.json", "fit(128x128)", "transparent"))
	assert.NotEqual(t, a, Key("prefabs/crate.json", "fit(256x256)", "transparent"))
}

func TestPutGet(t *testing.T) {
	s := openStore(t)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	img := checker(4, 3, 128)
	require.NoError(t, s.Put(ctx, "crate", img))

	e, err := s.Get(ctx, "crate")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, img.Bounds(), e.Image.Bounds())
	assert.Equal(t, img.Pix, e.Image.Pix)
	assert.Equal(t, time.Unix(1700000000, 0), e.CreatedAt)
	assert.Positive(t, e.Size)

	missing, err := s.Get(ctx, "barrel")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOpaqueImagesRoundTrip(t *testing.T) {
	s := openStore(t)
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetNRGBA(1, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	require.NoError(t, s.SaveImage("opaque", img))
	got, err := s.LoadImage("opaque")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, img.Pix, got.Pix)
}

func TestPutReplaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "crate", checker(2, 2, 255)))
	require.NoError(t, s.Put(ctx, "crate", checker(8, 8, 255)))

	e, err := s.Get(ctx, "crate")
	require.NoError(t, err)
	assert.Equal(t, 8, e.Image.Bounds().Dx())

	count, _, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteClearStats(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, key, checker(4, 4, 255)))
	}

	count, size, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Positive(t, size)

	require.NoError(t, s.Delete(ctx, "b"))
	e, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, s.Clear(ctx))
	count, size, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(0), size)
}

func TestPutNilImage(t *testing.T) {
	s := openStore(t)
	assert.Error(t, s.Put(context.Background(), "x", nil))
}

func TestStoreBacksPreviewCache(t *testing.T) {
	s := openStore(t)
	img, err := s.LoadImage("absent")
	require.NoError(t, err)
	assert.Nil(t, img)
}
