package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restobar/config"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressDownscalesWideImages(t *testing.T) {
	out, err := Compress(bytes.NewReader(pngOf(t, 1600, 900)), 0, 0)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 450, cfg.Height)
}

func TestCompressKeepsSmallImages(t *testing.T) {
	out, err := Compress(bytes.NewReader(pngOf(t, 320, 200)), 800, 0.8)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestCompressRejectsGarbage(t *testing.T) {
	_, err := Compress(strings.NewReader("not an image"), 800, 0.8)
	assert.Error(t, err)
}

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/uploads/")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "products/../../a.jpg", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	require.NoError(t, s.Delete(context.Background(), "a.jpg"))
	require.NoError(t, s.Delete(context.Background(), "a.jpg"))

	_, err = s.Save(context.Background(), "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.UploadDir = t.TempDir()

	s, err := FromConfig(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	cfg.StorageBackend = "noop"
	s, err = FromConfig(&cfg)
	require.NoError(t, err)
	url, err := s.Save(context.Background(), "products/x.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/products/x.jpg", url)

	cfg.StorageBackend = "s3"
	_, err = FromConfig(&cfg)
	assert.Error(t, err)
}
