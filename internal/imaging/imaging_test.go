package imaging

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

// mockExecutor records the last command and returns configured responses.
type mockExecutor struct {
	name   string
	args   []string
	stderr string
	err    error
	block  bool
}

func (m *mockExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	m.name = name
	m.args = args
	if m.block {
		<-ctx.Done()
		return "", errors.New("signal: killed")
	}
	return m.stderr, m.err
}

func TestCropArgs(t *testing.T) {
	tests := []struct {
		name     string
		req      CropRequest
		expected []string
	}{
		{
			name:     "recto anchors west",
			req:      CropRequest{Source: "in.tif", Target: "out.tif", Side: Recto},
			expected: []string{"in.tif", "-gravity", "West", "-crop", "55%x100%+0+0", "+repage", "out.tif"},
		},
		{
			name:     "verso anchors east",
			req:      CropRequest{Source: "in.tif", Target: "out.tif", Side: Verso, Percent: 60},
			expected: []string{"in.tif", "-gravity", "East", "-crop", "60%x100%+0+0", "+repage", "out.tif"},
		},
		{
			name:     "out of range percent falls back to default",
			req:      CropRequest{Source: "in.tif", Target: "out.tif", Side: Recto, Percent: 150},
			expected: []string{"in.tif", "-gravity", "West", "-crop", "55%x100%+0+0", "+repage", "out.tif"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CropArgs(tt.req))
		})
	}
}

func TestMagickCrop(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		exec := &mockExecutor{}
		m := &Magick{Bin: "magick", exec: exec}

		err := m.Crop(context.Background(), CropRequest{Source: "a.tif", Target: "b.tif", Side: Verso})
		require.NoError(t, err)
		assert.Equal(t, "magick", exec.name)
		assert.Equal(t, "East", exec.args[2])
	})

	t.Run("failure includes stderr", func(t *testing.T) {
		exec := &mockExecutor{stderr: "convert: unable to open image\n", err: errors.New("exit status 1")}
		m := &Magick{Bin: "convert", exec: exec}

		err := m.Crop(context.Background(), CropRequest{Source: "a.tif", Target: "b.tif", Side: Recto})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to open image")
		assert.Contains(t, err.Error(), "exit status 1")
	})

	t.Run("deadline reported as context error", func(t *testing.T) {
		m := &Magick{Bin: "convert", exec: &mockExecutor{block: true}}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := m.Crop(ctx, CropRequest{Source: "a.tif", Target: "b.tif", Side: Recto})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewMagickDefaults(t *testing.T) {
	assert.Equal(t, DefaultBin, NewMagick("").Bin)
	assert.Equal(t, "magick", NewMagick("magick").Bin)
}

func TestCropRect(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)

	assert.Equal(t, image.Rect(0, 0, 110, 100), CropRect(bounds, Recto, 55))
	assert.Equal(t, image.Rect(90, 0, 200, 100), CropRect(bounds, Verso, 55))

	offset := image.Rect(10, 5, 110, 55)
	assert.Equal(t, image.Rect(10, 5, 65, 55), CropRect(offset, Recto, 55))
	assert.Equal(t, image.Rect(55, 5, 110, 55), CropRect(offset, Verso, 55))
}

// spread builds a scan whose left half is red and right half is blue.
func spread(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func writeTIFF(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	return img
}

func TestNativeCrop(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "spread.tif")
	writeTIFF(t, src, spread(200, 40))

	n := NewNative()

	recto := filepath.Join(dir, "recto.tif")
	require.NoError(t, n.Crop(context.Background(), CropRequest{Source: src, Target: recto, Side: Recto, Percent: 55}))
	left := decodeFile(t, recto)
	assert.Equal(t, 110, left.Bounds().Dx())
	assert.Equal(t, 40, left.Bounds().Dy())
	r, _, b, _ := left.At(left.Bounds().Min.X, left.Bounds().Min.Y).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), b)

	verso := filepath.Join(dir, "verso.png")
	require.NoError(t, n.Crop(context.Background(), CropRequest{Source: src, Target: verso, Side: Verso, Percent: 55}))
	right := decodeFile(t, verso)
	assert.Equal(t, 110, right.Bounds().Dx())
	r, _, b, _ = right.At(right.Bounds().Max.X-1, right.Bounds().Min.Y).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0xffff), b)
}

func TestNativeCropRejectsNonImages(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.tif")
	require.NoError(t, os.WriteFile(src, []byte("plain text, not a scan"), 0644))

	err := NewNative().Crop(context.Background(), CropRequest{Source: src, Target: filepath.Join(dir, "out.tif"), Side: Recto})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported source image type")
	assert.NoFileExists(t, filepath.Join(dir, "out.tif"))
}

func TestNativeCropHonoursCancelledContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "spread.png")
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, spread(20, 10)))
	require.NoError(t, f.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := filepath.Join(dir, "out.png")
	err = NewNative().Crop(ctx, CropRequest{Source: src, Target: target, Side: Recto})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoFileExists(t, target)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "single.tif")
	require.NoError(t, os.WriteFile(src, []byte("scan bytes"), 0644))

	dst := filepath.Join(dir, "BOOK.012r.tif")
	require.NoError(t, CopyFile(context.Background(), src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "scan bytes", string(data))
}

func TestCopyFileCancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "single.tif")
	require.NoError(t, os.WriteFile(src, []byte("scan bytes"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := filepath.Join(dir, "out.tif")
	assert.ErrorIs(t, CopyFile(ctx, src, dst), context.Canceled)
	assert.NoFileExists(t, dst)
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, CopyFile(context.Background(), filepath.Join(dir, "missing.tif"), filepath.Join(dir, "out.tif")))
}
