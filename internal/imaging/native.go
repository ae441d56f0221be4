package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/tiff"
)

var nativeTypes = []string{"image/tiff", "image/png", "image/jpeg"}

// Native crops spreads in process. It needs no external tools but holds
// the whole decoded scan in memory.
type Native struct{}

// NewNative returns the in-process backend
func NewNative() *Native {
	return &Native{}
}

type encoded struct {
	data []byte
	err  error
}

// Crop decodes req.Source, keeps the requested share of its width and
// encodes the page in the format implied by req.Target's extension. The
// decode runs in the background so a ctx deadline bounds the wait; nothing
// is written once ctx is done.
func (n *Native) Crop(ctx context.Context, req CropRequest) error {
	done := make(chan encoded, 1)
	go func() {
		data, err := cropToBytes(req)
		done <- encoded{data: data, err: err}
	}()

	var res encoded
	select {
	case <-ctx.Done():
		return fmt.Errorf("native %s crop of %s: %w", req.Side, req.Source, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return fmt.Errorf("native %s crop of %s: %w", req.Side, req.Source, res.err)
	}

	if err := os.WriteFile(req.Target, res.data, 0644); err != nil {
		return fmt.Errorf("failed to write page image: %w", err)
	}
	return nil
}

// Copy duplicates a single-page scan under its new name
func (n *Native) Copy(ctx context.Context, src, dst string) error {
	return CopyFile(ctx, src, dst)
}

func cropToBytes(req CropRequest) ([]byte, error) {
	mtype, err := mimetype.DetectFile(req.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to sniff source image: %w", err)
	}
	if !mimetype.EqualsAny(mtype.String(), nativeTypes...) {
		return nil, fmt.Errorf("unsupported source image type %s", mtype.String())
	}

	f, err := os.Open(req.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open source image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	page := CropImage(src, req.Side, req.percent())

	var buf bytes.Buffer
	if err := encode(&buf, page, req.Target); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CropRect returns the part of bounds kept for side: percent of the width,
// anchored on the west edge for recto and the east edge for verso, full height.
func CropRect(bounds image.Rectangle, side Side, percent int) image.Rectangle {
	width := bounds.Dx() * percent / 100
	if width < 1 && bounds.Dx() > 0 {
		width = 1
	}
	if side == Verso {
		return image.Rect(bounds.Max.X-width, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+width, bounds.Max.Y)
}

// CropImage returns the page of img selected by side and percent
func CropImage(img image.Image, side Side, percent int) image.Image {
	rect := CropRect(img.Bounds(), side, percent)

	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

func encode(buf *bytes.Buffer, img image.Image, target string) error {
	switch strings.ToLower(filepath.Ext(target)) {
	case ".tif", ".tiff":
		return tiff.Encode(buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case ".png":
		return png.Encode(buf, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: 95})
	default:
		return fmt.Errorf("no encoder for %s", target)
	}
}
