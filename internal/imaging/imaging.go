// Package imaging cuts dual-page scans into single pages. Magick shells out
// to ImageMagick; Native does the same crop in process.
package imaging

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DefaultCropPercent is the share of the scan width kept for each page.
// Pages overlap in the gutter so neither loses text near the fold.
const DefaultCropPercent = 55

// Side selects which half of a spread a crop keeps.
type Side string

const (
	Recto Side = "recto" // left page, anchored on the west edge
	Verso Side = "verso" // right page, anchored on the east edge
)

// Gravity returns the ImageMagick gravity anchoring the crop
func (s Side) Gravity() string {
	if s == Verso {
		return "East"
	}
	return "West"
}

// CropRequest describes one page cut from a spread
type CropRequest struct {
	Source  string
	Target  string
	Side    Side
	Percent int
}

func (r CropRequest) percent() int {
	if r.Percent <= 0 || r.Percent > 100 {
		return DefaultCropPercent
	}
	return r.Percent
}

// CopyFile copies src to dst byte for byte, stopping early when ctx is done
func CopyFile(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source image: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create target image: %w", err)
	}

	_, copyErr := io.Copy(out, &ctxReader{ctx: ctx, r: in})
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to copy image: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to close target image: %w", closeErr)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
