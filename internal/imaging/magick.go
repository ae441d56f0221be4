package imaging

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBin is the ImageMagick command used when none is configured.
const DefaultBin = "convert"

// executor abstracts command execution for testing.
type executor interface {
	Run(ctx context.Context, name string, args ...string) (stderr string, err error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	return stderrBuf.String(), err
}

// Magick crops spreads by running ImageMagick once per page
type Magick struct {
	Bin  string
	exec executor
}

// NewMagick returns a Magick backend running bin (DefaultBin when empty)
func NewMagick(bin string) *Magick {
	if bin == "" {
		bin = DefaultBin
	}
	return &Magick{Bin: bin, exec: osExecutor{}}
}

// CropArgs returns the command line for req, without the binary
func CropArgs(req CropRequest) []string {
	return []string{
		req.Source,
		"-gravity", req.Side.Gravity(),
		"-crop", fmt.Sprintf("%d%%x100%%+0+0", req.percent()),
		"+repage",
		req.Target,
	}
}

// Crop cuts one page out of req.Source. A ctx deadline kills the process.
func (m *Magick) Crop(ctx context.Context, req CropRequest) error {
	stderr, err := m.exec.Run(ctx, m.Bin, CropArgs(req)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s crop of %s: %w", m.Bin, req.Side, req.Source, ctxErr)
		}
		if msg := strings.TrimSpace(stderr); msg != "" {
			return fmt.Errorf("%s %s crop of %s: %w: %s", m.Bin, req.Side, req.Source, err, msg)
		}
		return fmt.Errorf("%s %s crop of %s: %w", m.Bin, req.Side, req.Source, err)
	}
	return nil
}

// Copy duplicates a single-page scan under its new name
func (m *Magick) Copy(ctx context.Context, src, dst string) error {
	return CopyFile(ctx, src, dst)
}

// Available reports whether the ImageMagick binary is on PATH
func (m *Magick) Available() error {
	if _, err := exec.LookPath(m.Bin); err != nil {
		return fmt.Errorf("ImageMagick binary %q not found: %w", m.Bin, err)
	}
	return nil
}
