// Package download fetches scanned images and the metadata workbook from the
// remote file listing into the local download directory.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/pagesplit/internal/models"
)

// DefaultTimeout bounds a single HTTP transfer.
const DefaultTimeout = 30 * time.Second

// ErrNotFound is returned when the listing has no entry for a name.
var ErrNotFound = errors.New("no matching file in remote listing")

// Client downloads files from a remote listing into Dir
type Client struct {
	HTTP  *http.Client
	Dir   string
	Files []models.RemoteFile
}

// NewClient creates a client with a transfer timeout
func NewClient(dir string, files []models.RemoteFile, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTP: &http.Client{
			Timeout: timeout,
		},
		Dir:   dir,
		Files: files,
	}
}

// Status is the outcome of one file download.
type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusExists     Status = "exists"
	StatusFailed     Status = "failed"
)

// Result records what happened to one remote file
type Result struct {
	File   models.RemoteFile
	Path   string
	Status Status
	Err    error
}

// Fetch downloads every listed file whose base name equals name. Files that
// already exist locally are left untouched.
func (c *Client) Fetch(ctx context.Context, name string) error {
	var matched []models.RemoteFile
	for _, f := range c.Files {
		if f.BaseName() == name {
			matched = append(matched, f)
		}
	}
	if len(matched) == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	for _, f := range matched {
		if res := c.get(ctx, f); res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// FetchAll downloads the whole listing with at most threads concurrent
// transfers. A failed file does not stop the others; only cancelling ctx does.
func (c *Client) FetchAll(ctx context.Context, threads int, progress io.Writer) ([]Result, error) {
	if threads < 1 {
		threads = 1
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	w := progress
	if w == nil || len(c.Files) == 0 {
		w = io.Discard
	}
	bar := progressbar.NewOptions(len(c.Files),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Downloading files"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)

	results := make([]Result, len(c.Files))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(threads)

	for i, f := range c.Files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			res := c.get(egCtx, f)

			mu.Lock()
			results[i] = res
			mu.Unlock()

			if err := bar.Add(1); err != nil {
				slog.Debug("Failed to update progress bar", "error", err)
			}
			return nil
		})
	}

	err := eg.Wait()
	_ = bar.Finish()
	return results, err
}

// get downloads one file unless it is already present
func (c *Client) get(ctx context.Context, f models.RemoteFile) Result {
	path := filepath.Join(c.Dir, filepath.Base(f.Name))
	res := Result{File: f, Path: path}

	if _, err := os.Stat(path); err == nil {
		slog.Info("File already exists", "file", f.Name)
		res.Status = StatusExists
		return res
	}

	slog.Info("Downloading file", "file", f.Name, "url", f.URL)
	if err := c.downloadFile(ctx, f.URL, path); err != nil {
		slog.Error("Download failed", "file", f.Name, "error", err)
		res.Status = StatusFailed
		res.Err = fmt.Errorf("failed to download %s: %w", f.Name, err)
		return res
	}

	res.Status = StatusDownloaded
	return res
}

// downloadFile streams url into destPath through a temporary file
func (c *Client) downloadFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	out, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tempPath := out.Name()

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}

	slog.Debug("Download complete", "path", destPath, "bytes", written)
	return nil
}
