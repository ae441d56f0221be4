// Package reconcile verifies that every scan named in the metadata has been
// downloaded, fetching any that are missing.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/pagesplit/internal/models"
)

// Fetcher re-downloads a file by its base name
type Fetcher interface {
	Fetch(ctx context.Context, name string) error
}

// Error describes a record whose image is still missing after the recovery attempt
type Error struct {
	SourceName string `yaml:"source_name"`
	Dir        string `yaml:"dir"`
	Err        error  `yaml:"-"`
}

func (e Error) Error() string {
	msg := fmt.Sprintf("image specified in metadata [%s] does not exist in the path [%s]", e.SourceName, e.Dir)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e Error) Unwrap() error {
	return e.Err
}

// Checker compares metadata records with the download directory
type Checker struct {
	Fetcher Fetcher
}

// Check visits every record and returns one Error per record whose image is
// neither present in downloadDir nor recoverable through the Fetcher. An
// empty result means the directory is fully reconciled.
func (c *Checker) Check(ctx context.Context, records []models.Record, downloadDir string) []Error {
	present := baseNames(downloadDir)
	var errs []Error

	for _, record := range records {
		name := record.BaseName()
		if present[name] {
			continue
		}

		slog.Info("Trying to re-download file", "name", record.SourceName)
		err := c.fetch(ctx, name)
		if err == nil {
			present = baseNames(downloadDir)
			if present[name] {
				continue
			}
			err = fmt.Errorf("file still missing after download")
		}

		slog.Warn("Image missing", "name", record.SourceName, "dir", downloadDir, "error", err)
		errs = append(errs, Error{SourceName: record.SourceName, Dir: downloadDir, Err: err})
	}

	return errs
}

func (c *Checker) fetch(ctx context.Context, name string) error {
	if c.Fetcher == nil {
		return fmt.Errorf("no remote listing configured")
	}
	return c.Fetcher.Fetch(ctx, name)
}

// baseNames returns the set of entry names in dir cut at their first dot.
// An unreadable directory yields an empty set.
func baseNames(dir string) map[string]bool {
	names := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Debug("Cannot read download directory", "dir", dir, "error", err)
		return names
	}
	for _, entry := range entries {
		names[models.BaseName(entry.Name())] = true
	}
	return names
}
