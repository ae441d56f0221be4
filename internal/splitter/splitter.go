// Package splitter cuts dual-page scans into archival page images. Each
// record becomes one or two operations that run on a bounded worker pool;
// an operation that fails or times out never affects its siblings.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/lehigh-university-libraries/pagesplit/internal/imaging"
	"github.com/lehigh-university-libraries/pagesplit/internal/models"
	"github.com/lehigh-university-libraries/pagesplit/internal/naming"
)

const (
	DefaultWorkers = 4
	DefaultTimeout = 2 * time.Minute

	partialPrefix = ".partial-"
)

// ErrDuplicateTarget marks an operation whose target another operation already claimed.
var ErrDuplicateTarget = errors.New("target already claimed by another page")

// Transformer performs the file operations behind a split
type Transformer interface {
	Crop(ctx context.Context, req imaging.CropRequest) error
	Copy(ctx context.Context, src, dst string) error
}

// Orchestrator plans and runs the split of a record set
type Orchestrator struct {
	Transformer Transformer
	Normalizer  *naming.Normalizer
	Workers     int
	Timeout     time.Duration
	CropPercent int
	Force       bool      // redo operations whose target already exists
	Progress    io.Writer // progress bar output; nil disables it
}

// New returns an Orchestrator with default pool size and timeout
func New(t Transformer, n *naming.Normalizer) *Orchestrator {
	return &Orchestrator{
		Transformer: t,
		Normalizer:  n,
		Workers:     DefaultWorkers,
		Timeout:     DefaultTimeout,
		CropPercent: imaging.DefaultCropPercent,
	}
}

// Plan resolves records against sourceDir and returns the operations that
// would write into targetDir. Records whose source image is absent or that
// carry no page labels produce no operations.
func (o *Orchestrator) Plan(records []models.Record, sourceDir, targetDir string) ([]Operation, Summary) {
	var ops []Operation
	var summary Summary

	for _, record := range records {
		source := filepath.Join(sourceDir, record.ImageName(o.extension()))
		if !isRegularFile(source) {
			summary.SourceMissing++
			continue
		}

		if len(record.PageLabels) == 0 {
			summary.NoLabels++
			continue
		}

		if !record.Splittable() {
			label := record.FallbackLabel()
			if len(record.PageLabels) > 2 {
				slog.Warn("Record has more than two page labels, copying the scan as a single page",
					"record", record.SourceName, "labels", record.PageLabels, "page", label)
			}
			ops = append(ops, Operation{
				Record: record.SourceName,
				Kind:   KindCopy,
				Label:  label,
				Source: source,
				Target: filepath.Join(targetDir, o.Normalizer.Normalize(label)),
			})
			continue
		}

		for i, side := range []imaging.Side{imaging.Recto, imaging.Verso} {
			label := record.PageLabels[i]
			ops = append(ops, Operation{
				Record: record.SourceName,
				Kind:   KindCrop,
				Side:   side,
				Label:  label,
				Source: source,
				Target: filepath.Join(targetDir, o.Normalizer.Normalize(label)),
			})
		}
	}

	return ops, summary
}

// Split cuts every record with a source image in sourceDir into page images
// under targetDir and waits for all operations to finish. It only returns an
// error when targetDir cannot be created; per-operation outcomes are in the
// summary. Cancelling ctx stops operations that have not started yet.
func (o *Orchestrator) Split(ctx context.Context, records []models.Record, sourceDir, targetDir string) (Summary, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return Summary{}, fmt.Errorf("failed to create target directory: %w", err)
	}

	ops, summary := o.Plan(records, sourceDir, targetDir)
	slog.Info("Splitting pages", "records", len(records), "operations", len(ops), "source_missing", summary.SourceMissing, "workers", o.workers())

	bar := o.progressBar(len(ops))
	summary.Results = make([]Result, len(ops))

	claimed := make(map[string]bool, len(ops))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, o.workers())

	for i, op := range ops {
		if claimed[op.Target] {
			summary.Results[i] = Result{Operation: op, Status: StatusFailed, Err: ErrDuplicateTarget}
			logResult(summary.Results[i])
			_ = bar.Add(1)
			continue
		}
		claimed[op.Target] = true

		wg.Add(1)
		go func(idx int, op Operation) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			if ctx.Err() != nil {
				summary.Results[idx] = Result{Operation: op, Status: StatusCanceled, Err: ctx.Err()}
			} else {
				summary.Results[idx] = o.run(ctx, op)
			}
			logResult(summary.Results[idx])
			_ = bar.Add(1)
		}(i, op)
	}

	wg.Wait()
	_ = bar.Finish()

	slog.Info("Split finished",
		"done", summary.Count(StatusDone),
		"skipped", summary.Count(StatusSkipped),
		"failed", summary.Count(StatusFailed),
		"timed_out", summary.Count(StatusTimeout),
		"canceled", summary.Count(StatusCanceled))

	return summary, nil
}

// run executes one operation under its own deadline. The transformer writes
// to a hidden partial file that is renamed onto the target only on success.
func (o *Orchestrator) run(ctx context.Context, op Operation) Result {
	start := time.Now()
	result := Result{Operation: op}

	if !o.Force && isRegularFile(op.Target) {
		result.Status = StatusSkipped
		return result
	}

	partial := filepath.Join(filepath.Dir(op.Target), partialPrefix+filepath.Base(op.Target))

	// In-flight work is not interrupted by ctx; only the per-operation
	// timeout bounds it.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout())
	defer cancel()

	var abandoned atomic.Bool
	done := make(chan error, 1)
	settled := make(chan struct{})
	go func() {
		defer close(settled)
		err := o.execute(opCtx, op, partial)
		// a transformer that outlives its deadline may still have written
		if abandoned.Load() {
			os.Remove(partial)
		}
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-opCtx.Done():
		err = opCtx.Err()
		abandoned.Store(true)
	}
	result.Duration = time.Since(start)

	if err == nil {
		err = os.Rename(partial, op.Target)
	}

	if err != nil {
		os.Remove(partial)
		result.Err = err
		result.Status = StatusFailed
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			result.Status = StatusTimeout
		}
		if abandoned.Load() {
			o.settle(op, settled)
		}
		return result
	}

	result.Status = StatusDone
	return result
}

// settle holds the worker slot until an abandoned transformer returns, for at
// most one more timeout, so stragglers cannot pile up beyond Workers.
func (o *Orchestrator) settle(op Operation, settled <-chan struct{}) {
	grace := time.NewTimer(o.timeout())
	defer grace.Stop()

	select {
	case <-settled:
	case <-grace.C:
		slog.Warn("Abandoned operation still running, releasing its worker slot",
			"record", op.Record, "target", filepath.Base(op.Target))
	}
}

func (o *Orchestrator) execute(ctx context.Context, op Operation, target string) error {
	switch op.Kind {
	case KindCopy:
		return o.Transformer.Copy(ctx, op.Source, target)
	case KindCrop:
		return o.Transformer.Crop(ctx, imaging.CropRequest{
			Source:  op.Source,
			Target:  target,
			Side:    op.Side,
			Percent: o.CropPercent,
		})
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func (o *Orchestrator) progressBar(total int) *progressbar.ProgressBar {
	w := o.Progress
	if w == nil || total == 0 {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Splitting pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

func (o *Orchestrator) extension() string {
	if o.Normalizer.Extension == "" {
		return naming.DefaultExtension
	}
	return o.Normalizer.Extension
}

func (o *Orchestrator) workers() int {
	if o.Workers < 1 {
		return DefaultWorkers
	}
	return o.Workers
}

func (o *Orchestrator) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func logResult(r Result) {
	attrs := []any{"record", r.Record, "kind", r.Kind, "target", filepath.Base(r.Target)}
	if r.Side != "" {
		attrs = append(attrs, "side", r.Side)
	}

	switch r.Status {
	case StatusDone:
		slog.Debug("Created page image", append(attrs, "duration", r.Duration)...)
	case StatusSkipped:
		slog.Debug("Page image already exists", attrs...)
	case StatusTimeout:
		slog.Warn("Operation timed out", append(attrs, "error", r.Err)...)
	case StatusCanceled:
		slog.Warn("Operation canceled", attrs...)
	default:
		slog.Error("Operation failed", append(attrs, "error", r.Err)...)
	}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
