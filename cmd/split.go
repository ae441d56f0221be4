package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pagesplit/internal/config"
	"github.com/lehigh-university-libraries/pagesplit/internal/imaging"
	"github.com/lehigh-university-libraries/pagesplit/internal/metadata"
	"github.com/lehigh-university-libraries/pagesplit/internal/naming"
	"github.com/lehigh-university-libraries/pagesplit/internal/report"
	"github.com/lehigh-university-libraries/pagesplit/internal/splitter"
)

func newSplitCmd(opts *options) *cobra.Command {
	var backend string
	var workers int
	var timeout time.Duration
	var pagesDir string
	var cropPercent int
	var force bool
	var reportPath string
	var noReport bool
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split dual-page scans into named page images",
		Long: `Split every scan listed in the metadata spreadsheet into page images.

Scans whose page labels name two pages are cropped into recto (left) and verso
(right) images. Scans with a single page, or with a "none" slot, are copied under
the name of their one real page. Existing page images are kept unless --force is
given. Each operation runs under its own timeout; a slow or broken scan never
affects the others.`,
		Example: `  # Split with ImageMagick using the settings in pagesplit.yaml
  pagesplit split --book-id Ha2

  # Use the built-in Go image backend with 8 workers
  pagesplit split --book-id Ha2 --backend native --workers 8

  # Write the YAML report of every operation somewhere else
  pagesplit split --book-id Ha2 --report split-report.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			flags := cmd.Flags()
			if flags.Changed("backend") {
				cfg.Backend = backend
			}
			if flags.Changed("workers") {
				cfg.Threads = workers
			}
			if flags.Changed("timeout") {
				cfg.OperationTimeout = timeout
			}
			if flags.Changed("pages-dir") {
				cfg.PagesDir = pagesDir
			}
			if flags.Changed("crop-percent") {
				cfg.CropPercent = cropPercent
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.RequireBookID(); err != nil {
				return err
			}

			transformer, err := newTransformer(cfg)
			if err != nil {
				return err
			}

			records, err := metadata.NewLoader(cfg.MetadataPath(), cfg.PageDelimiter).Load(cmd.Context())
			if err != nil {
				return err
			}

			normalizer := &naming.Normalizer{BookID: cfg.BookID, Extension: cfg.Extension}
			orchestrator := splitter.New(transformer, normalizer)
			orchestrator.Workers = cfg.Threads
			orchestrator.Timeout = cfg.OperationTimeout
			orchestrator.CropPercent = cfg.CropPercent
			orchestrator.Force = force
			if !noProgress {
				orchestrator.Progress = os.Stderr
			}

			started := time.Now()
			summary, err := orchestrator.Split(cmd.Context(), records, cfg.OutputDir, cfg.PagesPath())
			if err != nil {
				return err
			}

			printSplitSummary(summary, cfg.PagesPath(), time.Since(started))

			if path := reportFile(reportPath, noReport, cfg.OutputDir, "split", started); path != "" {
				run := report.Run{Config: report.RunConfig{
					Command:   "split",
					BookID:    cfg.BookID,
					SourceDir: cfg.OutputDir,
					TargetDir: cfg.PagesPath(),
					Metadata:  cfg.MetadataPath(),
					Backend:   cfg.Backend,
					Workers:   cfg.Threads,
					Timeout:   cfg.OperationTimeout.String(),
					Timestamp: report.Timestamp(started),
				}}
				run.AddSplit(summary)
				if err := report.Write(path, run); err != nil {
					return err
				}
				fmt.Printf("\nReport saved to: %s\n", path)
			}

			if summary.HasFailures() {
				return fmt.Errorf("%d page operations failed or timed out", len(summary.Failures()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", config.BackendMagick, "Image backend (magick or native)")
	cmd.Flags().IntVar(&workers, "workers", splitter.DefaultWorkers, "Number of concurrent page operations")
	cmd.Flags().DurationVar(&timeout, "timeout", splitter.DefaultTimeout, "Timeout for a single page operation")
	cmd.Flags().StringVar(&pagesDir, "pages-dir", "", "Directory for page images (default <output-dir>/pages)")
	cmd.Flags().IntVar(&cropPercent, "crop-percent", imaging.DefaultCropPercent, "Width of each page as a percentage of the spread")
	cmd.Flags().BoolVar(&force, "force", false, "Recreate page images that already exist")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the YAML report to this path (default <output-dir>/reports/split-<timestamp>.yaml)")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "Do not write a YAML report")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

// reportFile picks where a run report goes. An explicit path wins; otherwise
// reports are kept under <dir>/reports.
func reportFile(path string, disabled bool, dir, command string, started time.Time) string {
	if disabled {
		return ""
	}
	if path != "" {
		return path
	}
	return report.Filename(dir, command, started)
}

func newTransformer(cfg *config.Config) (splitter.Transformer, error) {
	switch cfg.Backend {
	case config.BackendNative:
		return imaging.NewNative(), nil
	default:
		magick := imaging.NewMagick(cfg.ConvertBin)
		if err := magick.Available(); err != nil {
			return nil, fmt.Errorf("%w (install ImageMagick or use --backend native)", err)
		}
		return magick, nil
	}
}

func printSplitSummary(summary splitter.Summary, pagesDir string, elapsed time.Duration) {
	fmt.Printf("\nSplit Summary\n")
	fmt.Printf("=============\n")
	fmt.Printf("Pages created:      %d\n", summary.Count(splitter.StatusDone))
	fmt.Printf("Already present:    %d\n", summary.Count(splitter.StatusSkipped))
	fmt.Printf("Failed:             %d\n", summary.Count(splitter.StatusFailed))
	fmt.Printf("Timed out:          %d\n", summary.Count(splitter.StatusTimeout))
	if n := summary.Count(splitter.StatusCanceled); n > 0 {
		fmt.Printf("Canceled:           %d\n", n)
	}
	fmt.Printf("Scans not found:    %d\n", summary.SourceMissing)
	fmt.Printf("Scans w/o labels:   %d\n", summary.NoLabels)
	fmt.Printf("Elapsed:            %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Output:             %s\n", pagesDir)

	failures := summary.Failures()
	if len(failures) == 0 {
		return
	}

	fmt.Printf("\nFailed operations:\n")
	for _, f := range failures {
		slog.Debug("Failed operation", "record", f.Record, "target", f.Target, "error", f.Err)
		fmt.Printf("  %s %s -> %s: %v\n", f.Record, f.Kind, f.Target, f.Err)
	}
}
