package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pagesplit/internal/download"
	"github.com/lehigh-university-libraries/pagesplit/internal/listing"
	"github.com/lehigh-university-libraries/pagesplit/internal/metadata"
	"github.com/lehigh-university-libraries/pagesplit/internal/reconcile"
	"github.com/lehigh-university-libraries/pagesplit/internal/report"
)

func newCheckCmd(opts *options) *cobra.Command {
	var reportPath string
	var noReport bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that every scan in the metadata has been downloaded",
		Long: `Check the output directory against the metadata spreadsheet.

Every scan named in the spreadsheet must be present in the output directory.
Missing scans are downloaded again from the shared-folder listing; scans that
are still missing afterwards are reported and the command exits non-zero.`,
		Example: `  # Check and repair downloads
  pagesplit check --base-url "https://www.dropbox.com/sh/..."

  # Only report, do not download
  pagesplit check --offline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			ctx := cmd.Context()
			fmt.Println("Checking downloaded files.")

			records, err := metadata.NewLoader(cfg.MetadataPath(), cfg.PageDelimiter).Load(ctx)
			if err != nil {
				return err
			}

			checker := &reconcile.Checker{}
			if !offline {
				if err := cfg.RequireBaseURL(); err != nil {
					return err
				}
				checker.Fetcher = &listingFetcher{
					client:   download.NewClient(cfg.OutputDir, nil, cfg.Timeout),
					pageURL:  cfg.BaseURL,
					selector: cfg.Selector,
				}
			}

			started := time.Now()
			misses := checker.Check(ctx, records, cfg.OutputDir)

			if path := reportFile(reportPath, noReport, cfg.OutputDir, "check", started); path != "" {
				run := report.Run{Config: report.RunConfig{
					Command:   "check",
					SourceDir: cfg.OutputDir,
					Metadata:  cfg.MetadataPath(),
					Timestamp: report.Timestamp(started),
				}}
				run.AddMisses(misses)
				if err := report.Write(path, run); err != nil {
					return err
				}
				fmt.Printf("Report saved to: %s\n", path)
			}

			if len(misses) == 0 {
				fmt.Printf("All %d scans are present in %s\n", len(records), cfg.OutputDir)
				return nil
			}

			for _, miss := range misses {
				fmt.Printf("Error: %v\n", miss)
			}
			return fmt.Errorf("%d of %d scans are missing", len(misses), len(records))
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write the YAML report to this path (default <output-dir>/reports/check-<timestamp>.yaml)")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "Do not write a YAML report")
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not try to download missing scans")

	return cmd
}

// listingFetcher reads the shared-folder listing the first time a scan has to
// be recovered. A listing that cannot be read fails each recovery on its own.
type listingFetcher struct {
	client   *download.Client
	pageURL  string
	selector string

	once sync.Once
	err  error
}

func (f *listingFetcher) Fetch(ctx context.Context, name string) error {
	f.once.Do(func() {
		files, err := listing.Fetch(ctx, f.client.HTTP, f.pageURL, f.selector)
		if err != nil {
			slog.Error("Unable to read shared-folder listing", "url", f.pageURL, "error", err)
			f.err = fmt.Errorf("listing unavailable: %w", err)
			return
		}
		f.client.Files = files
	})
	if f.err != nil {
		return f.err
	}
	return f.client.Fetch(ctx, name)
}
