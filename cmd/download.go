package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pagesplit/internal/download"
	"github.com/lehigh-university-libraries/pagesplit/internal/listing"
)

func newDownloadCmd(opts *options) *cobra.Command {
	var threads int
	var imagesOnly bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download every file of the shared-folder listing",
		Long: `Download all files linked from the shared-folder listing into the output directory.

Preview links are rewritten into direct download links. Files that already exist
locally are skipped, so an interrupted download can simply be restarted.`,
		Example: `  pagesplit download --base-url "https://www.dropbox.com/sh/..." --threads 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			ctx := cmd.Context()
			if cmd.Flags().Changed("threads") {
				cfg.Threads = threads
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.RequireBaseURL(); err != nil {
				return err
			}

			client := download.NewClient(cfg.OutputDir, nil, cfg.Timeout)
			files, err := listing.Fetch(ctx, client.HTTP, cfg.BaseURL, cfg.Selector)
			if err != nil {
				return err
			}
			if imagesOnly {
				filtered := files[:0]
				for _, f := range files {
					if f.IsImage() || f.IsSpreadsheet() {
						filtered = append(filtered, f)
					}
				}
				files = filtered
			}
			client.Files = files

			results, err := client.FetchAll(ctx, cfg.Threads, os.Stderr)
			if err != nil {
				return fmt.Errorf("download interrupted: %w", err)
			}

			counts := map[download.Status]int{}
			for _, r := range results {
				counts[r.Status]++
			}
			fmt.Printf("\nDownloaded: %d, already present: %d, failed: %d\n",
				counts[download.StatusDownloaded], counts[download.StatusExists], counts[download.StatusFailed])

			if counts[download.StatusFailed] > 0 {
				for _, r := range results {
					if r.Err != nil {
						fmt.Printf("  %v\n", r.Err)
					}
				}
				return fmt.Errorf("%d downloads failed", counts[download.StatusFailed])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&threads, "threads", 4, "Number of concurrent downloads")
	cmd.Flags().BoolVar(&imagesOnly, "images-only", false, "Only download scans and metadata spreadsheets")

	return cmd
}
