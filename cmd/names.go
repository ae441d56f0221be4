package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pagesplit/internal/metadata"
	"github.com/lehigh-university-libraries/pagesplit/internal/models"
	"github.com/lehigh-university-libraries/pagesplit/internal/naming"
)

func newNamesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Show the page image names each scan would produce",
		Long: `Print every scan of the metadata spreadsheet in sort order together with the
page image names a split would create. Nothing is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := cfg.RequireBookID(); err != nil {
				return err
			}

			records, err := metadata.NewLoader(cfg.MetadataPath(), cfg.PageDelimiter).Load(cmd.Context())
			if err != nil {
				return err
			}
			metadata.SortRecords(records)

			normalizer := &naming.Normalizer{BookID: cfg.BookID, Extension: cfg.Extension}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCAN\tLEFT\tRIGHT")
			for _, r := range records {
				left, right := pageNames(r, normalizer)
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.ImageName(cfg.Extension), left, right)
			}
			return w.Flush()
		},
	}

	return cmd
}

// pageNames mirrors the routing of a split: two crops, one copy or nothing
func pageNames(r models.Record, n *naming.Normalizer) (string, string) {
	switch {
	case len(r.PageLabels) == 0:
		return "-", "-"
	case r.Splittable():
		return n.Normalize(r.PageLabels[0]), n.Normalize(r.PageLabels[1])
	default:
		return n.Normalize(r.FallbackLabel()), "-"
	}
}
