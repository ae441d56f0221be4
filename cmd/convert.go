package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pagesplit/internal/sheet"
)

func newConvertCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert the metadata spreadsheet to CSV or Parquet",
		Long: `Convert the metadata spreadsheet into a CSV (default) or Parquet file next to it.

Short rows are padded to the widest row. An existing output file is never
overwritten.`,
		Example: `  pagesplit convert
  pagesplit convert --metadata "Ha2 files list.xlsx" --format parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := sheet.Format(format)
			if f != sheet.FormatCSV && f != sheet.FormatParquet {
				return fmt.Errorf("unknown format %q (want csv or parquet)", format)
			}

			out, err := sheet.Convert(opts.cfg.MetadataPath(), f)
			if err != nil {
				return err
			}
			fmt.Printf("Converted %s to %s\n", opts.cfg.MetadataPath(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(sheet.FormatCSV), "Output format (csv or parquet)")

	return cmd
}
