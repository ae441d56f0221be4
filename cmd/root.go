package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pagesplit/internal/config"
)

// options is shared by every subcommand. cfg is populated in the root's
// PersistentPreRunE before any subcommand runs.
type options struct {
	configPath string
	verbose    bool

	outputDir string
	metadata  string
	bookID    string
	baseURL   string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pagesplit",
		Short: "Split dual-page book scans into named archival page images",
		Long: `Pagesplit turns a folder of dual-page book scans into one archival image per page.

A metadata spreadsheet lists every scan together with the labels of the pages
it shows. Scans with two pages are cropped into a left (recto) and right (verso)
image; single-page scans are copied. Every page image is named after the book
identifier and its normalized page label, e.g. Ha2.001r.tif.

Scans and the spreadsheet can be downloaded from a shared-folder web listing.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			opts.cfg = cfg
			opts.applyFlags(cmd)

			slog.Debug("Configuration loaded", "config", opts.configPath, "output_dir", cfg.OutputDir, "metadata", cfg.MetadataPath())
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", fmt.Sprintf("Path to YAML config file (default %s when present)", config.DefaultPath))
	flags.BoolVar(&opts.verbose, "verbose", false, "Verbose logging")
	flags.StringVar(&opts.outputDir, "output-dir", "", "Directory holding the downloaded scans and metadata")
	flags.StringVar(&opts.metadata, "metadata", "", "Metadata spreadsheet, relative to the output directory")
	flags.StringVar(&opts.bookID, "book-id", "", "Book identifier used as the page image name prefix")
	flags.StringVar(&opts.baseURL, "base-url", "", "Shared-folder listing page")

	// Add subcommands
	cmd.AddCommand(newSplitCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newDownloadCmd(opts))
	cmd.AddCommand(newConvertCmd(opts))
	cmd.AddCommand(newNamesCmd(opts))

	return cmd
}

// applyFlags copies explicitly set root flags over the loaded config
func (o *options) applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		o.cfg.OutputDir = o.outputDir
	}
	if flags.Changed("metadata") {
		o.cfg.MetadataFile = o.metadata
	}
	if flags.Changed("book-id") {
		o.cfg.BookID = o.bookID
	}
	if flags.Changed("base-url") {
		o.cfg.BaseURL = o.baseURL
	}
}
