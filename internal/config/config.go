// Package config loads pagesplit settings from defaults, an optional YAML
// file and PAGESPLIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given explicitly.
const DefaultPath = "pagesplit.yaml"

const (
	BackendMagick = "magick"
	BackendNative = "native"
)

// Config holds every tunable of a pagesplit run
type Config struct {
	BaseURL          string        `yaml:"base_url"`
	OutputDir        string        `yaml:"output_dir"`
	PagesDir         string        `yaml:"pages_dir"`
	MetadataFile     string        `yaml:"metadata_file"`
	Threads          int           `yaml:"threads"`
	Timeout          time.Duration `yaml:"timeout"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
	Selector         string        `yaml:"selector"`
	PageDelimiter    string        `yaml:"page_delimiter"`
	BookID           string        `yaml:"book_id"`
	Extension        string        `yaml:"extension"`
	CropPercent      int           `yaml:"crop_percent"`
	Backend          string        `yaml:"backend"`
	ConvertBin       string        `yaml:"convert_bin"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		OutputDir:        ".",
		MetadataFile:     "files list.xlsx",
		Threads:          4,
		Timeout:          30 * time.Second,
		OperationTimeout: 2 * time.Minute,
		Selector:         "a[href]",
		PageDelimiter:    ",",
		Extension:        "tif",
		CropPercent:      55,
		Backend:          BackendMagick,
		ConvertBin:       "convert",
	}
}

// Load reads path over the defaults. An empty path falls back to
// DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from PAGESPLIT_* environment variables
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"PAGESPLIT_BASE_URL":       &c.BaseURL,
		"PAGESPLIT_OUTPUT_DIR":     &c.OutputDir,
		"PAGESPLIT_PAGES_DIR":      &c.PagesDir,
		"PAGESPLIT_METADATA_FILE":  &c.MetadataFile,
		"PAGESPLIT_SELECTOR":       &c.Selector,
		"PAGESPLIT_PAGE_DELIMITER": &c.PageDelimiter,
		"PAGESPLIT_BOOK_ID":        &c.BookID,
		"PAGESPLIT_EXTENSION":      &c.Extension,
		"PAGESPLIT_BACKEND":        &c.Backend,
		"PAGESPLIT_CONVERT_BIN":    &c.ConvertBin,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PAGESPLIT_THREADS":      &c.Threads,
		"PAGESPLIT_CROP_PERCENT": &c.CropPercent,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"PAGESPLIT_TIMEOUT":           &c.Timeout,
		"PAGESPLIT_OPERATION_TIMEOUT": &c.OperationTimeout,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	return nil
}

// Validate checks settings shared by every command
func (c *Config) Validate() error {
	var errs []error
	if c.Threads < 1 {
		errs = append(errs, fmt.Errorf("threads must be at least 1, got %d", c.Threads))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.OperationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("operation_timeout must be positive, got %s", c.OperationTimeout))
	}
	if c.CropPercent < 1 || c.CropPercent > 100 {
		errs = append(errs, fmt.Errorf("crop_percent must be between 1 and 100, got %d", c.CropPercent))
	}
	if strings.Trim(c.Extension, ". ") == "" {
		errs = append(errs, errors.New("extension must not be empty"))
	}
	if c.Backend != BackendMagick && c.Backend != BackendNative {
		errs = append(errs, fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendMagick, BackendNative))
	}
	if c.MetadataFile == "" {
		errs = append(errs, errors.New("metadata_file must not be empty"))
	}
	return errors.Join(errs...)
}

// RequireBookID reports a missing book identifier
func (c *Config) RequireBookID() error {
	if strings.TrimSpace(c.BookID) == "" {
		return errors.New("book_id is required (set it in the config file, PAGESPLIT_BOOK_ID or --book-id)")
	}
	return nil
}

// RequireBaseURL reports a missing remote listing url
func (c *Config) RequireBaseURL() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base_url is required (set it in the config file, PAGESPLIT_BASE_URL or --base-url)")
	}
	return nil
}

// MetadataPath returns the metadata workbook path, resolved against OutputDir when relative
func (c *Config) MetadataPath() string {
	if filepath.IsAbs(c.MetadataFile) {
		return c.MetadataFile
	}
	return filepath.Join(c.OutputDir, c.MetadataFile)
}

// PagesPath returns where split page images are written
func (c *Config) PagesPath() string {
	if c.PagesDir != "" {
		return c.PagesDir
	}
	return filepath.Join(c.OutputDir, "pages")
}
