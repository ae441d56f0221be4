package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ErrExists is returned when a conversion target is already on disk.
var ErrExists = errors.New("output file already exists")

// Format selects the output of Convert.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// OutputPath returns the conversion target next to the source spreadsheet
func OutputPath(src string, format Format) string {
	base := strings.TrimSuffix(src, filepath.Ext(src))
	return base + "." + string(format)
}

// Convert reads the spreadsheet at src and writes it next to it in the given
// format. An existing target is never overwritten.
func Convert(src string, format Format) (string, error) {
	dst := OutputPath(src, format)
	if dst == src {
		return "", fmt.Errorf("source %s is already in %s format", src, format)
	}
	if _, err := os.Stat(dst); err == nil {
		return dst, fmt.Errorf("%w: %s", ErrExists, dst)
	}

	rows, err := ReadRows(src)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("spreadsheet %s is empty", src)
	}

	switch format {
	case FormatCSV:
		err = WriteCSV(dst, rows)
	case FormatParquet:
		err = WriteParquet(dst, rows)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", err
	}
	return dst, nil
}

// WriteCSV writes rows padded to the widest row so every line has the same column count
func WriteCSV(path string, rows [][]string) error {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}

	w := csv.NewWriter(out)
	for _, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		if err := w.Write(padded); err != nil {
			out.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close csv file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move file: %w", err)
	}
	return nil
}

// WriteParquet writes every row after the header as a Row
func WriteParquet(path string, rows [][]string) error {
	var records []Row
	for i, cells := range rows {
		if i == 0 {
			continue
		}
		records = append(records, rowFromCells(cells))
	}

	if err := parquet.WriteFile(path, records); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write parquet: %w", err)
	}
	return nil
}
