// Package metadata turns spreadsheet rows into page image records.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/pagesplit/internal/models"
	"github.com/lehigh-university-libraries/pagesplit/internal/sheet"
)

// Columns is the only row width the loader accepts.
const Columns = 6

const (
	colName = iota
	colCallNumber
	colTitle
	colPublicationDate
	colPageNumbers
	colSortOrder
)

// Loader reads metadata records from a spreadsheet file
type Loader struct {
	Path      string
	Delimiter string
}

// NewLoader creates a new metadata loader
func NewLoader(path, delimiter string) *Loader {
	return &Loader{
		Path:      path,
		Delimiter: delimiter,
	}
}

// Load reads the spreadsheet and returns its records. When the file cannot
// be read the diagnostic is logged and an empty slice is returned together
// with the error, so callers can tell "unreadable" apart from "no records".
func (l *Loader) Load(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return []models.Record{}, err
	}

	rows, err := sheet.ReadRows(l.Path)
	if err != nil {
		slog.Error("Cannot read metadata file", "path", l.Path, "error", err)
		return []models.Record{}, fmt.Errorf("failed to load metadata: %w", err)
	}

	records := Load(rows, l.Delimiter)
	slog.Info("Loaded metadata", "path", l.Path, "rows", len(rows), "records", len(records))
	return records, nil
}

// Load converts raw rows into records. The first row is a header; rows
// without exactly six populated cells or without a file name are skipped.
func Load(rows [][]string, delimiter string) []models.Record {
	records := make([]models.Record, 0, len(rows))

	for i, row := range rows {
		if i == 0 {
			continue
		}

		if n := populated(row); n != Columns {
			slog.Debug("Skipping row", "row", i+1, "populated_cells", n)
			continue
		}

		name := cell(row, colName)
		if name == "" {
			slog.Debug("Skipping row without file name", "row", i+1)
			continue
		}

		records = append(records, models.Record{
			SourceName: name,
			Catalog: &models.Catalog{
				CallNumber:      cell(row, colCallNumber),
				Title:           cell(row, colTitle),
				PublicationDate: cell(row, colPublicationDate),
			},
			PageLabels: SplitLabels(cell(row, colPageNumbers), delimiter),
			SortOrder:  parseSortOrder(cell(row, colSortOrder)),
		})
	}

	return records
}

// SplitLabels splits the page number cell on delimiter, trimming each label
// and dropping empty ones.
func SplitLabels(value, delimiter string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	parts := []string{value}
	if delimiter != "" {
		parts = strings.Split(value, delimiter)
	}

	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

// SortRecords orders records by sort order, keeping spreadsheet order for ties
func SortRecords(records []models.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SortOrder < records[j].SortOrder
	})
}

func parseSortOrder(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return models.UnsortedOrder
	}
	return n
}

func populated(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
