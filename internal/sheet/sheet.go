// Package sheet reads and writes the metadata spreadsheet as a grid of string
// cells. Row 0 is the header row in every format.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// Row is the parquet layout of one metadata row; columns mirror the spreadsheet.
type Row struct {
	Name            string `parquet:"name,optional"`
	CallNumber      string `parquet:"call_number,optional"`
	Title           string `parquet:"title,optional"`
	PublicationDate string `parquet:"publication_date,optional"`
	PageNumbers     string `parquet:"page_numbers,optional"`
	SortOrder       string `parquet:"sort_order,optional"`
}

// Cells returns the row as spreadsheet cells
func (r Row) Cells() []string {
	return []string{r.Name, r.CallNumber, r.Title, r.PublicationDate, r.PageNumbers, r.SortOrder}
}

func rowFromCells(cells []string) Row {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return Row{
		Name:            get(0),
		CallNumber:      get(1),
		Title:           get(2),
		PublicationDate: get(3),
		PageNumbers:     get(4),
		SortOrder:       get(5),
	}
}

// ReadRows loads every row of the spreadsheet at path, picking the reader from the extension
func ReadRows(path string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".xlsx", ".xlsm":
		return readWorkbook(path)
	case ".csv":
		return readCSV(path)
	case ".parquet":
		return readParquet(path)
	case ".xls":
		return readLegacyWorkbook(path)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .xls, .xlsx, .csv, .parquet)", ErrUnsupportedFormat, ext)
	}
}

// readWorkbook reads the first sheet of an Excel workbook
func readWorkbook(path string) ([][]string, error) {
	slog.Debug("Opening workbook", "path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	slog.Debug("Finished reading workbook", "sheet", sheets[0], "rows", len(rows))
	return rows, nil
}

// readLegacyWorkbook reads the first sheet of a BIFF (.xls) workbook
func readLegacyWorkbook(path string) (rows [][]string, err error) {
	slog.Debug("Opening legacy workbook", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	// the BIFF parser panics on truncated records instead of returning an error
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("failed to parse workbook %s: %v", path, r)
		}
	}()

	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("workbook %s has no Workbook stream", path)
	}

	first := wb.GetSheet(0)
	if first == nil {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	// ReadAllCells walks sheets in order; capping it at the first sheet's
	// row count keeps later sheets out.
	rows = wb.ReadAllCells(int(first.MaxRow) + 1)

	slog.Debug("Finished reading legacy workbook", "sheet", first.Name, "rows", len(rows))
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // ragged rows are filtered by the metadata loader

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

// readParquet loads a parquet export; a header row is synthesised so every
// format looks the same to the metadata loader.
func readParquet(path string) ([][]string, error) {
	slog.Debug("Opening Parquet file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	rows := [][]string{Header()}
	batch := make([]Row, 128)

	for {
		n, err := reader.Read(batch)
		for _, r := range batch[:n] {
			rows = append(rows, r.Cells())
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to read parquet rows: %w", err)
			}
			break
		}
	}

	slog.Debug("Finished reading Parquet file", "rows", len(rows)-1)
	return rows, nil
}

// Header returns the column titles written by this package
func Header() []string {
	return []string{"File name", "Call number", "Title", "Publication date", "Page numbers", "Sort order"}
}
