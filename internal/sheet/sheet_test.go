package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixtureRows = [][]string{
	Header(),
	{"Ha2_001", "Ha2", "Roman de la Rose", "1350", "front outside cover", "1"},
	{"Ha2_002", "Ha2", "Roman de la Rose", "1350", "1r,1v", "2"},
	{"Ha2_003", "Ha2", "Roman, with commas", "1350", "2r,none", "x"},
}

func writeWorkbook(t *testing.T, path string, rows [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &cells))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestReadRowsWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files list.xlsx")
	writeWorkbook(t, path, fixtureRows)

	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, fixtureRows, rows)
}

func TestReadRowsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files list.csv")
	data := "File name,Call number,Title,Publication date,Page numbers,Sort order\n" +
		"Ha2_001,Ha2,Title,1350,1r,1\n" +
		"short,row\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Ha2_001", "Ha2", "Title", "1350", "1r", "1"}, rows[1])
	assert.Equal(t, []string{"short", "row"}, rows[2])
}

func TestReadRowsUnsupported(t *testing.T) {
	for _, name := range []string{"list.txt", "list.ods", "list"} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadRows(filepath.Join(t.TempDir(), name))
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

var legacyRows = [][]string{
	Header(),
	{"Ha2_001", "Ha2", "Kräuterbuch", "1550", "1r,1v", "2"},
	{"Ha2_002", "Ha2", "Kräuterbuch", "1550", "front outside cover", "1"},
	{"Ha2_003", "Ha2", "Kräuterbuch", "1550", "", "3"},
}

func TestReadRowsLegacyWorkbook(t *testing.T) {
	rows, err := ReadRows(filepath.Join("testdata", "files list.xls"))
	require.NoError(t, err)
	assert.Equal(t, legacyRows, rows)
}

func TestReadRowsLegacyWorkbookCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xls")
	require.NoError(t, os.WriteFile(path, []byte("not a compound file"), 0644))

	_, err := ReadRows(path)
	assert.Error(t, err)
}

func TestConvertLegacyWorkbook(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "files list.xls"))
	require.NoError(t, err)

	dir := t.TempDir()
	src := filepath.Join(dir, "files list.xls")
	require.NoError(t, os.WriteFile(src, data, 0644))

	dst, err := Convert(src, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "files list.csv"), dst)

	rows, err := ReadRows(dst)
	require.NoError(t, err)
	assert.Equal(t, legacyRows, rows)
}

func TestReadRowsMissingFile(t *testing.T) {
	_, err := ReadRows("/nonexistent/path/list.xlsx")
	assert.Error(t, err)

	_, err = ReadRows("/nonexistent/path/list.csv")
	assert.Error(t, err)

	_, err = ReadRows("/nonexistent/path/list.parquet")
	assert.Error(t, err)
}

func TestConvertCSV(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "files list.xlsx")
	writeWorkbook(t, src, fixtureRows)

	dst, err := Convert(src, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "files list.csv"), dst)

	rows, err := ReadRows(dst)
	require.NoError(t, err)
	assert.Equal(t, fixtureRows, rows)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Roman, with commas"`)
}

func TestConvertNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "list.xlsx")
	writeWorkbook(t, src, fixtureRows)

	existing := filepath.Join(dir, "list.csv")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0644))

	_, err := Convert(src, FormatCSV)
	assert.ErrorIs(t, err, ErrExists)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestConvertParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "list.csv")
	require.NoError(t, WriteCSV(src, fixtureRows))

	dst, err := Convert(src, FormatParquet)
	require.NoError(t, err)

	rows, err := ReadRows(dst)
	require.NoError(t, err)
	assert.Equal(t, fixtureRows, rows)
}

func TestWriteCSVPadsRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	require.NoError(t, WriteCSV(path, [][]string{{"a", "b", "c"}, {"d"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\nd,,\n", string(data))
}
