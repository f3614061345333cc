package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestWorkbook(t *testing.T) string {
	t.Helper()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Measurements")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, name := range []string{"latitude", "longitude", "pco2"} {
		header.AddCell().Value = name
	}
	row := sheet.AddRow()
	row.AddCell().SetFloat(10.5)
	row.AddCell().SetFloat(120.1)
	row.AddCell().SetFloat(380.2)

	path := filepath.Join(t.TempDir(), "measurements.xlsx")
	require.NoError(t, file.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := writeTestWorkbook(t)

	header, rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"latitude", "longitude", "pco2"}, header)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 3)
}

func TestReadXLSXByName(t *testing.T) {
	path := writeTestWorkbook(t)

	_, _, err := ReadXLSX(path, XLSXOptions{SheetName: "Measurements"})
	require.NoError(t, err)

	_, _, err = ReadXLSX(path, XLSXOptions{SheetName: "NoSuchSheet"})
	assert.Error(t, err)
}

func TestReadXLSXBadIndex(t *testing.T) {
	path := writeTestWorkbook(t)

	_, _, err := ReadXLSX(path, XLSXOptions{SheetIndex: 5})
	assert.Error(t, err)
}

func TestReadXLSXMissingFile(t *testing.T) {
	_, _, err := ReadXLSX("/nonexistent/book.xlsx", XLSXOptions{})
	assert.Error(t, err)
}
