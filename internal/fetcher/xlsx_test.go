package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("listings")
	require.NoError(t, err)

	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}

	path := filepath.Join(t.TempDir(), "listings.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := writeTestXLSX(t, [][]string{
		{"street", "city"},
		{"דיזנגוף 100", "תל אביב"},
		{"הרצל 5", "חיפה"},
	})

	header, rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"street", "city"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "דיזנגוף 100", rows[0][0])
	assert.Equal(t, "חיפה", rows[1][1])
}

func TestReadXLSX_SheetByName(t *testing.T) {
	path := writeTestXLSX(t, [][]string{{"a"}, {"1"}})

	_, rows, err := ReadXLSX(path, XLSXOptions{SheetName: "listings"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, _, err = ReadXLSX(path, XLSXOptions{SheetName: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_BadIndex(t *testing.T) {
	path := writeTestXLSX(t, [][]string{{"a"}})
	_, _, err := ReadXLSX(path, XLSXOptions{SheetIndex: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, _, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	assert.Error(t, err)
}
