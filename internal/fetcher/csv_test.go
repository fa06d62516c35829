package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestReadCSV(t *testing.T) {
	input := "id,name_he,latitude,longitude\n1, אליאנס ,32.113,34.800\n2,גימנסיה,32.057,34.770\n"

	header, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		TrimSpace: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name_he", "latitude", "longitude"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "אליאנס", rows[0][1], "fields are trimmed")
}

func TestReadCSV_NoHeader(t *testing.T) {
	header, rows, err := ReadCSV(context.Background(), strings.NewReader("a,b\nc,d\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Nil(t, header)
	assert.Len(t, rows, 2)
}

func TestReadCSV_VariableFieldCounts(t *testing.T) {
	input := "id,name\n1,a\n2\n3,c,extra\n"
	_, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{HasHeader: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Len(t, rows[1], 1)
	assert.Len(t, rows[2], 3)
}

func TestReadCSV_CustomDelimiter(t *testing.T) {
	_, rows, err := ReadCSV(context.Background(), strings.NewReader("a;b\nc;d\n"), CSVOptions{
		HasHeader: true,
		Delimiter: ';',
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"c", "d"}, rows[0])
}

func TestReadCSV_CP1255(t *testing.T) {
	enc := charmap.Windows1255.NewEncoder()
	raw, err := enc.String("name_he\nבית ספר\n")
	require.NoError(t, err)

	header, rows, err := ReadCSV(context.Background(), strings.NewReader(raw), CSVOptions{
		HasHeader:    true,
		DecodeCP1255: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"name_he"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, "בית ספר", rows[0][0])
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\nc,d\n"), CSVOptions{})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestColumnIndex(t *testing.T) {
	idx := ColumnIndex([]string{"ID", " Name_He ", "latitude"})
	assert.Equal(t, 0, idx["id"])
	assert.Equal(t, 1, idx["name_he"])
	assert.Equal(t, 2, idx["latitude"])
	_, ok := idx["missing"]
	assert.False(t, ok)
}
