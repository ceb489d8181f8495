package excel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"permcluster/ports"
)

func tf(v float64) *float64 { return &v }

func TestWriteClusterTable(t *testing.T) {
	res := &ports.StoredResult{
		RunID:     "run-1",
		Name:      "a > b",
		Meas:      "t",
		Samples:   1000,
		NClusters: 2,
		Clusters: []ports.StoredCluster{
			{Rank: 0, P: 0.004, V: 42.5, TStart: tf(0.12), TStop: tf(0.3)},
			{Rank: 1, P: 0.2, V: 10, TStart: nil, TStop: nil},
		},
	}

	path := filepath.Join(t.TempDir(), "clusters.xlsx")
	require.NoError(t, NewExporter().WriteClusterTable(path, res))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue(sheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "a > b", name)

	header, err := f.GetCellValue(sheetName, "A7")
	require.NoError(t, err)
	assert.Equal(t, "rank", header)

	p, err := f.GetCellValue(sheetName, "B8")
	require.NoError(t, err)
	assert.Equal(t, "0.004", p)

	// nil time bounds render as empty cells
	tstart, err := f.GetCellValue(sheetName, "D9")
	require.NoError(t, err)
	assert.Equal(t, "", tstart)
}

func TestWriteClusterTableNilResult(t *testing.T) {
	err := NewExporter().WriteClusterTable(filepath.Join(t.TempDir(), "x.xlsx"), nil)
	assert.Error(t, err)
}
