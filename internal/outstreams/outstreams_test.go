package outstreams

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pergola/pkg/domain"
)

func pointSet(t *testing.T, rows ...domain.Row) *domain.DataObject {
	t.Helper()
	do := domain.NewDataObject(domain.DataObjectSpec{
		Name:    "results",
		Kind:    domain.PointSet,
		Inputs:  []string{"x"},
		Outputs: []string{"ans"},
	})
	for _, r := range rows {
		require.NoError(t, do.Append(r))
	}
	return do
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRender_PrintPointSet(t *testing.T) {
	dir := t.TempDir()
	do := pointSet(t,
		domain.Row{"x": 0.5, "ans": 0.25},
		domain.Row{"x": 2, "ans": 4},
	)
	spec := &domain.OutStreamSpec{Name: "dump", Kind: domain.OutStreamPrint, Source: "results"}

	path, err := Render(spec, do, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dump.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"x", "ans"}, records[0])
	assert.Equal(t, []string{"0.5", "0.25"}, records[1])
	assert.Equal(t, []string{"2", "4"}, records[2])
}

func TestRender_PrintHistorySet(t *testing.T) {
	dir := t.TempDir()
	do := domain.NewDataObject(domain.DataObjectSpec{
		Name:    "traces",
		Kind:    domain.HistorySet,
		Inputs:  []string{"x"},
		Outputs: []string{"temp"},
		Pivot:   "time",
	})
	require.NoError(t, do.AppendHistory(domain.History{
		Pivot: "time",
		Values: map[string][]float64{
			"time": {0, 1},
			"x":    {3, 3},
			"temp": {20, 25},
		},
	}))
	spec := &domain.OutStreamSpec{Name: "traceDump", Kind: domain.OutStreamPrint, Source: "traces"}

	path, err := Render(spec, do, dir)
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"history", "time", "x", "temp"}, records[0])
	assert.Equal(t, []string{"0", "0", "3", "20"}, records[1])
	assert.Equal(t, []string{"0", "1", "3", "25"}, records[2])
}

func TestRender_PlotWritesSVG(t *testing.T) {
	dir := t.TempDir()
	do := pointSet(t,
		domain.Row{"x": 0, "ans": 0},
		domain.Row{"x": 1, "ans": 1},
		domain.Row{"x": 2, "ans": 4},
	)
	spec := &domain.OutStreamSpec{
		Name: "scatter", Kind: domain.OutStreamPlot,
		Source: "results", X: "x", Y: "ans",
	}

	path, err := Render(spec, do, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scatter.svg"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	svg := string(raw)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "<circle")
	assert.Contains(t, svg, "ans")
}

func TestRender_PlotNoUsableRows(t *testing.T) {
	do := pointSet(t, domain.Row{"x": 1, "ans": 2})
	spec := &domain.OutStreamSpec{
		Name: "scatter", Kind: domain.OutStreamPlot,
		Source: "results", X: "x", Y: "ghost",
	}

	_, err := Render(spec, do, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRender_UnknownKind(t *testing.T) {
	do := pointSet(t)
	_, err := Render(&domain.OutStreamSpec{Name: "odd", Kind: "Table"}, do, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}
