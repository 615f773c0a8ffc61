// Package outstreams materializes DataObject contents as files: CSV dumps
// for Print streams and SVG scatter plots for Plot streams.
package outstreams

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aretw0/pergola/pkg/domain"
)

// Render writes the stream's file under dir and returns its path.
func Render(spec *domain.OutStreamSpec, source *domain.DataObject, dir string) (string, error) {
	switch spec.Kind {
	case domain.OutStreamPrint:
		return renderPrint(spec, source, dir)
	case domain.OutStreamPlot:
		return renderPlot(spec, source, dir)
	default:
		return "", fmt.Errorf("out-stream %q: unknown kind %q", spec.Name, spec.Kind)
	}
}

func renderPrint(spec *domain.OutStreamSpec, source *domain.DataObject, dir string) (string, error) {
	path := filepath.Join(dir, spec.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("out-stream %q: %w", spec.Name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	vars := source.Spec.Variables()

	switch source.Spec.Kind {
	case domain.HistorySet:
		// Long format: one block per history, keyed by history index and the
		// pivot variable.
		pivot := source.Spec.Pivot
		header := append([]string{"history", pivot}, vars...)
		if err := w.Write(header); err != nil {
			return "", err
		}
		for i, h := range source.Histories() {
			for j, p := range h.Values[pivot] {
				record := make([]string, 0, len(header))
				record = append(record, strconv.Itoa(i), formatValue(p))
				for _, v := range vars {
					record = append(record, formatValue(h.Values[v][j]))
				}
				if err := w.Write(record); err != nil {
					return "", err
				}
			}
		}
	default:
		if err := w.Write(vars); err != nil {
			return "", err
		}
		for _, row := range source.Rows() {
			record := make([]string, len(vars))
			for i, v := range vars {
				record[i] = formatValue(row[v])
			}
			if err := w.Write(record); err != nil {
				return "", err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("out-stream %q: %w", spec.Name, err)
	}
	return path, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
