package outstreams

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/pergola/pkg/domain"
)

const (
	plotWidth  = 640
	plotHeight = 480
	plotMargin = 48
)

// renderPlot writes a scatter of Y over X as a standalone SVG. Rows missing
// either variable are skipped.
func renderPlot(spec *domain.OutStreamSpec, source *domain.DataObject, dir string) (string, error) {
	type pt struct{ x, y float64 }
	var pts []pt

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, row := range source.Rows() {
		x, okX := row[spec.X]
		y, okY := row[spec.Y]
		if !okX || !okY {
			continue
		}
		pts = append(pts, pt{x, y})
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	if len(pts) == 0 {
		return "", fmt.Errorf("out-stream %q: source %q has no rows with both %q and %q",
			spec.Name, spec.Source, spec.X, spec.Y)
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}

	scaleX := func(v float64) float64 {
		return plotMargin + (v-minX)/(maxX-minX)*(plotWidth-2*plotMargin)
	}
	scaleY := func(v float64) float64 {
		// SVG y axis grows downward
		return plotHeight - plotMargin - (v-minY)/(maxY-minY)*(plotHeight-2*plotMargin)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		plotWidth, plotHeight, plotWidth, plotHeight)
	fmt.Fprintf(&b, `  <rect width="%d" height="%d" fill="white"/>`+"\n", plotWidth, plotHeight)
	fmt.Fprintf(&b, `  <line x1="%d" y1="%d" x2="%d" y2="%d" stroke="black"/>`+"\n",
		plotMargin, plotHeight-plotMargin, plotWidth-plotMargin, plotHeight-plotMargin)
	fmt.Fprintf(&b, `  <line x1="%d" y1="%d" x2="%d" y2="%d" stroke="black"/>`+"\n",
		plotMargin, plotMargin, plotMargin, plotHeight-plotMargin)
	fmt.Fprintf(&b, `  <text x="%d" y="%d" text-anchor="middle" font-size="14">%s</text>`+"\n",
		plotWidth/2, plotHeight-12, spec.X)
	fmt.Fprintf(&b, `  <text x="16" y="%d" text-anchor="middle" font-size="14" transform="rotate(-90 16 %d)">%s</text>`+"\n",
		plotHeight/2, plotHeight/2, spec.Y)
	for _, p := range pts {
		fmt.Fprintf(&b, `  <circle cx="%.2f" cy="%.2f" r="3" fill="steelblue"/>`+"\n",
			scaleX(p.x), scaleY(p.y))
	}
	b.WriteString("</svg>\n")

	path := filepath.Join(dir, spec.Name+".svg")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("out-stream %q: %w", spec.Name, err)
	}
	return path, nil
}
