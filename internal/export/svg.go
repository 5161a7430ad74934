// Package export writes canvases and phase portraits as standalone SVG.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/simbridge/internal/analysis"
)

const background = "#0a0a0a"

// Raster is a dot raster addressed in pixels.
type Raster interface {
	Pixels() (w, h int)
	Lit(x, y int) bool
}

// Canvas writes every lit dot of r as a circle. scale is the pixel pitch
// in SVG units.
func Canvas(w io.Writer, r Raster, scale float64, fill string) error {
	if r == nil {
		return fmt.Errorf("export: nil raster")
	}
	if scale <= 0 {
		scale = 4
	}
	pw, ph := r.Pixels()
	width := float64(pw) * scale
	height := float64(ph) * scale

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, "<g fill=%q>\n", fill)

	radius := scale * 0.4
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !r.Lit(x, y) {
				continue
			}
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
				float64(x)*scale+scale/2, float64(y)*scale+scale/2, radius)
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// Portrait writes p as a single polyline scaled into width x height.
func Portrait(w io.Writer, p *analysis.Portrait, width, height int, stroke string) error {
	if p == nil || len(p.Points) < 2 {
		return fmt.Errorf("export: need at least two points")
	}
	minX, maxX, minY, maxY := p.Bounds()
	rangeX := maxX - minX
	rangeY := maxY - minY

	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	fmt.Fprintf(&sb, "<path fill=\"none\" stroke=%q stroke-width=\"1.5\" d=\"", stroke)
	for i, pt := range p.Points {
		x := (pt.X - minX) / rangeX * float64(width)
		y := float64(height) - (pt.Y-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
	fmt.Fprintf(&sb, "<text x=\"4\" y=\"14\" fill=%q font-size=\"12\">%s vs %s</text>\n", stroke, p.YLabel, p.XLabel)
	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func header(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}
