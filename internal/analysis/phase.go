package analysis

import (
	"errors"
	"strings"
)

type Point struct {
	X, Y float64
}

// Portrait is a pair of trace columns plotted against each other.
type Portrait struct {
	XLabel, YLabel string
	Points         []Point
}

func NewPortrait(xLabel string, xs []float64, yLabel string, ys []float64) (*Portrait, error) {
	if len(xs) != len(ys) {
		return nil, errors.New("analysis: columns differ in length")
	}
	p := &Portrait{XLabel: xLabel, YLabel: yLabel, Points: make([]Point, len(xs))}
	for i := range xs {
		p.Points[i] = Point{X: xs[i], Y: ys[i]}
	}
	return p, nil
}

// Bounds is the padded bounding box of the points. Degenerate axes get a
// unit span so callers can divide by the range.
func (p *Portrait) Bounds() (minX, maxX, minY, maxY float64) {
	if len(p.Points) == 0 {
		return -1, 1, -1, 1
	}
	minX, maxX = p.Points[0].X, p.Points[0].X
	minY, maxY = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX = min(minX, pt.X)
		maxX = max(maxX, pt.X)
		minY = min(minY, pt.Y)
		maxY = max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return minX - rangeX*0.1, maxX + rangeX*0.1, minY - rangeY*0.1, maxY + rangeY*0.1
}

// ASCII draws the portrait on a width x height character grid with axes
// where zero is in view.
func (p *Portrait) ASCII(width, height int) string {
	if width < 2 || height < 2 {
		return ""
	}
	minX, maxX, minY, maxY := p.Bounds()
	rangeX := maxX - minX
	rangeY := maxY - minY

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			grid[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int(-minX / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if grid[row][col] == ' ' {
				grid[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int(-minY/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if grid[row][col] == ' ' {
				grid[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}
