package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/symode/internal/integrators"
)

type Point struct{ X, Y float64 }

// PhasePortrait is the projection of a trajectory onto two state components.
type PhasePortrait struct {
	XIndex, YIndex int
	Points         []Point
}

func NewPhasePortrait(res *integrators.Result, xIdx, yIdx int) (*PhasePortrait, error) {
	if err := checkIndices(res, xIdx, yIdx); err != nil {
		return nil, err
	}

	portrait := &PhasePortrait{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, 0, res.Len()),
	}
	for _, s := range res.States {
		portrait.Points = append(portrait.Points, Point{X: s[xIdx], Y: s[yIdx]})
	}
	return portrait, nil
}

func checkIndices(res *integrators.Result, idx ...int) error {
	if res.Len() == 0 {
		return fmt.Errorf("analysis: empty result")
	}
	dim := len(res.States[0])
	for _, i := range idx {
		if i < 0 || i >= dim {
			return fmt.Errorf("analysis: component %d out of range [0, %d)", i, dim)
		}
	}
	return nil
}

// Bounds returns the extent of the portrait; non-finite points are ignored.
func (p *PhasePortrait) Bounds() (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, pt := range p.Points {
		if !finite(pt.X) || !finite(pt.Y) {
			continue
		}
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	return
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ASCII renders the portrait on a width x height grid with 10% padding and
// axes where they cross the visible area.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX, minY, maxY := p.Bounds()
	if math.IsInf(minX, 1) {
		return ""
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	toCol := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	toRow := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	if minX <= 0 && maxX >= 0 {
		col := toCol(0)
		for row := 0; row < height; row++ {
			canvas[row][col] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := toRow(0)
		for col := 0; col < width; col++ {
			if canvas[row][col] == '│' {
				canvas[row][col] = '┼'
			} else {
				canvas[row][col] = '─'
			}
		}
	}

	for _, pt := range p.Points {
		if !finite(pt.X) || !finite(pt.Y) {
			continue
		}
		canvas[toRow(pt.Y)][toCol(pt.X)] = '•'
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// NewPoincareSection records (recordX, recordY) wherever component crossIdx
// rises through threshold, interpolating linearly between the two accepted
// samples that bracket the crossing.
func NewPoincareSection(res *integrators.Result, crossIdx int, threshold float64, recordX, recordY int) (*PhasePortrait, error) {
	if err := checkIndices(res, crossIdx, recordX, recordY); err != nil {
		return nil, err
	}

	section := &PhasePortrait{XIndex: recordX, YIndex: recordY, Points: make([]Point, 0)}
	for i := 1; i < res.Len(); i++ {
		prev, cur := res.States[i-1], res.States[i]
		if !(prev[crossIdx] < threshold && cur[crossIdx] >= threshold) {
			continue
		}
		frac := (threshold - prev[crossIdx]) / (cur[crossIdx] - prev[crossIdx])
		section.Points = append(section.Points, Point{
			X: prev[recordX] + frac*(cur[recordX]-prev[recordX]),
			Y: prev[recordY] + frac*(cur[recordY]-prev[recordY]),
		})
	}
	return section, nil
}
