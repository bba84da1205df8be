// Package plot renders colour-magnitude diagrams of isochrone tables.
package plot

import (
	"errors"
	"fmt"
	"math"

	"github.com/Joesum98/Isochrones/internal/isochrone"
)

// Axis ranges shared by both backends. Magnitudes run from faint at the
// bottom to bright at the top.
const (
	XMin    = -0.5
	XMax    = 7.0
	YFaint  = 25.0
	YBright = -10.0
)

// ErrInvalidScale is returned for colour-scale bounds or step that cannot
// describe a scale.
var ErrInvalidScale = errors.New("invalid colour scale")

// Diagram selects what to plot: Filter1-Filter2 against Filter1 magnitude,
// coloured by the Color column.
type Diagram struct {
	Filter1 string
	Filter2 string
	Color   string
}

// ColorIndex is the x column name, e.g. "U-B".
func (d Diagram) ColorIndex() string {
	return d.Filter1 + "-" + d.Filter2
}

// Magnitude is the y column name, e.g. "Umag".
func (d Diagram) Magnitude() string {
	return d.Filter1 + "mag"
}

// Title is the figure title. It names the colour index, not the colour column.
func (d Diagram) Title() string {
	return fmt.Sprintf("Solar Metalicity (%s)", d.ColorIndex())
}

type points struct {
	x, y, c []float64
}

func (d Diagram) resolve(t *isochrone.Table) (*points, error) {
	x, err := t.Column(d.ColorIndex())
	if err != nil {
		return nil, err
	}
	y, err := t.Column(d.Magnitude())
	if err != nil {
		return nil, err
	}
	c, err := t.Column(d.Color)
	if err != nil {
		return nil, err
	}
	return &points{x: x, y: y, c: c}, nil
}

// colorBounds returns the min and max colour value over the rows that can be
// drawn. With no drawable row it returns 0, 1.
func (p *points) colorBounds() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range p.c {
		if !p.finite(i) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return 0, 1
	}
	return lo, hi
}

// finite reports whether row i can be drawn.
func (p *points) finite(i int) bool {
	for _, v := range [...]float64{p.x[i], p.y[i], p.c[i]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
