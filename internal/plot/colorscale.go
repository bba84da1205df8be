package plot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
)

// spectralStops is the number of ColorBrewer anchor colours the scale
// interpolates between.
const spectralStops = 11

// Spectral is a continuous ColorMap built on the ColorBrewer "Spectral"
// palette. Values between anchors are blended in CIELAB.
type Spectral struct {
	stops    []colorful.Color
	min, max float64
	alpha    float64
}

var _ palette.ColorMap = (*Spectral)(nil)

// NewSpectral returns the Spectral scale running red to blue over [min, max].
func NewSpectral(min, max float64) (*Spectral, error) {
	p, err := brewer.GetPalette(brewer.TypeDiverging, "Spectral", spectralStops)
	if err != nil {
		return nil, fmt.Errorf("failed to load Spectral palette: %w", err)
	}

	stops := make([]colorful.Color, 0, spectralStops)
	for _, c := range p.Colors() {
		cf, ok := colorful.MakeColor(c)
		if !ok {
			return nil, fmt.Errorf("palette colour %v is fully transparent", c)
		}
		stops = append(stops, cf)
	}

	return &Spectral{stops: stops, min: min, max: max, alpha: 1}, nil
}

// ReversedSpectral returns the Spectral scale running blue to red, so low
// values are cool and high values are warm.
func ReversedSpectral(min, max float64) (palette.ColorMap, error) {
	s, err := NewSpectral(min, max)
	if err != nil {
		return nil, err
	}
	return palette.Reverse(s), nil
}

// At implements palette.ColorMap.
func (s *Spectral) At(v float64) (color.Color, error) {
	if math.IsNaN(v) {
		return nil, fmt.Errorf("colour value is NaN")
	}
	// Reverse maps v through max-(v-min), which can land an ulp outside.
	tol := 1e-9 * math.Max(1, math.Abs(s.max-s.min))
	if v < s.min-tol || v > s.max+tol {
		return nil, fmt.Errorf("colour value %g outside [%g, %g]", v, s.min, s.max)
	}

	c := s.blend(s.position(v))
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(s.alpha * 255))}, nil
}

// position maps v to [0, 1]. A degenerate range maps everything to the middle.
func (s *Spectral) position(v float64) float64 {
	if s.max == s.min {
		return 0.5
	}
	return (v - s.min) / (s.max - s.min)
}

func (s *Spectral) blend(t float64) colorful.Color {
	last := len(s.stops) - 1
	if t <= 0 {
		return s.stops[0]
	}
	if t >= 1 {
		return s.stops[last]
	}
	seg := t * float64(last)
	i := int(seg)
	return s.stops[i].BlendLab(s.stops[i+1], seg-float64(i))
}

// Max implements palette.ColorMap.
func (s *Spectral) Max() float64 { return s.max }

// SetMax implements palette.ColorMap.
func (s *Spectral) SetMax(v float64) { s.max = v }

// Min implements palette.ColorMap.
func (s *Spectral) Min() float64 { return s.min }

// SetMin implements palette.ColorMap.
func (s *Spectral) SetMin(v float64) { s.min = v }

// Alpha implements palette.ColorMap.
func (s *Spectral) Alpha() float64 { return s.alpha }

// SetAlpha implements palette.ColorMap.
func (s *Spectral) SetAlpha(a float64) {
	if a < 0 || a > 1 {
		panic(fmt.Sprintf("plot: alpha %g out of range", a))
	}
	s.alpha = a
}

// Palette implements palette.ColorMap.
func (s *Spectral) Palette(colors int) palette.Palette {
	out := make(spectralPalette, colors)
	for i := range out {
		t := 0.0
		if colors > 1 {
			t = float64(i) / float64(colors-1)
		}
		c, _ := s.At(s.min + t*(s.max-s.min))
		out[i] = c
	}
	return out
}

type spectralPalette []color.Color

func (p spectralPalette) Colors() []color.Color { return p }

// HexStops samples cm at n evenly spaced values from min to max and returns
// the colours as #rrggbb strings.
func HexStops(cm palette.ColorMap, n int) ([]string, error) {
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 colour stops, got %d", n)
	}

	out := make([]string, n)
	for i := range out {
		v := cm.Min() + float64(i)*(cm.Max()-cm.Min())/float64(n-1)
		c, err := cm.At(math.Min(v, cm.Max()))
		if err != nil {
			return nil, err
		}
		cf, _ := colorful.MakeColor(c)
		out[i] = cf.Hex()
	}
	return out, nil
}
