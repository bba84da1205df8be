package plot

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Joesum98/Isochrones/internal/isochrone"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	interactiveWidth  = "600px"
	interactiveHeight = "400px"
	pageBackground    = "#B0C4DE"
	symbolSize        = 6

	// echarts blends visual map colours in RGB; sampled this finely the
	// CIELAB blend of the scale is kept.
	visualMapStops = 4*(spectralStops-1) + 1

	maxTicks = 1000
)

// Scale is an explicit colour scale: bounds and the increment between colour
// bar ticks.
type Scale struct {
	Min  float64
	Max  float64
	Step float64
}

// Validate reports ErrInvalidScale for an empty range, a non-positive step or
// a step too fine to label.
func (s Scale) Validate() error {
	if s.Step <= 0 || math.IsNaN(s.Step) || math.IsInf(s.Step, 0) {
		return fmt.Errorf("%w: step %g must be positive", ErrInvalidScale, s.Step)
	}
	if !(s.Min < s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
		return fmt.Errorf("%w: min %g must be below max %g", ErrInvalidScale, s.Min, s.Max)
	}
	if (s.Max-s.Min)/s.Step > maxTicks {
		return fmt.Errorf("%w: step %g gives more than %d ticks over [%g, %g]",
			ErrInvalidScale, s.Step, maxTicks, s.Min, s.Max)
	}
	return nil
}

// Ticks returns Min, Min+Step, ... up to Max.
func (s Scale) Ticks() []float64 {
	n := int(math.Floor((s.Max-s.Min)/s.Step+1e-9)) + 1
	ticks := make([]float64, n)
	for i := range ticks {
		ticks[i] = math.Min(s.Min+float64(i)*s.Step, s.Max)
	}
	return ticks
}

// precision is the number of decimals needed to print a tick.
func (s Scale) precision() int {
	text := strconv.FormatFloat(s.Step, 'f', -1, 64)
	if i := strings.IndexByte(text, '.'); i >= 0 {
		return min(len(text)-i-1, 6)
	}
	return 0
}

// InteractiveFigure is a colour-magnitude diagram rendered as an HTML page.
type InteractiveFigure struct {
	Chart *charts.Scatter

	// Stops are the colours of the visual map, evenly spaced from
	// Scale.Min to Scale.Max.
	Stops []string

	// Ticks are the colour bar values one Scale.Step apart. Step also sets
	// the decimals of the colour bar labels.
	Ticks []float64

	// Points is the number of rows drawn.
	Points int
}

// Interactive builds an interactive diagram with the given colour scale.
func Interactive(t *isochrone.Table, d Diagram, s Scale) (*InteractiveFigure, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	pts, err := d.resolve(t)
	if err != nil {
		return nil, err
	}

	cm, err := ReversedSpectral(s.Min, s.Max)
	if err != nil {
		return nil, err
	}
	stops, err := HexStops(cm, visualMapStops)
	if err != nil {
		return nil, err
	}

	data := make([]opts.ScatterData, 0, len(pts.x))
	for i := range pts.x {
		if !pts.finite(i) {
			continue
		}
		data = append(data, opts.ScatterData{
			Value:      []float64{pts.x[i], pts.y[i], pts.c[i]},
			SymbolSize: symbolSize,
		})
	}

	chart := charts.NewScatter()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       d.Title(),
			Width:           interactiveWidth,
			Height:          interactiveHeight,
			BackgroundColor: pageBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: d.Title()}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: opts.FuncOpts(fmt.Sprintf("function (p) { return %s + ': ' + p.value[2]; }", strconv.Quote(d.Color))),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: d.ColorIndex(),
			Type: "value",
			Min:  XMin,
			Max:  XMax,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:    "Magnitude",
			Type:    "value",
			Min:     YBright,
			Max:     YFaint,
			Inverse: opts.Bool(true),
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Type:       "continuous",
			Calculable: opts.Bool(true),
			Min:        float32(s.Min),
			Max:        float32(s.Max),
			Dimension:  "2",
			Text:       []string{d.Color},
			InRange:    &opts.VisualMapInRange{Color: stops},
			Right:      "0",
			Top:        "center",
		}),
	)
	chart.AddSeries(d.Color, data)
	chart.AddJSFuncStrs(types.FuncStr(fmt.Sprintf(
		"%%MY_ECHARTS%%.setOption({visualMap: [{precision: %d}]});", s.precision())))

	return &InteractiveFigure{Chart: chart, Stops: stops, Ticks: s.Ticks(), Points: len(data)}, nil
}

// Render writes the figure as a standalone HTML page.
func (f *InteractiveFigure) Render(w io.Writer) error {
	if err := f.Chart.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
