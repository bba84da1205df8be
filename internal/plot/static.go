package plot

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Joesum98/Isochrones/internal/isochrone"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	staticSize   = 5 * vg.Inch
	staticDPI    = 200
	legendLevels = 5
)

var (
	// darkgrid look: pale blue-grey face with white grid lines.
	darkgridFace = color.RGBA{R: 0xea, G: 0xea, B: 0xf2, A: 0xff}
	darkgridLine = color.White

	// Marker area of 10pt².
	markerRadius = vg.Points(math.Sqrt(10 / math.Pi))
)

// StaticFigure is a colour-magnitude diagram ready to be written as an image.
type StaticFigure struct {
	Plot *gonumplot.Plot

	// Scale maps colour values to point colours, bounded by the data.
	Scale palette.ColorMap

	// Points is the number of rows drawn. Rows with a NaN in any plotted
	// column are skipped.
	Points int
}

// Static builds a static diagram. Colour bounds follow the data; axis ranges
// are fixed.
func Static(t *isochrone.Table, d Diagram) (*StaticFigure, error) {
	pts, err := d.resolve(t)
	if err != nil {
		return nil, err
	}

	lo, hi := pts.colorBounds()
	cm, err := ReversedSpectral(lo, hi)
	if err != nil {
		return nil, err
	}

	xys := make(plotter.XYs, 0, len(pts.x))
	colors := make([]color.Color, 0, len(pts.x))
	for i := range pts.x {
		if !pts.finite(i) {
			continue
		}
		c, err := cm.At(pts.c[i])
		if err != nil {
			return nil, fmt.Errorf("failed to colour row %d: %w", i, err)
		}
		xys = append(xys, plotter.XY{X: pts.x[i], Y: pts.y[i]})
		colors = append(colors, c)
	}

	p := gonumplot.New()
	p.X.Label.Text = d.ColorIndex()
	p.Y.Label.Text = d.Magnitude()
	p.Add(axesFace{Color: darkgridFace})

	grid := plotter.NewGrid()
	grid.Vertical.Color = darkgridLine
	grid.Horizontal.Color = darkgridLine
	p.Add(grid)

	if len(xys) > 0 {
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to create scatter: %w", err)
		}
		scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{Color: colors[i], Radius: markerRadius, Shape: draw.CircleGlyph{}}
		}
		p.Add(scatter)
	}

	if err := addLegend(p, cm, d.Color); err != nil {
		return nil, err
	}

	// Add widens the axes to the data, so the fixed ranges go last.
	p.X.Min, p.X.Max = XMin, XMax
	p.Y.Min, p.Y.Max = YBright, YFaint
	p.Y.Scale = gonumplot.InvertedScale{Normalizer: gonumplot.LinearScale{}}

	return &StaticFigure{Plot: p, Scale: cm, Points: len(xys)}, nil
}

func addLegend(p *gonumplot.Plot, cm palette.ColorMap, title string) error {
	p.Legend.Top = true
	p.Legend.Add(title)

	for i := 0; i < legendLevels; i++ {
		v := cm.Min() + float64(i)*(cm.Max()-cm.Min())/float64(legendLevels-1)
		c, err := cm.At(math.Min(v, cm.Max()))
		if err != nil {
			return fmt.Errorf("failed to sample legend level: %w", err)
		}
		p.Legend.Add(strconv.FormatFloat(v, 'g', 3, 64), swatch{
			GlyphStyle: draw.GlyphStyle{Color: c, Radius: markerRadius * 1.5, Shape: draw.CircleGlyph{}},
		})
		if cm.Max() == cm.Min() {
			break
		}
	}
	return nil
}

// WriteTo writes the figure in the given format (png, svg, pdf, eps, jpg,
// tif). Raster formats are drawn at 200 dpi.
func (f *StaticFigure) WriteTo(w io.Writer, format string) (int64, error) {
	wt, err := f.writerTo(strings.ToLower(strings.TrimPrefix(format, ".")))
	if err != nil {
		return 0, err
	}
	return wt.WriteTo(w)
}

// Save writes the figure to path, choosing the format from its extension.
func (f *StaticFigure) Save(path string) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = f.WriteTo(out, filepath.Ext(path))
	return err
}

func (f *StaticFigure) writerTo(format string) (io.WriterTo, error) {
	var c vg.CanvasWriterTo
	switch format {
	case "png":
		c = vgimg.PngCanvas{Canvas: rasterCanvas()}
	case "jpg", "jpeg":
		c = vgimg.JpegCanvas{Canvas: rasterCanvas()}
	case "tif", "tiff":
		c = vgimg.TiffCanvas{Canvas: rasterCanvas()}
	default:
		wt, err := f.Plot.WriterTo(staticSize, staticSize, format)
		if err != nil {
			return nil, fmt.Errorf("failed to create %q canvas: %w", format, err)
		}
		return wt, nil
	}
	f.Plot.Draw(draw.New(c))
	return c, nil
}

func rasterCanvas() *vgimg.Canvas {
	return vgimg.NewWith(vgimg.UseWH(staticSize, staticSize), vgimg.UseDPI(staticDPI))
}

// axesFace fills the data area.
type axesFace struct {
	Color color.Color
}

func (a axesFace) Plot(c draw.Canvas, _ *gonumplot.Plot) {
	var path vg.Path
	path.Move(c.Min)
	path.Line(vg.Point{X: c.Max.X, Y: c.Min.Y})
	path.Line(c.Max)
	path.Line(vg.Point{X: c.Min.X, Y: c.Max.Y})
	path.Close()

	c.SetColor(a.Color)
	c.Fill(path)
}

type swatch struct {
	draw.GlyphStyle
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.DrawGlyph(s.GlyphStyle, c.Center())
}
