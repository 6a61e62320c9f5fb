// Package render produces the output-boundary artifacts of an evaluation:
// rating-curve images (PNG, SVG), tabular exports (CSV, XLSX), and a PDF
// worksheet. All writers are pure functions of the evaluation they receive.
package render

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
)

var curveColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// WritePNG renders the rating curve as a PNG raster.
func WritePNG(w io.Writer, eval domain.Evaluation) error {
	return writePlot(w, eval, "png")
}

// WriteSVG renders the rating curve as an SVG vector image.
func WriteSVG(w io.Writer, eval domain.Evaluation) error {
	return writePlot(w, eval, "svg")
}

func writePlot(w io.Writer, eval domain.Evaluation, format string) error {
	p := plot.New()
	p.Title.Text = eval.Title()
	p.X.Label.Text = "Head H (m)"
	p.Y.Label.Text = "Discharge Q (m³/s)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(eval.Curve))
	for i, s := range eval.Curve {
		pts[i].X = s.Head
		pts[i].Y = s.Discharge
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build curve line: %w", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = curveColor
	p.Add(line)

	wt, err := p.WriterTo(7*vg.Inch, 4.5*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("render %s plot: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s plot: %w", format, err)
	}
	return nil
}
