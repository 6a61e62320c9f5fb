package render

import (
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
)

// WritePDF writes an A4 worksheet: heading, parameter and result table, the
// rating equation, and the curve drawn with vector primitives.
func WritePDF(w io.Writer, eval domain.Evaluation) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, eval.Title())
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Q = Cd * b * H * sqrt(2 * g * H),  g = 9.81 m/s2")
	pdf.Ln(10)

	rows := []struct {
		label string
		value string
	}{
		{"Discharge coefficient Cd", fmt.Sprintf("%.2f", eval.Params.Cd)},
		{"Crest width b", fmt.Sprintf("%.2f m", eval.Params.CrestWidth)},
		{"Maximum head H_max", fmt.Sprintf("%.2f m", eval.Params.MaxHead)},
		{"Samples", fmt.Sprintf("%d (from %.3f m)", eval.Sampling.Count, eval.Sampling.MinHead)},
		{"Peak discharge", fmt.Sprintf("%.3f m3/s", eval.Peak.Discharge)},
		{"Evaluation", eval.ID},
		{"Evaluated at", eval.EvaluatedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 7, row.label, "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(80, 7, row.value, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	drawCurve(pdf, eval)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf worksheet: %w", err)
	}
	return nil
}

// drawCurve plots the rating curve into a fixed frame below the table using
// line primitives: axis box, tick labels at the corners, and the polyline.
func drawCurve(pdf *gofpdf.Fpdf, eval domain.Evaluation) {
	const (
		left   = 25.0
		top    = 120.0
		width  = 160.0
		height = 100.0
	)

	if len(eval.Curve) < 2 {
		return
	}

	minH := eval.Curve[0].Head
	maxH := eval.Curve[len(eval.Curve)-1].Head
	maxQ := eval.Peak.Discharge

	toX := func(h float64) float64 {
		return left + (h-minH)/(maxH-minH)*width
	}
	toY := func(q float64) float64 {
		return top + height - q/maxQ*height
	}

	// Frame and axis labels.
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Rect(left, top, width, height, "D")

	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(left, top+height+5, fmt.Sprintf("%.3f", minH))
	pdf.Text(left+width-8, top+height+5, fmt.Sprintf("%.2f", maxH))
	pdf.Text(left+width/2-10, top+height+9, "Head H (m)")
	pdf.TransformBegin()
	pdf.TransformRotate(90, left-5, top+height/2)
	pdf.Text(left-5, top+height/2, "Discharge Q (m3/s)")
	pdf.TransformEnd()
	pdf.Text(left-12, top+3, fmt.Sprintf("%.2f", maxQ))

	pdf.SetDrawColor(31, 119, 180)
	pdf.SetLineWidth(0.5)
	prev := eval.Curve[0]
	for _, s := range eval.Curve[1:] {
		pdf.Line(toX(prev.Head), toY(prev.Discharge), toX(s.Head), toY(s.Discharge))
		prev = s
	}
}
