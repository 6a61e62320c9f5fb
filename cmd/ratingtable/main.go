// Command ratingtable produces a one-shot rating table or chart for a
// broad-crested weir without running the service.
//
// Usage:
//
//	go run ./cmd/ratingtable -cd 0.5 -width 2.0 -max-head 0.6
//	go run ./cmd/ratingtable -cd 0.5 -width 2.0 -max-head 0.6 -format png -o curve.png
//	go run ./cmd/ratingtable -format csv > curve.csv
//
// Formats: table (aligned text, default), csv, json, png, svg, xlsx, pdf.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/render"
)

func main() {
	cd := flag.Float64("cd", 0.6, "discharge coefficient Cd")
	width := flag.Float64("width", 2.0, "crest width b in meters")
	maxHead := flag.Float64("max-head", 1.0, "maximum head in meters")
	samples := flag.Int("samples", domain.DefaultSampleCount, "number of curve samples")
	minHead := flag.Float64("min-head", domain.DefaultMinHead, "lower sampling bound in meters")
	format := flag.String("format", "table", "output format: table, csv, json, png, svg, xlsx, pdf")
	out := flag.String("o", "", "output file (default stdout)")
	flag.Parse()

	if code := run(*cd, *width, *maxHead, *samples, *minHead, *format, *out); code != 0 {
		os.Exit(code)
	}
}

func run(cd, width, maxHead float64, samples int, minHead float64, format, out string) int {
	eval, err := domain.NewEvaluation(
		domain.Params{Cd: cd, CrestWidth: width, MaxHead: maxHead},
		domain.Sampling{Count: samples, MinHead: minHead},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "table":
		err = writeTable(w, eval)
	case "csv":
		err = render.WriteCSV(w, eval)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(eval)
	case "png":
		err = render.WritePNG(w, eval)
	case "svg":
		err = render.WriteSVG(w, eval)
	case "xlsx":
		err = render.WriteXLSX(w, eval)
	case "pdf":
		err = render.WritePDF(w, eval)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown format %q\n", format)
		return 2
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func writeTable(w io.Writer, eval domain.Evaluation) error {
	fmt.Fprintln(w, eval.Title())
	fmt.Fprintf(w, "Peak discharge: %.3f m3/s\n\n", eval.Peak.Discharge)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "H (m)\tQ (m3/s)\t")
	for _, s := range eval.Curve {
		fmt.Fprintf(tw, "%.4f\t%.4f\t\n", s.Head, s.Discharge)
	}
	return tw.Flush()
}
