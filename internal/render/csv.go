package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
)

// WriteCSV writes the rating curve as a two-column CSV table with a header
// row, one row per sample.
func WriteCSV(w io.Writer, eval domain.Evaluation) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"head_m", "discharge_m3_s"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range eval.Curve {
		row := []string{
			strconv.FormatFloat(s.Head, 'g', -1, 64),
			strconv.FormatFloat(s.Discharge, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
