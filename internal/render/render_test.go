package render_test

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvaluation(t *testing.T) domain.Evaluation {
	t.Helper()
	eval, err := domain.NewEvaluation(
		domain.Params{Cd: 0.5, CrestWidth: 2.0, MaxHead: 0.6},
		domain.Sampling{Count: 40, MinHead: 0.01},
	)
	require.NoError(t, err)
	eval.EvaluatedAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return eval
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.WritePNG(&buf, testEvaluation(t)))

	// PNG signature.
	require.Greater(t, buf.Len(), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, buf.Bytes()[:8])
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.WriteSVG(&buf, testEvaluation(t)))

	svg := buf.String()
	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "Head H (m)")
	assert.Contains(t, svg, "Discharge Q (m³/s)")
	assert.Contains(t, svg, "Broad-crested weir rating curve (b = 2.00 m, Cd = 0.50)")
}

func TestWriteCSV(t *testing.T) {
	eval := testEvaluation(t)
	var buf bytes.Buffer
	require.NoError(t, render.WriteCSV(&buf, eval))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 41, "header plus one row per sample")

	assert.Equal(t, []string{"head_m", "discharge_m3_s"}, rows[0])

	firstHead, err := strconv.ParseFloat(rows[1][0], 64)
	require.NoError(t, err)
	assert.Equal(t, 0.01, firstHead)

	lastQ, err := strconv.ParseFloat(rows[40][1], 64)
	require.NoError(t, err)
	assert.InDelta(t, eval.Peak.Discharge, lastQ, 1e-9)
}

func TestWriteXLSX(t *testing.T) {
	eval := testEvaluation(t)
	var buf bytes.Buffer
	require.NoError(t, render.WriteXLSX(&buf, eval))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Samples")
	require.NoError(t, err)
	require.Len(t, rows, 41)
	assert.Equal(t, "Head H (m)", rows[0][0])

	head, err := f.GetCellValue("Samples", "A2")
	require.NoError(t, err)
	assert.Equal(t, "0.01", head)

	id, err := f.GetCellValue("Parameters", "B1")
	require.NoError(t, err)
	assert.Equal(t, eval.ID, id)

	cd, err := f.GetCellValue("Parameters", "B2")
	require.NoError(t, err)
	assert.Equal(t, "0.5", cd)
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.WritePDF(&buf, testEvaluation(t)))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}
