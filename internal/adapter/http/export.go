package http

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/render"
)

func (s *Server) handleCurveCSV(w http.ResponseWriter, _ *http.Request) {
	eval := s.board.Current()
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="rating-curve.csv"`)
	if err := render.WriteCSV(w, eval); err != nil {
		s.logger.Error("render csv failed", "evaluation_id", eval.ID, "error", err)
	}
}

func (s *Server) handleCurveXLSX(w http.ResponseWriter, _ *http.Request) {
	s.serveArtifact(w, "xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		`attachment; filename="rating-curve.xlsx"`, render.WriteXLSX)
}

func (s *Server) handlePlotPNG(w http.ResponseWriter, _ *http.Request) {
	s.serveArtifact(w, "png", "image/png", "", render.WritePNG)
}

func (s *Server) handlePlotSVG(w http.ResponseWriter, _ *http.Request) {
	s.serveArtifact(w, "svg", "image/svg+xml", "", render.WriteSVG)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, _ *http.Request) {
	s.serveArtifact(w, "pdf", "application/pdf",
		`attachment; filename="weir-worksheet.pdf"`, render.WritePDF)
}

// serveArtifact renders (or replays from the cache) the current evaluation in
// the given format. Cache keys combine the deterministic evaluation ID with
// the format, so a parameter change invalidates naturally.
func (s *Server) serveArtifact(w http.ResponseWriter, format, contentType, disposition string, write func(io.Writer, domain.Evaluation) error) {
	eval := s.board.Current()
	start := time.Now()

	data, hit, err := s.cache.GetOrRender(eval.ID+":"+format, func(buf io.Writer) error {
		return write(buf, eval)
	})
	if err != nil {
		s.logger.Error("render failed", "format", format, "evaluation_id", eval.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render failed"})
		return
	}

	if hit {
		s.metrics.RenderCache.WithLabelValues(format, "hit").Inc()
	} else {
		s.metrics.RenderCache.WithLabelValues(format, "miss").Inc()
		s.metrics.RenderDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	}

	w.Header().Set("Content-Type", contentType)
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	io.Copy(w, bytes.NewReader(data)) //nolint:errcheck // client may disconnect mid-download
}
