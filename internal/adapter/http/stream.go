package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const keepAliveInterval = 15 * time.Second

// handleStream serves evaluations over Server-Sent Events. The current
// evaluation arrives first, then one "curve" event per parameter change.
// Comment frames keep idle connections alive through proxies.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := s.board.Subscribe(8)
	defer cancel()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case eval, open := <-updates:
			if !open {
				return
			}
			data, err := json.Marshal(eval)
			if err != nil {
				s.logger.Error("marshal stream event failed", "evaluation_id", eval.ID, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: curve\ndata: %s\n\n", data)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
