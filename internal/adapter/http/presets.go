package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/store"
)

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.history.ListPresets(r.Context())
	if err != nil {
		s.logger.Error("list presets failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "presets unavailable"})
		return
	}
	if presets == nil {
		presets = []store.Preset{}
	}
	writeJSON(w, http.StatusOK, presets)
}

type savePresetRequest struct {
	Name   string         `json:"name"`
	Params *domain.Params `json:"params,omitempty"` // nil saves the board's current parameters
}

func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var req savePresetRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request: " + err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	params := s.board.Params()
	if req.Params != nil {
		params = *req.Params
		if err := params.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	if err := s.history.SavePreset(r.Context(), req.Name, params, time.Now().UTC()); err != nil {
		s.logger.Error("save preset failed", "name", req.Name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "save failed"})
		return
	}

	preset, err := s.history.GetPreset(r.Context(), req.Name)
	if err != nil {
		s.logger.Error("read back preset failed", "name", req.Name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "save failed"})
		return
	}
	writeJSON(w, http.StatusCreated, preset)
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	preset, err := s.history.GetPreset(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrPresetNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("get preset failed", "name", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "preset unavailable"})
		return
	}

	params := preset.Params()
	res, err := s.board.Apply(r.Context(), domain.Patch{
		Cd:         &params.Cd,
		CrestWidth: &params.CrestWidth,
		MaxHead:    &params.MaxHead,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParameter) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("apply preset failed", "name", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "apply failed"})
		return
	}

	writeJSON(w, http.StatusOK, applyResponse{
		Evaluation: summarize(res.Evaluation),
		Clamped:    res.Clamped,
		Changed:    res.Changed,
	})
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := s.history.DeletePreset(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrPresetNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("delete preset failed", "name", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delete failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
