package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/garden/internal/domain/model"
)

type startSessionRequest struct {
	Instruments []string          `json:"instruments"`
	Context     map[string]string `json:"context"`
}

type submitSessionRequest struct {
	Responses     map[string]float64 `json:"responses"`
	ElapsedRounds int                `json:"elapsed_rounds"`
}

type moodRequest struct {
	Valence *float64 `json:"valence"`
	Arousal *float64 `json:"arousal"`
}

// handleStartSession handles POST /v1/sessions.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	codes := make([]model.InstrumentCode, 0, len(req.Instruments))
	for _, raw := range req.Instruments {
		c, err := model.ParseInstrument(raw)
		if err != nil {
			s.writeError(w, r, Wrap(op, err))
			return
		}
		codes = append(codes, c)
	}
	handle, err := s.deps.StartSession(r.Context(), UserID(r.Context()), codes, req.Context)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, handle)
}

// handleSubmitSession handles POST /v1/sessions/{id}/submit.
func (s *Server) handleSubmitSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_session"
	var req submitSessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.ElapsedRounds < 0 {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, errors.New("elapsed_rounds must not be negative")))
		return
	}
	res, err := s.deps.SubmitSession(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), req.Responses, req.ElapsedRounds)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRecordMood handles POST /v1/moods.
func (s *Server) handleRecordMood(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_mood"
	var req moodRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Valence == nil || req.Arousal == nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, errors.New("valence and arousal are required")))
		return
	}
	entry, err := s.deps.RecordMood(r.Context(), UserID(r.Context()), *req.Valence, *req.Arousal)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
