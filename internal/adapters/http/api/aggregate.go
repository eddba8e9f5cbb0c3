package api

import (
	"errors"
	"net/http"

	"github.com/okian/garden/internal/domain/aggregate"
	"github.com/okian/garden/internal/domain/model"
)

// handleAggregate handles GET /v1/aggregate?instrument=&period=&from=&to=.
// Supplying from without a period selects a custom window.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	const op = "api.aggregate"
	q := r.URL.Query()

	if q.Get("instrument") == "" {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, errors.New("missing instrument")))
		return
	}
	instrument, err := model.ParseInstrument(q.Get("instrument"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}

	rawKind := q.Get("period")
	if rawKind == "" && q.Get("from") != "" {
		rawKind = string(model.PeriodCustom)
	}
	kind, err := aggregate.ParsePeriodKind(rawKind)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	period := model.Period{Kind: kind}
	if kind == model.PeriodCustom {
		if v := q.Get("from"); v != "" {
			if period.From, err = parseTime("from", v); err != nil {
				s.writeError(w, r, WrapKind(op, model.ErrInvalidPeriod, err))
				return
			}
		}
		if v := q.Get("to"); v != "" {
			if period.To, err = parseTime("to", v); err != nil {
				s.writeError(w, r, WrapKind(op, model.ErrInvalidPeriod, err))
				return
			}
		}
	}

	res, err := s.deps.Aggregate(r.Context(), UserID(r.Context()), instrument, period)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleWeekly handles GET /v1/weekly.
func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Weekly(r.Context(), UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, Wrap("api.weekly", err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
