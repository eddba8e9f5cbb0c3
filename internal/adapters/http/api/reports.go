package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/garden/internal/domain/model"
)

// handleTeamReport handles GET /v1/orgs/{org}/report?team=&from=&to=.
// Missing bounds default to the month ending now.
func (s *Server) handleTeamReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.team_report"
	q := r.URL.Query()

	end := s.now().UTC()
	var err error
	if v := q.Get("to"); v != "" {
		if end, err = parseTime("to", v); err != nil {
			s.writeError(w, r, WrapKind(op, model.ErrInvalidPeriod, err))
			return
		}
	}
	start := end.AddDate(0, -1, 0)
	if v := q.Get("from"); v != "" {
		if start, err = parseTime("from", v); err != nil {
			s.writeError(w, r, WrapKind(op, model.ErrInvalidPeriod, err))
			return
		}
	}

	report, err := s.deps.TeamReport(r.Context(), chi.URLParam(r, "org"), q.Get("team"), start, end)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
