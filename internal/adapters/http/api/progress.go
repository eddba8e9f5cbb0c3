package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type grantXPRequest struct {
	Amount int64  `json:"amount"`
	Source string `json:"source"`
}

type unlockRequest struct {
	ItemID string `json:"item_id"`
}

// handleGrantXP handles POST /v1/progress/{module}/xp.
func (s *Server) handleGrantXP(w http.ResponseWriter, r *http.Request) {
	const op = "api.grant_xp"
	var req grantXPRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	grant, err := s.deps.GrantXP(r.Context(), UserID(r.Context()), chi.URLParam(r, "module"), req.Amount, req.Source)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

// handleUnlock handles POST /v1/progress/{module}/unlock and answers with the
// module's progress after the unlock.
func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	const op = "api.unlock_item"
	var req unlockRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.ItemID == "" {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, errors.New("missing item_id")))
		return
	}
	ctx := r.Context()
	module := chi.URLParam(r, "module")
	if err := s.deps.UnlockItem(ctx, UserID(ctx), module, req.ItemID); err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	p, err := s.deps.Progress(ctx, UserID(ctx), module)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleProgress handles GET /v1/progress/{module}.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Progress(r.Context(), UserID(r.Context()), chi.URLParam(r, "module"))
	if err != nil {
		s.writeError(w, r, Wrap("api.progress", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
