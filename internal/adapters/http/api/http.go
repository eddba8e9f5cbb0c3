// Package api exposes the signal engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/garden/internal/domain/aggregate"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Emit buffers an implicit signal. It never fails.
	Emit(ctx context.Context, e model.ImplicitEvent)

	StartSession(ctx context.Context, userID string, instruments []model.InstrumentCode, sessCtx map[string]string) (model.SessionHandle, error)
	SubmitSession(ctx context.Context, userID, sessionID string, responses map[string]float64, elapsedRounds int) (model.SubmitResult, error)
	RecordMood(ctx context.Context, userID string, valence, arousal float64) (model.MoodEntry, error)

	Aggregate(ctx context.Context, userID string, instrument model.InstrumentCode, period model.Period) (model.AggregateResult, error)
	Weekly(ctx context.Context, userID string) (aggregate.WeeklyView, error)

	GrantXP(ctx context.Context, userID, module string, amount int64, source string) (model.XPGrant, error)
	UnlockItem(ctx context.Context, userID, module, itemID string) error
	Progress(ctx context.Context, userID, module string) (model.ModuleProgress, error)

	TeamReport(ctx context.Context, orgID, teamName string, start, end time.Time) (model.TeamReport, error)
}

// Server wires HTTP routes for the engine API.
type Server struct {
	deps    Dependencies
	stats   *StatsHandler
	health  *HealthHandler
	limiter *RateLimiter
	now     func() time.Time
	log     logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		stats:   NewStatsHandler(statsProvider),
		health:  NewHealthHandler(),
		limiter: NewRateLimiter(defaultRatePerSecond, defaultBurst),
		now:     time.Now,
		log:     logger.Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all engine routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.stats.HandleStats, "stats"))

	r.Route("/v1", func(r chi.Router) {
		r.Use(Identity)

		r.Post("/signals", MetricsMiddleware(s.handlePostSignals, "signals"))

		r.Post("/sessions", MetricsMiddleware(s.handleStartSession, "sessions_start"))
		r.Post("/sessions/{id}/submit", MetricsMiddleware(s.handleSubmitSession, "sessions_submit"))
		r.Post("/moods", MetricsMiddleware(s.handleRecordMood, "moods"))

		r.Get("/aggregate", MetricsMiddleware(s.handleAggregate, "aggregate"))
		r.Get("/weekly", MetricsMiddleware(s.handleWeekly, "weekly"))

		r.Get("/progress/{module}", MetricsMiddleware(s.handleProgress, "progress"))
		r.Post("/progress/{module}/xp", MetricsMiddleware(s.handleGrantXP, "progress_xp"))
		r.Post("/progress/{module}/unlock", MetricsMiddleware(s.handleUnlock, "progress_unlock"))

		r.Get("/orgs/{org}/report", MetricsMiddleware(s.handleTeamReport, "team_report"))
	})
}

// Handler returns a router with every engine route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status. Server errors are logged and answered with
// a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// parseTime accepts RFC3339 timestamps and plain dates.
func parseTime(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid %s; must be RFC3339 or YYYY-MM-DD", field)
}
