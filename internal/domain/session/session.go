// Package session opens and closes assessment sessions and records mood
// check-ins.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/garden/internal/domain/catalog"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/domain/narrative"
	"github.com/okian/garden/pkg/logger"
	"github.com/okian/garden/pkg/metrics"
)

// Store is the persistence the recorder needs.
type Store interface {
	CreateSession(ctx context.Context, s model.AssessmentSession) error
	GetSession(ctx context.Context, sessionID string) (model.AssessmentSession, error)
	CompleteSession(ctx context.Context, userID, sessionID string, responses map[string]float64, badge model.Badge) error
	AddMood(ctx context.Context, m model.MoodEntry) error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithCatalog replaces the embedded instrument catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(r *Recorder) {
		if c != nil {
			r.catalog = c
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// Recorder implements start, submit and mood recording.
type Recorder struct {
	store   Store
	catalog *catalog.Catalog
	now     func() time.Time
	log     logger.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:   store,
		catalog: catalog.Default(),
		now:     time.Now,
		log:     logger.Named("session"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start allocates a session and returns the item set of each instrument.
// Duplicate instruments are collapsed, keeping the first position.
func (r *Recorder) Start(ctx context.Context, userID string, instruments []model.InstrumentCode, sessCtx map[string]string) (model.SessionHandle, error) {
	if strings.TrimSpace(userID) == "" {
		return model.SessionHandle{}, fmt.Errorf("%w: user_id is required", model.ErrInvalidEvent)
	}
	if len(instruments) == 0 {
		metrics.RecordSessionRejected("no_instruments")
		return model.SessionHandle{}, fmt.Errorf("%w: at least one instrument is required", model.ErrUnknownInstrument)
	}

	handle := model.SessionHandle{Items: make(map[model.InstrumentCode][]string, len(instruments))}
	codes := make([]model.InstrumentCode, 0, len(instruments))
	for _, code := range instruments {
		if _, dup := handle.Items[code]; dup {
			continue
		}
		items, err := r.catalog.Items(code)
		if err != nil {
			metrics.RecordSessionRejected("unknown_instrument")
			return model.SessionHandle{}, err
		}
		handle.Items[code] = items
		codes = append(codes, code)
	}

	s := model.AssessmentSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		Instruments: codes,
		StartedAt:   r.now().UTC(),
		Context:     sessCtx,
	}
	if err := r.store.CreateSession(ctx, s); err != nil {
		return model.SessionHandle{}, fmt.Errorf("start session: %w", err)
	}
	handle.SessionID = s.ID
	metrics.RecordSessionStarted(string(codes[0]))
	r.log.Debug(ctx, "session started",
		logger.String("session_id", s.ID),
		logger.Int("instruments", len(codes)))
	return handle, nil
}

// Submit attaches responses and completes the session exactly once.
func (r *Recorder) Submit(ctx context.Context, userID, sessionID string, responses map[string]float64, elapsedRounds int) (model.SubmitResult, error) {
	s, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			metrics.RecordSessionRejected("not_found")
		}
		return model.SubmitResult{}, err
	}
	if s.UserID != userID {
		metrics.RecordSessionRejected("not_found")
		return model.SubmitResult{}, model.ErrSessionNotFound
	}
	if s.Completed() {
		metrics.RecordSessionRejected("already_completed")
		return model.SubmitResult{}, model.ErrSessionAlreadyCompleted
	}
	if err := r.validateResponses(s, responses); err != nil {
		metrics.RecordSessionRejected("invalid_response")
		return model.SubmitResult{}, err
	}

	badge := r.badgeFor(s)
	if err := r.store.CompleteSession(ctx, userID, sessionID, responses, badge); err != nil {
		if errors.Is(err, model.ErrSessionAlreadyCompleted) || errors.Is(err, model.ErrSessionNotFound) {
			metrics.RecordSessionRejected("race")
			return model.SubmitResult{}, err
		}
		return model.SubmitResult{}, fmt.Errorf("submit session: %w", err)
	}

	metrics.RecordSessionCompleted(string(badge.Kind))
	return model.SubmitResult{Badge: badge.Label, Message: narrative.SessionMessage(elapsedRounds)}, nil
}

func (r *Recorder) validateResponses(s model.AssessmentSession, responses map[string]float64) error {
	for item := range responses {
		ok := false
		for _, code := range s.Instruments {
			if r.catalog.HasItem(code, item) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: item %q is not part of this session", model.ErrInvalidResponse, item)
		}
	}
	return nil
}

func (r *Recorder) badgeFor(s model.AssessmentSession) model.Badge {
	b := model.Badge{Kind: model.BadgePresence, Label: "Présence du jour", AwardedAt: r.now().UTC()}
	if len(s.Instruments) == 0 {
		return b
	}
	if inst, ok := r.catalog.Lookup(s.Instruments[0]); ok && inst.Badge.Kind != "" {
		b.Kind, b.Label = inst.Badge.Kind, inst.Badge.Label
	}
	return b
}

// RecordMood stores a valence/arousal check-in clamped to the mood scale.
func (r *Recorder) RecordMood(ctx context.Context, userID string, valence, arousal float64) (model.MoodEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return model.MoodEntry{}, fmt.Errorf("%w: user_id is required", model.ErrInvalidEvent)
	}
	m := model.MoodEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		Valence:    model.ClampMood(valence),
		Arousal:    model.ClampMood(arousal),
		RecordedAt: r.now().UTC(),
	}
	if err := r.store.AddMood(ctx, m); err != nil {
		return model.MoodEntry{}, fmt.Errorf("record mood: %w", err)
	}
	metrics.RecordMoodEntry()
	return m, nil
}
