package model

import "time"

// AssessmentSession is a bounded run of one or more instruments. It is
// mutated exactly once, on submit.
type AssessmentSession struct {
	ID          string             `json:"id" db:"id"`
	UserID      string             `json:"user_id" db:"user_id"`
	Instruments []InstrumentCode   `json:"instruments"`
	StartedAt   time.Time          `json:"started_at" db:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty" db:"completed_at"`
	Responses   map[string]float64 `json:"responses,omitempty"`
	Context     map[string]string  `json:"context,omitempty"`
	Badge       *Badge             `json:"badge,omitempty"`
}

// Completed reports whether the session has been submitted.
func (s *AssessmentSession) Completed() bool { return s.CompletedAt != nil }

// Has reports whether the session covers instrument c.
func (s *AssessmentSession) Has(c InstrumentCode) bool {
	for _, i := range s.Instruments {
		if i == c {
			return true
		}
	}
	return false
}

// SessionHandle is returned by start: the session id and the item ids the
// client must present for each instrument.
type SessionHandle struct {
	SessionID string                      `json:"session_id"`
	Items     map[InstrumentCode][]string `json:"items"`
}

// SubmitResult is the verbal feedback for a completed session.
type SubmitResult struct {
	Badge   string `json:"badge"`
	Message string `json:"message"`
}

// BadgeKind classifies a badge for insight rules.
type BadgeKind string

// Badge kinds.
const (
	BadgeTension  BadgeKind = "tension"
	BadgeFatigue  BadgeKind = "fatigue"
	BadgeMood     BadgeKind = "mood"
	BadgeAnchor   BadgeKind = "anchor"
	BadgePresence BadgeKind = "presence"
)

// Badge is awarded once per completed session.
type Badge struct {
	Kind      BadgeKind `json:"kind"`
	Label     string    `json:"label"`
	AwardedAt time.Time `json:"awarded_at"`
}

// MoodEntry is a valence/arousal check-in, both on [-2, 2].
type MoodEntry struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Valence    float64   `json:"valence" db:"valence"`
	Arousal    float64   `json:"arousal" db:"arousal"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// Mood bounds.
const (
	MoodMin = -2.0
	MoodMax = 2.0
)

// ClampMood bounds v to the mood scale.
func ClampMood(v float64) float64 {
	if v < MoodMin {
		return MoodMin
	}
	if v > MoodMax {
		return MoodMax
	}
	return v
}
