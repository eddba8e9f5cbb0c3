package model

import "time"

// PeriodKind selects how an aggregation window is resolved.
type PeriodKind string

// Period kinds.
const (
	PeriodLastWeek  PeriodKind = "last_week"
	PeriodLastMonth PeriodKind = "last_month"
	PeriodCustom    PeriodKind = "custom"
)

// Period is a requested aggregation window. From and To are only read for
// custom periods; a zero To means now.
type Period struct {
	Kind PeriodKind
	From time.Time
	To   time.Time
}

// Window is a resolved half-open interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// InsufficientData is the summary returned when the sample gate is not met.
const InsufficientData = "insufficient data"

// AggregateResult is the verbal outcome of one aggregation.
type AggregateResult struct {
	CanShow    bool     `json:"can_show"`
	VerbalWeek []string `json:"verbal_week"`
	Helps      []string `json:"helps"`
	Summary    string   `json:"summary"`
	WeekISO    string   `json:"week_iso,omitempty"`
}

// Insights is the State Deriver output.
type Insights struct {
	VerbalWeek []string        `json:"verbal_week"`
	Hints      map[string]bool `json:"hints"`
	Helps      []string        `json:"helps"`
	Season     Season          `json:"season,omitempty"`
}

// Signals are the auxiliary inputs collected for a window. Sessions counts
// completed assessment sessions plus module completions; Completed counts the
// assessment sessions alone.
type Signals struct {
	Badges    []Badge
	Moods     []MoodEntry
	Sessions  int
	Completed int
}
