package model

import (
	"fmt"
	"time"
)

// Season is the mood season derived for a week.
type Season string

// Seasons.
const (
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
)

// Hint keys.
const (
	HintTensionEased = "tensionEased"
	HintSleepFragile = "sleepFragile"
)

// MaxVerbalLines caps verbal_week and helps.
const MaxVerbalLines = 3

// WeeklySummary is the verbal digest of one user's week.
type WeeklySummary struct {
	UserID     string          `json:"user_id"`
	WeekISO    string          `json:"week_iso"`
	VerbalWeek []string        `json:"verbal_week"`
	Helps      []string        `json:"helps"`
	Season     Season          `json:"season,omitempty"`
	Hints      map[string]bool `json:"hints,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// PlantType is the growth stage of the garden plant.
type PlantType string

// Plant stages.
const (
	PlantSprout PlantType = "sprout"
	PlantBush   PlantType = "bush"
	PlantTree   PlantType = "tree"
)

// PlantState describes the garden plant.
type PlantState struct {
	Growth  int       `json:"growth"`
	Type    PlantType `json:"type"`
	Flowers int       `json:"flowers"`
}

// SkyTime is the time of day painted in the garden sky.
type SkyTime string

// Sky times, in precedence order.
const (
	SkyNight SkyTime = "night"
	SkyDusk  SkyTime = "dusk"
	SkyDawn  SkyTime = "dawn"
	SkyDay   SkyTime = "day"
)

// SkyState describes the garden sky.
type SkyState struct {
	Time      SkyTime `json:"time"`
	Weather   string  `json:"weather"`
	Particles bool    `json:"particles"`
}

// Rarity is a 1..4 reward tier.
type Rarity int

// Rarity tiers.
const (
	RarityCommon     Rarity = 1
	RarityCommonPlus Rarity = 2
	RarityEpic       Rarity = 3
	RarityLegendary  Rarity = 4
)

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityCommonPlus:
		return "common_plus"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	}
	return fmt.Sprintf("rarity(%d)", int(r))
}

// WeeklyGarden is the visualization state recomputed with its summary.
type WeeklyGarden struct {
	UserID     string     `json:"user_id"`
	WeekISO    string     `json:"week_iso"`
	PlantState PlantState `json:"plant_state"`
	SkyState   SkyState   `json:"sky_state"`
	Rarity     Rarity     `json:"rarity"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// WeekISO formats the Thursday-anchored ISO 8601 week of t, e.g. "2026-W42".
func WeekISO(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// ParseWeekISO returns the Monday 00:00 UTC that starts the given ISO week.
func ParseWeekISO(s string) (time.Time, error) {
	var y, w int
	if _, err := fmt.Sscanf(s, "%4d-W%2d", &y, &w); err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}
	if w < 1 || w > 53 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}
	start := weekMonday(time.Date(y, time.January, 4, 0, 0, 0, 0, time.UTC)).AddDate(0, 0, (w-1)*7)
	if WeekISO(start) != s {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}
	return start, nil
}

// WeeksBetween returns how many whole ISO weeks separate the week of from
// and the week of to. It is negative when to is earlier.
func WeeksBetween(from, to time.Time) int {
	a := weekMonday(from.UTC())
	b := weekMonday(to.UTC())
	return int(b.Sub(a).Hours()/24) / 7
}

func weekMonday(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
