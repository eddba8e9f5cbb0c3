// Package reward computes weekly streaks and probabilistic rarity tiers.
package reward

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/okian/garden/internal/domain/model"
)

// Default tuning.
const (
	DefaultLegendaryChance = 0.05
	DefaultRareChance      = 0.15

	// StreakWindow is how many recent summaries the streak walk inspects.
	StreakWindow = 5
)

// Option configures a Policy.
type Option func(*Policy)

// WithChances sets the legendary and rare coin-flip probabilities. Values
// outside [0,1] are ignored.
func WithChances(legendary, rare float64) Option {
	return func(p *Policy) {
		if legendary >= 0 && legendary <= 1 {
			p.legendary = legendary
		}
		if rare >= 0 && rare <= 1 {
			p.rare = rare
		}
	}
}

// WithRand replaces the random source, mainly for reproducible tests.
func WithRand(r *rand.Rand) Option {
	return func(p *Policy) {
		if r != nil {
			p.rng = r
		}
	}
}

// Policy is the single rarity table. It is safe for concurrent use.
type Policy struct {
	legendary float64
	rare      float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy creates a rarity policy.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		legendary: DefaultLegendaryChance,
		rare:      DefaultRareChance,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // reward flavour, not security
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EngagementScore is sessions*2 + badges.
func EngagementScore(sessions, badges int) int {
	return sessions*2 + badges
}

// Rarity applies the threshold-then-coin-flip table.
func (p *Policy) Rarity(streak, sessions, badges int) model.Rarity {
	score := EngagementScore(sessions, badges)
	switch {
	case streak >= 3 && score >= 15:
		if p.roll() < p.legendary {
			return model.RarityLegendary
		}
		return model.RarityEpic
	case streak >= 2 || score >= 10:
		if p.roll() < p.rare {
			return model.RarityEpic
		}
		return model.RarityCommonPlus
	case sessions > 3:
		return model.RarityCommonPlus
	default:
		return model.RarityCommon
	}
}

func (p *Policy) roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

// Streak counts consecutive weeks ending at the week of now. Rows are walked
// by week, newest first, over at most StreakWindow distinct weeks; the walk
// stops at the first gap, so a missing current week yields 0.
func Streak(rows []model.WeeklySummary, now time.Time) int {
	sorted := append([]model.WeeklySummary(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].WeekISO != sorted[j].WeekISO {
			return sorted[i].WeekISO > sorted[j].WeekISO
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	weeks := sorted[:0]
	for _, row := range sorted {
		if len(weeks) > 0 && weeks[len(weeks)-1].WeekISO == row.WeekISO {
			continue
		}
		weeks = append(weeks, row)
	}
	sorted = weeks
	if len(sorted) > StreakWindow {
		sorted = sorted[:StreakWindow]
	}

	streak := 0
	for i, row := range sorted {
		start, err := model.ParseWeekISO(row.WeekISO)
		if err != nil {
			break
		}
		if model.WeeksBetween(start, now) != i {
			break
		}
		streak++
	}
	return streak
}
