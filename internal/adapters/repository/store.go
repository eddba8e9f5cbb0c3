// Package repository persists engine entities in memory or in a SQL database.
package repository

import (
	"context"
	"time"

	"github.com/okian/garden/internal/domain/model"
)

// Store is the full persistence surface of the engine. Window reads are
// half-open [from, to) and every write is an insert or an upsert by key.
type Store interface {
	// AppendSignal buffers an implicit event. Re-appending the same event id
	// is a no-op.
	AppendSignal(ctx context.Context, e model.ImplicitEvent) error
	// CountModuleSessions counts completion signals tagged with a module.
	CountModuleSessions(ctx context.Context, userID string, w model.Window) (int, error)

	CreateSession(ctx context.Context, s model.AssessmentSession) error
	GetSession(ctx context.Context, sessionID string) (model.AssessmentSession, error)
	// CompleteSession performs the single open -> completed transition.
	// It returns model.ErrSessionNotFound for unknown ids or another user's
	// session and model.ErrSessionAlreadyCompleted when already submitted.
	CompleteSession(ctx context.Context, userID, sessionID string, responses map[string]float64, badge model.Badge) error
	// CompletedSessions lists completed sessions ordered by completion time.
	// An empty instrument matches every session.
	CompletedSessions(ctx context.Context, userID string, instrument model.InstrumentCode, w model.Window) ([]model.AssessmentSession, error)
	// UsersWithCompletedSessions lists distinct users with at least one
	// completed session in the window.
	UsersWithCompletedSessions(ctx context.Context, instrument model.InstrumentCode, w model.Window) ([]string, error)

	AddMood(ctx context.Context, m model.MoodEntry) error
	Moods(ctx context.Context, userID string, w model.Window) ([]model.MoodEntry, error)

	// UpsertWeeklySummary overwrites content and keeps the first created_at.
	UpsertWeeklySummary(ctx context.Context, s model.WeeklySummary) error
	WeeklySummary(ctx context.Context, userID, week string) (model.WeeklySummary, error)
	// RecentWeeklySummaries returns up to limit rows, newest created first.
	RecentWeeklySummaries(ctx context.Context, userID string, limit int) ([]model.WeeklySummary, error)
	UpsertWeeklyGarden(ctx context.Context, g model.WeeklyGarden) error
	WeeklyGarden(ctx context.Context, userID, week string) (model.WeeklyGarden, error)

	// AddXP atomically adds amount and returns the new total.
	AddXP(ctx context.Context, userID, module string, amount int64) (int64, error)
	// UnlockItem reports whether the item was newly unlocked.
	UnlockItem(ctx context.Context, userID, module, itemID string) (bool, error)
	// Progress returns the total XP and sorted unlocked items; zero values
	// for a module never touched.
	Progress(ctx context.Context, userID, module string) (int64, []string, error)

	AddMember(ctx context.Context, m model.Member) error
	// Members lists an org's members; an empty team matches every team.
	Members(ctx context.Context, orgID, team string) ([]model.Member, error)
	UpsertTeamAggregate(ctx context.Context, a model.TeamAggregate) error
	// TeamAggregates lists the persisted cells of an org.
	TeamAggregates(ctx context.Context, orgID string) ([]model.TeamAggregate, error)

	Close() error
}

func ts(t time.Time) time.Time { return t.UTC().Truncate(time.Microsecond) }
