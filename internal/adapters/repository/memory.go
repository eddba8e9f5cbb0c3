package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/garden/internal/domain/model"
)

// MemoryStore keeps everything in process. It backs the default
// configuration and the domain tests.
type MemoryStore struct {
	mu sync.RWMutex

	signals   map[string]model.ImplicitEvent
	sessions  map[string]model.AssessmentSession
	moods     []model.MoodEntry
	summaries map[weekKey]model.WeeklySummary
	gardens   map[weekKey]model.WeeklyGarden
	xp        map[moduleKey]int64
	unlocks   map[moduleKey]map[string]struct{}
	members   map[memberKey]model.Member
	teamCells map[cellKey]model.TeamAggregate
}

type weekKey struct{ user, week string }
type moduleKey struct{ user, module string }
type memberKey struct{ org, user string }
type cellKey struct {
	org, team  string
	theme      model.Theme
	start, end time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		signals:   make(map[string]model.ImplicitEvent),
		sessions:  make(map[string]model.AssessmentSession),
		summaries: make(map[weekKey]model.WeeklySummary),
		gardens:   make(map[weekKey]model.WeeklyGarden),
		xp:        make(map[moduleKey]int64),
		unlocks:   make(map[moduleKey]map[string]struct{}),
		members:   make(map[memberKey]model.Member),
		teamCells: make(map[cellKey]model.TeamAggregate),
	}
}

func (m *MemoryStore) AppendSignal(_ context.Context, e model.ImplicitEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signals[e.EventID]; !ok {
		m.signals[e.EventID] = e
	}
	return nil
}

func (m *MemoryStore) CountModuleSessions(_ context.Context, userID string, w model.Window) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.signals {
		if e.UserID == userID && e.Proxy == model.ProxyCompletion && e.Module() != "" && w.Contains(e.OccurredAt) {
			n++
		}
	}
	return n, nil
}

// SignalCount returns how many signals are buffered.
func (m *MemoryStore) SignalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.signals)
}

func (m *MemoryStore) CreateSession(_ context.Context, s model.AssessmentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, sessionID string) (model.AssessmentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return model.AssessmentSession{}, model.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) CompleteSession(_ context.Context, userID, sessionID string, responses map[string]float64, badge model.Badge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return model.ErrSessionNotFound
	}
	if s.Completed() {
		return model.ErrSessionAlreadyCompleted
	}
	at := badge.AwardedAt
	s.CompletedAt = &at
	s.Responses = make(map[string]float64, len(responses))
	for k, v := range responses {
		s.Responses[k] = v
	}
	b := badge
	s.Badge = &b
	m.sessions[sessionID] = s
	return nil
}

func (m *MemoryStore) CompletedSessions(_ context.Context, userID string, instrument model.InstrumentCode, w model.Window) ([]model.AssessmentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.AssessmentSession
	for _, s := range m.sessions {
		if s.UserID != userID || !s.Completed() || !w.Contains(*s.CompletedAt) {
			continue
		}
		if instrument != "" && !s.Has(instrument) {
			continue
		}
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt.Equal(*out[j].CompletedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CompletedAt.Before(*out[j].CompletedAt)
	})
	return out, nil
}

func (m *MemoryStore) UsersWithCompletedSessions(_ context.Context, instrument model.InstrumentCode, w model.Window) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, s := range m.sessions {
		if !s.Completed() || !w.Contains(*s.CompletedAt) {
			continue
		}
		if instrument != "" && !s.Has(instrument) {
			continue
		}
		seen[s.UserID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) AddMood(_ context.Context, e model.MoodEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moods = append(m.moods, e)
	return nil
}

func (m *MemoryStore) Moods(_ context.Context, userID string, w model.Window) ([]model.MoodEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.MoodEntry
	for _, e := range m.moods {
		if e.UserID == userID && w.Contains(e.RecordedAt) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (m *MemoryStore) UpsertWeeklySummary(_ context.Context, s model.WeeklySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := weekKey{s.UserID, s.WeekISO}
	if prev, ok := m.summaries[k]; ok {
		s.CreatedAt = prev.CreatedAt
	}
	m.summaries[k] = cloneSummary(s)
	return nil
}

func (m *MemoryStore) WeeklySummary(_ context.Context, userID, week string) (model.WeeklySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[weekKey{userID, week}]
	if !ok {
		return model.WeeklySummary{}, model.ErrNotFound
	}
	return cloneSummary(s), nil
}

func (m *MemoryStore) RecentWeeklySummaries(_ context.Context, userID string, limit int) ([]model.WeeklySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.WeeklySummary
	for k, s := range m.summaries {
		if k.user == userID {
			out = append(out, cloneSummary(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekISO != out[j].WeekISO {
			return out[i].WeekISO > out[j].WeekISO
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) UpsertWeeklyGarden(_ context.Context, g model.WeeklyGarden) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gardens[weekKey{g.UserID, g.WeekISO}] = g
	return nil
}

func (m *MemoryStore) WeeklyGarden(_ context.Context, userID, week string) (model.WeeklyGarden, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gardens[weekKey{userID, week}]
	if !ok {
		return model.WeeklyGarden{}, model.ErrNotFound
	}
	return g, nil
}

func (m *MemoryStore) AddXP(_ context.Context, userID, module string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := moduleKey{userID, module}
	m.xp[k] += amount
	return m.xp[k], nil
}

func (m *MemoryStore) UnlockItem(_ context.Context, userID, module, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := moduleKey{userID, module}
	items, ok := m.unlocks[k]
	if !ok {
		items = make(map[string]struct{})
		m.unlocks[k] = items
	}
	if _, dup := items[itemID]; dup {
		return false, nil
	}
	items[itemID] = struct{}{}
	return true, nil
}

func (m *MemoryStore) Progress(_ context.Context, userID, module string) (int64, []string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := moduleKey{userID, module}
	items := make([]string, 0, len(m.unlocks[k]))
	for id := range m.unlocks[k] {
		items = append(items, id)
	}
	sort.Strings(items)
	return m.xp[k], items, nil
}

func (m *MemoryStore) AddMember(_ context.Context, mem model.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[memberKey{mem.OrgID, mem.UserID}] = mem
	return nil
}

func (m *MemoryStore) Members(_ context.Context, orgID, team string) ([]model.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Member
	for k, mem := range m.members {
		if k.org == orgID && (team == "" || mem.TeamName == team) {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamName == out[j].TeamName {
			return out[i].UserID < out[j].UserID
		}
		return out[i].TeamName < out[j].TeamName
	})
	return out, nil
}

func (m *MemoryStore) UpsertTeamAggregate(_ context.Context, a model.TeamAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Phrases = append([]string(nil), a.Phrases...)
	m.teamCells[cellKey{a.OrgID, a.TeamName, a.Theme, ts(a.PeriodStart), ts(a.PeriodEnd)}] = a
	return nil
}

// TeamAggregates returns the persisted cells of an org, sorted by key.
func (m *MemoryStore) TeamAggregates(_ context.Context, orgID string) ([]model.TeamAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.TeamAggregate
	for k, a := range m.teamCells {
		if k.org == orgID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func cloneSession(s model.AssessmentSession) model.AssessmentSession {
	s.Instruments = append([]model.InstrumentCode(nil), s.Instruments...)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		s.CompletedAt = &at
	}
	if s.Responses != nil {
		r := make(map[string]float64, len(s.Responses))
		for k, v := range s.Responses {
			r[k] = v
		}
		s.Responses = r
	}
	if s.Context != nil {
		c := make(map[string]string, len(s.Context))
		for k, v := range s.Context {
			c[k] = v
		}
		s.Context = c
	}
	if s.Badge != nil {
		b := *s.Badge
		s.Badge = &b
	}
	return s
}

func cloneSummary(s model.WeeklySummary) model.WeeklySummary {
	s.VerbalWeek = append([]string(nil), s.VerbalWeek...)
	s.Helps = append([]string(nil), s.Helps...)
	if s.Hints != nil {
		h := make(map[string]bool, len(s.Hints))
		for k, v := range s.Hints {
			h[k] = v
		}
		s.Hints = h
	}
	return s
}
