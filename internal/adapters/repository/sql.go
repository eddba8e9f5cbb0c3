package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/pkg/metrics"
)

// Driver names accepted by OpenSQL.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() { //nolint:gochecknoinits // register the placeholder style of the modernc driver name
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQLStore implements Store on PostgreSQL or SQLite through sqlx. Queries are
// written with ? placeholders and rebound per driver.
type SQLStore struct {
	db *sqlx.DB

	maxOpenConns    int
	connMaxLifetime time.Duration
}

// OpenSQL connects to driver/dsn, pings it and applies the schema.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if dsn == "" {
		return nil, ErrMissingDSN
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	s := NewSQLStore(db, opts...)
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		// each connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an existing connection. The schema is not applied.
func NewSQLStore(db *sqlx.DB, opts ...Option) *SQLStore {
	s := &SQLStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxOpenConns > 0 {
		db.SetMaxOpenConns(s.maxOpenConns)
	}
	if s.connMaxLifetime > 0 {
		db.SetConnMaxLifetime(s.connMaxLifetime)
	}
	return s
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) observe(op string, start time.Time, err *error) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil && !errors.Is(*err, model.ErrNotFound) &&
		!errors.Is(*err, model.ErrSessionNotFound) && !errors.Is(*err, model.ErrSessionAlreadyCompleted) {
		metrics.RecordRepositoryError(op)
	}
}

func (s *SQLStore) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.db.Rebind(q), args...)
}

func (s *SQLStore) AppendSignal(ctx context.Context, e model.ImplicitEvent) (err error) {
	defer s.observe("append_signal", time.Now(), &err)
	value, err := json.Marshal(e.Value)
	if err != nil {
		return fmt.Errorf("encode signal value: %w", err)
	}
	_, err = s.exec(ctx, `INSERT INTO signal_buffer
		(event_id, user_id, instrument, item_id, proxy, value, context, module, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.UserID, string(e.Instrument), e.ItemID, string(e.Proxy),
		string(value), encodeMap(e.Context), e.Module(), ts(e.OccurredAt))
	if err != nil {
		return fmt.Errorf("append signal: %w", err)
	}
	return nil
}

func (s *SQLStore) CountModuleSessions(ctx context.Context, userID string, w model.Window) (n int, err error) {
	defer s.observe("count_module_sessions", time.Now(), &err)
	err = s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM signal_buffer
		WHERE user_id = ? AND proxy = ? AND module <> '' AND occurred_at >= ? AND occurred_at < ?`),
		userID, string(model.ProxyCompletion), ts(w.From), ts(w.To))
	if err != nil {
		return 0, fmt.Errorf("count module sessions: %w", err)
	}
	return n, nil
}

type sessionRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Instruments string         `db:"instruments"`
	StartedAt   time.Time      `db:"started_at"`
	CompletedAt *time.Time     `db:"completed_at"`
	Responses   sql.NullString `db:"responses"`
	Context     string         `db:"context"`
	BadgeKind   sql.NullString `db:"badge_kind"`
	BadgeLabel  sql.NullString `db:"badge_label"`
}

const sessionColumns = `id, user_id, instruments, started_at, completed_at, responses, context, badge_kind, badge_label`

func (r sessionRow) toModel() (model.AssessmentSession, error) {
	out := model.AssessmentSession{
		ID:          r.ID,
		UserID:      r.UserID,
		Instruments: decodeInstruments(r.Instruments),
		StartedAt:   r.StartedAt.UTC(),
	}
	if r.CompletedAt != nil {
		at := r.CompletedAt.UTC()
		out.CompletedAt = &at
	}
	if r.Responses.Valid && r.Responses.String != "" {
		if err := json.Unmarshal([]byte(r.Responses.String), &out.Responses); err != nil {
			return out, fmt.Errorf("decode responses of %s: %w", r.ID, err)
		}
	}
	if r.Context != "" {
		if err := json.Unmarshal([]byte(r.Context), &out.Context); err != nil {
			return out, fmt.Errorf("decode context of %s: %w", r.ID, err)
		}
	}
	if r.BadgeKind.Valid && out.CompletedAt != nil {
		out.Badge = &model.Badge{Kind: model.BadgeKind(r.BadgeKind.String), Label: r.BadgeLabel.String, AwardedAt: *out.CompletedAt}
	}
	return out, nil
}

func (s *SQLStore) CreateSession(ctx context.Context, sess model.AssessmentSession) (err error) {
	defer s.observe("create_session", time.Now(), &err)
	_, err = s.exec(ctx, `INSERT INTO assessment_sessions (id, user_id, instruments, started_at, context)
		VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, encodeInstruments(sess.Instruments), ts(sess.StartedAt), encodeMap(sess.Context))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSession(ctx context.Context, sessionID string) (_ model.AssessmentSession, err error) {
	defer s.observe("get_session", time.Now(), &err)
	var row sessionRow
	err = s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+sessionColumns+` FROM assessment_sessions WHERE id = ?`), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AssessmentSession{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.AssessmentSession{}, fmt.Errorf("get session: %w", err)
	}
	return row.toModel()
}

func (s *SQLStore) CompleteSession(ctx context.Context, userID, sessionID string, responses map[string]float64, badge model.Badge) (err error) {
	defer s.observe("complete_session", time.Now(), &err)
	body, err := json.Marshal(responses)
	if err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}
	res, err := s.exec(ctx, `UPDATE assessment_sessions
		SET completed_at = ?, responses = ?, badge_kind = ?, badge_label = ?
		WHERE id = ? AND user_id = ? AND completed_at IS NULL`,
		ts(badge.AwardedAt), string(body), string(badge.Kind), badge.Label, sessionID, userID)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n == 1 {
		return nil
	}

	var owner struct {
		UserID      string     `db:"user_id"`
		CompletedAt *time.Time `db:"completed_at"`
	}
	err = s.db.GetContext(ctx, &owner, s.db.Rebind(`SELECT user_id, completed_at FROM assessment_sessions WHERE id = ?`), sessionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.ErrSessionNotFound
	case err != nil:
		return fmt.Errorf("complete session: %w", err)
	case owner.UserID != userID:
		return model.ErrSessionNotFound
	default:
		return model.ErrSessionAlreadyCompleted
	}
}

func (s *SQLStore) CompletedSessions(ctx context.Context, userID string, instrument model.InstrumentCode, w model.Window) (_ []model.AssessmentSession, err error) {
	defer s.observe("completed_sessions", time.Now(), &err)
	var rows []sessionRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT `+sessionColumns+` FROM assessment_sessions
		WHERE user_id = ? AND completed_at IS NOT NULL AND completed_at >= ? AND completed_at < ?
		AND instruments LIKE ?
		ORDER BY completed_at, id`),
		userID, ts(w.From), ts(w.To), instrumentPattern(instrument))
	if err != nil {
		return nil, fmt.Errorf("completed sessions: %w", err)
	}
	out := make([]model.AssessmentSession, 0, len(rows))
	for _, r := range rows {
		m, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *SQLStore) UsersWithCompletedSessions(ctx context.Context, instrument model.InstrumentCode, w model.Window) (users []string, err error) {
	defer s.observe("users_with_sessions", time.Now(), &err)
	err = s.db.SelectContext(ctx, &users, s.db.Rebind(`SELECT DISTINCT user_id FROM assessment_sessions
		WHERE completed_at IS NOT NULL AND completed_at >= ? AND completed_at < ? AND instruments LIKE ?
		ORDER BY user_id`),
		ts(w.From), ts(w.To), instrumentPattern(instrument))
	if err != nil {
		return nil, fmt.Errorf("users with sessions: %w", err)
	}
	return users, nil
}

func (s *SQLStore) AddMood(ctx context.Context, m model.MoodEntry) (err error) {
	defer s.observe("add_mood", time.Now(), &err)
	_, err = s.exec(ctx, `INSERT INTO mood_entries (id, user_id, valence, arousal, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Valence, m.Arousal, ts(m.RecordedAt))
	if err != nil {
		return fmt.Errorf("add mood: %w", err)
	}
	return nil
}

func (s *SQLStore) Moods(ctx context.Context, userID string, w model.Window) (out []model.MoodEntry, err error) {
	defer s.observe("moods", time.Now(), &err)
	err = s.db.SelectContext(ctx, &out, s.db.Rebind(`SELECT id, user_id, valence, arousal, recorded_at FROM mood_entries
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ? ORDER BY recorded_at, id`),
		userID, ts(w.From), ts(w.To))
	if err != nil {
		return nil, fmt.Errorf("moods: %w", err)
	}
	for i := range out {
		out[i].RecordedAt = out[i].RecordedAt.UTC()
	}
	return out, nil
}

type summaryRow struct {
	UserID     string    `db:"user_id"`
	WeekISO    string    `db:"week_iso"`
	VerbalWeek string    `db:"verbal_week"`
	Helps      string    `db:"helps"`
	Season     string    `db:"season"`
	Hints      string    `db:"hints"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

const summaryColumns = `user_id, week_iso, verbal_week, helps, season, hints, created_at, updated_at`

func (r summaryRow) toModel() (model.WeeklySummary, error) {
	out := model.WeeklySummary{
		UserID:    r.UserID,
		WeekISO:   r.WeekISO,
		Season:    model.Season(r.Season),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.VerbalWeek), &out.VerbalWeek); err != nil {
		return out, fmt.Errorf("decode verbal_week: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Helps), &out.Helps); err != nil {
		return out, fmt.Errorf("decode helps: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Hints), &out.Hints); err != nil {
		return out, fmt.Errorf("decode hints: %w", err)
	}
	return out, nil
}

func (s *SQLStore) UpsertWeeklySummary(ctx context.Context, w model.WeeklySummary) (err error) {
	defer s.observe("upsert_weekly_summary", time.Now(), &err)
	verbal, _ := json.Marshal(nonNil(w.VerbalWeek))
	helps, _ := json.Marshal(nonNil(w.Helps))
	hints, _ := json.Marshal(w.Hints)
	_, err = s.exec(ctx, `INSERT INTO weekly_summaries (`+summaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, week_iso) DO UPDATE SET
			verbal_week = excluded.verbal_week,
			helps = excluded.helps,
			season = excluded.season,
			hints = excluded.hints,
			updated_at = excluded.updated_at`,
		w.UserID, w.WeekISO, string(verbal), string(helps), string(w.Season), string(hints), ts(w.CreatedAt), ts(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert weekly summary: %w", err)
	}
	return nil
}

func (s *SQLStore) WeeklySummary(ctx context.Context, userID, week string) (_ model.WeeklySummary, err error) {
	defer s.observe("weekly_summary", time.Now(), &err)
	var row summaryRow
	err = s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+summaryColumns+` FROM weekly_summaries WHERE user_id = ? AND week_iso = ?`), userID, week)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WeeklySummary{}, model.ErrNotFound
	}
	if err != nil {
		return model.WeeklySummary{}, fmt.Errorf("weekly summary: %w", err)
	}
	return row.toModel()
}

func (s *SQLStore) RecentWeeklySummaries(ctx context.Context, userID string, limit int) (_ []model.WeeklySummary, err error) {
	defer s.observe("recent_weekly_summaries", time.Now(), &err)
	var rows []summaryRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT `+summaryColumns+` FROM weekly_summaries
		WHERE user_id = ? ORDER BY week_iso DESC, created_at DESC LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent weekly summaries: %w", err)
	}
	out := make([]model.WeeklySummary, 0, len(rows))
	for _, r := range rows {
		m, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

type gardenRow struct {
	UserID    string    `db:"user_id"`
	WeekISO   string    `db:"week_iso"`
	Growth    int       `db:"growth"`
	PlantType string    `db:"plant_type"`
	Flowers   int       `db:"flowers"`
	SkyTime   string    `db:"sky_time"`
	Weather   string    `db:"weather"`
	Particles bool      `db:"particles"`
	Rarity    int       `db:"rarity"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *SQLStore) UpsertWeeklyGarden(ctx context.Context, g model.WeeklyGarden) (err error) {
	defer s.observe("upsert_weekly_garden", time.Now(), &err)
	_, err = s.exec(ctx, `INSERT INTO weekly_gardens
		(user_id, week_iso, growth, plant_type, flowers, sky_time, weather, particles, rarity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, week_iso) DO UPDATE SET
			growth = excluded.growth,
			plant_type = excluded.plant_type,
			flowers = excluded.flowers,
			sky_time = excluded.sky_time,
			weather = excluded.weather,
			particles = excluded.particles,
			rarity = excluded.rarity,
			updated_at = excluded.updated_at`,
		g.UserID, g.WeekISO, g.PlantState.Growth, string(g.PlantState.Type), g.PlantState.Flowers,
		string(g.SkyState.Time), g.SkyState.Weather, g.SkyState.Particles, int(g.Rarity), ts(g.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert weekly garden: %w", err)
	}
	return nil
}

func (s *SQLStore) WeeklyGarden(ctx context.Context, userID, week string) (_ model.WeeklyGarden, err error) {
	defer s.observe("weekly_garden", time.Now(), &err)
	var r gardenRow
	err = s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT user_id, week_iso, growth, plant_type, flowers, sky_time, weather, particles, rarity, updated_at
		FROM weekly_gardens WHERE user_id = ? AND week_iso = ?`), userID, week)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WeeklyGarden{}, model.ErrNotFound
	}
	if err != nil {
		return model.WeeklyGarden{}, fmt.Errorf("weekly garden: %w", err)
	}
	return model.WeeklyGarden{
		UserID:     r.UserID,
		WeekISO:    r.WeekISO,
		PlantState: model.PlantState{Growth: r.Growth, Type: model.PlantType(r.PlantType), Flowers: r.Flowers},
		SkyState:   model.SkyState{Time: model.SkyTime(r.SkyTime), Weather: r.Weather, Particles: r.Particles},
		Rarity:     model.Rarity(r.Rarity),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}, nil
}

func (s *SQLStore) AddXP(ctx context.Context, userID, module string, amount int64) (total int64, err error) {
	defer s.observe("add_xp", time.Now(), &err)
	err = s.db.GetContext(ctx, &total, s.db.Rebind(`INSERT INTO module_progress (user_id, module_name, total_xp)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, module_name) DO UPDATE SET total_xp = module_progress.total_xp + excluded.total_xp
		RETURNING total_xp`), userID, module, amount)
	if err != nil {
		return 0, fmt.Errorf("add xp: %w", err)
	}
	return total, nil
}

func (s *SQLStore) UnlockItem(ctx context.Context, userID, module, itemID string) (_ bool, err error) {
	defer s.observe("unlock_item", time.Now(), &err)
	res, err := s.exec(ctx, `INSERT INTO module_unlocks (user_id, module_name, item_id, unlocked_at)
		VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`, userID, module, itemID, ts(time.Now()))
	if err != nil {
		return false, fmt.Errorf("unlock item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlock item: %w", err)
	}
	return n == 1, nil
}

func (s *SQLStore) Progress(ctx context.Context, userID, module string) (total int64, items []string, err error) {
	defer s.observe("progress", time.Now(), &err)
	err = s.db.GetContext(ctx, &total, s.db.Rebind(`SELECT total_xp FROM module_progress WHERE user_id = ? AND module_name = ?`), userID, module)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, nil, fmt.Errorf("progress: %w", err)
	}
	err = s.db.SelectContext(ctx, &items, s.db.Rebind(`SELECT item_id FROM module_unlocks
		WHERE user_id = ? AND module_name = ? ORDER BY item_id`), userID, module)
	if err != nil {
		return 0, nil, fmt.Errorf("progress unlocks: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return total, items, nil
}

func (s *SQLStore) AddMember(ctx context.Context, m model.Member) (err error) {
	defer s.observe("add_member", time.Now(), &err)
	_, err = s.exec(ctx, `INSERT INTO org_members (org_id, team_name, user_id) VALUES (?, ?, ?)
		ON CONFLICT (org_id, user_id) DO UPDATE SET team_name = excluded.team_name`,
		m.OrgID, m.TeamName, m.UserID)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *SQLStore) Members(ctx context.Context, orgID, team string) (out []model.Member, err error) {
	defer s.observe("members", time.Now(), &err)
	q := `SELECT org_id, team_name, user_id FROM org_members WHERE org_id = ?`
	args := []any{orgID}
	if team != "" {
		q += ` AND team_name = ?`
		args = append(args, team)
	}
	q += ` ORDER BY team_name, user_id`
	if err = s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("members: %w", err)
	}
	return out, nil
}

func (s *SQLStore) UpsertTeamAggregate(ctx context.Context, a model.TeamAggregate) (err error) {
	defer s.observe("upsert_team_aggregate", time.Now(), &err)
	phrases, _ := json.Marshal(nonNil(a.Phrases))
	_, err = s.exec(ctx, `INSERT INTO team_aggregates
		(org_id, team_name, theme, period_start, period_end, phrases, sample_size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, team_name, theme, period_start, period_end) DO UPDATE SET
			phrases = excluded.phrases,
			sample_size = excluded.sample_size,
			updated_at = excluded.updated_at`,
		a.OrgID, a.TeamName, string(a.Theme), ts(a.PeriodStart), ts(a.PeriodEnd), string(phrases), a.SampleSize, ts(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert team aggregate: %w", err)
	}
	return nil
}

// TeamAggregates returns the persisted cells of an org, sorted by key.
func (s *SQLStore) TeamAggregates(ctx context.Context, orgID string) (_ []model.TeamAggregate, err error) {
	defer s.observe("team_aggregates", time.Now(), &err)
	var rows []struct {
		OrgID       string    `db:"org_id"`
		TeamName    string    `db:"team_name"`
		Theme       string    `db:"theme"`
		PeriodStart time.Time `db:"period_start"`
		PeriodEnd   time.Time `db:"period_end"`
		Phrases     string    `db:"phrases"`
		SampleSize  int       `db:"sample_size"`
	}
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT org_id, team_name, theme, period_start, period_end, phrases, sample_size
		FROM team_aggregates WHERE org_id = ?`), orgID)
	if err != nil {
		return nil, fmt.Errorf("team aggregates: %w", err)
	}
	out := make([]model.TeamAggregate, 0, len(rows))
	for _, r := range rows {
		a := model.TeamAggregate{
			OrgID: r.OrgID, TeamName: r.TeamName, Theme: model.Theme(r.Theme),
			PeriodStart: r.PeriodStart.UTC(), PeriodEnd: r.PeriodEnd.UTC(), SampleSize: r.SampleSize,
		}
		if err := json.Unmarshal([]byte(r.Phrases), &a.Phrases); err != nil {
			return nil, fmt.Errorf("decode phrases: %w", err)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// encodeInstruments stores codes as ",WHO5,STAI6," so LIKE '%,WHO5,%' matches.
func encodeInstruments(codes []model.InstrumentCode) string {
	var b strings.Builder
	b.WriteByte(',')
	for _, c := range codes {
		b.WriteString(string(c))
		b.WriteByte(',')
	}
	return b.String()
}

func decodeInstruments(s string) []model.InstrumentCode {
	var out []model.InstrumentCode
	for _, p := range strings.Split(strings.Trim(s, ","), ",") {
		if p != "" {
			out = append(out, model.InstrumentCode(p))
		}
	}
	return out
}

func instrumentPattern(c model.InstrumentCode) string {
	if c == "" {
		return "%"
	}
	return "%," + string(c) + ",%"
}

func encodeMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
