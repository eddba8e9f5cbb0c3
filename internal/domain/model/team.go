package model

import "time"

// Theme is a reportable team cell dimension.
type Theme string

// Themes.
const (
	ThemeStress     Theme = "stress"
	ThemeFatigue    Theme = "fatigue"
	ThemeEnergy     Theme = "energy"
	ThemeEngagement Theme = "engagement"
)

// Themes lists every theme in report order.
var Themes = []Theme{ThemeStress, ThemeFatigue, ThemeEnergy, ThemeEngagement}

// TeamAggregate is one disclosed (theme, team) cell. It carries no user ids.
type TeamAggregate struct {
	OrgID       string    `json:"org_id"`
	TeamName    string    `json:"team_name"`
	Theme       Theme     `json:"theme"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Phrases     []string  `json:"phrases"`
	SampleSize  int       `json:"sample_size"`
}

// Key returns the cell key "<theme>/<team>".
func (a TeamAggregate) Key() string { return string(a.Theme) + "/" + a.TeamName }

// TeamReport is the output of a team rollup. Suppressed is set when no cell
// reached the anonymity floor.
type TeamReport struct {
	OrgID       string          `json:"org_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Cells       []TeamAggregate `json:"cells"`
	Suppressed  bool            `json:"suppressed"`
}

// Member links a user to a team inside an organization.
type Member struct {
	OrgID    string `db:"org_id"`
	TeamName string `db:"team_name"`
	UserID   string `db:"user_id"`
}
