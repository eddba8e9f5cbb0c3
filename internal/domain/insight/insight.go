// Package insight derives verbal tags, hints, helps, season and the garden
// plant and sky from a window's auxiliary signals. Everything here is pure.
package insight

import (
	"github.com/okian/garden/internal/domain/model"
)

// Verbal tags.
const (
	TagPose  = "posé"
	TagNuit  = "nuit"
	TagClair = "clair"
	TagActif = "actif"
	TagDoux  = "doux"
)

// Suggestions attached by the rules.
const (
	HelpBreathing = "Respiration lente avant les moments tendus"
	HelpWindDown  = "Rituel du soir sans écran avant le coucher"
	HelpJournal   = "Noter un moment lumineux de la journée"
	HelpGentle    = "2 min de respiration par jour"
)

// Derive applies the insight rules in order and caps tags and helps at
// model.MaxVerbalLines. Rules that fire after the caps are reached lose their
// tag and help but may still set the season.
func Derive(s model.Signals) model.Insights {
	tension, fatigue := 0, 0
	for _, b := range s.Badges {
		switch b.Kind {
		case model.BadgeTension:
			tension++
		case model.BadgeFatigue:
			fatigue++
		}
	}
	valence, arousal := meanMood(s.Moods)

	out := model.Insights{Hints: map[string]bool{}}
	var tags, helps []string

	if tension > 2 || arousal < -1 {
		tags = append(tags, TagPose)
		out.Hints[model.HintTensionEased] = true
		helps = append(helps, HelpBreathing)
		out.Season = model.SeasonAutumn
	}
	if fatigue > 1 || valence < -0.5 {
		tags = append(tags, TagNuit)
		out.Hints[model.HintSleepFragile] = true
		helps = append(helps, HelpWindDown)
		out.Season = model.SeasonWinter
	}
	if valence > 0.5 && arousal > 0 {
		tags = append(tags, TagClair)
		helps = append(helps, HelpJournal)
		out.Season = model.SeasonSpring
	}
	if s.Sessions > 3 {
		tags = append(tags, TagActif)
		out.Season = model.SeasonSummer
	}
	if len(tags) == 0 {
		tags = append(tags, TagDoux)
		helps = append(helps, HelpGentle)
	}

	out.VerbalWeek = capLines(tags)
	out.Helps = capLines(helps)
	return out
}

// Plant computes the garden plant for a window.
func Plant(s model.Signals) model.PlantState {
	growth := s.Sessions*10 + len(s.Badges)*5
	if growth > 100 {
		growth = 100
	}
	p := model.PlantState{Growth: growth}
	switch {
	case growth < 40:
		p.Type = model.PlantSprout
	case growth <= 70:
		p.Type = model.PlantBush
	default:
		p.Type = model.PlantTree
	}
	for _, m := range s.Moods {
		if m.Valence > 0 {
			p.Flowers++
		}
	}
	return p
}

// Sky picks the garden sky from the verbal tags with precedence
// night > dusk > dawn > day.
func Sky(in model.Insights) model.SkyState {
	has := make(map[string]bool, len(in.VerbalWeek))
	for _, t := range in.VerbalWeek {
		has[t] = true
	}
	var sky model.SkyState
	switch {
	case has[TagNuit]:
		sky.Time, sky.Weather = model.SkyNight, "starry"
	case has[TagPose]:
		sky.Time, sky.Weather = model.SkyDusk, "breeze"
	case has[TagDoux]:
		sky.Time, sky.Weather = model.SkyDawn, "mist"
	default:
		sky.Time, sky.Weather = model.SkyDay, "sunny"
	}
	sky.Particles = has[TagActif] || has[TagClair]
	return sky
}

// Themes maps the verbal tags to the team report themes they count toward.
func Themes(in model.Insights) []model.Theme {
	var out []model.Theme
	for _, t := range in.VerbalWeek {
		switch t {
		case TagPose:
			out = append(out, model.ThemeStress)
		case TagNuit:
			out = append(out, model.ThemeFatigue)
		case TagClair:
			out = append(out, model.ThemeEnergy)
		case TagActif:
			out = append(out, model.ThemeEngagement)
		}
	}
	return out
}

func meanMood(moods []model.MoodEntry) (valence, arousal float64) {
	if len(moods) == 0 {
		return 0, 0
	}
	for _, m := range moods {
		valence += m.Valence
		arousal += m.Arousal
	}
	n := float64(len(moods))
	return valence / n, arousal / n
}

func capLines(in []string) []string {
	if len(in) > model.MaxVerbalLines {
		in = in[:model.MaxVerbalLines]
	}
	if in == nil {
		return []string{}
	}
	return in
}
