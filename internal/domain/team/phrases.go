package team

import "github.com/okian/garden/internal/domain/model"

type themeWords struct {
	one, many, noun string
}

var words = map[model.Theme]themeWords{
	model.ThemeStress:     {"ressent de la tension", "ressentent de la tension", "de tension"},
	model.ThemeFatigue:    {"manque de récupération", "manquent de récupération", "de fatigue"},
	model.ThemeEnergy:     {"se sent pleine d'énergie", "se sentent pleines d'énergie", "d'énergie"},
	model.ThemeEngagement: {"s'implique avec régularité", "s'impliquent avec régularité", "d'engagement"},
}

// Phrase describes a theme from its count among respondents only.
func Phrase(theme model.Theme, count, respondents int) string {
	w := words[theme]
	if respondents <= 0 || count <= 0 {
		return "Peu de signaux " + w.noun + " sur la période"
	}
	ratio := float64(count) / float64(respondents)
	switch {
	case ratio >= 0.5:
		return "Une majorité de l'équipe " + w.one
	case ratio >= 0.25:
		return "Une partie de l'équipe " + w.one
	default:
		return "Quelques personnes " + w.many
	}
}
