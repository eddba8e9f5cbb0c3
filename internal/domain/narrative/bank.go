package narrative

import "fmt"

// FallbackSummary is the deterministic summary group.
func FallbackSummary(sessions int) []string {
	return []string{
		"Belle régularité cette semaine",
		fmt.Sprintf("%d sessions complétées", sessions),
		"Continue sur cette lancée",
	}
}

// FallbackHelps is the deterministic suggestion group.
func FallbackHelps() []string {
	return []string{
		"2 min de respiration par jour",
		"Noter 3 gratitudes le soir",
		"Pause écran toutes les heures",
	}
}

// SessionMessage picks the per-session encouragement from the bank by how
// many rounds the user went through.
func SessionMessage(elapsedRounds int) string {
	switch {
	case elapsedRounds < 3:
		return "Continue sur cette lancée"
	case elapsedRounds < 6:
		return "Un pas de plus vers l'équilibre"
	default:
		return "Belle régularité cette semaine"
	}
}
