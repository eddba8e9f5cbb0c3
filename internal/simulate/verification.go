package simulate

import (
	"fmt"
	"regexp"

	"github.com/okian/garden/internal/domain/model"
)

// maxLines caps verbal_week and helps.
const maxLines = 3

var digitsWithUnit = regexp.MustCompile(`\d+\s*(/|%|pts|points)`)

// verifyAggregate checks res against the gate and the line caps, given the
// number of WHO5 sessions the user completed. It returns one message per
// violated rule.
func verifyAggregate(res model.AggregateResult, sessions, minSessions int) []string {
	var out []string
	switch {
	case sessions < minSessions && res.CanShow:
		out = append(out, fmt.Sprintf("shown with %d sessions, gate is %d", sessions, minSessions))
	case sessions >= minSessions && !res.CanShow:
		out = append(out, fmt.Sprintf("hidden with %d sessions, gate is %d", sessions, minSessions))
	}
	if !res.CanShow {
		if len(res.VerbalWeek) != 0 || len(res.Helps) != 0 || res.Summary != model.InsufficientData {
			out = append(out, "gated result carries lines")
		}
		return out
	}
	if len(res.VerbalWeek) > maxLines {
		out = append(out, fmt.Sprintf("verbal_week has %d lines", len(res.VerbalWeek)))
	}
	if len(res.Helps) > maxLines {
		out = append(out, fmt.Sprintf("helps has %d lines", len(res.Helps)))
	}
	for _, line := range append(append([]string{}, res.VerbalWeek...), res.Helps...) {
		if digitsWithUnit.MatchString(line) {
			out = append(out, fmt.Sprintf("line looks like a score: %q", line))
		}
	}
	return out
}
