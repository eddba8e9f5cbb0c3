package aggregate

import (
	"fmt"
	"time"

	"github.com/okian/garden/internal/domain/model"
)

// ParsePeriodKind maps a query value to a period kind; empty means last_week.
func ParsePeriodKind(s string) (model.PeriodKind, error) {
	switch model.PeriodKind(s) {
	case "", model.PeriodLastWeek:
		return model.PeriodLastWeek, nil
	case model.PeriodLastMonth:
		return model.PeriodLastMonth, nil
	case model.PeriodCustom:
		return model.PeriodCustom, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", model.ErrInvalidPeriod, s)
}

// Resolve turns a period into a half-open window ending at now (or at the
// explicit To of a custom period). Relative windows are truncated to the
// second so concurrent requests resolve to the same key.
func Resolve(p model.Period, now time.Time) (model.Window, error) {
	now = now.UTC().Truncate(time.Second)
	switch p.Kind {
	case "", model.PeriodLastWeek:
		return model.Window{From: now.AddDate(0, 0, -7), To: now}, nil
	case model.PeriodLastMonth:
		return model.Window{From: now.AddDate(0, -1, 0), To: now}, nil
	case model.PeriodCustom:
		if p.From.IsZero() {
			return model.Window{}, fmt.Errorf("%w: custom period needs from", model.ErrInvalidPeriod)
		}
		to := p.To
		if to.IsZero() {
			to = now
		}
		from, to := p.From.UTC(), to.UTC()
		if !from.Before(to) {
			return model.Window{}, fmt.Errorf("%w: from must precede to", model.ErrInvalidPeriod)
		}
		return model.Window{From: from, To: to}, nil
	}
	return model.Window{}, fmt.Errorf("%w: unknown period %q", model.ErrInvalidPeriod, p.Kind)
}
