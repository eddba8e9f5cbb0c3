// Package narrative turns an aggregation window into short verbal lines. A
// generative text service is asked first; a fixed phrase bank answers when it
// cannot.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/pkg/logger"
	"github.com/okian/garden/pkg/metrics"
)

// Delimiter separates the summary group from the suggestion group.
const Delimiter = "---"

// numbered matches list prefixes such as "1. " or "12) ", not "1.5".
var numbered = regexp.MustCompile(`^\d+[.)]\s+`)

// ErrUnavailable marks a generator that is not configured or not reachable.
var ErrUnavailable = errors.New("generative service unavailable")

// Fallback reasons, also used as metric labels.
const (
	ReasonUnavailable = "unavailable"
	ReasonTimeout     = "timeout"
	ReasonError       = "error"
	ReasonMalformed   = "malformed"
	ReasonEmpty       = "empty"
)

// Request is what the generator sees: an instruction and a window summary.
type Request struct {
	Instruction string
	Data        string
}

// Generator is the external text service. Implementations return the raw,
// untrusted completion text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Lines is the typed result of one composition.
type Lines struct {
	Summary  []string
	Helps    []string
	Fallback string // empty when the generator answered
}

// Option configures a Narrator.
type Option func(*Narrator)

// WithTimeout bounds each generator call.
func WithTimeout(d time.Duration) Option {
	return func(n *Narrator) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// Narrator composes verbal lines. A nil generator always falls back.
type Narrator struct {
	gen     Generator
	timeout time.Duration
	log     logger.Logger
}

// New creates a Narrator.
func New(gen Generator, opts ...Option) *Narrator {
	n := &Narrator{
		gen:     gen,
		timeout: 4 * time.Second,
		log:     logger.Named("narrative"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Compose never fails: any generator problem yields the phrase bank.
func (n *Narrator) Compose(ctx context.Context, instrument model.InstrumentCode, sessions int) Lines {
	if n.gen == nil {
		return n.fallback(ctx, sessions, ReasonUnavailable, nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	text, err := n.gen.Generate(callCtx, Request{
		Instruction: instruction,
		Data:        WindowSummary(instrument, sessions),
	})
	metrics.RecordNarrativeLatency(float64(time.Since(start).Milliseconds()))

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return n.fallback(ctx, sessions, ReasonTimeout, err)
	case errors.Is(err, ErrUnavailable):
		return n.fallback(ctx, sessions, ReasonUnavailable, err)
	default:
		return n.fallback(ctx, sessions, ReasonError, err)
	}

	summary, helps, err := Parse(text)
	if err != nil {
		return n.fallback(ctx, sessions, ReasonMalformed, err)
	}
	if len(summary) == 0 || len(helps) == 0 {
		return n.fallback(ctx, sessions, ReasonEmpty, nil)
	}
	return Lines{Summary: summary, Helps: helps}
}

func (n *Narrator) fallback(ctx context.Context, sessions int, reason string, err error) Lines {
	metrics.RecordNarrativeFallback(reason)
	fields := []logger.Field{logger.String("reason", reason), logger.Int("sessions", sessions)}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	n.log.Debug(ctx, "using phrase bank", fields...)
	return Lines{Summary: FallbackSummary(sessions), Helps: FallbackHelps(), Fallback: reason}
}

const instruction = "Tu accompagnes une personne dans son bien-être. " +
	"Réponds en français avec deux groupes d'au plus 3 lignes courtes, sans chiffres de score ni diagnostic. " +
	"Premier groupe: un résumé bienveillant de la semaine. Deuxième groupe: des suggestions concrètes. " +
	"Sépare les deux groupes par une ligne contenant uniquement " + Delimiter + "."

// WindowSummary describes the window to the generator. It carries counts only.
func WindowSummary(instrument model.InstrumentCode, sessions int) string {
	return fmt.Sprintf("Questionnaire: %s. Sessions complétées sur la période: %d.", instrument, sessions)
}

// Parse splits generator output on Delimiter and returns at most
// model.MaxVerbalLines non-empty lines per group.
func Parse(text string) (summary, helps []string, err error) {
	parts := strings.SplitN(text, Delimiter, 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("missing %q delimiter", Delimiter)
	}
	return lines(parts[0]), lines(strings.ReplaceAll(parts[1], Delimiter, "\n")), nil
}

func lines(group string) []string {
	var out []string
	for _, raw := range strings.Split(group, "\n") {
		l := cleanLine(raw)
		if l == "" {
			continue
		}
		out = append(out, l)
		if len(out) == model.MaxVerbalLines {
			break
		}
	}
	return out
}

func cleanLine(raw string) string {
	l := strings.TrimSpace(raw)
	l = strings.TrimLeft(l, "-*•· \t")
	return strings.TrimSpace(numbered.ReplaceAllString(l, ""))
}
