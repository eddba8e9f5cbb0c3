// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// InstrumentCode names a validated psychometric scale. Only its item set is
// used; its score is never computed.
type InstrumentCode string

// Supported instruments.
const (
	WHO5  InstrumentCode = "WHO5"
	PANAS InstrumentCode = "PANAS"
	STAI6 InstrumentCode = "STAI6"
	POMS  InstrumentCode = "POMS"
	SSQ   InstrumentCode = "SSQ"
	GRITS InstrumentCode = "GRITS"
	BRS   InstrumentCode = "BRS"
	SAM   InstrumentCode = "SAM"
	GAS   InstrumentCode = "GAS"
)

// Instruments lists every supported instrument in catalog order.
var Instruments = []InstrumentCode{WHO5, PANAS, STAI6, POMS, SSQ, GRITS, BRS, SAM, GAS}

// Valid reports whether c is one of the supported instruments.
func (c InstrumentCode) Valid() bool {
	for _, known := range Instruments {
		if c == known {
			return true
		}
	}
	return false
}

// ParseInstrument normalizes and validates an instrument code.
func ParseInstrument(s string) (InstrumentCode, error) {
	c := InstrumentCode(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownInstrument, s)
	}
	return c, nil
}

// ProxyKind is the behavioral stand-in carried by an implicit event.
type ProxyKind string

// Supported proxy kinds.
const (
	ProxyDuration   ProxyKind = "duration"
	ProxyChoice     ProxyKind = "choice"
	ProxyCompletion ProxyKind = "completion"
	ProxySkip       ProxyKind = "skip"
	ProxyRepeat     ProxyKind = "repeat"
	ProxyBaseline   ProxyKind = "baseline"
)

// Valid reports whether p is a known proxy kind.
func (p ProxyKind) Valid() bool {
	switch p {
	case ProxyDuration, ProxyChoice, ProxyCompletion, ProxySkip, ProxyRepeat, ProxyBaseline:
		return true
	}
	return false
}

// ContextModule is the context key naming the feature module an event came from.
const ContextModule = "module"

// ImplicitEvent is one raw interaction tagged with the instrument it stands in for.
// Value is either a float64 or a string.
type ImplicitEvent struct {
	EventID    string            `json:"event_id"`
	UserID     string            `json:"user_id"`
	Instrument InstrumentCode    `json:"instrument"`
	ItemID     string            `json:"item_id"`
	Proxy      ProxyKind         `json:"proxy"`
	Value      any               `json:"value"`
	Context    map[string]string `json:"context,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Validate checks the event shape and normalizes numeric values to float64.
func (e *ImplicitEvent) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidEvent)
	}
	if !e.Instrument.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownInstrument, e.Instrument)
	}
	if strings.TrimSpace(e.ItemID) == "" {
		return fmt.Errorf("%w: item_id is required", ErrInvalidEvent)
	}
	if !e.Proxy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidProxy, e.Proxy)
	}
	switch v := e.Value.(type) {
	case float64, string:
	case float32:
		e.Value = float64(v)
	case int:
		e.Value = float64(v)
	case int64:
		e.Value = float64(v)
	case nil:
		return fmt.Errorf("%w: value is required", ErrInvalidEvent)
	default:
		return fmt.Errorf("%w: value must be a number or a string, got %T", ErrInvalidEvent, v)
	}
	return nil
}

// Module returns the feature module recorded in the event context, if any.
func (e *ImplicitEvent) Module() string {
	if e.Context == nil {
		return ""
	}
	return e.Context[ContextModule]
}

// Envelope carries an event through the signal queue. Attempt counts the
// storage writes already tried.
type Envelope struct {
	Event   ImplicitEvent
	Attempt int
}
