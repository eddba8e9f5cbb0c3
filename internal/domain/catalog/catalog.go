// Package catalog holds the static item sets of every supported instrument.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/okian/garden/internal/domain/model"
)

//go:embed instruments.yaml
var instrumentsYAML []byte

// Instrument is one catalog entry.
type Instrument struct {
	Code  model.InstrumentCode `yaml:"code"`
	Name  string               `yaml:"name"`
	Badge BadgeSpec            `yaml:"badge"`
	Items []string             `yaml:"items"`
}

// BadgeSpec is the badge awarded when a session leads with the instrument.
type BadgeSpec struct {
	Kind  model.BadgeKind `yaml:"kind"`
	Label string          `yaml:"label"`
}

type document struct {
	Instruments []Instrument `yaml:"instruments"`
}

// Catalog is an immutable lookup over instruments.
type Catalog struct {
	byCode map[model.InstrumentCode]Instrument
	order  []model.InstrumentCode
}

// Parse builds a catalog from YAML. Every entry must be a known instrument
// with a non-empty, duplicate-free item set.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{byCode: make(map[model.InstrumentCode]Instrument, len(doc.Instruments))}
	for _, inst := range doc.Instruments {
		if !inst.Code.Valid() {
			return nil, fmt.Errorf("catalog: %w: %q", model.ErrUnknownInstrument, inst.Code)
		}
		if _, dup := c.byCode[inst.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate instrument %s", inst.Code)
		}
		if len(inst.Items) == 0 {
			return nil, fmt.Errorf("catalog: instrument %s has no items", inst.Code)
		}
		seen := make(map[string]struct{}, len(inst.Items))
		for _, item := range inst.Items {
			if _, dup := seen[item]; dup {
				return nil, fmt.Errorf("catalog: instrument %s repeats item %q", inst.Code, item)
			}
			seen[item] = struct{}{}
		}
		c.byCode[inst.Code] = inst
		c.order = append(c.order, inst.Code)
	}
	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(instrumentsYAML)
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

// Lookup returns the entry for code.
func (c *Catalog) Lookup(code model.InstrumentCode) (Instrument, bool) {
	inst, ok := c.byCode[code]
	return inst, ok
}

// Items returns a copy of the item ids for code.
func (c *Catalog) Items(code model.InstrumentCode) ([]string, error) {
	inst, ok := c.byCode[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownInstrument, code)
	}
	return append([]string(nil), inst.Items...), nil
}

// HasItem reports whether item belongs to code's item set.
func (c *Catalog) HasItem(code model.InstrumentCode, item string) bool {
	inst, ok := c.byCode[code]
	if !ok {
		return false
	}
	for _, it := range inst.Items {
		if it == item {
			return true
		}
	}
	return false
}

// Codes lists the catalog's instruments in file order.
func (c *Catalog) Codes() []model.InstrumentCode {
	return append([]model.InstrumentCode(nil), c.order...)
}
