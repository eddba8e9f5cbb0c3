package simulate

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/garden/internal/domain/catalog"
	"github.com/okian/garden/internal/domain/model"
)

var proxies = []model.ProxyKind{
	model.ProxyDuration,
	model.ProxyChoice,
	model.ProxyCompletion,
	model.ProxySkip,
	model.ProxyRepeat,
	model.ProxyBaseline,
}

var choices = []string{"sun", "rain", "wind", "moss", "stone"}

// generator produces reproducible synthetic traffic for one user.
type generator struct {
	rng     *rand.Rand
	catalog *catalog.Catalog
	codes   []model.InstrumentCode
	module  string
	now     time.Time
}

func newGenerator(seed uint64, user int, module string, now time.Time) *generator {
	cat := catalog.Default()
	return &generator{
		rng:     rand.New(rand.NewPCG(seed, uint64(user))),
		catalog: cat,
		codes:   cat.Codes(),
		module:  module,
		now:     now,
	}
}

// signals returns n distinct signals followed by dup resent copies.
func (g *generator) signals(n int, dupRatio float64) (unique, all []Signal) {
	unique = make([]Signal, 0, n)
	for i := 0; i < n; i++ {
		unique = append(unique, g.signal())
	}
	all = append(all, unique...)
	for _, s := range unique {
		if g.rng.Float64() < dupRatio {
			all = append(all, s)
		}
	}
	return unique, all
}

func (g *generator) signal() Signal {
	code := g.codes[g.rng.IntN(len(g.codes))]
	items, _ := g.catalog.Items(code)
	item := "free"
	if len(items) > 0 {
		item = items[g.rng.IntN(len(items))]
	}
	proxy := proxies[g.rng.IntN(len(proxies))]

	var value any
	switch proxy {
	case model.ProxyChoice:
		value = choices[g.rng.IntN(len(choices))]
	case model.ProxyDuration:
		value = float64(500 + g.rng.IntN(30_000))
	case model.ProxyCompletion, model.ProxySkip:
		value = float64(g.rng.IntN(2))
	default:
		value = float64(1 + g.rng.IntN(5))
	}

	s := Signal{
		EventID:    uuid.NewString(),
		Instrument: string(code),
		ItemID:     item,
		Proxy:      string(proxy),
		Value:      value,
		OccurredAt: g.now.Add(-time.Duration(g.rng.IntN(3600)) * time.Second).UTC().Format(time.RFC3339Nano),
	}
	if proxy == model.ProxyCompletion {
		s.Context = map[string]string{model.ContextModule: g.module}
	}
	return s
}

// responses answers a subset of the handle's items on a 0..4 scale.
func (g *generator) responses(items map[model.InstrumentCode][]string) map[string]float64 {
	out := make(map[string]float64)
	for _, ids := range items {
		for _, id := range ids {
			if g.rng.IntN(4) == 0 {
				continue
			}
			out[id] = float64(g.rng.IntN(5))
		}
	}
	return out
}

func (g *generator) mood() (valence, arousal float64) {
	return model.MoodMin + g.rng.Float64()*(model.MoodMax-model.MoodMin),
		model.MoodMin + g.rng.Float64()*(model.MoodMax-model.MoodMin)
}

func (g *generator) rounds() int { return 1 + g.rng.IntN(12) }

func (g *generator) xp() int64 { return int64(50 + g.rng.IntN(400)) }

func userID(i int) string { return fmt.Sprintf("sim-user-%04d", i) }
