package narrative_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/domain/narrative"
	"github.com/okian/garden/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type fakeGenerator struct {
	text  string
	err   error
	delay time.Duration
	seen  narrative.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req narrative.Request) (string, error) {
	f.seen = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func TestParse(t *testing.T) {
	Convey("Given generator output", t, func() {
		Convey("When it has two groups with bullets and extra lines", func() {
			summary, helps, err := narrative.Parse("- Une semaine posée\n\n* Tu as pris du temps\n1. Trois sessions\n4) de trop\n---\n• Marcher 10 min\nBoire de l'eau\n")

			Convey("Then bullets are stripped and groups are capped", func() {
				So(err, ShouldBeNil)
				So(summary, ShouldResemble, []string{"Une semaine posée", "Tu as pris du temps", "Trois sessions"})
				So(helps, ShouldResemble, []string{"Marcher 10 min", "Boire de l'eau"})
			})
		})

		Convey("When a line starts with a decimal quantity", func() {
			summary, helps, err := narrative.Parse("1.5 L d'eau par jour\n2) Bien dormi\n---\n1. Respirer\n10) Marcher\n3.2 km à pied\n")

			Convey("Then only list numbering followed by a space is stripped", func() {
				So(err, ShouldBeNil)
				So(summary, ShouldResemble, []string{"1.5 L d'eau par jour", "Bien dormi"})
				So(helps, ShouldResemble, []string{"Respirer", "Marcher", "3.2 km à pied"})
			})
		})

		Convey("When the delimiter is missing", func() {
			_, _, err := narrative.Parse("une seule ligne")
			So(err, ShouldNotBeNil)
		})

		Convey("When the second group is blank", func() {
			summary, helps, err := narrative.Parse("Bien\n---\n   \n")
			So(err, ShouldBeNil)
			So(summary, ShouldResemble, []string{"Bien"})
			So(helps, ShouldBeEmpty)
		})
	})
}

func TestCompose(t *testing.T) {
	ctx := context.Background()

	Convey("Given a narrator", t, func() {
		Convey("When the generator answers well", func() {
			gen := &fakeGenerator{text: "Semaine douce\nBelle constance\n---\nRespirer\n"}
			lines := narrative.New(gen).Compose(ctx, model.WHO5, 3)

			Convey("Then its lines are used and the prompt carries counts only", func() {
				So(lines.Fallback, ShouldBeEmpty)
				So(lines.Summary, ShouldResemble, []string{"Semaine douce", "Belle constance"})
				So(lines.Helps, ShouldResemble, []string{"Respirer"})
				So(gen.seen.Data, ShouldContainSubstring, "WHO5")
				So(gen.seen.Data, ShouldContainSubstring, "3")
				So(gen.seen.Instruction, ShouldContainSubstring, narrative.Delimiter)
			})
		})

		Convey("When the generator fails", func() {
			lines := narrative.New(&fakeGenerator{err: errors.New("boom")}).Compose(ctx, model.WHO5, 3)

			Convey("Then the phrase bank is returned within the caps", func() {
				So(lines.Fallback, ShouldEqual, narrative.ReasonError)
				So(lines.Summary, ShouldResemble, []string{"Belle régularité cette semaine", "3 sessions complétées", "Continue sur cette lancée"})
				So(lines.Helps, ShouldResemble, narrative.FallbackHelps())
				So(len(lines.Summary), ShouldBeLessThanOrEqualTo, 3)
			})
		})

		Convey("When the generator is too slow", func() {
			gen := &fakeGenerator{text: "a\n---\nb", delay: time.Second}
			lines := narrative.New(gen, narrative.WithTimeout(20*time.Millisecond)).Compose(ctx, model.PANAS, 2)
			So(lines.Fallback, ShouldEqual, narrative.ReasonTimeout)
			So(lines.Summary[1], ShouldEqual, "2 sessions complétées")
		})

		Convey("When the output is malformed or a group is empty", func() {
			So(narrative.New(&fakeGenerator{text: "pas de séparateur"}).Compose(ctx, model.WHO5, 2).Fallback, ShouldEqual, narrative.ReasonMalformed)
			So(narrative.New(&fakeGenerator{text: "---\nRespirer"}).Compose(ctx, model.WHO5, 2).Fallback, ShouldEqual, narrative.ReasonEmpty)
		})

		Convey("When no generator is configured", func() {
			lines := narrative.New(nil).Compose(ctx, model.WHO5, 4)
			So(lines.Fallback, ShouldEqual, narrative.ReasonUnavailable)
			So(lines.Summary, ShouldResemble, narrative.FallbackSummary(4))
		})

		Convey("When the generator reports itself unavailable", func() {
			lines := narrative.New(&fakeGenerator{err: narrative.ErrUnavailable}).Compose(ctx, model.WHO5, 2)
			So(lines.Fallback, ShouldEqual, narrative.ReasonUnavailable)
		})
	})
}

func TestSessionMessage(t *testing.T) {
	Convey("Given elapsed rounds", t, func() {
		So(narrative.SessionMessage(0), ShouldEqual, "Continue sur cette lancée")
		So(narrative.SessionMessage(4), ShouldEqual, "Un pas de plus vers l'équilibre")
		So(narrative.SessionMessage(9), ShouldEqual, "Belle régularité cette semaine")
	})
}
