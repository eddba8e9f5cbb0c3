package catalog_test

import (
	"errors"
	"testing"

	"github.com/okian/garden/internal/domain/catalog"
	"github.com/okian/garden/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDefaultCatalog(t *testing.T) {
	convey.Convey("Given the embedded catalog", t, func() {
		c := catalog.Default()

		convey.Convey("Then every instrument has an item set and a badge", func() {
			convey.So(c.Codes(), convey.ShouldResemble, model.Instruments)
			for _, code := range model.Instruments {
				inst, ok := c.Lookup(code)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(len(inst.Items), convey.ShouldBeGreaterThan, 0)
				convey.So(inst.Badge.Label, convey.ShouldNotBeEmpty)
			}
		})

		convey.Convey("Then WHO5 has five items and badge kinds follow the instrument family", func() {
			items, err := c.Items(model.WHO5)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(items), convey.ShouldEqual, 5)

			stai, _ := c.Lookup(model.STAI6)
			convey.So(stai.Badge.Kind, convey.ShouldEqual, model.BadgeTension)
			poms, _ := c.Lookup(model.POMS)
			convey.So(poms.Badge.Kind, convey.ShouldEqual, model.BadgeFatigue)
		})

		convey.Convey("Then item membership is checked per instrument", func() {
			convey.So(c.HasItem(model.WHO5, "who5_calm"), convey.ShouldBeTrue)
			convey.So(c.HasItem(model.STAI6, "who5_calm"), convey.ShouldBeFalse)
		})

		convey.Convey("Then returned items are copies", func() {
			items, _ := c.Items(model.SAM)
			items[0] = "mutated"
			again, _ := c.Items(model.SAM)
			convey.So(again[0], convey.ShouldEqual, "sam_valence")
		})
	})
}

func TestParse(t *testing.T) {
	convey.Convey("Given hand written catalogs", t, func() {
		convey.Convey("When an instrument is unknown", func() {
			_, err := catalog.Parse([]byte("instruments:\n  - code: PHQ9\n    items: [a]\n"))
			convey.So(errors.Is(err, model.ErrUnknownInstrument), convey.ShouldBeTrue)
		})

		convey.Convey("When an item set is empty", func() {
			_, err := catalog.Parse([]byte("instruments:\n  - code: WHO5\n    items: []\n"))
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When items repeat", func() {
			_, err := catalog.Parse([]byte("instruments:\n  - code: SAM\n    items: [a, a]\n"))
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the document is not yaml", func() {
			_, err := catalog.Parse([]byte("instruments: [\n"))
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When looking up an unknown code", func() {
			_, err := catalog.Default().Items("PHQ9")
			convey.So(errors.Is(err, model.ErrUnknownInstrument), convey.ShouldBeTrue)
		})
	})
}
