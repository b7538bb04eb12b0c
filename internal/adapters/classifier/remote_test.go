package classifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/hoopiq/internal/adapters/classifier"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/teams"
	"github.com/okian/hoopiq/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestRemote(t *testing.T) {
	Convey("Given a vision service that labels dark jerseys as the second label", t, func() {
		var got map[string]any
		status := http.StatusOK
		label := -1
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			out := 0
			if c, ok := got["color"].([]any); ok && c[0].(float64) < 100 {
				out = 1
			}
			if label >= 0 {
				out = label
			}
			_ = json.NewEncoder(w).Encode(map[string]int{"label": out})
		}))
		defer srv.Close()
		c := classifier.NewRemote(srv.URL)
		ctx := context.Background()
		crop := teams.Crop{Frame: 4, TrackID: 9, BBox: model.BBox{X1: 1, Y1: 2, X2: 3, Y2: 4}, Color: []float64{20, 30, 120}}

		Convey("When a dark crop is classified", func() {
			idx, err := c.Classify(ctx, crop, teams.DefaultLabels)

			Convey("Then the service label is returned and the crop was sent", func() {
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, 1)
				So(got["track_id"], ShouldEqual, 9.0)
				So(got["labels"], ShouldResemble, []any{teams.DefaultLabels[0], teams.DefaultLabels[1]})
			})
		})

		Convey("When the service fails", func() {
			status = http.StatusServiceUnavailable
			_, err := c.Classify(ctx, crop, teams.DefaultLabels)

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the service answers with an unknown label", func() {
			label = 7
			_, err := c.Classify(ctx, crop, teams.DefaultLabels)

			Convey("Then ErrBadLabel is returned", func() {
				So(errors.Is(err, classifier.ErrBadLabel), ShouldBeTrue)
			})
		})

		Convey("When the remote classifier drives the team assigner", func() {
			store := model.NewTrackStore(2)
			for f := 0; f < 2; f++ {
				store.Set(f, model.TrackBox{TrackID: 1, Class: model.ClassPlayer, Color: []float64{240, 240, 240}})
				store.Set(f, model.TrackBox{TrackID: 2, Class: model.ClassPlayer, Color: []float64{20, 30, 120}})
			}
			out, err := teams.NewAssigner(c).Assign(ctx, store, teams.NewCache())

			Convey("Then tracks land on the teams the service chose", func() {
				So(err, ShouldBeNil)
				So(out[1][1], ShouldEqual, model.Team1)
				So(out[1][2], ShouldEqual, model.Team2)
			})
		})
	})
}
