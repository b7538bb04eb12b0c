package pipeline_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/hoopiq/internal/domain/analytics"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/internal/simulate"
	"github.com/okian/hoopiq/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestRunWithoutFrames(t *testing.T) {
	Convey("Given a pipeline", t, func() {
		p := pipeline.New()

		Convey("When a video without frames is analyzed", func() {
			report, err := p.Run(context.Background(), &model.Video{ID: "empty"}, nil)

			Convey("Then a single failed report is returned", func() {
				So(errors.Is(err, model.ErrNoFrames), ShouldBeTrue)
				So(report.Status, ShouldEqual, pipeline.StatusFailed)
				So(report.VideoID, ShouldEqual, "empty")
				So(report.Error, ShouldNotBeEmpty)
				So(report.Possession.Team1Pct, ShouldEqual, 50.0)
				So(report.Possession.Team2Pct, ShouldEqual, 50.0)
				So(report.ShotList, ShouldNotBeNil)
				So(report.Events, ShouldNotBeNil)
				So(report.Movement.Players, ShouldNotBeNil)
			})
		})
	})
}

func TestRunSimulatedGame(t *testing.T) {
	Convey("Given a simulated game whose first action is a made shot", t, func() {
		video, script := simulate.NewGenerator(
			simulate.WithFrames(600),
			simulate.WithSeed(11),
			simulate.WithVideoID("sim"),
			simulate.WithMadeChance(1),
		).Generate()
		So(script, ShouldNotBeEmpty)

		var steps []pipeline.Step
		var percents []int
		observed := map[pipeline.Step]time.Duration{}
		p := pipeline.New(
			pipeline.WithAnalytics(analytics.NewEngine()),
			pipeline.WithStageObserver(func(s pipeline.Step, d time.Duration) { observed[s] = d }),
		)

		Convey("When it is analyzed", func() {
			report, err := p.Run(context.Background(), video, func(s pipeline.Step, pct int) {
				steps = append(steps, s)
				percents = append(percents, pct)
			})

			Convey("Then every milestone is reported once in order up to 100", func() {
				So(err, ShouldBeNil)
				So(steps, ShouldResemble, pipeline.Steps)
				for i := 1; i < len(percents); i++ {
					So(percents[i], ShouldBeGreaterThan, percents[i-1])
				}
				So(percents[len(percents)-1], ShouldEqual, 100)
				So(len(observed), ShouldEqual, 12)
			})

			Convey("Then the report is complete and consistent", func() {
				So(report.Status, ShouldEqual, pipeline.StatusCompleted)
				So(report.TotalFrames, ShouldEqual, 600)
				So(report.DurationSeconds, ShouldAlmostEqual, 20.0, 1e-9)
				So(report.PlayersDetected, ShouldBeGreaterThanOrEqualTo, 10)
				So(report.ShotList, ShouldNotBeNil)
				So(report.Movement.Players, ShouldNotBeEmpty)
				sum := report.Possession.Team1Pct + report.Possession.Team2Pct
				So(math.Abs(sum-100), ShouldBeLessThan, 0.01)
				for i := 1; i < len(report.Events); i++ {
					So(report.Events[i].Frame, ShouldBeGreaterThanOrEqualTo, report.Events[i-1].Frame)
				}
				So(report.Shots.Attempts, ShouldEqual, len(report.ShotList))
			})

			Convey("Then the scripted shot is found and made", func() {
				So(report.ShotList, ShouldNotBeEmpty)
				first := report.ShotList[0]
				So(math.Abs(float64(first.StartFrame-script[0].Frame)), ShouldBeLessThanOrEqualTo, 3.0)
				So(first.Outcome, ShouldEqual, model.OutcomeMade)
			})

			Convey("Then all seven analytics modules ran", func() {
				So(report.Analytics, ShouldNotBeNil)
				So(len(report.Analytics.ModulesExecuted)+len(report.Analytics.ModulesFailed), ShouldEqual, 7)
				So(report.Analytics.ModulesFailed, ShouldBeEmpty)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			report, err := p.Run(ctx, video, nil)

			Convey("Then the run fails with the cancellation", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(report.Status, ShouldEqual, pipeline.StatusFailed)
				So(report.VideoID, ShouldEqual, "sim")
			})
		})
	})
}

func TestTimeline(t *testing.T) {
	Convey("Given passes, interceptions and shots out of order", t, func() {
		passes := []model.PassEvent{{Frame: 30, TeamID: 1, From: 1, To: 2}, {Frame: 10, TeamID: 1, From: 2, To: 1}}
		steals := []model.InterceptionEvent{{Frame: 20, TeamID: 2, From: 1, To: 7}}
		shots := []model.Shot{{StartFrame: 5, TeamID: 2, PlayerID: 7, Type: model.ShotThree, Outcome: model.OutcomeMissed}}

		Convey("When the timeline is built", func() {
			events := pipeline.Timeline(10, passes, steals, shots)

			Convey("Then events are ordered by frame with timestamps", func() {
				So(len(events), ShouldEqual, 4)
				So(events[0].Type, ShouldEqual, model.EventShot)
				So(events[0].Timestamp, ShouldEqual, 0.5)
				So(events[1].Frame, ShouldEqual, 10)
				So(events[2].Type, ShouldEqual, model.EventInterception)
				So(events[2].PlayerID, ShouldEqual, 7)
				So(events[3].Frame, ShouldEqual, 30)
			})
		})

		Convey("When nothing happened", func() {
			events := pipeline.Timeline(30, nil, nil, nil)

			Convey("Then the timeline is empty but not nil", func() {
				So(events, ShouldNotBeNil)
				So(events, ShouldBeEmpty)
			})
		})
	})
}

func TestStepPercent(t *testing.T) {
	Convey("Given the milestone list", t, func() {
		Convey("Then it starts at 5 and finishes at 100", func() {
			So(pipeline.Steps[0].Percent(), ShouldEqual, 5)
			So(pipeline.StepComplete.Percent(), ShouldEqual, 100)
			So(pipeline.StepAnalytics.Percent(), ShouldEqual, 90)
		})
	})
}
