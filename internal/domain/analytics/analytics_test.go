package analytics_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/okian/hoopiq/internal/domain/analytics"
	"github.com/okian/hoopiq/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSpacing(t *testing.T) {
	Convey("Given an offense that spreads out and then clusters in the paint", t, func() {
		s := newScene(2, 30).
			place(1, model.Team1, 10, 5, 0, 1).place(2, model.Team1, 14, 5, 0, 1).place(3, model.Team1, 10, 8, 0, 1).
			place(1, model.Team1, 2, 7, 1, 2).place(2, model.Team1, 3, 7, 1, 2).place(3, model.Team1, 2, 8, 1, 2).
			place(9, model.Team2, 20, 7, 0, 2).
			hold(1, 0, 2)

		res, err := analytics.NewEngine().Spacing(context.Background(), s.in)

		Convey("Then each frame is graded from the offense's pairwise distances", func() {
			So(err, ShouldBeNil)
			So(res.Frames, ShouldHaveLength, 2)
			So(res.Frames[0].AvgDistance, ShouldAlmostEqual, 4, 1e-9)
			So(res.Frames[0].MinDistance, ShouldAlmostEqual, 3, 1e-9)
			So(res.Frames[0].MaxDistance, ShouldAlmostEqual, 5, 1e-9)
			So(res.Frames[0].Quality, ShouldEqual, analytics.SpacingGood)
			So(res.Frames[1].Quality, ShouldEqual, analytics.SpacingPoor)
			So(res.Frames[1].ClusteredPairs, ShouldEqual, 3)
			So(res.Frames[1].PaintPlayers, ShouldEqual, 3)
			So(res.Summary.GoodPct, ShouldAlmostEqual, 50, 1e-9)
		})

		Convey("Then a lone player is not enough", func() {
			lone := newScene(1, 30).place(1, model.Team1, 10, 5, 0, 1).hold(1, 0, 1)
			res, err := analytics.NewEngine().Spacing(context.Background(), lone.in)
			So(err, ShouldBeNil)
			So(res.InsufficientData, ShouldBeTrue)
			So(res.Frames, ShouldBeEmpty)
		})
	})
}

func TestDefensiveReactions(t *testing.T) {
	Convey("Given a pass with the nearest defender a meter away", t, func() {
		s := newScene(60, 30).
			place(1, model.Team1, 10, 7, 0, 60).
			place(9, model.Team2, 11, 7, 0, 60).
			place(10, model.Team2, 20, 7, 0, 60).
			hold(1, 0, 60)
		s.in.Passes = []model.PassEvent{{Frame: 0, TeamID: model.Team1}}

		Convey("When the defender accelerates past the activation speed at frame 6", func() {
			s.speed(9, 2, 1, 6).speed(9, 5, 6, 7)
			res, err := analytics.NewEngine().DefensiveReactions(context.Background(), s.in)

			Convey("Then the reaction is timely", func() {
				So(err, ShouldBeNil)
				So(res.Reactions, ShouldHaveLength, 1)
				r := res.Reactions[0]
				So(r.DefenderID, ShouldEqual, 9)
				So(r.DelayMs, ShouldAlmostEqual, 200, 1e-9)
				So(r.PeakSpeed, ShouldAlmostEqual, 5, 1e-9)
				So(r.Late, ShouldBeFalse)
			})
		})

		Convey("When the defender never reacts", func() {
			res, err := analytics.NewEngine().DefensiveReactions(context.Background(), s.in)

			Convey("Then the delay is the whole window and the closeout is late", func() {
				So(err, ShouldBeNil)
				So(res.Reactions[0].DelayMs, ShouldAlmostEqual, 1000, 1e-9)
				So(res.Reactions[0].Late, ShouldBeTrue)
				So(res.Summary.LateRate, ShouldAlmostEqual, 1, 1e-9)
			})
		})
	})
}

func TestTransitions(t *testing.T) {
	Convey("Given possession flipping from team 1 to team 2 at frame 10", t, func() {
		s := newScene(100, 10).
			place(1, model.Team1, 10, 7, 0, 100).
			place(9, model.Team2, 12, 7, 0, 100).
			hold(1, 0, 10).hold(9, 10, 100).
			speed(1, 6, 10, 20).
			speed(9, 1, 10, 40)

		res, err := analytics.NewEngine().Transitions(context.Background(), s.in)

		Convey("Then every player's effort in the next three seconds is graded", func() {
			So(err, ShouldBeNil)
			So(res.Changes, ShouldResemble, []int{10})
			So(res.Efforts, ShouldHaveLength, 2)
			So(res.Efforts[0].TrackID, ShouldEqual, 1)
			So(res.Efforts[0].Effort, ShouldEqual, analytics.EffortSprint)
			So(res.Efforts[0].Type, ShouldEqual, analytics.OffenseToDefense)
			So(res.Efforts[1].Effort, ShouldEqual, analytics.EffortWalk)
			So(res.Efforts[1].Type, ShouldEqual, analytics.DefenseToOffense)
			So(res.Summary.WalkRate, ShouldAlmostEqual, 0.5, 1e-9)
		})
	})
}

func TestDecisions(t *testing.T) {
	Convey("Given a shooter with a defender half a meter away and a teammate wide open", t, func() {
		s := newScene(1, 30).
			place(1, model.Team1, 5, 7, 0, 1).
			place(2, model.Team1, 20, 7, 0, 1).
			place(9, model.Team2, 5.5, 7, 0, 1)
		s.in.Shots = []model.Shot{{StartFrame: 0, PlayerID: 1, TeamID: model.Team1}}

		res, err := analytics.NewEngine().Decisions(context.Background(), s.in)

		Convey("Then the shot is a low expected value decision", func() {
			So(err, ShouldBeNil)
			So(res.Decisions, ShouldHaveLength, 1)
			So(res.Decisions[0].DefenderDistance, ShouldAlmostEqual, 0.5, 1e-9)
			So(res.Decisions[0].OpenTeammates, ShouldEqual, 1)
			So(res.Decisions[0].Quality, ShouldEqual, analytics.LowExpectedValue)
		})

		Convey("Then an uncontested shooter makes a high expected value decision", func() {
			s.place(9, model.Team2, 8, 7, 0, 1)
			res, _ := analytics.NewEngine().Decisions(context.Background(), s.in)
			So(res.Decisions[0].Quality, ShouldEqual, analytics.HighExpectedValue)
		})
	})
}

func lineupScene() *scene {
	s := newScene(60, 1)
	for id := 1; id <= 5; id++ {
		s.place(id, model.Team1, float64(id), 7, 0, 40)
	}
	for _, id := range []int{1, 2, 3, 4, 6} {
		s.place(id, model.Team1, float64(id), 7, 40, 60)
	}
	return s
}

func TestLineups(t *testing.T) {
	Convey("Given a five-man unit for 40 s followed by a substitution for 20 s", t, func() {
		s := lineupScene()
		s.in.Shots = []model.Shot{
			{StartFrame: 10, TeamID: model.Team1, Outcome: model.OutcomeMade, Type: model.ShotThree},
			{StartFrame: 12, TeamID: model.Team2, Outcome: model.OutcomeMade, Type: model.ShotLayup},
			{StartFrame: 14, TeamID: model.Team2, Outcome: model.OutcomeMissed, Type: model.ShotLayup},
		}
		s.in.Interceptions = []model.InterceptionEvent{{Frame: 20, TeamID: model.Team2}}

		res, err := analytics.NewEngine().Lineups(context.Background(), s.in, nil, nil)

		Convey("Then only the segment lasting at least 30 s is rated", func() {
			So(err, ShouldBeNil)
			So(res.Lineups, ShouldHaveLength, 1)
			l := res.Lineups[0]
			So(l.LineupID, ShouldEqual, "1_2_3_4_5")
			So(l.StartFrame, ShouldEqual, 0)
			So(l.EndFrame, ShouldEqual, 40)
			So(l.PointsFor, ShouldEqual, 3)
			So(l.PointsAgainst, ShouldEqual, 2)
			So(l.OffensiveRating, ShouldAlmostEqual, 300, 1e-9)
			So(l.DefensiveRating, ShouldAlmostEqual, 100, 1e-9)
			So(l.NetRating, ShouldAlmostEqual, 200, 1e-9)
			So(l.Turnovers, ShouldEqual, 1)
			So(res.Summary.Best, ShouldEqual, "1_2_3_4_5")
			So(res.Summary.TotalMinutes, ShouldAlmostEqual, 40.0/60, 1e-9)
		})

		Convey("Then lowering the minimum admits the short segment too", func() {
			th := analytics.DefaultThresholds()
			th.LineupMinSeconds = 20
			res, _ := analytics.NewEngine(analytics.WithThresholds(th)).Lineups(context.Background(), s.in, nil, nil)
			So(res.Lineups, ShouldHaveLength, 2)
			So(res.Lineups[1].LineupID, ShouldEqual, "1_2_3_4_6")
		})
	})

	Convey("Given fewer than five players on the floor", t, func() {
		s := newScene(60, 1).place(1, model.Team1, 1, 1, 0, 60)
		res, err := analytics.NewEngine().Lineups(context.Background(), s.in, nil, nil)

		Convey("Then no lineup is recognized", func() {
			So(err, ShouldBeNil)
			So(res.InsufficientData, ShouldBeTrue)
		})
	})
}

func TestFatigue(t *testing.T) {
	Convey("Given the default fatigue thresholds", t, func() {
		th := analytics.DefaultThresholds()

		Convey("Then a larger decline never maps to a lower level", func() {
			prev := 0
			for d := 0.0; d <= 40; d += 0.25 {
				rank := th.FatigueLevel(d).Rank()
				So(rank, ShouldBeGreaterThanOrEqualTo, prev)
				prev = rank
			}
			So(th.FatigueLevel(4.9), ShouldEqual, analytics.FatigueLow)
			So(th.FatigueLevel(5), ShouldEqual, analytics.FatigueMedium)
			So(th.FatigueLevel(15), ShouldEqual, analytics.FatigueHigh)
		})

		Convey("Then ranks count up from zero", func() {
			So(analytics.FatigueLow.Rank(), ShouldEqual, 0)
			So(analytics.FatigueMedium.Rank(), ShouldEqual, 1)
			So(analytics.FatigueHigh.Rank(), ShouldEqual, 2)
			So(analytics.FatigueLevel("unknown").Rank(), ShouldEqual, 0)
		})
	})

	Convey("Given a player slowing down over a 400 s game", t, func() {
		s := newScene(400, 1).place(7, model.Team1, 10, 7, 0, 400).
			speed(7, 5, 0, 180).
			speed(7, 4.5, 180, 300).
			speed(7, 4, 300, 400).
			speed(7, 0.2, 0, 20)

		res, err := analytics.NewEngine().Fatigue(context.Background(), s.in, nil)

		Convey("Then rolling windows decline against the baseline of moving speeds", func() {
			So(err, ShouldBeNil)
			So(res.Players, ShouldHaveLength, 1)
			p := res.Players[0]
			So(p.BaselineSpeed, ShouldAlmostEqual, 5, 1e-9)
			So(p.Windows, ShouldHaveLength, 2)
			So(p.Windows[0].SpeedDeclinePct, ShouldAlmostEqual, 10, 1e-9)
			So(p.Windows[0].Level, ShouldEqual, analytics.FatigueMedium)
			So(p.Windows[1].SpeedDeclinePct, ShouldAlmostEqual, 20, 1e-9)
			So(p.Windows[1].Level, ShouldEqual, analytics.FatigueHigh)
			So(p.Level, ShouldEqual, analytics.FatigueHigh)
		})
	})

	Convey("Given a player speeding up in a 30 s clip", t, func() {
		s := newScene(30, 1).place(7, model.Team1, 10, 7, 0, 30).
			speed(7, 3, 0, 10).
			speed(7, 6, 10, 30)

		res, err := analytics.NewEngine().Fatigue(context.Background(), s.in, nil)

		Convey("Then windows shrink to the clip and the decline floors at zero", func() {
			So(err, ShouldBeNil)
			So(res.BaselineSeconds, ShouldAlmostEqual, 10, 1e-9)
			So(res.WindowSeconds, ShouldAlmostEqual, 6, 1e-9)
			So(res.Players[0].Windows, ShouldNotBeEmpty)
			for _, w := range res.Players[0].Windows {
				So(w.SpeedDeclinePct, ShouldEqual, 0.0)
				So(w.Level, ShouldEqual, analytics.FatigueLow)
			}
		})
	})
}

func lowDecisionScene() *scene {
	s := newScene(300, 30).
		place(1, model.Team1, 5, 7, 0, 300).
		place(2, model.Team1, 20, 7, 0, 300).
		place(9, model.Team2, 5.5, 7, 0, 300)
	s.in.Shots = []model.Shot{{StartFrame: 30, PlayerID: 1, TeamID: model.Team1}}
	s.in.SourcePath = "/videos/game-1.mp4"
	return s
}

func TestClips(t *testing.T) {
	Convey("Given a low expected value shot one second into a ten second video", t, func() {
		s := lowDecisionScene()
		e := analytics.NewEngine(analytics.WithClipOutputDir("/tmp/clips"))
		dec, err := e.Decisions(context.Background(), s.in)
		So(err, ShouldBeNil)

		Convey("When clips are generated without an extractor", func() {
			res, err := e.Clips(context.Background(), s.in, nil, nil, nil, dec)

			Convey("Then a descriptor with a clamped window is produced", func() {
				So(err, ShouldBeNil)
				So(res.Clips, ShouldHaveLength, 1)
				c := res.Clips[0]
				So(c.Type, ShouldEqual, analytics.ClipLowDecision)
				So(c.Start, ShouldEqual, 0.0)
				So(c.End, ShouldAlmostEqual, 6, 1e-9)
				So(c.Path, ShouldEqual, filepath.Join("/tmp/clips", "game-1", "low_decision_quality_30.mp4"))
				So(c.ClipID, ShouldNotBeEmpty)
				So(c.Extracted, ShouldBeFalse)
			})
		})

		Convey("When the extractor fails", func() {
			x := &recordingExtractor{failOn: filepath.Join("/tmp/clips", "game-1", "low_decision_quality_30.mp4")}
			res, err := analytics.NewEngine(analytics.WithClipOutputDir("/tmp/clips"), analytics.WithClipExtractor(x)).
				Clips(context.Background(), s.in, nil, nil, nil, dec)

			Convey("Then the clip is omitted and counted", func() {
				So(err, ShouldBeNil)
				So(x.calls, ShouldHaveLength, 1)
				So(res.Clips, ShouldBeEmpty)
				So(res.Summary.Failed, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a hundred poor spacing frames", t, func() {
		frames := make([]analytics.SpacingFrame, 120)
		for i := range frames {
			frames[i] = analytics.SpacingFrame{Frame: i, Quality: analytics.SpacingPoor}
		}
		s := newScene(120, 30)
		res, _ := analytics.NewEngine().Clips(context.Background(), s.in, &analytics.SpacingResult{Frames: frames}, nil, nil, nil)

		Convey("Then every tenth one is flagged up to the cap", func() {
			So(res.Clips, ShouldHaveLength, 10)
			So(res.Clips[1].Frame, ShouldEqual, 10)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given an empty run", t, func() {
		res, err := analytics.NewEngine().Run(context.Background(), newScene(10, 30).in)

		Convey("Then every module executes and reports insufficient data", func() {
			So(err, ShouldBeNil)
			So(res.ModulesExecuted, ShouldHaveLength, 7)
			So(res.ModulesFailed, ShouldBeEmpty)
			So(res.Status[analytics.ModuleLineup], ShouldEqual, analytics.StatusInsufficientData)
		})
	})

	Convey("Given a clip extractor that panics", t, func() {
		s := lowDecisionScene()
		res, err := analytics.NewEngine(analytics.WithClipExtractor(&recordingExtractor{panicky: true})).Run(context.Background(), s.in)

		Convey("Then only the clip generator fails and the rest succeed", func() {
			So(err, ShouldBeNil)
			So(res.ModulesFailed, ShouldHaveLength, 1)
			So(res.ModulesFailed[0].Module, ShouldEqual, analytics.ModuleClips)
			So(res.ModulesFailed[0].Error, ShouldContainSubstring, "encoder crashed")
			So(res.Clips, ShouldBeNil)
			So(res.Decision, ShouldNotBeNil)
			So(res.Status[analytics.ModuleDecision], ShouldEqual, analytics.StatusSuccess)
			So(res.ModulesExecuted, ShouldHaveLength, 6)
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := analytics.NewEngine().Run(ctx, newScene(10, 30).in)

		Convey("Then the run stops with the cancellation", func() {
			So(err, ShouldEqual, context.Canceled)
		})
	})
}
