package service_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/hoopiq/internal/adapters/detections"
	service "github.com/okian/hoopiq/internal/app"
	"github.com/okian/hoopiq/internal/config"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/internal/simulate"
	"github.com/okian/hoopiq/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(8),
			service.WithProgressBuffer(16),
			service.WithJobTimeout(time.Minute),
		)

		Convey("Then it reports its configuration before starting", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 8)
			So(stats["progressBuffer"], ShouldEqual, 16)
		})

		Convey("Then operations fail until it is started", func() {
			_, err := svc.Submit(context.Background(), &model.Video{ID: "v"}, "")
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.Job(context.Background(), "x")
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.Jobs(context.Background(), 1)
			So(err, ShouldEqual, service.ErrNotStarted)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When it is started twice", func() {
			err := svc.Start(ctx)

			Convey("Then the second start is a no-op", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["jobsStored"], ShouldEqual, 0)
			})
		})

		Convey("When a video without frames is submitted", func() {
			_, err := svc.Submit(ctx, &model.Video{ID: "empty"}, "")

			Convey("Then it is refused", func() {
				So(err, ShouldEqual, model.ErrNoFrames)
			})
		})

		Convey("When it is stopped twice", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it is marked stopped", func() {
				So(svc.GetStats()["started"], ShouldBeFalse)
				_, err := svc.JobSummary(context.Background())
				So(err, ShouldEqual, service.ErrNotStarted)
			})
		})
	})
}

func TestPipelineOptions(t *testing.T) {
	Convey("Given the default configuration with analytics enabled", t, func() {
		cfg := config.New(context.Background())
		cfg.Possession.MinFrames = 2
		cfg.Analytics.Thresholds.LineupMinSeconds = 1

		Convey("When a simulated game runs through the configured pipeline", func() {
			video, _ := simulate.NewGenerator(simulate.WithFrames(300), simulate.WithSeed(5)).Generate()
			report, err := pipeline.New(service.PipelineOptions(cfg)...).Run(context.Background(), video, nil)

			Convey("Then the report includes analytics", func() {
				So(err, ShouldBeNil)
				So(report.Status, ShouldEqual, pipeline.StatusCompleted)
				So(report.Analytics, ShouldNotBeNil)
			})
		})

		Convey("When analytics are disabled", func() {
			cfg.Analytics.Enabled = false
			video, _ := simulate.NewGenerator(simulate.WithFrames(120), simulate.WithSeed(5)).Generate()
			report, err := pipeline.New(service.PipelineOptions(cfg)...).Run(context.Background(), video, nil)

			Convey("Then the report has none", func() {
				So(err, ShouldBeNil)
				So(report.Analytics, ShouldBeNil)
			})
		})

		Convey("When service options are derived", func() {
			cfg.WorkerCount = 3
			cfg.QueueSize = 5
			svc := service.New(service.Options(cfg)...)

			Convey("Then they apply to the service", func() {
				stats := svc.GetStats()
				So(stats["workerCount"], ShouldEqual, 3)
				So(stats["queueSize"], ShouldEqual, 5)
			})
		})
	})
}

func TestResolver(t *testing.T) {
	Convey("Given a data directory with a bare video", t, func() {
		dir := t.TempDir()
		video := filepath.Join(dir, "game.mp4")
		So(os.WriteFile(video, []byte("video"), 0o600), ShouldBeNil)
		cfg := config.New(context.Background())
		cfg.DataDir = dir

		Convey("When no detector is configured", func() {
			_, err := service.Resolver(cfg).Source(video)

			Convey("Then the video has no detections", func() {
				So(errors.Is(err, detections.ErrNoDetections), ShouldBeTrue)
			})
		})

		Convey("When the detector section names a command", func() {
			if _, err := exec.LookPath("sh"); err != nil {
				t.Skip("sh not available")
			}
			out := `{"video_id":"from-detector","fps":30}` + "\n" + `{"frame":0}`
			cfg.Detector.Command = "sh"
			cfg.Detector.Args = []string{"-c", `test -f "$1" && printf '%s\n' "$0"`, out}
			cfg.Detector.Timeout = 5 * time.Second
			So(cfg.Validate(), ShouldBeNil)

			src, err := service.Resolver(cfg).Source(video)
			So(err, ShouldBeNil)
			v, err := src.Read(context.Background())

			Convey("Then the command runs on the video and its output is decoded", func() {
				So(err, ShouldBeNil)
				So(v.ID, ShouldEqual, "from-detector")
				So(v.SourcePath, ShouldEqual, video)
				So(len(v.Frames), ShouldEqual, 1)
			})
		})
	})
}
