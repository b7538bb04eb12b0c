package clipper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/okian/hoopiq/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700); err != nil { //nolint:gosec // test executable
		t.Fatal(err)
	}
	return path
}

func TestFFmpeg(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for ffmpeg")
	}
	Convey("Given a clip destination in a missing directory", t, func() {
		out := filepath.Join(t.TempDir(), "clips", "game", "poor_spacing_120.mp4")
		ctx := context.Background()

		Convey("When ffmpeg succeeds", func() {
			bin := script(t, `for a; do last="$a"; done; echo "$@" > "$last"`)
			err := NewFFmpeg(WithBinary(bin)).Extract(ctx, "game.mp4", out, 1.5, 6)

			Convey("Then the clip exists and was cut with the expected arguments", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(out)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "-i game.mp4 -ss 1.500 -t 6.000 -c:v libx264 -c:a aac -y")
			})
		})

		Convey("When ffmpeg fails", func() {
			bin := script(t, "echo 'game.mp4: No such file or directory' >&2\nexit 1\n")
			err := NewFFmpeg(WithBinary(bin)).Extract(ctx, "game.mp4", out, 0, 6)

			Convey("Then ErrExtractFailed carries the stderr tail", func() {
				So(errors.Is(err, ErrExtractFailed), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "No such file or directory")
			})
		})

		Convey("When ffmpeg exits cleanly without writing the clip", func() {
			bin := script(t, "exit 0\n")
			err := NewFFmpeg(WithBinary(bin)).Extract(ctx, "game.mp4", out, 0, 6)

			Convey("Then the extraction is reported as failed", func() {
				So(errors.Is(err, ErrExtractFailed), ShouldBeTrue)
			})
		})

		Convey("When ffmpeg hangs past the timeout", func() {
			bin := script(t, "exec sleep 5\n")
			started := time.Now()
			err := NewFFmpeg(WithBinary(bin), WithTimeout(50*time.Millisecond)).Extract(ctx, "game.mp4", out, 0, 6)

			Convey("Then it is killed and reported", func() {
				So(errors.Is(err, ErrExtractFailed), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, context.DeadlineExceeded.Error())
				So(time.Since(started), ShouldBeLessThan, 3*time.Second)
			})
		})
	})
}
