package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/hoopiq/internal/adapters/detections"
	"github.com/okian/hoopiq/internal/adapters/http/api"
	"github.com/okian/hoopiq/internal/adapters/repository"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// mockDependencies records submissions and serves canned jobs.
type mockDependencies struct {
	submitted []*model.Video
	keys      []string
	submitErr error
	duplicate bool
	jobs      map[string]repository.Record
	listed    int
	stats     map[string]interface{}
	summary   *repository.Summary
}

func (m *mockDependencies) Submit(_ context.Context, video *model.Video, key string) (model.Submission, error) {
	if m.submitErr != nil {
		return model.Submission{}, m.submitErr
	}
	m.submitted = append(m.submitted, video)
	m.keys = append(m.keys, key)
	return model.Submission{JobID: fmt.Sprintf("job-%d", len(m.submitted)), Status: model.JobQueued, Duplicate: m.duplicate}, nil
}

func (m *mockDependencies) Job(_ context.Context, id string) (repository.Record, error) {
	rec, ok := m.jobs[id]
	if !ok {
		return repository.Record{}, repository.ErrNotFound
	}
	return rec, nil
}

func (m *mockDependencies) Jobs(_ context.Context, n int) ([]repository.Record, error) {
	m.listed = n
	out := make([]repository.Record, 0, len(m.jobs))
	for _, rec := range m.jobs {
		rec.Report = nil
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockDependencies) GetStats() map[string]interface{} {
	return m.stats
}

func (m *mockDependencies) JobSummary(_ context.Context) (repository.Summary, error) {
	if m.summary == nil {
		return repository.Summary{}, errors.New("not started")
	}
	return *m.summary, nil
}

func stream(id string) *bytes.Buffer {
	var buf bytes.Buffer
	video := &model.Video{
		ID:  id,
		FPS: 30,
		Frames: []model.FrameDetections{
			{Frame: 0, Detections: []model.Detection{{Class: model.ClassBall, BBox: model.BBox{X1: 1, Y1: 1, X2: 5, Y2: 5}, Confidence: 0.9}}},
			{Frame: 1},
		},
	}
	if err := detections.Encode(&buf, video); err != nil {
		panic(err)
	}
	return &buf
}

func newMux(deps *mockDependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{
			stats: map[string]interface{}{"started": true, "workerCount": 2},
			summary: &repository.Summary{
				Statuses:       map[model.JobStatus]int{model.JobCompleted: 3, model.JobFailed: 1},
				FramesAnalyzed: 900,
				ShotsDetected:  7,
			},
		}
		mux := newMux(deps)

		Convey("When the health endpoint is requested", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then prometheus metrics are served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the stats endpoint is requested", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then service counters and the job summary are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var stats struct {
					Service map[string]interface{} `json:"service"`
					Jobs    *struct {
						Statuses       map[string]int `json:"statuses"`
						FramesAnalyzed int            `json:"frames_analyzed"`
						ShotsDetected  int            `json:"shots_detected"`
					} `json:"jobs"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
				So(stats.Service["started"], ShouldEqual, true)
				So(stats.Service["workerCount"], ShouldEqual, 2.0)
				So(stats.Jobs, ShouldNotBeNil)
				So(stats.Jobs.Statuses["completed"], ShouldEqual, 3)
				So(stats.Jobs.FramesAnalyzed, ShouldEqual, 900)
				So(stats.Jobs.ShotsDetected, ShouldEqual, 7)
			})
		})

		Convey("When stats are requested before the service runs", func() {
			deps.summary = nil
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then the job summary is omitted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldNotContainSubstring, `"jobs"`)
			})
		})

		Convey("When stats are posted to", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/stats", nil))

			Convey("Then the route is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAnalysesHandler_Submit(t *testing.T) {
	Convey("Given the analyses endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When a detection stream is posted", func() {
			req := httptest.NewRequest(http.MethodPost, "/analyses", stream("clip-7"))
			req.Header.Set("Content-Type", "application/x-ndjson")
			req.Header.Set("Idempotency-Key", " upload-1 ")
			w := serve(mux, req)

			Convey("Then the job is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var sub model.Submission
				So(json.Unmarshal(w.Body.Bytes(), &sub), ShouldBeNil)
				So(sub.JobID, ShouldEqual, "job-1")
				So(sub.Status, ShouldEqual, model.JobQueued)
				So(sub.Duplicate, ShouldBeFalse)
				So(len(deps.submitted), ShouldEqual, 1)
				So(deps.submitted[0].ID, ShouldEqual, "clip-7")
				So(len(deps.submitted[0].Frames), ShouldEqual, 2)
				So(deps.keys[0], ShouldEqual, "upload-1")
			})
		})

		Convey("When a duplicate submission is acknowledged", func() {
			deps.duplicate = true
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/analyses", stream("clip-7")))

			Convey("Then the response is 200 with duplicate set", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the stream is malformed", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/analyses", strings.NewReader("not json\n")))

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("%w: queue full", model.ErrBackpressure)
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/analyses", stream("clip-7")))

			Convey("Then the response is 429", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(w.Body.String(), ShouldContainSubstring, "backpressure")
			})
		})

		Convey("When the same key is still being submitted", func() {
			deps.submitErr = model.ErrInFlight
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/analyses", stream("clip-7")))

			Convey("Then the response is 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When the service fails unexpectedly", func() {
			deps.submitErr = errors.New("boom")
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/analyses", stream("clip-7")))

			Convey("Then the response is 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When the body exceeds the upload limit", func() {
			mux := newMux(deps, api.WithMaxUploadBytes(16))
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/analyses", stream("clip-7")))

			Convey("Then the response is 413", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			})
		})

		Convey("When a path is posted without a data directory", func() {
			req := httptest.NewRequest(http.MethodPost, "/analyses", strings.NewReader(`{"path":"game.jsonl"}`))
			req.Header.Set("Content-Type", "application/json")
			w := serve(mux, req)

			Convey("Then path submissions are refused", func() {
				So(w.Code, ShouldEqual, http.StatusForbidden)
			})
		})
	})
}

func TestAnalysesHandler_SubmitPath(t *testing.T) {
	Convey("Given a data directory holding a detection file", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "game.jsonl"), stream("from-disk").Bytes(), 0o600), ShouldBeNil)
		deps := &mockDependencies{}
		mux := newMux(deps, api.WithDataDir(dir))

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/analyses", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
			return serve(mux, req)
		}

		Convey("When the file is named", func() {
			w := post(`{"path":"game.jsonl"}`)

			Convey("Then it is read from disk and submitted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.submitted[0].ID, ShouldEqual, "from-disk")
			})
		})

		Convey("When the path escapes the directory", func() {
			w := post(`{"path":"../../etc/passwd"}`)

			Convey("Then it is forbidden", func() {
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When a video with no detections is named", func() {
			So(os.WriteFile(filepath.Join(dir, "raw.mp4"), []byte("video"), 0o600), ShouldBeNil)
			w := post(`{"path":"raw.mp4"}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "no detections")
			})
		})

		Convey("When the file does not exist", func() {
			w := post(`{"path":"missing.jsonl"}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAnalysesHandler_SubmitDetector(t *testing.T) {
	Convey("Given a data directory holding a video and a configured detector", t, func() {
		if _, err := exec.LookPath("sh"); err != nil {
			t.Skip("sh not available")
		}
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "stream.out"), stream("detected").Bytes(), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "raw.mp4"), []byte("video"), 0o600), ShouldBeNil)
		resolver := detections.NewResolver(detections.WithDetector("sh", "-c", `cat "$(dirname "$1")/stream.out"`, "detect"))
		deps := &mockDependencies{}
		mux := newMux(deps, api.WithDataDir(dir), api.WithResolver(resolver))

		Convey("When the video is submitted by path", func() {
			req := httptest.NewRequest(http.MethodPost, "/analyses", strings.NewReader(`{"path":"raw.mp4"}`))
			req.Header.Set("Content-Type", "application/json")
			w := serve(mux, req)

			Convey("Then the detector output is analyzed with the video as clip source", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].ID, ShouldEqual, "detected")
				So(deps.submitted[0].SourcePath, ShouldEqual, filepath.Join(dir, "raw.mp4"))
			})
		})
	})
}

func TestAnalysesHandler_Read(t *testing.T) {
	Convey("Given a finished and a queued job", t, func() {
		submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		deps := &mockDependencies{jobs: map[string]repository.Record{
			"done": {
				JobID: "done", VideoID: "v1", Status: model.JobCompleted,
				Step: pipeline.StepComplete, Progress: 100,
				SubmittedAt: submitted, StartedAt: submitted.Add(time.Second), FinishedAt: submitted.Add(3 * time.Second),
				Report: pipeline.FailedReport("v1", nil),
			},
			"waiting": {JobID: "waiting", VideoID: "v2", Status: model.JobQueued, SubmittedAt: submitted},
		}}
		mux := newMux(deps)

		Convey("When the finished job is fetched", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/analyses/done", nil))

			Convey("Then status, timing and report are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["status"], ShouldEqual, "completed")
				So(body["progress"], ShouldEqual, 100.0)
				So(body["started_at"], ShouldNotBeNil)
				So(body["report"], ShouldNotBeNil)
			})
		})

		Convey("When the queued job is fetched", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/analyses/waiting", nil))

			Convey("Then unset times and report are omitted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldNotContainSubstring, "started_at")
				So(w.Body.String(), ShouldNotContainSubstring, "report")
			})
		})

		Convey("When an unknown job is fetched", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/analyses/nope", nil))

			Convey("Then the response is 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the job id is missing or nested", func() {
			w1 := serve(mux, httptest.NewRequest(http.MethodGet, "/analyses/", nil))
			w2 := serve(mux, httptest.NewRequest(http.MethodGet, "/analyses/a/b", nil))

			Convey("Then the request is rejected", func() {
				So(w1.Code, ShouldEqual, http.StatusBadRequest)
				So(w2.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the jobs are listed with a limit", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/analyses?limit=5000", nil))

			Convey("Then the limit is capped and both jobs are listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.listed, ShouldEqual, 1000)
				var body struct {
					Analyses []map[string]interface{} `json:"analyses"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(len(body.Analyses), ShouldEqual, 2)
			})
		})

		Convey("When the limit is invalid", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/analyses?limit=-1", nil))

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped by the metrics middleware", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("fail") != "" {
				w.WriteHeader(http.StatusConflict)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}, "probe")

		Convey("When a request carries no request id", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/probe", http.NoBody))

			Convey("Then one is generated and echoed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
			})
		})

		Convey("When a failing request carries a request id", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/probe?fail=1", http.NoBody)
			req.Header.Set("X-Request-ID", "req-42")
			h(w, req)

			Convey("Then the status and id pass through", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Header().Get("X-Request-ID"), ShouldEqual, "req-42")
			})
		})
	})
}
