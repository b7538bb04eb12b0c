package worker_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/hoopiq/internal/adapters/mq/queue"
	"github.com/okian/hoopiq/internal/adapters/mq/worker"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type mockQueue struct {
	jobs chan *model.Job
}

func newMockQueue() *mockQueue { return &mockQueue{jobs: make(chan *model.Job, 64)} }

func (q *mockQueue) Dequeue(context.Context) <-chan *model.Job { return q.jobs }

func (q *mockQueue) Close() error {
	close(q.jobs)
	return nil
}

type analyzerFunc func(ctx context.Context, v *model.Video, p pipeline.ProgressFunc) (*pipeline.Report, error)

func (f analyzerFunc) Run(ctx context.Context, v *model.Video, p pipeline.ProgressFunc) (*pipeline.Report, error) {
	return f(ctx, v, p)
}

type mockStore struct {
	mu       sync.Mutex
	started  map[string]bool
	reports  map[string]*pipeline.Report
	finished chan string
}

func newMockStore() *mockStore {
	return &mockStore{started: map[string]bool{}, reports: map[string]*pipeline.Report{}, finished: make(chan string, 64)}
}

func (s *mockStore) Start(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started[id] = true
	return nil
}

func (s *mockStore) Finish(_ context.Context, id string, r *pipeline.Report) error {
	s.mu.Lock()
	s.reports[id] = r
	s.mu.Unlock()
	s.finished <- id
	return nil
}

func (s *mockStore) report(id string) *pipeline.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[id]
}

type mockProgress struct {
	mu    sync.Mutex
	steps []pipeline.Step
}

func (p *mockProgress) For(string) pipeline.ProgressFunc {
	return func(step pipeline.Step, _ int) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.steps = append(p.steps, step)
	}
}

func completed(_ context.Context, v *model.Video, p pipeline.ProgressFunc) (*pipeline.Report, error) {
	p(pipeline.StepComplete, 100)
	return &pipeline.Report{VideoID: v.ID, Status: pipeline.StatusCompleted, TotalFrames: len(v.Frames)}, nil
}

func newJob(id string) *model.Job {
	return &model.Job{ID: id, Video: &model.Video{ID: "video-" + id}, SubmittedAt: time.Now()}
}

func waitFinished(s *mockStore, n int) []string {
	var ids []string
	timeout := time.After(2 * time.Second)
	for len(ids) < n {
		select {
		case id := <-s.finished:
			ids = append(ids, id)
		case <-timeout:
			return ids
		}
	}
	return ids
}

func TestWorker(t *testing.T) {
	Convey("Given a worker over a queue and store", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := newMockQueue()
		store := newMockStore()
		prog := &mockProgress{}

		Convey("When a job is analyzed successfully", func() {
			w := worker.NewInMemoryWorker(q, analyzerFunc(completed), store, prog, worker.WithName("w1"))
			go w.Run(ctx)
			q.jobs <- newJob("a")
			ids := waitFinished(store, 1)

			Convey("Then the job was started and its report stored", func() {
				So(ids, ShouldResemble, []string{"a"})
				store.mu.Lock()
				So(store.started["a"], ShouldBeTrue)
				store.mu.Unlock()
				So(store.report("a").Status, ShouldEqual, pipeline.StatusCompleted)
				So(store.report("a").VideoID, ShouldEqual, "video-a")
				prog.mu.Lock()
				So(prog.steps, ShouldResemble, []pipeline.Step{pipeline.StepComplete})
				prog.mu.Unlock()
				So(w.Shutdown(ctx), ShouldBeNil)
			})
		})

		Convey("When the analysis panics", func() {
			panicky := analyzerFunc(func(context.Context, *model.Video, pipeline.ProgressFunc) (*pipeline.Report, error) {
				panic("tracker exploded")
			})
			w := worker.NewInMemoryWorker(q, panicky, store, prog)
			go w.Run(ctx)
			q.jobs <- newJob("b")
			q.jobs <- newJob("c")
			ids := waitFinished(store, 2)

			Convey("Then a failed report is stored and the worker keeps going", func() {
				So(len(ids), ShouldEqual, 2)
				r := store.report("b")
				So(r.Status, ShouldEqual, pipeline.StatusFailed)
				So(strings.HasPrefix(r.Error, "panic: tracker exploded"), ShouldBeTrue)
				So(r.VideoID, ShouldEqual, "video-b")
				So(r.Events, ShouldNotBeNil)
			})
		})

		Convey("When the analysis returns neither report nor error", func() {
			empty := analyzerFunc(func(context.Context, *model.Video, pipeline.ProgressFunc) (*pipeline.Report, error) {
				return nil, nil
			})
			w := worker.NewInMemoryWorker(q, empty, store, prog)
			go w.Run(ctx)
			q.jobs <- newJob("d")
			waitFinished(store, 1)

			Convey("Then the job fails", func() {
				So(store.report("d").Status, ShouldEqual, pipeline.StatusFailed)
			})
		})

		Convey("When the analysis outlives the job timeout", func() {
			slow := analyzerFunc(func(ctx context.Context, v *model.Video, _ pipeline.ProgressFunc) (*pipeline.Report, error) {
				<-ctx.Done()
				return pipeline.FailedReport(v.ID, ctx.Err()), ctx.Err()
			})
			w := worker.NewInMemoryWorker(q, slow, store, prog, worker.WithJobTimeout(20*time.Millisecond))
			go w.Run(ctx)
			q.jobs <- newJob("e")
			waitFinished(store, 1)

			Convey("Then the deadline fails the job", func() {
				r := store.report("e")
				So(r.Status, ShouldEqual, pipeline.StatusFailed)
				So(r.Error, ShouldEqual, context.DeadlineExceeded.Error())
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of three workers on a real queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		store := newMockStore()
		pool := worker.NewPool(3, q, analyzerFunc(completed), store, &mockProgress{})
		pool.Start(ctx)

		Convey("When twenty jobs are queued and the pool shuts down", func() {
			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, newJob(fmt.Sprint(i))), ShouldBeNil)
			}
			ids := waitFinished(store, 20)
			err := pool.Shutdown(ctx)

			Convey("Then every job finished exactly once", func() {
				So(err, ShouldBeNil)
				So(pool.Size(), ShouldEqual, 3)
				So(len(ids), ShouldEqual, 20)
				seen := map[string]bool{}
				for _, id := range ids {
					So(seen[id], ShouldBeFalse)
					seen[id] = true
				}
				So(pool.Processed(), ShouldEqual, 20)
				So(errors.Is(q.Enqueue(ctx, newJob("late")), queue.ErrClosed), ShouldBeTrue)
			})
		})
	})
}
