package scheduler

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/wangziweng7890/vscode-iconfont/errors"
)

// Unbounded lets a scheduler run any number of jobs at once.
const Unbounded = math.MaxInt

// ErrInvalidConcurrency is returned by New when the concurrency is below one.
var ErrInvalidConcurrency = errors.New(
	errors.CodeInvalidConfig,
	"scheduler: concurrency must be a positive integer or Unbounded",
)

// Job is a unit of work run by a Scheduler.
type Job interface {
	Run(ctx context.Context) (any, error)
}

// JobFunc adapts a function to the Job interface.
type JobFunc func(ctx context.Context) (any, error)

// Run calls f(ctx).
func (f JobFunc) Run(ctx context.Context) (any, error) {
	return f(ctx)
}

// Stats is a point-in-time snapshot of the scheduler counters.
type Stats struct {
	Concurrency    int
	Running        int
	Waiting        int
	AvailableSlots int
	Started        bool
}

type taskDoneListener struct {
	id int
	fn func(err error, job Job)
}

type idleListener struct {
	id int
	fn func()
}

// event is a notification queued for delivery to listeners.
type event struct {
	job  Job
	err  error
	idle bool
}

// Scheduler runs jobs with bounded concurrency in priority order.
// All methods are safe for concurrent use.
type Scheduler struct {
	concurrency int
	logger      *slog.Logger

	mu        sync.Mutex
	started   bool
	running   int
	pending   pendingQueue
	listenID  int
	onDone    []taskDoneListener
	onIdle    []idleListener
	idleWait  []chan struct{}
	events    []event
	notifying bool
}

// New creates a scheduler that runs at most concurrency jobs at a time.
// Pass Unbounded to lift the limit. A concurrency below one fails with
// ErrInvalidConcurrency.
func New(concurrency int, opts ...Option) (*Scheduler, error) {
	if concurrency < 1 {
		return nil, ErrInvalidConcurrency
	}

	o := applyOptions(opts...)
	return &Scheduler{
		concurrency: concurrency,
		logger:      o.logger,
		started:     o.autoStart,
	}, nil
}

// Add enqueues job and returns a future for its result. The job runs with
// ctx once a slot is free and no higher-priority job is waiting.
func (s *Scheduler) Add(ctx context.Context, job Job, opts ...AddOption) *Future {
	ao := &addOptions{}
	for _, opt := range opts {
		opt(ao)
	}

	f := newFuture(job)

	s.mu.Lock()
	s.pending.push(ctx, job, ao.priority, f)
	ready := s.dispatchLocked()
	s.mu.Unlock()

	s.launch(ready)
	return f
}

// AddAll enqueues jobs in order with the same options. Dispatch happens once,
// after all jobs are queued.
func (s *Scheduler) AddAll(ctx context.Context, jobs []Job, opts ...AddOption) *Batch {
	ao := &addOptions{}
	for _, opt := range opts {
		opt(ao)
	}

	b := &Batch{futures: make([]*Future, len(jobs))}

	s.mu.Lock()
	for i, job := range jobs {
		f := newFuture(job)
		b.futures[i] = f
		s.pending.push(ctx, job, ao.priority, f)
	}
	ready := s.dispatchLocked()
	s.mu.Unlock()

	s.launch(ready)
	return b
}

// Pause stops dispatching new jobs. Jobs already running are not affected.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
}

// Start resumes dispatching. It is a no-op on a running scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ready := s.dispatchLocked()
	s.mu.Unlock()

	s.launch(ready)
}

// OnTaskDone registers fn to be called after each job settles, with the job's
// error (nil on success). Calls are serialized in completion order.
// The returned function removes the listener.
func (s *Scheduler) OnTaskDone(fn func(err error, job Job)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listenID++
	id := s.listenID
	s.onDone = append(s.onDone, taskDoneListener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.onDone {
			if l.id == id {
				s.onDone = append(s.onDone[:i:i], s.onDone[i+1:]...)
				return
			}
		}
	}
}

// OnIdle registers fn to be called each time the scheduler drains: no job is
// waiting and none is running. The returned function removes the listener.
func (s *Scheduler) OnIdle(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listenID++
	id := s.listenID
	s.onIdle = append(s.onIdle, idleListener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.onIdle {
			if l.id == id {
				s.onIdle = append(s.onIdle[:i:i], s.onIdle[i+1:]...)
				return
			}
		}
	}
}

// Size returns the number of jobs waiting for a slot.
func (s *Scheduler) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.len()
}

// Running returns the number of jobs currently executing.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// IsRunning reports whether the scheduler is dispatching jobs.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	available := 0
	if s.started {
		available = s.concurrency - s.running
	}
	return Stats{
		Concurrency:    s.concurrency,
		Running:        s.running,
		Waiting:        s.pending.len(),
		AvailableSlots: available,
		Started:        s.started,
	}
}

// WaitIdle blocks until no job is waiting or running. It returns immediately
// when the scheduler is already idle. A paused scheduler with waiting jobs
// does not become idle until it is started again.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	if s.running == 0 && s.pending.len() == 0 {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.idleWait = append(s.idleWait, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchLocked moves as many waiting jobs as the limit allows into the
// running set and returns them. The caller must hold s.mu and start the
// returned items after releasing it.
func (s *Scheduler) dispatchLocked() []*item {
	var ready []*item
	for s.started && s.running < s.concurrency {
		it := s.pending.pop()
		if it == nil {
			break
		}
		s.running++
		ready = append(ready, it)
	}
	return ready
}

func (s *Scheduler) launch(items []*item) {
	for _, it := range items {
		go s.execute(it)
	}
}

func (s *Scheduler) execute(it *item) {
	value, err := s.run(it)

	s.mu.Lock()
	s.running--
	ready := s.dispatchLocked()
	s.events = append(s.events, event{job: it.job, err: err})
	if s.running == 0 && s.pending.len() == 0 {
		s.events = append(s.events, event{idle: true})
		for _, ch := range s.idleWait {
			close(ch)
		}
		s.idleWait = nil
	}
	drain := !s.notifying
	if drain {
		s.notifying = true
	}
	s.mu.Unlock()

	s.launch(ready)
	it.future.resolve(value, err)

	if drain {
		s.deliver()
	}
}

func (s *Scheduler) run(it *item) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled job panicked", "panic", r)
			value = nil
			err = errors.Newf(errors.CodeInternal, "scheduler: job panicked: %v", r)
		}
	}()
	return it.job.Run(it.ctx)
}

// deliver hands queued events to listeners one at a time. Only one goroutine
// delivers at any moment, so listeners observe events in the order they were
// queued and never run under s.mu.
func (s *Scheduler) deliver() {
	for {
		s.mu.Lock()
		if len(s.events) == 0 {
			s.notifying = false
			s.mu.Unlock()
			return
		}
		ev := s.events[0]
		s.events[0] = event{}
		s.events = s.events[1:]

		var (
			done []taskDoneListener
			idle []idleListener
		)
		if ev.idle {
			idle = append(idle, s.onIdle...)
		} else {
			done = append(done, s.onDone...)
		}
		s.mu.Unlock()

		for _, l := range done {
			l.fn(ev.err, ev.job)
		}
		for _, l := range idle {
			l.fn()
		}
	}
}

// Do runs fn on s and waits for its typed result.
func Do[T any](ctx context.Context, s *Scheduler, fn func(context.Context) (T, error), opts ...AddOption) (T, error) {
	var zero T

	f := s.Add(ctx, JobFunc(func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		return v, err
	}), opts...)

	v, err := f.Wait(ctx)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return t, nil
}
