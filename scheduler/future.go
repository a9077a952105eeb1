package scheduler

import (
	"context"
)

// Future is the pending result of a job added to a Scheduler.
type Future struct {
	job   Job
	done  chan struct{}
	value any
	err   error
}

func newFuture(job Job) *Future {
	return &Future{
		job:  job,
		done: make(chan struct{}),
	}
}

// Job returns the job this future belongs to.
//
//nolint:ireturn // callers get back exactly what they submitted.
func (f *Future) Job() Job {
	return f.job
}

// Done is closed once the job has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job settles and returns its result and error.
// If ctx ends first, Wait returns ctx.Err(); the job itself keeps its place
// in the queue and still runs.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) resolve(value any, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Batch groups the futures of jobs added together with AddAll.
type Batch struct {
	futures []*Future
}

// Futures returns the individual futures in submission order.
func (b *Batch) Futures() []*Future {
	return b.futures
}

// Wait returns the results of all jobs in submission order. It returns as soon
// as any job fails, with that job's error.
func (b *Batch) Wait(ctx context.Context) ([]any, error) {
	results := make([]any, len(b.futures))
	if len(b.futures) == 0 {
		return results, nil
	}

	settled := make(chan int, len(b.futures))
	stop := make(chan struct{})
	defer close(stop)

	for i, f := range b.futures {
		go func(i int, f *Future) {
			select {
			case <-f.done:
				settled <- i
			case <-stop:
			}
		}(i, f)
	}

	for remaining := len(b.futures); remaining > 0; remaining-- {
		select {
		case i := <-settled:
			f := b.futures[i]
			if f.err != nil {
				return nil, f.err
			}
			results[i] = f.value
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return results, nil
}
