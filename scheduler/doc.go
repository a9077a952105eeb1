// Package scheduler provides a bounded-concurrency, priority-ordered job queue.
//
// A Scheduler runs at most N jobs at a time. Waiting jobs are dispatched by
// descending priority, and jobs of equal priority run in the order they were
// added. The scheduler can be paused (running jobs finish, nothing new starts)
// and resumed, and it reports every settled job and every drain to idle to
// registered listeners.
//
// The scheduler is used directly to bound parallel transfers, and with a
// concurrency of one by the remote file systems, where it guarantees that
// commands reach a single control connection strictly one at a time and in
// submission order.
//
// Example usage:
//
//	queue, err := scheduler.New(4)
//	if err != nil {
//	    return err
//	}
//
//	future := queue.Add(ctx, scheduler.JobFunc(func(ctx context.Context) (any, error) {
//	    return download(ctx, path)
//	}), scheduler.WithPriority(1))
//
//	value, err := future.Wait(ctx)
//
// Counters: Size reports jobs waiting for a slot, Running reports jobs
// currently executing. Running is what older callers of this queue knew as
// "pendingCount".
package scheduler
