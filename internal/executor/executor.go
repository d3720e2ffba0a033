// Package executor runs batches of independent jobs with a concurrency cap.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the cap used by full sweeps unless configured.
const DefaultConcurrency = 15

// ErrInvalidConcurrency is returned when the cap is not positive.
var ErrInvalidConcurrency = errors.New("concurrency must be greater than zero")

// Job is one unit of work.
type Job func(ctx context.Context) error

// Result counts the outcome of a batch. Fulfilled+Errors always equals the
// number of jobs submitted.
type Result struct {
	Fulfilled int `json:"fulfilled"`
	Errors    int `json:"errors"`
}

// Total returns the number of jobs accounted for.
func (r Result) Total() int {
	return r.Fulfilled + r.Errors
}

// Add merges another result into r.
func (r *Result) Add(other Result) {
	r.Fulfilled += other.Fulfilled
	r.Errors += other.Errors
}

// Run executes jobs with at most concurrency of them in flight. A failing or
// panicking job is reported to onError and counted; it never stops the
// others. Calls to onError are serialized. Jobs that had not started when ctx
// was cancelled are counted as errors with ctx.Err().
func Run(ctx context.Context, jobs []Job, onError func(error), concurrency int) (Result, error) {
	if concurrency <= 0 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, concurrency)
	}
	if len(jobs) == 0 {
		return Result{}, nil
	}

	var (
		mu     sync.Mutex
		result Result
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Errors++
		if onError != nil {
			onError(err)
		}
	}

	// Jobs always return nil to the group so a failure never cancels siblings.
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			for range jobs[i:] {
				fail(err)
			}
			break
		}

		job := job // explicit copy: go 1.21 loop variables are shared across iterations
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fail(err)
				return nil
			}
			if err := runJob(ctx, job); err != nil {
				fail(err)
				return nil
			}
			mu.Lock()
			result.Fulfilled++
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return result, nil
}

func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	if job == nil {
		return errors.New("nil job")
	}
	return job(ctx)
}
