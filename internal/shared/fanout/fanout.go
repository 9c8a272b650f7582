// Package fanout runs a fixed number of independent tasks with bounded
// concurrency and collects every outcome.
//
// Unlike a plain errgroup, a failing task never cancels its siblings: each
// outcome carries its own error and the batch always waits for stragglers.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of task Index.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

// OK reports whether the task succeeded.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Collect runs fn for i in [0, n) with at most limit calls in flight and
// returns the outcomes in index order. A limit <= 0 means unbounded.
// Tasks not yet started when ctx is done are recorded with ctx's error.
func Collect[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) []Outcome[T] {
	if n <= 0 {
		return nil
	}

	outcomes := make([]Outcome[T], n)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := 0; i < n; i++ {
		outcomes[i].Index = i
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}

		i := i
		g.Go(func() error {
			value, err := fn(ctx, i)
			outcomes[i].Value = value
			outcomes[i].Err = err
			// Failures stay in the outcome so siblings keep running.
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// Values returns the values of successful outcomes, preserving order.
func Values[T any](outcomes []Outcome[T]) []T {
	values := make([]T, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			values = append(values, o.Value)
		}
	}
	return values
}

// Errors returns the errors of failed outcomes, preserving order.
func Errors[T any](outcomes []Outcome[T]) []error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
