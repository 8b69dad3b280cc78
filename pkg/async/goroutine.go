package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrPanic is matched by errors.Is for every recovered panic
var ErrPanic = errors.New("panic recovered")

// PanicError wraps a value recovered from a panic
type PanicError struct {
	Task  string
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Task, e.Value)
}

// Is reports ErrPanic as the sentinel for all panics
func (e *PanicError) Is(target error) bool {
	return target == ErrPanic
}

// Recover executes fn and converts a panic into a *PanicError.
//
// Example:
//
//	err := Recover("audit hook", func() error {
//	    return hook.After(ctx, mc)
//	})
func Recover(taskName string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: taskName, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// Map applies fn to every item with at most workers goroutines in flight.
// Results keep the order of items; errs[i] holds the error for items[i].
// Panics are recovered per item.
func Map[T, R any](ctx context.Context, items []T, workers int, taskName string,
	fn func(context.Context, T) (R, error)) ([]R, []error) {

	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}
	if workers <= 0 {
		workers = 1
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, item := range items {
		i, item := i, item
		eg.Go(func() error {
			errs[i] = Recover(taskName, func() error {
				r, err := fn(egCtx, item)
				results[i] = r
				return err
			})
			if errors.Is(errs[i], ErrPanic) {
				logrus.WithField("task", taskName).WithError(errs[i]).Error("recovered panic in batch item")
			}
			// Item errors are reported per index, never used to cancel siblings
			return nil
		})
	}
	_ = eg.Wait()

	return results, errs
}

// Batch processes items concurrently and returns the non-nil errors.
func Batch[T any](ctx context.Context, items []T, workers int, taskName string,
	fn func(context.Context, T) error) []error {

	_, errs := Map(ctx, items, workers, taskName, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})

	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
