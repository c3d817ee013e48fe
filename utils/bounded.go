package utils

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a bounded operation outlives its timeout and no
// fallback value is available.
var ErrTimeout = errors.New("operation timed out")

type Policy int

const (
	// ReturnError surfaces the failure to the caller.
	ReturnError Policy = iota
	// ReturnStale answers with the fallback value when one exists.
	ReturnStale
)

// Bounded races an operation against a timer. The operation keeps running
// after the timer fires; its result is discarded.
type Bounded[T any] struct {
	Timeout time.Duration
	Policy  Policy
	// Fallback supplies the last known-good value for ReturnStale.
	Fallback func() (T, bool)
	// Terminal marks errors that must reach the caller under any policy,
	// such as a missing row.
	Terminal func(error) bool
}

type boundedResult[T any] struct {
	val T
	err error
}

func (b Bounded[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	runCtx := ctx
	cancel := func() {}
	if b.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, b.Timeout)
	}

	done := make(chan boundedResult[T], 1)
	go func() {
		defer cancel()
		v, err := fn(runCtx)
		done <- boundedResult[T]{val: v, err: err}
	}()

	var res boundedResult[T]
	select {
	case res = <-done:
	case <-runCtx.Done():
		select {
		case res = <-done:
		default:
			res.err = ErrTimeout
			if ctx.Err() != nil {
				res.err = ctx.Err()
			}
		}
	}

	if res.err == nil {
		return res.val, nil
	}
	if b.Terminal != nil && b.Terminal(res.err) {
		return res.val, res.err
	}
	if b.Policy == ReturnStale && b.Fallback != nil {
		if v, ok := b.Fallback(); ok {
			return v, nil
		}
	}
	return res.val, res.err
}
