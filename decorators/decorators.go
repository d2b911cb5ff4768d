// Package decorators implements concurrency-control wrappers for handler
// callbacks: Lock, Cooldown, Semaphore, TimeLimit, and SpeedLimit. Each is
// grounded on the matching decorator in
// _examples/original_source/src/melobot/utils.py, adapted from Python's
// asyncio.Lock/Semaphore/wait_for to Go's explicit
// mutex/channel-semaphore/timer idiom.
package decorators

import (
	"context"
	"sync"
	"time"

	"github.com/wiresprite/wiresprite/coreerr"
)

// Handler is the shape every decorator wraps and returns: a unit of work
// scoped to a context, producing a T or an error.
type Handler[T any] func(ctx context.Context) (T, error)

// Lock serializes calls to h: only one call runs at a time. If callback is
// non-nil, a call that arrives while another is in flight runs callback
// instead of blocking; if callback is nil, it waits its turn.
func Lock[T any](h Handler[T], callback Handler[T]) Handler[T] {
	var mu sync.Mutex
	return func(ctx context.Context) (T, error) {
		if callback != nil {
			if !mu.TryLock() {
				return callback(ctx)
			}
			defer mu.Unlock()
			return h(ctx)
		}
		mu.Lock()
		defer mu.Unlock()
		return h(ctx)
	}
}

// Cooldown adds a minimum interval between completed calls to h.
//
//   - If busyCallback is non-nil and a call is already in flight, it runs
//     busyCallback instead of blocking.
//   - Otherwise, a call waits for any in-flight call to finish, then: if
//     interval has elapsed since the last completion, runs h immediately;
//     if not, and cdCallback is non-nil, runs cdCallback(remaining)
//     instead; if cdCallback is nil, sleeps out the remainder and then
//     runs h.
func Cooldown[T any](h Handler[T], busyCallback Handler[T], cdCallback func(ctx context.Context, remaining time.Duration) (T, error), interval time.Duration) Handler[T] {
	var mu sync.Mutex
	lastFinish := time.Now().Add(-interval - time.Second)

	return func(ctx context.Context) (T, error) {
		var zero T
		if busyCallback != nil {
			if !mu.TryLock() {
				return busyCallback(ctx)
			}
		} else {
			mu.Lock()
		}
		defer mu.Unlock()

		elapsed := time.Since(lastFinish)
		if elapsed > interval {
			ret, err := h(ctx)
			lastFinish = time.Now()
			return ret, err
		}

		remaining := interval - elapsed
		if cdCallback != nil {
			return cdCallback(ctx, remaining)
		}

		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		ret, err := h(ctx)
		lastFinish = time.Now()
		return ret, err
	}
}

// Semaphore limits h to at most `value` concurrent in-flight calls. If
// callback is non-nil, a call that would block instead runs callback.
func Semaphore[T any](h Handler[T], callback Handler[T], value int) Handler[T] {
	sem := make(chan struct{}, value)
	return func(ctx context.Context) (T, error) {
		if callback != nil {
			select {
			case sem <- struct{}{}:
			default:
				return callback(ctx)
			}
		} else {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}
		defer func() { <-sem }()
		return h(ctx)
	}
}

// TimeLimit aborts h if it has not completed within timeout. If callback
// is non-nil it is run in place of returning a timeout error. h still runs
// to completion in the background even after a timeout is reported — Go
// has no cooperative cancellation of arbitrary code, only ctx.Done(),
// which h must itself observe to stop early.
func TimeLimit[T any](h Handler[T], callback Handler[T], timeout time.Duration) Handler[T] {
	return func(ctx context.Context) (T, error) {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type result struct {
			val T
			err error
		}
		done := make(chan result, 1)
		go func() {
			val, err := h(cctx)
			done <- result{val, err}
		}()

		select {
		case r := <-done:
			return r.val, r.err
		case <-cctx.Done():
			var zero T
			if callback != nil {
				return callback(ctx)
			}
			return zero, context.DeadlineExceeded
		}
	}
}

// SpeedLimit allows at most limit calls to h per fixed duration window. The
// first window starts when SpeedLimit is called; a new one starts with the
// first call after the current window has elapsed, so calls at the end of
// one window and the start of the next are counted separately. Calls beyond
// the limit either invoke callback (if non-nil) or block until the window
// resets.
func SpeedLimit[T any](h Handler[T], callback Handler[T], limit int, duration time.Duration) (Handler[T], error) {
	if limit <= 0 {
		return nil, coreerr.ErrValidation
	}
	if duration <= 0 {
		return nil, coreerr.ErrValidation
	}

	var mu sync.Mutex
	calledNum := 0
	windowStart := time.Now()

	var wrapped Handler[T]
	wrapped = func(ctx context.Context) (T, error) {
		mu.Lock()
		elapsed := time.Since(windowStart)
		var zero T

		if elapsed <= duration {
			if calledNum < limit {
				calledNum++
				mu.Unlock()
				return h(ctx)
			}
			if callback != nil {
				mu.Unlock()
				return callback(ctx)
			}
			remaining := duration - elapsed
			mu.Unlock()
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-timer.C:
				return wrapped(ctx)
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		calledNum = 1
		windowStart = time.Now()
		mu.Unlock()
		return h(ctx)
	}
	return wrapped, nil
}
