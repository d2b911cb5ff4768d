// Package rule defines the identity predicate the registry uses to group
// inbound events into sessions.
package rule

import (
	"context"

	"github.com/wiresprite/wiresprite/event"
)

// Rule decides whether two events belong to the same logical conversation.
// A session with a nil Rule is a one-shot session never registered for
// reuse (see session.NewOneShot).
//
// Compare must be safe to call concurrently and must not itself call back
// into the registry holding the same rule — the registry releases its
// per-rule lock before calling Compare specifically so that implementations
// are free to do blocking work (IO, further dispatch) without deadlocking
// the scan, but a Compare that waits on events routed through the very
// rule being compared will still block those events indefinitely.
type Rule interface {
	// Compare reports whether have (an existing session's bound event)
	// and next (the newly arrived event) belong together.
	Compare(ctx context.Context, have, next event.Event) (bool, error)
}

// Func adapts a plain comparison function to the Rule interface.
type Func func(ctx context.Context, have, next event.Event) (bool, error)

// Compare implements Rule.
func (f Func) Compare(ctx context.Context, have, next event.Event) (bool, error) {
	return f(ctx, have, next)
}
