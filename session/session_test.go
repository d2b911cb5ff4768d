package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiresprite/wiresprite/coreerr"
	"github.com/wiresprite/wiresprite/event"
	"github.com/wiresprite/wiresprite/rule"
)

type testEvent struct{ id string }

func (e testEvent) ID() string { return e.id }

var alwaysMatch = rule.Func(func(ctx context.Context, have, next event.Event) (bool, error) {
	return true, nil
})

func TestSession_StateMachineTotality(t *testing.T) {
	// Every operation from every state either succeeds into its documented
	// target state or fails (with a SessionStateError from a live state, or
	// an InvalidSessionError from Expired); nothing panics or leaves the
	// state in limbo.
	ops := []string{"work", "rest", "suspend", "wakeup", "expire"}
	for _, op := range ops {
		for _, st := range []State{Spare, Working, Suspended, Expired} {
			s := New(testEvent{"e"}, alwaysMatch, false, nil)
			s.state = st
			var err error
			switch op {
			case "work":
				err = s.Work(testEvent{"e2"})
			case "rest":
				err = s.Rest()
			case "suspend":
				_, err = s.Suspend(context.Background(), time.Millisecond)
			case "wakeup":
				err = s.Wakeup(testEvent{"e2"})
			case "expire":
				err = s.Expire()
			}
			if isAllowed(op, st) || (op == "expire" && st == Expired) {
				assert.NoError(t, err, "op=%s from=%s", op, st)
			} else {
				assert.Error(t, err, "op=%s from=%s should fail", op, st)
			}
		}
	}
}

func TestSession_RestTransition(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, false, nil)
	require.NoError(t, s.Work(testEvent{"e2"}))
	assert.Equal(t, Working, s.State())

	refresh := s.RefreshChan()
	require.NoError(t, s.Rest())
	assert.Equal(t, Spare, s.State())

	select {
	case <-refresh:
	default:
		t.Fatal("Rest should signal refresh")
	}
}

func TestSession_SuspendWakeup(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, true, nil)
	require.NoError(t, s.Work(testEvent{"e2"}))

	done := make(chan bool, 1)
	go func() {
		woke, err := s.Suspend(context.Background(), 0)
		require.NoError(t, err)
		done <- woke
	}()

	// Give the goroutine a chance to reach Suspended.
	deadline := time.Now().Add(time.Second)
	for s.State() != Suspended && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, Suspended, s.State())

	require.NoError(t, s.Wakeup(testEvent{"e3"}))
	assert.Equal(t, Working, s.State())

	select {
	case woke := <-done:
		assert.True(t, woke)
	case <-time.After(time.Second):
		t.Fatal("suspend did not return after wakeup")
	}
	assert.Equal(t, "e3", s.Event().ID())
}

func TestSession_SuspendTimeout(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, false, nil)
	require.NoError(t, s.Work(testEvent{"e2"}))

	woke, err := s.Suspend(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, woke)
	// Per the Open Question resolution: timeout does not force a state
	// change away from Suspended.
	assert.Equal(t, Suspended, s.State())
}

func TestSession_ExpireIsIdempotent(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, false, nil)
	require.NoError(t, s.Expire())
	assert.Equal(t, Expired, s.State())
	require.NoError(t, s.Expire())
	assert.Equal(t, Expired, s.State())
}

func TestSession_ExpireSignalsRefreshOnlyFromWorking(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, false, nil)
	refresh := s.RefreshChan()
	require.NoError(t, s.Expire())
	select {
	case <-refresh:
		t.Fatal("expire from Spare should not signal refresh")
	default:
	}
}

func TestSession_OnExpireHookFires(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, false, nil)
	var called bool
	var mu sync.Mutex
	s.SetOnExpire(func() {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	require.NoError(t, s.Expire())
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, called)
}

func TestSession_OneShotLifecycle(t *testing.T) {
	s := NewOneShot(testEvent{"e1"}, nil)
	assert.Equal(t, Working, s.State())
	assert.Nil(t, s.Rule())
	require.NoError(t, s.Expire())
	assert.Equal(t, Expired, s.State())

	assert.Error(t, s.Rest())
	_, err := s.Suspend(context.Background(), time.Millisecond)
	assert.Error(t, err)
}

func TestSession_LeaveWakesSuspendedOnCancellation(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, true, nil)
	require.NoError(t, s.Work(testEvent{"e2"}))

	ctx, cancel := context.WithCancel(context.Background())
	suspended := make(chan struct{})
	go func() {
		close(suspended)
		s.Suspend(ctx, 0)
	}()
	<-suspended
	deadline := time.Now().Add(time.Second)
	for s.State() != Suspended && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, Suspended, s.State())

	cancel()
	require.NoError(t, s.Leave(ctx.Err()))
	assert.Equal(t, Spare, s.State())
}

func TestSession_LeaveExpiresWhenNotKeep(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, false, nil)
	require.NoError(t, s.Work(testEvent{"e2"}))
	require.NoError(t, s.Leave(nil))
	assert.Equal(t, Expired, s.State())
}

func TestSession_OperationsOnExpiredSessionReturnInvalidSessionError(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, false, nil)
	require.NoError(t, s.Expire())

	err := s.Work(testEvent{"e2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerr.ErrInvalidSession)
	assert.NotErrorIs(t, err, coreerr.ErrSessionState)

	err = s.Rest()
	assert.ErrorIs(t, err, coreerr.ErrInvalidSession)

	err = s.Wakeup(testEvent{"e2"})
	assert.ErrorIs(t, err, coreerr.ErrInvalidSession)

	_, err = s.Suspend(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, coreerr.ErrInvalidSession)
}

func TestSession_DisallowedLiveStateReturnsSessionStateError(t *testing.T) {
	s := New(testEvent{"e1"}, alwaysMatch, false, nil)
	// Spare cannot Rest; this is a live-state rejection, not an expired one.
	err := s.Rest()
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerr.ErrSessionState)
	assert.NotErrorIs(t, err, coreerr.ErrInvalidSession)
}
