package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiresprite/wiresprite/event"
	"github.com/wiresprite/wiresprite/rule"
	"github.com/wiresprite/wiresprite/session"
)

type evt struct {
	id   string
	conv string
}

func (e evt) ID() string { return e.id }

func convID(ev event.Event) string {
	if e, ok := ev.(evt); ok {
		return e.conv
	}
	return ""
}

var sameConv = rule.Func(func(ctx context.Context, have, next event.Event) (bool, error) {
	return convID(have) == convID(next), nil
})

func TestRegistry_NilRuleIsAlwaysOneShot(t *testing.T) {
	r := New(nil)
	s, err := r.Get(context.Background(), evt{"e1", "c1"}, nil, false, nil, false)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, session.Working, s.State())
	assert.Equal(t, 0, r.Count(nil))
}

func TestRegistry_CreatesSpareThenAttaches(t *testing.T) {
	r := New(nil)
	s1, err := r.Get(context.Background(), evt{"e1", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)
	require.NotNil(t, s1)
	assert.Equal(t, session.Working, s1.State())
	assert.Equal(t, 1, r.Count(sameConv))

	require.NoError(t, s1.Rest())
	assert.Equal(t, session.Spare, s1.State())

	s2, err := r.Get(context.Background(), evt{"e2", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, r.Count(sameConv))
}

func TestRegistry_DifferentRuleMatchCreatesNewSession(t *testing.T) {
	r := New(nil)
	_, err := r.Get(context.Background(), evt{"e1", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)

	s2, err := r.Get(context.Background(), evt{"e2", "c2"}, sameConv, true, nil, true)
	require.NoError(t, err)
	require.NotNil(t, s2)
	assert.Equal(t, 2, r.Count(sameConv))
}

func TestRegistry_SuspendedSessionWokenBeforeSpareOrCreate(t *testing.T) {
	r := New(nil)
	s1, err := r.Get(context.Background(), evt{"e1", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)

	suspendDone := make(chan struct{})
	go func() {
		s1.Suspend(context.Background(), 0)
		close(suspendDone)
	}()

	deadline := time.Now().Add(time.Second)
	for s1.State() != session.Suspended && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, session.Suspended, s1.State())

	s2, err := r.Get(context.Background(), evt{"e2", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)
	assert.Nil(t, s2, "wakeup path returns nil — the original handler owns s1")
	assert.Equal(t, session.Working, s1.State())
	assert.Equal(t, "e2", s1.Event().ID())

	<-suspendDone
	assert.Equal(t, 1, r.Count(sameConv))
}

func TestRegistry_NowaitBypassesBusyWorkingSession(t *testing.T) {
	r := New(nil)
	s1, err := r.Get(context.Background(), evt{"e1", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)
	assert.Equal(t, session.Working, s1.State())

	var called bool
	s2, err := r.Get(context.Background(), evt{"e2", "c1"}, sameConv, false, func(ctx context.Context) error {
		called = true
		return nil
	}, true)
	require.NoError(t, err)
	assert.Nil(t, s2)
	assert.True(t, called)
	// s1 is untouched.
	assert.Equal(t, "e1", s1.Event().ID())
}

func TestRegistry_WaitBlocksUntilRefreshThenAttaches(t *testing.T) {
	r := New(nil)
	s1, err := r.Get(context.Background(), evt{"e1", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var s2 *session.Session
	var getErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		s2, getErr = r.Get(context.Background(), evt{"e2", "c1"}, sameConv, true, nil, true)
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s1.Rest())

	wg.Wait()
	require.NoError(t, getErr)
	require.NotNil(t, s2)
	assert.Same(t, s1, s2)
	assert.Equal(t, "e2", s2.Event().ID())
}

func TestRegistry_ExpiredSessionRemovedFromScan(t *testing.T) {
	r := New(nil)
	s1, err := r.Get(context.Background(), evt{"e1", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)
	require.NoError(t, s1.Expire())
	assert.Equal(t, 0, r.Count(sameConv))

	s2, err := r.Get(context.Background(), evt{"e2", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
	assert.Equal(t, 1, r.Count(sameConv))
}

func TestRegistry_ContextCancellationDuringWait(t *testing.T) {
	r := New(nil)
	_, err := r.Get(context.Background(), evt{"e1", "c1"}, sameConv, true, nil, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = r.Get(ctx, evt{"e2", "c1"}, sameConv, true, nil, true)
	assert.Error(t, err)
}
