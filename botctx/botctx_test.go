package botctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wiresprite/wiresprite/session"
)

type testEvent struct{ id string }

func (e testEvent) ID() string { return e.id }

type testBot struct{ name string }

func (b testBot) Name() string { return b.name }

func TestWithSession_PushAndScope(t *testing.T) {
	base := context.Background()
	_, ok := SessionFrom(base)
	assert.False(t, ok)

	s := session.NewOneShot(testEvent{"e1"}, nil)
	pushed := WithSession(base, s)

	got, ok := SessionFrom(pushed)
	assert.True(t, ok)
	assert.Same(t, s, got)

	// The parent context is unaffected — this is the "pop on scope exit"
	// guarantee: nothing mutates base, so once pushed goes out of scope
	// no reference to s survives through base.
	_, ok = SessionFrom(base)
	assert.False(t, ok)
}

func TestWithEvent(t *testing.T) {
	ctx := WithEvent(context.Background(), testEvent{"e1"})
	ev, ok := EventFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "e1", ev.ID())
}

func TestWithBot(t *testing.T) {
	ctx := WithBot(context.Background(), testBot{"mybot"})
	b, ok := BotFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "mybot", b.Name())
}

func TestLoggerFrom_DefaultsWhenUnset(t *testing.T) {
	log := LoggerFrom(context.Background())
	assert.NotNil(t, log)
}

func TestWithLogger(t *testing.T) {
	custom := slog.Default().With("x", "y")
	ctx := WithLogger(context.Background(), custom)
	assert.Same(t, custom, LoggerFrom(ctx))
}

func TestNestedScopes_InnerOverridesOuter(t *testing.T) {
	outer := session.NewOneShot(testEvent{"outer"}, nil)
	inner := session.NewOneShot(testEvent{"inner"}, nil)

	ctx := WithSession(context.Background(), outer)
	ctx2 := WithSession(ctx, inner)

	got, _ := SessionFrom(ctx2)
	assert.Same(t, inner, got)

	// The outer ctx value is untouched by the inner push.
	got, _ = SessionFrom(ctx)
	assert.Same(t, outer, got)
}
