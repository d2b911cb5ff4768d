// Package botctx realizes spec.md's context stack as context.Context value
// layering rather than an explicit stack type. "Pushing" a value is
// ctx = botctx.WithX(ctx, v); "popping" is simply letting that ctx value go
// out of scope — Go's call tree already guarantees every child call sees
// the pushed value and every caller outside the scope never does, on every
// exit path (return, panic, or early error), with no explicit guard or
// defer-pop bookkeeping required.
package botctx

import (
	"context"
	"log/slog"

	"github.com/wiresprite/wiresprite/event"
	"github.com/wiresprite/wiresprite/session"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	eventKey
	botKey
	adapterKey
	loggerKey
)

// WithSession returns a copy of ctx carrying s as the current session.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the current session, if one was pushed.
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok
}

// WithEvent returns a copy of ctx carrying ev as the event currently being
// dispatched. This is distinct from the session's own bound event: a
// handler invoked mid-dispatch sees the event that triggered this specific
// call, even across a suspend/wakeup cycle where the session's bound event
// has since moved on.
func WithEvent(ctx context.Context, ev event.Event) context.Context {
	return context.WithValue(ctx, eventKey, ev)
}

// EventFrom returns the event currently being dispatched, if any.
func EventFrom(ctx context.Context) (event.Event, bool) {
	ev, ok := ctx.Value(eventKey).(event.Event)
	return ev, ok
}

// Bot is the minimal surface handler code needs from the owning bot
// instance; kept here (rather than importing package bot) to avoid an
// import cycle, since package bot pushes itself onto contexts it builds.
type Bot interface {
	Name() string
}

// WithBot returns a copy of ctx carrying b as the current bot instance.
func WithBot(ctx context.Context, b Bot) context.Context {
	return context.WithValue(ctx, botKey, b)
}

// BotFrom returns the current bot instance, if one was pushed.
func BotFrom(ctx context.Context) (Bot, bool) {
	b, ok := ctx.Value(botKey).(Bot)
	return b, ok
}

// Adapter is the minimal surface handler code needs from the inbound
// transport adapter, kept here for the same import-cycle reason as Bot.
type Adapter interface {
	Name() string
}

// WithAdapter returns a copy of ctx carrying a as the current adapter.
func WithAdapter(ctx context.Context, a Adapter) context.Context {
	return context.WithValue(ctx, adapterKey, a)
}

// AdapterFrom returns the current adapter, if one was pushed.
func AdapterFrom(ctx context.Context) (Adapter, bool) {
	a, ok := ctx.Value(adapterKey).(Adapter)
	return a, ok
}

// WithLogger returns a copy of ctx carrying log as the contextual logger.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// LoggerFrom returns the contextual logger, falling back to slog.Default
// if none was pushed.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}
