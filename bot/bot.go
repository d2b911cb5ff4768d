// Package bot wires the session registry, the context values read by the
// dependency injector, and the IPC share manager into a single dispatch
// entry point, and exposes an admin HTTP surface for operational
// inspection. Dispatch does not wrap handlers with package inject itself; a
// handler built with inject.Wrap reads the bot, session and event that
// Dispatch pushes onto its context. Grounded on
// internal/worker/server/server.go's composition shape (construct
// dependencies, build a mux, start a listener) with the connect-rpc
// plumbing stripped out in favor of plain JSON handlers.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wiresprite/wiresprite/botctx"
	"github.com/wiresprite/wiresprite/event"
	"github.com/wiresprite/wiresprite/internal/audit"
	"github.com/wiresprite/wiresprite/ipc"
	"github.com/wiresprite/wiresprite/registry"
	"github.com/wiresprite/wiresprite/rule"
)

// Bot is the runtime: a name, a session registry, an IPC share manager,
// and an optional audit trail.
type Bot struct {
	name     string
	log      *slog.Logger
	registry *registry.Registry
	shares   *ipc.Manager
	audit    *audit.Log
}

// New constructs a Bot. audit may be nil, in which case dispatch outcomes
// are simply not recorded.
func New(name string, log *slog.Logger, auditLog *audit.Log) *Bot {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "bot", "bot_name", name)
	return &Bot{
		name:     name,
		log:      log,
		registry: registry.New(log),
		shares:   ipc.NewManager(),
		audit:    auditLog,
	}
}

// Name satisfies botctx.Bot.
func (b *Bot) Name() string { return b.name }

// Shares returns the bot's IPC share manager, so plugins can register and
// look up shares.
func (b *Bot) Shares() *ipc.Manager { return b.shares }

// Registry returns the bot's session registry, for callers that need
// direct access.
func (b *Bot) Registry() *registry.Registry { return b.registry }

// ruleID is a stable label for audit rows; rules are plain values without
// an identity field, so we fall back to a type name.
func ruleID(rl rule.Rule) string {
	if rl == nil {
		return "<none>"
	}
	return fmt.Sprintf("%T", rl)
}

// Dispatch routes ev through the rule rl's session bucket, binds the
// resulting session and event onto ctx, and invokes handler with the
// enriched context. wait/nowaitCb/keep mirror registry.Get's parameters;
// see that package for their semantics.
func (b *Bot) Dispatch(
	ctx context.Context,
	ev event.Event,
	rl rule.Rule,
	wait bool,
	nowaitCb registry.NowaitFunc,
	keep bool,
	handler func(ctx context.Context) error,
) error {
	bypassed := false
	cb := nowaitCb
	if !wait {
		cb = func(ctx context.Context) error {
			bypassed = true
			if nowaitCb != nil {
				return nowaitCb(ctx)
			}
			return nil
		}
	}
	s, err := b.registry.Get(ctx, ev, rl, wait, cb, keep)
	if err != nil {
		b.recordOutcome(ctx, rl, "", audit.OutcomeErrored, err.Error())
		return err
	}
	if s == nil && bypassed {
		// A matching session was busy and wait was false; no handler runs
		// for this event.
		b.recordOutcome(ctx, rl, "", audit.OutcomeNowait, "")
		return nil
	}
	if s == nil {
		// A suspended session was woken directly; the handler that owns it
		// resumes on its own, there is nothing further to dispatch here.
		b.recordOutcome(ctx, rl, "", audit.OutcomeWoken, "")
		return nil
	}

	b.recordOutcome(ctx, rl, s.ID(), audit.OutcomeAttached, "")

	dctx := ctx
	dctx = botctx.WithBot(dctx, b)
	dctx = botctx.WithSession(dctx, s)
	dctx = botctx.WithEvent(dctx, ev)
	dctx = botctx.WithLogger(dctx, b.log.With("session_id", s.ID()))

	return handler(dctx)
}

func (b *Bot) recordOutcome(ctx context.Context, rl rule.Rule, sessionID string, outcome audit.Outcome, detail string) {
	if b.audit == nil {
		return
	}
	b.audit.Record(ctx, audit.Event{
		RuleID:     ruleID(rl),
		SessionID:  sessionID,
		Outcome:    outcome,
		Detail:     detail,
		OccurredAt: time.Now(),
	})
}
