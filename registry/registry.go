// Package registry implements the per-rule session registry: given an
// inbound event and a rule, it finds (or creates, or blocks for, or wakes)
// the session that should handle it.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wiresprite/wiresprite/event"
	"github.com/wiresprite/wiresprite/rule"
	"github.com/wiresprite/wiresprite/session"
)

// Registry maps rules to their live sessions. The zero value is not ready
// for use; construct with New.
type Registry struct {
	log *slog.Logger

	mu      sync.Mutex // guards creation of buckets, not their contents
	buckets map[rule.Rule]*bucket
}

// New returns an empty Registry.
func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:     log.With("component", "registry"),
		buckets: make(map[rule.Rule]*bucket),
	}
}

type bucket struct {
	mu       sync.Mutex
	sessions map[*session.Session]struct{}
}

func (r *Registry) bucketFor(rl rule.Rule) *bucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[rl]
	if !ok {
		b = &bucket{sessions: make(map[*session.Session]struct{})}
		r.buckets[rl] = b
	}
	return b
}

func (b *bucket) snapshot(state session.State) []*session.Session {
	out := make([]*session.Session, 0, len(b.sessions))
	for s := range b.sessions {
		if s.State() == state {
			out = append(out, s)
		}
	}
	return out
}

func (b *bucket) add(s *session.Session) {
	b.sessions[s] = struct{}{}
}

func (b *bucket) remove(s *session.Session) {
	delete(b.sessions, s)
}

// Count returns the number of sessions currently tracked for rl (all
// non-Expired states — Expired sessions are never members, see invariant
// 3 in spec.md §4.4).
func (r *Registry) Count(rl rule.Rule) int {
	b := r.bucketFor(rl)
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// NowaitFunc is invoked in place of blocking when Get is called with
// wait=false and finds a matching session already Working.
type NowaitFunc func(ctx context.Context) error

// Get resolves ev against rl's sessions:
//
//  1. Suspended sessions are checked first; the first match is woken and
//     Get returns (nil, nil) — the handler that suspended it continues to
//     own it.
//  2. Spare sessions are checked next; the first match is bound to ev via
//     Work and returned.
//  3. Working sessions are checked last. If wait is false, the first
//     match invokes nowaitCb (if non-nil) and Get returns (nil, nil)
//     without blocking. If wait is true, Get blocks on that session's
//     refresh signal until it leaves Working, then re-evaluates: a woken
//     Suspended match or a bound Spare match return as above; an Expired
//     session is queued for removal and the scan continues; ctx
//     cancellation aborts the wait.
//  4. If nothing matches, any sessions observed Expired along the way are
//     removed and a new Spare-then-Working session is created and
//     returned.
//
// A nil rl always returns a fresh one-shot session (never registered).
//
// Rule comparisons run with the bucket lock released (two-phase scan: the
// candidate list is snapshotted under lock, compared outside it, then
// re-verified under lock before acting) so a slow or reentrant rule.Compare
// cannot stall every other event for the same rule; see DESIGN.md's Open
// Question #2.
func (r *Registry) Get(ctx context.Context, ev event.Event, rl rule.Rule, wait bool, nowaitCb NowaitFunc, keep bool) (*session.Session, error) {
	if rl == nil {
		return session.NewOneShot(ev, r.log), nil
	}

	b := r.bucketFor(rl)

	b.mu.Lock()
	for {
		if s, err, done := r.scanSuspended(ctx, b, rl, ev); done {
			return s, err
		}
		if s, err, done := r.scanSpare(ctx, b, rl, ev, keep); done {
			return s, err
		}

		s, err, done, restart := r.scanWorking(ctx, b, rl, ev, wait, nowaitCb, keep)
		if done {
			return s, err
		}
		if restart {
			continue
		}
		break
	}

	ns := session.New(ev, rl, keep, r.log)
	ns.SetOnExpire(func() {
		b.mu.Lock()
		b.remove(ns)
		b.mu.Unlock()
	})
	if err := ns.Work(ev); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	b.add(ns)
	b.mu.Unlock()
	r.log.Debug("created session", "session_id", ns.ID(), "event_id", ev.ID())
	return ns, nil
}

// scanSuspended must be called with b.mu held; it returns with b.mu held
// unless done is true, in which case it has already released it.
func (r *Registry) scanSuspended(ctx context.Context, b *bucket, rl rule.Rule, ev event.Event) (*session.Session, error, bool) {
	candidates := b.snapshot(session.Suspended)
	for _, s := range candidates {
		b.mu.Unlock()
		ok, err := rl.Compare(ctx, s.Event(), ev)
		b.mu.Lock()
		if err != nil {
			b.mu.Unlock()
			return nil, err, true
		}
		if !ok || s.State() != session.Suspended {
			continue
		}
		if err := s.Wakeup(ev); err != nil {
			b.mu.Unlock()
			return nil, err, true
		}
		b.mu.Unlock()
		r.log.Debug("woke suspended session", "session_id", s.ID(), "event_id", ev.ID())
		return nil, nil, true
	}
	return nil, nil, false
}

func (r *Registry) scanSpare(ctx context.Context, b *bucket, rl rule.Rule, ev event.Event, keep bool) (*session.Session, error, bool) {
	candidates := b.snapshot(session.Spare)
	for _, s := range candidates {
		b.mu.Unlock()
		ok, err := rl.Compare(ctx, s.Event(), ev)
		b.mu.Lock()
		if err != nil {
			b.mu.Unlock()
			return nil, err, true
		}
		if !ok || s.State() != session.Spare {
			continue
		}
		if err := s.Work(ev); err != nil {
			b.mu.Unlock()
			return nil, err, true
		}
		s.SetKeep(keep)
		b.mu.Unlock()
		r.log.Debug("attached spare session", "session_id", s.ID(), "event_id", ev.ID())
		return s, nil, true
	}
	return nil, nil, false
}

// scanWorking must be called with b.mu held and returns with it held
// unless done is true. restart tells the caller to re-run the whole Get
// loop from the top (a Working candidate resolved into a Suspended wakeup
// or a Spare attach belonging to a *different* session than the one we
// were examining would be surprising; in practice the candidate itself is
// the one that transitioned, so restart simply re-does the Suspended/Spare
// passes in case new sessions appeared while the lock was released).
func (r *Registry) scanWorking(ctx context.Context, b *bucket, rl rule.Rule, ev event.Event, wait bool, nowaitCb NowaitFunc, keep bool) (s *session.Session, err error, done bool, restart bool) {
	workings := b.snapshot(session.Working)
	var expired []*session.Session

	for _, cand := range workings {
		b.mu.Unlock()
		ok, cmpErr := rl.Compare(ctx, cand.Event(), ev)
		b.mu.Lock()
		if cmpErr != nil {
			b.mu.Unlock()
			return nil, cmpErr, true, false
		}
		if !ok {
			continue
		}
		if cand.State() != session.Working {
			// Raced with a concurrent transition; re-evaluate fresh. Lock
			// stays held: the Get loop's contract is "done=false => b.mu
			// held", regardless of restart.
			return nil, nil, false, true
		}

		if !wait {
			b.mu.Unlock()
			if nowaitCb != nil {
				if cbErr := nowaitCb(ctx); cbErr != nil {
					return nil, cbErr, true, false
				}
			}
			r.log.Debug("bypassed busy session (nowait)", "session_id", cand.ID(), "event_id", ev.ID())
			return nil, nil, true, false
		}

		refresh := cand.RefreshChan()
		b.mu.Unlock()

		select {
		case <-refresh:
		case <-ctx.Done():
			return nil, ctx.Err(), true, false
		}

		b.mu.Lock()
		switch cand.State() {
		case session.Expired:
			expired = append(expired, cand)
			continue
		case session.Suspended:
			if err := cand.Wakeup(ev); err != nil {
				b.mu.Unlock()
				return nil, err, true, false
			}
			for _, es := range expired {
				b.remove(es)
			}
			b.mu.Unlock()
			r.log.Debug("woke suspended session after backlog wait", "session_id", cand.ID())
			return nil, nil, true, false
		default: // Spare
			if err := cand.Work(ev); err != nil {
				b.mu.Unlock()
				return nil, err, true, false
			}
			cand.SetKeep(keep)
			for _, es := range expired {
				b.remove(es)
			}
			b.mu.Unlock()
			r.log.Debug("attached session after backlog wait", "session_id", cand.ID())
			return cand, nil, true, false
		}
	}

	for _, es := range expired {
		b.remove(es)
	}
	return nil, nil, false, false
}
