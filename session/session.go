// Package session implements the Session type and its state machine: the
// Spare/Working/Suspended/Expired lifecycle a conversation occupies while
// it is routed through the registry.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wiresprite/wiresprite/coreerr"
	"github.com/wiresprite/wiresprite/event"
	"github.com/wiresprite/wiresprite/rule"
)

// Session is a stateful binding between a rule-matched stream of events and
// the handler(s) that process them. The zero value is not usable;
// construct with New or NewOneShot.
type Session struct {
	id  string
	log *slog.Logger

	mu        sync.Mutex
	event     event.Event
	rule      rule.Rule
	store     *Store
	state     State
	keep      bool
	refreshCh chan struct{}
	wakeupCh  chan struct{}

	// onExpire, if set, is invoked (without s.mu held) the first time the
	// session transitions to Expired. The registry uses this to enforce
	// the "member iff state in {Working,Spare,Suspended}" invariant
	// immediately rather than only on the next lazy scan.
	onExpire func()
}

// New creates a Spare session bound to the given rule, ready to be handed
// an event via Work.
func New(ev event.Event, rl rule.Rule, keep bool, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	id := uuid.NewString()
	s := &Session{
		id:        id,
		log:       log.With("component", "session", "session_id", id),
		event:     ev,
		rule:      rl,
		store:     newStore(),
		state:     Spare,
		keep:      keep,
		refreshCh: make(chan struct{}),
		wakeupCh:  make(chan struct{}),
	}
	return s
}

// NewOneShot creates a session with no rule, immediately Working and bound
// to ev. Per invariant, a ruleless session is never a registry member and
// only ever transitions Working -> Expired.
func NewOneShot(ev event.Event, log *slog.Logger) *Session {
	s := New(ev, nil, false, log)
	s.state = Working
	return s
}

// ID returns the session's opaque identifier, used for logging only.
func (s *Session) ID() string { return s.id }

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Event returns the event currently bound to the session.
func (s *Session) Event() event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.event
}

// Rule returns the session's rule, or nil for a one-shot session.
func (s *Session) Rule() rule.Rule {
	return s.rule
}

// Store returns the session's key/value store.
func (s *Session) Store() *Store {
	return s.store
}

// Keep reports whether the session should return to Spare (true) or
// Expired (false) when its handler finishes normally.
func (s *Session) Keep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keep
}

// SetKeep updates the keep flag; only meaningful while Working.
func (s *Session) SetKeep(keep bool) {
	s.mu.Lock()
	s.keep = keep
	s.mu.Unlock()
}

// SetOnExpire installs the registry's removal hook. Called once, by the
// registry, right after creating a session and before inserting it into its
// bucket.
func (s *Session) SetOnExpire(fn func()) {
	s.mu.Lock()
	s.onExpire = fn
	s.mu.Unlock()
}

func (s *Session) signalRefreshLocked() {
	close(s.refreshCh)
	s.refreshCh = make(chan struct{})
}

// RefreshChan returns the current refresh-notification channel, closed the
// next time the session departs Working. Callers should re-read this
// method after each observed close, since the channel is replaced.
func (s *Session) RefreshChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCh
}

// Work binds ev and transitions Spare -> Working.
func (s *Session) Work(ev event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Expired {
		return coreerr.NewInvalidSessionError("work")
	}
	if !isAllowed("work", s.state) {
		return coreerr.NewSessionStateError("work", s.state.String())
	}
	s.event = ev
	s.state = Working
	s.log.Debug("session bound to event", "event_id", ev.ID())
	return nil
}

// Rest transitions Working -> Spare, signalling refresh. Ruleless sessions
// cannot Rest (they only ever go Working -> Expired).
func (s *Session) Rest() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Expired {
		return coreerr.NewInvalidSessionError("rest")
	}
	if !isAllowed("rest", s.state) {
		return coreerr.NewSessionStateError("rest", s.state.String())
	}
	if s.rule == nil {
		return coreerr.NewSessionStateError("rest", "one-shot")
	}
	s.signalRefreshLocked()
	s.state = Spare
	s.log.Debug("session resting")
	return nil
}

// Suspend transitions Working -> Suspended, signals refresh so any backlog
// waiter on this session unblocks, then blocks the caller until Wakeup is
// called, timeout elapses (timeout <= 0 means wait indefinitely), or ctx is
// cancelled. It reports true if woken, false on timeout.
func (s *Session) Suspend(ctx context.Context, timeout time.Duration) (bool, error) {
	s.mu.Lock()
	if s.state == Expired {
		s.mu.Unlock()
		return false, coreerr.NewInvalidSessionError("suspend")
	}
	if !isAllowed("suspend", s.state) {
		s.mu.Unlock()
		return false, coreerr.NewSessionStateError("suspend", s.state.String())
	}
	if s.rule == nil {
		s.mu.Unlock()
		return false, coreerr.NewSessionStateError("suspend", "one-shot")
	}
	s.signalRefreshLocked()
	s.state = Suspended
	wake := s.wakeupCh
	s.log.Debug("session suspended", "timeout", timeout)
	s.mu.Unlock()

	if timeout <= 0 {
		select {
		case <-wake:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-wake:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Wakeup rebinds ev and transitions Suspended -> Working.
func (s *Session) Wakeup(ev event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Expired {
		return coreerr.NewInvalidSessionError("wakeup")
	}
	if !isAllowed("wakeup", s.state) {
		return coreerr.NewSessionStateError("wakeup", s.state.String())
	}
	s.event = ev
	close(s.wakeupCh)
	s.wakeupCh = make(chan struct{})
	s.state = Working
	s.log.Debug("session woken", "event_id", ev.ID())
	return nil
}

// Expire forces the session to Expired from any non-Expired state. It is a
// no-op if already Expired. Departing Working while ruled signals refresh,
// per the invariant that refresh_cond fires on every departure from
// Working.
func (s *Session) Expire() error {
	s.mu.Lock()
	if s.state == Expired {
		s.mu.Unlock()
		return nil
	}
	if s.state == Working && s.rule != nil {
		s.signalRefreshLocked()
	}
	s.state = Expired
	s.store.Clear()
	hook := s.onExpire
	s.mu.Unlock()

	s.log.Debug("session expired")
	if hook != nil {
		hook()
	}
	return nil
}

// Destroy forces the session to Expired regardless of its current state
// and removes it from its registry bucket, the same way Expire does, but
// is callable from any state including ones where plain Expire would
// reject the call outright (there are none today, since allowedFrom's
// expire set already covers every non-Expired state — Destroy exists as
// the explicit, always-legal teardown entry point callers reach for
// instead of relying on expire's table to stay permissive).
func (s *Session) Destroy() error {
	return s.Expire()
}

// Leave releases a session at the end of a handler's scope, per the
// context-exit discipline described in spec.md §5. If cause indicates the
// surrounding context was cancelled while the session is Suspended, it is
// woken first (with its own last-bound event) so nothing is left blocked
// forever; it is then transitioned to Spare (if Keep) or Expired.
func (s *Session) Leave(cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		if s.State() == Suspended {
			if err := s.Wakeup(s.Event()); err != nil {
				return err
			}
		}
	}
	if s.Keep() {
		return s.Rest()
	}
	return s.Expire()
}
