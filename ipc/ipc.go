// Package ipc implements the plugin share registry: named values a plugin
// exposes for other plugins to read (and, unless static, write), guarded
// for concurrent access. Grounded on
// _examples/original_source/src/melobot/plugin/ipc.py's AsyncShare /
// SyncShare / IPCManager. Python keeps a sync and an async share type
// side by side because its reflector/callback functions may themselves be
// sync or async; Go has no such distinction; every Share[T] here is driven
// through context.Context and collapses both into one generic type.
package ipc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wiresprite/wiresprite/concurrency"
	"github.com/wiresprite/wiresprite/coreerr"
)

// Share is a named, typed value one plugin exposes to others. Reads run
// under concurrency.RWContext's read guard (any number concurrently);
// writes run under its write guard (exclusive).
type Share[T any] struct {
	name   string
	static bool
	rw     *concurrency.RWContext

	mu       sync.Mutex
	reflect  func(ctx context.Context) (T, error)
	callback func(ctx context.Context, val T) error
}

// NewShare creates a share named name. Names starting with "_" are
// reserved and rejected, matching the original's convention for
// internal-only identifiers. A static share may never have a setter bound.
func NewShare[T any](name string, static bool) (*Share[T], error) {
	if strings.HasPrefix(name, "_") {
		return nil, fmt.Errorf("%w: share name %q must not start with \"_\"", coreerr.ErrIPC, name)
	}
	return &Share[T]{name: name, static: static, rw: concurrency.NewRWContext(0)}, nil
}

// Name returns the share's identifier.
func (s *Share[T]) Name() string { return s.name }

// BindReflector attaches the function used to produce the share's current
// value. It may be bound at most once.
func (s *Share[T]) BindReflector(fn func(ctx context.Context) (T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reflect != nil {
		return fmt.Errorf("%w: share %q already has a reflector bound", coreerr.ErrIPC, s.name)
	}
	s.reflect = fn
	return nil
}

// BindSetter attaches the function used to update the share's value. Fails
// on a static share, or if a setter is already bound.
func (s *Share[T]) BindSetter(fn func(ctx context.Context, val T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.static {
		return fmt.Errorf("%w: share %q is static and cannot bind a setter", coreerr.ErrIPC, s.name)
	}
	if s.callback != nil {
		return fmt.Errorf("%w: share %q already has a setter bound", coreerr.ErrIPC, s.name)
	}
	s.callback = fn
	return nil
}

// Get reads the share's current value through the read guard.
func (s *Share[T]) Get(ctx context.Context) (T, error) {
	var zero T
	s.mu.Lock()
	fn := s.reflect
	s.mu.Unlock()
	if fn == nil {
		return zero, fmt.Errorf("%w: share %q has no reflector bound", coreerr.ErrIPC, s.name)
	}

	release, err := s.rw.Read(ctx)
	if err != nil {
		return zero, err
	}
	defer release()
	return fn(ctx)
}

// Set updates the share's value through the write guard.
func (s *Share[T]) Set(ctx context.Context, val T) error {
	s.mu.Lock()
	fn := s.callback
	s.mu.Unlock()
	if fn == nil {
		return fmt.Errorf("%w: share %q has no setter bound", coreerr.ErrIPC, s.name)
	}

	release, err := s.rw.Write(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, val)
}

// handle is the type-erased form every *Share[T] satisfies, letting
// Manager hold shares of different T in one registry the way the
// original's dict[str, AsyncShare | SyncShare] does. The admin* methods
// back the admin surface's shares get/set endpoints, which only ever
// speak strings over HTTP regardless of a share's underlying T.
type handle interface {
	Name() string
	adminGet(ctx context.Context) (string, error)
	adminSet(ctx context.Context, value string) error
}

func (s *Share[T]) adminGet(ctx context.Context) (string, error) {
	val, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(val), nil
}

func (s *Share[T]) adminSet(ctx context.Context, value string) error {
	typed, ok := any(value).(T)
	if !ok {
		return fmt.Errorf("%w: share %q does not accept string values over the admin surface", coreerr.ErrIPC, s.name)
	}
	return s.Set(ctx, typed)
}

// Manager is the per-bot registry of plugin shares: plugin name -> share
// name -> share.
type Manager struct {
	mu     sync.Mutex
	shares map[string]map[string]handle
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{shares: make(map[string]map[string]handle)}
}

// Add registers sh under plugin. Fails if plugin already has a share with
// that name.
func Add[T any](m *Manager, plugin string, sh *Share[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.shares[plugin]
	if !ok {
		objs = make(map[string]handle)
		m.shares[plugin] = objs
	}
	if _, exists := objs[sh.Name()]; exists {
		return fmt.Errorf("%w: plugin %q already has a share named %q", coreerr.ErrIPC, plugin, sh.Name())
	}
	objs[sh.Name()] = sh
	return nil
}

// AddFunc registers a static, read-only share that calls fn on every Get —
// the Go analogue of IPCManager.add_func, which wraps a plain function as
// a static SyncShare.
func AddFunc[T any](m *Manager, plugin, name string, fn func(ctx context.Context) (T, error)) error {
	sh, err := NewShare[T](name, true)
	if err != nil {
		return err
	}
	if err := sh.BindReflector(fn); err != nil {
		return err
	}
	return Add(m, plugin, sh)
}

// Get returns the share registered under plugin/name, type-asserted to
// *Share[T]. It fails if the plugin offers no shares, the name is
// unknown, or the stored share is not a Share[T].
func Get[T any](m *Manager, plugin, name string) (*Share[T], error) {
	m.mu.Lock()
	objs, ok := m.shares[plugin]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: plugin %q offers no shares", coreerr.ErrIPC, plugin)
	}
	h, ok := objs[name]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no share named %q in plugin %q", coreerr.ErrIPC, name, plugin)
	}
	sh, ok := h.(*Share[T])
	if !ok {
		return nil, fmt.Errorf("%w: share %q in plugin %q is not of the requested type", coreerr.ErrIPC, name, plugin)
	}
	return sh, nil
}

// Descriptor names one registered share for enumeration purposes.
type Descriptor struct {
	Plugin string `json:"plugin"`
	Name   string `json:"name"`
}

// List returns every registered plugin/share pair, for admin-surface
// enumeration.
func (m *Manager) List() []Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Descriptor
	for plugin, objs := range m.shares {
		for name := range objs {
			out = append(out, Descriptor{Plugin: plugin, Name: name})
		}
	}
	return out
}

// GetString reads plugin/name's value as a string, whatever its
// underlying type, for the admin surface's shares get command.
func (m *Manager) GetString(ctx context.Context, plugin, name string) (string, error) {
	h, err := m.lookup(plugin, name)
	if err != nil {
		return "", err
	}
	return h.adminGet(ctx)
}

// SetString writes value to plugin/name, failing if the share's
// underlying type isn't string, for the admin surface's shares set
// command.
func (m *Manager) SetString(ctx context.Context, plugin, name, value string) error {
	h, err := m.lookup(plugin, name)
	if err != nil {
		return err
	}
	return h.adminSet(ctx, value)
}

func (m *Manager) lookup(plugin, name string) (handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.shares[plugin]
	if !ok {
		return nil, fmt.Errorf("%w: plugin %q offers no shares", coreerr.ErrIPC, plugin)
	}
	h, ok := objs[name]
	if !ok {
		return nil, fmt.Errorf("%w: no share named %q in plugin %q", coreerr.ErrIPC, name, plugin)
	}
	return h, nil
}
