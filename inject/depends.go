// Package inject implements the dependency injector: resolving contextual
// values (logger, session store, rule, bot, adapter, event) and explicit
// factories into the fields of a handler's declared dependency struct.
//
// Go has no per-parameter annotation metadata the way Python's
// Annotated[...] does, and reflect cannot recover plain function parameter
// names. Handlers therefore declare their dependencies as a plain struct
// whose exported fields are resolved by declared Go type (or by an
// `inject:"..."` struct tag when the type alone is ambiguous) — the
// idiomatic Go analogue of Python's per-parameter type-annotation
// inspection, substituting named, taggable struct fields for keyword
// parameters. See DESIGN.md's Open Question ledger.
package inject

import (
	"context"
	"sync"
)

// depends is the type-erased interface every *Depends[T] satisfies, used
// internally so Wrap can hold heterogeneous explicit dependencies in one
// map without reflect.Call.
type depends interface {
	getAny(ctx context.Context) (any, error)
}

type scopeKeyT struct{}

// scopeFrom returns the per-call dedup scope carried on ctx, or nil if
// none has been installed (calls to Depends.Get outside a Wrap-built
// handler simply skip dedup).
func scopeFrom(ctx context.Context) map[depends]any {
	m, _ := ctx.Value(scopeKeyT{}).(map[depends]any)
	return m
}

// WithScope installs a fresh per-call dependency scope on ctx. Wrap calls
// this once per invocation; exported so callers composing their own
// resolution pipelines outside Wrap can opt into the same dedup behavior.
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKeyT{}, make(map[depends]any))
}

// Depends is an explicit dependency factory: a function of ctx producing a
// T, optionally cached across every call that ever resolves it (cache)
// rather than only within a single Wrap invocation's scope.
type Depends[T any] struct {
	fn    func(ctx context.Context) (T, error)
	cache bool

	mu        sync.Mutex
	cached    T
	hasCached bool
}

// DependsOption configures a Depends at construction time.
type DependsOption func(*dependsConfig)

type dependsConfig struct {
	cache bool
}

// Cached marks the dependency as resolved at most once for its entire
// lifetime (persisting across calls), matching Depends(cache=True) in the
// original design.
func Cached() DependsOption {
	return func(c *dependsConfig) { c.cache = true }
}

// NewDepends builds an explicit dependency from fn.
func NewDepends[T any](fn func(ctx context.Context) (T, error), opts ...DependsOption) *Depends[T] {
	cfg := &dependsConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return &Depends[T]{fn: fn, cache: cfg.cache}
}

// Get resolves the dependency, applying per-call scope dedup (if ctx
// carries one, installed by WithScope or by Wrap) and the persistent cache
// (if configured with Cached()).
func (d *Depends[T]) Get(ctx context.Context) (T, error) {
	if scope := scopeFrom(ctx); scope != nil {
		if v, ok := scope[d]; ok {
			return v.(T), nil
		}
	}

	var val T
	var err error
	if d.cache {
		d.mu.Lock()
		if d.hasCached {
			val = d.cached
			d.mu.Unlock()
		} else {
			val, err = d.fn(ctx)
			if err == nil {
				d.cached = val
				d.hasCached = true
			}
			d.mu.Unlock()
		}
	} else {
		val, err = d.fn(ctx)
	}

	if err != nil {
		var zero T
		return zero, err
	}
	if scope := scopeFrom(ctx); scope != nil {
		scope[d] = val
	}
	return val, nil
}

func (d *Depends[T]) getAny(ctx context.Context) (any, error) {
	return d.Get(ctx)
}

// Map derives a new Depends[S] from an existing Depends[T] by applying f to
// its resolved value — the Go analogue of Depends(dep, sub_getter=...).
func Map[T, S any](d *Depends[T], f func(T) (S, error)) *Depends[S] {
	return NewDepends(func(ctx context.Context) (S, error) {
		v, err := d.Get(ctx)
		if err != nil {
			var zero S
			return zero, err
		}
		return f(v)
	})
}
