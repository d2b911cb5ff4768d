package inject

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/wiresprite/wiresprite/botctx"
	"github.com/wiresprite/wiresprite/coreerr"
	"github.com/wiresprite/wiresprite/event"
	"github.com/wiresprite/wiresprite/rule"
	"github.com/wiresprite/wiresprite/session"
)

// Hint identifies which contextual value a dependency field resolves to.
type Hint int

const (
	HintLogger Hint = iota
	HintStore
	HintRule
	HintBot
	HintAdapter
	HintEvent
)

func (h Hint) String() string {
	switch h {
	case HintLogger:
		return "logger"
	case HintStore:
		return "store"
	case HintRule:
		return "rule"
	case HintBot:
		return "bot"
	case HintAdapter:
		return "adapter"
	case HintEvent:
		return "event"
	default:
		return "unknown"
	}
}

var tagHints = map[string]Hint{
	"logger":  HintLogger,
	"store":   HintStore,
	"rule":    HintRule,
	"bot":     HintBot,
	"adapter": HintAdapter,
	"event":   HintEvent,
}

var (
	loggerType  = reflect.TypeOf((*slog.Logger)(nil))
	storeType   = reflect.TypeOf((*session.Store)(nil))
	ruleType    = reflect.TypeOf((*rule.Rule)(nil)).Elem()
	botType     = reflect.TypeOf((*botctx.Bot)(nil)).Elem()
	adapterType = reflect.TypeOf((*botctx.Adapter)(nil)).Elem()
	eventType   = reflect.TypeOf((*event.Event)(nil)).Elem()
)

// resolveHintForType decides which Hint a field belongs to, preferring an
// explicit `inject:"..."` tag over type inference. ok is false when the
// field is neither tagged nor of a recognized injectable type; Wrap rejects
// such a field, so a field the caller fills itself must be tagged
// `inject:"-"`.
func resolveHintForType(t reflect.Type, tag string) (Hint, bool, error) {
	if tag != "" {
		h, ok := tagHints[tag]
		if !ok {
			return 0, false, fmt.Errorf("%w: unknown inject tag %q", coreerr.ErrDependencyInit, tag)
		}
		return h, true, nil
	}
	switch t {
	case loggerType:
		return HintLogger, true, nil
	case storeType:
		return HintStore, true, nil
	case ruleType:
		return HintRule, true, nil
	case botType:
		return HintBot, true, nil
	case adapterType:
		return HintAdapter, true, nil
	case eventType:
		return HintEvent, true, nil
	default:
		return 0, false, nil
	}
}

// defaultResolve pulls a Hint's value from ctx. present=false means the
// value simply isn't available right now (e.g. HintStore with no session
// pushed) — not an error, but the caller will turn it into
// DependencyNotMatched if the field required a value.
func defaultResolve(h Hint, ctx context.Context) (val any, present bool, err error) {
	switch h {
	case HintLogger:
		return botctx.LoggerFrom(ctx), true, nil
	case HintStore:
		s, ok := botctx.SessionFrom(ctx)
		if !ok {
			return nil, false, nil
		}
		return s.Store(), true, nil
	case HintRule:
		s, ok := botctx.SessionFrom(ctx)
		if !ok || s.Rule() == nil {
			return nil, false, nil
		}
		return s.Rule(), true, nil
	case HintBot:
		b, ok := botctx.BotFrom(ctx)
		if !ok {
			return nil, false, nil
		}
		return b, true, nil
	case HintAdapter:
		a, ok := botctx.AdapterFrom(ctx)
		if !ok {
			return nil, false, nil
		}
		return a, true, nil
	case HintEvent:
		ev, ok := botctx.EventFrom(ctx)
		if !ok {
			return nil, false, nil
		}
		return ev, true, nil
	default:
		return nil, false, nil
	}
}

type wrapConfig struct {
	explicit map[string]depends
	override map[Hint]func(ctx context.Context) (any, bool, error)
}

// Option configures a single Wrap call.
type Option func(*wrapConfig)

// WithDepends binds an explicit Depends to the named struct field,
// overriding both tag- and type-based auto resolution for that field.
func WithDepends[T any](fieldName string, d *Depends[T]) Option {
	return func(c *wrapConfig) { c.explicit[fieldName] = d }
}

// WithOverride replaces the default resolver for every field of the given
// Hint kind in this Wrap call. This is the Go realization of Python's
// per-parameter Exclude/CustomLogger metadata: Go cannot attach metadata
// to one parameter, so the override applies at Hint granularity instead.
func WithOverride(h Hint, resolve func(ctx context.Context) (any, bool, error)) Option {
	return func(c *wrapConfig) { c.override[h] = resolve }
}

type fieldPlan struct {
	index   []int
	hint    Hint
	fromTag bool
	dep     depends
}

// Wrap inspects D's exported fields once, resolving each to a Hint (or an
// explicit Depends supplied via WithDepends), and returns a handler that
// builds a fresh D and calls fn with it on every invocation. Construction
// errors (an unresolvable field, an unknown tag) are returned immediately,
// matching Python's decoration-time DependInitError; per-call resolution
// failures surface as coreerr.DependencyNotMatched from the returned
// function.
func Wrap[D any, R any](fn func(ctx context.Context, deps D) (R, error), opts ...Option) (func(ctx context.Context) (R, error), error) {
	cfg := &wrapConfig{
		explicit: make(map[string]depends),
		override: make(map[Hint]func(context.Context) (any, bool, error)),
	}
	for _, o := range opts {
		o(cfg)
	}

	var zero D
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: dependency type must be a struct", coreerr.ErrDependencyInit)
	}

	var plans []fieldPlan
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("inject")
		if tag == "-" {
			continue
		}
		if dep, ok := cfg.explicit[f.Name]; ok {
			plans = append(plans, fieldPlan{index: f.Index, dep: dep})
			continue
		}
		hint, ok, err := resolveHintForType(f.Type, tag)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: field %s of type %s is not injectable (tag it `inject:\"-\"` to leave it to the caller)", coreerr.ErrDependencyInit, f.Name, f.Type)
		}
		plans = append(plans, fieldPlan{index: f.Index, hint: hint, fromTag: tag != ""})
	}

	return func(ctx context.Context) (R, error) {
		var zeroR R
		ctx = WithScope(ctx)

		depsVal := reflect.New(t).Elem()
		for _, p := range plans {
			field := depsVal.FieldByIndex(p.index)
			var val any
			var err error

			if p.dep != nil {
				val, err = p.dep.getAny(ctx)
			} else {
				resolve := cfg.override[p.hint]
				if resolve == nil {
					resolve = func(ctx context.Context) (any, bool, error) {
						return defaultResolve(p.hint, ctx)
					}
				}
				var present bool
				val, present, err = resolve(ctx)
				if err == nil && !present {
					argName := ""
					if fi, ferr := t.FieldByIndexErr(p.index); ferr == nil {
						argName = fi.Name
					}
					return zeroR, &coreerr.DependencyNotMatched{
						FuncName: fmt.Sprintf("%T", fn),
						ArgName:  argName,
						RealType: "<absent>",
						Hint:     p.hint.String(),
					}
				}
			}
			if err != nil {
				return zeroR, err
			}

			rv := reflect.ValueOf(val)
			if val == nil || !rv.Type().AssignableTo(field.Type()) {
				argName := ""
				if fi, ferr := t.FieldByIndexErr(p.index); ferr == nil {
					argName = fi.Name
				}
				realType := "<nil>"
				if val != nil {
					realType = rv.Type().String()
				}
				return zeroR, &coreerr.DependencyNotMatched{
					FuncName: fmt.Sprintf("%T", fn),
					ArgName:  argName,
					RealType: realType,
					Hint:     p.hint.String(),
				}
			}
			field.Set(rv)
		}

		return fn(ctx, depsVal.Interface().(D))
	}, nil
}
