package state

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"faceswap/internal/services"
)

// Scope names a Configuration Store namespace.
type Scope string

const (
	ScopeCLI Scope = "cli"
	ScopeUI  Scope = "ui"
)

// ParseScope maps a string onto a Scope, falling back to ScopeCLI for
// anything unrecognised.
func ParseScope(value string) Scope {
	switch Scope(strings.ToLower(strings.TrimSpace(value))) {
	case ScopeUI:
		return ScopeUI
	default:
		return ScopeCLI
	}
}

// ScopeFromContext classifies the invocation origin carried by ctx.
// Missing or unknown origins resolve to ScopeCLI.
func ScopeFromContext(ctx context.Context) Scope {
	origin, ok := services.AppContextFromContext(ctx)
	if !ok {
		return ScopeCLI
	}
	return ParseScope(origin)
}

// WithScope annotates ctx with the invocation origin.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return services.WithAppContext(ctx, string(scope))
}

type unsetValue struct{}

func (unsetValue) String() string { return "<unset>" }

// Unset is returned by Get for keys that were never written in a scope.
var Unset any = unsetValue{}

// IsUnset reports whether v is the Unset sentinel.
func IsUnset(v any) bool {
	_, ok := v.(unsetValue)
	return ok
}

// Store holds key/value entries per scope. The zero value is not usable;
// construct with New.
type Store struct {
	mu     sync.RWMutex
	values map[Scope]map[string]any
}

// New constructs an empty Store.
func New() *Store {
	return &Store{values: map[Scope]map[string]any{
		ScopeCLI: {},
		ScopeUI:  {},
	}}
}

// Scope returns a view bound to the given namespace.
func (s *Store) Scope(scope Scope) *View {
	return &View{store: s, scope: ParseScope(string(scope))}
}

// For returns a view bound to the namespace detected from ctx.
func (s *Store) For(ctx context.Context) *View {
	return s.Scope(ScopeFromContext(ctx))
}

// Init sets key to def in the context's scope only when it is unset.
func (s *Store) Init(ctx context.Context, key string, def any) bool {
	return s.For(ctx).Init(key, def)
}

// Get reads key from the context's scope.
func (s *Store) Get(ctx context.Context, key string) any {
	return s.For(ctx).Get(key)
}

// Set overwrites key in the context's scope.
func (s *Store) Set(ctx context.Context, key string, value any) {
	s.For(ctx).Set(key, value)
}

// View is a Store bound to one scope. It is the explicit configuration
// context handed to job creation and pipeline execution.
type View struct {
	store *Store
	scope Scope
}

// Scope reports the namespace of this view.
func (v *View) Scope() Scope { return v.scope }

// Init writes def when key is unset and reports whether it did.
func (v *View) Init(key string, def any) bool {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	bucket := v.store.values[v.scope]
	if _, ok := bucket[key]; ok {
		return false
	}
	bucket[key] = cloneValue(def)
	return true
}

// Get returns the stored value or Unset. An explicit nil is a stored value.
func (v *View) Get(key string) any {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	value, ok := v.store.values[v.scope][key]
	if !ok {
		return Unset
	}
	return cloneValue(value)
}

// Lookup returns the stored value and whether the key is set.
func (v *View) Lookup(key string) (any, bool) {
	value := v.Get(key)
	if IsUnset(value) {
		return nil, false
	}
	return value, true
}

// Set overwrites key unconditionally.
func (v *View) Set(key string, value any) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	v.store.values[v.scope][key] = cloneValue(value)
}

// Delete returns key to the Unset state.
func (v *View) Delete(key string) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	delete(v.store.values[v.scope], key)
}

// Keys lists the set keys in sorted order.
func (v *View) Keys() []string {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	keys := make([]string, 0, len(v.store.values[v.scope]))
	for key := range v.store.values[v.scope] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot copies every set entry of the scope.
func (v *View) Snapshot() map[string]any {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	out := make(map[string]any, len(v.store.values[v.scope]))
	for key, value := range v.store.values[v.scope] {
		out[key] = cloneValue(value)
	}
	return out
}

// String returns the value as a string when it is one.
func (v *View) String(key string) (string, bool) {
	value, ok := v.Get(key).(string)
	return value, ok
}

// Bool returns the value as a bool when it is one.
func (v *View) Bool(key string) (bool, bool) {
	value, ok := v.Get(key).(bool)
	return value, ok
}

// Int returns the value as an int when it holds an integer type.
func (v *View) Int(key string) (int, bool) {
	switch value := v.Get(key).(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	default:
		return 0, false
	}
}

// Strings returns the value as a string list when it is one.
func (v *View) Strings(key string) ([]string, bool) {
	value, ok := v.Get(key).([]string)
	return value, ok
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case []string:
		return slices.Clone(typed)
	case []int:
		return slices.Clone(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = cloneValue(item)
		}
		return out
	case map[string]string:
		return maps.Clone(typed)
	default:
		return value
	}
}
