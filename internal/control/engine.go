// Package control is the facade over the control registry, the dual
// backing stores, and change notification.
//
// An Engine is an explicit object built by New and passed by reference;
// there is no package-level instance. Hosts hand New two live maps, one
// shared and one per entity, and the engine mutates them in place so the
// host's own references always see current state. Which of the two serves
// reads and writes is the active profile, switched at runtime by
// SwitchProfile and remembered across restarts through a reserved key on
// the entity store.
package control

import (
	"fmt"
	"sync"

	"github.com/dshills/prefkit/internal/control/hook"
	"github.com/dshills/prefkit/internal/control/notify"
	"github.com/dshills/prefkit/internal/control/registry"
	"github.com/dshills/prefkit/internal/control/store"
)

// UseAlternateScopeKey is the reserved root-level key on the entity store
// holding the active-profile flag. Resolve and Set pin this key to the
// entity store regardless of the active profile, and it never appears in
// exports.
const UseAlternateScopeKey = "useAlternateScope"

// Logger is the minimal logging surface the engine writes to. The
// application logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Engine resolves control values, routes writes, and coordinates profile
// switches. All methods are safe for concurrent use.
type Engine struct {
	mu sync.RWMutex

	reg    *registry.Registry
	global *store.Store
	entity *store.Store

	// active points at global or entity, per the profile flag.
	active *store.Store

	// session holds values for non-persistent and unregistered controls,
	// keyed by panel then control. Never written to a backing store.
	session map[string]map[string]any

	notifier *notify.Notifier
	hooks    *hook.Chain
	logger   Logger
}

// New builds an Engine over the two host-owned maps. Both maps are
// retained and mutated in place. The initially active store follows the
// reserved flag already present in entityData, so the profile choice
// survives restarts.
func New(reg *registry.Registry, globalData, entityData map[string]any, opts ...Option) *Engine {
	e := &Engine{
		reg:     reg,
		global:  store.New("global", globalData),
		entity:  store.New("entity", entityData),
		session: make(map[string]map[string]any),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.reg == nil {
		e.reg = registry.New()
	}
	if e.notifier == nil {
		e.notifier = notify.New()
	}
	if e.hooks == nil {
		e.hooks = hook.NewChain()
	}

	e.active = e.global
	if flag, ok := e.entity.GetRoot(UseAlternateScopeKey); ok {
		if use, isBool := flag.(bool); isBool && use {
			e.active = e.entity
		}
	}

	return e
}

// Registry returns the control registry.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Notifier returns the change notifier. Subscribe on it directly.
func (e *Engine) Notifier() *notify.Notifier { return e.notifier }

// Hooks returns the interception chain shared by all operations.
func (e *Engine) Hooks() *hook.Chain { return e.hooks }

// UseAlternate reports whether the per-entity store is currently active.
func (e *Engine) UseAlternate() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active == e.entity
}

// ActiveName names the active store ("global" or "entity") for logs and
// change sources.
func (e *Engine) ActiveName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active.Name()
}

// Resolve returns the effective value of a control. Pre-hooks may rewrite
// the keys before lookup. Resolution order: the reserved flag reads the
// entity store root; a session write wins for controls that do not
// persist; then the active store; then the descriptor default. Unknown
// controls resolve to nil. Resolve never fails.
func (e *Engine) Resolve(panelKey, controlKey string) any {
	inv := hook.Invocation{Op: hook.OpResolve, PanelKey: panelKey, ControlKey: controlKey}
	e.hooks.RunPre(hook.OpResolve, &inv)

	value := e.lookup(inv.PanelKey, inv.ControlKey)

	e.hooks.RunPost(hook.OpResolve, inv, value, nil)
	return value
}

func (e *Engine) lookup(panelKey, controlKey string) any {
	if controlKey == UseAlternateScopeKey {
		if v, ok := e.entity.GetRoot(UseAlternateScopeKey); ok {
			return v
		}
		return false
	}

	desc := e.reg.Get(panelKey, controlKey)

	e.mu.RLock()
	active := e.active
	if desc == nil || !desc.Persistent {
		if v, ok := e.session[panelKey][controlKey]; ok {
			e.mu.RUnlock()
			return v
		}
	}
	e.mu.RUnlock()

	if v, ok := active.Get(panelKey, controlKey); ok {
		return v
	}
	if desc != nil {
		return desc.Default
	}
	return nil
}

// ResolveBool resolves a control and asserts bool.
func (e *Engine) ResolveBool(panelKey, controlKey string) (bool, error) {
	v := e.Resolve(panelKey, controlKey)
	if v == nil {
		return false, ErrControlNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{PanelKey: panelKey, ControlKey: controlKey, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// ResolveNumber resolves a control as a float64, widening integer values
// hosts may have written directly.
func (e *Engine) ResolveNumber(panelKey, controlKey string) (float64, error) {
	v := e.Resolve(panelKey, controlKey)
	if v == nil {
		return 0, ErrControlNotFound
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, &TypeError{PanelKey: panelKey, ControlKey: controlKey, Expected: "number", Actual: typeName(v)}
	}
}

// ResolveString resolves a control and asserts string.
func (e *Engine) ResolveString(panelKey, controlKey string) (string, error) {
	v := e.Resolve(panelKey, controlKey)
	if v == nil {
		return "", ErrControlNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{PanelKey: panelKey, ControlKey: controlKey, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// Set writes a control value. Pre-hooks may rewrite the keys and the
// value. Controls whose descriptor persists write through to the active
// store and notify observers; non-persistent and unregistered controls
// live only in the session map. Set never fails; Validate on the registry
// is the separate gate for hosts that want one.
func (e *Engine) Set(panelKey, controlKey string, value any) {
	inv := hook.Invocation{Op: hook.OpSet, PanelKey: panelKey, ControlKey: controlKey, Value: value}
	e.hooks.RunPre(hook.OpSet, &inv)

	e.write(inv.PanelKey, inv.ControlKey, inv.Value)

	e.hooks.RunPost(hook.OpSet, inv, inv.Value, nil)
}

func (e *Engine) write(panelKey, controlKey string, value any) {
	if controlKey == UseAlternateScopeKey {
		e.entity.SetRoot(UseAlternateScopeKey, value)
		return
	}

	desc := e.reg.Get(panelKey, controlKey)

	if desc != nil && desc.Persistent {
		e.mu.RLock()
		active := e.active
		e.mu.RUnlock()

		old, _ := active.Get(panelKey, controlKey)
		active.Set(panelKey, controlKey, value)

		if desc.OnValueChange != nil {
			desc.OnValueChange(old, value)
		}
		e.notifier.NotifySet(panelKey, controlKey, old, value, active.Name())
		if e.logger != nil {
			e.logger.Debug("control set", "panel", panelKey, "control", controlKey, "store", active.Name())
		}
		return
	}

	e.mu.Lock()
	panel, ok := e.session[panelKey]
	if !ok {
		panel = make(map[string]any)
		e.session[panelKey] = panel
	}
	old := panel[controlKey]
	panel[controlKey] = value
	e.mu.Unlock()

	if desc != nil && desc.OnValueChange != nil {
		desc.OnValueChange(old, value)
	}
	e.notifier.NotifySet(panelKey, controlKey, old, value, "session")
}

// SwitchProfile selects which backing store is active. The flag is
// written to the entity store's reserved key first so the choice survives
// a crash, then the active pointer flips, then every registered refresh
// callback runs before SwitchProfile returns.
func (e *Engine) SwitchProfile(useAlternate bool) {
	inv := hook.Invocation{Op: hook.OpSwitchProfile, ControlKey: UseAlternateScopeKey, Value: useAlternate}
	e.hooks.RunPre(hook.OpSwitchProfile, &inv)
	if v, ok := inv.Value.(bool); ok {
		useAlternate = v
	}

	e.entity.SetRoot(UseAlternateScopeKey, useAlternate)

	e.mu.Lock()
	if useAlternate {
		e.active = e.entity
	} else {
		e.active = e.global
	}
	name := e.active.Name()
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.Info("profile switched", "active", name)
	}
	e.notifier.RefreshAll("switchProfile")
	e.hooks.RunPost(hook.OpSwitchProfile, inv, useAlternate, nil)
}

// ExportSnapshot returns a deep copy of the active store holding only
// exportable state: controls registered as non-persistent are filtered
// out, the reserved flag is removed, and panels left empty by the
// filtering are dropped.
func (e *Engine) ExportSnapshot() map[string]any {
	e.mu.RLock()
	active := e.active
	e.mu.RUnlock()

	snap := active.Snapshot()
	delete(snap, UseAlternateScopeKey)

	for panelKey, raw := range snap {
		panel, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for controlKey := range panel {
			if d := e.reg.Get(panelKey, controlKey); d != nil && !d.Persistent {
				delete(panel, controlKey)
			}
		}
		if len(panel) == 0 {
			delete(snap, panelKey)
		}
	}
	return snap
}

// Replace swaps the entire contents of the active store for settings as
// one unit, never a merge. When the entity store is active, the current
// reserved flag is re-injected into settings before the swap so it
// survives inside the same lock hold; the caller's map may gain that one
// key. The store keeps a deep copy. Refresh callbacks run after the
// swap.
func (e *Engine) Replace(settings map[string]any, source string) {
	e.mu.RLock()
	active := e.active
	e.mu.RUnlock()

	if active == e.entity {
		if flag, ok := e.entity.GetRoot(UseAlternateScopeKey); ok {
			settings[UseAlternateScopeKey] = flag
		}
	}
	active.Replace(settings)

	if e.logger != nil {
		e.logger.Info("store replaced", "store", active.Name(), "source", source)
	}
	e.notifier.RefreshAll(source)
}

// ReloadStore swaps the named store's contents for settings read back
// from the host's persistent copy. Unlike Replace, the reserved flag
// comes from settings itself: the persisted copy is the truth here, so
// an external edit of the entity file may flip the active profile.
// Refresh callbacks run after the swap.
func (e *Engine) ReloadStore(name string, settings map[string]any, source string) error {
	var target *store.Store
	switch name {
	case e.global.Name():
		target = e.global
	case e.entity.Name():
		target = e.entity
	default:
		return fmt.Errorf("unknown store %q", name)
	}

	target.Replace(settings)

	if target == e.entity {
		useAlternate := false
		if flag, ok := e.entity.GetRoot(UseAlternateScopeKey); ok {
			useAlternate, _ = flag.(bool)
		}
		e.mu.Lock()
		if useAlternate {
			e.active = e.entity
		} else {
			e.active = e.global
		}
		e.mu.Unlock()
	}

	if e.logger != nil {
		e.logger.Info("store reloaded", "store", name, "source", source)
	}
	e.notifier.RefreshAll(source)
	return nil
}

// StoreContents returns a deep copy of the named store ("global" or
// "entity"), reserved root keys included. Hosts persist this copy; it is
// never torn by concurrent writes.
func (e *Engine) StoreContents(name string) (map[string]any, error) {
	switch name {
	case e.global.Name():
		return e.global.Snapshot(), nil
	case e.entity.Name():
		return e.entity.Snapshot(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", name)
	}
}
