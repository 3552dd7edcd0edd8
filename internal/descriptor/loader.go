// Package descriptor loads control definitions from Lua scripts.
//
// A descriptor script is trusted local configuration, not an import blob,
// and it is the only place Lua runs in the engine. The script executes in
// a state with only the base, table, string, and math libraries opened,
// with the code-loading functions removed; it returns a table describing
// panels and their controls, which the loader registers. Value-change
// callbacks declared in the script are invoked through the same state.
//
//	return {
//	  panels = {
//	    {
//	      key = "sound",
//	      controls = {
//	        { key = "volume", type = "number", default = 50,
//	          min = 0, max = 100 },
//	        { key = "muted", type = "boolean", default = false,
//	          onValueChange = function(old, new) ... end },
//	      },
//	    },
//	  },
//	}
package descriptor

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/prefkit/internal/control/registry"
)

// Logger is the minimal logging surface the loader uses for callback
// failures, which have no error return path.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Loader evaluates descriptor scripts and registers the controls they
// declare. One Loader owns one Lua state; keep it alive as long as any
// registered callback may fire, then Close it.
type Loader struct {
	mu     sync.Mutex
	l      *lua.LState
	reg    *registry.Registry
	logger Logger
	closed bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger for callback failures.
func WithLogger(l Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// New creates a Loader registering into reg.
func New(reg *registry.Registry, opts ...Option) *Loader {
	l := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(l)
	lua.OpenTable(l)
	lua.OpenString(l)
	lua.OpenMath(l)

	// The base library includes code-loading entry points. Descriptor
	// scripts declare data and callbacks; they never load more code.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		l.SetGlobal(name, lua.LNil)
	}

	ld := &Loader{l: l, reg: reg}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Registry returns the registry the loader fills.
func (ld *Loader) Registry() *registry.Registry {
	return ld.reg
}

// LoadFile evaluates a descriptor script from disk and registers its
// controls.
func (ld *Loader) LoadFile(path string) error {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	if ld.closed {
		return ErrLoaderClosed
	}
	return ld.load(path, func() error { return ld.l.DoFile(path) })
}

// LoadString evaluates descriptor source held in memory. name labels the
// script in errors.
func (ld *Loader) LoadString(name, source string) error {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	if ld.closed {
		return ErrLoaderClosed
	}
	return ld.load(name, func() error { return ld.l.DoString(source) })
}

func (ld *Loader) load(name string, run func() error) error {
	top := ld.l.GetTop()
	defer ld.l.SetTop(top)

	if err := ld.withRecovery(run); err != nil {
		return fmt.Errorf("descriptor script %s: %w", name, err)
	}

	ret := ld.l.Get(top + 1)
	tree, ok := ret.(*lua.LTable)
	if !ok {
		return fmt.Errorf("%w: script %s returned %s, want table", ErrBadDescriptor, name, ret.Type())
	}
	return ld.registerTree(name, tree)
}

func (ld *Loader) withRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// registerTree builds every descriptor in the script before registering
// any of them, so a script that fails validation halfway registers
// nothing.
func (ld *Loader) registerTree(name string, tree *lua.LTable) error {
	panels, ok := tree.RawGetString("panels").(*lua.LTable)
	if !ok {
		return fmt.Errorf("%w: script %s has no panels list", ErrBadDescriptor, name)
	}

	var descs []registry.ControlDescriptor
	for i := 1; i <= panels.Len(); i++ {
		panel, ok := panels.RawGetInt(i).(*lua.LTable)
		if !ok {
			return fmt.Errorf("%w: script %s panel %d is not a table", ErrBadDescriptor, name, i)
		}
		built, err := ld.buildPanel(panel)
		if err != nil {
			return fmt.Errorf("script %s panel %d: %w", name, i, err)
		}
		descs = append(descs, built...)
	}

	seen := make(map[string]bool, len(descs))
	for _, desc := range descs {
		id := desc.PanelKey + "/" + desc.ControlKey
		if seen[id] || ld.reg.Has(desc.PanelKey, desc.ControlKey) {
			return fmt.Errorf("script %s control %s: %w", name, id, registry.ErrControlAlreadyRegistered)
		}
		seen[id] = true
	}

	for _, desc := range descs {
		if err := ld.reg.Register(desc); err != nil {
			return fmt.Errorf("script %s control %s/%s: %w", name, desc.PanelKey, desc.ControlKey, err)
		}
	}
	return nil
}

func (ld *Loader) buildPanel(panel *lua.LTable) ([]registry.ControlDescriptor, error) {
	panelKey, ok := tableString(panel, "key")
	if !ok {
		return nil, fmt.Errorf("%w: panel has no key", ErrBadDescriptor)
	}
	controls, ok := panel.RawGetString("controls").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: panel %s has no controls list", ErrBadDescriptor, panelKey)
	}

	descs := make([]registry.ControlDescriptor, 0, controls.Len())
	for i := 1; i <= controls.Len(); i++ {
		ctrl, ok := controls.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%w: panel %s control %d is not a table", ErrBadDescriptor, panelKey, i)
		}
		desc, err := ld.buildDescriptor(panelKey, ctrl)
		if err != nil {
			return nil, fmt.Errorf("panel %s control %d: %w", panelKey, i, err)
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

func (ld *Loader) buildDescriptor(panelKey string, ctrl *lua.LTable) (registry.ControlDescriptor, error) {
	var desc registry.ControlDescriptor
	desc.PanelKey = panelKey
	desc.Persistent = true

	key, ok := tableString(ctrl, "key")
	if !ok {
		return desc, fmt.Errorf("%w: control has no key", ErrBadDescriptor)
	}
	desc.ControlKey = key

	typeName, ok := tableString(ctrl, "type")
	if !ok {
		return desc, fmt.Errorf("%w: control %s has no type", ErrBadDescriptor, key)
	}
	ctrlType, err := registry.ParseControlType(typeName)
	if err != nil {
		return desc, fmt.Errorf("%w: control %s: %v", ErrBadDescriptor, key, err)
	}
	desc.Type = ctrlType

	if v := ctrl.RawGetString("default"); v != lua.LNil {
		desc.Default = luaToValue(v, make(map[*lua.LTable]bool))
	}
	if v, ok := ctrl.RawGetString("persistent").(lua.LBool); ok {
		desc.Persistent = bool(v)
	}
	if s, ok := tableString(ctrl, "description"); ok {
		desc.Description = s
	}
	if s, ok := tableString(ctrl, "scope"); ok {
		scope, err := registry.ParseControlScope(s)
		if err != nil {
			return desc, fmt.Errorf("%w: control %s: %v", ErrBadDescriptor, key, err)
		}
		desc.Scope = scope
	}
	if v, ok := ctrl.RawGetString("min").(lua.LNumber); ok {
		desc.Minimum = registry.MinValue(float64(v))
	}
	if v, ok := ctrl.RawGetString("max").(lua.LNumber); ok {
		desc.Maximum = registry.MaxValue(float64(v))
	}
	if s, ok := tableString(ctrl, "pattern"); ok {
		desc.Pattern = s
	}
	if t, ok := ctrl.RawGetString("enum").(*lua.LTable); ok {
		if values, ok := tableToValue(t, make(map[*lua.LTable]bool)).([]any); ok {
			desc.Enum = values
		}
	}
	if fn, ok := ctrl.RawGetString("onValueChange").(*lua.LFunction); ok {
		desc.OnValueChange = ld.wrapValueChange(panelKey, key, fn)
	}

	if desc.Default != nil {
		if err := desc.Validate(desc.Default); err != nil {
			return desc, fmt.Errorf("%w: control %s default: %v", ErrBadDescriptor, key, err)
		}
	}
	return desc, nil
}

// wrapValueChange adapts a Lua callback to the descriptor's Go signature.
// The callback shares the loader's state, so it serializes on the loader
// mutex and becomes a no-op once the loader is closed. Failures are
// logged; there is nowhere to return them.
func (ld *Loader) wrapValueChange(panelKey, controlKey string, fn *lua.LFunction) func(oldValue, newValue any) {
	return func(oldValue, newValue any) {
		ld.mu.Lock()
		defer ld.mu.Unlock()

		if ld.closed {
			return
		}

		err := ld.withRecovery(func() error {
			ld.l.Push(fn)
			ld.l.Push(valueToLua(ld.l, oldValue))
			ld.l.Push(valueToLua(ld.l, newValue))
			return ld.l.PCall(2, 0, nil)
		})
		if err != nil && ld.logger != nil {
			ld.logger.Error("onValueChange callback failed",
				"panel", panelKey, "control", controlKey, "error", err)
		}
	}
}

// Close releases the Lua state. Registered callbacks become no-ops.
func (ld *Loader) Close() {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	if ld.closed {
		return
	}
	ld.l.Close()
	ld.closed = true
}

func tableString(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}
