package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrControlAlreadyRegistered is returned when a panel already holds a
// control with the same key.
var ErrControlAlreadyRegistered = errors.New("control already registered")

// Registry maintains all known control definitions, grouped by panel.
type Registry struct {
	mu     sync.RWMutex
	panels map[string]map[string]*ControlDescriptor
}

// New creates an empty control registry.
func New() *Registry {
	return &Registry{
		panels: make(map[string]map[string]*ControlDescriptor),
	}
}

// Register adds a control definition.
// Returns an error if the panel already has a control with the same key.
func (r *Registry) Register(desc ControlDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	panel, ok := r.panels[desc.PanelKey]
	if !ok {
		panel = make(map[string]*ControlDescriptor)
		r.panels[desc.PanelKey] = panel
	}
	if _, exists := panel[desc.ControlKey]; exists {
		return fmt.Errorf("%w: %s/%s", ErrControlAlreadyRegistered, desc.PanelKey, desc.ControlKey)
	}

	d := &desc // Copy to heap
	panel[desc.ControlKey] = d
	return nil
}

// MustRegister registers a control and panics on error.
// Useful for registering built-in controls at init time.
func (r *Registry) MustRegister(desc ControlDescriptor) {
	if err := r.Register(desc); err != nil {
		panic(err)
	}
}

// Get returns the descriptor for the given panel and control.
// Returns nil if no such control is registered.
func (r *Registry) Get(panelKey, controlKey string) *ControlDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.panels[panelKey][controlKey]
}

// Has checks if a control is registered.
func (r *Registry) Has(panelKey, controlKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.panels[panelKey][controlKey]
	return exists
}

// Persistent reports whether the control exists and persists its value.
func (r *Registry) Persistent(panelKey, controlKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d := r.panels[panelKey][controlKey]
	return d != nil && d.Persistent
}

// Default returns the default value for a control.
// Returns nil if the control is not registered.
func (r *Registry) Default(panelKey, controlKey string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.panels[panelKey][controlKey]; ok {
		return d.Default
	}
	return nil
}

// Panel returns all controls in a panel sorted by control key.
func (r *Registry) Panel(panelKey string) []*ControlDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	controls := r.panels[panelKey]
	result := make([]*ControlDescriptor, 0, len(controls))
	for _, d := range controls {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ControlKey < result[j].ControlKey
	})
	return result
}

// Panels returns all panel names sorted.
func (r *Registry) Panels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.panels))
	for name := range r.panels {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// All returns every registered descriptor sorted by panel then control key.
func (r *Registry) All() []*ControlDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*ControlDescriptor
	for _, panel := range r.panels {
		for _, d := range panel {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PanelKey != result[j].PanelKey {
			return result[i].PanelKey < result[j].PanelKey
		}
		return result[i].ControlKey < result[j].ControlKey
	})
	return result
}

// Validate checks if a value is valid for a control. Unknown controls
// validate successfully; hosts may carry store keys this registry has
// never heard of.
func (r *Registry) Validate(panelKey, controlKey string, value any) error {
	r.mu.RLock()
	d := r.panels[panelKey][controlKey]
	r.mu.RUnlock()

	if d == nil {
		return nil
	}
	return d.Validate(value)
}
