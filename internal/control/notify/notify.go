// Package notify delivers value-change and refresh notifications to the
// UI layer.
//
// Delivery is synchronous and in registration order: the engine's contract
// is that visible state matches the stores the moment a profile switch or
// import commit returns, so callbacks run before the triggering call
// unwinds.
package notify

import (
	"sort"
	"sync"
)

// ChangeType represents the kind of notification.
type ChangeType int

const (
	// ChangeSet indicates a single control value was written.
	ChangeSet ChangeType = iota

	// ChangeRefresh indicates whole-store state changed (profile switch,
	// import commit) and panels must re-read their values.
	ChangeRefresh
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Change describes one notification event.
type Change struct {
	// PanelKey and ControlKey locate the control for set events.
	// Empty for refresh events.
	PanelKey   string
	ControlKey string

	// Type is the kind of change.
	Type ChangeType

	// OldValue is the previous value (may be nil).
	OldValue any

	// NewValue is the new value.
	NewValue any

	// Source identifies what triggered the change ("set",
	// "switchProfile", "import").
	Source string
}

// Observer is called when a change occurs.
type Observer func(change Change)

// RefreshFunc is called when a panel must re-read its values.
type RefreshFunc func()

// Subscription represents an active registration.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages change observers and per-panel refresh callbacks.
type Notifier struct {
	mu sync.RWMutex

	// Global observers receive every change.
	globalObservers map[uint64]Observer

	// Control observers receive set events for one panel/control pair.
	controlObservers map[string]map[uint64]Observer

	// Refresh callbacks, one per live panel view.
	refreshFuncs map[uint64]refreshEntry

	nextID uint64
}

type refreshEntry struct {
	panelKey string
	fn       RefreshFunc
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{
		globalObservers:  make(map[uint64]Observer),
		controlObservers: make(map[string]map[uint64]Observer),
		refreshFuncs:     make(map[uint64]refreshEntry),
	}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeControl registers an observer for one control's set events.
func (n *Notifier) SubscribeControl(panelKey, controlKey string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	key := controlID(panelKey, controlKey)
	if n.controlObservers[key] == nil {
		n.controlObservers[key] = make(map[uint64]Observer)
	}
	n.controlObservers[key][id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeRefresh registers a refresh callback for a panel view.
func (n *Notifier) SubscribeRefresh(panelKey string, fn RefreshFunc) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.refreshFuncs[id] = refreshEntry{panelKey: panelKey, fn: fn}

	return &Subscription{id: id, notifier: n}
}

// NotifySet delivers a set event to global observers and the control's own
// observers.
func (n *Notifier) NotifySet(panelKey, controlKey string, oldValue, newValue any, source string) {
	change := Change{
		PanelKey:   panelKey,
		ControlKey: controlKey,
		Type:       ChangeSet,
		OldValue:   oldValue,
		NewValue:   newValue,
		Source:     source,
	}

	n.mu.RLock()
	observers := make([]Observer, 0, len(n.globalObservers)+4)
	for _, id := range sortedKeys(n.globalObservers) {
		observers = append(observers, n.globalObservers[id])
	}
	if ctrlObs, ok := n.controlObservers[controlID(panelKey, controlKey)]; ok {
		for _, id := range sortedKeys(ctrlObs) {
			observers = append(observers, ctrlObs[id])
		}
	}
	n.mu.RUnlock()

	// Call observers outside the lock.
	for _, obs := range observers {
		obs(change)
	}
}

// RefreshAll synchronously invokes every refresh callback in registration
// order, then informs global observers with a single refresh change.
func (n *Notifier) RefreshAll(source string) {
	n.mu.RLock()
	ids := make([]uint64, 0, len(n.refreshFuncs))
	for id := range n.refreshFuncs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]RefreshFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, n.refreshFuncs[id].fn)
	}
	observers := make([]Observer, 0, len(n.globalObservers))
	for _, id := range sortedKeys(n.globalObservers) {
		observers = append(observers, n.globalObservers[id])
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
	change := Change{Type: ChangeRefresh, Source: source}
	for _, obs := range observers {
		obs(change)
	}
}

// RefreshCount reports the number of registered refresh callbacks.
func (n *Notifier) RefreshCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.refreshFuncs)
}

// unsubscribe removes a registration by ID.
func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)
	delete(n.refreshFuncs, id)

	for key, observers := range n.controlObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.controlObservers, key)
		}
	}
}

func controlID(panelKey, controlKey string) string {
	return panelKey + "/" + controlKey
}

func sortedKeys(m map[uint64]Observer) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
