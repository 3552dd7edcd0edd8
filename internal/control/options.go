package control

import (
	"github.com/dshills/prefkit/internal/control/hook"
	"github.com/dshills/prefkit/internal/control/notify"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for operation tracing. Without it the
// engine is silent.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithNotifier shares an existing notifier instead of creating a private
// one, so hosts can fan subscriptions across components.
func WithNotifier(n *notify.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithHooks shares an existing hook chain.
func WithHooks(h *hook.Chain) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// WithSessionSeed pre-populates session-only values, keyed by panel then
// control.
func WithSessionSeed(values map[string]map[string]any) Option {
	return func(e *Engine) {
		for panelKey, controls := range values {
			panel := make(map[string]any, len(controls))
			for controlKey, v := range controls {
				panel[controlKey] = v
			}
			e.session[panelKey] = panel
		}
	}
}
