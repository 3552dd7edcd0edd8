package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dshills/prefkit/internal/control"
	"github.com/dshills/prefkit/internal/control/registry"
	"github.com/dshills/prefkit/internal/descriptor"
	"github.com/dshills/prefkit/internal/exchange"
	"github.com/dshills/prefkit/internal/storage"
)

// App is a fully wired engine instance for one host process: descriptors
// registered from Lua scripts, stores loaded from their TOML files, the
// exchange pipeline bound to the host identity, and optional reloading
// when a store file changes on disk.
type App struct {
	cfg     Config
	logger  *Logger
	session string

	// The two host-owned maps handed to the engine. The engine mutates
	// them in place; they always reflect current state.
	globalData map[string]any
	entityData map[string]any

	loader   *descriptor.Loader
	engine   *control.Engine
	pipeline *exchange.Pipeline
	watcher  *storage.Watcher
}

// AppOption configures App construction.
type AppOption func(*appOptions)

type appOptions struct {
	logger *Logger
}

// WithAppLogger overrides the logger built from the config's log level.
func WithAppLogger(l *Logger) AppOption {
	return func(o *appOptions) {
		o.logger = l
	}
}

// New wires an App from the host configuration. Descriptor scripts load
// first so store values can be validated against live descriptors, then
// the stores, the engine, and the pipeline. Every App carries a unique
// session ID in its log fields.
func New(cfg Config, opts ...AppOption) (*App, error) {
	var options appOptions
	for _, opt := range opts {
		opt(&options)
	}

	session := uuid.NewString()
	logger := options.logger
	if logger == nil {
		logger = NewLogger(LoggerConfig{
			Level:  ParseLogLevel(cfg.LogLevel),
			Prefix: "prefkit",
		})
	}
	logger = logger.WithField("session", session)

	a := &App{cfg: cfg, logger: logger, session: session}

	reg := registry.New()
	a.loader = descriptor.New(reg, descriptor.WithLogger(logger.WithComponent("descriptor")))
	for _, script := range cfg.Descriptors {
		if err := a.loader.LoadFile(script); err != nil {
			a.loader.Close()
			return nil, fmt.Errorf("loading descriptor %s: %w", script, err)
		}
	}

	var err error
	if a.globalData, err = storage.Load(cfg.GlobalStore); err != nil {
		a.loader.Close()
		return nil, err
	}
	if a.entityData, err = storage.Load(cfg.EntityStore); err != nil {
		a.loader.Close()
		return nil, err
	}

	a.engine = control.New(reg, a.globalData, a.entityData,
		control.WithLogger(logger.WithComponent("control")),
	)
	a.pipeline = exchange.New(a.engine,
		exchange.Identity{Owner: cfg.Owner, OwnerVersion: cfg.OwnerVersion},
		exchange.WithLogger(logger.WithComponent("exchange")),
	)

	if cfg.WatchStores {
		if err := a.startWatcher(); err != nil {
			a.loader.Close()
			return nil, err
		}
	}

	logger.Info("engine ready",
		"owner", cfg.Owner,
		"ownerVersion", cfg.OwnerVersion,
		"active", a.engine.ActiveName(),
		"controls", len(reg.All()),
	)
	return a, nil
}

// Engine returns the control engine.
func (a *App) Engine() *control.Engine { return a.engine }

// Pipeline returns the exchange pipeline.
func (a *App) Pipeline() *exchange.Pipeline { return a.pipeline }

// Logger returns the session-scoped logger.
func (a *App) Logger() *Logger { return a.logger }

// Session returns the unique ID stamped on this App's log lines.
func (a *App) Session() string { return a.session }

// Config returns the configuration the App was built from.
func (a *App) Config() Config { return a.cfg }

// SaveStores persists both stores to their configured files.
func (a *App) SaveStores() error {
	for _, st := range []struct {
		name string
		path string
	}{
		{"global", a.cfg.GlobalStore},
		{"entity", a.cfg.EntityStore},
	} {
		contents, err := a.engine.StoreContents(st.name)
		if err != nil {
			return err
		}
		if err := storage.Save(st.path, contents); err != nil {
			return err
		}
	}
	return nil
}

// startWatcher begins reloading stores when their files change on disk.
// Saves made through SaveStores also trip the watcher; the reload is a
// no-op swap to identical contents, so it stays correct.
func (a *App) startWatcher() error {
	// Watching a store file requires its directory; a fresh host has
	// neither yet.
	for _, p := range []string{a.cfg.GlobalStore, a.cfg.EntityStore} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("creating store directory for %s: %w", p, err)
		}
	}

	w, err := storage.NewWatcher(storage.WithErrorHandler(func(err error) {
		a.logger.Error("store watch error", "error", err)
	}))
	if err != nil {
		return err
	}

	watch := func(name, path string) error {
		return w.Watch(path, func(string) { a.reloadStore(name, path) })
	}
	if err := watch("global", a.cfg.GlobalStore); err != nil {
		w.Close()
		return err
	}
	if err := watch("entity", a.cfg.EntityStore); err != nil {
		w.Close()
		return err
	}

	a.watcher = w
	return nil
}

func (a *App) reloadStore(name, path string) {
	data, err := storage.Load(path)
	if err != nil {
		a.logger.Error("store reload failed", "store", name, "error", err)
		return
	}
	if err := a.engine.ReloadStore(name, data, "fileChange"); err != nil {
		a.logger.Error("store reload failed", "store", name, "error", err)
	}
}

// Close releases the watcher and the descriptor loader. Store contents
// are not saved implicitly; call SaveStores first if they should persist.
func (a *App) Close() error {
	var err error
	if a.watcher != nil {
		err = a.watcher.Close()
		a.watcher = nil
	}
	if a.loader != nil {
		a.loader.Close()
		a.loader = nil
	}
	return err
}
