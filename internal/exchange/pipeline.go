// Package exchange moves settings between installations as a portable
// text blob.
//
// Export wraps a snapshot of the active store in an identity envelope,
// serializes it to the literal grammar, and base64-armors the result.
// Import runs the reverse pipeline with a validation gate between
// deserializing and committing: the blob must carry the same owner, owner
// version, and envelope format version, or the store is left exactly as
// it was. The payload is parsed as data end to end; no part of it is ever
// evaluated.
package exchange

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/prefkit/internal/codec"
	"github.com/dshills/prefkit/internal/control"
	"github.com/dshills/prefkit/internal/control/hook"
	"github.com/dshills/prefkit/internal/transport"
)

// EngineVersion is the envelope format version stamped into every export.
// Imports require an exact string match.
const EngineVersion = "1"

// Identity names the owning host and its settings-schema version. Both
// strings are compared exactly on import; there is no range or prefix
// matching.
type Identity struct {
	Owner        string
	OwnerVersion string
}

// Logger is the minimal logging surface the pipeline writes to. The
// application logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Pipeline runs the export and import state machines against one engine.
type Pipeline struct {
	mu     sync.Mutex
	state  State
	engine *control.Engine
	id     Identity
	logger Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for state transition tracing.
func WithLogger(l Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New builds a Pipeline bound to an engine and an identity.
func New(engine *control.Engine, id Identity, opts ...Option) *Pipeline {
	p := &Pipeline{engine: engine, id: id}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports the current pipeline stage. Outside an Export or Import
// call it is always StateIdle.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Debug("pipeline state", "state", s.String())
	}
}

// Export snapshots the active store, wraps it in the identity envelope,
// and returns the armored blob. Any failure aborts with no partial
// output. Pre-hooks for the export operation run before the snapshot;
// post-hooks observe the blob or the error.
func (p *Pipeline) Export() (string, error) {
	op := uuid.NewString()
	inv := hook.Invocation{Op: hook.OpExport}
	p.engine.Hooks().RunPre(hook.OpExport, &inv)

	text, err := p.export(op)
	if err != nil && p.logger != nil {
		p.logger.Error("export failed", "op", op, "kind", FailureKind(err), "error", err)
	}

	p.engine.Hooks().RunPost(hook.OpExport, inv, text, err)
	return text, err
}

func (p *Pipeline) export(op string) (string, error) {
	defer p.setState(StateIdle)

	p.setState(StateSnapshotting)
	env := Envelope{
		Owner:         p.id.Owner,
		OwnerVersion:  p.id.OwnerVersion,
		EngineVersion: EngineVersion,
		Settings:      p.engine.ExportSnapshot(),
	}

	p.setState(StateSerializing)
	text, err := codec.Serialize(env.wire())
	if err != nil {
		return "", fmt.Errorf("serialize settings: %w", err)
	}

	p.setState(StateEncoding)
	blob := transport.Encode([]byte(text))

	if p.logger != nil {
		p.logger.Info("settings exported", "op", op, "panels", len(env.Settings), "bytes", len(blob))
	}
	return blob, nil
}

// Import validates and commits a blob produced by Export. The gates run
// in a fixed order: transport decode, deserialize, envelope shape,
// identity, owner version, engine version, settings shape. Only after
// every gate passes is the active store replaced, as one unit; every
// failure path leaves the store untouched. Pre-hooks may rewrite the blob
// text; post-hooks observe the outcome.
func (p *Pipeline) Import(text string) error {
	op := uuid.NewString()
	inv := hook.Invocation{Op: hook.OpImport, Value: text}
	p.engine.Hooks().RunPre(hook.OpImport, &inv)
	if s, ok := inv.Value.(string); ok {
		text = s
	}

	err := p.runImport(op, text)
	if err != nil && p.logger != nil {
		p.logger.Error("import rejected", "op", op, "kind", FailureKind(err), "error", err)
	}

	p.engine.Hooks().RunPost(hook.OpImport, inv, nil, err)
	return err
}

func (p *Pipeline) runImport(op, text string) error {
	defer p.setState(StateIdle)

	p.setState(StateDecoding)
	raw, err := transport.Decode(text)
	if err != nil {
		return fmt.Errorf("decode blob: %w", err)
	}

	p.setState(StateDeserializing)
	value, err := codec.Deserialize(string(raw))
	if err != nil {
		return fmt.Errorf("deserialize payload: %w", err)
	}

	env, err := decodeEnvelope(value)
	if err != nil {
		return err
	}

	p.setState(StateValidatingIdentity)
	if owner, ok := env.owner.(string); !ok || owner != p.id.Owner {
		return newValidationError(ErrIdentityMismatch, "identity", p.id.Owner, describe(env.owner))
	}

	p.setState(StateValidatingOwnerVersion)
	if v, ok := env.ownerVersion.(string); !ok || v != p.id.OwnerVersion {
		return newValidationError(ErrOwnerVersionMismatch, "ownerVersion", p.id.OwnerVersion, describe(env.ownerVersion))
	}

	p.setState(StateValidatingEngineVersion)
	if v, ok := env.engineVersion.(string); !ok || v != EngineVersion {
		return newValidationError(ErrEngineVersionMismatch, "engineVersion", EngineVersion, describe(env.engineVersion))
	}

	settings, ok := settingsToStore(env.settings)
	if !ok {
		return newValidationError(ErrInvalidEnvelope, "settings", "mapping", describe(env.settings))
	}

	p.setState(StateCommitting)
	p.engine.Replace(settings, "import")

	if p.logger != nil {
		p.logger.Info("settings imported", "op", op, "panels", len(settings))
	}
	return nil
}
