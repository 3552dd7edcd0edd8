package exchange

import (
	"fmt"
	"strconv"

	"github.com/dshills/prefkit/internal/codec"
)

// Wire keys of the envelope mapping. These are frozen: changing any of
// them breaks every blob already in the wild.
const (
	wireOwner         = "addon"
	wireOwnerVersion  = "version"
	wireEngineVersion = "engineVersion"
	wireSettings      = "settings"
)

// Envelope is the outer mapping wrapped around an exported snapshot.
type Envelope struct {
	Owner         string
	OwnerVersion  string
	EngineVersion string
	Settings      map[string]any
}

// wire returns the mapping handed to the serializer.
func (e Envelope) wire() map[string]any {
	return map[string]any{
		wireOwner:         e.Owner,
		wireOwnerVersion:  e.OwnerVersion,
		wireEngineVersion: e.EngineVersion,
		wireSettings:      e.Settings,
	}
}

// rawEnvelope holds the untyped fields of a freshly deserialized envelope.
// Typing and comparison happen gate by gate in the pipeline, in order, so
// a payload failing several gates reports the first one.
type rawEnvelope struct {
	owner         any
	ownerVersion  any
	engineVersion any
	settings      any
}

// decodeEnvelope checks only that the payload is a mapping and splits out
// the wire fields.
func decodeEnvelope(v any) (rawEnvelope, error) {
	m, ok := v.(map[any]any)
	if !ok {
		return rawEnvelope{}, newValidationError(ErrInvalidEnvelope, "envelope", "mapping", describe(v))
	}
	return rawEnvelope{
		owner:         m[wireOwner],
		ownerVersion:  m[wireOwnerVersion],
		engineVersion: m[wireEngineVersion],
		settings:      m[wireSettings],
	}, nil
}

// settingsToStore converts a deserialized settings mapping into the
// string-keyed shape the backing stores use. The top two levels are
// converted so panel lookups type-assert cleanly; deeper values keep their
// deserialized shape. Number keys become their literal spelling.
func settingsToStore(v any) (map[string]any, bool) {
	switch settings := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(settings))
		for k, val := range settings {
			out[stringifyKey(k)] = storeValue(val)
		}
		return out, true
	case []any:
		out := make(map[string]any, len(settings))
		for i, val := range settings {
			out[strconv.Itoa(i+1)] = storeValue(val)
		}
		return out, true
	default:
		return nil, false
	}
}

func storeValue(v any) any {
	m, ok := v.(map[any]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[stringifyKey(k)] = val
	}
	return out
}

func stringifyKey(k any) string {
	switch key := k.(type) {
	case string:
		return key
	case float64:
		return codec.FormatNumber(key)
	default:
		return fmt.Sprint(key)
	}
}

func describe(v any) string {
	switch val := v.(type) {
	case nil:
		return "missing"
	case string:
		return val
	default:
		return fmt.Sprintf("%T", v)
	}
}
