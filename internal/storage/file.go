// Package storage persists control stores as TOML files on disk.
//
// Load and Save translate between the on-disk TOML shape and the value
// model the rest of the engine works in: every number is a float64 and
// nested mappings may carry non-string keys. Saves are atomic so a
// crash mid-write never leaves a torn store behind, and Watcher reports
// external edits to store files so the host can reload them.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/prefkit/internal/codec"
)

// Load reads a store file into a map ready for the control engine.
// A missing file is not an error; it yields an empty map so a fresh
// host starts from defaults. All numbers are normalized to float64.
func Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("reading store file %s: %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = normalizeValue(v)
	}
	return out, nil
}

// Save writes store data to path atomically via a temp file rename.
// The parent directory is created if needed.
func Save(path string, data map[string]any) error {
	doc, err := toml.Marshal(denormalizeMap(data))
	if err != nil {
		return fmt.Errorf("encoding store file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, doc, 0o644); err != nil {
		return fmt.Errorf("writing store file %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("replacing store file %s: %w", path, err)
	}
	return nil
}

// ParseError reports a store file that is not valid TOML.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// normalizeValue rewrites decoded TOML values into the engine's value
// model. TOML integers arrive as int64; the engine knows only float64.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case int64:
		return float64(val)
	case int:
		return float64(val)
	default:
		return v
	}
}

// denormalizeMap prepares engine values for TOML encoding. Mappings
// keyed by numbers become string-keyed tables, spelled the same way
// the literal codec spells them, and nil entries fall away since TOML
// has no way to write them.
func denormalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out[k] = denormalizeValue(v)
	}
	return out
}

func denormalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return denormalizeMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if item == nil {
				continue
			}
			out[storeKey(k)] = denormalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, denormalizeValue(item))
		}
		return out
	default:
		return v
	}
}

func storeKey(k any) string {
	switch key := k.(type) {
	case string:
		return key
	case float64:
		return codec.FormatNumber(key)
	default:
		return fmt.Sprint(key)
	}
}
