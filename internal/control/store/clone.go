package store

// cloneMap creates a deep copy of a map.
func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}
	return dst
}

// cloneAnyMap creates a deep copy of a generically keyed map, the shape
// the serialization codec produces.
func cloneAnyMap(src map[any]any) map[any]any {
	if src == nil {
		return nil
	}

	dst := make(map[any]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}
	return dst
}

// cloneSlice creates a deep copy of a slice.
func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}

	dst := make([]any, len(src))
	for i, val := range src {
		dst[i] = cloneValue(val)
	}
	return dst
}

func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case map[any]any:
		return cloneAnyMap(v)
	case []any:
		return cloneSlice(v)
	default:
		return val
	}
}
