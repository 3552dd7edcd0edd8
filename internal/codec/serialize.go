package codec

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Serialize renders a value graph as a single table-literal expression.
//
// Numbers use Go's shortest round-trip formatting. Strings are quoted with
// strconv.Quote so every byte survives a re-parse. Mapping entries whose key
// is neither a string nor a number are silently omitted, matching the
// historical export format. Mapping entries whose value is nil are omitted
// because a nil entry cannot be told apart from an absent one.
//
// Serialize fails with ErrRecursion on cyclic or over-deep graphs and with
// ErrUnsupportedValue on values outside the graph model.
func Serialize(value any) (string, error) {
	s := serializer{visited: make(map[uintptr]bool)}
	var sb strings.Builder
	if err := s.write(&sb, value, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type serializer struct {
	// visited holds the map/slice backing pointers on the current descent
	// path. Entries are removed on the way back up so shared subtrees are
	// legal and only true cycles fail.
	visited map[uintptr]bool
}

func (s *serializer) write(sb *strings.Builder, value any, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrRecursion, MaxDepth)
	}

	switch v := value.(type) {
	case nil:
		sb.WriteString("nil")
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case string:
		sb.WriteString(strconv.Quote(v))
	case float64:
		return writeFloat(sb, v, 64)
	case float32:
		return writeFloat(sb, float64(v), 32)
	case int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int8:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int16:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case uint:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint8:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint16:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		sb.WriteString(strconv.FormatUint(v, 10))
	case []any:
		return s.writeSlice(sb, v, depth)
	case map[string]any:
		return s.writeStringMap(sb, v, depth)
	case map[any]any:
		return s.writeMap(sb, v, depth)
	default:
		return fmt.Errorf("%w: cannot serialize %T", ErrUnsupportedValue, value)
	}
	return nil
}

func (s *serializer) writeSlice(sb *strings.Builder, v []any, depth int) error {
	if len(v) == 0 {
		sb.WriteString("{}")
		return nil
	}
	p := reflect.ValueOf(v).Pointer()
	if err := s.enter(p); err != nil {
		return err
	}
	defer s.leave(p)

	sb.WriteByte('{')
	for i, elem := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("]=")
		if err := s.write(sb, elem, depth+1); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

func (s *serializer) writeStringMap(sb *strings.Builder, v map[string]any, depth int) error {
	if len(v) == 0 {
		sb.WriteString("{}")
		return nil
	}
	p := reflect.ValueOf(v).Pointer()
	if err := s.enter(p); err != nil {
		return err
	}
	defer s.leave(p)

	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteByte('{')
	first := true
	for _, k := range keys {
		if v[k] == nil {
			continue
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteByte('[')
		sb.WriteString(strconv.Quote(k))
		sb.WriteString("]=")
		if err := s.write(sb, v[k], depth+1); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

func (s *serializer) writeMap(sb *strings.Builder, v map[any]any, depth int) error {
	if len(v) == 0 {
		sb.WriteString("{}")
		return nil
	}
	p := reflect.ValueOf(v).Pointer()
	if err := s.enter(p); err != nil {
		return err
	}
	defer s.leave(p)

	type numEntry struct {
		num float64
		key any
	}
	var nums []numEntry
	var strs []string
	strKeys := make(map[string]any)
	for k := range v {
		if n, ok := numericKey(k); ok {
			nums = append(nums, numEntry{num: n, key: k})
			continue
		}
		if sk, ok := k.(string); ok {
			strs = append(strs, sk)
			strKeys[sk] = k
			continue
		}
		// Keys outside string/number are dropped without error.
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i].num < nums[j].num })
	sort.Strings(strs)

	sb.WriteByte('{')
	first := true
	writeEntry := func(keyText string, val any) error {
		if val == nil {
			return nil
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteByte('[')
		sb.WriteString(keyText)
		sb.WriteString("]=")
		return s.write(sb, val, depth+1)
	}
	for _, e := range nums {
		if err := writeEntry(FormatNumber(e.num), v[e.key]); err != nil {
			return err
		}
	}
	for _, sk := range strs {
		if err := writeEntry(strconv.Quote(sk), v[strKeys[sk]]); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

func (s *serializer) enter(p uintptr) error {
	if s.visited[p] {
		return fmt.Errorf("%w: cycle detected", ErrRecursion)
	}
	s.visited[p] = true
	return nil
}

func (s *serializer) leave(p uintptr) {
	delete(s.visited, p)
}

func writeFloat(sb *strings.Builder, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: non-finite number", ErrUnsupportedValue)
	}
	sb.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

// FormatNumber renders a number the way the literal grammar spells it.
// Callers that stringify numeric mapping keys share this form so the
// same value never serializes under two spellings.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// numericKey reports the float64 form of a mapping key of any numeric kind.
// Non-finite floats are excluded; they have no literal form.
func numericKey(k any) (float64, bool) {
	switch n := k.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
