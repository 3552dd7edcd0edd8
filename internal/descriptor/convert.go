package descriptor

import (
	lua "github.com/yuin/gopher-lua"
)

// luaToValue converts a Lua value into the engine's value model: nil,
// bool, float64, string, []any, map[any]any. Functions and userdata
// convert to nil; a cyclic table is cut at the revisit.
func luaToValue(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToValue(v, visited)
	default:
		return nil
	}
}

// tableToValue converts a table keyed exactly 1..N to []any and any other
// table to map[any]any with string and float64 keys. Keys of other types
// are dropped, matching the serializer's key policy.
func tableToValue(t *lua.LTable, visited map[*lua.LTable]bool) any {
	isArray := true
	maxN := 0
	count := 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok {
			isArray = false
			return
		}
		n := int(kn)
		if float64(n) != float64(kn) || n < 1 {
			isArray = false
			return
		}
		if n > maxN {
			maxN = n
		}
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = luaToValue(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[any]any, count)
	t.ForEach(func(k, v lua.LValue) {
		switch key := k.(type) {
		case lua.LString:
			m[string(key)] = luaToValue(v, visited)
		case lua.LNumber:
			m[float64(key)] = luaToValue(v, visited)
		}
	})
	return m
}

// valueToLua converts an engine value for a Lua callback argument. Values
// outside the model push nil.
func valueToLua(l *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := l.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, valueToLua(l, item))
		}
		return t
	case map[string]any:
		t := l.NewTable()
		for k, item := range val {
			t.RawSetString(k, valueToLua(l, item))
		}
		return t
	case map[any]any:
		t := l.NewTable()
		for k, item := range val {
			switch key := k.(type) {
			case string:
				t.RawSetString(key, valueToLua(l, item))
			case float64:
				t.RawSet(lua.LNumber(key), valueToLua(l, item))
			}
		}
		return t
	default:
		return lua.LNil
	}
}
