package script

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"
)

// ToLValue converts a Go value to a Lua value. Maps and slices become
// tables. Other values go through their JSON encoding, so structs arrive as
// tables keyed by their JSON field names.
func ToLValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(ToLValue(L, item))
		}
		return tbl
	case []string:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(lua.LString(item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, ToLValue(L, item))
		}
		return tbl
	case map[string]string:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, lua.LString(item))
		}
		return tbl
	case json.RawMessage:
		return jsonToLValue(L, val)
	case error:
		return lua.LString(val.Error())
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return lua.LString(fmt.Sprintf("%v", val))
		}
		return jsonToLValue(L, b)
	}
}

func jsonToLValue(L *lua.LState, b []byte) lua.LValue {
	if !gjson.ValidBytes(b) {
		return lua.LString(b)
	}
	return ToLValue(L, gjson.ParseBytes(b).Value())
}

// FromLValue converts a Lua value to a Go value. Tables whose keys are
// exactly 1..n become []any, other tables become map[string]any. Functions
// and userdata are returned as their Lua values.
func FromLValue(v lua.LValue) any {
	return fromLValue(v, 0)
}

// maxDepth stops self-referencing tables.
const maxDepth = 64

func fromLValue(v lua.LValue, depth int) any {
	switch val := v.(type) {
	case nil:
		return nil
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if depth >= maxDepth {
			return nil
		}
		return tableToGo(val, depth+1)
	default:
		return v
	}
}

func tableToGo(tbl *lua.LTable, depth int) any {
	n := tbl.Len()
	size := 0
	tbl.ForEach(func(_, _ lua.LValue) {
		size++
	})

	if n > 0 && n == size {
		arr := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			arr = append(arr, fromLValue(tbl.RawGetInt(i), depth))
		}
		return arr
	}

	result := make(map[string]any, size)
	tbl.ForEach(func(k, item lua.LValue) {
		result[keyString(k)] = fromLValue(item, depth)
	})
	return result
}

func keyString(k lua.LValue) string {
	switch key := k.(type) {
	case lua.LString:
		return string(key)
	case lua.LNumber:
		return strconv.FormatFloat(float64(key), 'f', -1, 64)
	default:
		return k.String()
	}
}
