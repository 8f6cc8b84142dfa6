package store

import (
	"cmp"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Type ranks used when values of different kinds are ordered against each
// other: null < boolean < number < timestamp < string < array < map.
const (
	rankNull = iota
	rankBool
	rankNumber
	rankTime
	rankString
	rankArray
	rankMap
	rankOther
)

func rankOf(v any) int {
	switch t := v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case string:
		return rankString
	case time.Time:
		return rankTime
	case *time.Time:
		if t == nil {
			return rankNull
		}
		return rankTime
	}
	if _, ok := toFloat(v); ok {
		return rankNumber
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return rankArray
	case reflect.Map:
		return rankMap
	}
	return rankOther
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toTime(v any) time.Time {
	if p, ok := v.(*time.Time); ok {
		return *p
	}
	return v.(time.Time)
}

// toSlice returns the elements of any slice or array value.
func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// compareValues totally orders document values. Numbers compare by value
// regardless of their Go type; NaN sorts before every other number.
func compareValues(a, b any) int {
	ra, rb := rankOf(a), rankOf(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case rankNull:
		return 0
	case rankBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case rankNumber:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return cmp.Compare(boolRank(!math.IsNaN(fa)), boolRank(!math.IsNaN(fb)))
		}
		return cmp.Compare(fa, fb)
	case rankTime:
		return toTime(a).Compare(toTime(b))
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankArray:
		sa, _ := toSlice(a)
		sb, _ := toSlice(b)
		for i := range min(len(sa), len(sb)) {
			if c := compareValues(sa[i], sb[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(sa), len(sb))
	case rankMap:
		ma, _ := toMap(a)
		mb, _ := toMap(b)
		ka := slices.Sorted(maps.Keys(ma))
		kb := slices.Sorted(maps.Keys(mb))
		for i := range min(len(ka), len(kb)) {
			if c := strings.Compare(ka[i], kb[i]); c != 0 {
				return c
			}
			if c := compareValues(ma[ka[i]], mb[kb[i]]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(ka), len(kb))
	}

	if reflect.DeepEqual(a, b) {
		return 0
	}
	return -1
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func equalValues(a, b any) bool {
	return compareValues(a, b) == 0
}

// getPath resolves a dotted field path by descending through nested maps.
func getPath(fields map[string]any, path string) (any, bool) {
	var cur any = fields
	for _, seg := range strings.Split(path, ".") {
		m, ok := toMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath assigns value at a dotted field path, creating or replacing
// intermediate maps as needed.
func setPath(fields map[string]any, path string, value any) {
	segs := strings.Split(path, ".")
	cur := fields
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

func validPath(path string) bool {
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return false
		}
	}
	return true
}

// cloneValue deep-copies the maps and lists of a decoded document value.
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
