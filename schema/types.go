package schema

import (
	"reflect"
	"slices"
	"time"
)

// Type is a registered field type tag.
type Type string

// Registered type tags.
const (
	String  Type = "string"
	Number  Type = "number"
	Boolean Type = "boolean"
	Object  Type = "object"
	Array   Type = "array"
	Date    Type = "date"
)

var registry = []Type{String, Number, Boolean, Object, Array, Date}

// Types returns every registered type tag.
func Types() []Type {
	return slices.Clone(registry)
}

// Valid reports whether t is a registered type tag.
func (t Type) Valid() bool {
	return slices.Contains(registry, t)
}

// article returns the indefinite article used in type-mismatch messages.
func (t Type) article() string {
	switch t {
	case Object, Array:
		return "an"
	default:
		return "a"
	}
}

// KindOf classifies a runtime value. Integer and float kinds are numbers,
// slices and arrays are arrays, and maps, structs (time.Time included) and
// pointers are objects. Nil and values with no document equivalent (funcs,
// channels) return "".
func KindOf(v any) Type {
	switch v.(type) {
	case nil:
		return ""
	case string:
		return String
	case bool:
		return Boolean
	case float64, int, int64:
		return Number
	case map[string]any:
		return Object
	case []any:
		return Array
	case time.Time:
		return Object
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return String
	case reflect.Bool:
		return Boolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number
	case reflect.Slice, reflect.Array:
		return Array
	case reflect.Map, reflect.Struct, reflect.Pointer, reflect.Interface:
		return Object
	}
	return ""
}

// conforms reports whether v satisfies the declared type t. Object accepts
// arrays too, since an array is a non-primitive document value. Types with no
// runtime shape (date, or an empty tag) accept anything.
func conforms(v any, t Type) bool {
	kind := KindOf(v)
	switch t {
	case String, Number, Boolean, Array:
		return kind == t
	case Object:
		return kind == Object || kind == Array
	default:
		return true
	}
}

// sliceConforms checks every element of a typed slice or array.
func sliceConforms(v any, of Type) bool {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if !conforms(rv.Index(i).Interface(), of) {
			return false
		}
	}
	return true
}
