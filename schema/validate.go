package schema

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// walker carries the per-call state of one validation pass.
type walker struct {
	mode       Mode
	collection string
}

// walk validates one level of the tree against data and recurses into
// containers. Keys are visited in sorted order so the first reported
// violation is deterministic.
func (w *walker) walk(tree Container, data map[string]any, prefix string) (map[string]any, error) {
	for key := range data {
		if _, ok := tree.Lookup(key); !ok {
			delete(data, key)
		}
	}

	var keys []string
	if w.mode == Create {
		keys = slices.Sorted(maps.Keys(tree))
	} else {
		keys = slices.Sorted(maps.Keys(data))
	}

	for _, key := range keys {
		node, _ := tree.Lookup(key)
		path := joinPath(prefix, key)

		switch n := node.(type) {
		case Container:
			nested, err := w.nestedMap(data[key], key, path)
			if err != nil {
				return nil, err
			}
			out, err := w.walk(n, nested, path)
			if err != nil {
				return nil, err
			}
			data[key] = out
		case *Leaf:
			if n == nil {
				return nil, definitionErrorf(path, "invalid type for %s in schema", key)
			}
			if err := w.leaf(n, key, path, data); err != nil {
				return nil, err
			}
		}
	}

	return data, nil
}

// nestedMap returns the input object for a container field, creating an
// empty one when the field is absent or falsy. Other string-keyed maps are
// copied into a map[string]any.
func (w *walker) nestedMap(v any, key, path string) (map[string]any, error) {
	if !Truthy(v) {
		return make(map[string]any), nil
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, w.fieldErrorf(path, "%s must be %s %s", key, Object.article(), Object)
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, nil
}

// leaf applies the per-field rules in order: required, default, type,
// element type, custom validator, transform, max length, min length.
func (w *walker) leaf(n *Leaf, key, path string, data map[string]any) error {
	if w.mode == Create {
		if !n.Type.Valid() {
			return definitionErrorf(path, "invalid type for %s in schema", key)
		}
		if n.Of != "" && !n.Of.Valid() {
			return definitionErrorf(path, "invalid element type for %s in schema", key)
		}
		if n.Required && !Truthy(data[key]) {
			return w.fieldErrorf(path, "%s is required", key)
		}
		if n.Default != nil && !Truthy(data[key]) {
			data[key] = n.Default.produce()
		}
	}

	if v := data[key]; Truthy(v) {
		if !conforms(v, n.Type) {
			return w.fieldErrorf(path, "%s must be %s %s", key, n.Type.article(), n.Type)
		}
		if n.Type == Array && n.Of != "" && !elementsConform(v, n.Of) {
			return w.fieldErrorf(path, "%s values must be of type %q", key, n.Of)
		}
	}

	if n.Validate != nil {
		if n.Validate.Check == nil {
			return definitionErrorf(path, "%s's validate property must be a [check, message] pair", key)
		}
		if v := data[key]; Truthy(v) && !n.Validate.Check(v) {
			msg := n.Validate.Message
			if msg == "" {
				msg = fmt.Sprintf("Invalid %s value", key)
			}
			return &FieldError{Collection: w.collection, Path: path, Message: msg}
		}
	}

	if n.Transform != nil && Truthy(data[key]) {
		data[key] = n.Transform(data[key])
	}

	if b := n.MaxLength; b != nil {
		if b.Limit < 0 {
			return definitionErrorf(path, "%s's maxlength property must be a non-negative [limit, message] pair", key)
		}
		if v := data[key]; b.Limit != 0 && Truthy(v) {
			if l, ok := lengthOf(v); ok && l >= b.Limit {
				return w.boundError(b, path, "%s must be at most %d", key)
			}
		}
	}

	if b := n.MinLength; b != nil {
		if b.Limit < 0 {
			return definitionErrorf(path, "%s's minlength property must be a non-negative [limit, message] pair", key)
		}
		if v := data[key]; b.Limit != 0 {
			l, ok := lengthOf(v)
			if !Truthy(v) || (ok && l < b.Limit) {
				return w.boundError(b, path, "%s must be at least %d", key)
			}
		}
	}

	return nil
}

func (w *walker) boundError(b *Bound, path, fallback, key string) error {
	if b.Message != "" {
		return &FieldError{Collection: w.collection, Path: path, Message: b.Message}
	}
	return w.fieldErrorf(path, fallback, key, b.Limit)
}

func (w *walker) fieldErrorf(path, format string, args ...any) *FieldError {
	return &FieldError{
		Collection: w.collection,
		Path:       path,
		Message:    fmt.Sprintf(format, args...),
	}
}

func elementsConform(v any, of Type) bool {
	items, ok := v.([]any)
	if !ok {
		return sliceConforms(v, of)
	}
	for _, item := range items {
		if !conforms(item, of) {
			return false
		}
	}
	return true
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
