package schema

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tailscale/hujson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Special default values understood by the loader.
const (
	DefaultNow  = "$now"
	DefaultUUID = "$uuid"
)

// LoadOption customises how a definition document is turned into a tree.
type LoadOption func(*loader)

// WithTransform registers a named transform usable from documents, adding to
// or overriding the built-in ones.
func WithTransform(name string, fn TransformFunc) LoadOption {
	return func(l *loader) { l.transforms[name] = fn }
}

// WithClock replaces the time source used by "$now" defaults.
func WithClock(now func() time.Time) LoadOption {
	return func(l *loader) { l.now = now }
}

type loader struct {
	transforms map[string]TransformFunc
	now        func() time.Time
}

func newLoader(opts []LoadOption) *loader {
	l := &loader{transforms: builtinTransforms(), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// builtinTransforms are string transforms; other value types pass through.
// A cases.Caser keeps state between calls, so title builds one per value.
func builtinTransforms() map[string]TransformFunc {
	onString := func(fn func(string) string) TransformFunc {
		return func(v any) any {
			if s, ok := v.(string); ok {
				return fn(s)
			}
			return v
		}
	}
	return map[string]TransformFunc{
		"trim":  onString(strings.TrimSpace),
		"lower": onString(strings.ToLower),
		"upper": onString(strings.ToUpper),
		"title": onString(func(s string) string { return cases.Title(language.Und).String(s) }),
	}
}

// ParseYAML builds a schema tree from a YAML definition document.
func ParseYAML(data []byte, opts ...LoadOption) (Container, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, definitionErrorf("", "parse yaml definition: %v", err)
	}
	return newLoader(opts).build(doc)
}

// ParseJSON builds a schema tree from a JSON definition document. Comments
// and trailing commas are accepted.
func ParseJSON(data []byte, opts ...LoadOption) (Container, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, definitionErrorf("", "parse json definition: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(std, &doc); err != nil {
		return nil, definitionErrorf("", "parse json definition: %v", err)
	}
	return newLoader(opts).build(doc)
}

// LoadFile reads a definition document, choosing the format by extension:
// .yaml/.yml or .json/.jsonc/.hujson.
func LoadFile(path string, opts ...LoadOption) (Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, opts...)
	case ".json", ".jsonc", ".hujson":
		return ParseJSON(data, opts...)
	default:
		return nil, fmt.Errorf("schema: unsupported definition file %s", path)
	}
}

func (l *loader) build(doc map[string]any) (Container, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	if err := checkDefinition(doc); err != nil {
		return nil, err
	}
	return l.tree(doc, "")
}

func (l *loader) tree(doc map[string]any, prefix string) (Container, error) {
	out := make(Container, len(doc))
	for _, key := range slices.Sorted(maps.Keys(doc)) {
		path := joinPath(prefix, key)
		m, ok := doc[key].(map[string]any)
		if !ok {
			return nil, definitionErrorf(path, "%s must be a field declaration or a nested object", key)
		}

		if _, isLeaf := m["type"].(string); isLeaf {
			leaf, err := l.leaf(key, path, m)
			if err != nil {
				return nil, err
			}
			out[key] = leaf
			continue
		}

		nested, err := l.tree(m, path)
		if err != nil {
			return nil, err
		}
		out[key] = nested
	}
	return out, nil
}

func (l *loader) leaf(key, path string, m map[string]any) (*Leaf, error) {
	leaf := &Leaf{Type: Type(m["type"].(string))}

	if v, ok := m["required"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, definitionErrorf(path, "%s's required property must be a boolean", key)
		}
		leaf.Required = b
	}

	if v, ok := m["of"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, definitionErrorf(path, "%s's of property must be a type name", key)
		}
		leaf.Of = Type(s)
	}

	if v, ok := m["default"]; ok {
		leaf.Default = l.defaultValue(v)
	}

	if v, ok := m["validate"]; ok {
		pair, ok := v.([]any)
		if !ok || len(pair) == 0 || len(pair) > 2 {
			return nil, definitionErrorf(path, "%s's validate property must be an array", key)
		}
		expr, ok := pair[0].(string)
		if !ok {
			return nil, definitionErrorf(path, "%s's validate expression must be a string", key)
		}
		check, err := CompileCheck(expr)
		if err != nil {
			return nil, definitionErrorf(path, "%s's validate expression is invalid: %v", key, err)
		}
		leaf.Validate = &Rule{Check: check, Message: optionalString(pair, 1)}
	}

	if v, ok := m["transform"]; ok {
		name, _ := v.(string)
		fn, found := l.transforms[name]
		if !found {
			return nil, definitionErrorf(path, "%s's transform property must be a function", key)
		}
		leaf.Transform = fn
	}

	var err error
	if leaf.MaxLength, err = bound(m, "maxlength", key, path); err != nil {
		return nil, err
	}
	if leaf.MinLength, err = bound(m, "minlength", key, path); err != nil {
		return nil, err
	}
	return leaf, nil
}

func (l *loader) defaultValue(v any) *Default {
	if s, ok := v.(string); ok {
		switch s {
		case DefaultNow:
			return Func(func() any { return l.now().UTC() })
		case DefaultUUID:
			return Func(func() any { return uuid.NewString() })
		}
	}
	return Value(v)
}

func bound(m map[string]any, prop, key, path string) (*Bound, error) {
	v, ok := m[prop]
	if !ok {
		return nil, nil
	}
	pair, ok := v.([]any)
	if !ok || len(pair) == 0 || len(pair) > 2 {
		return nil, definitionErrorf(path, "%s's %s property must be an array", key, prop)
	}
	limit, ok := toInt(pair[0])
	if !ok || limit < 0 {
		return nil, definitionErrorf(path, "%s's %s limit must be a non-negative integer", key, prop)
	}
	return &Bound{Limit: limit, Message: optionalString(pair, 1)}, nil
}

func optionalString(pair []any, i int) string {
	if len(pair) <= i {
		return ""
	}
	s, _ := pair[i].(string)
	return s
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
