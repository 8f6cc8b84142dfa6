package schema

import "strings"

// Node is one entry of a schema tree: either a *Leaf carrying a type and its
// rules, or a Container of further nodes. No other implementations exist.
type Node interface {
	node()
}

// Leaf declares the rules for a single typed field.
type Leaf struct {
	Type      Type
	Required  bool
	Default   *Default
	Validate  *Rule
	MaxLength *Bound
	MinLength *Bound
	Transform TransformFunc
	// Of restricts the element type of array fields.
	Of Type
}

func (*Leaf) node() {}

// Container nests further nodes under a field name.
type Container map[string]Node

func (Container) node() {}

// Lookup resolves a key against the tree. Dotted keys ("address.city")
// descend one segment at a time through nested containers.
func (c Container) Lookup(key string) (Node, bool) {
	var cur Node = c
	for _, seg := range strings.Split(key, ".") {
		cont, ok := cur.(Container)
		if !ok {
			return nil, false
		}
		next, ok := cont[seg]
		if !ok || next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Default is a field default: either a literal value or a producer invoked
// each time the default is applied.
type Default struct {
	value any
	fn    func() any
}

// Value declares a literal default.
func Value(v any) *Default {
	return &Default{value: v}
}

// Func declares a computed default.
func Func(fn func() any) *Default {
	return &Default{fn: fn}
}

// Computed reports whether the default is a producer.
func (d *Default) Computed() bool {
	return d.fn != nil
}

func (d *Default) produce() any {
	if d.fn != nil {
		return d.fn()
	}
	return d.value
}

// Rule is a custom validator: Check must return true for the value to pass.
// An empty Message falls back to "Invalid <field> value".
type Rule struct {
	Check   func(value any) bool
	Message string
}

// Check builds a Rule.
func Check(fn func(value any) bool, message string) *Rule {
	return &Rule{Check: fn, Message: message}
}

// Bound is a length constraint. A zero Limit disables it.
type Bound struct {
	Limit   int
	Message string
}

// Limit builds a Bound.
func Limit(n int, message string) *Bound {
	return &Bound{Limit: n, Message: message}
}

// TransformFunc replaces a validated value.
type TransformFunc func(value any) any
