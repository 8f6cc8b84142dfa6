// Package schema validates and transforms documents against a declarative
// schema tree before they are persisted.
//
// A tree is a [Container] of [Node]s. Each node is either a [*Leaf] with a
// registered [Type] and optional rules, or a nested Container:
//
//	users := schema.New(schema.Container{
//		"name": &schema.Leaf{Type: schema.String, Required: true},
//		"age":  &schema.Leaf{Type: schema.Number, Default: schema.Value(18)},
//		"address": schema.Container{
//			"city": &schema.Leaf{Type: schema.String},
//		},
//	})
//
// Validation runs in [Create] mode (every declared field is visited so
// required and default rules apply) or [Update] mode (only the fields present
// in the input are visited). Unknown keys are always pruned.
package schema

import (
	"context"
	"fmt"
)

// Mode selects which rules a validation pass enforces.
type Mode int

const (
	// Create enforces the full schema, including required fields and
	// defaults.
	Create Mode = iota
	// Update checks only the fields present in the input.
	Update
)

func (m Mode) String() string {
	switch m {
	case Create:
		return "create"
	case Update:
		return "update"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// BeforeSaveFunc runs after the tree walk with the fully validated record. It
// may mutate the record; a returned error aborts the write unchanged.
type BeforeSaveFunc func(ctx context.Context, data map[string]any) error

// Schema is an immutable schema tree plus an optional pre-persist hook. It is
// safe for concurrent use as long as the tree is not modified after New.
type Schema struct {
	tree       Container
	beforeSave BeforeSaveFunc
}

// Option configures a Schema.
type Option func(*Schema)

// WithBeforeSave installs a hook invoked after successful validation.
func WithBeforeSave(fn BeforeSaveFunc) Option {
	return func(s *Schema) { s.beforeSave = fn }
}

// New builds a Schema over tree.
func New(tree Container, opts ...Option) *Schema {
	if tree == nil {
		tree = Container{}
	}
	s := &Schema{tree: tree}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tree returns the schema tree. Callers must not modify it.
func (s *Schema) Tree() Container {
	return s.tree
}

// Validate walks the schema against data and returns the validated record.
// data is modified in place (pruned, defaulted, transformed) and returned; a
// nil map is treated as empty. The first violation aborts the walk.
func (s *Schema) Validate(ctx context.Context, mode Mode, collection string, data map[string]any) (map[string]any, error) {
	if mode != Create && mode != Update {
		return nil, fmt.Errorf("schema: unknown validation mode %v", mode)
	}
	if data == nil {
		data = make(map[string]any)
	}

	w := &walker{mode: mode, collection: collection}
	out, err := w.walk(s.tree, data, "")
	if err != nil {
		return nil, err
	}

	if s.beforeSave != nil {
		if err := s.beforeSave(ctx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
