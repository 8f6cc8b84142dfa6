// Package model binds a schema to a collection and exposes CRUD operations
// that validate writes and return formatted records.
//
//	users, err := model.New("users", userSchema, client)
//	ana, err := users.Create(ctx, map[string]any{"name": "Ana"})
//	same, err := users.FindByID(ctx, ana.ID())
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/beyondbrewing/brewery-odm/pkg/logger"
	"github.com/beyondbrewing/brewery-odm/query"
	"github.com/beyondbrewing/brewery-odm/record"
	"github.com/beyondbrewing/brewery-odm/schema"
	"github.com/beyondbrewing/brewery-odm/store"
)

// ErrInvalidConfig is returned by New for unusable arguments.
var ErrInvalidConfig = errors.New("model: invalid configuration")

// Model is a collection bound to a schema. It holds no mutable state and is
// safe for concurrent use.
type Model struct {
	collection string
	schema     *schema.Schema
	client     *store.Client
	logger     logger.Logger
}

// New creates a Model for collection, validating writes against s and
// persisting through client.
func New(collection string, s *schema.Schema, client *store.Client, opts ...Option) (*Model, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name must not be empty", ErrInvalidConfig)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: schema must not be nil", ErrInvalidConfig)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: store client must not be nil", ErrInvalidConfig)
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Model{
		collection: collection,
		schema:     s,
		client:     client,
		logger:     log.With("component", "model", "collection", collection),
	}, nil
}

// Collection returns the collection name.
func (m *Model) Collection() string { return m.collection }

// Schema returns the model's schema.
func (m *Model) Schema() *schema.Schema { return m.schema }

func (m *Model) ref() *store.CollectionRef {
	return m.client.Collection(m.collection)
}

// Validate checks data in update mode without persisting it and returns the
// validated (pruned, transformed) map.
func (m *Model) Validate(ctx context.Context, data map[string]any) (map[string]any, error) {
	return m.schema.Validate(ctx, schema.Update, m.collection, data)
}

// Create validates data in create mode and stores it, at the id given with
// WithID or at a generated one. It returns the id merged with the stored
// fields.
func (m *Model) Create(ctx context.Context, data map[string]any, opts ...WriteOption) (record.Record, error) {
	ref, data, err := m.create(ctx, data, newWriteConfig(opts))
	if err != nil {
		return nil, err
	}
	return record.New(ref.ID, data), nil
}

// CreateRaw is Create returning the store reference instead of a record.
func (m *Model) CreateRaw(ctx context.Context, data map[string]any, opts ...WriteOption) (*store.DocumentRef, error) {
	ref, _, err := m.create(ctx, data, newWriteConfig(opts))
	return ref, err
}

func (m *Model) create(ctx context.Context, data map[string]any, cfg writeConfig) (*store.DocumentRef, map[string]any, error) {
	if !cfg.skipValidation {
		var err error
		if data, err = m.schema.Validate(ctx, schema.Create, m.collection, data); err != nil {
			return nil, nil, err
		}
	}
	if data == nil {
		data = map[string]any{}
	}

	coll := m.ref()
	if cfg.id != "" {
		ref := coll.Doc(cfg.id)
		if err := ref.Set(ctx, data); err != nil {
			return nil, nil, err
		}
		m.logger.Debug("record created", "id", ref.ID, "explicit_id", true)
		return ref, data, nil
	}

	ref, err := coll.Add(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	m.logger.Debug("record created", "id", ref.ID, "explicit_id", false)
	return ref, data, nil
}

// FindByID returns the record with the given id, or nil when there is none.
func (m *Model) FindByID(ctx context.Context, id string) (record.Record, error) {
	snap, err := m.FindByIDRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	return record.Format(snap), nil
}

// FindByIDRaw returns the store snapshot for id. Check Exists on the result.
func (m *Model) FindByIDRaw(ctx context.Context, id string) (*store.DocumentSnapshot, error) {
	snap, err := m.ref().Doc(id).Get(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("record looked up", "id", id, "found", snap.Exists())
	return snap, nil
}

// Find returns a fresh query over the model's collection.
func (m *Model) Find() query.Query {
	return query.New(m.ref(), m.logger)
}

// UpdateByID validates data in update mode and merges it into the existing
// record; fields not mentioned keep their values. It returns id. Updating a
// missing record fails with store.ErrNotFound.
func (m *Model) UpdateByID(ctx context.Context, id string, data map[string]any, opts ...WriteOption) (string, error) {
	cfg := newWriteConfig(opts)
	if !cfg.skipValidation {
		var err error
		if data, err = m.schema.Validate(ctx, schema.Update, m.collection, data); err != nil {
			return "", err
		}
	}
	if err := m.ref().Doc(id).Update(ctx, data); err != nil {
		return "", err
	}
	m.logger.Debug("record updated", "id", id, "fields", len(data))
	return id, nil
}

// DeleteByID removes the record and returns id. Deleting a missing record
// succeeds.
func (m *Model) DeleteByID(ctx context.Context, id string) (string, error) {
	if err := m.ref().Doc(id).Delete(ctx); err != nil {
		return "", err
	}
	m.logger.Debug("record deleted", "id", id)
	return id, nil
}
