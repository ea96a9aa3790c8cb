// Package views saves named filter sets per collection.
//
// A view stores both the canonical filter set and its URL query encoding.
// Opening a view recompiles the query against the current collection
// schema, so a view saved before a schema change is rejected instead of
// applying stale filters.
package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/store"
	"github.com/roach88/sieve/internal/urlcodec"
)

// ErrEmptyName is returned when a view is saved without a name.
var ErrEmptyName = errors.New("view name must not be empty")

// Repository persists views. Implemented by *store.Store.
type Repository interface {
	WriteView(ctx context.Context, v store.View) (store.View, error)
	ReadViewByName(ctx context.Context, collection, name string) (store.View, error)
	ListViews(ctx context.Context, collection string) ([]store.View, error)
	DeleteView(ctx context.Context, id string) error
}

// IDGenerator produces view ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 view ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Manager saves and opens the views of one collection.
type Manager struct {
	repo       Repository
	codec      *urlcodec.Codec
	collection string
	ids        IDGenerator
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) {
		m.ids = g
	}
}

// NewManager creates a Manager for collection. codec must be built for the
// collection's schema.
func NewManager(repo Repository, codec *urlcodec.Codec, collection string, opts ...Option) *Manager {
	m := &Manager{repo: repo, codec: codec, collection: collection, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save stores set under name, replacing a view of the same name.
func (m *Manager) Save(ctx context.Context, name string, set jsonschema.FilterSet) (store.View, error) {
	if name == "" {
		return store.View{}, ErrEmptyName
	}
	query, err := urlcodec.EncodeQuery(set)
	if err != nil {
		return store.View{}, fmt.Errorf("save view %q: %w", name, err)
	}
	hash, err := jsonschema.ContentID(jsonschema.DomainView, set)
	if err != nil {
		return store.View{}, fmt.Errorf("save view %q: %w", name, err)
	}

	v, err := m.repo.WriteView(ctx, store.View{
		ID:         m.ids.Generate(),
		Collection: m.collection,
		Name:       name,
		Filters:    set,
		FilterHash: hash,
		Query:      query,
	})
	if err != nil {
		return store.View{}, err
	}
	slog.Info("view saved", "collection", m.collection, "name", name, "id", v.ID, "filters", len(set))
	return v, nil
}

// Open returns the filter set of a view, recompiled from its query.
func (m *Manager) Open(ctx context.Context, name string) (jsonschema.FilterSet, error) {
	v, err := m.repo.ReadViewByName(ctx, m.collection, name)
	if err != nil {
		return nil, fmt.Errorf("open view %q: %w", name, err)
	}
	set, err := m.codec.RestoreErr(v.Query)
	if err != nil {
		return nil, fmt.Errorf("open view %q: %w", name, err)
	}
	return set, nil
}

// Get returns the stored view.
func (m *Manager) Get(ctx context.Context, name string) (store.View, error) {
	return m.repo.ReadViewByName(ctx, m.collection, name)
}

// List returns the collection's views in save order.
func (m *Manager) List(ctx context.Context) ([]store.View, error) {
	return m.repo.ListViews(ctx, m.collection)
}

// Delete removes the view called name.
func (m *Manager) Delete(ctx context.Context, name string) error {
	v, err := m.repo.ReadViewByName(ctx, m.collection, name)
	if err != nil {
		return fmt.Errorf("delete view %q: %w", name, err)
	}
	if err := m.repo.DeleteView(ctx, v.ID); err != nil {
		return fmt.Errorf("delete view %q: %w", name, err)
	}
	slog.Info("view deleted", "collection", m.collection, "name", name, "id", v.ID)
	return nil
}
