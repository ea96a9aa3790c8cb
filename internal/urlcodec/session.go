package urlcodec

import (
	"context"
	"log/slog"
	"strings"

	"github.com/roach88/sieve/internal/jsonschema"
)

// Navigator is the location whose search string carries the filter set.
type Navigator interface {
	// Search returns the current search string, with or without a leading "?".
	Search() string

	// Replace swaps the current search string without adding history.
	Replace(search string) error
}

// KV is a byte-oriented key/value store used to remember the last query.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Session binds a Codec to a location and a store. The location wins over
// the store: the stored query is only consulted when the location carries
// none.
type Session struct {
	codec *Codec
	nav   Navigator
	kv    KV
	key   string
}

// NewSession creates a Session persisting under key. kv may be nil.
func NewSession(codec *Codec, nav Navigator, kv KV, key string) *Session {
	return &Session{codec: codec, nav: nav, kv: kv, key: key}
}

// Save writes set to the location and the store.
func (s *Session) Save(ctx context.Context, set jsonschema.FilterSet) error {
	query, err := EncodeQuery(set)
	if err != nil {
		return err
	}
	if err := s.nav.Replace(query); err != nil {
		return err
	}
	if s.kv == nil {
		return nil
	}
	if query == "" {
		return s.kv.Delete(ctx, s.key)
	}
	return s.kv.Put(ctx, s.key, []byte(query))
}

// Load restores the filter set from the location, falling back to the
// store. An invalid query is cleared from both and yields an empty set;
// Load never fails.
func (s *Session) Load(ctx context.Context) jsonschema.FilterSet {
	query, source := strings.TrimPrefix(s.nav.Search(), "?"), "location"
	if query == "" && s.kv != nil {
		stored, ok, err := s.kv.Get(ctx, s.key)
		if err != nil {
			slog.Warn("failed to read stored filters", "key", s.key, "error", err)
		}
		if ok {
			query, source = string(stored), "store"
		}
	}
	if query == "" {
		return jsonschema.FilterSet{}
	}

	set, err := s.codec.RestoreErr(query)
	if err == nil {
		slog.Debug("filters restored", "source", source, "filters", len(set))
		return set
	}

	slog.Warn("discarding invalid filter query", "source", source, "error", err)
	if err := s.nav.Replace(""); err != nil {
		slog.Warn("failed to clear location", "error", err)
	}
	if s.kv != nil {
		if err := s.kv.Delete(ctx, s.key); err != nil {
			slog.Warn("failed to clear stored filters", "key", s.key, "error", err)
		}
	}
	return jsonschema.FilterSet{}
}
