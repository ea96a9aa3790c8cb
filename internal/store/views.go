package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sieve/internal/jsonschema"
)

// ErrViewNotFound is returned when a view id or name does not exist.
var ErrViewNotFound = errors.New("view not found")

// View is a named filter set saved for a collection.
type View struct {
	ID         string
	Collection string
	Name       string
	Filters    jsonschema.FilterSet
	FilterHash string

	// Query is the URL query string encoding of Filters.
	Query string

	// Seq orders views by insertion. Assigned by WriteView.
	Seq int64
}

// WriteView inserts a view, or replaces the view with the same collection
// and name. A replaced view keeps its id and seq. Returns the stored view.
func (s *Store) WriteView(ctx context.Context, v View) (View, error) {
	filtersJSON, err := marshalFilters(v.Filters)
	if err != nil {
		return View{}, fmt.Errorf("write view: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return View{}, fmt.Errorf("write view: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	var existingSeq int64
	err = tx.QueryRowContext(ctx, `
		SELECT id, seq FROM views WHERE collection = ? AND name = ?
	`, v.Collection, v.Name).Scan(&existingID, &existingSeq)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM views`).Scan(&v.Seq); err != nil {
			return View{}, fmt.Errorf("write view: next seq: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO views (id, collection, name, filters, filter_hash, query, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.Collection, v.Name, filtersJSON, v.FilterHash, v.Query, v.Seq)
	case err == nil:
		v.ID, v.Seq = existingID, existingSeq
		_, err = tx.ExecContext(ctx, `
			UPDATE views SET filters = ?, filter_hash = ?, query = ? WHERE id = ?
		`, filtersJSON, v.FilterHash, v.Query, v.ID)
	}
	if err != nil {
		return View{}, fmt.Errorf("write view: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return View{}, fmt.Errorf("write view: commit: %w", err)
	}
	return v, nil
}

// ReadView retrieves a view by id.
// Returns ErrViewNotFound if not found.
func (s *Store) ReadView(ctx context.Context, id string) (View, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection, name, filters, filter_hash, query, seq
		FROM views
		WHERE id = ?
	`, id)
	return scanView(row)
}

// ReadViewByName retrieves a view by collection and name.
// Returns ErrViewNotFound if not found.
func (s *Store) ReadViewByName(ctx context.Context, collection, name string) (View, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection, name, filters, filter_hash, query, seq
		FROM views
		WHERE collection = ? AND name = ?
	`, collection, name)
	return scanView(row)
}

// ListViews returns the views of a collection ordered by seq.
// Returns an empty slice (not nil) if the collection has no views.
func (s *Store) ListViews(ctx context.Context, collection string) ([]View, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, name, filters, filter_hash, query, seq
		FROM views
		WHERE collection = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("query views: %w", err)
	}
	defer rows.Close()

	views := []View{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate views: %w", err)
	}
	return views, nil
}

// DeleteView removes a view by id.
// Returns ErrViewNotFound if no view was deleted.
func (s *Store) DeleteView(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM views WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete view: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete view: %w", err)
	}
	if n == 0 {
		return ErrViewNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(row rowScanner) (View, error) {
	var v View
	var filtersJSON string
	err := row.Scan(&v.ID, &v.Collection, &v.Name, &filtersJSON, &v.FilterHash, &v.Query, &v.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return View{}, ErrViewNotFound
	}
	if err != nil {
		return View{}, fmt.Errorf("scan view: %w", err)
	}
	v.Filters, err = unmarshalFilters(filtersJSON)
	if err != nil {
		return View{}, fmt.Errorf("scan view %s: %w", v.ID, err)
	}
	return v, nil
}
