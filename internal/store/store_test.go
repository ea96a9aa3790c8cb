package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/sieve/internal/jsonschema"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testFilters() jsonschema.FilterSet {
	return jsonschema.FilterSet{
		{
			Type:       jsonschema.TypeList{jsonschema.TypeObject},
			Properties: map[string]*jsonschema.Schema{"status": {Const: jsonschema.NewConst("online")}},
			Required:   []string{"status"},
		},
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"kv", "views"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.expected); err != nil {
			t.Error(err)
		}
	}
}

func TestKV(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want absent", ok, err)
	}

	if err := s.Put(ctx, "devices", []byte("0[0][n]=id")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := s.Put(ctx, "devices", []byte("0[0][n]=tags")); err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}

	v, ok, err := s.Get(ctx, "devices")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if string(v) != "0[0][n]=tags" {
		t.Errorf("Get() = %q, want replaced value", v)
	}

	if err := s.Delete(ctx, "devices"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := s.Delete(ctx, "devices"); err != nil {
		t.Fatalf("Delete() of absent key failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "devices"); ok {
		t.Error("key still present after Delete()")
	}
}

func TestWriteView_InsertAndRead(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	saved, err := s.WriteView(ctx, View{
		ID:         "view-1",
		Collection: "devices",
		Name:       "online",
		Filters:    testFilters(),
		FilterHash: "hash-1",
		Query:      "0[0][n]=status&0[0][o]=is&0[0][v]=online",
	})
	if err != nil {
		t.Fatalf("WriteView() failed: %v", err)
	}
	if saved.Seq != 1 {
		t.Errorf("Seq = %d, want 1", saved.Seq)
	}

	got, err := s.ReadView(ctx, "view-1")
	if err != nil {
		t.Fatalf("ReadView() failed: %v", err)
	}
	want, _ := jsonschema.MarshalCanonical(testFilters())
	have, _ := jsonschema.MarshalCanonical(got.Filters)
	if string(want) != string(have) {
		t.Errorf("filters = %s, want %s", have, want)
	}
	if got.Name != "online" || got.Query != saved.Query || got.FilterHash != "hash-1" {
		t.Errorf("ReadView() = %+v", got)
	}

	byName, err := s.ReadViewByName(ctx, "devices", "online")
	if err != nil {
		t.Fatalf("ReadViewByName() failed: %v", err)
	}
	if byName.ID != "view-1" {
		t.Errorf("ReadViewByName().ID = %q", byName.ID)
	}
}

func TestWriteView_ReplacesByName(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first, err := s.WriteView(ctx, View{ID: "view-1", Collection: "devices", Name: "mine", FilterHash: "a"})
	if err != nil {
		t.Fatalf("WriteView() failed: %v", err)
	}
	second, err := s.WriteView(ctx, View{ID: "view-2", Collection: "devices", Name: "mine", FilterHash: "b"})
	if err != nil {
		t.Fatalf("second WriteView() failed: %v", err)
	}
	if second.ID != first.ID || second.Seq != first.Seq {
		t.Errorf("replaced view = (%s, %d), want (%s, %d)", second.ID, second.Seq, first.ID, first.Seq)
	}

	views, err := s.ListViews(ctx, "devices")
	if err != nil {
		t.Fatalf("ListViews() failed: %v", err)
	}
	if len(views) != 1 || views[0].FilterHash != "b" {
		t.Errorf("ListViews() = %+v, want one updated view", views)
	}
}

func TestListViews_DeterministicOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, v := range []View{
		{ID: "c", Collection: "devices", Name: "third"},
		{ID: "a", Collection: "devices", Name: "fourth"},
		{ID: "z", Collection: "fleets", Name: "other"},
		{ID: "b", Collection: "devices", Name: "fifth"},
	} {
		if _, err := s.WriteView(ctx, v); err != nil {
			t.Fatalf("WriteView(%s) failed: %v", v.ID, err)
		}
	}

	views, err := s.ListViews(ctx, "devices")
	if err != nil {
		t.Fatalf("ListViews() failed: %v", err)
	}
	var ids []string
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Errorf("ListViews() ids = %v, want [c a b]", ids)
	}

	empty, err := s.ListViews(ctx, "unknown")
	if err != nil {
		t.Fatalf("ListViews(unknown) failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListViews(unknown) = %#v, want empty non-nil slice", empty)
	}
}

func TestDeleteView(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	if _, err := s.WriteView(ctx, View{ID: "view-1", Collection: "devices", Name: "x"}); err != nil {
		t.Fatalf("WriteView() failed: %v", err)
	}
	if err := s.DeleteView(ctx, "view-1"); err != nil {
		t.Fatalf("DeleteView() failed: %v", err)
	}
	if err := s.DeleteView(ctx, "view-1"); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("second DeleteView() = %v, want ErrViewNotFound", err)
	}
	if _, err := s.ReadView(ctx, "view-1"); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("ReadView() after delete = %v, want ErrViewNotFound", err)
	}
}
