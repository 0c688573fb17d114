package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"), nil, 0, 0)
	if err != nil {
		// mattn/go-sqlite3 needs cgo
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestSQLiteStoreList(t *testing.T) {
	s := newSQLiteStore(t)
	seed(t, s)
	runListCases(t, s)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)

	want := entry("x", "e9", "p9", false, 0)
	want.CreatedAt = time.Date(2024, 3, 10, 12, 0, 0, 123456789, time.UTC)
	if err := s.Record(context.Background(), want); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := s.Get(context.Background(), "x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, err := s.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreCleanup(t *testing.T) {
	s := newSQLiteStore(t)
	seed(t, s)

	if err := s.Cleanup(context.Background(), base.Add(-90*time.Minute)); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	got, err := s.List(context.Background(), core.AuditFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if ids(got) != "dc" {
		t.Errorf("got %q, want %q", ids(got), "dc")
	}
}
