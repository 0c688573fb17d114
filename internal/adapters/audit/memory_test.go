package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/applylens/inbox-policy/internal/core"
)

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func entry(id, emailID, policyID string, allowed bool, age time.Duration) core.AuditEntry {
	e := core.AuditEntry{
		ID:         id,
		EmailID:    emailID,
		ActionType: core.ActionArchive,
		Actor:      core.AuditActor,
		PolicyID:   policyID,
		Confidence: 0.7,
		Rationale:  "Policy " + policyID + " matched",
		Allowed:    allowed,
		CreatedAt:  base.Add(-age),
	}
	if !allowed {
		e.ReasonIfBlocked = "confidence below threshold for low action"
	}
	return e
}

func seed(t *testing.T, repo core.AuditRepository) {
	t.Helper()
	entries := []core.AuditEntry{
		entry("a", "e1", "p1", true, 3*time.Hour),
		entry("b", "e1", "p2", false, 2*time.Hour),
		entry("c", "e2", "p1", true, time.Hour),
		entry("d", "e3", "p1", false, 0),
	}
	for _, e := range entries {
		if err := repo.Record(context.Background(), e); err != nil {
			t.Fatalf("Record(%s): %v", e.ID, err)
		}
	}
}

func ids(entries []core.AuditEntry) string {
	out := ""
	for _, e := range entries {
		out += e.ID
	}
	return out
}

// listCases is shared by every store implementation
var listCases = []struct {
	name   string
	filter core.AuditFilter
	want   string
}{
	{"all newest first", core.AuditFilter{}, "dcba"},
	{"by email", core.AuditFilter{EmailID: "e1"}, "ba"},
	{"by policy", core.AuditFilter{PolicyID: "p1"}, "dca"},
	{"blocked only", core.AuditFilter{Allowed: boolPtr(false)}, "db"},
	{"allowed only", core.AuditFilter{Allowed: boolPtr(true)}, "ca"},
	{"since", core.AuditFilter{Since: base.Add(-90 * time.Minute)}, "dc"},
	{"limit", core.AuditFilter{Limit: 2}, "dc"},
	{"combined", core.AuditFilter{PolicyID: "p1", Allowed: boolPtr(true), Limit: 1}, "c"},
}

func boolPtr(b bool) *bool { return &b }

func runListCases(t *testing.T, repo core.AuditRepository) {
	for _, tt := range listCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if ids(got) != tt.want {
				t.Errorf("got %q, want %q", ids(got), tt.want)
			}
		})
	}
}

func TestMemoryStoreList(t *testing.T) {
	s := NewMemoryStore(zaptest.NewLogger(t), 0, 0)
	defer s.Stop()

	seed(t, s)
	runListCases(t, s)
}

func TestMemoryStoreGet(t *testing.T) {
	s := NewMemoryStore(nil, 0, 0)
	defer s.Stop()
	seed(t, s)

	got, err := s.Get(context.Background(), "b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != entry("b", "e1", "p2", false, 2*time.Hour) {
		t.Errorf("got %+v", got)
	}

	if _, err := s.Get(context.Background(), "zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	s := NewMemoryStore(nil, 0, 0)
	defer s.Stop()
	seed(t, s)

	if err := s.Cleanup(context.Background(), base.Add(-90*time.Minute)); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	got, _ := s.List(context.Background(), core.AuditFilter{})
	if ids(got) != "dc" {
		t.Errorf("after cleanup got %q, want %q", ids(got), "dc")
	}
}

func TestMemoryStoreDefaultLimit(t *testing.T) {
	s := NewMemoryStore(nil, 0, 0)
	defer s.Stop()

	for i := 0; i < DefaultListLimit+10; i++ {
		e := entry(fmt.Sprintf("id-%03d", i), "e", "p", true, time.Duration(i)*time.Second)
		if err := s.Record(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := s.List(context.Background(), core.AuditFilter{})
	if len(got) != DefaultListLimit {
		t.Errorf("got %d entries, want %d", len(got), DefaultListLimit)
	}
}

func TestMemoryStoreRetention(t *testing.T) {
	s := NewMemoryStore(nil, time.Minute, 10*time.Millisecond)
	defer s.Stop()

	old := entry("old", "e", "p", true, 0)
	old.CreatedAt = time.Now().Add(-time.Hour)
	fresh := entry("fresh", "e", "p", true, 0)
	fresh.CreatedAt = time.Now()
	s.Record(context.Background(), old)
	s.Record(context.Background(), fresh)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := s.List(context.Background(), core.AuditFilter{})
		if ids(got) == "fresh" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expired entry was not cleaned up")
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewMemoryStore(nil, time.Minute, time.Second)
	s.Stop()
	s.Stop()
}

func TestListQuery(t *testing.T) {
	allowed := true
	query, args := listQuery("audit_entries", core.AuditFilter{
		EmailID: "e1",
		Allowed: &allowed,
		Since:   base,
		Limit:   5,
	}, timeValue)

	want := "SELECT " + columns + " FROM audit_entries WHERE email_id = ? AND allowed = ? AND created_at >= ? ORDER BY created_at DESC, id LIMIT ?"
	if query != want {
		t.Errorf("query = %q\nwant    %q", query, want)
	}
	if len(args) != 4 || args[0] != "e1" || args[1] != true || args[3] != 5 {
		t.Errorf("args = %v", args)
	}
}
