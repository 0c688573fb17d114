package policystore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/policy"
)

const onePolicy = `policies:
  - id: bills-label
    condition: {field: category, op: "=", value: bills}
    action: {type: label, params: {label: Bills}}
`

const twoPolicies = onePolicy + `  - id: ats-label
    condition: {field: category, op: "=", value: applications}
    action: {type: label}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	writeFile(t, path, onePolicy)

	src := NewFileSource(path)
	policies, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(policies) != 1 || policies[0].ID != "bills-label" {
		t.Errorf("got %+v", policies)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Load(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestStaticSourceReturnsCopy(t *testing.T) {
	src := NewStaticSource(policy.DefaultPolicies())
	first, _ := src.Load(context.Background())
	first[0].ID = "changed"

	second, _ := src.Load(context.Background())
	if second[0].ID == "changed" {
		t.Error("static source shares its slice")
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.yaml")
	writeFile(t, path, onePolicy)

	var (
		mu      sync.Mutex
		applied [][]core.Policy
	)
	apply := func(p []core.Policy) {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, p)
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(applied)
	}

	w, err := NewWatcher(NewFileSource(path), apply, zaptest.NewLogger(t), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// unrelated files in the directory are ignored
	writeFile(t, filepath.Join(dir, "other.yaml"), "junk")
	// an invalid policy file keeps the current set
	writeFile(t, path, "- id: x\n  action: {type: explode}\n")
	time.Sleep(100 * time.Millisecond)
	if n := count(); n != 0 {
		t.Fatalf("applied %d times, want 0", n)
	}

	writeFile(t, path, twoPolicies)
	deadline := time.Now().Add(2 * time.Second)
	for count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(applied) == 0 {
		t.Fatal("policy file change was not applied")
	}
	if last := applied[len(applied)-1]; len(last) != 2 {
		t.Errorf("applied %d policies, want 2", len(last))
	}
}
