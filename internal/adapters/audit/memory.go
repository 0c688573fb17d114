package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"go.uber.org/zap"
)

// MemoryStore keeps audit entries in process memory
type MemoryStore struct {
	entries   []core.AuditEntry
	mu        sync.RWMutex
	logger    *zap.Logger
	retention *retention
}

// NewMemoryStore creates an in-memory audit store. Entries older than the
// retention window are dropped every cleanupFreq; zero disables cleanup.
func NewMemoryStore(logger *zap.Logger, window, cleanupFreq time.Duration) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemoryStore{logger: logger}
	s.retention = startRetention(s.Cleanup, window, cleanupFreq, logger)
	return s
}

// Record appends an entry
func (s *MemoryStore) Record(ctx context.Context, entry core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	return nil
}

// Get returns the entry with the given id
func (s *MemoryStore) Get(ctx context.Context, id string) (core.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.AuditEntry{}, ErrNotFound
}

// List returns matching entries, newest first
func (s *MemoryStore) List(ctx context.Context, filter core.AuditFilter) ([]core.AuditEntry, error) {
	s.mu.RLock()
	out := make([]core.AuditEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if limit := limitOf(filter); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Cleanup removes entries created before the cutoff
func (s *MemoryStore) Cleanup(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept

	s.logger.Debug("Cleaned up audit entries", zap.Int("removed_count", removed))
	return nil
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.retention.stop()
}
