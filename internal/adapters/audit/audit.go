package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"go.uber.org/zap"
)

// ErrNotFound is returned when an audit entry does not exist
var ErrNotFound = errors.New("audit entry not found")

// DefaultListLimit caps List results when the filter sets no limit
const DefaultListLimit = 100

const columns = "id, email_id, action_type, actor, policy_id, confidence, rationale, allowed, reason_if_blocked, created_at"

// retention periodically removes entries older than the retention window
type retention struct {
	cleanup func(ctx context.Context, before time.Time) error
	window  time.Duration
	freq    time.Duration
	logger  *zap.Logger
	stopCh  chan struct{}
	once    sync.Once
}

func startRetention(cleanup func(context.Context, time.Time) error, window, freq time.Duration, logger *zap.Logger) *retention {
	r := &retention{
		cleanup: cleanup,
		window:  window,
		freq:    freq,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
	if window > 0 && freq > 0 {
		go r.run()
	}
	return r
}

func (r *retention) run() {
	ticker := time.NewTicker(r.freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			before := time.Now().Add(-r.window)
			if err := r.cleanup(context.Background(), before); err != nil {
				r.logger.Error("Failed to clean up audit entries", zap.Error(err))
			}
		case <-r.stopCh:
			return
		}
	}
}

func (r *retention) stop() {
	r.once.Do(func() { close(r.stopCh) })
}

// listQuery builds the filtered select with "?" placeholders. timeArg
// converts time bounds to the driver's column representation.
func listQuery(table string, f core.AuditFilter, timeArg func(time.Time) interface{}) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if f.EmailID != "" {
		where = append(where, "email_id = ?")
		args = append(args, f.EmailID)
	}
	if f.PolicyID != "" {
		where = append(where, "policy_id = ?")
		args = append(args, f.PolicyID)
	}
	if f.Allowed != nil {
		where = append(where, "allowed = ?")
		args = append(args, *f.Allowed)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, timeArg(f.Since.UTC()))
	}

	var b strings.Builder
	b.WriteString("SELECT " + columns + " FROM " + table)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id LIMIT ?")
	args = append(args, limitOf(f))

	return b.String(), args
}

func timeValue(t time.Time) interface{} {
	return t
}

func limitOf(f core.AuditFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// matches applies the filter in memory
func matches(e core.AuditEntry, f core.AuditFilter) bool {
	if f.EmailID != "" && e.EmailID != f.EmailID {
		return false
	}
	if f.PolicyID != "" && e.PolicyID != f.PolicyID {
		return false
	}
	if f.Allowed != nil && e.Allowed != *f.Allowed {
		return false
	}
	if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}
