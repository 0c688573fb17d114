package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/applylens/inbox-policy/internal/adapters/audit"
	"github.com/applylens/inbox-policy/internal/classifier"
	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/inbox"
	"github.com/applylens/inbox-policy/internal/policy"
	"github.com/applylens/inbox-policy/internal/safety"
)

const invoiceJSON = `{"id":"inv-1","sender":"billing@utility.example","subject":"Your invoice","body_text":"Your statement is ready. Amount due: $42."}`

type brokenPipeline struct{ Pipeline }

func (brokenPipeline) Process(ctx context.Context, email core.Email) (*core.Report, error) {
	return nil, errors.New("boom")
}

func newTestServer(t *testing.T, store core.AuditRepository) *Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := inbox.NewService(classifier.New(nil, logger), policy.DefaultPolicies(), safety.NewGate(), store, logger)
	return NewServer(svc, store, logger, "127.0.0.1:0", gin.TestMode)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Status   string `json:"status"`
		Policies int    `json:"policies"`
	}
	decode(t, w, &body)
	if body.Status != "ok" || body.Policies != len(policy.DefaultPolicies()) {
		t.Errorf("body = %+v", body)
	}
}

func TestClassify(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodPost, "/v1/classify", invoiceJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var result core.ClassificationResult
	decode(t, w, &result)
	if result.EmailID != "inv-1" || result.Category != core.CategoryBills {
		t.Errorf("result = %+v", result)
	}
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name, path, body string
	}{
		{"classify invalid json", "/v1/classify", "{"},
		{"classify missing id", "/v1/classify", `{"subject":"hi"}`},
		{"process missing id", "/v1/process", `{"subject":"hi"}`},
		{"evaluate missing id", "/v1/evaluate", `{"email":{"subject":"hi"}}`},
		{"evaluate unknown category", "/v1/evaluate", `{"email":{"id":"a"},"result":{"category":"spam"}}`},
		{"batch missing id", "/v1/process/batch", `{"emails":[{"id":"a"},{"subject":"b"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, s, http.MethodPost, tt.path, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestEvaluateWithSuppliedResult(t *testing.T) {
	store := audit.NewMemoryStore(nil, 0, 0)
	defer store.Stop()
	s := newTestServer(t, store)

	body := `{"email":{"id":"a","sender":"x@y.example"},"result":{"category":"bills","risk_score":10,"confidence":0.9}}`
	w := do(t, s, http.MethodPost, "/v1/evaluate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp evaluateResponse
	decode(t, w, &resp)
	if resp.Result.EmailID != "a" {
		t.Errorf("EmailID = %q, want filled from email", resp.Result.EmailID)
	}
	if len(resp.Decisions) != 1 || resp.Decisions[0].Action.PolicyID != "bills-label" {
		t.Errorf("decisions = %+v", resp.Decisions)
	}

	entries, _ := store.List(context.Background(), core.AuditFilter{})
	if len(entries) != 0 {
		t.Errorf("evaluate persisted %d audit entries", len(entries))
	}
}

func TestProcessAndAudit(t *testing.T) {
	store := audit.NewMemoryStore(nil, 0, 0)
	defer store.Stop()
	s := newTestServer(t, store)

	w := do(t, s, http.MethodPost, "/v1/process", invoiceJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var report core.Report
	decode(t, w, &report)
	if len(report.Decisions) != 1 || !report.Decisions[0].Allowed {
		t.Fatalf("decisions = %+v", report.Decisions)
	}

	w = do(t, s, http.MethodGet, "/v1/audit?email_id=inv-1&allowed=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit status = %d", w.Code)
	}
	var listed struct {
		Entries []core.AuditEntry `json:"entries"`
	}
	decode(t, w, &listed)
	if len(listed.Entries) != 1 || listed.Entries[0].ID != report.Decisions[0].Audit.ID {
		t.Errorf("entries = %+v", listed.Entries)
	}

	for _, q := range []string{"allowed=maybe", "since=yesterday", "limit=-1"} {
		if w := do(t, s, http.MethodGet, "/v1/audit?"+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestAuditDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	if w := do(t, s, http.MethodGet, "/v1/audit", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestProcessFailure(t *testing.T) {
	s := NewServer(brokenPipeline{}, nil, zaptest.NewLogger(t), "", gin.TestMode)
	if w := do(t, s, http.MethodPost, "/v1/process", invoiceJSON); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestProcessBatch(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"emails":[` + invoiceJSON + `,{"id":"note-1","sender":"friend@mail.example","subject":"lunch?","body_text":"are you free"}]}`
	w := do(t, s, http.MethodPost, "/v1/process/batch", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Reports []core.Report `json:"reports"`
	}
	decode(t, w, &resp)
	if len(resp.Reports) != 2 || resp.Reports[0].Email.ID != "inv-1" || resp.Reports[1].Email.ID != "note-1" {
		t.Errorf("reports = %+v", resp.Reports)
	}
}

func TestPolicies(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(t, s, http.MethodGet, "/v1/policies", "")
	var resp struct {
		Policies []core.Policy `json:"policies"`
	}
	decode(t, w, &resp)
	if len(resp.Policies) != len(policy.DefaultPolicies()) {
		t.Errorf("got %d policies", len(resp.Policies))
	}
}
