package filter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/applylens/inbox-policy/internal/core"
)

const plainMessage = "From: Shop Deals <deals@Shop.Example>\r\n" +
	"To: me@example.org\r\n" +
	"Subject: Weekend sale\r\n" +
	"Message-ID: <abc123@shop.example>\r\n" +
	"Date: Sun, 10 Mar 2024 09:30:00 +0000\r\n" +
	"List-Unsubscribe: <mailto:unsub@shop.example>\r\n" +
	"X-Gmail-Labels: Inbox, Promotions ,\r\n" +
	"\r\n" +
	"Everything 20% off until Sunday.\r\n"

const htmlMessage = "From: news@example.com\r\n" +
	"Subject: HTML only\r\n" +
	"Date: not a date\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Hello there</p>\r\n"

type fakePipeline struct {
	report *core.Report
	err    error
	seen   []core.Email
}

func (p *fakePipeline) Process(ctx context.Context, email core.Email) (*core.Report, error) {
	p.seen = append(p.seen, email)
	if p.err != nil {
		return nil, p.err
	}
	r := *p.report
	r.Email = email
	return &r, nil
}

func TestParseMessage(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	email, err := ParseMessage([]byte(plainMessage), fallback)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	if email.ID != "abc123@shop.example" {
		t.Errorf("ID = %q", email.ID)
	}
	if email.SenderDomain != "shop.example" {
		t.Errorf("SenderDomain = %q", email.SenderDomain)
	}
	if email.Subject != "Weekend sale" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if !strings.Contains(email.BodyText, "20% off") {
		t.Errorf("BodyText = %q", email.BodyText)
	}
	if !email.ReceivedAt.Equal(time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("ReceivedAt = %v", email.ReceivedAt)
	}
	if !email.HasUnsubscribeHeader {
		t.Error("HasUnsubscribeHeader = false")
	}
	if len(email.ExistingLabels) != 2 || email.ExistingLabels[1] != "Promotions" {
		t.Errorf("ExistingLabels = %q", email.ExistingLabels)
	}
}

func TestParseMessageFallbacks(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	email, err := ParseMessage([]byte(htmlMessage), fallback)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	if email.ID == "" {
		t.Error("expected a generated id")
	}
	if !email.ReceivedAt.Equal(fallback) {
		t.Errorf("ReceivedAt = %v, want fallback", email.ReceivedAt)
	}
	if !strings.Contains(email.BodyText, "Hello there") {
		t.Errorf("BodyText = %q", email.BodyText)
	}
	if email.HasUnsubscribeHeader || email.ExistingLabels != nil {
		t.Errorf("unexpected headers: %+v", email)
	}
}

func TestAnnotate(t *testing.T) {
	raw := []byte("From: a@b.c\r\nSubject: Hello\r\n  folded part\r\nTo: d@e.f\r\n\r\nBody line\r\n\r\nSecond paragraph")

	tests := []struct {
		name     string
		subject  string
		contains []string
		excludes []string
	}{
		{
			name:     "headers only",
			contains: []string{"X-Test: 1\r\nFrom: a@b.c\r\nSubject: Hello\r\n  folded part\r\nTo: d@e.f\r\n\r\nBody line\r\n\r\nSecond paragraph"},
		},
		{
			name:     "subject replaced",
			subject:  "[QUARANTINE] Hello",
			contains: []string{"X-Test: 1\r\nSubject: [QUARANTINE] Hello\r\nFrom: a@b.c\r\nTo: d@e.f\r\n"},
			excludes: []string{"folded part", "Subject: Hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(annotate(raw, []string{"X-Test: 1"}, tt.subject))
			for _, c := range tt.contains {
				if !strings.Contains(out, c) {
					t.Errorf("output %q missing %q", out, c)
				}
			}
			for _, e := range tt.excludes {
				if strings.Contains(out, e) {
					t.Errorf("output %q contains %q", out, e)
				}
			}
		})
	}
}

func TestAnnotateLFAndHeadersOnly(t *testing.T) {
	out := annotate([]byte("From: a@b.c\nSubject: x\n\nbody\n"), []string{"X-A: 1"}, "")
	if !bytes.Equal(out, []byte("X-A: 1\r\nFrom: a@b.c\r\nSubject: x\r\n\r\nbody\n")) {
		t.Errorf("got %q", out)
	}

	out = annotate([]byte("From: a@b.c"), []string{"X-A: 1"}, "")
	if !bytes.Equal(out, []byte("X-A: 1\r\nFrom: a@b.c\r\n\r\n")) {
		t.Errorf("got %q", out)
	}
}

func testReport() *core.Report {
	expires := time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)
	return &core.Report{
		Result: core.ClassificationResult{
			Category:   core.CategorySecurity,
			RiskScore:  85,
			Confidence: 0.9375,
			Tags:       []string{"phishing-suspect", "urgent"},
			ExpiresAt:  &expires,
		},
		Decisions: []core.Decision{
			{Action: core.ProposedAction{PolicyID: "phishing-quarantine", ActionType: core.ActionQuarantine}, Allowed: true},
			{Action: core.ProposedAction{PolicyID: "high-risk-block", ActionType: core.ActionBlock}, Allowed: false, Reason: "x"},
		},
		Advice: &core.Advice{Category: core.CategorySecurity, Confidence: 0.8, ModelUsed: "m"},
	}
}

func TestReportHeaders(t *testing.T) {
	got := reportHeaders("X-AL", testReport(), nil)
	want := []string{
		"X-AL-Category: security",
		"X-AL-Risk-Score: 85",
		"X-AL-Confidence: 0.94",
		"X-AL-Tags: phishing-suspect, urgent",
		"X-AL-Expires-At: 2024-03-10T23:59:59Z",
		"X-AL-Actions: quarantine (phishing-quarantine)",
		"X-AL-Advisor: security (0.80, m)",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}

	got = reportHeaders("X-AL", nil, errors.New("bad\n  input"))
	if len(got) != 1 || got[0] != "X-AL-Error: bad input" {
		t.Errorf("error headers = %q", got)
	}
}

func TestHandle(t *testing.T) {
	blockReport := &core.Report{Decisions: []core.Decision{
		{Action: core.ProposedAction{PolicyID: "high-risk-block", ActionType: core.ActionBlock}, Allowed: true},
	}}

	tests := []struct {
		name     string
		cfg      PostfixConfig
		pipeline *fakePipeline
		reject   bool
		contains []string
	}{
		{
			name:     "annotates",
			pipeline: &fakePipeline{report: testReport()},
			contains: []string{"X-ApplyLens-Category: security", "Subject: Weekend sale"},
		},
		{
			name:     "quarantine subject",
			cfg:      PostfixConfig{ModifySubject: true},
			pipeline: &fakePipeline{report: testReport()},
			contains: []string{"Subject: [QUARANTINE] Weekend sale"},
		},
		{
			name:     "reject block",
			cfg:      PostfixConfig{RejectBlocked: true},
			pipeline: &fakePipeline{report: blockReport},
			reject:   true,
		},
		{
			name:     "block annotated when not rejecting",
			pipeline: &fakePipeline{report: blockReport},
			contains: []string{"X-ApplyLens-Actions: block (high-risk-block)"},
		},
		{
			name:     "pipeline error",
			pipeline: &fakePipeline{err: errors.New("audit store down")},
			contains: []string{"X-ApplyLens-Error: audit store down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewPostfixFilter(tt.pipeline, zap.NewNop(), tt.cfg)
			out, err := f.handle(context.Background(), []byte(plainMessage))

			if tt.reject {
				var smtpErr *smtp.SMTPError
				if !errors.As(err, &smtpErr) || smtpErr.Code != 550 {
					t.Fatalf("err = %v, want 550 rejection", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("handle: %v", err)
			}
			for _, c := range tt.contains {
				if !strings.Contains(string(out), c) {
					t.Errorf("output missing %q:\n%s", c, out)
				}
			}
			if !strings.HasSuffix(string(out), "Everything 20% off until Sunday.\r\n") {
				t.Errorf("body not preserved:\n%s", out)
			}
			if len(tt.pipeline.seen) != 1 || tt.pipeline.seen[0].ID != "abc123@shop.example" {
				t.Errorf("pipeline saw %+v", tt.pipeline.seen)
			}
		})
	}
}

func TestCliFilterProcessRaw(t *testing.T) {
	var out bytes.Buffer
	p := &fakePipeline{report: testReport()}
	f := NewCliFilter(p, zap.NewNop(), &out, true)

	report, err := f.ProcessRaw(context.Background(), []byte(plainMessage))
	if err != nil {
		t.Fatalf("ProcessRaw: %v", err)
	}
	if report.Email.ID != "abc123@shop.example" {
		t.Errorf("report email = %+v", report.Email)
	}

	text := out.String()
	for _, want := range []string{
		"=== Email Summary ===",
		"Subject: Weekend sale",
		"=== Classification ===",
		"Category: security",
		"quarantine via phishing-quarantine (confidence 0.00) -> allowed",
		"block via high-risk-block (confidence 0.00) -> blocked: x",
		"=== Advisor ===",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestCliFilterNoDecisions(t *testing.T) {
	var out bytes.Buffer
	f := NewCliFilter(&fakePipeline{report: &core.Report{}}, zap.NewNop(), &out, false)
	f.PrintReport(&core.Report{Result: core.ClassificationResult{Category: core.CategoryPersonal}}, 0)

	if !strings.Contains(out.String(), "No policy matched") {
		t.Errorf("output = %q", out.String())
	}
	if strings.Contains(out.String(), "Processing time") {
		t.Errorf("zero duration printed: %q", out.String())
	}
}
