package features

import (
	"reflect"
	"testing"

	"github.com/applylens/inbox-policy/internal/core"
)

func newTestExtractor() *Extractor {
	return NewExtractor(DefaultConfig(), nil, nil)
}

func TestExtractEmptyEmail(t *testing.T) {
	f := newTestExtractor().Extract(core.Email{})

	if f.Subject != "" || f.Body != "" || f.SenderDomain != "" {
		t.Errorf("expected empty text fields, got %+v", f)
	}
	if f.URLCount != 0 || f.SpoofedBrand != "" || f.ATSDomain != "" {
		t.Errorf("expected no signals, got %+v", f)
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		field   func(Features) []string
		want    []string
	}{
		{"deal percent", "40% OFF everything", "", func(f Features) []string { return f.DealKeywords }, []string{"% off"}},
		{"bill invoice", "Your invoice", "Amount due on Friday", func(f Features) []string { return f.BillKeywords }, []string{"invoice", "due", "amount due"}},
		{"security reset", "Password reset requested", "", func(f Features) []string { return f.SecurityKeywords }, []string{"password reset"}},
		{"money request", "", "Please buy a gift card and send a wire transfer", func(f Features) []string { return f.MoneyRequestKeywords }, []string{"wire transfer", "gift card"}},
		{"credential phishing", "", "Verify your credentials now", func(f Features) []string { return f.CredentialPhishing }, []string{CredentialPhishingPatterns[0]}},
		{"word boundary", "Salesforce update", "", func(f Features) []string { return f.DealKeywords }, nil},
		{"job", "Interview invitation", "", func(f Features) []string { return f.JobKeywords }, []string{"interview"}},
	}

	x := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := x.Extract(core.Email{Subject: tt.subject, BodyText: tt.body})
			if got := tt.field(f); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractSenderDomain(t *testing.T) {
	tests := []struct {
		name  string
		email core.Email
		want  string
	}{
		{"explicit", core.Email{SenderDomain: "Example.COM."}, "example.com"},
		{"from address", core.Email{Sender: "Jane <jane@Mail.Example.org>"}, "mail.example.org"},
		{"bare address", core.Email{Sender: "bob@lever.co"}, "lever.co"},
		{"no address", core.Email{Sender: "Just A Name"}, ""},
	}

	x := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := x.Extract(tt.email).SenderDomain; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractATSDomain(t *testing.T) {
	f := newTestExtractor().Extract(core.Email{Sender: "no-reply@boards.greenhouse.io"})
	if f.ATSDomain != "greenhouse.io" {
		t.Errorf("ATSDomain = %q, want greenhouse.io", f.ATSDomain)
	}
}

func TestExtractURLs(t *testing.T) {
	body := "See https://bit.ly/x1 and http://192.168.0.1/login and https://example.com/page and www.tinyurl.com/abc"
	f := newTestExtractor().Extract(core.Email{BodyText: body})

	if f.URLCount != 4 {
		t.Errorf("URLCount = %d, want 4", f.URLCount)
	}
	if f.ShortenedURLCount != 2 {
		t.Errorf("ShortenedURLCount = %d, want 2", f.ShortenedURLCount)
	}
	if f.SuspiciousURLCount != 3 {
		t.Errorf("SuspiciousURLCount = %d, want 3", f.SuspiciousURLCount)
	}
}

func TestExtractBrands(t *testing.T) {
	tests := []struct {
		name    string
		email   core.Email
		spoofed string
		brands  []string
	}{
		{
			name:    "display name spoof",
			email:   core.Email{Sender: "PayPal Support <help@secure-mail.net>"},
			spoofed: "paypal",
		},
		{
			name:    "domain token spoof",
			email:   core.Email{Sender: "alerts@paypal-verify-secure.net", Subject: "Your PayPal account is limited"},
			spoofed: "paypal",
		},
		{
			name:  "domain token without brand claim",
			email: core.Email{Sender: "mom@chase-family.org", Subject: "Photos from the reunion"},
		},
		{
			name:  "orchard domain",
			email: core.Email{Sender: "Orchard Team <hello@apple-farm.org>", Subject: "Pick your own this weekend"},
		},
		{
			name:  "freemail sender",
			email: core.Email{Sender: "Jane <jane.doe@gmail.com>", Subject: "Dinner on Friday?"},
		},
		{
			name:   "freemail sender naming the brand",
			email:  core.Email{Sender: "jane.doe@gmail.com", Subject: "Shared a Google doc with you"},
			brands: []string{"google"},
		},
		{
			name:   "legitimate sender",
			email:  core.Email{Sender: "Amazon <deals@amazon.com>"},
			brands: []string{"amazon"},
		},
		{
			name:   "legitimate subdomain",
			email:  core.Email{Sender: "store-news@email.apple.com"},
			brands: []string{"apple"},
		},
		{
			name:   "brand in subject only",
			email:  core.Email{Sender: "friend@example.org", Subject: "My new Netflix show"},
			brands: []string{"netflix"},
		},
	}

	x := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := x.Extract(tt.email)
			if f.SpoofedBrand != tt.spoofed {
				t.Errorf("SpoofedBrand = %q, want %q", f.SpoofedBrand, tt.spoofed)
			}
			if !reflect.DeepEqual(f.Brands, tt.brands) {
				t.Errorf("Brands = %v, want %v", f.Brands, tt.brands)
			}
		})
	}
}

func TestExtractFoldsText(t *testing.T) {
	f := newTestExtractor().Extract(core.Email{Subject: "  ＵＲＧＥＮＴ Notice  "})
	if f.Subject != "urgent notice" {
		t.Errorf("Subject = %q, want %q", f.Subject, "urgent notice")
	}
	if len(f.UrgentKeywords) != 1 {
		t.Errorf("UrgentKeywords = %v, want [urgent]", f.UrgentKeywords)
	}
}

func TestExtractTruncatesBody(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodySize = 10
	f := NewExtractor(cfg, nil, nil).Extract(core.Email{BodyText: "0123456789 invoice"})
	if len(f.BillKeywords) != 0 {
		t.Errorf("expected keyword past the body limit to be ignored, got %v", f.BillKeywords)
	}
}
