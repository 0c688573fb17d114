package features

import (
	"strings"
)

// Brand is a well-known sender whose name is commonly spoofed
type Brand struct {
	ID      string   `mapstructure:"id" yaml:"id"`
	Names   []string `mapstructure:"names" yaml:"names"`
	Domains []string `mapstructure:"domains" yaml:"domains"`
}

// DefaultBrands is the built-in brand table
func DefaultBrands() []Brand {
	return []Brand{
		{ID: "paypal", Names: []string{"paypal"}, Domains: []string{"paypal.com", "paypal.me"}},
		{ID: "amazon", Names: []string{"amazon"}, Domains: []string{"amazon.com", "amazon.co.uk", "amazon.de", "amazonses.com"}},
		{ID: "apple", Names: []string{"apple", "icloud"}, Domains: []string{"apple.com", "icloud.com"}},
		{ID: "microsoft", Names: []string{"microsoft", "outlook", "office 365"}, Domains: []string{"microsoft.com", "outlook.com", "live.com", "office.com"}},
		{ID: "google", Names: []string{"google", "gmail"}, Domains: []string{"google.com", "gmail.com", "youtube.com"}},
		{ID: "netflix", Names: []string{"netflix"}, Domains: []string{"netflix.com"}},
		{ID: "chase", Names: []string{"chase bank", "jpmorgan chase"}, Domains: []string{"chase.com", "jpmorgan.com"}},
		{ID: "wellsfargo", Names: []string{"wells fargo"}, Domains: []string{"wellsfargo.com"}},
		{ID: "bankofamerica", Names: []string{"bank of america"}, Domains: []string{"bankofamerica.com", "bofa.com"}},
		{ID: "linkedin", Names: []string{"linkedin"}, Domains: []string{"linkedin.com"}},
		{ID: "docusign", Names: []string{"docusign"}, Domains: []string{"docusign.com", "docusign.net"}},
		{ID: "dropbox", Names: []string{"dropbox"}, Domains: []string{"dropbox.com"}},
	}
}

// freemailDomains host personal mailboxes. A sender there is not the brand
// that happens to run the service.
var freemailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"live.com":       true,
	"icloud.com":     true,
	"me.com":         true,
	"yahoo.com":      true,
	"aol.com":        true,
	"proton.me":      true,
	"protonmail.com": true,
}

// isFreemail reports whether domain is a personal mailbox provider
func isFreemail(domain string) bool {
	return freemailDomains[domain]
}

type brandMatcher struct {
	brand Brand
	names *phraseMatcher
}

func newBrandMatchers(brands []Brand) []brandMatcher {
	matchers := make([]brandMatcher, 0, len(brands))
	for _, b := range brands {
		if b.ID == "" {
			continue
		}
		names := b.Names
		if len(names) == 0 {
			names = []string{b.ID}
		}
		domains := make([]string, 0, len(b.Domains))
		for _, d := range b.Domains {
			domains = append(domains, strings.ToLower(strings.TrimSpace(d)))
		}
		b.Domains = domains
		matchers = append(matchers, brandMatcher{brand: b, names: newKeywordMatcher(names)})
	}
	return matchers
}

// legitimate reports whether domain belongs to the brand
func (m brandMatcher) legitimate(domain string) bool {
	for _, d := range m.brand.Domains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// impersonatedBy reports whether the domain carries the brand id as a label
// token, e.g. paypal-verify-secure.net. Callers only count it when the
// message also claims the brand, since chase-family.org is not a bank.
func (m brandMatcher) impersonatedBy(domain string) bool {
	tokens := strings.FieldsFunc(domain, func(r rune) bool { return r == '.' || r == '-' })
	for _, t := range tokens {
		if t == m.brand.ID {
			return true
		}
	}
	return false
}
