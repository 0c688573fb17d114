package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker matches sender domains against a fixed domain list.
// A domain matches when it equals a listed domain or is a subdomain of one.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new domain checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		if d == "" {
			continue
		}
		normalizedDomains = append(normalizedDomains, d)
	}

	if len(normalizedDomains) > 0 && logger != nil {
		logger.Debug("Initialized domain checker", zap.Strings("domains", normalizedDomains))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// Domains returns the normalized domain list
func (c *Checker) Domains() []string {
	out := make([]string, len(c.domains))
	copy(out, c.domains)
	return out
}

// Match returns the listed domain that the given domain falls under
func (c *Checker) Match(domain string) (string, bool) {
	domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" || len(c.domains) == 0 {
		return "", false
	}

	for _, listed := range c.domains {
		if domain == listed || strings.HasSuffix(domain, "."+listed) {
			if c.logger != nil {
				c.logger.Debug("Domain matched",
					zap.String("domain", domain),
					zap.String("listed", listed))
			}
			return listed, true
		}
	}

	return "", false
}

// IsWhitelisted checks whether the domain of an address is listed
func (c *Checker) IsWhitelisted(from string) bool {
	_, ok := c.Match(DomainOf(from))
	return ok
}

// DomainOf extracts the domain part of an email address
func DomainOf(address string) string {
	address = strings.TrimSpace(address)
	if start := strings.LastIndex(address, "<"); start >= 0 {
		if end := strings.LastIndex(address, ">"); end > start {
			address = address[start+1 : end]
		}
	}

	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[at+1:]))
}
