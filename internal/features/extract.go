package features

import (
	"net"
	"net/mail"
	"regexp"
	"strings"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/utils"
	"github.com/applylens/inbox-policy/internal/whitelist"
	"go.uber.org/zap"
)

// Features is the signal bag derived from one email
type Features struct {
	Subject        string
	Body           string
	DisplayName    string
	SenderAddress  string
	SenderDomain   string
	HasUnsubscribe bool

	DealKeywords         []string
	BillKeywords         []string
	SecurityKeywords     []string
	UrgentKeywords       []string
	MoneyRequestKeywords []string
	CredentialPhishing   []string
	JobKeywords          []string

	// ATSDomain is the applicant tracking domain the sender matched, if any
	ATSDomain string

	URLCount           int
	ShortenedURLCount  int
	SuspiciousURLCount int

	// SpoofedBrand is set when a brand is claimed by a sender outside its domains
	SpoofedBrand string
	// Brands lists brands legitimately associated with the email
	Brands []string
}

// Config holds the tunable inputs of the extractor
type Config struct {
	ATSDomains       []string
	ShortenerDomains []string
	Brands           []Brand
	MaxBodySize      int
}

// DefaultATSDomains are recruiting platforms that send application mail
var DefaultATSDomains = []string{
	"greenhouse.io", "lever.co", "ashbyhq.com", "workday.com", "myworkdayjobs.com",
	"smartrecruiters.com", "icims.com", "jobvite.com",
}

// DefaultShortenerDomains are URL shortening services
var DefaultShortenerDomains = []string{
	"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly", "is.gd", "buff.ly", "rebrand.ly", "cutt.ly",
}

// DefaultConfig returns the built-in extractor configuration
func DefaultConfig() Config {
	return Config{
		ATSDomains:       DefaultATSDomains,
		ShortenerDomains: DefaultShortenerDomains,
		Brands:           DefaultBrands(),
		MaxBodySize:      64 * 1024,
	}
}

var urlPattern = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"'()\[\]]+|\b(?:[a-z0-9-]+\.)+[a-z]{2,}/[^\s<>"'()\[\]]*`)

// Extractor derives Features from emails. It holds no mutable state and is
// safe for concurrent use.
type Extractor struct {
	text       *utils.TextProcessor
	ats        *whitelist.Checker
	shorteners *whitelist.Checker
	brands     []brandMatcher
	maxBody    int

	deal, bill, security, urgent, money, job, credential *phraseMatcher
}

// NewExtractor creates an extractor for the given configuration
func NewExtractor(cfg Config, text *utils.TextProcessor, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}
	return &Extractor{
		text:       text,
		ats:        whitelist.NewChecker(cfg.ATSDomains, logger),
		shorteners: whitelist.NewChecker(cfg.ShortenerDomains, logger),
		brands:     newBrandMatchers(cfg.Brands),
		maxBody:    cfg.MaxBodySize,
		deal:       newKeywordMatcher(DealKeywords),
		bill:       newKeywordMatcher(BillKeywords),
		security:   newKeywordMatcher(SecurityKeywords),
		urgent:     newKeywordMatcher(UrgentKeywords),
		money:      newKeywordMatcher(MoneyRequestKeywords),
		job:        newKeywordMatcher(JobKeywords),
		credential: newPatternMatcher(CredentialPhishingPatterns),
	}
}

// Extract derives the feature bag for an email. Missing fields yield empty
// feature values; it never fails.
func (e *Extractor) Extract(email core.Email) Features {
	f := Features{
		Subject:        e.text.ProcessText(email.Subject, 0),
		Body:           e.text.ProcessText(email.BodyText, e.maxBody),
		HasUnsubscribe: email.HasUnsubscribeHeader,
	}

	f.DisplayName, f.SenderAddress = parseSender(email.Sender)
	f.DisplayName = e.text.ProcessText(f.DisplayName, 0)
	f.SenderDomain = strings.Trim(strings.ToLower(strings.TrimSpace(email.SenderDomain)), ".")
	if f.SenderDomain == "" {
		f.SenderDomain = whitelist.DomainOf(f.SenderAddress)
	}

	text := f.Subject + "\n" + f.Body
	f.DealKeywords = e.deal.Match(text)
	f.BillKeywords = e.bill.Match(text)
	f.SecurityKeywords = e.security.Match(text)
	f.UrgentKeywords = e.urgent.Match(text)
	f.MoneyRequestKeywords = e.money.Match(text)
	f.CredentialPhishing = e.credential.Match(text)
	f.JobKeywords = e.job.Match(text)

	if ats, ok := e.ats.Match(f.SenderDomain); ok {
		f.ATSDomain = ats
	}

	e.countURLs(&f)
	e.detectBrands(&f)

	return f
}

func (e *Extractor) countURLs(f *Features) {
	for _, raw := range urlPattern.FindAllString(f.Body, -1) {
		f.URLCount++
		host := urlHost(raw)
		if host == "" {
			continue
		}
		if _, ok := e.shorteners.Match(host); ok {
			f.ShortenedURLCount++
			f.SuspiciousURLCount++
			continue
		}
		if net.ParseIP(host) != nil || strings.HasPrefix(host, "xn--") || strings.Contains(host, ".xn--") {
			f.SuspiciousURLCount++
		}
	}
}

func (e *Extractor) detectBrands(f *Features) {
	seen := make(map[string]bool)
	for _, m := range e.brands {
		legit := f.SenderDomain != "" && m.legitimate(f.SenderDomain)
		inDisplay := len(m.names.Match(f.DisplayName)) > 0
		inSubject := len(m.names.Match(f.Subject)) > 0

		if !legit && f.SenderDomain != "" &&
			(inDisplay || (inSubject && m.impersonatedBy(f.SenderDomain))) {
			if f.SpoofedBrand == "" {
				f.SpoofedBrand = m.brand.ID
			}
			continue
		}

		if (legit && !isFreemail(f.SenderDomain)) || inSubject {
			if !seen[m.brand.ID] {
				seen[m.brand.ID] = true
				f.Brands = append(f.Brands, m.brand.ID)
			}
		}
	}
}

// parseSender splits a From-style sender into display name and address
func parseSender(sender string) (string, string) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return "", ""
	}
	if addr, err := mail.ParseAddress(sender); err == nil {
		return addr.Name, strings.ToLower(addr.Address)
	}

	if start := strings.LastIndex(sender, "<"); start >= 0 {
		name := strings.Trim(strings.TrimSpace(sender[:start]), `"`)
		address := sender[start+1:]
		if end := strings.Index(address, ">"); end >= 0 {
			address = address[:end]
		}
		return name, strings.ToLower(strings.TrimSpace(address))
	}
	if strings.Contains(sender, "@") {
		return "", strings.ToLower(sender)
	}
	return sender, ""
}

// urlHost extracts the lowercase host of a matched URL
func urlHost(raw string) string {
	s := strings.ToLower(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		s = h
	}
	return strings.Trim(s, ".")
}

// HasSignals reports whether any heuristic signal fired
func (f Features) HasSignals() bool {
	return len(f.DealKeywords) > 0 || len(f.BillKeywords) > 0 || len(f.SecurityKeywords) > 0 ||
		len(f.UrgentKeywords) > 0 || len(f.MoneyRequestKeywords) > 0 || len(f.CredentialPhishing) > 0 ||
		len(f.JobKeywords) > 0 || f.ATSDomain != "" || f.SuspiciousURLCount > 0 || f.SpoofedBrand != ""
}
