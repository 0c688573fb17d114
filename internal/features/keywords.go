package features

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Keyword lists are matched against folded subject and body text.
var (
	DealKeywords = []string{
		"% off", "sale", "coupon", "discount", "promo code", "deal", "deals",
		"clearance", "free shipping", "limited time offer", "flash sale", "save up to", "bogo",
	}

	BillKeywords = []string{
		"invoice", "due", "balance", "payment due", "amount due", "statement",
		"bill", "billing", "past due", "autopay", "minimum payment",
	}

	SecurityKeywords = []string{
		"password reset", "reset your password", "unusual activity", "suspicious activity",
		"security alert", "new sign-in", "new login", "two-factor", "verification code",
		"account locked", "unauthorized access",
	}

	UrgentKeywords = []string{
		"urgent", "immediately", "act now", "action required", "within 24 hours",
		"final notice", "account suspended", "respond now", "asap",
	}

	MoneyRequestKeywords = []string{
		"wire transfer", "bitcoin", "gift card", "gift cards", "western union",
		"moneygram", "crypto wallet", "send money", "bank transfer", "itunes card",
	}

	JobKeywords = []string{
		"interview", "position", "application status", "your application", "job offer",
		"recruiter", "hiring manager", "candidate", "offer letter", "thank you for applying",
		"application received",
	}

	// CredentialPhishingPatterns are phrase patterns rather than literal keywords
	CredentialPhishingPatterns = []string{
		`verify (your )?(credentials|account|identity|login)`,
		`confirm (your )?(password|credentials|account details)`,
		`(update|validate) (your )?(payment|billing|login) (details|information|info)`,
		`enter your (password|ssn|social security number)`,
		`log ?in (now )?to (avoid|prevent|restore)`,
	}
)

// phraseMatcher finds keyword occurrences on word boundaries
type phraseMatcher struct {
	keywords []string
	patterns []*regexp.Regexp
}

func newKeywordMatcher(keywords []string) *phraseMatcher {
	m := &phraseMatcher{}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		m.keywords = append(m.keywords, kw)
		m.patterns = append(m.patterns, regexp.MustCompile(boundaryPattern(kw, regexp.QuoteMeta(kw))))
	}
	return m
}

func newPatternMatcher(patterns []string) *phraseMatcher {
	m := &phraseMatcher{}
	for _, p := range patterns {
		m.keywords = append(m.keywords, p)
		m.patterns = append(m.patterns, regexp.MustCompile(`(?:^|[^\pL\pN])`+`(?:`+p+`)`+`(?:$|[^\pL\pN])`))
	}
	return m
}

// boundaryPattern wraps quoted in word boundaries on the sides where
// the keyword starts or ends with a letter or digit
func boundaryPattern(kw, quoted string) string {
	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)

	var b strings.Builder
	if isWordRune(first) {
		b.WriteString(`(?:^|[^\pL\pN])`)
	}
	b.WriteString(quoted)
	if isWordRune(last) {
		b.WriteString(`(?:$|[^\pL\pN])`)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Match returns the keywords found in text, in list order
func (m *phraseMatcher) Match(text string) []string {
	if text == "" {
		return nil
	}
	var found []string
	for i, re := range m.patterns {
		if re.MatchString(text) {
			found = append(found, m.keywords[i])
		}
	}
	return found
}
