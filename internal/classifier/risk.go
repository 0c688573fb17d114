package classifier

import (
	"github.com/applylens/inbox-policy/internal/features"
)

// MaxRiskScore is the cap applied to the summed risk indicators
const MaxRiskScore = 100.0

// SecurityRiskThreshold is the score at which an email is treated as a security matter
const SecurityRiskThreshold = 80.0

// ManyURLsThreshold is the URL count above which the many-links indicator fires
const ManyURLsThreshold = 10

// RiskIndicator is one additive piece of risk evidence
type RiskIndicator struct {
	Name   string
	Weight float64
	Match  func(f features.Features) bool
}

// RiskIndicators is the indicator table. Every matching indicator contributes.
var RiskIndicators = []RiskIndicator{
	{
		Name:   "urgent_language",
		Weight: 10,
		Match:  func(f features.Features) bool { return len(f.UrgentKeywords) > 0 },
	},
	{
		Name:   "suspicious_links",
		Weight: 15,
		Match:  func(f features.Features) bool { return f.SuspiciousURLCount > 0 },
	},
	{
		Name:   "money_request",
		Weight: 20,
		Match:  func(f features.Features) bool { return len(f.MoneyRequestKeywords) > 0 },
	},
	{
		Name:   "credential_phishing",
		Weight: 25,
		Match:  func(f features.Features) bool { return len(f.CredentialPhishing) > 0 },
	},
	{
		Name:   "brand_spoofing",
		Weight: 30,
		Match:  func(f features.Features) bool { return f.SpoofedBrand != "" },
	},
	{
		Name:   "many_urls",
		Weight: 10,
		Match:  func(f features.Features) bool { return f.URLCount > ManyURLsThreshold },
	},
}

// RiskScore sums the weights of all matching indicators and clamps to [0, 100].
// It also returns the names of the indicators that fired.
func RiskScore(f features.Features) (float64, []string) {
	score := 0.0
	var fired []string
	for _, ind := range RiskIndicators {
		if ind.Match(f) {
			score += ind.Weight
			fired = append(fired, ind.Name)
		}
	}
	return clamp(score, 0, MaxRiskScore), fired
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
