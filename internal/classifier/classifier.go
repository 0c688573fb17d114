package classifier

import (
	"math"
	"sort"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/applylens/inbox-policy/internal/features"
	"go.uber.org/zap"
)

// Rule maps features to a category. Rules are evaluated in order and the
// first match wins.
type Rule struct {
	Category core.Category
	Match    func(f features.Features, risk float64) bool
	// Signals counts the independent signals supporting this category
	Signals func(f features.Features, risk float64) int
}

// Rules is the category decision order
var Rules = []Rule{
	{
		Category: core.CategorySecurity,
		Match: func(f features.Features, risk float64) bool {
			return len(f.SecurityKeywords) > 0 || risk >= SecurityRiskThreshold
		},
		Signals: func(f features.Features, risk float64) int {
			n := len(f.SecurityKeywords) + len(f.CredentialPhishing)
			if risk >= SecurityRiskThreshold {
				n++
			}
			if f.SpoofedBrand != "" {
				n++
			}
			return n
		},
	},
	{
		Category: core.CategoryApplications,
		Match: func(f features.Features, _ float64) bool {
			return f.ATSDomain != "" || len(f.JobKeywords) > 0
		},
		Signals: func(f features.Features, _ float64) int {
			n := len(f.JobKeywords)
			if f.ATSDomain != "" {
				n++
			}
			return n
		},
	},
	{
		Category: core.CategoryBills,
		Match: func(f features.Features, _ float64) bool {
			return len(f.BillKeywords) > 0
		},
		Signals: func(f features.Features, _ float64) int {
			return len(f.BillKeywords)
		},
	},
	{
		Category: core.CategoryPromotions,
		Match: func(f features.Features, _ float64) bool {
			return f.HasUnsubscribe && len(f.DealKeywords) > 0
		},
		Signals: func(f features.Features, _ float64) int {
			// the unsubscribe header counts as one signal
			return 1 + len(f.DealKeywords)
		},
	},
}

// DefaultConfidence is assigned when no category rule matches
const DefaultConfidence = 0.5

// MaxConfidence caps heuristic confidence below certainty
const MaxConfidence = 0.99

// Confidence maps a count of agreeing signals to [0.5, 0.99].
// It never decreases as signals increases.
func Confidence(signals int) float64 {
	if signals <= 1 {
		return DefaultConfidence
	}
	return math.Min(MaxConfidence, 1-math.Pow(0.5, float64(signals)))
}

// Classifier assigns categories and risk scores. It is deterministic and
// safe for concurrent use.
type Classifier struct {
	extractor *features.Extractor
	logger    *zap.Logger
}

// New creates a classifier backed by the given extractor
func New(extractor *features.Extractor, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = features.NewExtractor(features.DefaultConfig(), nil, logger)
	}
	return &Classifier{
		extractor: extractor,
		logger:    logger,
	}
}

// ClassifyEmail extracts features and classifies in one step
func (c *Classifier) ClassifyEmail(email core.Email) core.ClassificationResult {
	return c.Classify(email, c.extractor.Extract(email))
}

// Classify maps extracted features to a classification result
func (c *Classifier) Classify(email core.Email, f features.Features) core.ClassificationResult {
	risk, fired := RiskScore(f)

	result := core.ClassificationResult{
		EmailID:    email.ID,
		Category:   core.CategoryPersonal,
		RiskScore:  risk,
		Confidence: DefaultConfidence,
	}

	for _, rule := range Rules {
		if rule.Match(f, risk) {
			result.Category = rule.Category
			result.Confidence = Confidence(rule.Signals(f, risk))
			break
		}
	}

	if result.Category == core.CategoryPromotions {
		result.ExpiresAt = ParseExpiry(f.Body, email.ReceivedAt)
	}

	result.Tags = buildTags(f, result)

	c.logger.Debug("Classified email",
		zap.String("email_id", email.ID),
		zap.String("category", string(result.Category)),
		zap.Float64("risk_score", result.RiskScore),
		zap.Float64("confidence", result.Confidence),
		zap.Strings("risk_indicators", fired))

	return result
}

func buildTags(f features.Features, result core.ClassificationResult) []string {
	set := make(map[string]struct{})
	for _, b := range f.Brands {
		set["brand:"+b] = struct{}{}
	}
	if len(f.UrgentKeywords) > 0 {
		set["urgent"] = struct{}{}
	}
	if f.ShortenedURLCount > 0 {
		set["shortened-links"] = struct{}{}
	}
	if f.SpoofedBrand != "" || len(f.CredentialPhishing) > 0 {
		set["phishing-suspect"] = struct{}{}
	}
	if f.ATSDomain != "" {
		set["ats:"+f.ATSDomain] = struct{}{}
	}
	if result.RiskScore >= SecurityRiskThreshold {
		set["risk:high"] = struct{}{}
	}
	if result.ExpiresAt != nil {
		set["expiring"] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
