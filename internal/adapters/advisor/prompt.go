// Package advisor holds the prompt and response handling shared by the LLM
// advisors.
package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/applylens/inbox-policy/internal/core"
)

// SystemPrompt is sent as the system message where the provider supports one
const SystemPrompt = "You are an email triage assistant. Respond only with JSON."

const promptFormat = `Classify the following email into exactly one category: %s.
A rule-based classifier assigned "%s" with risk score %.0f (0-100).
Respond with a JSON object containing:
- category: string (one of the categories above)
- confidence: number between 0 and 1
- explanation: string (one or two sentences)

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// Response is the structured reply expected from the model
type Response struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// BuildPrompt renders the review prompt. body should already be truncated
// and sanitized.
func BuildPrompt(email core.Email, result core.ClassificationResult, body string) string {
	names := make([]string, len(core.Categories))
	for i, c := range core.Categories {
		names[i] = string(c)
	}
	return fmt.Sprintf(promptFormat,
		strings.Join(names, ", "),
		result.Category,
		result.RiskScore,
		email.Sender,
		email.Subject,
		body)
}

// ParseResponse decodes the model's reply, tolerating prose around the JSON
// object
func ParseResponse(text, model string) (*core.Advice, error) {
	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}

	category := core.Category(strings.ToLower(strings.TrimSpace(resp.Category)))
	if !category.Valid() {
		return nil, fmt.Errorf("LLM returned unknown category %q", resp.Category)
	}

	confidence := resp.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &core.Advice{
		Category:    category,
		Confidence:  confidence,
		Explanation: strings.TrimSpace(resp.Explanation),
		ModelUsed:   model,
	}, nil
}
