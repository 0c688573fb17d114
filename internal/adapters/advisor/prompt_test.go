package advisor

import (
	"strings"
	"testing"

	"github.com/applylens/inbox-policy/internal/core"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(
		core.Email{Sender: "a@b.c", Subject: "Invoice"},
		core.ClassificationResult{Category: core.CategoryBills, RiskScore: 12},
		"amount due",
	)

	for _, want := range []string{
		"promotions, bills, security, applications, personal",
		`assigned "bills" with risk score 12`,
		"From: a@b.c",
		"Subject: Invoice",
		"amount due",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		category   core.Category
		confidence float64
		wantErr    bool
	}{
		{"plain json", `{"category":"bills","confidence":0.8,"explanation":" due soon "}`, core.CategoryBills, 0.8, false},
		{"wrapped in prose", "Sure!\n```json\n{\"category\": \"Security\", \"confidence\": 0.9}\n```", core.CategorySecurity, 0.9, false},
		{"clamped high", `{"category":"personal","confidence":7}`, core.CategoryPersonal, 1, false},
		{"clamped low", `{"category":"personal","confidence":-1}`, core.CategoryPersonal, 0, false},
		{"unknown category", `{"category":"spam","confidence":0.9}`, "", 0, true},
		{"no json", "I cannot help with that", "", 0, true},
		{"broken json", "{category: bills", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advice, err := ParseResponse(tt.text, "test-model")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", advice)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if advice.Category != tt.category || advice.Confidence != tt.confidence {
				t.Errorf("got %s %v, want %s %v", advice.Category, advice.Confidence, tt.category, tt.confidence)
			}
			if advice.ModelUsed != "test-model" {
				t.Errorf("ModelUsed = %q", advice.ModelUsed)
			}
		})
	}

	advice, _ := ParseResponse(`{"category":"bills","confidence":0.8,"explanation":" due soon "}`, "m")
	if advice.Explanation != "due soon" {
		t.Errorf("Explanation = %q", advice.Explanation)
	}
}
