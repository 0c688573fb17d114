package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testContext() Context {
	past := testNow.Add(-time.Hour)
	return NewEmailContext(
		core.Email{
			ID:                   "e1",
			Sender:               "Deals <news@shop.example>",
			SenderDomain:         "shop.example",
			Subject:              "Weekend SALE",
			BodyText:             "Use code SAVE20",
			ReceivedAt:           testNow.Add(-24 * time.Hour),
			HasUnsubscribeHeader: true,
			ExistingLabels:       []string{"INBOX", "Promotions"},
		},
		core.ClassificationResult{
			EmailID:    "e1",
			Category:   core.CategoryPromotions,
			RiskScore:  15,
			ExpiresAt:  &past,
			Tags:       []string{"expiring", "brand:shop"},
			Confidence: 0.85,
		},
		testNow,
	)
}

func TestLeafOperators(t *testing.T) {
	tests := []struct {
		name  string
		field string
		op    string
		value interface{}
		want  bool
	}{
		{"eq string", "category", "=", "promotions", true},
		{"eq case insensitive", "category", "=", "PROMOTIONS", true},
		{"eq double equals", "category", "==", "promotions", true},
		{"eq mismatch", "category", "=", "bills", false},
		{"ne", "category", "!=", "bills", true},
		{"eq number", "risk_score", "=", 15, true},
		{"eq number string literal", "risk_score", "=", "15", true},
		{"gt", "risk_score", ">", 10, true},
		{"lt", "risk_score", "<", 10, false},
		{"gte equal", "risk_score", ">=", 15.0, true},
		{"lte", "confidence", "<=", 0.85, true},
		{"eq bool", "has_unsubscribe_header", "=", true, true},
		{"eq bool string", "has_unsubscribe_header", "=", "false", false},
		{"in", "category", "in", []interface{}{"bills", "promotions"}, true},
		{"in miss", "category", "in", []interface{}{"bills", "security"}, false},
		{"in non list", "category", "in", "promotions", false},
		{"not_in", "category", "not_in", []interface{}{"bills"}, true},
		{"not_in hit", "category", "not_in", []interface{}{"promotions"}, false},
		{"list in any element", "tags", "in", []interface{}{"urgent", "expiring"}, true},
		{"list contains", "tags", "contains", "expiring", true},
		{"list contains miss", "tags", "contains", "urgent", false},
		{"list eq set", "labels", "=", []interface{}{"promotions", "inbox"}, true},
		{"list eq different size", "labels", "=", []interface{}{"inbox"}, false},
		{"string contains", "subject", "contains", "sale", true},
		{"string contains empty", "subject", "contains", "", false},
		{"regex", "sender_domain", "regex", `\.example$`, true},
		{"regex miss", "sender_domain", "regex", `^mail\.`, false},
		{"regex non string field", "risk_score", "regex", `1`, false},
		{"time lt now", "expires_at", "<", "now", true},
		{"time gt now", "expires_at", ">", "now", false},
		{"time vs literal", "received_at", "<", "2024-03-09", false},
		{"time vs rfc3339", "received_at", ">=", "2024-03-09T12:00:00Z", true},
		{"time eq", "received_at", "=", "2024-03-09T12:00:00Z", true},
		{"incomparable", "category", ">", 3, false},
		{"string order", "category", ">", "bills", true},
	}

	ctx := testContext()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateCondition(core.Condition{Field: tt.field, Operator: tt.op, Value: tt.value}, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("%s %s %v = %v, want %v", tt.field, tt.op, tt.value, got, tt.want)
			}
		})
	}
}

func TestMissingFieldIsFalse(t *testing.T) {
	ctx := NewEmailContext(core.Email{}, core.ClassificationResult{}, testNow)

	for _, op := range []string{"=", "!=", ">", "<", ">=", "<=", "in", "not_in", "contains", "regex"} {
		value := interface{}("x")
		if op == "in" || op == "not_in" {
			value = []interface{}{"x"}
		}
		for _, field := range []string{"expires_at", "received_at", "no_such_field"} {
			got, err := EvaluateCondition(core.Condition{Field: field, Op: op, Value: value}, ctx)
			if err != nil {
				t.Fatalf("%s %s: %v", field, op, err)
			}
			if got {
				t.Errorf("%s %s on missing field = true, want false", field, op)
			}
		}
	}
}

func TestNullValue(t *testing.T) {
	ctx := testContext()
	empty := NewEmailContext(core.Email{}, core.ClassificationResult{}, testNow)

	tests := []struct {
		name string
		ctx  Context
		op   string
		want bool
	}{
		{"absent eq null", empty, "=", true},
		{"absent ne null", empty, "!=", false},
		{"present eq null", ctx, "=", false},
		{"present ne null", ctx, "!=", true},
		{"other op with null", empty, ">", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateCondition(core.Condition{Field: "expires_at", Op: tt.op, Value: ValueNull}, tt.ctx)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCombinators(t *testing.T) {
	yes := core.Condition{Field: "category", Op: "=", Value: "promotions"}
	no := core.Condition{Field: "category", Op: "=", Value: "bills"}

	tests := []struct {
		name string
		cond core.Condition
		want bool
	}{
		{"all true", core.Condition{All: []core.Condition{yes, yes}}, true},
		{"all one false", core.Condition{All: []core.Condition{yes, no}}, false},
		{"any one true", core.Condition{Any: []core.Condition{no, yes}}, true},
		{"any all false", core.Condition{Any: []core.Condition{no, no}}, false},
		{"nested", core.Condition{All: []core.Condition{yes, {Any: []core.Condition{no, yes}}}}, true},
	}

	ctx := testContext()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateCondition(tt.cond, ctx)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		cond core.Condition
		want error
	}{
		{"unknown operator", core.Condition{Field: "category", Op: "between", Value: []interface{}{1, 2}}, ErrUnknownOperator},
		{"missing operator", core.Condition{Field: "category", Value: "x"}, ErrUnknownOperator},
		{"empty node", core.Condition{}, ErrMalformedCondition},
		{"leaf and all", core.Condition{Field: "category", Op: "=", All: []core.Condition{{Field: "a", Op: "="}}}, ErrMalformedCondition},
		{"empty all", core.Condition{All: []core.Condition{}}, ErrMalformedCondition},
		{"leaf without field", core.Condition{Op: "="}, ErrMalformedCondition},
		{"bad regex", core.Condition{Field: "subject", Op: "regex", Value: "("}, ErrMalformedCondition},
		{"regex non string", core.Condition{Field: "subject", Op: "regex", Value: 3}, ErrMalformedCondition},
		{"nested unknown", core.Condition{Any: []core.Condition{{Field: "x", Op: "~"}}}, ErrUnknownOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.cond)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
