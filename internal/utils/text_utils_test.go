package utils

import "testing"

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(nil)
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 5, "hello"},
		{"no limit", "hello", 0, "hello"},
		{"split rune", "héllo", 2, "h"},
		{"whole rune", "héllo", 3, "hé"},
	}
	for _, tt := range tests {
		if got := tp.TruncateText(tt.in, tt.max); got != tt.want {
			t.Errorf("%s: TruncateText(%q, %d) = %q, want %q", tt.name, tt.in, tt.max, got, tt.want)
		}
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)
	if got := tp.SanitizeUTF8("a\xffb"); got != "ab" {
		t.Errorf("SanitizeUTF8 = %q, want %q", got, "ab")
	}
	if got := tp.SanitizeUTF8("plain"); got != "plain" {
		t.Errorf("SanitizeUTF8 = %q", got)
	}
}

func TestFold(t *testing.T) {
	tp := NewTextProcessor(nil)
	tests := []struct {
		in, want string
	}{
		{"FLASH SALE", "flash sale"},
		{"ＳＡＬＥ", "sale"},
		{"Invoice №5", "invoice no5"},
	}
	for _, tt := range tests {
		if got := tp.Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(nil)
	if got := tp.ProcessText("  Your INVOICE is ready  ", 0); got != "your invoice is ready" {
		t.Errorf("ProcessText = %q", got)
	}
}
