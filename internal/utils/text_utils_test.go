package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	short := tp.TruncateText("hello", 100)
	if short != "hello" {
		t.Errorf("short text changed: %q", short)
	}

	long := tp.TruncateText(strings.Repeat("a", 50), 20)
	if len(long) != 20 {
		t.Errorf("marker must count within the limit: %d bytes", len(long))
	}
	if !strings.HasSuffix(long, TruncationMarker) {
		t.Errorf("missing marker: %q", long)
	}
}

func TestTruncateTextNoLimit(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	text := strings.Repeat("a", 50)
	if got := tp.TruncateText(text, 0); got != text {
		t.Errorf("zero limit must disable truncation: %q", got)
	}
}

func TestTruncateTextKeepsValidUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	// Cut point lands inside a multi-byte rune
	text := strings.Repeat("é", 20)
	got := tp.TruncateText(text, 10)
	if !utf8.ValidString(got) {
		t.Errorf("truncation produced invalid UTF-8: %q", got)
	}
	if len(got) > 10 {
		t.Errorf("limit exceeded: %d bytes", len(got))
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	valid := "plain ascii and héllo"
	if got := tp.SanitizeUTF8(valid); got != valid {
		t.Errorf("valid text changed: %q", got)
	}

	invalid := "ok\xff\xfealso ok"
	got := tp.SanitizeUTF8(invalid)
	if !utf8.ValidString(got) {
		t.Errorf("result still invalid: %q", got)
	}
	if !strings.Contains(got, "ok") || !strings.Contains(got, "also ok") {
		t.Errorf("valid content lost: %q", got)
	}
}
