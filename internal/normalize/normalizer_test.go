package normalize

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/email-triage/internal/core"
)

func newTestNormalizer(owner string) *Normalizer {
	return New(owner, 4000, zap.NewNop())
}

func raw(id string) *core.RawRecord {
	return &core.RawRecord{
		MessageID: id,
		Subject:   "Quarterly numbers",
		From:      core.Address{Name: "Alice", Address: "alice@example.com"},
		To:        []string{"me@example.com"},
		BodyType:  "text",
		Body:      "Please see the attached numbers.",
	}
}

func TestNormalizeRejectsMissingMessageID(t *testing.T) {
	n := newTestNormalizer("me@example.com")
	r := raw("")

	_, err := n.Normalize(r)
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *core.ValidationError, got %v", err)
	}
}

func TestNormalizeCarriesIdentityThrough(t *testing.T) {
	n := newTestNormalizer("me@example.com")
	r := raw("m1")
	r.Subject = "RE: weird subject  with   spacing"

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.MessageID != "m1" {
		t.Errorf("message id changed: %q", email.MessageID)
	}
	// Subjects pass through byte for byte; only bodies are cleaned
	if email.Subject != r.Subject {
		t.Errorf("subject changed: %q", email.Subject)
	}
	if email.From.Address != "alice@example.com" {
		t.Errorf("sender changed: %q", email.From.Address)
	}
}

func TestNormalizeStripsHTML(t *testing.T) {
	n := newTestNormalizer("me@example.com")
	r := raw("m1")
	r.BodyType = "html"
	r.Body = `<p>Hello <b>world</b></p><p>Tom &amp; Jerry</p><script>alert(1)</script>`

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(email.BodyText, "<") {
		t.Errorf("tags survived stripping: %q", email.BodyText)
	}
	if !strings.Contains(email.BodyText, "Hello world") {
		t.Errorf("text content lost: %q", email.BodyText)
	}
	if !strings.Contains(email.BodyText, "Tom & Jerry") {
		t.Errorf("entities were not unescaped: %q", email.BodyText)
	}
	if strings.Contains(email.BodyText, "alert") {
		t.Errorf("script content survived: %q", email.BodyText)
	}
}

func TestNormalizeHTMLBlocksBecomeLines(t *testing.T) {
	n := newTestNormalizer("me@example.com")
	r := raw("m1")
	r.BodyType = "html"
	r.Body = `<div>First line</div><div>Second line</div>`

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.BodyText != "First line\nSecond line" {
		t.Errorf("block boundaries lost: %q", email.BodyText)
	}
}

func TestNormalizeStripsQuotedReply(t *testing.T) {
	n := newTestNormalizer("me@example.com")
	r := raw("m1")
	r.Body = "Sounds good, let's proceed.\n\nOn Mon, Jan 5, 2026 at 9:00 AM Bob <bob@example.com> wrote:\n> earlier message\n> more quoted text"

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.BodyText != "Sounds good, let's proceed." {
		t.Errorf("quoted reply survived: %q", email.BodyText)
	}
}

func TestNormalizeStripsForwardedBlock(t *testing.T) {
	n := newTestNormalizer("me@example.com")
	r := raw("m1")
	r.Body = "FYI below.\n\n---------- Forwarded message ----------\nFrom: someone"

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.BodyText != "FYI below." {
		t.Errorf("forwarded block survived: %q", email.BodyText)
	}
}

func TestNormalizeStripsSignature(t *testing.T) {
	n := newTestNormalizer("me@example.com")
	r := raw("m1")
	r.Body = "Thanks for the update.\n\n-- \nAlice Smith\nVP of Everything"

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.BodyText != "Thanks for the update." {
		t.Errorf("signature survived: %q", email.BodyText)
	}
}

func TestNormalizeEarliestMarkerWins(t *testing.T) {
	n := newTestNormalizer("me@example.com")
	r := raw("m1")
	r.Body = "Real content.\n\nSent from my iPhone\n\nOn Mon, Jan 5, 2026 at 9:00 AM Bob <bob@example.com> wrote:\n> quoted"

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.BodyText != "Real content." {
		t.Errorf("expected cut at the earliest marker: %q", email.BodyText)
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	n := newTestNormalizer("me@example.com")
	r := raw("m1")
	r.Body = "  line one  \n\n\n\n\nline two\t\n"

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.BodyText != "line one\n\nline two" {
		t.Errorf("whitespace not collapsed: %q", email.BodyText)
	}
}

func TestNormalizeTruncatesBody(t *testing.T) {
	n := New("me@example.com", 20, zap.NewNop())
	r := raw("m1")
	r.Body = strings.Repeat("a", 50)

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(email.BodyText) > 20 {
		t.Errorf("body exceeds the cap: %d bytes", len(email.BodyText))
	}
	// The marker counts against the cap, never on top of it
	if !strings.HasSuffix(email.BodyText, "...") {
		t.Errorf("missing truncation marker: %q", email.BodyText)
	}
}

func TestNormalizeRecipientPosition(t *testing.T) {
	tests := []struct {
		name   string
		to     []string
		cc     []string
		wantTo bool
		wantCc bool
	}{
		{"owner in to", []string{"me@example.com"}, nil, true, false},
		{"owner in cc only", []string{"other@example.com"}, []string{"me@example.com"}, false, true},
		{"owner in both is to_me", []string{"me@example.com"}, []string{"me@example.com"}, true, false},
		{"owner absent", []string{"other@example.com"}, []string{"third@example.com"}, false, false},
		{"case insensitive", []string{"Me@Example.COM"}, nil, true, false},
	}

	n := newTestNormalizer("me@example.com")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := raw("m1")
			r.To = tt.to
			r.Cc = tt.cc
			email, err := n.Normalize(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if email.IsToMe != tt.wantTo || email.IsCcMe != tt.wantCc {
				t.Errorf("got to_me=%v cc_me=%v, want %v/%v",
					email.IsToMe, email.IsCcMe, tt.wantTo, tt.wantCc)
			}
			if email.Degraded {
				t.Error("degraded set with a known owner")
			}
		})
	}
}

func TestNormalizeDegradedWithoutOwner(t *testing.T) {
	n := newTestNormalizer("")
	r := raw("m1")

	email, err := n.Normalize(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !email.Degraded {
		t.Error("expected degraded mode with no owner address")
	}
	if email.IsToMe || email.IsCcMe {
		t.Error("recipient-position flags must stay false in degraded mode")
	}
}
