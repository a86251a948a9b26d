package openai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/utils"
)

func TestParseVerdict(t *testing.T) {
	response := `{
		"classification": "action_request",
		"should_flag": true,
		"confidence": 0.92,
		"reason": "Direct ask with a deadline",
		"summary": "Approve the Q3 budget",
		"requested_action": "Approve the budget",
		"deadline_iso": "2026-08-14",
		"asks_me_specifically": true
	}`

	v, err := parseVerdict(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Category != core.CategoryActionRequest {
		t.Errorf("wrong category: %s", v.Category)
	}
	if v.Confidence != 0.92 {
		t.Errorf("wrong confidence: %v", v.Confidence)
	}
	if v.RequestedAction != "Approve the budget" || v.DeadlineISO != "2026-08-14" {
		t.Errorf("optional fields lost: %+v", v)
	}
	if !v.AsksMe {
		t.Error("asks_me_specifically lost")
	}
}

func TestParseVerdictExtractsEmbeddedJSON(t *testing.T) {
	response := "Here is my analysis:\n" +
		`{"classification": "fyi", "confidence": 0.8, "reason": "r", "summary": "s"}` +
		"\nLet me know if you need more."

	v, err := parseVerdict(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Category != core.CategoryFYI {
		t.Errorf("wrong category: %s", v.Category)
	}
}

func TestParseVerdictNullOptionalFields(t *testing.T) {
	response := `{"classification": "fyi", "confidence": 0.8, "reason": "r", "summary": "s", "requested_action": null, "deadline_iso": null}`

	v, err := parseVerdict(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.RequestedAction != "" || v.DeadlineISO != "" {
		t.Errorf("null fields must stay empty: %+v", v)
	}
}

func TestParseVerdictMalformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"empty response", ""},
		{"no json at all", "I think this email is important."},
		{"broken json", `{"classification": "fyi",`},
		{"unknown category", `{"classification": "urgent_stuff", "confidence": 0.9}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseVerdict(tt.response)
			var cerr *core.ClassifierError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *core.ClassifierError, got %v", err)
			}
			if cerr.Kind != core.ClassifierMalformed {
				t.Errorf("expected malformed kind, got %s", cerr.Kind)
			}
		})
	}
}

func TestValidCategoryCoversFixedSet(t *testing.T) {
	for _, c := range []string{
		"action_request", "direct_question", "meeting_request",
		"waiting_on_others", "fyi", "spam_or_noise", "unknown",
	} {
		if !validCategory(c) {
			t.Errorf("category %q rejected", c)
		}
	}
	if validCategory("important") {
		t.Error("unknown category accepted")
	}
}

func TestBuildUserPrompt(t *testing.T) {
	tp := utils.NewTextProcessor(zap.NewNop())
	email := &core.Email{
		Subject:    "Budget",
		From:       core.Address{Name: "Alice", Address: "alice@example.com"},
		To:         []string{"me@example.com"},
		Cc:         []string{"carol@example.com"},
		ReceivedAt: time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
		BodyText:   "Please approve.",
	}

	prompt := buildUserPrompt(email, 2500, tp)
	for _, want := range []string{
		"FROM: Alice <alice@example.com>",
		"TO: me@example.com",
		"CC: carol@example.com",
		"SUBJECT: Budget",
		"RECEIVED: 2026-08-10T09:00:00Z",
		"Please approve.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildUserPromptFallbacks(t *testing.T) {
	tp := utils.NewTextProcessor(zap.NewNop())
	prompt := buildUserPrompt(&core.Email{}, 2500, tp)

	for _, want := range []string{
		"FROM: Unknown <unknown@unknown.com>",
		"TO: Unknown",
		"CC: None",
		"SUBJECT: (No Subject)",
		"RECEIVED: Unknown",
		"(Empty)",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing fallback %q:\n%s", want, prompt)
		}
	}
}

func TestBuildUserPromptPreviewFallback(t *testing.T) {
	tp := utils.NewTextProcessor(zap.NewNop())
	email := &core.Email{BodyText: "   ", BodyPreview: "preview text"}

	prompt := buildUserPrompt(email, 2500, tp)
	if !strings.Contains(prompt, "preview text") {
		t.Errorf("preview not used for a blank body:\n%s", prompt)
	}
}

func TestBuildUserPromptTruncatesBody(t *testing.T) {
	tp := utils.NewTextProcessor(zap.NewNop())
	email := &core.Email{BodyText: strings.Repeat("a", 100)}

	prompt := buildUserPrompt(email, 30, tp)
	if strings.Contains(prompt, strings.Repeat("a", 31)) {
		t.Error("body was not truncated")
	}
	if !strings.Contains(prompt, "...") {
		t.Error("truncation marker missing")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 503}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyCallErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.ClassifierErrorKind
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429}, core.ClassifierRateLimited},
		{"deadline", context.DeadlineExceeded, core.ClassifierTimeout},
		{"canceled", context.Canceled, core.ClassifierTimeout},
		{"transport failure", errors.New("connection refused"), core.ClassifierTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cerr *core.ClassifierError
			if !errors.As(classifyCallError(tt.err), &cerr) {
				t.Fatal("expected *core.ClassifierError")
			}
			if cerr.Kind != tt.want {
				t.Errorf("kind %s, want %s", cerr.Kind, tt.want)
			}
		})
	}
}
