package bedrock

import (
	"errors"
	"testing"

	"github.com/mikey/email-triage/internal/core"
)

func clientForModel(modelID string) *BedrockClient {
	return &BedrockClient{modelID: modelID}
}

func TestModelFamilyDetection(t *testing.T) {
	claude := clientForModel("anthropic.claude-3-haiku-20240307-v1:0")
	if !claude.isAnthropicModel() || claude.isAmazonTitanModel() {
		t.Error("claude model misdetected")
	}

	titan := clientForModel("amazon.titan-text-express-v1")
	if !titan.isAmazonTitanModel() || titan.isAnthropicModel() {
		t.Error("titan model misdetected")
	}

	other := clientForModel("meta.llama3-8b-instruct-v1:0")
	if other.isAnthropicModel() || other.isAmazonTitanModel() {
		t.Error("generic model misdetected")
	}
}

func TestExtractResponseTextClaude(t *testing.T) {
	c := clientForModel("anthropic.claude-v2")

	text, err := c.extractResponseText([]byte(`{"content": [{"text": "the answer"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "the answer" {
		t.Errorf("wrong text: %q", text)
	}

	if _, err := c.extractResponseText([]byte(`{"content": []}`)); err == nil {
		t.Error("empty content must be an error")
	}
}

func TestExtractResponseTextTitan(t *testing.T) {
	c := clientForModel("amazon.titan-text-express-v1")

	text, err := c.extractResponseText([]byte(`{"results": [{"outputText": "titan says"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "titan says" {
		t.Errorf("wrong text: %q", text)
	}
}

func TestExtractResponseTextGeneric(t *testing.T) {
	c := clientForModel("meta.llama3-8b-instruct-v1:0")

	tests := []struct {
		name string
		body string
		want string
	}{
		{"output field", `{"output": "from output"}`, "from output"},
		{"text field", `{"text": "from text"}`, "from text"},
		{"response field", `{"response": "from response"}`, "from response"},
		{"raw body fallback", `{"something": "else"}`, `{"something": "else"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := c.extractResponseText([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if text != tt.want {
				t.Errorf("got %q, want %q", text, tt.want)
			}
		})
	}
}

func TestParseVerdictRejectsBadCategory(t *testing.T) {
	_, err := parseVerdict(`{"classification": "nonsense", "confidence": 0.9}`)
	var cerr *core.ClassifierError
	if !errors.As(err, &cerr) || cerr.Kind != core.ClassifierMalformed {
		t.Fatalf("expected a malformed classifier error, got %v", err)
	}
}

func TestClassifyCallErrorDefaultsToTimeout(t *testing.T) {
	var cerr *core.ClassifierError
	if !errors.As(classifyCallError(errors.New("connection reset")), &cerr) {
		t.Fatal("expected *core.ClassifierError")
	}
	if cerr.Kind != core.ClassifierTimeout {
		t.Errorf("expected timeout kind, got %s", cerr.Kind)
	}
}
