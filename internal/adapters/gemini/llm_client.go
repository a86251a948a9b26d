package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const systemPrompt = `You are an email triage classifier that helps prioritize inbox messages.

Your job is to analyze emails and determine:
1. The type of email (action request, question, FYI, etc.)
2. Whether it requires the recipient's attention/action
3. Any deadlines or requested actions

IMPORTANT RULES:
- Only use the content provided. Do not infer project context from outside the email.
- Do not invent or hallucinate dates/deadlines that aren't explicitly stated.
- If unclear about classification or deadline, choose "unknown" with low confidence.
- Be conservative: only flag emails that genuinely need action.
- Consider whether the email is addressed directly TO the recipient vs just CC'd.
- Look for question marks, imperative verbs, and urgency indicators.

Respond with a JSON object containing:
- classification: one of "action_request", "direct_question", "meeting_request", "waiting_on_others", "fyi", "spam_or_noise", "unknown"
- should_flag: boolean (whether this email should be flagged for attention)
- confidence: number between 0 and 1
- reason: string (one sentence rationale for the classification)
- summary: string (one short sentence summary, imperative style if action requested)
- requested_action: string or null (the specific action requested, if any)
- deadline_iso: string or null (ISO 8601 date or datetime if clearly stated, else null)
- asks_me_specifically: boolean (true if the email is addressed to me or explicitly asks me for something)

Respond only with the JSON object and nothing else.`

// GeminiClient is an implementation of the Classifier interface using
// Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodyChars  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodyChars int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodyChars:  maxBodyChars,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify labels one normalized email using Gemini
func (c *GeminiClient) Classify(ctx context.Context, email *core.Email) (*core.Verdict, error) {
	prompt := buildUserPrompt(email, c.maxBodyChars, c.textProcessor)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, classifyCallError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &core.ClassifierError{
			Kind: core.ClassifierMalformed,
			Err:  errors.New("empty response from Gemini"),
		}
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	verdict, err := parseVerdict(responseText)
	if err != nil {
		return nil, err
	}
	verdict.ModelUsed = c.modelName

	return verdict, nil
}

// classifyCallError maps a failed generation onto the classifier error taxonomy
func classifyCallError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return &core.ClassifierError{Kind: core.ClassifierRateLimited, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &core.ClassifierError{Kind: core.ClassifierTimeout, Err: err}
	}
	return &core.ClassifierError{Kind: core.ClassifierTimeout, Err: fmt.Errorf("failed to generate content with Gemini: %w", err)}
}

// classificationResponse is the wire shape of the model's JSON answer
type classificationResponse struct {
	Classification  string  `json:"classification"`
	ShouldFlag      bool    `json:"should_flag"`
	Confidence      float64 `json:"confidence"`
	Reason          string  `json:"reason"`
	Summary         string  `json:"summary"`
	RequestedAction *string `json:"requested_action"`
	DeadlineISO     *string `json:"deadline_iso"`
	AsksMe          bool    `json:"asks_me_specifically"`
}

// parseVerdict decodes the model's JSON answer, tolerating surrounding prose
func parseVerdict(responseText string) (*core.Verdict, error) {
	var parsed classificationResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := strings.Index(responseText, "{")
		jsonEnd := strings.LastIndex(responseText, "}")
		if jsonStart < 0 || jsonEnd <= jsonStart {
			return nil, &core.ClassifierError{
				Kind: core.ClassifierMalformed,
				Err:  fmt.Errorf("no JSON object in model response: %w", err),
			}
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed); err != nil {
			return nil, &core.ClassifierError{
				Kind: core.ClassifierMalformed,
				Err:  fmt.Errorf("failed to parse model response as JSON: %w", err),
			}
		}
	}

	if !validCategory(parsed.Classification) {
		return nil, &core.ClassifierError{
			Kind: core.ClassifierMalformed,
			Err:  fmt.Errorf("invalid classification %q in model response", parsed.Classification),
		}
	}

	verdict := &core.Verdict{
		Category:   core.Category(parsed.Classification),
		Confidence: parsed.Confidence,
		Rationale:  parsed.Reason,
		Summary:    parsed.Summary,
		AsksMe:     parsed.AsksMe,
	}
	if parsed.RequestedAction != nil {
		verdict.RequestedAction = *parsed.RequestedAction
	}
	if parsed.DeadlineISO != nil {
		verdict.DeadlineISO = *parsed.DeadlineISO
	}
	return verdict, nil
}

// validCategory reports membership in the fixed classification set
func validCategory(s string) bool {
	switch core.Category(s) {
	case core.CategoryActionRequest, core.CategoryDirectQuestion, core.CategoryMeetingRequest,
		core.CategoryWaiting, core.CategoryFYI, core.CategorySpamOrNoise, core.CategoryUnknown:
		return true
	}
	return false
}

// buildUserPrompt formats a normalized email for classification
func buildUserPrompt(email *core.Email, maxBodyChars int, tp *utils.TextProcessor) string {
	fromName := email.From.Name
	if fromName == "" {
		fromName = "Unknown"
	}
	fromAddr := email.From.Address
	if fromAddr == "" {
		fromAddr = "unknown@unknown.com"
	}

	to := "Unknown"
	if len(email.To) > 0 {
		to = strings.Join(email.To, ", ")
	}
	cc := "None"
	if len(email.Cc) > 0 {
		cc = strings.Join(email.Cc, ", ")
	}

	subject := email.Subject
	if subject == "" {
		subject = "(No Subject)"
	}

	received := "Unknown"
	if !email.ReceivedAt.IsZero() {
		received = email.ReceivedAt.Format(time.RFC3339)
	}

	body := tp.ProcessText(email.BodyText, maxBodyChars)
	if strings.TrimSpace(body) == "" {
		body = tp.ProcessText(email.BodyPreview, maxBodyChars)
	}
	if body == "" {
		body = "(Empty)"
	}

	return fmt.Sprintf(`Analyze this email:

FROM: %s <%s>
TO: %s
CC: %s
SUBJECT: %s
RECEIVED: %s

BODY:
%s

Classify this email and determine if it requires the recipient's action.`,
		fromName, fromAddr, to, cc, subject, received, body)
}
