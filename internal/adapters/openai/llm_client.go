package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Retry configuration for transient API failures
const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
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

// OpenAIClient is an implementation of the Classifier interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodyChars  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodyChars int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodyChars:  maxBodyChars,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Classify labels one normalized email using OpenAI
func (c *OpenAIClient) Classify(ctx context.Context, email *core.Email) (*core.Verdict, error) {
	prompt := buildUserPrompt(email, c.maxBodyChars, c.textProcessor)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.createWithRetry(ctx, req)
	if err != nil {
		return nil, classifyCallError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &core.ClassifierError{
			Kind: core.ClassifierMalformed,
			Err:  errors.New("empty response from OpenAI"),
		}
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	verdict.ModelUsed = c.modelName

	return verdict, nil
}

// createWithRetry calls the completion API, backing off on rate limits and
// transient server errors. The context deadline still bounds the whole call.
func (c *OpenAIClient) createWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			return openai.ChatCompletionResponse{}, err
		}

		c.logger.Warn("OpenAI call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return openai.ChatCompletionResponse{}, lastErr
}

// isRetryable reports whether an API error is worth another attempt
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return false
}

// classifyCallError maps a failed API call onto the classifier error taxonomy
func classifyCallError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &core.ClassifierError{Kind: core.ClassifierRateLimited, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &core.ClassifierError{Kind: core.ClassifierTimeout, Err: err}
	}
	return &core.ClassifierError{Kind: core.ClassifierTimeout, Err: fmt.Errorf("openai request failed: %w", err)}
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
		// Try to extract the JSON object from the text response
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
