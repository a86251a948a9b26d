package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/utils"
	"go.uber.org/zap"
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

// BedrockClient is an implementation of the Classifier interface using
// Amazon Bedrock
type BedrockClient struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodyChars  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodyChars int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodyChars:  maxBodyChars,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Classify labels one normalized email using Amazon Bedrock
func (c *BedrockClient) Classify(ctx context.Context, email *core.Email) (*core.Verdict, error) {
	prompt := systemPrompt + "\n\n" + buildUserPrompt(email, c.maxBodyChars, c.textProcessor)

	// Create the request based on the model
	var payload []byte
	var err error

	if c.isAnthropicModel() {
		// Anthropic Claude models via the messages API
		payload, err = json.Marshal(map[string]interface{}{
			"anthropic_version": "bedrock-2023-05-31",
			"max_tokens":        c.maxTokens,
			"temperature":       c.temperature,
			"top_p":             c.topP,
			"system":            systemPrompt,
			"messages": []map[string]interface{}{
				{"role": "user", "content": buildUserPrompt(email, c.maxBodyChars, c.textProcessor)},
			},
		})
	} else if c.isAmazonTitanModel() {
		// Amazon Titan models
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		// Default to a generic format
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, classifyCallError(err)
	}

	responseText, err := c.extractResponseText(resp.Body)
	if err != nil {
		return nil, &core.ClassifierError{Kind: core.ClassifierMalformed, Err: err}
	}

	verdict, err := parseVerdict(responseText)
	if err != nil {
		return nil, err
	}
	verdict.ModelUsed = c.modelID

	return verdict, nil
}

// extractResponseText pulls the generated text out of the model-specific
// response envelope
func (c *BedrockClient) extractResponseText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		if len(claudeResp.Content) == 0 {
			return "", errors.New("empty response from Claude model")
		}
		return claudeResp.Content[0].Text, nil
	}

	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", errors.New("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	// Try a generic approach
	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	}
	return string(body), nil
}

// classifyCallError maps a failed invocation onto the classifier error taxonomy
func classifyCallError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ThrottlingException" {
		return &core.ClassifierError{Kind: core.ClassifierRateLimited, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &core.ClassifierError{Kind: core.ClassifierTimeout, Err: err}
	}
	return &core.ClassifierError{Kind: core.ClassifierTimeout, Err: fmt.Errorf("failed to invoke Bedrock model: %w", err)}
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
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
