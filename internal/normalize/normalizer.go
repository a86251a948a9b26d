// Package normalize converts raw mail records into the canonical Email
// entity consumed by the triage engine. Message IDs and subjects pass
// through unmodified; bodies are reduced to clean plain text, best effort.
package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/utils"
)

// replyPatterns detect quoted-reply and forward boundaries. Everything from
// the earliest match onward is dropped.
var replyPatterns = []*regexp.Regexp{
	// "On Mon, Jan 15, 2026 at 10:30 AM John Doe <john@example.com> wrote:"
	regexp.MustCompile(`(?im)^On .+ wrote:\s*$`),
	// "-----Original Message-----"
	regexp.MustCompile(`(?im)^-{3,}\s*Original Message\s*-{3,}`),
	// Classic Outlook reply header block
	regexp.MustCompile(`(?im)^From:\s*.+\n(?:Sent:\s*.+\n)?(?:To:\s*.+\n)?(?:Cc:\s*.+\n)?(?:Subject:\s*.+)?`),
	// Gmail-style forwarded message
	regexp.MustCompile(`(?im)^-{3,}\s*Forwarded message\s*-{3,}`),
}

// signaturePatterns detect trailing signature blocks
var signaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^-- \s*$`),
	regexp.MustCompile(`(?im)^Sent from my \w+`),
	regexp.MustCompile(`(?im)^Get Outlook for \w+`),
}

// blockBreaks maps HTML block boundaries to newlines before tag stripping
var blockBreaks = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|tr|li|h[1-6])>`)

var collapseBlank = regexp.MustCompile(`\n{3,}`)

// Normalizer converts raw records to canonical emails. Safe for concurrent
// use once constructed.
type Normalizer struct {
	ownerAddress string
	maxBodyChars int
	htmlPolicy   *bluemonday.Policy
	text         *utils.TextProcessor
	logger       *zap.Logger
}

// New creates a Normalizer. ownerAddress may be empty: recipient-position
// flags then stay false and the produced emails are marked degraded.
func New(ownerAddress string, maxBodyChars int, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		ownerAddress: strings.ToLower(strings.TrimSpace(ownerAddress)),
		maxBodyChars: maxBodyChars,
		htmlPolicy:   bluemonday.StrictPolicy(),
		text:         utils.NewTextProcessor(logger),
		logger:       logger,
	}
}

// Normalize converts one raw record into a canonical Email. Only records
// without a message_id are rejected, as *core.ValidationError.
func (n *Normalizer) Normalize(raw *core.RawRecord) (*core.Email, error) {
	if raw.MessageID == "" {
		return nil, &core.ValidationError{Reason: "missing message_id"}
	}

	body := raw.Body
	if strings.EqualFold(raw.BodyType, "html") {
		body = n.stripHTML(body)
	}
	body = norm.NFC.String(body)
	body = stripQuotedContent(body)
	body = collapseWhitespace(body)
	body = n.text.ProcessText(body, n.maxBodyChars)

	email := &core.Email{
		MessageID:      raw.MessageID,
		Subject:        raw.Subject,
		From:           raw.From,
		To:             raw.To,
		Cc:             raw.Cc,
		ReceivedAt:     raw.ReceivedAt,
		IsRead:         raw.IsRead,
		BodyText:       body,
		BodyPreview:    raw.BodyPreview,
		Importance:     raw.Importance,
		HasAttachments: raw.HasAttachments,
		MeetingInvite:  raw.IsMeetingRequest,
	}

	if n.ownerAddress == "" {
		email.Degraded = true
		return email, nil
	}
	email.IsToMe = containsAddress(raw.To, n.ownerAddress)
	if !email.IsToMe {
		email.IsCcMe = containsAddress(raw.Cc, n.ownerAddress)
	}
	return email, nil
}

// stripHTML reduces HTML content to plain text, keeping block structure as
// line breaks
func (n *Normalizer) stripHTML(content string) string {
	if content == "" {
		return ""
	}
	withBreaks := blockBreaks.ReplaceAllString(content, "\n")
	stripped := n.htmlPolicy.Sanitize(withBreaks)
	return html.UnescapeString(stripped)
}

// stripQuotedContent drops everything from the earliest reply, forward, or
// signature marker onward. Best effort: unknown formats pass through.
func stripQuotedContent(text string) string {
	if text == "" {
		return ""
	}
	cut := len(text)
	for _, p := range replyPatterns {
		if loc := p.FindStringIndex(text); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	for _, p := range signaturePatterns {
		if loc := p.FindStringIndex(text); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	return text[:cut]
}

// collapseWhitespace trims each line and caps blank runs at one empty line
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	joined := strings.Join(lines, "\n")
	joined = collapseBlank.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}

func containsAddress(addrs []string, target string) bool {
	for _, a := range addrs {
		if strings.EqualFold(strings.TrimSpace(a), target) {
			return true
		}
	}
	return false
}
