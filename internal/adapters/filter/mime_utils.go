package filter

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"time"

	"github.com/mikey/email-triage/internal/core"
)

// recordFromMessage builds a raw triage record from a parsed SMTP message.
// The envelope sender and recipients take precedence over header values.
func recordFromMessage(msg *mail.Message, sender string, recipients []string) *core.RawRecord {
	body, bodyType := extractBody(msg)

	messageID := strings.Trim(msg.Header.Get("Message-Id"), "<>")
	if messageID == "" {
		messageID = strings.Trim(msg.Header.Get("Message-ID"), "<>")
	}

	fromName := sender
	if addr, err := mail.ParseAddress(msg.Header.Get("From")); err == nil {
		fromName = addr.Name
	}

	var receivedAt time.Time
	if t, err := msg.Header.Date(); err == nil {
		receivedAt = t
	}

	var cc []string
	if ccAddrs, err := msg.Header.AddressList("Cc"); err == nil {
		for _, a := range ccAddrs {
			cc = append(cc, a.Address)
		}
	}

	return &core.RawRecord{
		MessageID:  messageID,
		Subject:    decodeHeader(msg.Header.Get("Subject")),
		From:       core.Address{Name: fromName, Address: sender},
		To:         recipients,
		Cc:         cc,
		ReceivedAt: receivedAt,
		BodyType:   bodyType,
		Body:       body,
	}
}

// extractBody pulls the most useful body out of a message. Plain text parts
// win; an HTML part is returned as-is for the normalizer to strip.
func extractBody(msg *mail.Message) (string, string) {
	contentType := msg.Header.Get("Content-Type")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		data, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", "text"
		}
		if strings.Contains(strings.ToLower(mediaType), "html") {
			return string(data), "html"
		}
		return string(data), "text"
	}

	boundary, ok := params["boundary"]
	if !ok {
		data, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", "text"
		}
		return string(data), "text"
	}

	plain, html := collectParts(multipart.NewReader(msg.Body, boundary))
	if plain != "" {
		return plain, "text"
	}
	if html != "" {
		return html, "html"
	}
	return "", "text"
}

// collectParts walks a multipart body, gathering text/plain and text/html
// content. Nested multiparts (multipart/alternative inside multipart/mixed)
// are descended one level at a time.
func collectParts(mr *multipart.Reader) (plain, html string) {
	var plainBuf, htmlBuf bytes.Buffer

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		partType := part.Header.Get("Content-Type")
		mediaType, params, typeErr := mime.ParseMediaType(partType)
		if typeErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			if data, err := io.ReadAll(part); err == nil {
				plainBuf.Write(data)
				plainBuf.WriteString("\n")
			}
		case mediaType == "text/html":
			if data, err := io.ReadAll(part); err == nil {
				htmlBuf.Write(data)
			}
		case strings.HasPrefix(mediaType, "multipart/"):
			if boundary, ok := params["boundary"]; ok {
				nestedPlain, nestedHTML := collectParts(multipart.NewReader(part, boundary))
				plainBuf.WriteString(nestedPlain)
				htmlBuf.WriteString(nestedHTML)
			}
		}
		// Attachments and other parts are skipped
	}

	return plainBuf.String(), htmlBuf.String()
}

// decodeHeader decodes RFC 2047 encoded-words, falling back to the raw value
func decodeHeader(v string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}
