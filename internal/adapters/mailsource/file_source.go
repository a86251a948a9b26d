// Package mailsource reads raw mail records from exported mailbox data.
package mailsource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/ports"
	"go.uber.org/zap"
)

// exportRecipient mirrors the recipient shape of a mailbox export
type exportRecipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// exportMessage mirrors one message in a mailbox export file
type exportMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	ToRecipients     []exportRecipient `json:"toRecipients"`
	CcRecipients     []exportRecipient `json:"ccRecipients"`
	ReceivedDateTime string            `json:"receivedDateTime"`
	IsRead           bool              `json:"isRead"`
	Body             struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	BodyPreview        string `json:"bodyPreview"`
	Importance         string `json:"importance"`
	HasAttachments     bool   `json:"hasAttachments"`
	MeetingMessageType string `json:"meetingMessageType"`
}

// exportEnvelope is the optional top-level wrapper some exports carry
type exportEnvelope struct {
	Value []exportMessage `json:"value"`
}

// FileSource reads raw records from a JSON mailbox export on disk
type FileSource struct {
	path   string
	logger *zap.Logger
}

// NewFileSource creates a file-backed mail source
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	return &FileSource{
		path:   path,
		logger: logger,
	}
}

// Fetch reads the export file and returns records newest first
func (s *FileSource) Fetch(ctx context.Context, opts ports.FetchOptions) ([]*core.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mail export %s: %w", s.path, err)
	}

	messages, err := decodeExport(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mail export %s: %w", s.path, err)
	}

	records := make([]*core.RawRecord, 0, len(messages))
	for _, msg := range messages {
		if opts.UnreadOnly && msg.IsRead {
			continue
		}
		records = append(records, toRawRecord(msg, s.logger))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ReceivedAt.After(records[j].ReceivedAt)
	})

	if opts.MaxMessages > 0 && len(records) > opts.MaxMessages {
		records = records[:opts.MaxMessages]
	}

	s.logger.Debug("Loaded mail export",
		zap.String("path", s.path),
		zap.Int("total", len(messages)),
		zap.Int("selected", len(records)))

	return records, nil
}

// decodeExport accepts either a bare array of messages or the enveloped form
func decodeExport(data []byte) ([]exportMessage, error) {
	var messages []exportMessage
	if err := json.Unmarshal(data, &messages); err == nil {
		return messages, nil
	}

	var envelope exportEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return envelope.Value, nil
}

func toRawRecord(msg exportMessage, logger *zap.Logger) *core.RawRecord {
	var receivedAt time.Time
	if msg.ReceivedDateTime != "" {
		t, err := time.Parse(time.RFC3339, msg.ReceivedDateTime)
		if err != nil {
			logger.Warn("Unparseable receivedDateTime in mail export",
				zap.String("message_id", msg.ID),
				zap.String("value", msg.ReceivedDateTime))
		} else {
			receivedAt = t
		}
	}

	return &core.RawRecord{
		MessageID: msg.ID,
		Subject:   msg.Subject,
		From: core.Address{
			Name:    msg.From.EmailAddress.Name,
			Address: msg.From.EmailAddress.Address,
		},
		To:               recipientAddresses(msg.ToRecipients),
		Cc:               recipientAddresses(msg.CcRecipients),
		ReceivedAt:       receivedAt,
		IsRead:           msg.IsRead,
		BodyType:         strings.ToLower(msg.Body.ContentType),
		Body:             msg.Body.Content,
		BodyPreview:      msg.BodyPreview,
		Importance:       strings.ToLower(msg.Importance),
		HasAttachments:   msg.HasAttachments,
		IsMeetingRequest: msg.MeetingMessageType == "meetingRequest",
	}
}

func recipientAddresses(recipients []exportRecipient) []string {
	if len(recipients) == 0 {
		return nil
	}
	addrs := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.EmailAddress.Address != "" {
			addrs = append(addrs, r.EmailAddress.Address)
		}
	}
	return addrs
}
