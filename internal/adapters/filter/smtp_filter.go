package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/email-triage/internal/core"
	"go.uber.org/zap"
)

// SmtpFilter is an SMTP intake server that triages incoming mail and relays
// it onward with triage headers stamped on the copy. The mailbox itself is
// never modified and no message is ever rejected.
type SmtpFilter struct {
	service        *core.TriageService
	logger         *zap.Logger
	listenAddr     string
	server         *smtp.Server
	decisionHeader string
	scoreHeader    string
	reasonHeader   string
	relayAddr      string
	relayPort      int
	relayEnabled   bool
}

// NewSmtpFilter creates a new SMTP intake filter
func NewSmtpFilter(
	service *core.TriageService,
	logger *zap.Logger,
	listenAddr string,
	decisionHeader string,
	scoreHeader string,
	reasonHeader string,
	relayAddr string,
	relayPort int,
	relayEnabled bool,
) *SmtpFilter {
	return &SmtpFilter{
		service:        service,
		logger:         logger,
		listenAddr:     listenAddr,
		decisionHeader: decisionHeader,
		scoreHeader:    scoreHeader,
		reasonHeader:   reasonHeader,
		relayAddr:      relayAddr,
		relayPort:      relayPort,
		relayEnabled:   relayEnabled,
	}
}

// Start starts the SMTP intake server
func (f *SmtpFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP intake filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP intake server
func (f *SmtpFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessRecord triages a single record, mainly for direct invocations
func (f *SmtpFilter) ProcessRecord(ctx context.Context, raw *core.RawRecord) (*core.TriageResult, error) {
	return f.service.ProcessOne(ctx, raw)
}

// sendToRelay forwards the annotated message to the downstream MTA
func (f *SmtpFilter) sendToRelay(sender string, recipients []string, emailData []byte) error {
	relayAddr := fmt.Sprintf("%s:%d", f.relayAddr, f.relayPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SmtpFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		filter:     b.filter,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SmtpFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for the filter)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data triages the message and relays the annotated copy
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.filter.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	raw := recordFromMessage(msg, s.sender, s.recipients)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := s.filter.service.ProcessOne(ctx, raw)
	if err != nil {
		// Never hold up delivery over a triage failure
		s.filter.logger.Error("Failed to triage email",
			zap.Error(err),
			zap.String("sender", s.sender))
		result = nil
	}

	annotated := s.annotate(rawData, msg, result)

	if s.filter.relayEnabled {
		if err := s.filter.sendToRelay(s.sender, s.recipients, annotated); err != nil {
			s.filter.logger.Error("Failed to relay email",
				zap.Error(err),
				zap.String("sender", s.sender))
			return err
		}
	} else {
		s.filter.logger.Warn("Relay disabled, annotated message dropped")
	}

	if result != nil {
		s.filter.logger.Info("Processed email",
			zap.String("from", s.sender),
			zap.String("decision", string(result.Decision)),
			zap.Int("score", result.PriorityScore))
	}

	return nil
}

// annotate prepends the triage headers to the original message, leaving the
// body bytes untouched so MIME parts and attachments survive verbatim.
func (s *smtpSession) annotate(rawData []byte, msg *mail.Message, result *core.TriageResult) []byte {
	var out bytes.Buffer

	if result != nil {
		fmt.Fprintf(&out, "%s: %s\r\n", s.filter.decisionHeader, result.Decision)
		fmt.Fprintf(&out, "%s: %d\r\n", s.filter.scoreHeader, result.PriorityScore)
		fmt.Fprintf(&out, "%s: %s\r\n", s.filter.reasonHeader, sanitizeHeaderValue(result.Reason))
	} else {
		fmt.Fprintf(&out, "%s: error\r\n", s.filter.decisionHeader)
	}

	for key, values := range msg.Header {
		for _, value := range values {
			fmt.Fprintf(&out, "%s: %s\r\n", key, value)
		}
	}
	out.WriteString("\r\n")

	// Copy the original body bytes verbatim
	bodyStart := bytes.Index(rawData, []byte("\r\n\r\n"))
	if bodyStart >= 0 {
		out.Write(rawData[bodyStart+4:])
		return out.Bytes()
	}
	bodyStart = bytes.Index(rawData, []byte("\n\n"))
	if bodyStart >= 0 {
		out.Write(rawData[bodyStart+2:])
	}
	return out.Bytes()
}

// sanitizeHeaderValue strips CR/LF so a reason string cannot inject headers
func sanitizeHeaderValue(v string) string {
	v = strings.ReplaceAll(v, "\r", " ")
	return strings.ReplaceAll(v, "\n", " ")
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
