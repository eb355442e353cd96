package filter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/ports"
	"go.uber.org/zap"
)

// Headers stamped on every filtered message
const (
	HeaderClassification = "X-Threat-Classification"
	HeaderSeverity       = "X-Threat-Severity"
	HeaderScore          = "X-Threat-Score"
	HeaderConfidence     = "X-Threat-Confidence"
	HeaderSummary        = "X-Threat-Summary"
	HeaderVerdictID      = "X-Threat-Verdict-ID"
	HeaderDegraded       = "X-Threat-Degraded"
	HeaderAnalysisError  = "X-Threat-Analysis-Error"
)

var _ ports.EmailFilter = (*PostfixFilter)(nil)

var threatHeaders = []string{
	HeaderClassification, HeaderSeverity, HeaderScore, HeaderConfidence,
	HeaderSummary, HeaderVerdictID, HeaderDegraded, HeaderAnalysisError,
}

// PostfixFilter implements a Postfix content filter.
// Messages arrive over SMTP, are evaluated, stamped and re-injected into Postfix.
type PostfixFilter struct {
	evaluator ports.Evaluator
	parser    *MessageParser
	sink      core.VerdictSink
	cfg       config.ServerConfig
	logger    *zap.Logger
	server    *smtp.Server
	listener  net.Listener
}

// NewPostfixFilter creates a new Postfix content filter. sink may be nil.
func NewPostfixFilter(
	evaluator ports.Evaluator,
	parser *MessageParser,
	sink core.VerdictSink,
	cfg config.ServerConfig,
	logger *zap.Logger,
) *PostfixFilter {
	return &PostfixFilter{
		evaluator: evaluator,
		parser:    parser,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start binds the listen address and serves SMTP in the background
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	l, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}
	f.listener = l

	f.logger.Info("Postfix filter starting", zap.String("address", l.Addr().String()))

	go func() {
		if err := f.server.Serve(l); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (f *PostfixFilter) Addr() net.Addr {
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail evaluates a parsed email
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ThreatVerdict, error) {
	return f.evaluator.Evaluate(ctx, email)
}

// filter evaluates a raw message and returns it with verdict headers.
// A Phishing verdict is turned into a 550 rejection when blocking is enabled.
func (f *PostfixFilter) filter(ctx context.Context, raw []byte, sender string, recipients []string) ([]byte, error) {
	email, err := f.parser.Parse(raw, sender, recipients)
	if err != nil {
		return nil, &smtp.SMTPError{Code: 554, EnhancedCode: smtp.EnhancedCode{5, 6, 0}, Message: "Malformed message"}
	}
	if email.MessageID == "" {
		email.MessageID = uuid.NewString()
	}

	if f.cfg.EvaluationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.EvaluationTimeout)
		defer cancel()
	}

	verdict, evalErr := f.evaluator.Evaluate(ctx, email)
	if evalErr != nil {
		// fail open so mail keeps flowing
		f.logger.Error("Failed to evaluate email",
			zap.String("message_id", email.MessageID),
			zap.String("sender", email.Sender),
			zap.Error(evalErr))
	}

	if verdict != nil && f.sink != nil {
		if err := f.sink.Save(ctx, email.MessageID, verdict); err != nil {
			f.logger.Warn("Failed to store verdict", zap.String("message_id", email.MessageID), zap.Error(err))
		}
	}

	if verdict != nil && verdict.Classification == core.ClassificationPhishing && f.cfg.BlockPhishing {
		f.logger.Info("Rejecting phishing email",
			zap.String("message_id", email.MessageID),
			zap.String("sender", email.Sender),
			zap.Float64("final_score", verdict.FinalScore),
			zap.Strings("risk_factors", verdict.RiskFactors))
		return nil, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as phishing (score: %.2f)", verdict.FinalScore),
		}
	}

	return f.stamp(raw, email.MessageID, verdict, evalErr)
}

// stamp rewrites the header block and leaves the body bytes untouched
func (f *PostfixFilter) stamp(raw []byte, verdictID string, verdict *core.ThreatVerdict, evalErr error) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	th, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}
	h := mail.Header{Header: message.Header{Header: th}}

	// drop verdict headers injected by the sender
	for _, k := range threatHeaders {
		h.Del(k)
	}

	h.Set(HeaderVerdictID, verdictID)
	if evalErr != nil {
		h.Set(HeaderAnalysisError, singleLine(evalErr.Error()))
	}
	if verdict != nil {
		h.Set(HeaderClassification, string(verdict.Classification))
		h.Set(HeaderSeverity, string(verdict.Severity))
		h.Set(HeaderScore, fmt.Sprintf("%.2f", verdict.FinalScore))
		h.Set(HeaderConfidence, fmt.Sprintf("%s (%.2f)", verdict.Confidence.Level, verdict.Confidence.Score))
		h.Set(HeaderSummary, singleLine(verdict.Summary))
		if len(verdict.TechnicalDetails.DegradedInputs) > 0 {
			h.Set(HeaderDegraded, strings.Join(verdict.TechnicalDetails.DegradedInputs, ", "))
		}

		if prefix := f.subjectPrefix(verdict.Classification); prefix != "" {
			subject, err := h.Subject()
			if err != nil {
				subject = h.Get("Subject")
			}
			if !strings.HasPrefix(subject, prefix) {
				h.SetSubject(prefix + subject)
			}
		}
	}

	var out bytes.Buffer
	if err := textproto.WriteHeader(&out, h.Header.Header); err != nil {
		return nil, fmt.Errorf("failed to write message header: %w", err)
	}
	if _, err := io.Copy(&out, br); err != nil {
		return nil, fmt.Errorf("failed to copy message body: %w", err)
	}
	return out.Bytes(), nil
}

// subjectPrefix returns the configured prefix for threats, defaulting to the label name
func (f *PostfixFilter) subjectPrefix(c core.Classification) string {
	if !f.cfg.ModifySubject {
		return ""
	}
	var prefix string
	switch c {
	case core.ClassificationPhishing:
		prefix = f.cfg.PhishingPrefix
	case core.ClassificationSuspicious:
		prefix = f.cfg.SuspiciousPrefix
	default:
		return ""
	}
	if prefix == "" {
		prefix = "[" + strings.ToUpper(c.Label().Name) + "] "
	}
	return prefix
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sendToPostfix re-injects the processed message into Postfix
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := net.JoinHostPort(f.cfg.PostfixAddress, fmt.Sprint(f.cfg.PostfixPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
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
			continue
		}
		recipientOK = true
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
		// already delivered
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
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

// Data filters the message and hands it back to Postfix
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	out, err := s.filter.filter(context.Background(), raw, s.sender, s.recipients)
	if err != nil {
		return err
	}

	if !s.filter.cfg.PostfixEnabled {
		s.filter.logger.Warn("Postfix forwarding disabled, message dropped after filtering",
			zap.String("sender", s.sender))
		return nil
	}
	if err := s.filter.sendToPostfix(s.sender, s.recipients, out); err != nil {
		s.filter.logger.Error("Failed to send email back to Postfix",
			zap.Error(err),
			zap.String("sender", s.sender))
		return &smtp.SMTPError{Code: 451, EnhancedCode: smtp.EnhancedCode{4, 3, 0}, Message: "Temporary relay failure"}
	}
	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
