package filter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/textproc"
	"github.com/mikey/threat-verdict/internal/urls"
	"go.uber.org/zap"
)

type fakeEvaluator struct {
	verdict *core.ThreatVerdict
	err     error
	got     *core.Email
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, email *core.Email) (*core.ThreatVerdict, error) {
	f.got = email
	return f.verdict, f.err
}

type recordingSink struct {
	ids []string
}

func (s *recordingSink) Save(ctx context.Context, messageID string, verdict *core.ThreatVerdict) error {
	s.ids = append(s.ids, messageID)
	return nil
}

func newTestParser() *MessageParser {
	logger := zap.NewNop()
	return NewMessageParser(urls.NewExtractor(), textproc.NewTextProcessor(logger), 0, logger)
}

func verdictFor(c core.Classification, score float64) *core.ThreatVerdict {
	return &core.ThreatVerdict{
		Classification: c,
		Severity:       core.SeverityHigh,
		FinalScore:     score,
		Confidence:     core.ConfidenceResult{Level: core.ConfidenceHigh, Score: 0.9},
		Summary:        "Multiple\nphishing indicators detected",
		TechnicalDetails: core.TechnicalDetails{
			DegradedInputs: []string{"reputation"},
		},
	}
}

const plainMessage = "From: Alerts <alerts@paypa1-secure.xyz>\r\n" +
	"To: victim@example.com\r\n" +
	"Subject: Account suspended\r\n" +
	"Message-ID: <abc123@paypa1-secure.xyz>\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Verify your account at http://paypa1-secure.xyz/login now.\r\n"

func TestParsePlainMessage(t *testing.T) {
	email, err := newTestParser().Parse([]byte(plainMessage), "bounce@relay.example", []string{"rcpt@example.com"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if email.Sender != "alerts@paypa1-secure.xyz" {
		t.Errorf("Sender = %q", email.Sender)
	}
	if email.Recipient != "rcpt@example.com" {
		t.Errorf("Recipient = %q, want envelope recipient", email.Recipient)
	}
	if email.Subject != "Account suspended" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if email.MessageID != "abc123@paypa1-secure.xyz" {
		t.Errorf("MessageID = %q", email.MessageID)
	}
	if email.ReceivedAt.Year() != 2006 {
		t.Errorf("ReceivedAt = %v", email.ReceivedAt)
	}
	if !strings.Contains(email.Body, "http://paypa1-secure.xyz/login") {
		t.Errorf("Body = %q", email.Body)
	}
}

func TestParseMultipartAppendsHiddenLinks(t *testing.T) {
	raw := "From: support@example.org\r\n" +
		"Subject: =?utf-8?q?R=C3=A9activez_votre_compte?=\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=iso-8859-1\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"Cliquez ici pour r=E9activer.\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>Cliquez <a href=\"http://evil.example.net/reset\">ici</a></p>\r\n" +
		"--XYZ--\r\n"

	email, err := newTestParser().Parse([]byte(raw), "", nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if email.Subject != "Réactivez votre compte" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if !strings.Contains(email.Body, "réactiver") {
		t.Errorf("charset not decoded: %q", email.Body)
	}
	if !strings.HasSuffix(email.Body, "http://evil.example.net") {
		t.Errorf("hidden link not appended: %q", email.Body)
	}
}

func TestParseHTMLOnly(t *testing.T) {
	raw := "From: news@example.org\r\n" +
		"Subject: Hello\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<html><head><style>p{}</style></head><body><p>Weekly   update</p><script>x()</script></body></html>\r\n"

	email, err := newTestParser().Parse([]byte(raw), "", nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if email.Body != "Weekly update" {
		t.Errorf("Body = %q", email.Body)
	}
}

func TestStampAddsHeadersAndPrefix(t *testing.T) {
	f := NewPostfixFilter(&fakeEvaluator{}, newTestParser(), nil, config.ServerConfig{ModifySubject: true}, zap.NewNop())

	spoofed := strings.Replace(plainMessage, "\r\n\r\n", "\r\nX-Threat-Classification: Safe\r\n\r\n", 1)
	out, err := f.stamp([]byte(spoofed), "id-1", verdictFor(core.ClassificationSuspicious, 0.5), nil)
	if err != nil {
		t.Fatalf("stamp returned error: %v", err)
	}

	email, err := newTestParser().Parse(out, "", nil)
	if err != nil {
		t.Fatalf("stamped message does not parse: %v", err)
	}
	if email.Subject != "[SUSPICIOUS] Account suspended" {
		t.Errorf("Subject = %q", email.Subject)
	}

	text := string(out)
	for _, want := range []string{
		"X-Threat-Classification: Suspicious",
		"X-Threat-Score: 0.50",
		"X-Threat-Confidence: High (0.90)",
		"X-Threat-Summary: Multiple phishing indicators detected",
		"X-Threat-Verdict-Id: id-1",
		"X-Threat-Degraded: reputation",
	} {
		if !strings.Contains(strings.ToLower(text), strings.ToLower(want)) {
			t.Errorf("missing header %q in:\n%s", want, text)
		}
	}
	if strings.Count(text, "X-Threat-Classification") != 1 {
		t.Error("spoofed classification header kept")
	}
	if !strings.HasSuffix(text, "Verify your account at http://paypa1-secure.xyz/login now.\r\n") {
		t.Error("body was modified")
	}

	again, err := f.stamp(out, "id-1", verdictFor(core.ClassificationSuspicious, 0.5), nil)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Count(again, []byte("[SUSPICIOUS]")) != 1 {
		t.Error("subject prefix added twice")
	}
}

func TestFilterRejectsPhishingWhenBlocking(t *testing.T) {
	sink := &recordingSink{}
	eval := &fakeEvaluator{verdict: verdictFor(core.ClassificationPhishing, 0.91)}
	f := NewPostfixFilter(eval, newTestParser(), sink, config.ServerConfig{BlockPhishing: true}, zap.NewNop())

	_, err := f.filter(context.Background(), []byte(plainMessage), "a@b.c", []string{"d@e.f"})
	var smtpErr *smtp.SMTPError
	if !errors.As(err, &smtpErr) || smtpErr.Code != 550 {
		t.Fatalf("err = %v, want 550 rejection", err)
	}
	if len(sink.ids) != 1 || sink.ids[0] != "abc123@paypa1-secure.xyz" {
		t.Errorf("stored ids = %v", sink.ids)
	}
}

func TestFilterFailsOpen(t *testing.T) {
	eval := &fakeEvaluator{err: &core.InputError{Field: "sender", Reason: "missing"}}
	f := NewPostfixFilter(eval, newTestParser(), nil, config.ServerConfig{}, zap.NewNop())

	raw := strings.Replace(plainMessage, "Message-ID: <abc123@paypa1-secure.xyz>\r\n", "", 1)
	out, err := f.filter(context.Background(), []byte(raw), "", nil)
	if err != nil {
		t.Fatalf("filter returned error: %v", err)
	}
	if !strings.Contains(string(out), "X-Threat-Analysis-Error") {
		t.Errorf("analysis error header missing:\n%s", out)
	}
	if eval.got == nil || eval.got.MessageID == "" {
		t.Error("missing message id was not generated")
	}
}

type captureBackend struct {
	msgs chan []byte
}

func (b *captureBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &captureSession{b: b}, nil
}

type captureSession struct {
	b *captureBackend
}

func (s *captureSession) Reset()                               {}
func (s *captureSession) Logout() error                        { return nil }
func (s *captureSession) Mail(string, *smtp.MailOptions) error { return nil }
func (s *captureSession) Rcpt(string, *smtp.RcptOptions) error { return nil }
func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.msgs <- data
	return nil
}

func TestPostfixRoundTrip(t *testing.T) {
	backend := &captureBackend{msgs: make(chan []byte, 1)}
	upstream := smtp.NewServer(backend)
	upstream.Domain = "localhost"
	upstream.AllowInsecureAuth = true
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go upstream.Serve(l)
	defer upstream.Close()

	cfg := config.ServerConfig{
		ListenAddress:     "127.0.0.1:0",
		PostfixEnabled:    true,
		PostfixAddress:    "127.0.0.1",
		PostfixPort:       l.Addr().(*net.TCPAddr).Port,
		EvaluationTimeout: 5 * time.Second,
	}
	f := NewPostfixFilter(&fakeEvaluator{verdict: verdictFor(core.ClassificationSafe, 0.1)}, newTestParser(), nil, cfg, zap.NewNop())
	if err := f.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer f.Stop()

	err = smtp.SendMail(f.Addr().String(), nil, "alerts@paypa1-secure.xyz", []string{"victim@example.com"}, strings.NewReader(plainMessage))
	if err != nil {
		t.Fatalf("SendMail returned error: %v", err)
	}

	select {
	case msg := <-backend.msgs:
		if !strings.Contains(string(msg), "X-Threat-Classification: Safe") {
			t.Errorf("relayed message not stamped:\n%s", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message was not relayed")
	}
}

func TestCliFilterRender(t *testing.T) {
	verdict := verdictFor(core.ClassificationPhishing, 82)
	verdict.RemediationSteps = core.ClassificationPhishing.RemediationSteps()

	tests := []struct {
		format string
		want   string
	}{
		{FormatText, "Classification: Phishing"},
		{FormatJSON, `"classification": "Phishing"`},
		{FormatYAML, "classification: Phishing"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			f, err := NewCliFilter(nil, &out, tt.format, zap.NewNop(), false)
			if err != nil {
				t.Fatalf("NewCliFilter: %v", err)
			}
			if err := f.Render(nil, verdict); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out.String())
			}
		})
	}

	if _, err := NewCliFilter(nil, io.Discard, "xml", zap.NewNop(), false); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestCliFilterProcessEmail(t *testing.T) {
	eval := &fakeEvaluator{verdict: verdictFor(core.ClassificationSuspicious, 55)}
	var out bytes.Buffer
	f, err := NewCliFilter(eval, &out, FormatText, zap.NewNop(), true)
	if err != nil {
		t.Fatal(err)
	}

	email := &core.Email{Sender: "a@example.com", Subject: "hi", Body: "hello"}
	if _, err := f.ProcessEmail(context.Background(), email); err != nil {
		t.Fatalf("ProcessEmail: %v", err)
	}
	if eval.got != email {
		t.Error("evaluator did not receive the email")
	}
	if !strings.Contains(out.String(), "From: a@example.com") {
		t.Errorf("summary missing sender:\n%s", out.String())
	}

	eval.err = errors.New("boom")
	if _, err := f.ProcessEmail(context.Background(), email); err == nil {
		t.Error("expected the evaluation error")
	}
}
