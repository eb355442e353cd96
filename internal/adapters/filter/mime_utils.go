package filter

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/textproc"
	"github.com/mikey/threat-verdict/internal/urls"
	"go.uber.org/zap"
)

// MessageParser turns raw RFC 5322 messages into core.Email values
type MessageParser struct {
	extractor   *urls.Extractor
	processor   *textproc.TextProcessor
	maxBodySize int
	logger      *zap.Logger
}

// NewMessageParser creates a new MessageParser.
// maxBodySize <= 0 keeps the whole decoded body.
func NewMessageParser(extractor *urls.Extractor, processor *textproc.TextProcessor, maxBodySize int, logger *zap.Logger) *MessageParser {
	return &MessageParser{
		extractor:   extractor,
		processor:   processor,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Parse decodes headers and text parts of raw.
// envelopeFrom and envelopeTo fill Sender and Recipient when the headers lack them.
func (p *MessageParser) Parse(raw []byte, envelopeFrom string, envelopeTo []string) (*core.Email, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if mr == nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}
	if err != nil {
		p.logger.Debug("Message uses an unknown charset", zap.Error(err))
	}

	email := &core.Email{
		Sender:     envelopeFrom,
		ReceivedAt: time.Now(),
	}
	if len(envelopeTo) > 0 {
		email.Recipient = envelopeTo[0]
	}

	h := mr.Header
	if subject, err := h.Subject(); err == nil {
		email.Subject = subject
	} else {
		email.Subject = h.Get("Subject")
	}
	if id, err := h.MessageID(); err == nil {
		email.MessageID = id
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		email.ReceivedAt = date
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		email.Sender = from[0].Address
	}
	if email.Recipient == "" {
		if to, err := h.AddressList("To"); err == nil && len(to) > 0 {
			email.Recipient = to[0].Address
		}
	}

	plain, html := p.readTextParts(mr)
	body := plain
	if strings.TrimSpace(body) == "" && html != "" {
		body = htmlToText(html)
	}

	// links hidden behind anchor text are appended so URL reputation sees them
	if html != "" {
		if hidden := p.hiddenLinks(html, body); len(hidden) > 0 {
			body = strings.TrimRight(body, "\n") + "\n\n" + strings.Join(hidden, "\n")
		}
	}

	email.Body = p.processor.ProcessText(body, p.maxBodySize)
	return email, nil
}

// readTextParts concatenates the inline text/plain and text/html parts
func (p *MessageParser) readTextParts(mr *mail.Reader) (string, string) {
	var plain, html strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) || message.IsUnknownEncoding(err) {
				p.logger.Debug("Skipping undecodable part", zap.Error(err))
				continue
			}
			p.logger.Warn("Failed to read message part", zap.Error(err))
			break
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, err := inline.ContentType()
		if err != nil {
			mediaType = "text/plain"
		}

		var dst *strings.Builder
		switch mediaType {
		case "text/plain":
			dst = &plain
		case "text/html":
			dst = &html
		default:
			continue
		}
		data, err := io.ReadAll(part.Body)
		if err != nil {
			p.logger.Debug("Failed to read text part", zap.String("content_type", mediaType), zap.Error(err))
			continue
		}
		dst.Write(data)
		dst.WriteString("\n")
	}
	return plain.String(), html.String()
}

// hiddenLinks returns URLs of the HTML body that the text body does not contain
func (p *MessageParser) hiddenLinks(html, body string) []string {
	links, err := p.extractor.ExtractHTML(html)
	if err != nil {
		p.logger.Debug("Failed to extract HTML links", zap.Error(err))
		return nil
	}

	seen := make(map[string]struct{})
	for _, u := range p.extractor.Extract(body) {
		seen[u] = struct{}{}
	}
	var out []string
	for _, u := range links {
		if _, ok := seen[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

// htmlToText returns the visible text of an HTML document
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, head").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
