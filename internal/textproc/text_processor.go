package textproc

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor provides byte-level cleanup of decoded message text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// LimitSize cuts text to at most maxSize bytes on a rune boundary.
// maxSize <= 0 disables the limit.
func (tp *TextProcessor) LimitSize(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	limited := text[:maxSize]
	for !utf8.ValidString(limited) && len(limited) > 0 {
		limited = limited[:len(limited)-1]
	}

	tp.logger.Debug("Text size limited",
		zap.Int("original_size", len(text)),
		zap.Int("limited_size", len(limited)),
		zap.Int("max_size", maxSize))

	return limited
}

// SanitizeUTF8 drops invalid UTF-8 bytes
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// ProcessText limits and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.LimitSize(text, maxSize))
}

// DecodeJSONObject unmarshals the outermost JSON object found in a model reply.
// Chat models often wrap the object in prose or code fences.
func DecodeJSONObject(reply string, v any) error {
	if err := json.Unmarshal([]byte(reply), v); err == nil {
		return nil
	}

	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("failed to find a JSON object in model reply")
	}

	if err := json.Unmarshal([]byte(reply[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse model reply as JSON: %w", err)
	}
	return nil
}
