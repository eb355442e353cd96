package urls

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// urlPattern matches the scheme and host part of an HTTP(S) URL
var urlPattern = regexp.MustCompile(`https?://(?:[-\p{L}\p{N}_.]|%[\da-fA-F]{2})+`)

// Extractor finds candidate URLs in message bodies
type Extractor struct{}

// NewExtractor creates a new Extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the distinct URLs in body in first-seen order
func (e *Extractor) Extract(body string) []string {
	if body == "" {
		return []string{}
	}
	return dedupe(urlPattern.FindAllString(body, -1))
}

// ExtractHTML collects URLs from anchor targets and from the visible text of an HTML body.
// Anchor targets come first, then text matches, deduplicated in first-seen order.
func (e *Extractor) ExtractHTML(html string) ([]string, error) {
	if strings.TrimSpace(html) == "" {
		return []string{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var found []string
	doc.Find("a[href], area[href], form[action]").Each(func(i int, s *goquery.Selection) {
		target, ok := s.Attr("href")
		if !ok {
			target, _ = s.Attr("action")
		}
		found = append(found, urlPattern.FindAllString(strings.TrimSpace(target), -1)...)
	})
	found = append(found, urlPattern.FindAllString(doc.Text(), -1)...)

	return dedupe(found), nil
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, u := range in {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
