package domainlist

import (
	"strings"

	"go.uber.org/zap"
)

// FreeMailProviders is the built-in list of free email providers
var FreeMailProviders = []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com"}

// Matcher checks domains against a fixed list
type Matcher struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewMatcher creates a matcher over base plus extra domains.
// extra can only add to the base list.
func NewMatcher(base, extra []string, logger *zap.Logger) *Matcher {
	domains := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, d := range list {
			d = normalize(d)
			if d != "" {
				domains[d] = struct{}{}
			}
		}
	}

	if len(extra) > 0 && logger != nil {
		logger.Info("Extended domain list", zap.Strings("added", extra), zap.Int("size", len(domains)))
	}

	return &Matcher{
		domains: domains,
		logger:  logger,
	}
}

// NewFreeMailMatcher creates a matcher over FreeMailProviders and extra
func NewFreeMailMatcher(extra []string, logger *zap.Logger) *Matcher {
	return NewMatcher(FreeMailProviders, extra, logger)
}

// Contains reports whether domain is on the list
func (m *Matcher) Contains(domain string) bool {
	_, ok := m.domains[normalize(domain)]
	return ok
}

// ContainsAddress reports whether the domain part of an address is on the list
func (m *Matcher) ContainsAddress(address string) bool {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return false
	}
	domain := address[at+1:]
	if m.Contains(domain) {
		if m.logger != nil {
			m.logger.Debug("Address domain matched", zap.String("domain", domain))
		}
		return true
	}
	return false
}

// Len returns the number of listed domains
func (m *Matcher) Len() int {
	return len(m.domains)
}

func normalize(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}
