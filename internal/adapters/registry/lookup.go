package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

// NamedLookup is a registration lookup that can be named in logs
type NamedLookup interface {
	core.RegistrationLookup
	Name() string
}

// FallbackLookup tries each lookup in order and returns the first record with a creation date
type FallbackLookup struct {
	lookups []NamedLookup
	logger  *zap.Logger
}

// NewFallbackLookup creates a lookup chain, typically RDAP then WHOIS
func NewFallbackLookup(logger *zap.Logger, lookups ...NamedLookup) *FallbackLookup {
	return &FallbackLookup{
		lookups: lookups,
		logger:  logger,
	}
}

func (f *FallbackLookup) Lookup(ctx context.Context, domain string) (*core.RegistrationRecord, error) {
	var errs []error
	var partial *core.RegistrationRecord

	for _, l := range f.lookups {
		record, err := l.Lookup(ctx, domain)
		if err != nil {
			f.logger.Debug("Registration source failed",
				zap.String("source", l.Name()),
				zap.String("domain", domain),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if !record.CreationDate.IsZero() {
			return record, nil
		}
		if partial == nil {
			partial = record
		}
	}

	if partial != nil {
		return partial, nil
	}
	if len(errs) == 0 {
		return nil, errors.New("no registration sources configured")
	}
	return nil, errors.Join(errs...)
}

const cacheKeyPrefix = "reg:"

// CachedLookup decorates a RegistrationLookup with an external cache
type CachedLookup struct {
	next   core.RegistrationLookup
	cache  core.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLookup creates a new caching decorator
func NewCachedLookup(next core.RegistrationLookup, cache core.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedLookup {
	return &CachedLookup{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedLookup) Lookup(ctx context.Context, domain string) (*core.RegistrationRecord, error) {
	key := cacheKeyPrefix + domain

	if entry, err := c.cache.Get(ctx, key); err == nil {
		var record core.RegistrationRecord
		if err := json.Unmarshal(entry.Value, &record); err == nil {
			c.logger.Debug("Registration cache hit", zap.String("domain", domain))
			return &record, nil
		}
	} else if !errors.Is(err, core.ErrNotFound) && !errors.Is(err, core.ErrExpired) {
		c.logger.Warn("Registration cache read failed", zap.Error(err))
	}

	record, err := c.next.Lookup(ctx, domain)
	if err != nil {
		return nil, err
	}

	if !record.CreationDate.IsZero() {
		if data, err := json.Marshal(record); err == nil {
			now := time.Now()
			if err := c.cache.Set(ctx, &core.CacheEntry{Key: key, Value: data, StoredAt: now, ExpiresAt: now.Add(c.ttl)}); err != nil {
				c.logger.Warn("Failed to update registration cache", zap.Error(err))
			}
		}
	}
	return record, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006.01.02 15:04:05",
	"2006.01.02",
	"02-Jan-2006",
	"02-Jan-2006 15:04:05 MST",
	"January 2 2006",
	"2006/01/02",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func tldOf(domain string) string {
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if i := strings.LastIndexByte(domain, '.'); i >= 0 {
		return domain[i+1:]
	}
	return domain
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
