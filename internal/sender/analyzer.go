package sender

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/domainlist"
	"go.uber.org/zap"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// NewDomainAge is the age in days below which a domain counts as newly registered
const NewDomainAge = 30

var suspiciousNameWords = []string{
	"alert", "security", "secure", "bank", "update", "verify", "account", "support", "service",
}

var errNoCreationDate = errors.New("registration record has no creation date")

// Analyzer profiles the sender's domain
type Analyzer struct {
	lookup   core.RegistrationLookup
	freeMail *domainlist.Matcher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyzer creates a new sender domain analyzer
func NewAnalyzer(lookup core.RegistrationLookup, freeMail *domainlist.Matcher, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		lookup:   lookup,
		freeMail: freeMail,
		logger:   logger,
		now:      time.Now,
	}
}

// Analyze never fails. Malformed addresses and failed lookups resolve toward
// suspicion: IsNewDomain is set and the reason is kept in LookupError.
func (a *Analyzer) Analyze(ctx context.Context, address string) core.DomainProfile {
	domain, err := domainOf(address)
	if err != nil {
		reason := err.Error()
		a.logger.Debug("Malformed sender address", zap.String("sender", address), zap.Error(err))
		return core.DomainProfile{IsNewDomain: true, LookupError: &reason}
	}

	tld, _ := publicsuffix.PublicSuffix(domain)
	profile := core.DomainProfile{
		Domain:              &domain,
		TLD:                 tld,
		IsSuspiciousName:    containsAny(domain, suspiciousNameWords),
		IsFreeEmailProvider: a.freeMail.Contains(domain),
	}

	registered, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		registered = domain
	}

	record, err := a.lookup.Lookup(ctx, registered)
	if err == nil && record.CreationDate.IsZero() {
		err = errNoCreationDate
	}
	if err != nil {
		reason := core.SignalError("registration lookup", err).Error()
		a.logger.Warn("Domain registration lookup failed",
			zap.String("domain", registered),
			zap.Error(err))
		profile.IsNewDomain = true
		profile.LookupError = &reason
		return profile
	}

	age := int(math.Floor(a.now().Sub(record.CreationDate).Hours() / 24))
	profile.AgeDays = &age
	profile.IsNewDomain = age < NewDomainAge
	if record.Registrar != "" {
		registrar := record.Registrar
		profile.Registrar = &registrar
	}
	return profile
}

func domainOf(address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", errors.New("no sender address provided")
	}

	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return "", fmt.Errorf("invalid sender address: %w", err)
	}

	at := strings.LastIndexByte(parsed.Address, '@')
	if at < 0 {
		return "", errors.New("invalid sender address: missing domain")
	}
	domain := strings.TrimSuffix(strings.ToLower(parsed.Address[at+1:]), ".")
	if domain == "" {
		return "", errors.New("invalid sender address: missing domain")
	}

	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return "", fmt.Errorf("invalid sender domain %q: %w", domain, err)
	}
	return ascii, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
