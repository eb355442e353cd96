package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

// DefaultWHOISServers maps TLDs to their registry WHOIS server
var DefaultWHOISServers = map[string]string{
	"com": "whois.verisign-grs.com", "net": "whois.verisign-grs.com",
	"org": "whois.pir.org", "io": "whois.nic.io",
	"dev": "whois.nic.google", "app": "whois.nic.google",
	"co": "whois.nic.co", "me": "whois.nic.me",
	"uk": "whois.nic.uk", "us": "whois.nic.us",
	"ca": "whois.cira.ca", "au": "whois.auda.org.au",
	"de": "whois.denic.de", "fr": "whois.nic.fr",
	"nl": "whois.sidn.nl", "eu": "whois.eu",
	"it": "whois.nic.it", "ch": "whois.nic.ch",
	"se": "whois.iis.se", "pl": "whois.dns.pl",
	"xyz": "whois.nic.xyz", "info": "whois.afilias.net",
	"biz": "whois.nic.biz", "top": "whois.nic.top",
}

const maxWHOISResponse = 32 << 10

var (
	registrarRe = regexp.MustCompile(`(?im)^\s*(?:registrar|sponsoring registrar|registrar[- ]name)\s*:\s*(.+)$`)
	createdRe   = regexp.MustCompile(`(?im)^\s*(?:creation date|created(?: on)?|registered(?: on)?|registration time|domain registration date|registered date)\s*:\s*(.+)$`)
)

var whoisRestrictedIndicators = []string{
	"not authorised", "not authorized", "access denied",
	"query rate limit exceeded", "too many queries", "exceeded the established limit",
}

// ErrRestricted is returned when a WHOIS server refuses to answer
var ErrRestricted = errors.New("whois access restricted")

// WHOISClient looks up registration data over the WHOIS protocol
type WHOISClient struct {
	servers map[string]string
	port    string
	timeout time.Duration
	logger  *zap.Logger
}

// NewWHOISClient creates a new WHOIS client. Extra servers override the defaults per TLD.
func NewWHOISClient(servers map[string]string, timeout time.Duration, logger *zap.Logger) *WHOISClient {
	merged := make(map[string]string, len(DefaultWHOISServers)+len(servers))
	for tld, s := range DefaultWHOISServers {
		merged[tld] = s
	}
	for tld, s := range servers {
		merged[strings.ToLower(tld)] = s
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WHOISClient{
		servers: merged,
		port:    "43",
		timeout: timeout,
		logger:  logger,
	}
}

// Name identifies the lookup in logs
func (c *WHOISClient) Name() string {
	return "WHOIS"
}

// Lookup queries the registry WHOIS server for the domain
func (c *WHOISClient) Lookup(ctx context.Context, domain string) (*core.RegistrationRecord, error) {
	server, ok := c.servers[tldOf(domain)]
	if !ok {
		return nil, fmt.Errorf("no WHOIS server known for %q", tldOf(domain))
	}

	output, err := c.query(ctx, server, domain)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(output)
	if strings.Contains(lower, "no match for") || strings.Contains(lower, "not found") {
		return nil, core.ErrNotFound
	}
	for _, indicator := range whoisRestrictedIndicators {
		if strings.Contains(lower, indicator) {
			return nil, ErrRestricted
		}
	}

	record := &core.RegistrationRecord{Domain: domain, Source: c.Name()}
	if m := registrarRe.FindStringSubmatch(output); m != nil {
		if v := strings.TrimSpace(m[1]); !strings.HasPrefix(strings.ToLower(v), "http") {
			record.Registrar = v
		}
	}
	if m := createdRe.FindStringSubmatch(output); m != nil {
		created, err := parseDate(strings.TrimSpace(m[1]))
		if err != nil {
			return nil, fmt.Errorf("failed to parse WHOIS creation date: %w", err)
		}
		record.CreationDate = created
	}

	c.logger.Debug("WHOIS lookup complete",
		zap.String("domain", domain),
		zap.String("server", server),
		zap.Time("created", record.CreationDate))

	return record, nil
}

func (c *WHOISClient) query(ctx context.Context, server, domain string) (string, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(server, c.port))
	if err != nil {
		return "", fmt.Errorf("failed to connect to WHOIS server %s: %w", server, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write([]byte(domain + "\r\n")); err != nil {
		return "", fmt.Errorf("failed to send WHOIS query: %w", err)
	}

	body, err := io.ReadAll(io.LimitReader(conn, maxWHOISResponse))
	if err != nil {
		return "", fmt.Errorf("failed to read WHOIS response: %w", err)
	}
	return string(body), nil
}
