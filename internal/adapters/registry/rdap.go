package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

// DefaultRDAPBootstrap is used for TLDs without a known registry endpoint
const DefaultRDAPBootstrap = "https://rdap.org/"

// DefaultRDAPEndpoints maps TLDs to their registry RDAP service
var DefaultRDAPEndpoints = map[string]string{
	"com":  "https://rdap.verisign.com/com/v1/",
	"net":  "https://rdap.verisign.com/net/v1/",
	"org":  "https://rdap.publicinterestregistry.net/rdap/",
	"io":   "https://rdap.nic.io/",
	"dev":  "https://rdap.nic.google/",
	"app":  "https://rdap.nic.google/",
	"uk":   "https://rdap.nominet.uk/uk/",
	"eu":   "https://rdap.eu/",
	"nl":   "https://rdap.sidn.nl/rdap/",
	"au":   "https://rdap.auda.org.au/rdap/",
	"cc":   "https://rdap.verisign.com/cc/v1/",
	"tv":   "https://rdap.verisign.com/tv/v1/",
	"xyz":  "https://rdap.centralnic.com/xyz/",
	"co":   "https://rdap.nic.co/",
	"me":   "https://rdap.nic.me/",
	"ai":   "https://rdap.nic.ai/",
	"info": "https://rdap.afilias.net/rdap/info/",
	"biz":  "https://rdap.nic.biz/",
	"top":  "https://rdap.nic.top/",
}

const maxRDAPBody = 1 << 20

// RDAPClient looks up registration data over RDAP
type RDAPClient struct {
	endpoints  map[string]string
	bootstrap  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRDAPClient creates a new RDAP client. Extra endpoints override the defaults per TLD.
func NewRDAPClient(endpoints map[string]string, bootstrap string, timeout time.Duration, logger *zap.Logger) *RDAPClient {
	merged := make(map[string]string, len(DefaultRDAPEndpoints)+len(endpoints))
	for tld, ep := range DefaultRDAPEndpoints {
		merged[tld] = ep
	}
	for tld, ep := range endpoints {
		merged[strings.ToLower(tld)] = ep
	}
	if bootstrap == "" {
		bootstrap = DefaultRDAPBootstrap
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RDAPClient{
		endpoints:  merged,
		bootstrap:  bootstrap,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type rdapEntity struct {
	Roles      []string     `json:"roles"`
	Handle     string       `json:"handle"`
	VCardArray []any        `json:"vcardArray"`
	Entities   []rdapEntity `json:"entities"`
}

type rdapDomain struct {
	LDHName   string `json:"ldhName"`
	ErrorCode int    `json:"errorCode"`
	Events    []struct {
		Action string `json:"eventAction"`
		Date   string `json:"eventDate"`
	} `json:"events"`
	Entities []rdapEntity `json:"entities"`
}

// Name identifies the lookup in logs
func (c *RDAPClient) Name() string {
	return "RDAP"
}

// Lookup fetches the domain object and extracts the registration event and registrar
func (c *RDAPClient) Lookup(ctx context.Context, domain string) (*core.RegistrationRecord, error) {
	endpoint, ok := c.endpoints[tldOf(domain)]
	if !ok {
		endpoint = c.bootstrap
	}
	rdapURL := fmt.Sprintf("%s/domain/%s", strings.TrimRight(endpoint, "/"), domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rdapURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build RDAP request: %w", err)
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query RDAP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("RDAP returned HTTP %d", resp.StatusCode)
	}

	var data rdapDomain
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRDAPBody)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode RDAP response: %w", err)
	}
	if data.ErrorCode != 0 {
		return nil, fmt.Errorf("RDAP error response %d", data.ErrorCode)
	}

	record := &core.RegistrationRecord{
		Domain:    domain,
		Registrar: findRegistrar(data.Entities),
		Source:    c.Name(),
	}
	for _, ev := range data.Events {
		if ev.Action != "registration" {
			continue
		}
		created, err := parseDate(ev.Date)
		if err != nil {
			c.logger.Debug("Unparseable RDAP registration date", zap.String("domain", domain), zap.String("date", ev.Date))
			continue
		}
		record.CreationDate = created
		break
	}

	c.logger.Debug("RDAP lookup complete",
		zap.String("domain", domain),
		zap.Time("created", record.CreationDate),
		zap.String("registrar", record.Registrar))

	return record, nil
}

func findRegistrar(entities []rdapEntity) string {
	for _, e := range entities {
		if hasRole(e, "registrar") {
			if name := vcardName(e.VCardArray); name != "" {
				return name
			}
			if e.Handle != "" && !isDigits(e.Handle) {
				return e.Handle
			}
		}
		if name := findRegistrar(e.Entities); name != "" {
			return name
		}
	}
	return ""
}

func hasRole(e rdapEntity, role string) bool {
	for _, r := range e.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// vcardName returns the fn property of a jCard
func vcardName(vcard []any) string {
	if len(vcard) != 2 {
		return ""
	}
	items, ok := vcard[1].([]any)
	if !ok {
		return ""
	}
	for _, item := range items {
		prop, ok := item.([]any)
		if !ok || len(prop) < 4 {
			continue
		}
		if fmt.Sprint(prop[0]) == "fn" {
			return strings.TrimSpace(fmt.Sprint(prop[3]))
		}
	}
	return ""
}
