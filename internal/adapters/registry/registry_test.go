package registry

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

const rdapBody = `{
  "objectClassName": "domain",
  "ldhName": "EXAMPLE.COM",
  "events": [
    {"eventAction": "expiration", "eventDate": "2030-08-13T04:00:00Z"},
    {"eventAction": "registration", "eventDate": "1995-08-14T04:00:00Z"}
  ],
  "entities": [
    {"roles": ["registrant"], "vcardArray": ["vcard", [["fn", {}, "text", "REDACTED"]]]},
    {"roles": ["registrar"], "handle": "376",
     "vcardArray": ["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "RESERVED-Internet Assigned Numbers Authority"]]]}
  ]
}`

func TestRDAPLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/domain/example.com":
			w.Header().Set("Content-Type", "application/rdap+json")
			_, _ = w.Write([]byte(rdapBody))
		case "/domain/broken.com":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewRDAPClient(map[string]string{"com": srv.URL + "/"}, "", time.Second, zap.NewNop())

	rec, err := c.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if want := time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC); !rec.CreationDate.Equal(want) {
		t.Errorf("CreationDate = %v, want %v", rec.CreationDate, want)
	}
	if rec.Registrar != "RESERVED-Internet Assigned Numbers Authority" {
		t.Errorf("Registrar = %q", rec.Registrar)
	}
	if rec.Source != "RDAP" {
		t.Errorf("Source = %q", rec.Source)
	}

	if _, err := c.Lookup(context.Background(), "missing.com"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := c.Lookup(context.Background(), "broken.com"); err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("err = %v, want HTTP 502 error", err)
	}
}

func startWHOIS(t *testing.T, responses map[string]string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				line, _ := bufio.NewReader(conn).ReadString('\n')
				_, _ = conn.Write([]byte(responses[strings.TrimSpace(line)]))
			}(conn)
		}
	}()

	_, port, _ := net.SplitHostPort(ln.Addr().String())
	return port
}

func TestWHOISLookup(t *testing.T) {
	port := startWHOIS(t, map[string]string{
		"fresh.com": "   Domain Name: FRESH.COM\r\n   Registrar: NameCheap, Inc.\r\n   Creation Date: 2024-05-20T10:11:12Z\r\n",
		"gone.com":  "No match for \"GONE.COM\".\r\n",
		"busy.com":  "Query rate limit exceeded. Try again later.\r\n",
	})

	c := NewWHOISClient(map[string]string{"com": "127.0.0.1"}, time.Second, zap.NewNop())
	c.port = port

	rec, err := c.Lookup(context.Background(), "fresh.com")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if want := time.Date(2024, 5, 20, 10, 11, 12, 0, time.UTC); !rec.CreationDate.Equal(want) {
		t.Errorf("CreationDate = %v, want %v", rec.CreationDate, want)
	}
	if rec.Registrar != "NameCheap, Inc." {
		t.Errorf("Registrar = %q", rec.Registrar)
	}

	if _, err := c.Lookup(context.Background(), "gone.com"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := c.Lookup(context.Background(), "busy.com"); !errors.Is(err, ErrRestricted) {
		t.Errorf("err = %v, want ErrRestricted", err)
	}
	if _, err := c.Lookup(context.Background(), "example.zz"); err == nil {
		t.Error("expected error for unknown TLD")
	}
}

type fakeLookup struct {
	name   string
	record *core.RegistrationRecord
	err    error
	calls  int
}

func (f *fakeLookup) Name() string { return f.name }

func (f *fakeLookup) Lookup(ctx context.Context, domain string) (*core.RegistrationRecord, error) {
	f.calls++
	return f.record, f.err
}

func TestFallbackLookup(t *testing.T) {
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	rdap := &fakeLookup{name: "RDAP", err: errors.New("HTTP 503")}
	whois := &fakeLookup{name: "WHOIS", record: &core.RegistrationRecord{CreationDate: created, Source: "WHOIS"}}
	rec, err := NewFallbackLookup(zap.NewNop(), rdap, whois).Lookup(context.Background(), "example.com")
	if err != nil || rec.Source != "WHOIS" {
		t.Fatalf("got %+v, %v", rec, err)
	}

	rdap = &fakeLookup{name: "RDAP", err: errors.New("HTTP 503")}
	whois = &fakeLookup{name: "WHOIS", err: ErrRestricted}
	_, err = NewFallbackLookup(zap.NewNop(), rdap, whois).Lookup(context.Background(), "example.com")
	if err == nil || !errors.Is(err, ErrRestricted) || !strings.Contains(err.Error(), "HTTP 503") {
		t.Errorf("err = %v, want both failures joined", err)
	}

	// a record without a creation date is only used when nothing better exists
	rdap = &fakeLookup{name: "RDAP", record: &core.RegistrationRecord{Registrar: "X"}}
	whois = &fakeLookup{name: "WHOIS", err: errors.New("refused")}
	rec, err = NewFallbackLookup(zap.NewNop(), rdap, whois).Lookup(context.Background(), "example.com")
	if err != nil || rec.Registrar != "X" {
		t.Errorf("got %+v, %v", rec, err)
	}
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*core.CacheEntry
}

func (m *mapCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		return e, nil
	}
	return nil, core.ErrNotFound
}

func (m *mapCache) Set(ctx context.Context, e *core.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Key] = e
	return nil
}

func (m *mapCache) Delete(ctx context.Context, key string) error { return nil }

func (m *mapCache) Cleanup(ctx context.Context) error { return nil }

func TestCachedLookup(t *testing.T) {
	created := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	next := &fakeLookup{name: "RDAP", record: &core.RegistrationRecord{Domain: "example.com", CreationDate: created, Registrar: "R"}}
	c := NewCachedLookup(next, &mapCache{entries: map[string]*core.CacheEntry{}}, time.Hour, zap.NewNop())

	for i := 0; i < 3; i++ {
		rec, err := c.Lookup(context.Background(), "example.com")
		if err != nil {
			t.Fatalf("Lookup returned error: %v", err)
		}
		if !rec.CreationDate.Equal(created) || rec.Registrar != "R" {
			t.Errorf("record = %+v", rec)
		}
	}
	if next.calls != 1 {
		t.Errorf("next called %d times, want 1", next.calls)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-05-20T10:11:12Z", "2024-05-20", "20-May-2024", "2024.05.20", "2024-05-20 10:11:12"} {
		got, err := parseDate(s)
		if err != nil {
			t.Errorf("parseDate(%q) returned error: %v", s, err)
			continue
		}
		if got.Year() != 2024 || got.Month() != time.May || got.Day() != 20 {
			t.Errorf("parseDate(%q) = %v", s, got)
		}
	}
	if _, err := parseDate("yesterday"); err == nil {
		t.Error("expected error for unparseable date")
	}
}
