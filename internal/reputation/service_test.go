package reputation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

type fakeOracle struct {
	mu        sync.Mutex
	stats     map[string]*core.AnalysisStats
	afterScan map[string]*core.AnalysisStats
	lookupErr error
	submitErr error
	lookups   map[string]int
	submits   []string
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		stats:     map[string]*core.AnalysisStats{},
		afterScan: map[string]*core.AnalysisStats{},
		lookups:   map[string]int{},
	}
}

func (f *fakeOracle) LookupURL(ctx context.Context, id string) (*core.AnalysisStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups[id]++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if s, ok := f.stats[id]; ok {
		return s, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeOracle) SubmitURL(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, url)
	if f.submitErr != nil {
		return f.submitErr
	}
	if s, ok := f.afterScan[URLID(url)]; ok {
		f.stats[URLID(url)] = s
	}
	return nil
}

func newTestService(o core.ReputationOracle) *Service {
	return NewService(o, Options{SubmitDelay: time.Millisecond, MaxConcurrency: 2}, zap.NewNop())
}

func TestURLID(t *testing.T) {
	// no padding, URL-safe alphabet
	if got := URLID("http://a.example"); got != "aHR0cDovL2EuZXhhbXBsZQ" {
		t.Errorf("URLID = %q", got)
	}
	if strings.ContainsAny(URLID("https://x.example/??>>"), "+/=") {
		t.Error("URLID must use the unpadded URL-safe alphabet")
	}
}

func TestCheckClassifiesStats(t *testing.T) {
	o := newFakeOracle()
	o.stats[URLID("http://mal.example")] = &core.AnalysisStats{Malicious: 3, Suspicious: 1, Harmless: 50}
	o.stats[URLID("http://sus.example")] = &core.AnalysisStats{Suspicious: 2, Harmless: 50}
	o.stats[URLID("http://ok.example")] = &core.AnalysisStats{Harmless: 60}
	o.stats[URLID("http://new.example")] = &core.AnalysisStats{Undetected: 70}

	tests := []struct {
		url  string
		want core.URLStatus
	}{
		{"http://mal.example", core.URLMalicious},
		{"http://sus.example", core.URLSuspicious},
		{"http://ok.example", core.URLSafe},
		{"http://new.example", core.URLUnknown},
		{"", core.URLError},
	}
	s := newTestService(o)
	for _, tt := range tests {
		if got := s.Check(context.Background(), tt.url); got.Status != tt.want {
			t.Errorf("Check(%q) = %s (%s), want %s", tt.url, got.Status, got.Detail, tt.want)
		}
	}
}

func TestCheckSubmitsUnknownURL(t *testing.T) {
	o := newFakeOracle()
	o.afterScan[URLID("http://fresh.example")] = &core.AnalysisStats{Malicious: 1}

	v := newTestService(o).Check(context.Background(), "http://fresh.example")
	if v.Status != core.URLMalicious {
		t.Errorf("Status = %s, want Malicious", v.Status)
	}
	if len(o.submits) != 1 || o.lookups[URLID("http://fresh.example")] != 2 {
		t.Errorf("submits=%v lookups=%d, want one submit and two lookups", o.submits, o.lookups[URLID("http://fresh.example")])
	}
}

func TestCheckStillUnknownAfterSubmit(t *testing.T) {
	v := newTestService(newFakeOracle()).Check(context.Background(), "http://never.example")
	if v.Status != core.URLUnknown {
		t.Errorf("Status = %s, want Unknown", v.Status)
	}
}

func TestCheckFailuresBecomeErrorVerdicts(t *testing.T) {
	o := newFakeOracle()
	o.lookupErr = errors.New("api returned 500")
	v := newTestService(o).Check(context.Background(), "http://x.example")
	if v.Status != core.URLError || !strings.Contains(v.Detail, "500") {
		t.Errorf("got %s %q", v.Status, v.Detail)
	}

	o = newFakeOracle()
	o.submitErr = errors.New("quota exceeded")
	v = newTestService(o).Check(context.Background(), "http://x.example")
	if v.Status != core.URLError || !strings.Contains(v.Detail, "Failed to submit") {
		t.Errorf("got %s %q", v.Status, v.Detail)
	}
}

func TestCheckDeadline(t *testing.T) {
	o := newFakeOracle()
	s := NewService(o, Options{SubmitDelay: time.Second}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	v := s.Check(ctx, "http://slow.example")
	if v.Status != core.URLError || !strings.Contains(v.Detail, "timed out") {
		t.Errorf("got %s %q", v.Status, v.Detail)
	}
}

func TestCheckAllMemoizesDuplicates(t *testing.T) {
	o := newFakeOracle()
	o.stats[URLID("http://a.example")] = &core.AnalysisStats{Harmless: 1}
	o.stats[URLID("http://b.example")] = &core.AnalysisStats{Malicious: 1}

	got := newTestService(o).CheckAll(context.Background(), []string{
		"http://b.example", "http://a.example", "http://b.example", "http://a.example",
	})

	if len(got) != 2 || got[0].URL != "http://b.example" || got[1].URL != "http://a.example" {
		t.Fatalf("CheckAll = %+v", got)
	}
	if got[0].Status != core.URLMalicious || got[1].Status != core.URLSafe {
		t.Errorf("statuses = %s, %s", got[0].Status, got[1].Status)
	}
	for id, n := range o.lookups {
		if n != 1 {
			t.Errorf("%s looked up %d times, want 1", id, n)
		}
	}
}

func TestCheckAllEmpty(t *testing.T) {
	if got := newTestService(newFakeOracle()).CheckAll(context.Background(), nil); len(got) != 0 {
		t.Errorf("CheckAll(nil) = %v", got)
	}
}

func TestDisabledResolvesUnknown(t *testing.T) {
	got := Disabled{}.CheckAll(context.Background(), []string{"http://a.example", "http://a.example"})
	if len(got) != 1 || got[0].Status != core.URLUnknown {
		t.Errorf("CheckAll = %+v", got)
	}
}
