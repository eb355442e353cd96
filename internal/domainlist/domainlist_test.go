package domainlist

import (
	"testing"

	"go.uber.org/zap"
)

func TestFreeMailMatcher(t *testing.T) {
	m := NewFreeMailMatcher([]string{" ProtonMail.com "}, zap.NewNop())

	tests := []struct {
		domain string
		want   bool
	}{
		{"gmail.com", true},
		{"GMAIL.COM", true},
		{"outlook.com.", true},
		{"protonmail.com", true},
		{"example.com", false},
		{"mail.gmail.com", false},
	}
	for _, tt := range tests {
		if got := m.Contains(tt.domain); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.domain, got, tt.want)
		}
	}
	if m.Len() != 5 {
		t.Errorf("Len = %d, want 5", m.Len())
	}
}

func TestExtraCannotShrinkBaseList(t *testing.T) {
	m := NewFreeMailMatcher([]string{"", "gmail.com"}, nil)
	for _, d := range FreeMailProviders {
		if !m.Contains(d) {
			t.Errorf("%s missing from matcher", d)
		}
	}
}

func TestContainsAddress(t *testing.T) {
	m := NewFreeMailMatcher(nil, zap.NewNop())
	if !m.ContainsAddress("someone@yahoo.com") {
		t.Error("expected yahoo.com address to match")
	}
	if m.ContainsAddress("yahoo.com") || m.ContainsAddress("someone@") {
		t.Error("malformed addresses must not match")
	}
}
