package urls

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"empty", "", []string{}},
		{"no urls", "Hello, see you tomorrow.", []string{}},
		{
			name: "scheme and host only",
			body: "Log in at https://secure-login.example.com/account?id=1 now",
			want: []string{"https://secure-login.example.com"},
		},
		{
			name: "duplicates keep first-seen order",
			body: "http://b.example then http://a.example and http://b.example again",
			want: []string{"http://b.example", "http://a.example"},
		},
		{
			name: "percent encoded host",
			body: "visit http://ex%41mple.com today",
			want: []string{"http://ex%41mple.com"},
		},
		{
			name: "non-ascii hosts kept whole",
			body: "Log in at https://p\u0430ypal.com/login or http://ex\u00e4mple.de/x now",
			want: []string{"https://p\u0430ypal.com", "http://ex\u00e4mple.de"},
		},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Extract(tt.body); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractHTML(t *testing.T) {
	html := `<html><body>
<p>Dear customer, visit http://text.example for details.</p>
<a href="https://login.example.net/verify">Verify now</a>
<a href="mailto:help@example.com">Mail us</a>
<form action="http://collect.example.org/post"></form>
<a href="https://login.example.net/other">Again</a>
</body></html>`

	got, err := NewExtractor().ExtractHTML(html)
	if err != nil {
		t.Fatalf("ExtractHTML returned error: %v", err)
	}
	want := []string{"https://login.example.net", "http://collect.example.org", "http://text.example"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractHTML() = %q, want %q", got, want)
	}
}
