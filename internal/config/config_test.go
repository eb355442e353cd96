package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}

	engine := cfg.GetEngine()
	if engine.TotalBudget != 30*time.Second || engine.ReputationTimeout != 20*time.Second {
		t.Errorf("engine = %+v", engine)
	}
	if got := cfg.GetReputation().SubmitDelay; got != 3*time.Second {
		t.Errorf("SubmitDelay = %v, want 3s", got)
	}
	if got := cfg.GetClassifier(); got.Provider != "inference" || got.TokenBudget != 510 {
		t.Errorf("classifier = %+v", got)
	}
	if got := cfg.GetCache(); got.Type != "memory" || got.TTL != 24*time.Hour {
		t.Errorf("cache = %+v", got)
	}
	if got := cfg.GetServer(); got.PostfixPort != 10026 || !got.PostfixEnabled {
		t.Errorf("server = %+v", got)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
classifier:
  provider: openai
openai:
  model_name: gpt-test
registry:
  whois_servers:
    io: whois.nic.io
engine:
  timeouts:
    sender: 2s
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("THREAT_ENGINE_OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.GetClassifier().Provider; got != "openai" {
		t.Errorf("Provider = %q", got)
	}
	openai := cfg.GetOpenAI()
	if openai.ModelName != "gpt-test" || openai.APIKey != "sk-env" {
		t.Errorf("openai = %+v", openai)
	}
	if got := cfg.GetRegistry().WHOISServers["io"]; got != "whois.nic.io" {
		t.Errorf("whois server = %q", got)
	}
	if got := cfg.GetEngine().SenderTimeout; got != 2*time.Second {
		t.Errorf("SenderTimeout = %v", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown provider", "classifier:\n  provider: magic\n"},
		{"unknown cache", "cache:\n  type: memcached\n"},
		{"bad duration", "engine:\n  total_budget: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}
