package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. THREAT_ENGINE_CLASSIFIER_PROVIDER
const EnvPrefix = "THREAT_ENGINE"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance from the default search paths
func New() (*Config, error) {
	return Load("")
}

// Load reads the configuration from path, or from the default search paths when path is empty
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/threat-verdict/")
		v.AddConfigPath("$HOME/.threat-verdict")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file, defaults and environment only
	}

	c := &Config{v: v}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Engine budgets
	v.SetDefault("engine.total_budget", "30s")
	v.SetDefault("engine.timeouts.reputation", "20s")
	v.SetDefault("engine.timeouts.sender", "10s")
	v.SetDefault("engine.timeouts.classifier", "15s")
	v.SetDefault("engine.timeouts.analyzer", "15s")
	v.SetDefault("engine.version", "1.0.0")

	// URL reputation
	v.SetDefault("reputation.enabled", true)
	v.SetDefault("reputation.submit_delay", "3s")
	v.SetDefault("reputation.max_concurrency", 4)
	v.SetDefault("reputation.requests_per_minute", 4)

	v.SetDefault("virustotal.api_key", "")
	v.SetDefault("virustotal.base_url", "https://www.virustotal.com/api/v3")
	v.SetDefault("virustotal.timeout", "10s")

	// Sender domain
	v.SetDefault("sender.free_mail_domains", []string{})
	v.SetDefault("registry.rdap_bootstrap", "https://rdap.org/")
	v.SetDefault("registry.rdap_endpoints", map[string]string{})
	v.SetDefault("registry.whois_servers", map[string]string{})
	v.SetDefault("registry.timeout", "8s")

	// Classifier
	v.SetDefault("classifier.provider", "inference")
	v.SetDefault("classifier.token_budget", 510)
	v.SetDefault("classifier.tokenizer_file", "")

	v.SetDefault("inference.endpoint", "https://api-inference.huggingface.co")
	v.SetDefault("inference.api_key", "")
	v.SetDefault("inference.timeout", "15s")
	v.SetDefault("inference.model", "ealvaradob/bert-finetuned-phishing")
	v.SetDefault("inference.positive_labels", []string{})
	v.SetDefault("inference.zero_shot_model", "facebook/bart-large-mnli")
	v.SetDefault("inference.sentiment_model", "distilbert-base-uncased-finetuned-sst-2-english")
	v.SetDefault("inference.emotion_model", "j-hartmann/emotion-english-distilroberta-base")
	v.SetDefault("inference.embedding_model", "sentence-transformers/all-MiniLM-L6-v2")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.max_tokens", 200)
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.top_p", 1.0)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.embedding_model", "text-embedding-004")
	v.SetDefault("gemini.max_tokens", 200)
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.top_p", 1.0)

	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 200)
	v.SetDefault("bedrock.temperature", 0.0)
	v.SetDefault("bedrock.top_p", 1.0)

	// Advanced content analysis
	v.SetDefault("nlp.enabled", false)
	v.SetDefault("nlp.provider", "inference")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/threat_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/threat_verdict")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_key_prefix", "threat:")

	// Verdict store
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.driver", "sqlite3")
	v.SetDefault("store.dsn", "/data/verdicts.db")

	// Server defaults
	v.SetDefault("server.filter_type", "postfix")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_phishing", false)
	v.SetDefault("server.modify_subject", true)
	v.SetDefault("server.phishing_prefix", "")
	v.SetDefault("server.suspicious_prefix", "")
	v.SetDefault("server.postfix.enabled", true)
	v.SetDefault("server.postfix.address", "localhost")
	v.SetDefault("server.postfix.port", 10026)
	v.SetDefault("server.evaluation_timeout", "45s")
	v.SetDefault("server.max_body_size", 1<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

var (
	classifierProviders = []string{"inference", "openai", "gemini", "bedrock", "none"}
	nlpProviders        = []string{"inference", "openai", "gemini"}
	cacheTypes          = []string{"memory", "sqlite", "mysql", "redis"}
	storeDrivers        = []string{"sqlite3", "mysql", "pgx"}
	filterTypes         = []string{"postfix", "cli"}
)

// Validate checks enumerated settings and durations
func (c *Config) Validate() error {
	checks := []struct {
		key     string
		allowed []string
	}{
		{"classifier.provider", classifierProviders},
		{"nlp.provider", nlpProviders},
		{"cache.type", cacheTypes},
		{"store.driver", storeDrivers},
		{"server.filter_type", filterTypes},
	}
	for _, chk := range checks {
		if !slices.Contains(chk.allowed, c.GetString(chk.key)) {
			return fmt.Errorf("invalid %s %q: must be one of %s", chk.key, c.GetString(chk.key), strings.Join(chk.allowed, ", "))
		}
	}

	for _, key := range []string{
		"engine.total_budget", "engine.timeouts.reputation", "engine.timeouts.sender",
		"engine.timeouts.classifier", "engine.timeouts.analyzer", "reputation.submit_delay",
		"virustotal.timeout", "registry.timeout", "inference.timeout", "cache.ttl",
		"cache.cleanup_frequency", "server.evaluation_timeout",
	} {
		if _, err := c.ParseDuration(key); err != nil {
			return err
		}
	}
	return nil
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// ParseDuration parses a duration value, reporting the key on failure
func (c *Config) ParseDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
