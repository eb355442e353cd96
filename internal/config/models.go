package config

import "time"

// EngineConfig holds the latency budgets of one evaluation
type EngineConfig struct {
	TotalBudget       time.Duration
	ReputationTimeout time.Duration
	SenderTimeout     time.Duration
	ClassifierTimeout time.Duration
	AnalyzerTimeout   time.Duration
	Version           string
}

// ReputationConfig configures the URL reputation service
type ReputationConfig struct {
	Enabled           bool
	SubmitDelay       time.Duration
	MaxConcurrency    int
	RequestsPerMinute int
}

// VirusTotalConfig represents the configuration for the VirusTotal API
type VirusTotalConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SenderConfig configures the sender domain analyzer
type SenderConfig struct {
	FreeMailDomains []string
}

// RegistryConfig configures the RDAP and WHOIS lookups
type RegistryConfig struct {
	RDAPBootstrap string
	RDAPEndpoints map[string]string
	WHOISServers  map[string]string
	Timeout       time.Duration
}

// ClassifierConfig selects the classifier provider
type ClassifierConfig struct {
	Provider      string
	TokenBudget   int
	// TokenizerFile is the tokenizer.json of the inference model
	TokenizerFile string
}

// InferenceConfig represents the configuration for a hosted inference server
type InferenceConfig struct {
	Endpoint       string
	APIKey         string
	Timeout        time.Duration
	Model          string
	PositiveLabels []string
	ZeroShotModel  string
	SentimentModel string
	EmotionModel   string
	EmbeddingModel string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// NLPConfig configures the advanced content analyzer
type NLPConfig struct {
	Enabled  bool
	Provider string
}

// CacheConfig configures the external oracle caches
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisKeyPrefix   string
}

// StoreConfig configures the verdict store
type StoreConfig struct {
	Enabled bool
	Driver  string
	DSN     string
}

// ServerConfig configures the mail filter front end
type ServerConfig struct {
	FilterType        string
	ListenAddress     string
	BlockPhishing     bool
	ModifySubject     bool
	PhishingPrefix    string
	SuspiciousPrefix  string
	PostfixEnabled    bool
	PostfixAddress    string
	PostfixPort       int
	EvaluationTimeout time.Duration
	MaxBodySize       int
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string
	Format string
}

// GetEngine returns the engine configuration
func (c *Config) GetEngine() EngineConfig {
	return EngineConfig{
		TotalBudget:       c.v.GetDuration("engine.total_budget"),
		ReputationTimeout: c.v.GetDuration("engine.timeouts.reputation"),
		SenderTimeout:     c.v.GetDuration("engine.timeouts.sender"),
		ClassifierTimeout: c.v.GetDuration("engine.timeouts.classifier"),
		AnalyzerTimeout:   c.v.GetDuration("engine.timeouts.analyzer"),
		Version:           c.GetString("engine.version"),
	}
}

// GetReputation returns the URL reputation configuration
func (c *Config) GetReputation() ReputationConfig {
	return ReputationConfig{
		Enabled:           c.GetBool("reputation.enabled"),
		SubmitDelay:       c.v.GetDuration("reputation.submit_delay"),
		MaxConcurrency:    c.GetInt("reputation.max_concurrency"),
		RequestsPerMinute: c.GetInt("reputation.requests_per_minute"),
	}
}

// GetVirusTotal returns the VirusTotal configuration
func (c *Config) GetVirusTotal() VirusTotalConfig {
	return VirusTotalConfig{
		APIKey:  c.GetString("virustotal.api_key"),
		BaseURL: c.GetString("virustotal.base_url"),
		Timeout: c.v.GetDuration("virustotal.timeout"),
	}
}

// GetSender returns the sender analyzer configuration
func (c *Config) GetSender() SenderConfig {
	return SenderConfig{
		FreeMailDomains: c.GetStringSlice("sender.free_mail_domains"),
	}
}

// GetRegistry returns the domain registration lookup configuration
func (c *Config) GetRegistry() RegistryConfig {
	return RegistryConfig{
		RDAPBootstrap: c.GetString("registry.rdap_bootstrap"),
		RDAPEndpoints: c.v.GetStringMapString("registry.rdap_endpoints"),
		WHOISServers:  c.v.GetStringMapString("registry.whois_servers"),
		Timeout:       c.v.GetDuration("registry.timeout"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Provider:      c.GetString("classifier.provider"),
		TokenBudget:   c.GetInt("classifier.token_budget"),
		TokenizerFile: c.GetString("classifier.tokenizer_file"),
	}
}

// GetInference returns the inference server configuration
func (c *Config) GetInference() InferenceConfig {
	return InferenceConfig{
		Endpoint:       c.GetString("inference.endpoint"),
		APIKey:         c.GetString("inference.api_key"),
		Timeout:        c.v.GetDuration("inference.timeout"),
		Model:          c.GetString("inference.model"),
		PositiveLabels: c.GetStringSlice("inference.positive_labels"),
		ZeroShotModel:  c.GetString("inference.zero_shot_model"),
		SentimentModel: c.GetString("inference.sentiment_model"),
		EmotionModel:   c.GetString("inference.emotion_model"),
		EmbeddingModel: c.GetString("inference.embedding_model"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.GetString("openai.api_key"),
		BaseURL:        c.GetString("openai.base_url"),
		ModelName:      c.GetString("openai.model_name"),
		EmbeddingModel: c.GetString("openai.embedding_model"),
		MaxTokens:      c.GetInt("openai.max_tokens"),
		Temperature:    float32(c.GetFloat64("openai.temperature")),
		TopP:           float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:         c.GetString("gemini.api_key"),
		ModelName:      c.GetString("gemini.model_name"),
		EmbeddingModel: c.GetString("gemini.embedding_model"),
		MaxTokens:      c.GetInt("gemini.max_tokens"),
		Temperature:    float32(c.GetFloat64("gemini.temperature")),
		TopP:           float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetNLP returns the advanced content analyzer configuration
func (c *Config) GetNLP() NLPConfig {
	return NLPConfig{
		Enabled:  c.GetBool("nlp.enabled"),
		Provider: c.GetString("nlp.provider"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              c.v.GetDuration("cache.ttl"),
		CleanupFrequency: c.v.GetDuration("cache.cleanup_frequency"),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
		RedisKeyPrefix:   c.GetString("cache.redis_key_prefix"),
	}
}

// GetStore returns the verdict store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Enabled: c.GetBool("store.enabled"),
		Driver:  c.GetString("store.driver"),
		DSN:     c.GetString("store.dsn"),
	}
}

// GetServer returns the mail filter configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:        c.GetString("server.filter_type"),
		ListenAddress:     c.GetString("server.listen_address"),
		BlockPhishing:     c.GetBool("server.block_phishing"),
		ModifySubject:     c.GetBool("server.modify_subject"),
		PhishingPrefix:    c.GetString("server.phishing_prefix"),
		SuspiciousPrefix:  c.GetString("server.suspicious_prefix"),
		PostfixEnabled:    c.GetBool("server.postfix.enabled"),
		PostfixAddress:    c.GetString("server.postfix.address"),
		PostfixPort:       c.GetInt("server.postfix.port"),
		EvaluationTimeout: c.v.GetDuration("server.evaluation_timeout"),
		MaxBodySize:       c.GetInt("server.max_body_size"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
