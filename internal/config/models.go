package config

import (
	"fmt"
	"time"
)

// ClassifierConfig holds feature extraction settings. Domain lists extend
// the built-in defaults.
type ClassifierConfig struct {
	ATSDomains         []string
	ShortenerDomains   []string
	MaxBodySize        int
	WhitelistedDomains []string
}

// PolicyConfig selects where policies come from
type PolicyConfig struct {
	Source        string
	File          string
	Watch         bool
	WatchDebounce time.Duration
}

// PipelineConfig holds pipeline execution settings
type PipelineConfig struct {
	Workers int
}

// AuditConfig selects the audit store
type AuditConfig struct {
	Type             string
	Retention        time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// DatabaseConfig holds the shared PostgreSQL settings
type DatabaseConfig struct {
	PostgresDSN string
	Migrate     bool
}

// SendGridConfig holds SendGrid credentials and addressing
type SendGridConfig struct {
	APIKey      string
	FromName    string
	FromAddress string
	ToAddress   string
}

// NotifyConfig selects the notifier
type NotifyConfig struct {
	Type     string
	SendGrid SendGridConfig
}

// AdvisorConfig enables the LLM advisor
type AdvisorConfig struct {
	Enabled  bool
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// PostfixConfig holds the re-injection target
type PostfixConfig struct {
	Address string
	Port    int
	Enabled bool
}

// ServerConfig holds the mail filter settings
type ServerConfig struct {
	FilterType    string
	ListenAddress string
	HeaderPrefix  string
	RejectBlocked bool
	ModifySubject bool
	SubjectPrefix string
	Timeout       time.Duration
	Postfix       PostfixConfig
}

// HTTPConfig holds the HTTP API settings
type HTTPConfig struct {
	Enabled       bool
	ListenAddress string
	Mode          string
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		ATSDomains:         c.GetStringSlice("classifier.ats_domains"),
		ShortenerDomains:   c.GetStringSlice("classifier.shortener_domains"),
		MaxBodySize:        c.GetInt("classifier.max_body_size"),
		WhitelistedDomains: c.GetStringSlice("classifier.whitelisted_domains"),
	}
}

// GetPolicy returns the policy source configuration
func (c *Config) GetPolicy() (PolicyConfig, error) {
	debounce, err := c.GetDuration("policy.watch_debounce")
	if err != nil {
		return PolicyConfig{}, err
	}
	return PolicyConfig{
		Source:        c.GetString("policy.source"),
		File:          c.GetString("policy.file"),
		Watch:         c.GetBool("policy.watch"),
		WatchDebounce: debounce,
	}, nil
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() PipelineConfig {
	return PipelineConfig{Workers: c.GetInt("pipeline.workers")}
}

// GetAudit returns the audit store configuration
func (c *Config) GetAudit() (AuditConfig, error) {
	retention, err := c.GetDuration("audit.retention")
	if err != nil {
		return AuditConfig{}, err
	}
	cleanup, err := c.GetDuration("audit.cleanup_frequency")
	if err != nil {
		return AuditConfig{}, err
	}
	return AuditConfig{
		Type:             c.GetString("audit.type"),
		Retention:        retention,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("audit.sqlite_path"),
		MySQLDSN:         c.GetString("audit.mysql_dsn"),
	}, nil
}

// GetDatabase returns the PostgreSQL configuration
func (c *Config) GetDatabase() DatabaseConfig {
	return DatabaseConfig{
		PostgresDSN: c.GetString("database.postgres_dsn"),
		Migrate:     c.GetBool("database.migrate"),
	}
}

// GetNotify returns the notifier configuration
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		Type: c.GetString("notify.type"),
		SendGrid: SendGridConfig{
			APIKey:      c.GetString("notify.sendgrid.api_key"),
			FromName:    c.GetString("notify.sendgrid.from_name"),
			FromAddress: c.GetString("notify.sendgrid.from_address"),
			ToAddress:   c.GetString("notify.sendgrid.to_address"),
		},
	}
}

// GetAdvisor returns the advisor configuration
func (c *Config) GetAdvisor() AdvisorConfig {
	return AdvisorConfig{
		Enabled:  c.GetBool("advisor.enabled"),
		Provider: c.GetString("advisor.provider"),
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
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetServer returns the mail filter configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		FilterType:    c.GetString("server.filter_type"),
		ListenAddress: c.GetString("server.listen_address"),
		HeaderPrefix:  c.GetString("server.header_prefix"),
		RejectBlocked: c.GetBool("server.reject_blocked"),
		ModifySubject: c.GetBool("server.modify_subject"),
		SubjectPrefix: c.GetString("server.subject_prefix"),
		Timeout:       timeout,
		Postfix: PostfixConfig{
			Address: c.GetString("server.postfix.address"),
			Port:    c.GetInt("server.postfix.port"),
			Enabled: c.GetBool("server.postfix.enabled"),
		},
	}, nil
}

// GetHTTP returns the HTTP API configuration
func (c *Config) GetHTTP() HTTPConfig {
	return HTTPConfig{
		Enabled:       c.GetBool("http.enabled"),
		ListenAddress: c.GetString("http.listen_address"),
		Mode:          c.GetString("http.mode"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}

// Validate checks option values that have a fixed set of choices
func (c *Config) Validate() error {
	choices := map[string][]string{
		"policy.source":      {"defaults", "file", "postgres"},
		"audit.type":         {"none", "memory", "sqlite", "mysql", "postgres"},
		"notify.type":        {"none", "log", "sendgrid"},
		"advisor.provider":   {"openai", "gemini", "bedrock"},
		"server.filter_type": {"postfix", "none"},
		"logging.format":     {"json", "console"},
	}
	for key, allowed := range choices {
		value := c.GetString(key)
		ok := false
		for _, a := range allowed {
			if value == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("invalid value %q for %s, expected one of %v", value, key, allowed)
		}
	}
	return nil
}
