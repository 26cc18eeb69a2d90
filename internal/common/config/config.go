// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Router   RouterConfig   `mapstructure:"router"`
	APIs     APIsConfig     `mapstructure:"apis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
	FAQIndex   string   `mapstructure:"faq_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Router Configuration ---

// RouterConfig holds the routing pipeline thresholds and timeouts.
type RouterConfig struct {
	HistoryLimit int `mapstructure:"history_limit"` // recent turns considered during reconstruction

	// Similarity thresholds for the FAQ index probe.
	FAQStrongThreshold   float64 `mapstructure:"faq_strong_threshold"`
	FAQWeakThreshold     float64 `mapstructure:"faq_weak_threshold"`
	FAQOverrideThreshold float64 `mapstructure:"faq_override_threshold"`

	ScopeStrongThreshold float64 `mapstructure:"scope_strong_threshold"`

	ProbeTimeout  int `mapstructure:"probe_timeout"`  // milliseconds, per evidence probe
	VocabularyTTL int `mapstructure:"vocabulary_ttl"` // milliseconds

	GateCacheBackend string `mapstructure:"gate_cache_backend"` // "lru" or "redis"
	GateCacheSize    int    `mapstructure:"gate_cache_size"`
	GateCacheTTL     int    `mapstructure:"gate_cache_ttl"` // milliseconds, redis backend only
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	OpenAI struct {
		BaseURL         string `mapstructure:"base_url"`
		APIKey          string `mapstructure:"api_key"`
		Model           string `mapstructure:"model"`
		ClassifierModel string `mapstructure:"classifier_model"`
		Timeout         int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"openai"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig holds the optional Jaeger collector endpoint.
type TracingConfig struct {
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}
