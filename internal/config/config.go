package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures product fetching and image sampling.
type SourceConfig struct {
	AllowedDomain    string `yaml:"allowed_domain" mapstructure:"allowed_domain"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	ImageTimeoutSecs int    `yaml:"image_timeout_secs" mapstructure:"image_timeout_secs"`
	ImageWidth       int    `yaml:"image_width" mapstructure:"image_width"`
	MaxImages        int    `yaml:"max_images" mapstructure:"max_images"`
}

// FetchTimeout returns the product fetch timeout as a duration.
func (s SourceConfig) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutSecs) * time.Second
}

// ImageTimeout returns the per-image download timeout as a duration.
func (s SourceConfig) ImageTimeout() time.Duration {
	return time.Duration(s.ImageTimeoutSecs) * time.Second
}

// GenerationConfig selects the generative model provider.
type GenerationConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the bound on one model call.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NotionConfig holds Notion API credentials and the destination database.
type NotionConfig struct {
	Token       string  `yaml:"token" mapstructure:"token"`
	DatabaseID  string  `yaml:"database_id" mapstructure:"database_id"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Timeout returns the per-call API timeout as a duration.
func (n NotionConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSecs) * time.Second
}

// ServerConfig configures the session API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AccessKey      string   `yaml:"access_key" mapstructure:"access_key"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	SessionTTLMins int      `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
}

// SessionTTL returns how long an idle session is kept.
func (s ServerConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMins) * time.Minute
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// APIKey returns the credential of the configured generation provider.
func (c *Config) APIKey() string {
	if c.Generation.Provider == "anthropic" {
		return c.Anthropic.Key
	}
	return c.Gemini.Key
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ATELIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.allowed_domain", "theladymaker.com")
	v.SetDefault("source.user_agent", "Mozilla/5.0")
	v.SetDefault("source.fetch_timeout_secs", 5)
	v.SetDefault("source.image_timeout_secs", 3)
	v.SetDefault("source.image_width", 600)
	v.SetDefault("source.max_images", 3)
	v.SetDefault("generation.provider", "gemini")
	v.SetDefault("generation.timeout_secs", 60)
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-flash-latest")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.base_url", "https://api.notion.com")
	v.SetDefault("notion.timeout_secs", 5)
	v.SetDefault("notion.rate_limit", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.access_key", "")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.session_ttl_mins", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the given run mode ("generate",
// "publish" or "serve"). Workspace credentials are checked per publish call
// instead.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Generation.Provider {
	case "gemini", "anthropic":
	default:
		errs = append(errs, fmt.Sprintf("generation.provider %q is not supported", c.Generation.Provider))
	}
	if c.Source.AllowedDomain == "" {
		errs = append(errs, "source.allowed_domain is required")
	}
	if c.Source.MaxImages < 0 || c.Source.MaxImages > 3 {
		errs = append(errs, "source.max_images must be between 0 and 3")
	}

	switch mode {
	case "generate", "publish":
		if c.APIKey() == "" {
			errs = append(errs, c.Generation.Provider+".key is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
