package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Providers   ProvidersConfig `toml:"providers"`
	LLM         LLMConfig       `toml:"llm"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Newsfeed    NewsfeedConfig  `toml:"newsfeed"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger    BadgerConfig    `toml:"badger"`
	Artifacts ArtifactsConfig `toml:"artifacts"`
}

// BadgerConfig represents BadgerDB-specific configuration for the static catalogue
// and the background task store.
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ArtifactsConfig controls where per-run analysis artifacts are written.
type ArtifactsConfig struct {
	Root string `toml:"root"` // Root directory: <root>/<symbol>/<YYYYMMDD>/<name>.json
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// ProvidersConfig selects and configures the market-data and news vendors.
// Order holds provider names in probe order; the first healthy one is pinned
// for the process lifetime.
type ProvidersConfig struct {
	Order     []string        `toml:"order"` // e.g. ["tushare", "tinyshare", "akshare"]
	Tushare   TushareConfig   `toml:"tushare"`
	Tinyshare TinyshareConfig `toml:"tinyshare"`
	Akshare   AkshareConfig   `toml:"akshare"`
	News      NewsConfig      `toml:"news"`
}

// TushareConfig holds credentials and endpoint for the primary data vendor.
type TushareConfig struct {
	Token     string `toml:"token"`
	BaseURL   string `toml:"base_url"`
	Enabled   bool   `toml:"enabled"`
	RateLimit string `toml:"rate_limit"` // Minimum interval between calls, e.g. "300ms"
}

// TinyshareConfig holds credentials for the secondary vendor (tushare-compatible wire).
type TinyshareConfig struct {
	Token     string `toml:"token"`
	BaseURL   string `toml:"base_url"`
	Enabled   bool   `toml:"enabled"`
	RateLimit string `toml:"rate_limit"`
}

// AkshareConfig points at the local akshare HTTP bridge (tertiary, tokenless).
type AkshareConfig struct {
	BaseURL string `toml:"base_url"`
	Enabled bool   `toml:"enabled"`
}

// NewsConfig configures the flash-news vendor, probed independently of the
// market-data chain.
type NewsConfig struct {
	Token   string `toml:"token"`
	BaseURL string `toml:"base_url"`
	Enabled bool   `toml:"enabled"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider  `toml:"default_provider"` // "claude" or "gemini" (default: "claude")
	ContextWindow   int          `toml:"context_window"`   // Model context window in tokens, drives news batching budgets
	Claude          ClaudeConfig `toml:"claude"`
	Gemini          GeminiConfig `toml:"gemini"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "gemini-2.0-flash"
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "4s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0)
}

// PipelineConfig controls analysis pipeline behavior.
type PipelineConfig struct {
	NewsDays      int  `toml:"news_days"`      // Flash-news lookback in days (default: 3)
	DebateEnabled bool `toml:"debate_enabled"` // Run the bull/bear debate stage before the supervisor
}

// NewsfeedConfig controls the web news enrichment crawler.
type NewsfeedConfig struct {
	ConfigPath     string `toml:"config_path"`     // Hot-reloaded YAML tuning file (weights, lexicons)
	Render         bool   `toml:"render"`          // Render search pages with chromedp instead of plain HTTP
	UserAgent      string `toml:"user_agent"`      // HTTP user agent for search and article fetches
	RequestTimeout string `toml:"request_timeout"` // Per-request timeout as duration string (default: "12s")
	WindowDays     int    `toml:"window_days"`     // Recency window for selected items (default: 3)
	TopK           int    `toml:"topk"`            // Items kept after dedup/scoring (default: 10)
}

// SchedulerConfig controls the static catalogue refresh job.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format, e.g. "0 30 8 * * *"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters (pool sizes, retry counts) are fixed in code; only
// user-facing settings are exposed in aestimo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/catalog",
				ResetOnStartup: false,
			},
			Artifacts: ArtifactsConfig{
				Root: "./data/results",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Providers: ProvidersConfig{
			Order: []string{"tushare", "tinyshare", "akshare"},
			Tushare: TushareConfig{
				BaseURL:   "https://api.tushare.pro",
				Enabled:   true,
				RateLimit: "300ms",
			},
			Tinyshare: TinyshareConfig{
				BaseURL:   "https://api.tinyshare.cn",
				Enabled:   true,
				RateLimit: "300ms",
			},
			Akshare: AkshareConfig{
				BaseURL: "http://127.0.0.1:8081",
				Enabled: true,
			},
			News: NewsConfig{
				BaseURL: "https://api.tushare.pro",
				Enabled: true,
			},
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
			ContextWindow:   65536,
			Claude: ClaudeConfig{
				Model:       "claude-haiku-3-5-20241022",
				MaxTokens:   4096,
				Timeout:     "5m",
				RateLimit:   "1s",
				Temperature: 0,
			},
			Gemini: GeminiConfig{
				Model:       "gemini-2.0-flash",
				MaxTokens:   4096,
				Timeout:     "5m",
				RateLimit:   "4s",
				Temperature: 0,
			},
		},
		Pipeline: PipelineConfig{
			NewsDays:      3,
			DebateEnabled: false,
		},
		Newsfeed: NewsfeedConfig{
			ConfigPath:     "./config/newsfeed.yaml",
			Render:         false,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			RequestTimeout: "12s",
			WindowDays:     3,
			TopK:           10,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 30 8 * * *",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files, environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AESTIMO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("AESTIMO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("AESTIMO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("AESTIMO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if root := os.Getenv("AESTIMO_ARTIFACTS_ROOT"); root != "" {
		config.Storage.Artifacts.Root = root
	}

	// Logging configuration
	if level := os.Getenv("AESTIMO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("AESTIMO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("AESTIMO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Vendor tokens keep their conventional environment names so existing
	// credentials carry over without a config file.
	if token := os.Getenv("TUSHARE_TOKEN"); token != "" {
		config.Providers.Tushare.Token = token
	}
	if token := os.Getenv("TINYSHARE_TOKEN"); token != "" {
		config.Providers.Tinyshare.Token = token
	}
	if token := os.Getenv("NEWS_TOKEN"); token != "" {
		config.Providers.News.Token = token
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.LLM.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.Gemini.APIKey = key
	}
	if provider := os.Getenv("AESTIMO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	if path := os.Getenv("AESTIMO_NEWSFEED_CONFIG"); path != "" {
		config.Newsfeed.ConfigPath = path
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateSchedule validates a cron schedule expression (6-field, with seconds).
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("schedule cannot be empty")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// ParseDurationOr parses a duration string, falling back to def on empty or
// malformed input.
func ParseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DeepCloneConfig returns an independent copy of the configuration.
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}
	data, err := toml.Marshal(c)
	if err != nil {
		clone := *c
		return &clone
	}
	clone := &Config{}
	if err := toml.Unmarshal(data, clone); err != nil {
		fallback := *c
		return &fallback
	}
	return clone
}
