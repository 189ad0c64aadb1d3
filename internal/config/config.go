package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Behavior   BehaviorConfig   `mapstructure:"behavior"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type BotConfig struct {
	Token         string `mapstructure:"token"`
	UpdateTimeout int    `mapstructure:"update_timeout"`
}

type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Models            []string      `mapstructure:"models"`
	AnalyzerModel     string        `mapstructure:"analyzer_model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	AnalyzerMaxTokens int           `mapstructure:"analyzer_max_tokens"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RateLimitPause    time.Duration `mapstructure:"rate_limit_pause"`
}

type BehaviorConfig struct {
	SystemPrompt        string  `mapstructure:"system_prompt"`
	ResponseProbability float64 `mapstructure:"response_probability"`
	ContextSize         int     `mapstructure:"context_size"`
	MinResponseMessages int     `mapstructure:"min_response_messages"`
	MaxReplyLength      int     `mapstructure:"max_reply_length"`
}

type StorageConfig struct {
	Type            string        `mapstructure:"type"`
	ContextTTL      time.Duration `mapstructure:"context_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	MaxSize int  `mapstructure:"max_size"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type WorkerConfig struct {
	Count     int `mapstructure:"count"`
	QueueSize int `mapstructure:"queue_size"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

const defaultSystemPrompt = `You are a helpful member of a group chat. Your characteristics:
- Name: GroupMind
- Style: friendly, supportive
- Forbidden: spam, off-topic, conflicts
Analyze the context and reply only when:
1. You can add value
2. The topic calls for your participation
3. You are addressed directly
Format: short (under 100 characters)`

// LoadConfig reads configuration from the YAML file at configPath with
// environment variable overrides. A missing file is fine; the environment
// surface plus defaults is a complete configuration on its own.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.AutomaticEnv()
	v.BindEnv("bot.token", "BOT_TOKEN")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("database.path", "DB_NAME")
	v.BindEnv("behavior.system_prompt", "SYSTEM_PROMPT")
	v.BindEnv("behavior.response_probability", "RESPONSE_PROBABILITY")
	v.BindEnv("behavior.context_size", "CONTEXT_SIZE")
	v.BindEnv("behavior.min_response_messages", "MIN_RESPONSE_LENGTH")
	v.BindEnv("storage.redis.addr", "REDIS_ADDR")
	v.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.redis.db", "REDIS_DB")

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.update_timeout", 60)

	v.SetDefault("openai.models", []string{"gpt-4-0125-preview", "gpt-4", "gpt-3.5-turbo"})
	v.SetDefault("openai.analyzer_model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 150)
	v.SetDefault("openai.analyzer_max_tokens", 200)
	v.SetDefault("openai.request_timeout", 30*time.Second)
	v.SetDefault("openai.rate_limit_pause", 5*time.Second)

	v.SetDefault("behavior.system_prompt", defaultSystemPrompt)
	v.SetDefault("behavior.response_probability", 0.25)
	v.SetDefault("behavior.context_size", 5)
	v.SetDefault("behavior.min_response_messages", 3)
	v.SetDefault("behavior.max_reply_length", 200)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.context_ttl", 24*time.Hour)
	v.SetDefault("storage.cleanup_interval", time.Hour)
	v.SetDefault("storage.redis.addr", "localhost:6379")

	v.SetDefault("database.path", "chat_bot.db")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 100)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 20)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("worker.count", 3)
	v.SetDefault("worker.queue_size", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("monitoring.metrics.enabled", false)
	v.SetDefault("monitoring.metrics.port", 9090)
	v.SetDefault("monitoring.metrics.path", "/metrics")
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key is required")
	}
	if len(cfg.OpenAI.Models) == 0 {
		return fmt.Errorf("at least one completion model is required")
	}
	if cfg.Behavior.ContextSize <= 0 {
		return fmt.Errorf("context size must be positive")
	}
	if cfg.Behavior.ResponseProbability < 0 || cfg.Behavior.ResponseProbability > 1 {
		return fmt.Errorf("response probability must be in [0, 1]")
	}
	if cfg.Storage.Type != "memory" && cfg.Storage.Type != "redis" {
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	return nil
}
