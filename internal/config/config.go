package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all runtime settings for the chat relay service.
type Config struct {
	BindAddr          string
	ShutdownTimeout   time.Duration
	MetricsNamespace  string
	AllowAnyOrigin    bool
	HistoryLimit      int
	RecentLimit       int
	CompletionTimeout time.Duration

	ProviderMode        string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	CompletionModel     string
	MaxCompletionTokens int
	TTSModel            string
	TTSVoice            string
	TTSFormat           string
	STTModel            string

	DatabaseURL string
	SQLitePath  string
}

// Load builds the configuration from defaults, an optional YAML file named by
// PARLEY_CONFIG, and finally environment variables (highest precedence).
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            ":8080",
		MetricsNamespace:    "parley",
		AllowAnyOrigin:      false,
		HistoryLimit:        10,
		RecentLimit:         50,
		ShutdownTimeout:     15 * time.Second,
		CompletionTimeout:   120 * time.Second,
		ProviderMode:        "auto",
		OpenAIBaseURL:       "https://api.openai.com/v1",
		CompletionModel:     "gpt-5",
		MaxCompletionTokens: 8192,
		TTSModel:            "tts-1",
		TTSVoice:            "nova",
		TTSFormat:           "mp3",
		STTModel:            "whisper-1",
	}

	if path := stringsTrimSpace("PARLEY_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.BindAddr = envOrDefault("APP_BIND_ADDR", cfg.BindAddr)
	cfg.MetricsNamespace = envOrDefault("APP_METRICS_NAMESPACE", cfg.MetricsNamespace)
	cfg.ProviderMode = envOrDefault("PROVIDER_MODE", cfg.ProviderMode)
	cfg.OpenAIBaseURL = envOrDefault("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.CompletionModel = envOrDefault("OPENAI_COMPLETION_MODEL", cfg.CompletionModel)
	cfg.TTSModel = envOrDefault("OPENAI_TTS_MODEL", cfg.TTSModel)
	cfg.TTSVoice = envOrDefault("OPENAI_TTS_VOICE", cfg.TTSVoice)
	cfg.TTSFormat = envOrDefault("OPENAI_TTS_FORMAT", cfg.TTSFormat)
	cfg.STTModel = envOrDefault("OPENAI_STT_MODEL", cfg.STTModel)
	if v := stringsTrimSpace("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := stringsTrimSpace("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := stringsTrimSpace("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("APP_COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("APP_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.RecentLimit, err = intFromEnv("APP_RECENT_LIMIT", cfg.RecentLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxCompletionTokens, err = intFromEnv("OPENAI_MAX_COMPLETION_TOKENS", cfg.MaxCompletionTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_LIMIT must be positive")
	}
	if cfg.RecentLimit <= 0 {
		return Config{}, fmt.Errorf("APP_RECENT_LIMIT must be positive")
	}
	if cfg.MaxCompletionTokens <= 0 {
		return Config{}, fmt.Errorf("OPENAI_MAX_COMPLETION_TOKENS must be positive")
	}
	if cfg.CompletionTimeout < 0 {
		return Config{}, fmt.Errorf("APP_COMPLETION_TIMEOUT must be >= 0")
	}
	switch cfg.TTSFormat {
	case "mp3", "wav", "pcm":
	default:
		return Config{}, fmt.Errorf("OPENAI_TTS_FORMAT must be one of mp3|wav|pcm, got %q", cfg.TTSFormat)
	}

	return cfg, nil
}

// fileConfig mirrors Config with pointer fields so the YAML layer only
// overrides keys the file actually sets.
type fileConfig struct {
	BindAddr            *string `yaml:"bind_addr"`
	MetricsNamespace    *string `yaml:"metrics_namespace"`
	AllowAnyOrigin      *bool   `yaml:"allow_any_origin"`
	HistoryLimit        *int    `yaml:"history_limit"`
	RecentLimit         *int    `yaml:"recent_limit"`
	ShutdownTimeout     *string `yaml:"shutdown_timeout"`
	CompletionTimeout   *string `yaml:"completion_timeout"`
	ProviderMode        *string `yaml:"provider_mode"`
	OpenAIAPIKey        *string `yaml:"openai_api_key"`
	OpenAIBaseURL       *string `yaml:"openai_base_url"`
	CompletionModel     *string `yaml:"completion_model"`
	MaxCompletionTokens *int    `yaml:"max_completion_tokens"`
	TTSModel            *string `yaml:"tts_model"`
	TTSVoice            *string `yaml:"tts_voice"`
	TTSFormat           *string `yaml:"tts_format"`
	STTModel            *string `yaml:"stt_model"`
	DatabaseURL         *string `yaml:"database_url"`
	SQLitePath          *string `yaml:"sqlite_path"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&cfg.BindAddr, fc.BindAddr)
	setString(&cfg.MetricsNamespace, fc.MetricsNamespace)
	setString(&cfg.ProviderMode, fc.ProviderMode)
	setString(&cfg.OpenAIAPIKey, fc.OpenAIAPIKey)
	setString(&cfg.OpenAIBaseURL, fc.OpenAIBaseURL)
	setString(&cfg.CompletionModel, fc.CompletionModel)
	setString(&cfg.TTSModel, fc.TTSModel)
	setString(&cfg.TTSVoice, fc.TTSVoice)
	setString(&cfg.TTSFormat, fc.TTSFormat)
	setString(&cfg.STTModel, fc.STTModel)
	setString(&cfg.DatabaseURL, fc.DatabaseURL)
	setString(&cfg.SQLitePath, fc.SQLitePath)
	if fc.AllowAnyOrigin != nil {
		cfg.AllowAnyOrigin = *fc.AllowAnyOrigin
	}
	if fc.HistoryLimit != nil {
		cfg.HistoryLimit = *fc.HistoryLimit
	}
	if fc.RecentLimit != nil {
		cfg.RecentLimit = *fc.RecentLimit
	}
	if fc.MaxCompletionTokens != nil {
		cfg.MaxCompletionTokens = *fc.MaxCompletionTokens
	}
	if fc.ShutdownTimeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*fc.ShutdownTimeout))
		if err != nil {
			return fmt.Errorf("shutdown_timeout parse error: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if fc.CompletionTimeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*fc.CompletionTimeout))
		if err != nil {
			return fmt.Errorf("completion_timeout parse error: %w", err)
		}
		cfg.CompletionTimeout = d
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
