package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.HistoryLimit != 10 {
		t.Fatalf("HistoryLimit = %d, want 10", cfg.HistoryLimit)
	}
	if cfg.RecentLimit != 50 {
		t.Fatalf("RecentLimit = %d, want 50", cfg.RecentLimit)
	}
	if cfg.ProviderMode != "auto" {
		t.Fatalf("ProviderMode = %q, want %q", cfg.ProviderMode, "auto")
	}
	if cfg.CompletionModel != "gpt-5" {
		t.Fatalf("CompletionModel = %q, want %q", cfg.CompletionModel, "gpt-5")
	}
	if cfg.TTSVoice != "nova" {
		t.Fatalf("TTSVoice = %q, want %q", cfg.TTSVoice, "nova")
	}
	if cfg.CompletionTimeout != 120*time.Second {
		t.Fatalf("CompletionTimeout = %v, want 120s", cfg.CompletionTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")
	t.Setenv("APP_HISTORY_LIMIT", "4")
	t.Setenv("APP_COMPLETION_TIMEOUT", "30s")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9090")
	}
	if cfg.HistoryLimit != 4 {
		t.Fatalf("HistoryLimit = %d, want 4", cfg.HistoryLimit)
	}
	if cfg.CompletionTimeout != 30*time.Second {
		t.Fatalf("CompletionTimeout = %v, want 30s", cfg.CompletionTimeout)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Fatalf("OpenAIAPIKey = %q, want %q", cfg.OpenAIAPIKey, "sk-test")
	}
}

func TestLoadConfigFileThenEnvWins(t *testing.T) {
	setCoreEnvEmpty(t)

	path := filepath.Join(t.TempDir(), "parley.yaml")
	data := []byte("bind_addr: \":7070\"\nhistory_limit: 6\ntts_format: wav\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("PARLEY_CONFIG", path)
	t.Setenv("APP_BIND_ADDR", ":7171")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":7171" {
		t.Fatalf("BindAddr = %q, want env override %q", cfg.BindAddr, ":7171")
	}
	if cfg.HistoryLimit != 6 {
		t.Fatalf("HistoryLimit = %d, want file value 6", cfg.HistoryLimit)
	}
	if cfg.TTSFormat != "wav" {
		t.Fatalf("TTSFormat = %q, want file value %q", cfg.TTSFormat, "wav")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_HISTORY_LIMIT", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() with zero history limit: expected error")
	}

	setCoreEnvEmpty(t)
	t.Setenv("OPENAI_TTS_FORMAT", "flac")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() with unsupported tts format: expected error")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"PARLEY_CONFIG",
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_COMPLETION_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_HISTORY_LIMIT",
		"APP_RECENT_LIMIT",
		"PROVIDER_MODE",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_COMPLETION_MODEL",
		"OPENAI_MAX_COMPLETION_TOKENS",
		"OPENAI_TTS_MODEL",
		"OPENAI_TTS_VOICE",
		"OPENAI_TTS_FORMAT",
		"OPENAI_STT_MODEL",
		"DATABASE_URL",
		"SQLITE_PATH",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
