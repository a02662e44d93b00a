package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APPFORGE_LISTEN_HOST", "APPFORGE_LISTEN_PORT", "APPFORGE_LOG_LEVEL",
		"APPFORGE_WEBHOOK_SECRET", "APPFORGE_DATA_DIR", "APPFORGE_RUN_TIMEOUT_SECONDS",
		"APPFORGE_GITHUB_API_BASE", "APPFORGE_GITHUB_USER", "APPFORGE_GITHUB_TOKEN",
		"OPENAI_ENDPOINT", "OPENAI_MODEL", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfig()
	if cfg.ListenHost != "127.0.0.1" {
		t.Fatalf("host = %q", cfg.ListenHost)
	}
	if cfg.ListenPort != 8317 {
		t.Fatalf("port = %d", cfg.ListenPort)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("level = %q", cfg.LogLevel)
	}
	if cfg.RunTimeout != 15*time.Minute {
		t.Fatalf("run timeout = %v", cfg.RunTimeout)
	}
	if cfg.GitHubAPIBase != "https://api.github.com" {
		t.Fatalf("api base = %q", cfg.GitHubAPIBase)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APPFORGE_LISTEN_PORT", "9001")
	t.Setenv("APPFORGE_WEBHOOK_SECRET", "s3cret")
	t.Setenv("APPFORGE_RUN_TIMEOUT_SECONDS", "90")
	t.Setenv("APPFORGE_GITHUB_USER", "octo")
	t.Setenv("OPENAI_MODEL", "gpt-test")

	cfg := LoadConfig()
	if cfg.ListenPort != 9001 {
		t.Fatalf("port = %d", cfg.ListenPort)
	}
	if cfg.WebhookSecret != "s3cret" {
		t.Fatalf("secret = %q", cfg.WebhookSecret)
	}
	if cfg.RunTimeout != 90*time.Second {
		t.Fatalf("run timeout = %v", cfg.RunTimeout)
	}
	if cfg.GitHubUser != "octo" || cfg.OpenAIModel != "gpt-test" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_MalformedPortFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("APPFORGE_LISTEN_PORT", "not-a-port")
	cfg := LoadConfig()
	if cfg.ListenPort != 8317 {
		t.Fatalf("port = %d, want default", cfg.ListenPort)
	}
}

func TestGetConfig_UsesCache(t *testing.T) {
	clearEnv(t)
	t.Setenv("APPFORGE_LISTEN_PORT", "9002")
	LoadConfig()

	// A later env change inside the TTL window is not observed.
	t.Setenv("APPFORGE_LISTEN_PORT", "9003")
	if got := GetConfig().ListenPort; got != 9002 {
		t.Fatalf("port = %d, want cached 9002", got)
	}
}
