package config

import (
	"os"
	"sync"
	"time"
)

type Config struct {
	ListenHost     string
	ListenPort     int
	LogLevel       string
	WebhookSecret  string
	DataDir        string
	RunTimeout     time.Duration
	OpenAIEndpoint string
	OpenAIModel    string
	OpenAIAPIKey   string
	GitHubAPIBase  string
	GitHubUser     string
	GitHubToken    string
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadFromEnv() Config {
	host := os.Getenv("APPFORGE_LISTEN_HOST")
	if host == "" {
		host = "127.0.0.1"
	}

	port := 8317
	if p := os.Getenv("APPFORGE_LISTEN_PORT"); p != "" {
		if n := atoiOrDefault(p, 8317); n > 0 {
			port = n
		}
	}

	level := os.Getenv("APPFORGE_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	runTimeout := 15 * time.Minute
	if v := os.Getenv("APPFORGE_RUN_TIMEOUT_SECONDS"); v != "" {
		if n := atoiOrDefault(v, 0); n > 0 {
			runTimeout = time.Duration(n) * time.Second
		}
	}

	apiBase := os.Getenv("APPFORGE_GITHUB_API_BASE")
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}

	return Config{
		ListenHost:     host,
		ListenPort:     port,
		LogLevel:       level,
		WebhookSecret:  os.Getenv("APPFORGE_WEBHOOK_SECRET"),
		DataDir:        os.Getenv("APPFORGE_DATA_DIR"),
		RunTimeout:     runTimeout,
		OpenAIEndpoint: os.Getenv("OPENAI_ENDPOINT"),
		OpenAIModel:    os.Getenv("OPENAI_MODEL"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		GitHubAPIBase:  apiBase,
		GitHubUser:     os.Getenv("APPFORGE_GITHUB_USER"),
		GitHubToken:    os.Getenv("APPFORGE_GITHUB_TOKEN"),
	}
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
