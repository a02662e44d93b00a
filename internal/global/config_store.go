package global

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const configTOMLFileName = "config.toml"

// HostingConfig holds the durable hosting-side settings. Environment
// variables override these at wiring time; the file is the at-rest default.
type HostingConfig struct {
	Username      string `json:"username" toml:"username"`
	APIBase       string `json:"api_base" toml:"api_base"`
	LicenseHolder string `json:"license_holder" toml:"license_holder"`
}

type GlobalConfig struct {
	ListenPort int           `json:"listen_port" toml:"listen_port"`
	Hosting    HostingConfig `json:"hosting" toml:"hosting"`
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

func (s *ConfigStore) LoadOrInit() (GlobalConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return GlobalConfig{}, err
	}

	path := filepath.Join(s.dir, configTOMLFileName)
	if b, err := os.ReadFile(path); err == nil {
		var cfg GlobalConfig
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return GlobalConfig{}, err
		}
		return normalizeConfig(cfg), nil
	} else if !os.IsNotExist(err) {
		return GlobalConfig{}, err
	}

	cfg := normalizeConfig(GlobalConfig{})
	if err := writeTOMLAtomically(path, cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg GlobalConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, configTOMLFileName), normalizeConfig(cfg))
}

func normalizeConfig(cfg GlobalConfig) GlobalConfig {
	if cfg.ListenPort <= 0 {
		cfg.ListenPort = 8317
	}
	cfg.Hosting.Username = strings.TrimSpace(cfg.Hosting.Username)
	cfg.Hosting.APIBase = strings.TrimSpace(cfg.Hosting.APIBase)
	if cfg.Hosting.APIBase == "" {
		cfg.Hosting.APIBase = "https://api.github.com"
	}
	cfg.Hosting.LicenseHolder = strings.TrimSpace(cfg.Hosting.LicenseHolder)
	if cfg.Hosting.LicenseHolder == "" {
		cfg.Hosting.LicenseHolder = cfg.Hosting.Username
	}
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
