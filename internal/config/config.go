package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		NonceTTL string `yaml:"nonce_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	AMQP struct {
		URL string `yaml:"url"`
	} `yaml:"amqp"`
	Auth struct {
		AccessSecret  string `yaml:"access_secret"`
		RefreshSecret string `yaml:"refresh_secret"`
		AccessTTL     string `yaml:"access_ttl"`
		RefreshTTL    string `yaml:"refresh_ttl"`
	} `yaml:"auth"`
	Quiz struct {
		StreakGoalDays int `yaml:"streak_goal_days"`
	} `yaml:"quiz"`
	TLS struct {
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"tls"`
}

// Load reads YAML config from path. Token secrets may also come from the
// environment (QUIZ_ACCESS_SECRET, QUIZ_REFRESH_SECRET), which wins over the
// file so secrets can stay out of it.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	if v := os.Getenv("QUIZ_ACCESS_SECRET"); v != "" {
		cfg.Auth.AccessSecret = v
	}
	if v := os.Getenv("QUIZ_REFRESH_SECRET"); v != "" {
		cfg.Auth.RefreshSecret = v
	}
	return cfg, nil
}

// Validate checks the settings the core cannot run without.
func (c Config) Validate() error {
	if c.Auth.AccessSecret == "" {
		return fmt.Errorf("auth access secret is required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("auth refresh secret is required")
	}
	return nil
}

// IsSecure reports whether TLS is configured; token cookies are marked
// Secure exactly then.
func (c Config) IsSecure() bool {
	return c.TLS.CertFile != "" && c.TLS.KeyFile != ""
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
