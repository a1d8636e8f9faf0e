package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Email       EmailConfig               `json:"email"`
	Detection   DetectionConfig           `json:"detection"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// EmailConfig carries the SMTP account used for failure alerts.
type EmailConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
}

// DetectionConfig tunes the language classifier. The top guess is kept when
// its confidence exceeds the threshold, otherwise DefaultLanguage is used.
// FailureLanguage applies when the classifier cannot score the input at all.
type DetectionConfig struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	DefaultLanguage     string  `json:"default_language"`
	FailureLanguage     string  `json:"failure_language"`
}

type BasicConfig struct {
	ServerAddress         string `json:"server_address"`
	LogDir                string `json:"log_dir"`
	AgentID               int64  `json:"agent_id"`
	DefaultProvider       string `json:"default_provider"`
	HistoryWindow         int    `json:"history_window"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	StatsCacheTTLSeconds  int    `json:"stats_cache_ttl_seconds"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()

	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider must be configured")
	}
	if _, ok := cfg.Providers[cfg.BasicConfig.DefaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q not configured", cfg.BasicConfig.DefaultProvider)
	}

	if !filepath.IsAbs(cfg.BasicConfig.LogDir) {
		cfg.BasicConfig.LogDir = filepath.Join(filepath.Dir(absPath), cfg.BasicConfig.LogDir)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.LogDir == "" {
		c.BasicConfig.LogDir = "./data/logs"
	}
	if c.BasicConfig.AgentID == 0 {
		c.BasicConfig.AgentID = 15
	}
	if c.BasicConfig.DefaultProvider == "" {
		c.BasicConfig.DefaultProvider = "openai"
	}
	if c.BasicConfig.HistoryWindow <= 0 {
		c.BasicConfig.HistoryWindow = 10
	}
	if c.BasicConfig.RequestTimeoutSeconds <= 0 {
		c.BasicConfig.RequestTimeoutSeconds = 8
	}
	if c.BasicConfig.StatsCacheTTLSeconds <= 0 {
		c.BasicConfig.StatsCacheTTLSeconds = 30
	}
	if c.Detection.ConfidenceThreshold <= 0 {
		c.Detection.ConfidenceThreshold = 0.80
	}
	if c.Detection.DefaultLanguage == "" {
		c.Detection.DefaultLanguage = "en"
	}
	if c.Detection.FailureLanguage == "" {
		c.Detection.FailureLanguage = "fr"
	}
	if c.Email.Port == 0 {
		c.Email.Port = 465
	}
}
