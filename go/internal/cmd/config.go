package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Du7chy/Seedlings/go/clients/farm_api_client"
	"github.com/Du7chy/Seedlings/go/internal/notice"
	"github.com/Du7chy/Seedlings/go/internal/page"
)

const defaultConfigPath = "seedlings.yaml"

// Config is the terminal client configuration. Values come from the YAML file
// first and are then overridden by SEEDLINGS_* environment variables.
type Config struct {
	BaseURL string `yaml:"base_url"`
	WSPath  string `yaml:"ws_path"`
	User    string `yaml:"user"`
	RoomID  string `yaml:"room_id"`

	PollInterval     time.Duration `yaml:"poll_interval"`
	NoticeTTL        time.Duration `yaml:"notice_ttl"`
	ReconnectWait    time.Duration `yaml:"reconnect_wait"`
	MaxReconnectWait time.Duration `yaml:"max_reconnect_wait"`
	MaxReconnects    int           `yaml:"max_reconnects"`

	LogLevel string `yaml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		BaseURL:          farm_api_client.DefaultBaseURL,
		WSPath:           farm_api_client.DuplexChannelPath,
		PollInterval:     page.DefaultPollInterval,
		NoticeTTL:        notice.DefaultTTL,
		ReconnectWait:    2 * time.Second,
		MaxReconnectWait: 30 * time.Second,
		MaxReconnects:    -1,
		LogLevel:         "info",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// applyEnv overrides config with any SEEDLINGS_* variables that are set
func applyEnv(config Config) Config {
	config.BaseURL = getEnv("SEEDLINGS_BASE_URL", config.BaseURL)
	config.WSPath = getEnv("SEEDLINGS_WS_PATH", config.WSPath)
	config.User = getEnv("SEEDLINGS_USER", config.User)
	config.RoomID = getEnv("SEEDLINGS_ROOM_ID", config.RoomID)
	config.PollInterval = getEnvAsDuration("SEEDLINGS_POLL_INTERVAL", config.PollInterval)
	config.NoticeTTL = getEnvAsDuration("SEEDLINGS_NOTICE_TTL", config.NoticeTTL)
	config.ReconnectWait = getEnvAsDuration("SEEDLINGS_RECONNECT_WAIT", config.ReconnectWait)
	config.MaxReconnectWait = getEnvAsDuration("SEEDLINGS_MAX_RECONNECT_WAIT", config.MaxReconnectWait)
	config.MaxReconnects = getEnvAsInt("SEEDLINGS_MAX_RECONNECTS", config.MaxReconnects)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	return config
}

// wsURL derives the duplex channel URL from the HTTP base URL
func (c Config) wsURL() (string, error) {
	base := strings.TrimSuffix(c.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + c.WSPath, nil
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + c.WSPath, nil
	default:
		return "", fmt.Errorf("base url %q must be http or https", c.BaseURL)
	}
}
