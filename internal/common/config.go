package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	API         APIConfig     `toml:"api"`
	Queue       QueueConfig   `toml:"queue"`
	Session     SessionConfig `toml:"session"`
	Logging     LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// APIConfig describes the remote candidate service the bridge delivers to.
type APIConfig struct {
	BaseURL        string        `toml:"base_url"`        // Remote service root, e.g. https://api.example.com
	SubmitPath     string        `toml:"submit_path"`     // Candidate submission path (default: /candidates)
	ConfigPath     string        `toml:"config_path"`     // Tenant config path (default: /config)
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
	SendInterval   time.Duration `toml:"send_interval"`   // Minimum spacing between candidate submissions
}

// QueueConfig bounds the durable pending queue.
type QueueConfig struct {
	MaxItems      int    `toml:"max_items"`      // Queue size bound; oldest items evicted beyond this
	MaxRetries    int    `toml:"max_retries"`    // Delivery attempts per item before permanent drop
	DrainInterval string `toml:"drain_interval"` // How often the scheduler retries queued items, e.g. "1m"
}

// SessionConfig controls session lifecycle behavior.
type SessionConfig struct {
	InactivityTimeout time.Duration `toml:"inactivity_timeout"` // Auto-logout after this much quiet; 0 disables
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in bridge.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8098,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		API: APIConfig{
			BaseURL:        "",
			SubmitPath:     "/candidates",
			ConfigPath:     "/config",
			RequestTimeout: 30 * time.Second,
			SendInterval:   600 * time.Millisecond, // Same pacing the batch importer uses
		},
		Queue: QueueConfig{
			MaxItems:      50,
			MaxRetries:    3,
			DrainInterval: "1m",
		},
		Session: SessionConfig{
			InactivityTimeout: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from defaults, then layers each TOML
// file in order (later files override earlier ones), then environment
// variables. An empty path list returns defaults plus env overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ALLY_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("ALLY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ALLY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("ALLY_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if baseURL := os.Getenv("ALLY_API_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if timeout := os.Getenv("ALLY_API_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.API.RequestTimeout = d
		}
	}
	if interval := os.Getenv("ALLY_API_SEND_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.API.SendInterval = d
		}
	}

	if maxItems := os.Getenv("ALLY_QUEUE_MAX_ITEMS"); maxItems != "" {
		if n, err := strconv.Atoi(maxItems); err == nil {
			config.Queue.MaxItems = n
		}
	}
	if maxRetries := os.Getenv("ALLY_QUEUE_MAX_RETRIES"); maxRetries != "" {
		if n, err := strconv.Atoi(maxRetries); err == nil {
			config.Queue.MaxRetries = n
		}
	}
	if drainInterval := os.Getenv("ALLY_QUEUE_DRAIN_INTERVAL"); drainInterval != "" {
		config.Queue.DrainInterval = drainInterval
	}

	if inactivity := os.Getenv("ALLY_SESSION_INACTIVITY_TIMEOUT"); inactivity != "" {
		if d, err := time.ParseDuration(inactivity); err == nil {
			config.Session.InactivityTimeout = d
		}
	}

	if level := os.Getenv("ALLY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ALLY_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// SubmitURL returns the full candidate submission endpoint.
func (c *Config) SubmitURL() string {
	return strings.TrimRight(c.API.BaseURL, "/") + c.API.SubmitPath
}

// ConfigURL returns the full tenant config endpoint.
func (c *Config) ConfigURL() string {
	return strings.TrimRight(c.API.BaseURL, "/") + c.API.ConfigPath
}

// DrainInterval parses the configured drain interval, falling back to one
// minute on invalid values.
func (c *Config) DrainInterval() time.Duration {
	d, err := time.ParseDuration(c.Queue.DrainInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}
