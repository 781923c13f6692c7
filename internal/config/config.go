package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Polling and notification defaults
const (
	DefaultBaseInterval        = 3 * time.Second
	DefaultIntervalIncrement   = 1500 * time.Millisecond
	DefaultMaxAttempts         = 8
	DefaultMinDisplay          = 3 * time.Second
	DefaultDisplayPerCharacter = 100 * time.Millisecond
	DefaultFadeOut             = 500 * time.Millisecond
	DefaultRequestTimeout      = 30 * time.Second
	DefaultUploadPath          = "/upload/"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Client        ClientConfig       `yaml:"client"`
	Polling       PollingConfig      `yaml:"polling"`
	Notifications NotificationConfig `yaml:"notifications"`
	DevServer     DevServerConfig    `yaml:"dev_server"`
	Logging       LoggingConfig      `yaml:"logging"`
	App           AppConfig          `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ClientConfig holds the upload server location and transport settings
type ClientConfig struct {
	BaseURL        string        `yaml:"base_url"`
	UploadPath     string        `yaml:"upload_path"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PollingConfig holds the status polling schedule
type PollingConfig struct {
	BaseInterval      time.Duration `yaml:"base_interval"`
	IntervalIncrement time.Duration `yaml:"interval_increment"`
	MaxAttempts       int           `yaml:"max_attempts"`
}

// NotificationConfig holds notification display timings
type NotificationConfig struct {
	MinDisplay          time.Duration `yaml:"min_display"`
	DisplayPerCharacter time.Duration `yaml:"display_per_character"`
	FadeOut             time.Duration `yaml:"fade_out"`
}

// DevServerConfig holds the behaviour of the local stand-in server
type DevServerConfig struct {
	// ProcessingPolls is how many status queries answer "processing"
	// before a well-formed file is reported PROCESSED
	ProcessingPolls int `yaml:"processing_polls"`
	// MaxUploadBytes caps the multipart body size
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()

	return &config, nil
}

// ApplyDefaults fills unset polling, notification and transport settings
func (c *Config) ApplyDefaults() {
	if c.Client.UploadPath == "" {
		c.Client.UploadPath = DefaultUploadPath
	}
	if c.Client.RequestTimeout == 0 {
		c.Client.RequestTimeout = DefaultRequestTimeout
	}
	if c.Polling.BaseInterval == 0 {
		c.Polling.BaseInterval = DefaultBaseInterval
	}
	if c.Polling.IntervalIncrement == 0 {
		c.Polling.IntervalIncrement = DefaultIntervalIncrement
	}
	if c.Polling.MaxAttempts == 0 {
		c.Polling.MaxAttempts = DefaultMaxAttempts
	}
	if c.Notifications.MinDisplay == 0 {
		c.Notifications.MinDisplay = DefaultMinDisplay
	}
	if c.Notifications.DisplayPerCharacter == 0 {
		c.Notifications.DisplayPerCharacter = DefaultDisplayPerCharacter
	}
	if c.Notifications.FadeOut == 0 {
		c.Notifications.FadeOut = DefaultFadeOut
	}
}

// ValidateClientConfig checks the settings used by the upload client
func (c *Config) ValidateClientConfig() error {
	if c.Client.BaseURL == "" {
		return fmt.Errorf("client base_url is required")
	}

	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid client base_url: %q", c.Client.BaseURL)
	}

	if c.Client.RequestTimeout < 0 {
		return fmt.Errorf("client request_timeout must not be negative")
	}

	if c.Polling.BaseInterval <= 0 {
		return fmt.Errorf("polling base_interval must be greater than 0")
	}

	if c.Polling.IntervalIncrement < 0 {
		return fmt.Errorf("polling interval_increment must not be negative")
	}

	if c.Polling.MaxAttempts <= 0 {
		return fmt.Errorf("polling max_attempts must be greater than 0")
	}

	if c.Notifications.MinDisplay <= 0 {
		return fmt.Errorf("notifications min_display must be greater than 0")
	}

	if c.Notifications.DisplayPerCharacter < 0 || c.Notifications.FadeOut < 0 {
		return fmt.Errorf("notification timings must not be negative")
	}

	return nil
}

// ValidateServerConfig checks the settings used by the dev server
func (c *Config) ValidateServerConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.DevServer.ProcessingPolls < 0 {
		return fmt.Errorf("dev_server processing_polls must not be negative")
	}

	if c.DevServer.MaxUploadBytes < 0 {
		return fmt.Errorf("dev_server max_upload_bytes must not be negative")
	}

	return nil
}
