package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MethodOption represents a predefined compression method option.
type MethodOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Config represents the main configuration structure
type Config struct {
	Services ServicesConfig `mapstructure:"services"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Download DownloadConfig `mapstructure:"download"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServicesConfig contains the addresses of the remote collaborators.
type ServicesConfig struct {
	AnalysisURL    string `mapstructure:"analysis_url"`
	CompressionURL string `mapstructure:"compression_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DefaultsConfig contains the initial compression parameters.
type DefaultsConfig struct {
	Method         string `mapstructure:"method"`
	Quality        int    `mapstructure:"quality"`
	TargetSizeKB   int    `mapstructure:"target_size_kb"` // 0 means unset
	EnableAnalysis bool   `mapstructure:"enable_analysis"`
}

// DownloadConfig contains artifact persistence settings.
type DownloadConfig struct {
	Directory  string `mapstructure:"directory"`
	FilePrefix string `mapstructure:"file_prefix"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// GetAvailableMethods returns all compression method options.
func GetAvailableMethods() []MethodOption {
	return []MethodOption{
		{
			ID:          "traditional",
			Name:        "Traditional",
			Description: "Classic DCT-based compression, fastest option",
		},
		{
			ID:          "ml",
			Name:        "Machine Learning",
			Description: "Learned compression model, best quality at low bitrates",
		},
		{
			ID:          "hybrid",
			Name:        "Hybrid",
			Description: "Combines traditional and ML passes for balanced results",
		},
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Services: ServicesConfig{
			AnalysisURL:    "http://localhost:5000",
			CompressionURL: "http://localhost:8000",
			TimeoutSeconds: 120,
		},
		Defaults: DefaultsConfig{
			Method:         "traditional",
			Quality:        80,
			TargetSizeKB:   0,
			EnableAnalysis: true,
		},
		Download: DownloadConfig{
			Directory:  "downloads",
			FilePrefix: "compressed_",
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "image-compress.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.image-compress")
		viper.AddConfigPath("/etc/image-compress")
	}

	// Enable environment variable support
	viper.SetEnvPrefix("IMAGE_COMPRESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Unmarshal config
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate and normalize config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validateServiceURL("services.analysis_url", c.Services.AnalysisURL); err != nil {
		return err
	}
	if err := validateServiceURL("services.compression_url", c.Services.CompressionURL); err != nil {
		return err
	}

	if c.Services.TimeoutSeconds <= 0 {
		c.Services.TimeoutSeconds = 120
	}

	if !IsValidMethod(c.Defaults.Method) {
		return fmt.Errorf("invalid compression method: %s (valid: traditional, ml, hybrid)",
			c.Defaults.Method)
	}

	if c.Defaults.Quality < 10 || c.Defaults.Quality > 100 {
		return fmt.Errorf("invalid default quality: %d (valid range: 10-100)", c.Defaults.Quality)
	}

	if c.Defaults.TargetSizeKB < 0 {
		c.Defaults.TargetSizeKB = 0
	}

	if c.Download.Directory == "" {
		c.Download.Directory = "downloads"
	}
	if c.Download.FilePrefix == "" {
		c.Download.FilePrefix = "compressed_"
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// Timeout returns the request timeout for service calls.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Services.TimeoutSeconds) * time.Second
}

// IsValidMethod reports whether the given method identifier is supported.
func IsValidMethod(method string) bool {
	for _, opt := range GetAvailableMethods() {
		if opt.ID == method {
			return true
		}
	}
	return false
}

func validateServiceURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https: %s", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host: %s", key, raw)
	}
	return nil
}
