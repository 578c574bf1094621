// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Trefle    TrefleConfig    `mapstructure:"trefle"`
	Canonical CanonicalConfig `mapstructure:"canonical"`
	Images    ImagesConfig    `mapstructure:"images"`
	Grower    GrowerConfig    `mapstructure:"grower"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FetchConfig governs the outbound fetch layer.
type FetchConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	PerHostRate    float64 `mapstructure:"per_host_rate"`
}

// TrefleConfig holds the structured plant-database credential. An empty
// token disables the source rather than failing the pipeline.
type TrefleConfig struct {
	APIToken string `mapstructure:"api_token"`
	BaseURL  string `mapstructure:"base_url"`
}

// CanonicalConfig holds the AI lookup credential and model choice. An
// empty key disables the source.
type CanonicalConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ImagesConfig sets bounds for the image pipeline.
type ImagesConfig struct {
	BaseDir     string `mapstructure:"base_dir"`
	MaxDownload int    `mapstructure:"max_download"`
	MaxPixels   int    `mapstructure:"max_pixels"`
	JPEGQuality int    `mapstructure:"jpeg_quality"`
}

// GrowerConfig is the grower context fed into the canonical lookup
// prompt so planting schedules land in the right climate.
type GrowerConfig struct {
	Location        string `mapstructure:"location"`
	HardinessZone   string `mapstructure:"hardiness_zone"`
	LastSpringFrost string `mapstructure:"last_spring_frost"`
	FirstFallFrost  string `mapstructure:"first_fall_frost"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEEDSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.timeout_seconds", 10)
	v.SetDefault("fetch.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("fetch.per_host_rate", 2.0)
	v.SetDefault("trefle.base_url", "https://trefle.io/api/v1")
	v.SetDefault("canonical.model", "gpt-4o-mini")
	v.SetDefault("images.base_dir", "data/plant-images/web")
	v.SetDefault("images.max_download", 3)
	v.SetDefault("images.max_pixels", 1200)
	v.SetDefault("images.jpeg_quality", 85)
	v.SetDefault("grower.location", "Lancaster, PA")
	v.SetDefault("grower.hardiness_zone", "7a")
	v.SetDefault("grower.last_spring_frost", "April 28")
	v.SetDefault("grower.first_fall_frost", "October 11")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.PerHostRate <= 0 {
		return fmt.Errorf("fetch.per_host_rate must be > 0")
	}
	if c.Images.MaxDownload <= 0 {
		return fmt.Errorf("images.max_download must be > 0")
	}
	if c.Images.MaxPixels <= 0 {
		return fmt.Errorf("images.max_pixels must be > 0")
	}
	if c.Images.JPEGQuality <= 0 || c.Images.JPEGQuality > 100 {
		return fmt.Errorf("images.jpeg_quality must be in (0,100]")
	}
	return nil
}

// FetchTimeout converts the configured timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
