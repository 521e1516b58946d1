// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the relay server and the
// status client. It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Storage struct {
		// Dir holds uploaded files and generated reports. Relative stored
		// paths resolve against it.
		Dir string `mapstructure:"dir"`
	} `mapstructure:"storage"`
	API struct {
		URL string `mapstructure:"url"`
		// Constraint the relay's /api/version must satisfy, e.g. "^1.0".
		VersionConstraint string `mapstructure:"version_constraint"`
	} `mapstructure:"api"`
	Relay struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"relay"`
	Channels struct {
		ReconnectDelayMS int `mapstructure:"reconnect_delay_ms"`
		KeepAliveSeconds int `mapstructure:"keepalive_seconds"`
	} `mapstructure:"channels"`
	Tracker struct {
		DebounceMS int `mapstructure:"debounce_ms"`
	} `mapstructure:"tracker"`
	Jobs struct {
		// Minutes between scheduled runs. 0 disables the scheduler.
		Interval                  int `mapstructure:"interval"`
		NotificationRetentionDays int `mapstructure:"notification_retention_days"`
	} `mapstructure:"jobs"`
}

// ReconnectDelay is the pause before a channel retries after a transport error.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Channels.ReconnectDelayMS) * time.Millisecond
}

// KeepAlive is the notification channel ping interval.
func (c *Config) KeepAlive() time.Duration {
	return time.Duration(c.Channels.KeepAliveSeconds) * time.Second
}

// Debounce is the quiet period before a list snapshot is republished.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Tracker.DebounceMS) * time.Millisecond
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// e.g., INTAKE_DATABASE_PATH will override the `database.path` key.
	viper.SetEnvPrefix("INTAKE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	return unmarshal()
}

// Watch re-reads the config file whenever it changes on disk and hands the
// fresh values to onChange. Load must have been called first.
func Watch(onChange func(*Config, fsnotify.Event)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshal()
		if err != nil {
			return
		}
		onChange(cfg, e)
	})
	viper.WatchConfig()
}

func setDefaults() {
	viper.SetDefault("port", 8080)
	viper.SetDefault("database.path", "./intake.db")
	viper.SetDefault("storage.dir", "./uploads")
	viper.SetDefault("api.url", "http://localhost:8080")
	viper.SetDefault("api.version_constraint", ">= 1.0.0")
	viper.SetDefault("relay.url", "ws://localhost:8080")
	viper.SetDefault("channels.reconnect_delay_ms", 1000)
	viper.SetDefault("channels.keepalive_seconds", 50)
	viper.SetDefault("tracker.debounce_ms", 300)
	viper.SetDefault("jobs.interval", 5)
	viper.SetDefault("jobs.notification_retention_days", 30)
}

func unmarshal() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
