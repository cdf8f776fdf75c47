package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Mail     MailConfig
	Log      LogConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// MailConfig holds mailbox export settings.
type MailConfig struct {
	Provider string
	Root     string
	Mailbox  string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

func newViper() *viper.Viper {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "fintool", "fintool.db"))
	v.SetDefault("mail.provider", "maildir")
	v.SetDefault("mail.root", filepath.Join(os.Getenv("HOME"), ".local", "share", "fintool", "mail"))
	v.SetDefault("mail.mailbox", "transactions")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("FINTOOL_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "fintool"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FINTOOL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	return v
}

// Load reads configuration from file and env. Env var overrides use prefix FINTOOL_.
func Load() (Config, error) {
	v := newViper()
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Get returns the effective value for a dotted key, defaults included.
func Get(key string) (any, error) {
	v := newViper()
	if !v.IsSet(key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	return v.Get(key), nil
}

// Set persists a value for a dotted key, creating the config file if needed.
// With appendTo, the current value is treated as a list and the new value
// added to it.
func Set(key, value string, appendTo bool) error {
	v := newViper()
	if !v.IsSet(key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	if appendTo {
		v.Set(key, append(v.GetStringSlice(key), value))
	} else {
		v.Set(key, value)
	}

	path := os.Getenv("FINTOOL_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "fintool", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
