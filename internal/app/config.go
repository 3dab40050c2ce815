package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"popclient/internal/message"
	"popclient/internal/poperr"
	"popclient/internal/relay"
	"popclient/internal/store"
	"popclient/internal/wallet"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. POP_LOG_LEVEL.
	EnvPrefix = "POP"
	// ConfigName is the config file name, without extension, in Home.
	ConfigName = "pop"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home              string        `mapstructure:"home"` // data directory, e.g. $HOME/.pop
	Servers           []string      `mapstructure:"servers"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	LogLevel          string        `mapstructure:"log_level"`
	RecoveryWorkers   int           `mapstructure:"recovery_workers"`
	VerifiedCacheSize int           `mapstructure:"verified_cache_size"`
	KeystoreCost      int           `mapstructure:"keystore_cost"` // scrypt N, 0 for the default
}

// DefaultHome returns $HOME/.pop.
func DefaultHome() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", poperr.WrapConfiguration(err, "locate home directory")
	}
	return filepath.Join(dir, ".pop"), nil
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper, home string) {
	v.SetDefault("home", home)
	v.SetDefault("servers", []string{})
	v.SetDefault("request_timeout", relay.DefaultTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("recovery_workers", wallet.DefaultRecoveryWorkers)
	v.SetDefault("verified_cache_size", message.DefaultVerifiedCacheSize)
	v.SetDefault("keystore_cost", store.DefaultScryptCost)
}

// LoadConfig resolves Config from, in decreasing precedence, flags bound on
// v, POP_* environment variables, Home/pop.yaml and the defaults. A missing
// config file is not an error.
func LoadConfig(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("home"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, poperr.WrapConfiguration(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, poperr.WrapConfiguration(err, "decode config")
	}
	return cfg, cfg.Validate()
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch {
	case c.Home == "":
		return poperr.Configurationf("home directory is not set")
	case c.RequestTimeout <= 0:
		return poperr.Configurationf("request_timeout must be positive, got %s", c.RequestTimeout)
	case c.RecoveryWorkers <= 0:
		return poperr.Configurationf("recovery_workers must be positive, got %d", c.RecoveryWorkers)
	case c.VerifiedCacheSize < 0:
		return poperr.Configurationf("verified_cache_size must not be negative, got %d", c.VerifiedCacheSize)
	case c.KeystoreCost != 0 && !store.ValidScryptCost(c.KeystoreCost):
		return poperr.Configurationf("keystore_cost must be a power of two of at least %d, got %d", store.MinScryptCost, c.KeystoreCost)
	}
	return nil
}
