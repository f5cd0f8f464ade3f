// Package config loads front-end settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/toolshare/internal/client"
	"github.com/erazemk/toolshare/internal/notify"
)

// Environment variable names.
const (
	EnvAPIURL        = "TOOLSHARE_API_URL"
	EnvAddr          = "TOOLSHARE_ADDR"
	EnvDB            = "TOOLSHARE_DB"
	EnvLog           = "TOOLSHARE_LOG"
	EnvPollInterval  = "TOOLSHARE_POLL_INTERVAL"
	EnvIdleTimeout   = "TOOLSHARE_IDLE_TIMEOUT"
	EnvSecureCookies = "TOOLSHARE_SECURE_COOKIES"
)

// Config holds every setting the front-end needs.
type Config struct {
	APIURL        string
	Addr          string
	DBPath        string
	LogPath       string
	PollInterval  time.Duration
	SecureCookies bool

	// IdleTimeout is how long the server keeps an unused session loaded.
	IdleTimeout time.Duration
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		APIURL:       client.DefaultBaseURL,
		Addr:         ":3000",
		DBPath:       "toolshare.sqlite3",
		PollInterval: notify.DefaultInterval,
		IdleTimeout:  2 * time.Hour,
	}
}

// Load reads envFile into the process environment, without overriding
// variables that are already set, and then builds the config from the
// environment. A missing envFile is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from getenv, falling back to Default for unset
// variables.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := getenv(EnvDB); v != "" {
		cfg.DBPath = v
	}
	if v := getenv(EnvLog); v != "" {
		cfg.LogPath = v
	}

	if err := positiveDuration(getenv, EnvPollInterval, &cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if err := positiveDuration(getenv, EnvIdleTimeout, &cfg.IdleTimeout); err != nil {
		return Config{}, err
	}

	if v := getenv(EnvSecureCookies); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", EnvSecureCookies, err)
		}
		cfg.SecureCookies = b
	}

	return cfg, nil
}

func positiveDuration(getenv func(string) string, name string, dst *time.Duration) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, v)
	}
	*dst = d
	return nil
}
