// Package config reads chefsite settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const EnvPrefix = "CHEFSITE_"

// Settings storage kinds
const (
	SettingsSQLite = "sqlite"
	SettingsFile   = "file"
	SettingsMemory = "memory"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	DBPath   string `env:"DB_PATH" envDefault:"data/chefsite.db"`
	DataPath string `env:"DATA_PATH" envDefault:"data"`

	// SettingsBackend selects where the site settings document lives.
	SettingsBackend     string        `env:"SETTINGS_BACKEND" envDefault:"sqlite"`
	SettingsFile        string        `env:"SETTINGS_FILE"`
	SettingsSaveTimeout time.Duration `env:"SETTINGS_SAVE_TIMEOUT" envDefault:"5s"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	ProductionMode bool   `env:"PRODUCTION" envDefault:"false"`
	SiteURL        string `env:"SITE_URL" envDefault:"http://localhost:8080"`

	// Email delivery for event announcements
	MailProvider   string        `env:"MAIL_PROVIDER" envDefault:"log"`
	MailFrom       string        `env:"MAIL_FROM" envDefault:"no-reply@localhost"`
	MailFromName   string        `env:"MAIL_FROM_NAME"`
	MailAPIKey     string        `env:"MAIL_API_KEY"`
	MailDomain     string        `env:"MAIL_DOMAIN"`
	MailRatePerSec int           `env:"MAIL_RATE" envDefault:"5"`
	MailWorkers    int           `env:"MAIL_WORKERS" envDefault:"4"`
	MailTimeout    time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`

	// InstagramFeedURL is an RSS or Atom bridge for the chef's account.
	InstagramFeedURL string        `env:"INSTAGRAM_FEED_URL"`
	InstagramTTL     time.Duration `env:"INSTAGRAM_TTL" envDefault:"30m"`
}

// Parse loads an optional .env file and then reads CHEFSITE_* variables.
// Variables already set in the environment win over the file.
func Parse(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.SettingsBackend = strings.ToLower(strings.TrimSpace(c.SettingsBackend))
	switch c.SettingsBackend {
	case SettingsSQLite, SettingsMemory:
	case SettingsFile:
		if c.SettingsFile == "" {
			c.SettingsFile = filepath.Join(c.DataPath, "settings.json")
		}
	default:
		return fmt.Errorf("unsupported settings backend %q", c.SettingsBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MailWorkers < 1 {
		c.MailWorkers = 1
	}
	c.MailProvider = strings.ToLower(strings.TrimSpace(c.MailProvider))
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	return nil
}

// UploadsPath is where admin image uploads are written.
func (c Config) UploadsPath() string {
	return filepath.Join(c.DataPath, "uploads")
}

func (c Config) GetAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ConfigureLogger applies a textual level to the standard logrus logger.
// Unknown levels fall back to info.
func ConfigureLogger(level string) *logrus.Logger {
	logger := logrus.StandardLogger()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}
