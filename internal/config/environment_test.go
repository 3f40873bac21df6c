package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := Parse(noEnvFile(t))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 8080 {
		t.Errorf(`expected "Port" to equal 8080, got %d`, cfg.Port)
	}
	if cfg.SettingsBackend != SettingsSQLite {
		t.Errorf(`expected "SettingsBackend" to equal %q, got %q`, SettingsSQLite, cfg.SettingsBackend)
	}
	if cfg.SettingsSaveTimeout != 5*time.Second {
		t.Errorf(`expected "SettingsSaveTimeout" to equal 5s, got %s`, cfg.SettingsSaveTimeout)
	}
	if cfg.MailProvider != "log" {
		t.Errorf(`expected "MailProvider" to equal "log", got %q`, cfg.MailProvider)
	}
	if cfg.GetAddress() != ":8080" {
		t.Errorf(`expected address ":8080", got %q`, cfg.GetAddress())
	}
}

func TestParseConfig_Environment(t *testing.T) {
	t.Setenv("CHEFSITE_PORT", "9090")
	t.Setenv("CHEFSITE_DATA_PATH", "/srv/chef")
	t.Setenv("CHEFSITE_SETTINGS_BACKEND", "FILE")
	t.Setenv("CHEFSITE_MAIL_TIMEOUT", "3s")
	t.Setenv("CHEFSITE_SITE_URL", "https://chef.example.com/")

	cfg, err := Parse(noEnvFile(t))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9090 {
		t.Errorf(`expected "Port" to equal 9090, got %d`, cfg.Port)
	}
	if cfg.SettingsBackend != SettingsFile {
		t.Errorf(`expected "SettingsBackend" to equal "file", got %q`, cfg.SettingsBackend)
	}
	if want := filepath.Join("/srv/chef", "settings.json"); cfg.SettingsFile != want {
		t.Errorf(`expected "SettingsFile" to equal %q, got %q`, want, cfg.SettingsFile)
	}
	if cfg.MailTimeout != 3*time.Second {
		t.Errorf(`expected "MailTimeout" to equal 3s, got %s`, cfg.MailTimeout)
	}
	if cfg.SiteURL != "https://chef.example.com" {
		t.Errorf(`expected trailing slash trimmed, got %q`, cfg.SiteURL)
	}
	if want := filepath.Join("/srv/chef", "uploads"); cfg.UploadsPath() != want {
		t.Errorf(`expected uploads path %q, got %q`, want, cfg.UploadsPath())
	}
}

func TestParseConfig_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CHEFSITE_INSTAGRAM_FEED_URL=https://feeds.example.com/chef.xml\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CHEFSITE_INSTAGRAM_FEED_URL") })

	cfg, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InstagramFeedURL != "https://feeds.example.com/chef.xml" {
		t.Errorf(`expected feed url from .env, got %q`, cfg.InstagramFeedURL)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"CHEFSITE_SETTINGS_BACKEND": "redis",
		"CHEFSITE_PORT":             "70000",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Parse(noEnvFile(t)); err == nil {
				t.Errorf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	if l := ConfigureLogger("debug"); l.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", l.GetLevel())
	}
	if l := ConfigureLogger("nonsense"); l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level fallback, got %s", l.GetLevel())
	}
}
