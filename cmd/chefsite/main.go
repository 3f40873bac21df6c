package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"chefsite/internal/auth"
	"chefsite/internal/config"
	"chefsite/internal/database"
	"chefsite/internal/instagram"
	"chefsite/internal/notify"
	"chefsite/internal/server"
	"chefsite/internal/settings"

	"github.com/sirupsen/logrus"
)

var (
	// Version will be set during build
	Version = "dev"

	// Command line flags
	port     = flag.Int("port", 0, "Port to run the server on (default: 8080 or CHEFSITE_PORT)")
	dbPath   = flag.String("db", "", "Path to database file (default: data/chefsite.db or CHEFSITE_DB_PATH)")
	dataPath = flag.String("data", "", "Path to data directory (default: data or CHEFSITE_DATA_PATH)")
	envFile  = flag.String("env", ".env", "Optional dotenv file to load before reading the environment")
	version  = flag.Bool("version", false, "Print version information")
	prodMode = flag.Bool("prod", false, "Enable production mode (secure cookies, no stack traces)")
)

const sessionCleanupInterval = time.Hour

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("chefsite version %s\n", Version)
		return
	}

	cfg, err := config.Parse(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	if *port > 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
		if cfg.SettingsBackend == config.SettingsFile && os.Getenv(config.EnvPrefix+"SETTINGS_FILE") == "" {
			cfg.SettingsFile = filepath.Join(cfg.DataPath, "settings.json")
		}
	}
	if *prodMode {
		cfg.ProductionMode = true
	}

	logger := config.ConfigureLogger(cfg.LogLevel)
	logger.WithFields(logrus.Fields{
		"version":  Version,
		"port":     cfg.Port,
		"database": cfg.DBPath,
		"data":     cfg.DataPath,
		"settings": cfg.SettingsBackend,
		"mail":     cfg.MailProvider,
		"mode":     map[bool]string{true: "production", false: "development"}[cfg.ProductionMode],
	}).Info("starting chefsite")

	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.DataPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.WithError(err).WithField("dir", dir).Fatal("failed to create directory")
		}
	}

	db, err := database.NewDB(cfg.DBPath, database.DefaultConfig())
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer db.Close()

	var backend settings.Backend
	switch cfg.SettingsBackend {
	case config.SettingsFile:
		backend = settings.NewFileBackend(cfg.SettingsFile)
	case config.SettingsMemory:
		logger.Warn("settings are kept in memory and will be lost on restart")
		backend = settings.NewMemoryBackend()
	default:
		backend = settings.NewSQLBackend(db)
	}
	store := settings.NewManager(backend, logger, settings.WithSaveTimeout(cfg.SettingsSaveTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := notify.NewProvider(cfg.MailProvider, notify.ProviderConfig{
		APIKey:    cfg.MailAPIKey,
		Domain:    cfg.MailDomain,
		FromEmail: cfg.MailFrom,
		FromName:  cfg.MailFromName,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize email provider")
	}
	notifier := notify.NewNotifier(provider, logger, notify.Config{
		Workers:       cfg.MailWorkers,
		RatePerSecond: cfg.MailRatePerSec,
		SendTimeout:   cfg.MailTimeout,
		Site: notify.Site{
			Title: store.Get(ctx).Title,
			URL:   cfg.SiteURL,
		},
	})

	ig := instagram.NewService(cfg.InstagramFeedURL, cfg.InstagramTTL, logger)

	srv, err := server.NewServer(db, logger, store, notifier, ig, server.Config{
		UseHTTPS:       cfg.ProductionMode,
		ProductionMode: cfg.ProductionMode,
		UploadsPath:    cfg.UploadsPath(),
		SiteURL:        cfg.SiteURL,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize server")
	}

	go cleanSessions(ctx, auth.NewService(db.DB), logger)

	if err := srv.Start(ctx, cfg.GetAddress()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server error")
	}
	logger.Info("server stopped")
}

// cleanSessions drops expired admin sessions until ctx is done.
func cleanSessions(ctx context.Context, svc *auth.Service, logger *logrus.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.CleanExpiredSessions(ctx)
			if err != nil {
				logger.WithError(err).Warn("session cleanup failed")
				continue
			}
			if n > 0 {
				logger.WithField("removed", n).Debug("expired sessions removed")
			}
		}
	}
}
