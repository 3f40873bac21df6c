// internal/server/server.go
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"time"

	"chefsite/internal/auth"
	"chefsite/internal/database"
	"chefsite/internal/instagram"
	"chefsite/internal/notify"
	"chefsite/internal/settings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

//go:embed web/templates web/static
var rawContent embed.FS

// webContent holds the virtual filesystem for web assets.
var webContent fs.FS

func init() {
	var err error
	webContent, err = fs.Sub(rawContent, "web")
	if err != nil {
		panic(fmt.Sprintf("failed to create virtual filesystem for web content: %v", err))
	}
}

type Config struct {
	UseHTTPS       bool
	ProductionMode bool
	UploadsPath    string
	SiteURL        string
}

type Server struct {
	db        *database.DB
	logger    *logrus.Logger
	auth      *auth.Service
	settings  *settings.Manager
	notifier  *notify.Notifier
	instagram *instagram.Service
	images    *ImageHandler
	csrf      *CSRF
	config    Config
	templates map[string]*template.Template
	router    *mux.Router
	now       func() time.Time
}

func NewServer(db *database.DB, logger *logrus.Logger, store *settings.Manager, notifier *notify.Notifier, ig *instagram.Service, config Config) (*Server, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	csrfConfig := DefaultCSRFConfig()
	csrfConfig.Secure = config.UseHTTPS
	csrf := NewCSRF(csrfConfig)

	images, err := NewImageHandler(logger, config.UploadsPath)
	if err != nil {
		csrf.Stop()
		return nil, fmt.Errorf("failed to initialize image handler: %w", err)
	}

	s := &Server{
		db:        db,
		logger:    logger,
		auth:      auth.NewService(db.DB),
		settings:  store,
		notifier:  notifier,
		instagram: ig,
		images:    images,
		csrf:      csrf,
		config:    config,
		now:       time.Now,
	}

	templates, err := LoadTemplates(webContent, s.templateFuncs())
	if err != nil {
		csrf.Stop()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	s.templates = templates
	s.router = s.routes()

	if store.OnSave == nil {
		store.OnSave = recordSave
	}

	if !config.ProductionMode {
		logger.WithField("templates", len(templates)).Debug("templates loaded")
	}
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handle404)

	static, _ := fs.Sub(webContent, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.config.UploadsPath))))

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/about", s.handleAbout).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/contact", s.handleContactPage).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/contact", s.handleContactSubmit).Methods(http.MethodPost)
	r.HandleFunc("/services", s.handleServices).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/instagram", s.handleInstagram).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/gift-certificates", s.handleGiftCertificates).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/events.xml", s.handleEventsFeed).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	r.HandleFunc("/setup", s.handleSetupPage).Methods(http.MethodGet)
	r.HandleFunc("/setup", s.handleSetup).Methods(http.MethodPost)
	r.HandleFunc("/admin/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/admin/login", s.handleLogin).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAuth)
	admin.HandleFunc("", s.handleDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	admin.HandleFunc("/settings/{section}", s.handleSettingsSection).Methods(http.MethodPost)
	admin.HandleFunc("/upload/{target}", s.handleUpload).Methods(http.MethodPost)
	admin.HandleFunc("/analytics", s.handleAnalytics).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.handleUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", s.handleUserEdit).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", s.handleUserUpdate).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/delete", s.handleUserDelete).Methods(http.MethodPost)
	admin.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	admin.HandleFunc("/events", s.handleEventCreate).Methods(http.MethodPost)
	admin.HandleFunc("/events/{id}/delete", s.handleEventDelete).Methods(http.MethodPost)
	admin.HandleFunc("/events/{id}/notify", s.handleEventNotify).Methods(http.MethodPost)
	admin.HandleFunc("/backup", s.handleExport).Methods(http.MethodGet)
	admin.HandleFunc("/backup", s.handleImport).Methods(http.MethodPost)
	admin.HandleFunc("/change-password", s.handleChangePasswordPage).Methods(http.MethodGet)
	admin.HandleFunc("/change-password", s.handleChangePassword).Methods(http.MethodPost)
	admin.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := admin.PathPrefix("/api").Subrouter()
	api.HandleFunc("/settings", s.handleAPIGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleAPIPutSettings).Methods(http.MethodPut)
	api.HandleFunc("/settings/{section}", s.handleAPIPatchSection).Methods(http.MethodPatch)
	api.HandleFunc("/analytics", s.handleAPIAnalytics).Methods(http.MethodGet)

	return r
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = s.csrf.Middleware(h)
	h = securityHeaders(h)
	h = handlers.CompressHandler(h)
	h = loggingHandler(s.logger)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(s.logger), handlers.PrintRecoveryStack(!s.config.ProductionMode))(h)
	return h
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down server")
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.csrf.Stop()
}

func (s *Server) handle404(w http.ResponseWriter, r *http.Request) {
	s.logger.WithField("path", r.URL.Path).Debug("not found")
	pd := s.page(w, r, "Page not found")
	s.render(w, r, http.StatusNotFound, "404.html", pd)
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
