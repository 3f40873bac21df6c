// internal/server/csrf.go
package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"sync"
	"time"
)

var (
	ErrTokenMissing = errors.New("CSRF token missing")
	ErrTokenInvalid = errors.New("CSRF token invalid")
)

// CSRFConfig holds configuration for CSRF protection
type CSRFConfig struct {
	Cookie    string
	Header    string
	Secure    bool
	Expiry    time.Duration
	FieldName string
	// CleanupInterval is how often expired tokens are dropped
	CleanupInterval time.Duration
}

func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		Cookie:          "csrf_token",
		Header:          "X-CSRF-Token",
		Secure:          true,
		Expiry:          24 * time.Hour,
		FieldName:       "csrf_token",
		CleanupInterval: 6 * time.Hour,
	}
}

// CSRF issues double-submit tokens. A token is valid when the form field
// or header matches the cookie and the token was issued by this process.
type CSRF struct {
	config CSRFConfig
	tokens sync.Map
	done   chan struct{}
	once   sync.Once
}

func NewCSRF(config CSRFConfig) *CSRF {
	c := &CSRF{
		config: config,
		done:   make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (c *CSRF) Stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *CSRF) generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Token returns the request's token, issuing a new one when the cookie is
// absent or unknown.
func (c *CSRF) Token(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(c.config.Cookie); err == nil && cookie.Value != "" {
		if _, ok := c.tokens.Load(cookie.Value); ok {
			return cookie.Value
		}
	}

	token, err := c.generateToken()
	if err != nil {
		return ""
	}
	c.tokens.Store(token, time.Now().Add(c.config.Expiry))

	http.SetCookie(w, &http.Cookie{
		Name:     c.config.Cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(c.config.Expiry.Seconds()),
	})
	return token
}

// Middleware rejects unsafe requests without a valid token.
func (c *CSRF) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if err := c.validateRequest(r); err != nil {
			http.Error(w, "CSRF validation failed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *CSRF) validateRequest(r *http.Request) error {
	token := r.Header.Get(c.config.Header)
	if token == "" {
		ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if ct == "multipart/form-data" {
			if err := r.ParseMultipartForm(maxUploadSize); err == nil {
				token = r.FormValue(c.config.FieldName)
			}
		} else if err := r.ParseForm(); err == nil {
			token = r.PostFormValue(c.config.FieldName)
		}
	}
	if token == "" {
		return ErrTokenMissing
	}

	cookie, err := r.Cookie(c.config.Cookie)
	if err != nil {
		return ErrTokenMissing
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
		return ErrTokenInvalid
	}

	expiry, ok := c.tokens.Load(token)
	if !ok {
		return ErrTokenInvalid
	}
	if expiry.(time.Time).Before(time.Now()) {
		c.tokens.Delete(token)
		return ErrTokenInvalid
	}
	return nil
}

func (c *CSRF) cleanup() {
	now := time.Now()
	c.tokens.Range(func(key, value interface{}) bool {
		if value.(time.Time).Before(now) {
			c.tokens.Delete(key)
		}
		return true
	})
}

func (c *CSRF) cleanupLoop() {
	interval := c.config.CleanupInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.done:
			return
		}
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
