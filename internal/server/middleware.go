// internal/server/middleware.go
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chefsite/internal/auth"

	"github.com/felixge/httpsnoop"
	"github.com/sirupsen/logrus"
)

const sessionCookie = "session"

type responseSnooper struct {
	w      http.ResponseWriter
	status int
	size   int
	start  time.Time
}

func (l *responseSnooper) Write(b []byte) (int, error) {
	size, err := l.w.Write(b)
	l.size += size
	return size, err
}

func (l *responseSnooper) WriteHeader(s int) {
	l.w.WriteHeader(s)
	l.status = s
}

func makeSnooper(w http.ResponseWriter) (*responseSnooper, http.ResponseWriter) {
	snooper := &responseSnooper{
		w:      w,
		status: http.StatusOK,
		start:  time.Now(),
	}

	hooks := httpsnoop.Hooks{
		Write: func(httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return snooper.Write
		},
		WriteHeader: func(httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return snooper.WriteHeader
		},
	}

	return snooper, httpsnoop.Wrap(w, hooks)
}

// loggingHandler writes one access log line per request.
func loggingHandler(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			snooper, rw := makeSnooper(rw)

			h.ServeHTTP(rw, r)

			fields := logrus.Fields{
				"method":     r.Method,
				"path":       r.RequestURI,
				"remote":     r.RemoteAddr,
				"user-agent": r.UserAgent(),
				"status":     snooper.status,
				"size":       snooper.size,
				"duration":   float64(time.Since(snooper.start).Microseconds()) / float64(1000),
			}
			entry := logger.WithFields(fields)
			if snooper.status >= 500 {
				entry.Warn("HTTP request")
				return
			}
			entry.Info("HTTP request")
		})
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// requireAuth sends visitors without a live session to the login page, or
// to first-run setup when no admin exists yet.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			s.redirectToLogin(w, r)
			return
		}

		session, err := s.auth.ValidateSession(ctx, cookie.Value)
		if err != nil {
			if !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, auth.ErrSessionExpired) {
				s.logger.WithError(err).Error("session lookup failed")
			}
			s.clearSession(w)
			s.redirectToLogin(w, r)
			return
		}

		ctx = context.WithValue(ctx, contextKeyUserID, session.UserID)
		ctx = context.WithValue(ctx, contextKeySessionID, session.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if hasUsers, err := s.auth.HasUsers(r.Context()); err == nil && !hasUsers {
		http.Redirect(w, r, "/setup", http.StatusSeeOther)
		return
	}
	if isAPIRequest(r) {
		RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (s *Server) setSession(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.UseHTTPS,
		SameSite: http.SameSiteStrictMode,
		Expires:  session.ExpiresAt,
	})
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.UseHTTPS,
		MaxAge:   -1,
	})
}
