// internal/server/auth_handlers.go
package server

import (
	"errors"
	"net/http"
	"strings"

	"chefsite/internal/auth"
)

type loginView struct {
	Username string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if hasUsers, err := s.auth.HasUsers(r.Context()); err == nil && !hasUsers {
		http.Redirect(w, r, "/setup", http.StatusSeeOther)
		return
	}
	pd := s.page(w, r, "Admin Login")
	pd.Data = loginView{}
	s.render(w, r, http.StatusOK, "login.html", pd)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	session, err := s.auth.Authenticate(r.Context(), username, password, r.RemoteAddr, r.UserAgent())
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.WithError(err).Error("login failed")
		} else {
			s.logger.WithField("username", username).Warn("invalid login attempt")
		}
		pd := s.page(w, r, "Admin Login")
		pd.Error = "Invalid username or password."
		pd.Data = loginView{Username: username}
		s.render(w, r, http.StatusUnauthorized, "login.html", pd)
		return
	}

	s.setSession(w, session)
	s.logger.WithField("user", session.UserID).Info("admin logged in")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := getSessionID(r.Context()); id != "" {
		if err := s.auth.InvalidateSession(r.Context(), id); err != nil {
			s.logger.WithError(err).Warn("error invalidating session")
		}
	}
	s.clearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	pd := s.page(w, r, "Change Password")
	pd.Active = "password"
	if r.URL.Query().Get("changed") == "1" {
		pd.Flash = "Password updated."
	}
	s.render(w, r, http.StatusOK, "admin/password.html", pd)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := getUserID(r.Context())
	current := r.PostFormValue("currentPassword")
	next := r.PostFormValue("newPassword")
	confirm := r.PostFormValue("confirmPassword")

	fail := func(status int, msg string) {
		pd := s.page(w, r, "Change Password")
		pd.Active = "password"
		pd.Error = msg
		s.render(w, r, status, "admin/password.html", pd)
	}

	if next != confirm {
		fail(http.StatusBadRequest, "New passwords do not match.")
		return
	}

	err := s.auth.ChangePassword(r.Context(), userID, current, next, getSessionID(r.Context()))
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		fail(http.StatusUnauthorized, "Current password is incorrect.")
		return
	case errors.Is(err, auth.ErrWeakPassword):
		fail(http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.WithError(err).WithField("user", userID).Error("error changing password")
		fail(http.StatusInternalServerError, "Password could not be changed.")
		return
	}

	s.logger.WithField("user", userID).Info("password changed")
	http.Redirect(w, r, "/admin/change-password?changed=1", http.StatusSeeOther)
}
