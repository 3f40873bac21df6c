// internal/server/setup.go
package server

import (
	"errors"
	"net/http"
	"strings"

	"chefsite/internal/auth"
	"chefsite/internal/settings"
)

type setupView struct {
	Username  string
	SiteTitle string
}

// firstRun reports whether no admin account exists yet. On error it
// answers false so setup cannot be reached by accident.
func (s *Server) firstRun(r *http.Request) bool {
	hasUsers, err := s.auth.HasUsers(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("error checking admin users")
		return false
	}
	return !hasUsers
}

func (s *Server) handleSetupPage(w http.ResponseWriter, r *http.Request) {
	if !s.firstRun(r) {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	pd := s.page(w, r, "Set up your site")
	pd.Data = setupView{SiteTitle: pd.Site.Title}
	s.render(w, r, http.StatusOK, "setup.html", pd)
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	if !s.firstRun(r) {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	view := setupView{
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		SiteTitle: strings.TrimSpace(r.PostFormValue("siteTitle")),
	}
	password := r.PostFormValue("password")

	fail := func(status int, msg string) {
		pd := s.page(w, r, "Set up your site")
		pd.Error = msg
		pd.Data = view
		s.render(w, r, status, "setup.html", pd)
	}

	if view.Username == "" || password == "" {
		fail(http.StatusBadRequest, "Username and password are required.")
		return
	}
	if password != r.PostFormValue("confirmPassword") {
		fail(http.StatusBadRequest, "Passwords do not match.")
		return
	}

	if err := s.auth.CreateUser(r.Context(), view.Username, password); err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			fail(http.StatusBadRequest, err.Error())
			return
		}
		s.logger.WithError(err).Error("failed to create admin user")
		fail(http.StatusInternalServerError, "Failed to create user.")
		return
	}
	s.logger.WithField("username", view.Username).Info("admin user created")

	if view.SiteTitle != "" {
		if _, err := s.settings.Update(r.Context(), settings.Patch{Title: settings.String(view.SiteTitle)}); err != nil {
			s.logger.WithError(err).Warn("failed to store site title during setup")
		}
	}

	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}
