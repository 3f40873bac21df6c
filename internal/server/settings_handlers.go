// internal/server/settings_handlers.go
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"chefsite/internal/analytics"
	"chefsite/internal/database"
	"chefsite/internal/settings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	recentInquiries = 10
	maxSettingsBody = 1 << 20
)

// dashboard renders the settings editor for doc. doc is the stored
// document, or an unsaved draft after a failed save.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request, status int, tab settings.Section, doc settings.SiteSettings, flash, errMsg string) {
	ctx := r.Context()
	pd := s.page(w, r, "Dashboard")
	pd.Active = "dashboard"
	pd.Flash = flash
	pd.Error = errMsg

	view := dashboardView{
		Forms: settingsForms(doc),
		Tab:   tab,
	}
	if subs, err := s.db.ListSubscribers(ctx, ""); err == nil {
		view.Subscribers = len(subs)
	} else {
		s.logger.WithError(err).Warn("error counting subscribers")
	}
	if events, err := s.db.ListEvents(ctx); err == nil {
		view.Events = len(events)
	}
	if n, err := s.db.CountInquiries(ctx, database.InquiryBooking); err == nil {
		view.Bookings = n
	}
	if inquiries, err := s.db.ListInquiries(ctx, recentInquiries); err == nil {
		view.Inquiries = inquiries
	} else {
		s.logger.WithError(err).Warn("error loading inquiries")
	}

	pd.Data = view
	s.render(w, r, status, "admin/dashboard.html", pd)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tab, err := settings.ParseSection(r.URL.Query().Get("tab"))
	if err != nil {
		tab = settings.SectionGeneral
	}
	var flash string
	if r.URL.Query().Get("saved") == "1" {
		flash = sectionLabels[tab] + " settings saved."
	}
	s.dashboard(w, r, http.StatusOK, tab, s.settings.Get(r.Context()), flash, "")
}

// handleSettingsSection saves one editor tab. A rejected or failed save
// re-renders the submitted values so nothing typed is lost.
func (s *Server) handleSettingsSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	section, err := settings.ParseSection(mux.Vars(r)["section"])
	if err != nil {
		s.handle404(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	draft, err := s.settings.Update(ctx, settings.FormPatch(section, r.PostForm), settings.Validate)
	var perr *settings.PersistenceError
	switch {
	case errors.As(err, &perr):
		s.logger.WithError(err).WithField("section", section).Error("error saving settings")
		s.dashboard(w, r, http.StatusServiceUnavailable, section, draft, "",
			"Your changes could not be saved. They are still shown below; please try again.")
		return
	case err != nil:
		s.dashboard(w, r, http.StatusBadRequest, section, draft, "", "Some links are not valid: "+err.Error())
		return
	}

	s.logger.WithField("section", section).Info("settings section saved")
	http.Redirect(w, r, "/admin?tab="+string(section)+"&saved=1", http.StatusSeeOther)
}

func (s *Server) handleAPIGetSettings(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.settings.Get(r.Context()))
}

// handleAPIPutSettings replaces the whole document. Unknown keys are
// ignored and missing keys become empty strings.
func (s *Server) handleAPIPutSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsBody))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "error reading request body")
		return
	}

	doc, _, err := settings.Decode(body)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "settings must be a JSON object")
		return
	}
	if err := settings.Validate(doc); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondSaved(w, doc, s.settings.Save(r.Context(), doc), logrus.Fields{"op": "replace"})
}

// handleAPIPatchSection merges a partial document restricted to one section.
func (s *Server) handleAPIPatchSection(w http.ResponseWriter, r *http.Request) {
	section, err := settings.ParseSection(mux.Vars(r)["section"])
	if err != nil {
		RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	var patch settings.Patch
	dec := json.NewDecoder(io.LimitReader(r.Body, maxSettingsBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid patch: "+err.Error())
		return
	}
	if err := patch.Scope(section); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.settings.Update(r.Context(), patch, settings.Validate)
	s.respondSaved(w, doc, err, logrus.Fields{"op": "patch", "section": section, "fields": patch.Fields()})
}

// respondSaved maps the result of a save to the API response. Errors that
// are not persistence failures come from validation.
func (s *Server) respondSaved(w http.ResponseWriter, doc settings.SiteSettings, err error, fields logrus.Fields) {
	var perr *settings.PersistenceError
	switch {
	case errors.As(err, &perr):
		s.logger.WithError(err).WithFields(fields).Error("settings api save failed")
		RespondWithError(w, http.StatusServiceUnavailable, "settings could not be saved")
		return
	case err != nil:
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.WithFields(fields).Info("settings saved via api")
	RespondWithJSON(w, http.StatusOK, doc)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	pd := s.page(w, r, "Analytics")
	pd.Active = "analytics"
	pd.Data = analytics.Weekly()
	s.render(w, r, http.StatusOK, "admin/analytics.html", pd)
}

func (s *Server) handleAPIAnalytics(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, analytics.Weekly())
}
