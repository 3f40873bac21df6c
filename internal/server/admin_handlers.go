// internal/server/admin_handlers.go
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chefsite/internal/database"
	"chefsite/internal/notify"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Subscribers

type usersView struct {
	Query       string
	Subscribers []database.Subscriber
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	subs, err := s.db.ListSubscribers(r.Context(), query)
	if err != nil {
		s.logger.WithError(err).Error("error listing subscribers")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pd := s.page(w, r, "Users")
	pd.Active = "users"
	switch {
	case r.URL.Query().Get("deleted") == "1":
		pd.Flash = "Subscriber removed."
	case r.URL.Query().Get("updated") == "1":
		pd.Flash = "Subscriber updated."
	}
	pd.Data = usersView{Query: query, Subscribers: subs}
	s.render(w, r, http.StatusOK, "admin/users.html", pd)
}

func (s *Server) renderUserEdit(w http.ResponseWriter, r *http.Request, status int, sub database.Subscriber, errMsg string) {
	pd := s.page(w, r, "Edit User")
	pd.Active = "users"
	pd.Error = errMsg
	pd.Data = sub
	s.render(w, r, status, "admin/user_edit.html", pd)
}

func (s *Server) handleUserEdit(w http.ResponseWriter, r *http.Request) {
	sub, err := s.db.GetSubscriber(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, database.ErrNotFound) {
		s.handle404(w, r)
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("error loading subscriber")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.renderUserEdit(w, r, http.StatusOK, *sub, "")
}

func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	sub := database.Subscriber{
		ID:       mux.Vars(r)["id"],
		FullName: strings.TrimSpace(r.PostFormValue("fullName")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Address:  strings.TrimSpace(r.PostFormValue("address")),
	}

	email, ok := normalizeEmail(sub.Email)
	if sub.FullName == "" || !ok {
		s.renderUserEdit(w, r, http.StatusBadRequest, sub, "Name and a valid email address are required.")
		return
	}
	sub.Email = email

	err := s.db.UpdateSubscriber(r.Context(), sub)
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.handle404(w, r)
		return
	case errors.Is(err, database.ErrDuplicate):
		s.renderUserEdit(w, r, http.StatusConflict, sub, "Another subscriber already uses that email address.")
		return
	case err != nil:
		s.logger.WithError(err).WithField("subscriber", sub.ID).Error("error updating subscriber")
		s.renderUserEdit(w, r, http.StatusInternalServerError, sub, "The subscriber could not be saved.")
		return
	}

	s.logger.WithField("subscriber", sub.ID).Info("subscriber updated")
	http.Redirect(w, r, "/admin/users?updated=1", http.StatusSeeOther)
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := s.db.DeleteSubscriber(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		s.handle404(w, r)
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("subscriber", id).Error("error deleting subscriber")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.logger.WithField("subscriber", id).Info("subscriber deleted")
	http.Redirect(w, r, "/admin/users?deleted=1", http.StatusSeeOther)
}

// Events

type eventForm struct {
	Date        string
	Description string
	ImageURL    string
}

type eventsView struct {
	Events []database.Event
	Form   eventForm
	Mail   string
}

func (s *Server) renderEvents(w http.ResponseWriter, r *http.Request, status int, form eventForm, flash, errMsg string) {
	events, err := s.db.ListEvents(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("error listing events")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pd := s.page(w, r, "Events")
	pd.Active = "events"
	pd.Flash = flash
	pd.Error = errMsg
	view := eventsView{Events: events, Form: form}
	if s.notifier != nil {
		view.Mail = s.notifier.ProviderName()
	}
	pd.Data = view
	s.render(w, r, status, "admin/events.html", pd)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var flash string
	switch {
	case r.URL.Query().Get("created") == "1":
		flash = "Event added."
	case r.URL.Query().Get("deleted") == "1":
		flash = "Event removed."
	}
	s.renderEvents(w, r, http.StatusOK, eventForm{}, flash, "")
}

func (s *Server) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	form := eventForm{
		Date:        strings.TrimSpace(r.PostFormValue("date")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		ImageURL:    strings.TrimSpace(r.PostFormValue("imageUrl")),
	}

	date, err := time.Parse(database.DateLayout, form.Date)
	if err != nil || form.Description == "" {
		s.renderEvents(w, r, http.StatusBadRequest, form, "", "An event needs a date and a description.")
		return
	}
	if form.ImageURL != "" && !safeHref(form.ImageURL) {
		s.renderEvents(w, r, http.StatusBadRequest, form, "", "The image must be a site path or an http(s) URL.")
		return
	}

	ev, err := s.db.CreateEvent(r.Context(), date, form.Description, form.ImageURL)
	if err != nil {
		s.logger.WithError(err).Error("error creating event")
		s.renderEvents(w, r, http.StatusInternalServerError, form, "", "The event could not be saved.")
		return
	}

	s.logger.WithFields(logrus.Fields{"event": ev.ID, "date": form.Date}).Info("event created")
	http.Redirect(w, r, "/admin/events?created=1", http.StatusSeeOther)
}

func (s *Server) handleEventDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := s.db.DeleteEvent(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		s.handle404(w, r)
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("event", id).Error("error deleting event")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.logger.WithField("event", id).Info("event deleted")
	http.Redirect(w, r, "/admin/events?deleted=1", http.StatusSeeOther)
}

// handleEventNotify emails every subscriber about one event. Partial
// delivery still marks the event as notified.
func (s *Server) handleEventNotify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	ev, err := s.db.GetEvent(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		s.handle404(w, r)
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("event", id).Error("error loading event")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if s.notifier == nil {
		s.renderEvents(w, r, http.StatusServiceUnavailable, eventForm{}, "", "Email delivery is not configured.")
		return
	}

	recipients, err := s.db.SubscriberEmails(ctx)
	if err != nil {
		s.logger.WithError(err).Error("error loading subscriber emails")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	outcome, err := s.notifier.SendEventNotification(ctx, notify.Event{
		ID:          ev.ID,
		Date:        ev.Date,
		Description: ev.Description,
		ImageURL:    ev.ImageURL,
	}, recipients)

	if outcome != nil {
		notificationsSent.Add(int64(len(outcome.Sent)))
		notificationsFailed.Add(int64(len(outcome.Failed)))
		if len(outcome.Sent) > 0 {
			if err := s.db.MarkEventNotified(ctx, ev.ID, s.now()); err != nil {
				s.logger.WithError(err).WithField("event", ev.ID).Warn("error marking event notified")
			}
		}
	}

	var nerr *notify.NotificationError
	switch {
	case errors.Is(err, notify.ErrNoRecipients):
		s.renderEvents(w, r, http.StatusOK, eventForm{}, "", "There are no subscribers to notify yet.")
	case errors.As(err, &nerr):
		status := http.StatusOK
		if len(outcome.Sent) == 0 {
			status = http.StatusBadGateway
		}
		s.renderEvents(w, r, status, eventForm{}, sentMessage(len(outcome.Sent)),
			fmt.Sprintf("Could not notify %d subscriber(s): %s", len(nerr.Failures), strings.Join(nerr.Recipients(), ", ")))
	case err != nil:
		s.logger.WithError(err).WithField("event", ev.ID).Error("event notification failed")
		s.renderEvents(w, r, http.StatusInternalServerError, eventForm{}, "", "Notifications could not be sent.")
	default:
		s.logger.WithFields(logrus.Fields{"event": ev.ID, "sent": len(outcome.Sent)}).Info("event notifications sent")
		s.renderEvents(w, r, http.StatusOK, eventForm{}, sentMessage(len(outcome.Sent)), "")
	}
}

func sentMessage(n int) string {
	if n == 0 {
		return ""
	}
	if n == 1 {
		return "Notified 1 subscriber."
	}
	return fmt.Sprintf("Notified %d subscribers.", n)
}
