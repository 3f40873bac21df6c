// internal/server/metrics.go
package server

import (
	"expvar"
	"net/http"
	"time"
)

var (
	settingsSaves         = expvar.NewInt("settings_saves")
	settingsSaveFailures  = expvar.NewInt("settings_save_failures")
	notificationsSent     = expvar.NewInt("notifications_sent")
	notificationsFailed   = expvar.NewInt("notifications_failed")
	subscribersRegistered = expvar.NewInt("subscribers_registered")
	inquiriesReceived     = expvar.NewMap("inquiries_received")
)

// recordSave counts settings save attempts. It is installed as the
// settings manager's OnSave hook.
func recordSave(err error) {
	if err != nil {
		settingsSaveFailures.Add(1)
		return
	}
	settingsSaves.Add(1)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	metrics := map[string]interface{}{
		"settings_saves":         settingsSaves.Value(),
		"settings_save_failures": settingsSaveFailures.Value(),
		"notifications_sent":     notificationsSent.Value(),
		"notifications_failed":   notificationsFailed.Value(),
		"subscribers_registered": subscribersRegistered.Value(),
		"inquiries_received":     inquiriesReceived.String(), // already JSON
		"timestamp":              s.now().UTC().Format(time.RFC3339),
	}

	if subs, err := s.db.SubscriberEmails(ctx); err == nil {
		metrics["subscribers"] = len(subs)
	} else {
		s.logger.WithError(err).Warn("error counting subscribers")
	}
	if n, err := s.db.CountInquiries(ctx, ""); err == nil {
		metrics["inquiries_stored"] = n
	}

	RespondWithJSON(w, http.StatusOK, metrics)
}
