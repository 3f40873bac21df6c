// internal/server/backup_handler.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"chefsite/internal/database"
	"chefsite/internal/settings"

	"github.com/sirupsen/logrus"
)

const backupVersion = "1.0"

// BackupData is the complete export of the site.
type BackupData struct {
	Version     string             `json:"version"`
	ExportDate  time.Time          `json:"exportDate"`
	Settings    json.RawMessage    `json:"settings"`
	Subscribers []BackupSubscriber `json:"subscribers"`
	Events      []BackupEvent      `json:"events"`
}

type BackupSubscriber struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type BackupEvent struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ImportResult reports how much of a backup was restored.
type ImportResult struct {
	Settings    bool     `json:"settings"`
	Subscribers int      `json:"subscribers"`
	Events      int      `json:"events"`
	Errors      []string `json:"errors,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := settings.Encode(s.settings.Get(ctx))
	if err != nil {
		s.logger.WithError(err).Error("error encoding settings for export")
		http.Error(w, "Failed to create backup", http.StatusInternalServerError)
		return
	}

	backup := BackupData{
		Version:     backupVersion,
		ExportDate:  s.now().UTC(),
		Settings:    doc,
		Subscribers: make([]BackupSubscriber, 0),
		Events:      make([]BackupEvent, 0),
	}

	subs, err := s.db.ListSubscribers(ctx, "")
	if err != nil {
		s.logger.WithError(err).Error("error exporting subscribers")
		http.Error(w, "Failed to create backup", http.StatusInternalServerError)
		return
	}
	for _, sub := range subs {
		backup.Subscribers = append(backup.Subscribers, BackupSubscriber{
			ID:        sub.ID,
			FullName:  sub.FullName,
			Email:     sub.Email,
			Address:   sub.Address,
			CreatedAt: sub.CreatedAt,
		})
	}

	events, err := s.db.ListEvents(ctx)
	if err != nil {
		s.logger.WithError(err).Error("error exporting events")
		http.Error(w, "Failed to create backup", http.StatusInternalServerError)
		return
	}
	for _, ev := range events {
		backup.Events = append(backup.Events, BackupEvent{
			ID:          ev.ID,
			Date:        ev.Date.Format(database.DateLayout),
			Description: ev.Description,
			ImageURL:    ev.ImageURL,
			CreatedAt:   ev.CreatedAt,
		})
	}

	filename := fmt.Sprintf("chefsite-backup-%s.json", backup.ExportDate.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(backup); err != nil {
		s.logger.WithError(err).Error("error encoding backup")
	}
}

// handleImport restores a backup uploaded as the "backup" form file or sent
// as a JSON body. Rows are upserted by ID; the settings document is
// replaced only when the backup carries one.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := readBackup(r)
	if err != nil {
		s.logger.WithError(err).Warn("error reading backup upload")
		RespondWithError(w, http.StatusBadRequest, "could not read backup file")
		return
	}

	var backup BackupData
	if err := json.Unmarshal(data, &backup); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid backup file format")
		return
	}

	var result ImportResult
	fail := func(format string, args ...interface{}) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	for _, sub := range backup.Subscribers {
		email, ok := normalizeEmail(sub.Email)
		if strings.TrimSpace(sub.FullName) == "" || !ok {
			fail("subscriber %q: name and valid email required", sub.Email)
			continue
		}
		err := s.db.UpsertSubscriber(ctx, database.Subscriber{
			ID:        sub.ID,
			FullName:  strings.TrimSpace(sub.FullName),
			Email:     email,
			Address:   sub.Address,
			CreatedAt: sub.CreatedAt,
		})
		if err != nil {
			fail("subscriber %q: %v", sub.Email, err)
			continue
		}
		result.Subscribers++
	}

	for _, ev := range backup.Events {
		date, err := time.Parse(database.DateLayout, ev.Date)
		if err != nil || ev.ID == "" || strings.TrimSpace(ev.Description) == "" {
			fail("event %q: id, date and description required", ev.ID)
			continue
		}
		err = s.db.UpsertEvent(ctx, database.Event{
			ID:          ev.ID,
			Date:        date,
			Description: strings.TrimSpace(ev.Description),
			ImageURL:    ev.ImageURL,
			CreatedAt:   ev.CreatedAt,
		})
		if err != nil {
			fail("event %q: %v", ev.ID, err)
			continue
		}
		result.Events++
	}

	status := http.StatusOK
	if len(backup.Settings) > 0 && string(backup.Settings) != "null" {
		doc, _, err := settings.Decode(backup.Settings)
		switch {
		case err != nil:
			fail("settings: %v", err)
		default:
			err := s.settings.Save(ctx, doc)
			var perr *settings.PersistenceError
			if errors.As(err, &perr) {
				status = http.StatusServiceUnavailable
			}
			if err != nil {
				fail("settings: %v", err)
				break
			}
			result.Settings = true
		}
	}

	s.logger.WithFields(logrus.Fields{
		"version":     backup.Version,
		"subscribers": result.Subscribers,
		"events":      result.Events,
		"settings":    result.Settings,
		"errors":      len(result.Errors),
	}).Info("backup imported")

	RespondWithJSON(w, status, result)
}

func readBackup(r *http.Request) ([]byte, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		return io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("backup")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxUploadSize))
}
