package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the storage format of event dates
const DateLayout = "2006-01-02"

// Event is an announced dinner, class or pop-up
type Event struct {
	ID          string
	Date        time.Time
	Description string
	ImageURL    string
	NotifiedAt  *time.Time
	CreatedAt   time.Time
}

// CreateEvent stores a new event and assigns its ID
func (db *DB) CreateEvent(ctx context.Context, date time.Time, description, imageURL string) (*Event, error) {
	description = strings.TrimSpace(description)
	if date.IsZero() || description == "" {
		return nil, ErrInvalidInput
	}

	ev := &Event{
		ID:          uuid.New().String(),
		Date:        date,
		Description: description,
		ImageURL:    strings.TrimSpace(imageURL),
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.UpsertEvent(ctx, *ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// UpsertEvent writes an event by ID, used directly by backup import
func (db *DB) UpsertEvent(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		return fmt.Errorf("%w: event id", ErrInvalidInput)
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO events (id, event_date, description, image_url, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		event_date = excluded.event_date,
		description = excluded.description,
		image_url = excluded.image_url`,
		ev.ID, ev.Date.Format(DateLayout), ev.Description, ev.ImageURL, ev.CreatedAt,
	)
	return err
}

// ListEvents returns every event by date
func (db *DB) ListEvents(ctx context.Context) ([]Event, error) {
	return db.queryEvents(ctx,
		`SELECT id, event_date, description, image_url, notified_at, created_at
		FROM events ORDER BY event_date, created_at`)
}

// UpcomingEvents returns events on or after from, soonest first
func (db *DB) UpcomingEvents(ctx context.Context, from time.Time, limit int) ([]Event, error) {
	return db.queryEvents(ctx,
		`SELECT id, event_date, description, image_url, notified_at, created_at
		FROM events WHERE event_date >= ? ORDER BY event_date, created_at LIMIT ?`,
		from.Format(DateLayout), limit)
}

// GetEvent loads one event
func (db *DB) GetEvent(ctx context.Context, id string) (*Event, error) {
	events, err := db.queryEvents(ctx,
		`SELECT id, event_date, description, image_url, notified_at, created_at
		FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return &events[0], nil
}

// DeleteEvent removes an event
func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// MarkEventNotified records when subscribers were last told about an event
func (db *DB) MarkEventNotified(ctx context.Context, id string, at time.Time) error {
	result, err := db.ExecContext(ctx,
		"UPDATE events SET notified_at = ? WHERE id = ?", at.UTC(), id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

func (db *DB) queryEvents(ctx context.Context, query string, args ...interface{}) ([]Event, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var date string
		var notified sql.NullTime
		if err := rows.Scan(&ev.ID, &date, &ev.Description, &ev.ImageURL, &notified, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if ev.Date, err = time.Parse(DateLayout, date); err != nil {
			return nil, fmt.Errorf("event %s has bad date %q: %w", ev.ID, date, err)
		}
		if notified.Valid {
			t := notified.Time
			ev.NotifiedAt = &t
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
