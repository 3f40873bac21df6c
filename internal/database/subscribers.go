package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subscriber is a newsletter sign-up
type Subscriber struct {
	ID        string
	FullName  string
	Email     string
	Address   string
	CreatedAt time.Time
}

// CreateSubscriber adds a sign-up. Emails are unique regardless of case.
func (db *DB) CreateSubscriber(ctx context.Context, fullName, email, address string) (*Subscriber, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, ErrInvalidInput
	}

	sub := &Subscriber{
		ID:        uuid.New().String(),
		FullName:  fullName,
		Email:     email,
		Address:   strings.TrimSpace(address),
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO subscribers (id, full_name, email, address, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.FullName, sub.Email, nullString(sub.Address), sub.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, email)
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubscribers returns subscribers whose name or email contains query,
// ignoring case. An empty query lists everyone.
func (db *DB) ListSubscribers(ctx context.Context, query string) ([]Subscriber, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := db.QueryContext(ctx,
		`SELECT id, full_name, email, COALESCE(address, ''), created_at
		FROM subscribers
		WHERE full_name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\'
		ORDER BY full_name COLLATE NOCASE, email`,
		pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.ID, &s.FullName, &s.Email, &s.Address, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// GetSubscriber loads one subscriber
func (db *DB) GetSubscriber(ctx context.Context, id string) (*Subscriber, error) {
	var s Subscriber
	err := db.QueryRowContext(ctx,
		`SELECT id, full_name, email, COALESCE(address, ''), created_at
		FROM subscribers WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.FullName, &s.Email, &s.Address, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSubscriber rewrites name, email and address
func (db *DB) UpdateSubscriber(ctx context.Context, s Subscriber) error {
	if strings.TrimSpace(s.FullName) == "" || strings.TrimSpace(s.Email) == "" {
		return ErrInvalidInput
	}
	result, err := db.ExecContext(ctx,
		`UPDATE subscribers SET full_name = ?, email = ?, address = ? WHERE id = ?`,
		strings.TrimSpace(s.FullName), strings.TrimSpace(s.Email), nullString(s.Address), s.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, s.Email)
	}
	if err != nil {
		return err
	}
	return expectOne(result)
}

// DeleteSubscriber removes a subscriber
func (db *DB) DeleteSubscriber(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, "DELETE FROM subscribers WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// SubscriberEmails returns every subscriber address
func (db *DB) SubscriberEmails(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT email FROM subscribers ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// UpsertSubscriber restores a subscriber by id, used by backup import
func (db *DB) UpsertSubscriber(ctx context.Context, s Subscriber) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO subscribers (id, full_name, email, address, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		full_name = excluded.full_name,
		email = excluded.email,
		address = excluded.address`,
		s.ID, s.FullName, s.Email, nullString(s.Address), s.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, s.Email)
	}
	return err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func expectOne(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
