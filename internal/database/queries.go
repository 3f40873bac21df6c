// internal/database/queries.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Error definitions
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("record already exists")
)

// Document is a keyed JSON body
type Document struct {
	Key       string
	Version   int
	Body      []byte
	UpdatedAt time.Time
}

// Inquiry is a contact form or booking request
type Inquiry struct {
	ID          int64
	Kind        string
	Name        string
	Email       string
	Message     string
	EventDate   string
	Guests      int
	ServiceType string
	CreatedAt   time.Time
}

const (
	InquiryGeneral = "general"
	InquiryBooking = "booking"
)

// GetDocument loads a document by key
func (db *DB) GetDocument(ctx context.Context, key string) (*Document, error) {
	var doc Document
	var body string
	err := db.QueryRowContext(ctx,
		"SELECT key, version, body, updated_at FROM documents WHERE key = ?",
		key,
	).Scan(&doc.Key, &doc.Version, &body, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Body = []byte(body)
	return &doc, nil
}

// PutDocument replaces a document in a single statement
func (db *DB) PutDocument(ctx context.Context, key string, version int, body []byte) error {
	if key == "" {
		return ErrInvalidInput
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO documents (key, version, body, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
		version = excluded.version,
		body = excluded.body,
		updated_at = CURRENT_TIMESTAMP`,
		key, version, string(body),
	)
	return err
}

// CreateInquiry stores a contact submission
func (db *DB) CreateInquiry(ctx context.Context, in Inquiry) (int64, error) {
	if in.Kind != InquiryGeneral && in.Kind != InquiryBooking {
		return 0, fmt.Errorf("%w: inquiry kind %q", ErrInvalidInput, in.Kind)
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO inquiries (kind, name, email, message, event_date, guests, service_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Kind, in.Name, in.Email, in.Message,
		nullString(in.EventDate), nullInt(in.Guests), nullString(in.ServiceType),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListInquiries returns the most recent inquiries first
func (db *DB) ListInquiries(ctx context.Context, limit int) ([]Inquiry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, kind, name, email, COALESCE(message, ''), COALESCE(event_date, ''),
		        COALESCE(guests, 0), COALESCE(service_type, ''), created_at
		FROM inquiries
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Inquiry
	for rows.Next() {
		var in Inquiry
		if err := rows.Scan(&in.ID, &in.Kind, &in.Name, &in.Email, &in.Message,
			&in.EventDate, &in.Guests, &in.ServiceType, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CountInquiries counts inquiries of one kind, or all when kind is empty
func (db *DB) CountInquiries(ctx context.Context, kind string) (int, error) {
	var count int
	var err error
	if kind == "" {
		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inquiries").Scan(&count)
	} else {
		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inquiries WHERE kind = ?", kind).Scan(&count)
	}
	return count, err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}
