// internal/auth/service.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Service manages admin accounts and their sessions
type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// HasUsers reports whether any admin account exists
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin_users").Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateUser creates a new admin user with a hashed password
func (s *Service) CreateUser(ctx context.Context, username, password string) error {
	username = normalizeUsername(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO admin_users (username, password_hash) VALUES (?, ?)",
		username, string(hash),
	)
	return err
}

// Authenticate verifies username and password, returns a new session if successful
func (s *Service) Authenticate(ctx context.Context, username, password, ip, userAgent string) (*Session, error) {
	var id int64
	var passwordHash string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, password_hash FROM admin_users WHERE username = ?",
		normalizeUsername(username),
	).Scan(&id, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE admin_users SET last_login = ? WHERE id = ?", s.now(), id); err != nil {
		return nil, err
	}

	return s.createSession(ctx, id, ip, userAgent)
}

func (s *Service) createSession(ctx context.Context, userID int64, ip, userAgent string) (*Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionDuration),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, ip_address, user_agent, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, ip, userAgent, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ValidateSession checks if a session is valid and not expired
func (s *Service) ValidateSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at
         FROM sessions
         WHERE id = ?`,
		sessionID,
	).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// InvalidateSession removes a session from the database
func (s *Service) InvalidateSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}

// CleanExpiredSessions removes all expired sessions
func (s *Service) CleanExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", s.now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetUser loads an admin account by ID
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, last_login, created_at FROM admin_users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &lastLogin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// ChangePassword replaces a user's password after checking the current one.
// Other sessions of the user are ended.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next, keepSession string) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE admin_users SET password_hash = ? WHERE id = ?", string(hash), userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sessions WHERE user_id = ? AND id != ?", userID, keepSession); err != nil {
		return err
	}
	return tx.Commit()
}
