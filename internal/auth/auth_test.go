package auth

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"chefsite/internal/database"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// setupTestDB opens a migrated database in a temp directory.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "auth.db"), database.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func TestCleanExpiredSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Exec("INSERT INTO admin_users (username, password_hash) VALUES (?, ?)", "testuser", "somehash")
	if err != nil {
		t.Fatalf("Failed to create dummy user: %v", err)
	}
	var userID int64
	if err := db.QueryRow("SELECT id FROM admin_users WHERE username = ?", "testuser").Scan(&userID); err != nil {
		t.Fatalf("Failed to get dummy user ID: %v", err)
	}

	sessions := []struct {
		id        string
		expiresAt time.Time
		isExpired bool
	}{
		{"valid_session_1", time.Now().Add(1 * time.Hour), false},
		{"expired_session_1", time.Now().Add(-1 * time.Hour), true},
		{"valid_session_2", time.Now().Add(24 * time.Hour), false},
		{"expired_session_2", time.Now().Add(-24 * time.Hour), true},
	}
	for _, s := range sessions {
		_, err := db.Exec("INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)", s.id, userID, s.expiresAt)
		if err != nil {
			t.Fatalf("Failed to insert session %s: %v", s.id, err)
		}
	}

	service := NewService(db)
	removed, err := service.CleanExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanExpiredSessions failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 sessions removed, got %d", removed)
	}

	for _, s := range sessions {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", s.id).Scan(&count); err != nil {
			t.Fatalf("Failed to query session %s: %v", s.id, err)
		}
		if s.isExpired && count != 0 {
			t.Errorf("Expired session %s should have been removed", s.id)
		}
		if !s.isExpired && count != 1 {
			t.Errorf("Valid session %s should still exist", s.id)
		}
	}
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Now()
	testCases := []struct {
		name      string
		session   Session
		isExpired bool
	}{
		{"active session", Session{ExpiresAt: now.Add(1 * time.Hour)}, false},
		{"expired session", Session{ExpiresAt: now.Add(-1 * time.Hour)}, true},
		{"session expiring just a moment ago", Session{ExpiresAt: now.Add(-1 * time.Nanosecond)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.session.IsExpired(); got != tc.isExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tc.isExpired)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"too_short", "Short1!", true},
		{"common_password", "Password1", true},
		{"valid_password", "MySecureP@ssw0rd!", false},
		{"minimum_length", "abcdefgh", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrWeakPassword) {
				t.Errorf("Expected ErrWeakPassword, got %v", err)
			}
		})
	}
}
