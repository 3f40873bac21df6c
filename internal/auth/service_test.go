package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateUser_LowercaseUsername(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	if err := service.CreateUser(ctx, "  ChefAdmin ", "SecurePass123!"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	var stored string
	if err := db.QueryRow("SELECT username FROM admin_users").Scan(&stored); err != nil {
		t.Fatalf("Failed to read username: %v", err)
	}
	if stored != "chefadmin" {
		t.Errorf("Expected username chefadmin, got %q", stored)
	}

	has, err := service.HasUsers(ctx)
	if err != nil || !has {
		t.Errorf("Expected HasUsers true, got %v (err %v)", has, err)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	if err := service.CreateUser(ctx, "admin", "SecurePass123!"); err != nil {
		t.Fatalf("First CreateUser failed: %v", err)
	}
	if err := service.CreateUser(ctx, "ADMIN", "SecurePass123!"); err == nil {
		t.Fatal("Expected error for duplicate username, got nil")
	}
}

func TestCreateUser_WeakPassword(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	err := service.CreateUser(context.Background(), "admin", "short")
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	if err := service.CreateUser(ctx, "admin", "SecurePass123!"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("success", func(t *testing.T) {
		session, err := service.Authenticate(ctx, "Admin", "SecurePass123!", "127.0.0.1", "test")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if session == nil || session.ID == "" {
			t.Fatal("Expected valid session with non-empty ID")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", session.ID).Scan(&count); err != nil {
			t.Fatalf("Failed to query session: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 session, got %d", count)
		}

		user, err := service.GetUser(ctx, session.UserID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if user.LastLogin == nil {
			t.Error("Expected last_login to be recorded")
		}
	})

	t.Run("incorrect password", func(t *testing.T) {
		_, err := service.Authenticate(ctx, "admin", "wrong-password", "", "")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := service.Authenticate(ctx, "nobody", "SecurePass123!", "", "")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestValidateAndInvalidateSession(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	if err := service.CreateUser(ctx, "admin", "SecurePass123!"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	session, err := service.Authenticate(ctx, "admin", "SecurePass123!", "", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	got, err := service.ValidateSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if got.UserID != session.UserID {
		t.Errorf("Expected user %d, got %d", session.UserID, got.UserID)
	}

	if _, err := service.ValidateSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	service.now = func() time.Time { return time.Now().Add(SessionDuration + time.Minute) }
	if _, err := service.ValidateSession(ctx, session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
	service.now = time.Now

	if err := service.InvalidateSession(ctx, session.ID); err != nil {
		t.Fatalf("InvalidateSession failed: %v", err)
	}
	if _, err := service.ValidateSession(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after invalidation, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	ctx := context.Background()

	if err := service.CreateUser(ctx, "admin", "SecurePass123!"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	current, err := service.Authenticate(ctx, "admin", "SecurePass123!", "", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	other, err := service.Authenticate(ctx, "admin", "SecurePass123!", "", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if err := service.ChangePassword(ctx, current.UserID, "wrong", "NewSecret456!", current.ID); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if err := service.ChangePassword(ctx, current.UserID, "SecurePass123!", "short", current.ID); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}
	if err := service.ChangePassword(ctx, current.UserID, "SecurePass123!", "NewSecret456!", current.ID); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := service.ValidateSession(ctx, current.ID); err != nil {
		t.Errorf("Expected current session to survive, got %v", err)
	}
	if _, err := service.ValidateSession(ctx, other.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected other session to be ended, got %v", err)
	}
	if _, err := service.Authenticate(ctx, "admin", "NewSecret456!", "", ""); err != nil {
		t.Errorf("Expected new password to work, got %v", err)
	}
}
