package services

import (
	"errors"
	"testing"

	"account-settlement-system/models"
)

func TestCreateUserAndLogin(t *testing.T) {
	db := testDB(t)
	t.Setenv("JWT_SECRET", "test-secret")

	users := NewUserService(db)
	auth := NewAuthService(db)

	user, err := users.CreateUser("alice", "Alice", "hunter22", models.RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.PasswordHash == "hunter22" {
		t.Error("password stored in plaintext")
	}

	if _, err := users.CreateUser("alice", "", "other", models.RoleUser); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username: got %v, want ErrUsernameTaken", err)
	}

	token, logged, err := auth.Login("alice", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || logged.ID != user.ID {
		t.Errorf("login result: token=%q user=%d", token, logged.ID)
	}
	if _, _, err := auth.Login("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password: got %v, want ErrInvalidCredentials", err)
	}

	claims, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != models.RoleUser {
		t.Errorf("claims = %+v", claims)
	}
}

func TestSetReferral(t *testing.T) {
	db := testDB(t)
	users := NewUserService(db)

	seedUser(t, db, 1, "grandparent")
	seedUser(t, db, 2, "parent")
	seedUser(t, db, 3, "child")

	if _, err := users.SetReferral(3, i64(3), nil); !errors.Is(err, ErrBadReferral) {
		t.Errorf("self referral: got %v, want ErrBadReferral", err)
	}
	if _, err := users.SetReferral(3, nil, i64(1)); !errors.Is(err, ErrBadReferral) {
		t.Errorf("l2 without l1: got %v, want ErrBadReferral", err)
	}
	if _, err := users.SetReferral(3, i64(42), nil); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown inviter: got %v, want ErrUserNotFound", err)
	}

	ref, err := users.SetReferral(3, i64(2), i64(1))
	if err != nil {
		t.Fatalf("set referral: %v", err)
	}
	if ref.InviterLevel1 == nil || *ref.InviterLevel1 != 2 || ref.InviterLevel2 == nil || *ref.InviterLevel2 != 1 {
		t.Errorf("referral = %+v", ref)
	}

	// Editing is an upsert, not a duplicate row
	if _, err := users.SetReferral(3, i64(1), nil); err != nil {
		t.Fatalf("edit referral: %v", err)
	}
	var count int64
	db.Model(&models.UserReferral{}).Where("user_id = 3").Count(&count)
	if count != 1 {
		t.Errorf("referral rows = %d, want 1", count)
	}
}
