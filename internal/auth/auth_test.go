package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/noesis-social/noesis/internal/store"
	"github.com/noesis-social/noesis/internal/store/sqlite"
)

func newTestService(t *testing.T, ttl time.Duration) (*Service, *sqlite.Store) {
	t.Helper()
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, ttl), st
}

func TestSignupAndLogin(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	user, err := svc.Signup(ctx, "alice", "Alice@Example.com", "secret1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if user.PasswordHash == "secret1" || user.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}

	session, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token == "" || session.Username != "alice" {
		t.Fatalf("unexpected session: %+v", session)
	}

	username, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if username != "alice" {
		t.Fatalf("unexpected username: %s", username)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short username", "ab", "a@b.com", "secret1"},
		{"bad username chars", "bad name!", "a@b.com", "secret1"},
		{"bad email", "alice", "not-an-email", "secret1"},
		{"short password", "alice", "a@b.com", "12345"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tc.username, tc.email, tc.password)
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestSignupDuplicates(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Signup(ctx, "alice", "other@example.com", "secret1"); !errors.Is(err, store.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if _, err := svc.Signup(ctx, "alice2", "alice@example.com", "secret1"); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLoginWrongCredentials(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	// unknown user and wrong password produce the same error
	_, unknownErr := svc.Login(ctx, "nobody", "secret1")
	_, wrongErr := svc.Login(ctx, "alice", "wrong-password")
	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatal("error messages must not reveal whether the user exists")
	}
}

func TestSessionExpiry(t *testing.T) {
	svc, st := newTestService(t, -time.Minute)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	session, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// the expired session is deleted on sight
	if _, err := st.GetSession(ctx, session.Token); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	session, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	svc, st := newTestService(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice", "alice@example.com", "secret1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	session, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.DeleteAccount(ctx, "alice"); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := st.GetUser(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}
