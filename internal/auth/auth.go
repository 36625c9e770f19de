// Package auth implements signup, login and server-side sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noesis-social/noesis/internal/model"
	"github.com/noesis-social/noesis/internal/store"
)

// ErrInvalidCredentials is deliberately identical for an unknown username
// and a wrong password.
var ErrInvalidCredentials = errors.New("wrong credentials")

var ErrSessionExpired = errors.New("session expired")

// ValidationError carries a human-readable reason for rejected signup input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

type Service struct {
	store      store.Store
	sessionTTL time.Duration
}

func NewService(st store.Store, sessionTTL time.Duration) *Service {
	return &Service{store: st, sessionTTL: sessionTTL}
}

func (s *Service) Signup(ctx context.Context, username, email, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if !usernameRe.MatchString(username) {
		return model.User{}, &ValidationError{Reason: "username must be 3-30 characters of letters, numbers, and underscores"}
	}
	if len(email) > 254 || !emailRe.MatchString(email) {
		return model.User{}, &ValidationError{Reason: "a valid email address is required"}
	}
	if len(password) < 6 || len(password) > 128 {
		return model.User{}, &ValidationError{Reason: "password must be 6-128 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Login verifies the password and mints a new session.
func (s *Service) Login(ctx context.Context, username, password string) (model.Session, error) {
	user, err := s.store.GetUser(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Session{}, ErrInvalidCredentials
		}
		return model.Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.Session{}, ErrInvalidCredentials
	}

	token, err := randomToken(32)
	if err != nil {
		return model.Session{}, err
	}
	session := model.Session{
		Token:     token,
		Username:  user.Username,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return model.Session{}, err
	}
	return session, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to a username. Expired sessions are
// deleted on sight.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return "", err
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.store.DeleteSession(ctx, token)
		return "", ErrSessionExpired
	}
	return session.Username, nil
}

// DeleteAccount removes the user, which cascades to their posts, likes,
// comments and follow edges, and invalidates every session.
func (s *Service) DeleteAccount(ctx context.Context, username string) error {
	if err := s.store.DeleteSessionsForUser(ctx, username); err != nil {
		return err
	}
	return s.store.DeleteUser(ctx, username)
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
