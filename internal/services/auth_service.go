package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"clearbooks/internal/core"
	"clearbooks/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid VAT number or password")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrVATNumberRequired  = errors.New("VAT number is required")
)

// AuthService handles registration, login and session management.
// Session tokens are opaque random strings stored server side.
type AuthService struct {
	storage    *storage.SQLiteRepository
	sessionTTL time.Duration
	now        func() time.Time
}

func NewAuthService(repo *storage.SQLiteRepository, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		storage:    repo,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Register creates a user and returns a fresh session token.
func (s *AuthService) Register(ctx context.Context, vatNumber, password string) (core.User, string, error) {
	if vatNumber == "" {
		return core.User{}, "", ErrVATNumberRequired
	}
	if len(password) < 8 {
		return core.User{}, "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user := core.User{VATNumber: vatNumber}
	id, err := s.storage.CreateUser(ctx, user, string(hash))
	if err != nil {
		return core.User{}, "", err
	}
	user.ID = id

	token, err := s.createSession(ctx, id)
	if err != nil {
		return core.User{}, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a new session
// token. Missing users and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, vatNumber, password string) (core.User, string, error) {
	user, hash, err := s.storage.GetUserByVAT(ctx, vatNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return core.User{}, "", ErrInvalidCredentials
	}

	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return core.User{}, "", err
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to a user ID.
func (s *AuthService) Authenticate(ctx context.Context, token string) (int64, error) {
	return s.storage.GetSession(ctx, token, s.now())
}

// Logout invalidates the session token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.storage.DeleteSession(ctx, token)
}

func (s *AuthService) GetProfile(ctx context.Context, userID int64) (core.User, error) {
	return s.storage.GetUser(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, u core.User) (core.User, error) {
	if err := s.storage.UpdateUserProfile(ctx, u); err != nil {
		return core.User{}, err
	}
	return s.storage.GetUser(ctx, u.ID)
}

// ChangePassword verifies the current password before setting the new
// one. All other sessions stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if len(next) < 8 {
		return ErrPasswordTooShort
	}

	hash, err := s.storage.GetPasswordHash(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.storage.UpdatePassword(ctx, userID, string(newHash))
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.storage.DeleteExpiredSessions(ctx, s.now())
}

func (s *AuthService) createSession(ctx context.Context, userID int64) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	expiresAt := s.now().Add(s.sessionTTL)
	if err := s.storage.CreateSession(ctx, token, userID, expiresAt); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
