// Package auth handles accounts and cookie sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/sheets"
)

const (
	MinPasswordLength = 6
	MaxUsernameLength = 80
	DefaultTokenTTL   = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("username is required")
	ErrInvalidEmail       = errors.New("please enter a valid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters long")
)

type Service struct {
	users  sheets.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewService(users sheets.UserStore, secret []byte, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
		logger: applog.ForComponent(logger, applog.ComponentAuth),
	}
}

// TTL is how long issued sessions stay valid.
func (s *Service) TTL() time.Duration { return s.ttl }

// Register creates an account. Usernames and emails are unique ignoring case.
func (s *Service) Register(ctx context.Context, username, email, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return core.User{}, ErrInvalidUsername
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return core.User{}, ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return core.User{}, ErrWeakPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	u := core.User{Username: username, Email: email, PasswordHash: hash, CreatedAt: s.now()}
	id, err := s.users.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, core.ErrUserExists) {
			return core.User{}, err
		}
		return core.User{}, fmt.Errorf("register %q: %w", username, err)
	}
	u.ID = id
	s.logger.InfoContext(ctx, "User registered", applog.FieldUserID, id)
	return u, nil
}

// Login checks the credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, core.User, error) {
	u, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrUserNotFound) {
		return "", core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", core.User{}, fmt.Errorf("login: %w", err)
	}
	if !CheckPassword(password, u.PasswordHash) {
		s.logger.WarnContext(ctx, "Failed login", applog.FieldUserID, u.ID)
		return "", core.User{}, ErrInvalidCredentials
	}
	token, err := GenerateToken(s.secret, u.ID, u.Username, s.now(), s.ttl)
	if err != nil {
		return "", core.User{}, err
	}
	return token, u, nil
}

// Authenticate validates a session token.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return ValidateToken(s.secret, token, s.now())
}
