package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/typerush/typerush/internal/dependencies/clock"
	"github.com/typerush/typerush/internal/model"
	"github.com/typerush/typerush/internal/storage"
)

const (
	minUsernameLength = 2
	maxUsernameLength = 24
	minPasswordLength = 8
)

// Service handles guest sessions and registered-account login. Sessions
// are held in memory; a server restart logs everyone out, which is
// acceptable for race sessions that last minutes.
type Service struct {
	storage         storage.Storage
	clock           clock.Clock
	logger          *slog.Logger
	sessionDuration time.Duration

	mu       sync.RWMutex
	sessions map[model.SessionToken]*model.Session
}

// NewService creates a new auth Service
func NewService(storage storage.Storage, clock clock.Clock, sessionDuration time.Duration, logger *slog.Logger) *Service {
	return &Service{
		storage:         storage,
		clock:           clock,
		logger:          logger.With(slog.String("component", "auth")),
		sessionDuration: sessionDuration,
		sessions:        make(map[model.SessionToken]*model.Session),
	}
}

// CreateGuest issues a session for an anonymous player under the given
// display name. No account is created; the identity lives only as long
// as the session.
func (s *Service) CreateGuest(ctx context.Context, name string) (*model.Session, error) {
	name = strings.TrimSpace(name)
	if err := validateUsername(name); err != nil {
		return nil, err
	}
	return s.issueSession(model.GuestIdentity(name), name), nil
}

// Register creates an account and logs it in
func (s *Service) Register(ctx context.Context, username, password string) (*model.Session, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	_, err := s.storage.GetUserByUsername(ctx, username)
	if err == nil {
		return nil, model.ErrUsernameTaken
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.clock.Now()
	user := &model.User{
		ID:           model.UserID(uuid.NewString()),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", string(user.ID)))
	return s.issueSession(model.UserIdentity(user.ID), user.Username), nil
}

// Login authenticates a registered account. Unknown usernames and wrong
// passwords return the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	user, err := s.storage.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, model.ErrInvalidCredentials
	}

	return s.issueSession(model.UserIdentity(user.ID), user.Username), nil
}

// Validate resolves a bearer token to its session. Expired sessions are
// removed on sight.
func (s *Service) Validate(ctx context.Context, token model.SessionToken) (*model.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrSessionInvalid
	}

	if session.IsExpired(s.clock.Now()) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, model.ErrSessionInvalid
	}
	return session, nil
}

// Revoke invalidates a session token. Revoking an unknown token is a no-op.
func (s *Service) Revoke(ctx context.Context, token model.SessionToken) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *Service) issueSession(identity model.Identity, username string) *model.Session {
	now := s.clock.Now()
	session := &model.Session{
		Token:     model.SessionToken(uuid.NewString()),
		Identity:  identity,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()
	return session
}

func validateUsername(name string) error {
	if len(name) < minUsernameLength || len(name) > maxUsernameLength {
		return fmt.Errorf("username must be %d-%d characters", minUsernameLength, maxUsernameLength)
	}
	return nil
}

// Interface for dependency injection
type ServiceInterface interface {
	CreateGuest(ctx context.Context, name string) (*model.Session, error)
	Register(ctx context.Context, username, password string) (*model.Session, error)
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Validate(ctx context.Context, token model.SessionToken) (*model.Session, error)
	Revoke(ctx context.Context, token model.SessionToken)
}

var _ ServiceInterface = (*Service)(nil)
