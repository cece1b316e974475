package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/heartchat/backend/internal/model/user"
	"github.com/zhouzirui/heartchat/backend/internal/store"
)

var (
	ErrCredentialsRequired = errors.New("email and password required")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrNoSession           = errors.New("not logged in")
)

// Store is the persistence the auth service needs.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (user.User, error)
	FindUserByEmail(ctx context.Context, email string) (user.User, error)
	CreateSession(ctx context.Context, sess user.Session) error
	FindSession(ctx context.Context, token string) (user.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// Service handles signup, login and server-side sessions.
type Service struct {
	store  Store
	ttl    time.Duration
	cost   int
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the auth service. ttl defaults to seven days.
func NewService(st Store, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  st,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		logger: logger.Named("auth"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SessionTTL is how long a new session stays valid.
func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}

// Signup registers an account and opens a session for it.
func (s *Service) Signup(ctx context.Context, email, password string) (user.User, user.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return user.User{}, user.Session{}, ErrCredentialsRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return user.User{}, user.Session{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateUser(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return user.User{}, user.Session{}, ErrEmailTaken
		}
		return user.User{}, user.Session{}, fmt.Errorf("create user: %w", err)
	}

	sess, err := s.openSession(ctx, u.ID)
	if err != nil {
		return user.User{}, user.Session{}, err
	}
	s.logger.Info("user signed up", zap.Int64("userId", u.ID))
	return u, sess, nil
}

// Login checks the password and opens a session. Unknown emails and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (user.User, user.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return user.User{}, user.Session{}, ErrCredentialsRequired
	}

	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return user.User{}, user.Session{}, ErrInvalidCredentials
		}
		return user.User{}, user.Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return user.User{}, user.Session{}, ErrInvalidCredentials
	}

	sess, err := s.openSession(ctx, u.ID)
	if err != nil {
		return user.User{}, user.Session{}, err
	}
	return u, sess, nil
}

// Logout deletes the session. An empty token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Resolve maps a session token to its user id.
func (s *Service) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrNoSession
	}
	sess, err := s.store.FindSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrNoSession
		}
		return 0, fmt.Errorf("resolve session: %w", err)
	}
	return sess.UserID, nil
}

func (s *Service) openSession(ctx context.Context, userID int64) (user.Session, error) {
	now := s.now()
	sess := user.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return user.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
