package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-relay/internal/domain"
	"chat-relay/internal/repository"
)

// UserService coordina registro y login de usuarios.
type UserService struct {
	logger      *zap.Logger
	creds       repository.CredentialRepository
	tokens      *TokenService
	limiter     LoginRateLimiter
	tokenExpiry time.Time

	dummyOnce sync.Once
	dummyHash string
}

var (
	ErrEmptyCredentials   = errors.New("username and password cannot be empty")
	ErrUsernameTaken      = errors.New("username already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
)

func NewUserService(logger *zap.Logger, creds repository.CredentialRepository, tokens *TokenService, limiter LoginRateLimiter, tokenExpiry time.Time) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		logger:      logger,
		creds:       creds,
		tokens:      tokens,
		limiter:     limiter,
		tokenExpiry: tokenExpiry,
	}
}

type LoginInput struct {
	Username string
	Password string
	ClientIP string
}

// Register crea la credencial si el username esta libre.
func (s *UserService) Register(ctx context.Context, username, password string) error {
	if s.creds == nil {
		return errors.New("user service not configured")
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrEmptyCredentials
	}

	// Camino rapido; la restriccion UNIQUE cubre la carrera entre esta consulta y el insert.
	_, err := s.creds.GetByUsername(ctx, username)
	if err == nil {
		return ErrUsernameTaken
	}
	if !errors.Is(err, repository.ErrCredentialNotFound) {
		return fmt.Errorf("find user: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	cred := domain.Credential{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Login valida las credenciales y emite un token. Usuario inexistente y password
// incorrecto devuelven el mismo error.
func (s *UserService) Login(ctx context.Context, input LoginInput) (string, error) {
	if s.creds == nil || s.tokens == nil {
		return "", errors.New("user service not configured")
	}
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return "", ErrEmptyCredentials
	}
	if s.limiter != nil && !s.limiter.Allow(username, input.ClientIP) {
		return "", ErrRateLimited
	}

	cred, err := s.creds.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			s.logger.Info("login for unknown user", zap.String("username", username))
			// Igualamos el costo del camino con usuario existente.
			_, _ = VerifyPassword(input.Password, s.dummy())
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	ok, err := VerifyPassword(input.Password, cred.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", zap.String("username", username), zap.Error(err))
		return "", ErrInvalidCredentials
	}
	if !ok {
		s.logger.Info("password mismatch", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(NewClaims(cred.Username, s.tokenExpiry))
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := HashPassword(uuid.NewString())
		if err != nil {
			s.logger.Warn("dummy hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
