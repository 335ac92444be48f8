package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/security/auth"
)

// MinPasswordLength is the shortest password accepted at registration and
// password change
const MinPasswordLength = 8

// AuthService handles registration, login and password changes
type AuthService struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	cost     int
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
}

// RegisterResult represents registration response
type RegisterResult struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// LoginResult represents login response
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"` // seconds
	TokenType string       `json:"tokenType"`
	User      *domain.User `json:"user"`
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*RegisterResult, error) {
	name = strings.TrimSpace(name)
	email = domain.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Validation("name, email and password are required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.Validation("invalid email address")
	}
	if len(password) < MinPasswordLength {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperr.Internal("failed to register user", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal("failed to register user", err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return &RegisterResult{User: user, Token: token}, nil
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with unknown email")
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("user_id", user.ID))
		return nil, apperr.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{
		Token:     token,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
		TokenType: "Bearer",
		User:      user,
	}, nil
}

// ChangePassword verifies the current password and stores a hash of the new one
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return apperr.Validation("new password must be at least 8 characters")
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperr.Validation("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return apperr.Internal("failed to change password", err)
	}

	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return apperr.Internal("failed to change password", err)
	}

	s.logger.Info("user changed password", slog.String("user_id", userID))
	return nil
}

// Me returns the caller's account
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return user, nil
}
