package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/cafe_pos/internal/hash"
	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/tokens"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

const minPasswordLen = 6

var roles = []string{models.RoleAdmin, models.RoleCashier, models.RoleKitchen}

type AuthService struct {
	Repo      *repo.GormRepo
	JWTSecret []byte
	TTL       time.Duration
	Now       func() time.Time
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*transport.LoginResponse, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password required", ErrValidation)
	}

	user, err := s.Repo.UserByCredentials(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, err
	}

	exp := s.now().Add(s.ttl())
	token, err := tokens.IssueAccessToken(s.JWTSecret, user.ID.String(), user.Username, user.Role, exp)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &transport.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		User:        user,
	}, nil
}

func (s *AuthService) CreateUser(ctx context.Context, req transport.CreateUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", ErrValidation)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if !slices.Contains(roles, req.Role) {
		return nil, fmt.Errorf("%w: role must be one of %s", ErrValidation, strings.Join(roles, ", "))
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, PasswordHash: hashed, Role: req.Role}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, fmt.Errorf("%w: user %s already exists", ErrConflict, username)
		}
		return nil, translate(err, "user "+username)
	}
	return user, nil
}

// EnsureAdmin seeds the first admin account; an existing one is left alone.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.CreateUser(ctx, transport.CreateUserRequest{Username: username, Password: password, Role: models.RoleAdmin})
	if err != nil && !errors.Is(err, ErrConflict) {
		return err
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user "+id.String())
	}
	return user, nil
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 12 * time.Hour
}
