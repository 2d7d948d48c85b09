package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/auth"
	"github.com/spec-kit/ticket-routing/internal/config"
	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/repository"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// ProvisionService covers the administrative surface: creating engineer and
// admin accounts and seeding the engineer rotation. It mirrors the deploy-time
// seeding of the original system, but behind an admin-gated API.
type ProvisionService struct {
	users  repository.UserRepository
	queue  repository.EngineerQueue
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewProvisionService creates the service.
func NewProvisionService(cfg config.AuthConfig, users repository.UserRepository, queue repository.EngineerQueue, logger *zap.Logger) *ProvisionService {
	return &ProvisionService{users: users, queue: queue, cfg: cfg, logger: logger}
}

// CreateUserInput describes an admin-created account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// CreateUser provisions an account with an explicit role. New engineers are
// pushed onto the rotation so they start receiving assignments.
func (s *ProvisionService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if !domain.ValidRole(input.Role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	if user.Role == domain.RoleEngineer {
		if err := s.queue.Push(ctx, user.ID); err != nil {
			s.logger.Error("failed to add engineer to rotation",
				zap.String("engineer_id", user.ID),
				zap.Error(err))
		}
	}
	s.logger.Info("user provisioned",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return user, nil
}

// QueueLength reports the current rotation size.
func (s *ProvisionService) QueueLength(ctx context.Context) (int64, error) {
	length, err := s.queue.Length(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return length, nil
}
