package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/repository"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Username string      `json:"username" validate:"required,min=3,max=64"`
	Password string      `json:"password" validate:"required,min=6"`
	FullName string      `json:"full_name" validate:"required"`
	Email    string      `json:"email" validate:"omitempty,email"`
	Role     models.Role `json:"role" validate:"required"`
	// Subject is required for professors; it names the subject they teach.
	Subject string `json:"subject"`
}

// UserService manages account registration and lookup.
type UserService struct {
	users     *repository.UserRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(users *repository.UserRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, validator: validate, logger: logger, now: time.Now}
}

// Register creates a new account. Professors must declare the subject they
// teach. Students are enrolled in every subject currently taught, so any
// professor is bookable right away.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", req.Role))
	}
	if req.Role == models.RoleProfessor && req.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "professors must declare a subject")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         req.Role,
		FullName:     req.FullName,
		Email:        req.Email,
		CreatedAt:    s.now().UTC(),
	}

	switch req.Role {
	case models.RoleProfessor:
		user.AddSubject(req.Subject)
	case models.RoleStudent:
		user.Subjects = s.users.Subjects()
	}

	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))
	return user, nil
}

// Get fetches a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.FindByID(id)
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	return s.users.List(filter), nil
}
