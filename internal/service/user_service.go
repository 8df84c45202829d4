package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"tour-service/internal/models"
	"tour-service/internal/store"
	"tour-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateUserRequest provisions an account
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
	Photo string `json:"photo"`
}

// UpdateMeRequest changes the caller's own profile
type UpdateMeRequest struct {
	Name  *string `json:"name"`
	Photo *string `json:"photo"`
}

// UpdateUserRequest is an administrator's change to any account; nil fields are left unchanged
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
	Photo *string `json:"photo"`
}

// UserService handles user accounts
type UserService struct {
	users  UserStore
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(users UserStore) *UserService {
	return &UserService{
		users:  users,
		logger: util.GetLogger(),
	}
}

// GetUser returns an active user
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, validationError("invalid_user_id", "user id is malformed")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("user_not_found", "no user found with that id")
	}
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return user, nil
}

// ListUsers returns a page of active users
func (s *UserService) ListUsers(ctx context.Context, page, limit int) ([]models.User, error) {
	limit, offset := pageBounds(page, limit)
	users, err := s.users.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return users, nil
}

// CreateUser provisions a user account
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	user := &models.User{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Role:  req.Role,
		Photo: req.Photo,
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	if user.Name == "" {
		return nil, validationError("invalid_name", "please tell us your name")
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return nil, validationError("invalid_email", "please provide a valid email")
	}
	if !validRole(user.Role) {
		return nil, validationError("invalid_role", "role is either: user, guide, lead-guide, admin")
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflictError("email_taken", "an account with this email already exists")
		}
		return nil, unavailableError("storage_unavailable", err)
	}

	s.logger.Info("User created", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// UpdateMe changes the caller's name and photo
func (s *UserService) UpdateMe(ctx context.Context, id string, req UpdateMeRequest) (*models.User, error) {
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	name, photo := current.Name, current.Photo
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if req.Photo != nil {
		photo = *req.Photo
	}
	if name == "" {
		return nil, validationError("invalid_name", "please tell us your name")
	}

	user, err := s.users.UpdateUserProfile(ctx, id, name, photo)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("user_not_found", "no user found with that id")
	}
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return user, nil
}

// DeactivateMe hides the caller's account
func (s *UserService) DeactivateMe(ctx context.Context, id string) error {
	err := s.users.DeactivateUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundError("user_not_found", "no user found with that id")
	}
	if err != nil {
		return unavailableError("storage_unavailable", err)
	}
	s.logger.Info("User deactivated", zap.String("user_id", id))
	return nil
}

// UpdateUser lets an administrator change a user's name, email, role or photo
func (s *UserService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Photo != nil {
		user.Photo = *req.Photo
	}

	if user.Name == "" {
		return nil, validationError("invalid_name", "please tell us your name")
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return nil, validationError("invalid_email", "please provide a valid email")
	}
	if !validRole(user.Role) {
		return nil, validationError("invalid_role", "role is either: user, guide, lead-guide, admin")
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, conflictError("email_taken", "an account with this email already exists")
		case errors.Is(err, store.ErrNotFound):
			return nil, notFoundError("user_not_found", "no user found with that id")
		}
		return nil, unavailableError("storage_unavailable", err)
	}

	s.logger.Info("User updated", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// DeleteUser permanently removes a user. Users with bookings are kept;
// deactivation is the way to hide them.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return validationError("invalid_user_id", "user id is malformed")
	}

	err := s.users.DeleteUser(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFoundError("user_not_found", "no user found with that id")
	case errors.Is(err, store.ErrReferenced):
		return conflictError("user_has_bookings", "a user with bookings can not be deleted")
	case err != nil:
		return unavailableError("storage_unavailable", err)
	}

	s.logger.Info("User deleted", zap.String("user_id", id))
	return nil
}

func validRole(role string) bool {
	switch role {
	case models.RoleUser, models.RoleGuide, models.RoleLeadGuide, models.RoleAdmin:
		return true
	}
	return false
}
