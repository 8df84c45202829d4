package store

import (
	"context"
	"fmt"

	"tour-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const userColumns = "id, name, email, role, photo, active, created_at"

// CreateUser inserts a user account
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, role, photo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING active, created_at`

	err := s.db.QueryRowxContext(ctx, query, user.ID, user.Name, user.Email, user.Role, user.Photo).
		Scan(&user.Active, &user.CreatedAt)
	return translate(err)
}

// GetUserByID retrieves an active user by ID
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT "+userColumns+" FROM users WHERE id = $1 AND active = TRUE", id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, translate(err))
	}
	return &user, nil
}

// ListUsers retrieves a page of active users
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users WHERE active = TRUE ORDER BY created_at, id LIMIT $1 OFFSET $2",
		limit, offset)
	return users, err
}

// UpdateUserProfile updates the self-service profile fields
func (s *Store) UpdateUserProfile(ctx context.Context, id, name, photo string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `
		UPDATE users SET name = $2, photo = $3
		WHERE id = $1 AND active = TRUE
		RETURNING `+userColumns, id, name, photo)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// DeactivateUser hides a user from every read
func (s *Store) DeactivateUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET active = FALSE WHERE id = $1 AND active = TRUE", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUser rewrites the administrable fields of an active user
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	err := s.db.GetContext(ctx, user, `
		UPDATE users SET name = $2, email = $3, role = $4, photo = $5
		WHERE id = $1 AND active = TRUE
		RETURNING `+userColumns, user.ID, user.Name, user.Email, user.Role, user.Photo)
	return translate(err)
}

// DeleteUser removes a user with their reviews and cart. A user who still
// holds bookings cannot be removed and ErrReferenced is returned.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var tourIDs []string
		if err := tx.SelectContext(ctx, &tourIDs,
			"DELETE FROM reviews WHERE user_id = $1 RETURNING tour_id", id); err != nil {
			return err
		}
		for _, tourID := range tourIDs {
			if err := updateTourRatings(ctx, tx, tourID); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM carts WHERE user_id = $1", id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
		if err != nil {
			return translate(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
