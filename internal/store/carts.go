package store

import (
	"context"
	"fmt"

	"tour-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetCart retrieves a user's cart with its items
func (s *Store) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart,
		"SELECT user_id, created_at, updated_at FROM carts WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("cart %s: %w", userID, translate(err))
	}

	cart.Items = []models.CartItem{}
	err = s.db.SelectContext(ctx, &cart.Items, `
		SELECT c.user_id, c.tour_id, COALESCE(t.name, '') AS tour_name, c.persons, c.tour_date, c.price, c.image_cover
		FROM cart_items c
		LEFT JOIN tours t ON t.id = c.tour_id
		WHERE c.user_id = $1
		ORDER BY c.added_at, c.tour_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}

	cart.Recalculate()
	return &cart, nil
}

// AddCartItem puts a tour into the user's cart, creating the cart on first use.
// It reports false when the tour was already in the cart.
func (s *Store) AddCartItem(ctx context.Context, item *models.CartItem) (bool, error) {
	var added bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO carts (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()`, item.UserID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, tour_id, persons, tour_date, price, image_cover)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, tour_id) DO NOTHING`,
			item.UserID, item.TourID, item.Persons, item.Date, item.Price, item.ImageCover)
		if err != nil {
			return translate(err)
		}
		n, _ := res.RowsAffected()
		added = n == 1
		return nil
	})
	return added, err
}

// AdjustCartPersons changes the head count of a cart line by delta. A line that
// would drop below one person is removed.
func (s *Store) AdjustCartPersons(ctx context.Context, userID, tourID string, delta int) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := touchCart(ctx, tx, userID); err != nil {
			return err
		}

		var persons int
		err := tx.GetContext(ctx, &persons,
			"SELECT persons FROM cart_items WHERE user_id = $1 AND tour_id = $2 FOR UPDATE", userID, tourID)
		if err != nil {
			return fmt.Errorf("cart item %s: %w", tourID, translate(err))
		}

		if persons+delta < 1 {
			_, err = tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1 AND tour_id = $2", userID, tourID)
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE cart_items SET persons = $3 WHERE user_id = $1 AND tour_id = $2", userID, tourID, persons+delta)
		return err
	})
}

// RemoveCartItem drops a tour from the user's cart
func (s *Store) RemoveCartItem(ctx context.Context, userID, tourID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := touchCart(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1 AND tour_id = $2", userID, tourID)
		return err
	})
}

// ClearCart empties the user's cart
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := touchCart(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
		return err
	})
}

func touchCart(ctx context.Context, tx *sqlx.Tx, userID string) error {
	res, err := tx.ExecContext(ctx, "UPDATE carts SET updated_at = NOW() WHERE user_id = $1", userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cart %s: %w", userID, ErrNotFound)
	}
	return nil
}
