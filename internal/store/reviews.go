package store

import (
	"context"
	"fmt"

	"tour-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const reviewSelect = `
	SELECT r.id, r.tour_id, r.user_id, COALESCE(u.name, '') AS user_name, r.review, r.rating, r.created_at
	FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id`

// GetReviewsByTourID retrieves the reviews of a tour, newest first
func (s *Store) GetReviewsByTourID(ctx context.Context, tourID string) ([]models.Review, error) {
	reviews := []models.Review{}
	err := s.db.SelectContext(ctx, &reviews,
		reviewSelect+" WHERE r.tour_id = $1 ORDER BY r.created_at DESC", tourID)
	return reviews, err
}

// ListReviews retrieves a page of reviews across all tours, newest first
func (s *Store) ListReviews(ctx context.Context, limit, offset int) ([]models.Review, error) {
	reviews := []models.Review{}
	err := s.db.SelectContext(ctx, &reviews,
		reviewSelect+" ORDER BY r.created_at DESC, r.id LIMIT $1 OFFSET $2", limit, offset)
	return reviews, err
}

// GetReviewByID retrieves a review by ID
func (s *Store) GetReviewByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	err := s.db.GetContext(ctx, &review, reviewSelect+" WHERE r.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("review %s: %w", id, translate(err))
	}
	return &review, nil
}

// CreateReview inserts a review and refreshes the tour's rating aggregates
func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &review.CreatedAt, `
			INSERT INTO reviews (id, tour_id, user_id, review, rating)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			review.ID, review.TourID, review.UserID, review.Review, review.Rating)
		if err != nil {
			return translate(err)
		}
		return updateTourRatings(ctx, tx, review.TourID)
	})
}

// UpdateReview rewrites a review's text and rating and refreshes the tour's aggregates
func (s *Store) UpdateReview(ctx context.Context, review *models.Review) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE reviews SET review = $2, rating = $3 WHERE id = $1", review.ID, review.Review, review.Rating)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return updateTourRatings(ctx, tx, review.TourID)
	})
}

// DeleteReview removes a review and refreshes the tour's aggregates
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var tourID string
		err := tx.GetContext(ctx, &tourID, "DELETE FROM reviews WHERE id = $1 RETURNING tour_id", id)
		if err != nil {
			return translate(err)
		}
		return updateTourRatings(ctx, tx, tourID)
	})
}
