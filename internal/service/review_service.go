package service

import (
	"context"
	"errors"
	"strings"

	"tour-service/internal/models"
	"tour-service/internal/store"
	"tour-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor is the authenticated caller of a request
type Actor struct {
	ID   string
	Role string
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// ReviewInput carries review fields; nil fields are left unchanged on update
type ReviewInput struct {
	Review *string `json:"review"`
	Rating *int    `json:"rating"`
}

// ReviewService handles tour reviews
type ReviewService struct {
	reviews ReviewStore
	tours   TourStore
	logger  *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(reviews ReviewStore, tours TourStore) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		tours:   tours,
		logger:  util.GetLogger(),
	}
}

// ListReviews returns the reviews of a visible tour
func (s *ReviewService) ListReviews(ctx context.Context, tourID string) ([]models.Review, error) {
	if err := s.requireTour(ctx, tourID); err != nil {
		return nil, err
	}

	reviews, err := s.reviews.GetReviewsByTourID(ctx, tourID)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return reviews, nil
}

// ListAllReviews returns a page of reviews across every tour
func (s *ReviewService) ListAllReviews(ctx context.Context, page, limit int) ([]models.Review, error) {
	limit, offset := pageBounds(page, limit)
	reviews, err := s.reviews.ListReviews(ctx, limit, offset)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return reviews, nil
}

// GetReview returns a single review
func (s *ReviewService) GetReview(ctx context.Context, id string) (*models.Review, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, validationError("invalid_review_id", "review id is malformed")
	}

	review, err := s.reviews.GetReviewByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("review_not_found", "no review found with that id")
	}
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return review, nil
}

// CreateReview records the actor's review of a tour
func (s *ReviewService) CreateReview(ctx context.Context, actor Actor, tourID string, in ReviewInput) (*models.Review, error) {
	if err := s.requireTour(ctx, tourID); err != nil {
		return nil, err
	}
	if in.Review == nil || in.Rating == nil {
		return nil, validationError("invalid_review", "a review needs text and a rating")
	}

	review := &models.Review{
		ID:     uuid.NewString(),
		TourID: tourID,
		UserID: actor.ID,
	}
	applyReviewInput(review, in)
	if err := validateReview(review); err != nil {
		return nil, err
	}

	if err := s.reviews.CreateReview(ctx, review); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, conflictError("review_exists", "you have already reviewed this tour")
		case errors.Is(err, store.ErrReferenced):
			return nil, notFoundError("user_not_found", "the user belonging to this token no longer exists")
		}
		return nil, unavailableError("storage_unavailable", err)
	}

	s.logger.Info("Review created",
		zap.String("review_id", review.ID),
		zap.String("tour_id", tourID),
		zap.Int("rating", review.Rating))
	return review, nil
}

// UpdateReview changes a review owned by the actor
func (s *ReviewService) UpdateReview(ctx context.Context, actor Actor, id string, in ReviewInput) (*models.Review, error) {
	review, err := s.ownedReview(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	applyReviewInput(review, in)
	if err := validateReview(review); err != nil {
		return nil, err
	}

	if err := s.reviews.UpdateReview(ctx, review); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("review_not_found", "no review found with that id")
		}
		return nil, unavailableError("storage_unavailable", err)
	}
	return review, nil
}

// DeleteReview removes a review owned by the actor, or any review for admins
func (s *ReviewService) DeleteReview(ctx context.Context, actor Actor, id string) error {
	if _, err := s.ownedReview(ctx, actor, id); err != nil {
		return err
	}

	if err := s.reviews.DeleteReview(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("review_not_found", "no review found with that id")
		}
		return unavailableError("storage_unavailable", err)
	}
	return nil
}

func (s *ReviewService) ownedReview(ctx context.Context, actor Actor, id string) (*models.Review, error) {
	review, err := s.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}

	if review.UserID != actor.ID && !actor.IsAdmin() {
		return nil, forbiddenError("you can only change your own reviews")
	}
	return review, nil
}

func (s *ReviewService) requireTour(ctx context.Context, tourID string) error {
	if _, err := uuid.Parse(tourID); err != nil {
		return validationError("invalid_tour_id", "tour id is malformed")
	}

	_, err := s.tours.GetTourByID(ctx, tourID)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundError("tour_not_found", "no tour found with that id")
	}
	if err != nil {
		return unavailableError("storage_unavailable", err)
	}
	return nil
}

func applyReviewInput(r *models.Review, in ReviewInput) {
	if in.Review != nil {
		r.Review = strings.TrimSpace(*in.Review)
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
}

func validateReview(r *models.Review) error {
	if r.Review == "" {
		return validationError("invalid_review", "review can not be empty")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return validationError("invalid_rating", "rating must be between 1 and 5")
	}
	return nil
}
