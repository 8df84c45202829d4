package service

import (
	"context"
	"errors"
	"time"

	"tour-service/internal/models"
	"tour-service/internal/store"
	"tour-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cart adjustments accepted by AdjustPersons
const (
	CartIncrement = "inc"
	CartDecrement = "dec"
)

// AddToCartRequest puts a tour into the caller's cart
type AddToCartRequest struct {
	TourID  string     `json:"tour_id" binding:"required"`
	Persons int        `json:"persons"`
	Date    *time.Time `json:"date"`
}

// CartService handles shopping carts
type CartService struct {
	carts  CartStore
	tours  TourStore
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(carts CartStore, tours TourStore) *CartService {
	return &CartService{
		carts:  carts,
		tours:  tours,
		logger: util.GetLogger(),
	}
}

// GetCart returns the user's cart with totals
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("cart_not_found", "you do not have a cart yet")
	}
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return cart, nil
}

// AddTour adds a tour to the cart. It reports false when the tour was already there.
func (s *CartService) AddTour(ctx context.Context, userID string, req AddToCartRequest) (*models.Cart, bool, error) {
	if _, err := uuid.Parse(req.TourID); err != nil {
		return nil, false, validationError("invalid_tour_id", "tour id is malformed")
	}
	if req.Persons == 0 {
		req.Persons = 1
	}
	if req.Persons < 1 {
		return nil, false, validationError("invalid_persons", "a cart line needs at least one person")
	}

	tour, err := s.tours.GetTourByID(ctx, req.TourID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, notFoundError("tour_not_found", "no tour found with that id")
	}
	if err != nil {
		return nil, false, unavailableError("storage_unavailable", err)
	}

	added, err := s.carts.AddCartItem(ctx, &models.CartItem{
		UserID:     userID,
		TourID:     tour.ID,
		Persons:    req.Persons,
		Date:       req.Date,
		Price:      tour.Price,
		ImageCover: tour.ImageCover,
	})
	if errors.Is(err, store.ErrReferenced) {
		return nil, false, notFoundError("user_not_found", "the user belonging to this token no longer exists")
	}
	if err != nil {
		return nil, false, unavailableError("storage_unavailable", err)
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return cart, added, nil
}

// AdjustPersons increments or decrements a cart line's head count
func (s *CartService) AdjustPersons(ctx context.Context, userID, tourID, operation string) (*models.Cart, error) {
	if _, err := uuid.Parse(tourID); err != nil {
		return nil, validationError("invalid_tour_id", "tour id is malformed")
	}

	var delta int
	switch operation {
	case CartIncrement:
		delta = 1
	case CartDecrement:
		delta = -1
	default:
		return nil, validationError("invalid_operation", "operation must be inc or dec")
	}

	if err := s.carts.AdjustCartPersons(ctx, userID, tourID, delta); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("cart_item_not_found", "this tour is not in your cart")
		}
		return nil, unavailableError("storage_unavailable", err)
	}
	return s.GetCart(ctx, userID)
}

// RemoveTour drops a tour from the cart
func (s *CartService) RemoveTour(ctx context.Context, userID, tourID string) (*models.Cart, error) {
	if _, err := uuid.Parse(tourID); err != nil {
		return nil, validationError("invalid_tour_id", "tour id is malformed")
	}
	if err := s.carts.RemoveCartItem(ctx, userID, tourID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("cart_not_found", "you do not have a cart yet")
		}
		return nil, unavailableError("storage_unavailable", err)
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("cart_not_found", "you do not have a cart yet")
		}
		return unavailableError("storage_unavailable", err)
	}
	return nil
}

// RemovePurchased drops a paid tour from the buyer's cart; a missing cart is fine
func (s *CartService) RemovePurchased(ctx context.Context, userID, tourID string) error {
	err := s.carts.RemoveCartItem(ctx, userID, tourID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	s.logger.Debug("Removed purchased tour from cart",
		zap.String("user_id", userID),
		zap.String("tour_id", tourID))
	return nil
}
