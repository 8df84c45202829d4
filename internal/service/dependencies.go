package service

import (
	"context"
	"time"

	"tour-service/internal/models"
	"tour-service/internal/redisclient"
	"tour-service/internal/store"
)

// TourStore is the catalog as seen by the services
type TourStore interface {
	GetTourByID(ctx context.Context, id string) (*models.Tour, error)
	ListTours(ctx context.Context, f store.TourFilter) ([]models.Tour, error)
	CreateTour(ctx context.Context, tour *models.Tour) error
	UpdateTour(ctx context.Context, tour *models.Tour) error
	DeleteTour(ctx context.Context, id string) error
	GetTourStats(ctx context.Context, minRating float64) ([]models.DifficultyStats, error)
	GetMonthlyPlan(ctx context.Context, year int) ([]models.MonthPlan, error)
	GetToursWithin(ctx context.Context, lat, lng, radians float64) ([]models.Tour, error)
	GetTourDistances(ctx context.Context, lat, lng, radius float64) ([]models.TourDistance, error)
}

// UserStore is the account store
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	UpdateUserProfile(ctx context.Context, id, name, photo string) (*models.User, error)
	DeactivateUser(ctx context.Context, id string) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// BookingLedger is the durable store of booking records
type BookingLedger interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	HasPaidBooking(ctx context.Context, userID, tourID string) (bool, error)
	CreateBookingIfAbsent(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error)
	MarkBookingPaid(ctx context.Context, id string) (bool, error)
	GetBookingsByUserID(ctx context.Context, userID string) ([]models.Booking, error)
	ListBookings(ctx context.Context, limit, offset int) ([]models.Booking, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ReviewStore persists reviews and keeps tour ratings in step
type ReviewStore interface {
	GetReviewsByTourID(ctx context.Context, tourID string) ([]models.Review, error)
	GetReviewByID(ctx context.Context, id string) (*models.Review, error)
	ListReviews(ctx context.Context, limit, offset int) ([]models.Review, error)
	CreateReview(ctx context.Context, review *models.Review) error
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, id string) error
}

// CartStore persists carts
type CartStore interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	AddCartItem(ctx context.Context, item *models.CartItem) (bool, error)
	AdjustCartPersons(ctx context.Context, userID, tourID string, delta int) error
	RemoveCartItem(ctx context.Context, userID, tourID string) error
	ClearCart(ctx context.Context, userID string) error
}

// CheckoutCoordinator serializes checkouts and remembers opened sessions
type CheckoutCoordinator interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
	CacheCheckoutSession(ctx context.Context, bookingID string, session redisclient.CheckoutSession, ttl time.Duration) error
	GetCheckoutSession(ctx context.Context, bookingID string) (*redisclient.CheckoutSession, error)
}

// BookingEvents publishes booking lifecycle events
type BookingEvents interface {
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
	PublishBookingPaid(ctx context.Context, event *models.BookingPaidEvent) error
	PublishPaymentAnomaly(ctx context.Context, event *models.PaymentAnomalyEvent) error
}
