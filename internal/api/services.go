package api

import (
	"context"

	"tour-service/internal/models"
	"tour-service/internal/service"
)

// CheckoutStarter opens checkout sessions
type CheckoutStarter interface {
	BeginCheckout(ctx context.Context, userID, tourID string) (*service.CheckoutSession, error)
}

// EventReconciler applies payment processor webhooks
type EventReconciler interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) (*service.ReconcileResult, error)
}

// BookingReader reads the booking ledger
type BookingReader interface {
	MyBookings(ctx context.Context, userID string) ([]models.Booking, error)
	ListBookings(ctx context.Context, page, limit int) ([]models.Booking, error)
	GetBooking(ctx context.Context, actor service.Actor, id string) (*models.Booking, error)
}

// TourCatalog serves and edits the tour catalog
type TourCatalog interface {
	ListTours(ctx context.Context, q service.TourQuery) ([]models.Tour, error)
	TopCheapTours(ctx context.Context) ([]models.Tour, error)
	GetTour(ctx context.Context, id string) (*models.Tour, error)
	CreateTour(ctx context.Context, in service.TourInput) (*models.Tour, error)
	UpdateTour(ctx context.Context, id string, in service.TourInput) (*models.Tour, error)
	DeleteTour(ctx context.Context, id string) error
	TourStats(ctx context.Context) ([]models.DifficultyStats, error)
	MonthlyPlan(ctx context.Context, year string) ([]models.MonthPlan, error)
	ToursWithin(ctx context.Context, distance, center, unit string) ([]models.Tour, error)
	Distances(ctx context.Context, center, unit string) ([]models.TourDistance, error)
}

// ReviewManager handles tour reviews
type ReviewManager interface {
	ListReviews(ctx context.Context, tourID string) ([]models.Review, error)
	ListAllReviews(ctx context.Context, page, limit int) ([]models.Review, error)
	GetReview(ctx context.Context, id string) (*models.Review, error)
	CreateReview(ctx context.Context, actor service.Actor, tourID string, in service.ReviewInput) (*models.Review, error)
	UpdateReview(ctx context.Context, actor service.Actor, id string, in service.ReviewInput) (*models.Review, error)
	DeleteReview(ctx context.Context, actor service.Actor, id string) error
}

// CartManager handles shopping carts
type CartManager interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	AddTour(ctx context.Context, userID string, req service.AddToCartRequest) (*models.Cart, bool, error)
	AdjustPersons(ctx context.Context, userID, tourID, operation string) (*models.Cart, error)
	RemoveTour(ctx context.Context, userID, tourID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// UserManager handles user accounts
type UserManager interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, page, limit int) ([]models.User, error)
	CreateUser(ctx context.Context, req service.CreateUserRequest) (*models.User, error)
	UpdateMe(ctx context.Context, id string, req service.UpdateMeRequest) (*models.User, error)
	DeactivateMe(ctx context.Context, id string) error
	UpdateUser(ctx context.Context, id string, req service.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Services bundles what the HTTP layer delegates to
type Services struct {
	Checkout   CheckoutStarter
	Reconciler EventReconciler
	Bookings   BookingReader
	Tours      TourCatalog
	Reviews    ReviewManager
	Carts      CartManager
	Users      UserManager
}

// ReadinessCheck is a dependency checked by /ready
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}
