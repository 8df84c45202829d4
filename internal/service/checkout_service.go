package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tour-service/internal/models"
	"tour-service/internal/payment"
	"tour-service/internal/redisclient"
	"tour-service/internal/store"
	"tour-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CheckoutConfig carries the processor-facing settings of a checkout
type CheckoutConfig struct {
	Currency       string
	SuccessURL     string
	CancelURL      string
	PaymentTimeout time.Duration
	SessionTTL     time.Duration
	LockTTL        time.Duration
	LockWait       time.Duration
}

const lockPollInterval = 50 * time.Millisecond

// CheckoutSession is the processor session handed back to the buyer
type CheckoutSession struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	BookingID string `json:"booking_id"`
}

// CheckoutService opens a booking and a processor checkout session for it
type CheckoutService struct {
	tours   TourStore
	users   UserStore
	ledger  BookingLedger
	coord   CheckoutCoordinator
	events  BookingEvents
	gateway payment.Gateway
	cfg     CheckoutConfig
	logger  *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	tours TourStore,
	users UserStore,
	ledger BookingLedger,
	coord CheckoutCoordinator,
	events BookingEvents,
	gateway payment.Gateway,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		tours:   tours,
		users:   users,
		ledger:  ledger,
		coord:   coord,
		events:  events,
		gateway: gateway,
		cfg:     cfg,
		logger:  util.GetLogger(),
	}
}

// BeginCheckout reuses or creates the unpaid booking for (userID, tourID) and
// returns a processor checkout session correlated to it
func (s *CheckoutService) BeginCheckout(ctx context.Context, userID, tourID string) (*CheckoutSession, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.BeginCheckout",
		attribute.String("user_id", userID),
		attribute.String("tour_id", tourID))
	defer span.End()

	session, err := s.beginCheckout(ctx, userID, tourID)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues(string(KindOf(err))).Inc()
		util.FailSpan(span, err)
		return nil, err
	}
	return session, nil
}

func (s *CheckoutService) beginCheckout(ctx context.Context, userID, tourID string) (*CheckoutSession, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, validationError("invalid_user_id", "user id is malformed")
	}
	if _, err := uuid.Parse(tourID); err != nil {
		return nil, validationError("invalid_tour_id", "tour id is malformed")
	}

	tour, err := s.tours.GetTourByID(ctx, tourID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("tour_not_found", "no tour found with that id")
	}
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("user_not_found", "the user belonging to this token no longer exists")
	}
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}

	paid, err := s.ledger.HasPaidBooking(ctx, userID, tourID)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	if paid {
		return nil, conflictError("already_booked", "you have already booked this tour")
	}

	lockKey := fmt.Sprintf("checkout:%s:%s", userID, tourID)
	token, err := s.acquireLock(ctx, lockKey)
	if err != nil {
		s.logger.Warn("Checkout lock unavailable, continuing without it",
			zap.String("user_id", userID),
			zap.String("tour_id", tourID),
			zap.Error(err))
	} else if token == "" {
		return nil, &Error{
			Kind:    KindUnavailable,
			Code:    "checkout_in_progress",
			Message: "a checkout for this tour is already in progress, please retry",
		}
	} else {
		defer func() {
			if err := s.coord.ReleaseLock(context.Background(), lockKey, token); err != nil {
				s.logger.Warn("Failed to release checkout lock", zap.String("key", lockKey), zap.Error(err))
			}
		}()
	}

	booking, created, err := s.ledger.CreateBookingIfAbsent(ctx, &models.Booking{
		ID:     uuid.NewString(),
		UserID: userID,
		TourID: tourID,
		Price:  tour.Price,
	})
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	if booking.Paid {
		// paid after the check above; the ledger row for the pair is authoritative
		return nil, conflictError("already_booked", "you have already booked this tour")
	}

	if created {
		util.BookingsCreatedTotal.Inc()
		s.logger.Info("Booking created",
			zap.String("booking_id", booking.ID),
			zap.String("user_id", userID),
			zap.String("tour_id", tourID),
			zap.String("price", booking.Price.StringFixed(2)))
		s.publishCreated(ctx, booking)
	} else {
		util.BookingsReusedTotal.Inc()
		cached, err := s.coord.GetCheckoutSession(ctx, booking.ID)
		if err != nil {
			s.logger.Warn("Checkout session cache read failed", zap.String("booking_id", booking.ID), zap.Error(err))
		}
		if cached != nil {
			return &CheckoutSession{ID: cached.ID, URL: cached.URL, BookingID: booking.ID}, nil
		}
	}

	return s.openSession(ctx, booking, tour, user)
}

// acquireLock polls for the checkout lock for up to LockWait. An empty token
// means another checkout still holds it.
func (s *CheckoutService) acquireLock(ctx context.Context, key string) (string, error) {
	deadline := time.Now().Add(s.cfg.LockWait)
	for {
		token, err := s.coord.AcquireLock(ctx, key, s.cfg.LockTTL)
		if err != nil || token != "" || !time.Now().Before(deadline) {
			return token, err
		}
		select {
		case <-ctx.Done():
			return "", nil
		case <-time.After(lockPollInterval):
		}
	}
}

func (s *CheckoutService) openSession(ctx context.Context, booking *models.Booking, tour *models.Tour, user *models.User) (*CheckoutSession, error) {
	cents := booking.Price.Shift(2)
	if !cents.IsInteger() || cents.Sign() <= 0 {
		return nil, internalError("invalid_price",
			fmt.Errorf("booking %s price %s is not a positive amount in minor units", booking.ID, booking.Price))
	}

	item := payment.LineItem{
		Name:        fmt.Sprintf("%s Tour", tour.Name),
		Description: tour.Summary,
		UnitAmount:  cents.IntPart(),
		Quantity:    1,
	}
	if tour.ImageCover != "" {
		item.Images = []string{tour.ImageCover}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	start := time.Now()
	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		CorrelationID:  booking.ID,
		CustomerEmail:  user.Email,
		Currency:       s.cfg.Currency,
		Items:          []payment.LineItem{item},
		SuccessURL:     s.cfg.SuccessURL,
		CancelURL:      strings.ReplaceAll(s.cfg.CancelURL, "{tour_id}", tour.ID),
		IdempotencyKey: "checkout-" + booking.ID,
	})
	util.PaymentSessionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("Failed to open checkout session",
			zap.String("booking_id", booking.ID),
			zap.Error(err))
		if errors.Is(err, payment.ErrRejected) {
			return nil, internalError("payment_rejected", err)
		}
		return nil, unavailableError("payment_unavailable", err)
	}

	if session.AmountTotal != 0 && session.AmountTotal != item.UnitAmount {
		s.logger.Error("Checkout session amount differs from booking price",
			zap.String("booking_id", booking.ID),
			zap.Int64("expected", item.UnitAmount),
			zap.Int64("actual", session.AmountTotal))
	}

	err = s.coord.CacheCheckoutSession(ctx, booking.ID,
		redisclient.CheckoutSession{ID: session.ID, URL: session.URL}, s.cfg.SessionTTL)
	if err != nil {
		s.logger.Warn("Failed to cache checkout session", zap.String("booking_id", booking.ID), zap.Error(err))
	}

	s.logger.Info("Checkout session opened",
		zap.String("booking_id", booking.ID),
		zap.String("session_id", session.ID))

	return &CheckoutSession{ID: session.ID, URL: session.URL, BookingID: booking.ID}, nil
}

func (s *CheckoutService) publishCreated(ctx context.Context, booking *models.Booking) {
	event := &models.BookingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingCreated,
			Timestamp: time.Now(),
		},
		BookingID: booking.ID,
		UserID:    booking.UserID,
		TourID:    booking.TourID,
		Price:     booking.Price,
	}

	if err := s.events.PublishBookingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
	}
}
