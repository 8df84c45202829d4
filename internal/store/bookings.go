package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tour-service/internal/models"
)

const bookingSelect = `
	SELECT b.id, b.user_id, b.tour_id, COALESCE(t.name, '') AS tour_name, b.price, b.paid, b.paid_at, b.created_at
	FROM bookings b
	LEFT JOIN tours t ON t.id = b.tour_id`

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, bookingSelect+" WHERE b.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", id, translate(err))
	}
	return &booking, nil
}

// GetBookingForPair retrieves the ledger entry for a (user, tour) pair
func (s *Store) GetBookingForPair(ctx context.Context, userID, tourID string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking,
		bookingSelect+" WHERE b.user_id = $1 AND b.tour_id = $2", userID, tourID)
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

// HasPaidBooking reports whether the user already paid for the tour
func (s *Store) HasPaidBooking(ctx context.Context, userID, tourID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM bookings WHERE user_id = $1 AND tour_id = $2 AND paid = TRUE)",
		userID, tourID)
	return exists, err
}

// CreateBookingIfAbsent inserts an unpaid booking unless the (user, tour) pair
// already has one, in which case the existing entry is returned untouched. The
// caller must check Paid on a returned entry: a pair is booked at most once.
func (s *Store) CreateBookingIfAbsent(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error) {
	query := `
		INSERT INTO bookings (id, user_id, tour_id, price, paid)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (user_id, tour_id) DO NOTHING
		RETURNING created_at`

	err := s.db.GetContext(ctx, &booking.CreatedAt, query,
		booking.ID, booking.UserID, booking.TourID, booking.Price)
	if err == nil {
		booking.Paid = false
		return booking, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create booking: %w", translate(err))
	}

	existing, err := s.GetBookingForPair(ctx, booking.UserID, booking.TourID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// MarkBookingPaid flips paid from false to true. It reports false when the
// booking was already paid (or does not exist) and nothing was written.
func (s *Store) MarkBookingPaid(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET paid = TRUE, paid_at = NOW() WHERE id = $1 AND paid = FALSE", id)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetBookingsByUserID retrieves bookings for a user
func (s *Store) GetBookingsByUserID(ctx context.Context, userID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.SelectContext(ctx, &bookings,
		bookingSelect+" WHERE b.user_id = $1 ORDER BY b.created_at DESC", userID)
	return bookings, err
}

// ListBookings retrieves a page of all bookings
func (s *Store) ListBookings(ctx context.Context, limit, offset int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.SelectContext(ctx, &bookings,
		bookingSelect+" ORDER BY b.created_at DESC, b.id LIMIT $1 OFFSET $2", limit, offset)
	return bookings, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
