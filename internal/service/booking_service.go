package service

import (
	"context"
	"errors"

	"tour-service/internal/models"
	"tour-service/internal/store"

	"github.com/google/uuid"
)

// BookingService reads the booking ledger
type BookingService struct {
	ledger BookingLedger
}

// NewBookingService creates a new booking service
func NewBookingService(ledger BookingLedger) *BookingService {
	return &BookingService{ledger: ledger}
}

// MyBookings returns the caller's bookings, newest first
func (s *BookingService) MyBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	bookings, err := s.ledger.GetBookingsByUserID(ctx, userID)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return bookings, nil
}

// ListBookings returns a page of every booking
func (s *BookingService) ListBookings(ctx context.Context, page, limit int) ([]models.Booking, error) {
	limit, offset := pageBounds(page, limit)
	bookings, err := s.ledger.ListBookings(ctx, limit, offset)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return bookings, nil
}

// GetBooking returns a booking visible to the actor
func (s *BookingService) GetBooking(ctx context.Context, actor Actor, id string) (*models.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, validationError("invalid_booking_id", "booking id is malformed")
	}

	booking, err := s.ledger.GetBookingByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("booking_not_found", "no booking found with that id")
	}
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}

	// other users' bookings are reported missing rather than forbidden
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, notFoundError("booking_not_found", "no booking found with that id")
	}
	return booking, nil
}
