package service

import (
	"context"
	"testing"

	"tour-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLifecycle(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewUserService(catalog)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserRequest{Name: "Laura Wilson", Email: " Laura@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "laura@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = svc.CreateUser(ctx, CreateUserRequest{Name: "Other", Email: "laura@example.com"})
	assertKind(t, err, KindConflict)

	updated, err := svc.UpdateMe(ctx, user.ID, UpdateMeRequest{Photo: strPtr("user-1.jpg")})
	require.NoError(t, err)
	assert.Equal(t, "Laura Wilson", updated.Name)
	assert.Equal(t, "user-1.jpg", updated.Photo)

	_, err = svc.UpdateMe(ctx, user.ID, UpdateMeRequest{Name: strPtr(" ")})
	assertKind(t, err, KindValidation)

	require.NoError(t, svc.DeactivateMe(ctx, user.ID))
	_, err = svc.GetUser(ctx, user.ID)
	assertKind(t, err, KindNotFound)
	assertKind(t, svc.DeactivateMe(ctx, user.ID), KindNotFound)
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewUserService(newMemCatalog())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{Name: "A", Email: "not-an-email"})
	assertKind(t, err, KindValidation)
	_, err = svc.CreateUser(ctx, CreateUserRequest{Name: "A", Email: "a@example.com", Role: "root"})
	assertKind(t, err, KindValidation)
	_, err = svc.GetUser(ctx, "123")
	assertKind(t, err, KindValidation)
	_, err = svc.GetUser(ctx, uuid.NewString())
	assertKind(t, err, KindNotFound)
}

func TestAdminUpdateUser(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewUserService(catalog)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserRequest{Name: "Lourdes Browning", Email: "lourdes@example.com"})
	require.NoError(t, err)
	other, err := svc.CreateUser(ctx, CreateUserRequest{Name: "Kate Morrison", Email: "kate@example.com"})
	require.NoError(t, err)

	updated, err := svc.UpdateUser(ctx, user.ID, UpdateUserRequest{
		Email: strPtr(" Lourdes.B@Example.com"),
		Role:  strPtr(models.RoleGuide),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lourdes Browning", updated.Name)
	assert.Equal(t, "lourdes.b@example.com", updated.Email)
	assert.Equal(t, models.RoleGuide, updated.Role)

	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuide, got.Role)

	_, err = svc.UpdateUser(ctx, user.ID, UpdateUserRequest{Email: strPtr(other.Email)})
	assertKind(t, err, KindConflict)
	_, err = svc.UpdateUser(ctx, user.ID, UpdateUserRequest{Role: strPtr("root")})
	assertKind(t, err, KindValidation)
	_, err = svc.UpdateUser(ctx, user.ID, UpdateUserRequest{Email: strPtr("nope")})
	assertKind(t, err, KindValidation)
	_, err = svc.UpdateUser(ctx, uuid.NewString(), UpdateUserRequest{Name: strPtr("Ghost")})
	assertKind(t, err, KindNotFound)
}

func TestAdminDeleteUser(t *testing.T) {
	catalog := newMemCatalog()
	svc := NewUserService(catalog)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserRequest{Name: "Max Smith", Email: "max@example.com"})
	require.NoError(t, err)
	booker, err := svc.CreateUser(ctx, CreateUserRequest{Name: "Sophie Hughes", Email: "sophie@example.com"})
	require.NoError(t, err)
	catalog.booked[booker.ID] = true

	review := &models.Review{ID: uuid.NewString(), TourID: uuid.NewString(), UserID: user.ID, Review: "Great", Rating: 5}
	catalog.reviews[review.ID] = review

	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	_, err = svc.GetUser(ctx, user.ID)
	assertKind(t, err, KindNotFound)
	assert.Empty(t, catalog.reviews)
	assertKind(t, svc.DeleteUser(ctx, user.ID), KindNotFound)

	err = svc.DeleteUser(ctx, booker.ID)
	assertKind(t, err, KindConflict)
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "user_has_bookings", svcErr.Code)
	_, err = svc.GetUser(ctx, booker.ID)
	require.NoError(t, err)

	assertKind(t, svc.DeleteUser(ctx, "42"), KindValidation)
}

func TestGetBookingHidesOtherUsers(t *testing.T) {
	ledger := newMemLedger()
	svc := NewBookingService(ledger)
	ctx := context.Background()

	owner := Actor{ID: uuid.NewString(), Role: models.RoleUser}
	booking := models.Booking{ID: uuid.NewString(), UserID: owner.ID, TourID: uuid.NewString()}
	ledger.put(booking)

	got, err := svc.GetBooking(ctx, owner, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = svc.GetBooking(ctx, Actor{ID: uuid.NewString(), Role: models.RoleUser}, booking.ID)
	assertKind(t, err, KindNotFound)

	_, err = svc.GetBooking(ctx, Actor{ID: uuid.NewString(), Role: models.RoleAdmin}, booking.ID)
	require.NoError(t, err)

	mine, err := svc.MyBookings(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
