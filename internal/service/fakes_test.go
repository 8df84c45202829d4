package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tour-service/internal/models"
	"tour-service/internal/payment"
	"tour-service/internal/redisclient"
	"tour-service/internal/store"
)

var errStorageDown = errors.New("connection refused")

// memLedger is an in-memory booking ledger with the same atomicity as the SQL one
type memLedger struct {
	mu        sync.Mutex
	bookings  map[string]*models.Booking
	processed map[string]string
	paidPairs map[string]bool

	createCalls int
	paidWrites  int
	failReads   bool
	failWrites  bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		bookings:  map[string]*models.Booking{},
		processed: map[string]string{},
		paidPairs: map[string]bool{},
	}
}

func (l *memLedger) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failReads {
		return nil, errStorageDown
	}
	b, ok := l.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, store.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (l *memLedger) HasPaidBooking(ctx context.Context, userID, tourID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failReads {
		return false, errStorageDown
	}
	for _, b := range l.bookings {
		if b.UserID == userID && b.TourID == tourID && b.Paid {
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) CreateBookingIfAbsent(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.createCalls++
	if l.failWrites {
		return nil, false, errStorageDown
	}
	for _, b := range l.bookings {
		if b.UserID == booking.UserID && b.TourID == booking.TourID {
			cp := *b
			return &cp, false, nil
		}
	}
	cp := *booking
	cp.CreatedAt = time.Now()
	l.bookings[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (l *memLedger) MarkBookingPaid(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWrites {
		return false, errStorageDown
	}
	b, ok := l.bookings[id]
	if !ok || b.Paid {
		return false, nil
	}
	now := time.Now()
	b.Paid = true
	b.PaidAt = &now
	l.paidWrites++
	return true, nil
}

func (l *memLedger) GetBookingsByUserID(ctx context.Context, userID string) ([]models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.Booking{}
	for _, b := range l.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (l *memLedger) ListBookings(ctx context.Context, limit, offset int) ([]models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.Booking{}
	for _, b := range l.bookings {
		out = append(out, *b)
	}
	return out, nil
}

func (l *memLedger) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failReads {
		return false, errStorageDown
	}
	_, ok := l.processed[eventID]
	return ok, nil
}

func (l *memLedger) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.processed[eventID] = eventType
	return nil
}

func (l *memLedger) put(b models.Booking) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bookings[b.ID] = &b
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bookings)
}

func (l *memLedger) snapshot() map[string]models.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]models.Booking, len(l.bookings))
	for id, b := range l.bookings {
		out[id] = *b
	}
	return out
}

// memCatalog serves tours, users and reviews from maps
type memCatalog struct {
	mu      sync.Mutex
	tours   map[string]*models.Tour
	users   map[string]*models.User
	reviews map[string]*models.Review
	// users holding bookings, which the ledger will not let go
	booked map[string]bool

	lastFilter store.TourFilter
	lastRadius float64
	fail       bool
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		tours:   map[string]*models.Tour{},
		users:   map[string]*models.User{},
		reviews: map[string]*models.Review{},
		booked:  map[string]bool{},
	}
}

func (c *memCatalog) GetTourByID(ctx context.Context, id string) (*models.Tour, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errStorageDown
	}
	t, ok := c.tours[id]
	if !ok || t.Secret {
		return nil, fmt.Errorf("tour %s: %w", id, store.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (c *memCatalog) ListTours(ctx context.Context, f store.TourFilter) ([]models.Tour, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastFilter = f
	out := []models.Tour{}
	for _, t := range c.tours {
		if !t.Secret {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (c *memCatalog) CreateTour(ctx context.Context, tour *models.Tour) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tours {
		if t.Name == tour.Name {
			return fmt.Errorf("%w: tours_name_key", store.ErrDuplicate)
		}
	}
	tour.RatingsAverage = models.DefaultRatingsAverage
	cp := *tour
	c.tours[tour.ID] = &cp
	return nil
}

func (c *memCatalog) UpdateTour(ctx context.Context, tour *models.Tour) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tours[tour.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *tour
	c.tours[tour.ID] = &cp
	return nil
}

func (c *memCatalog) DeleteTour(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tours[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.tours, id)
	return nil
}

func (c *memCatalog) GetTourStats(ctx context.Context, minRating float64) ([]models.DifficultyStats, error) {
	return []models.DifficultyStats{}, nil
}

func (c *memCatalog) GetMonthlyPlan(ctx context.Context, year int) ([]models.MonthPlan, error) {
	return []models.MonthPlan{}, nil
}

func (c *memCatalog) GetToursWithin(ctx context.Context, lat, lng, radians float64) ([]models.Tour, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRadius = radians
	return []models.Tour{}, nil
}

func (c *memCatalog) GetTourDistances(ctx context.Context, lat, lng, radius float64) ([]models.TourDistance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRadius = radius
	return []models.TourDistance{}, nil
}

func (c *memCatalog) CreateUser(ctx context.Context, user *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: users_email_key", store.ErrDuplicate)
		}
	}
	user.Active = true
	cp := *user
	c.users[user.ID] = &cp
	return nil
}

func (c *memCatalog) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[id]
	if !ok || !u.Active {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (c *memCatalog) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return []models.User{}, nil
}

func (c *memCatalog) UpdateUserProfile(ctx context.Context, id, name, photo string) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[id]
	if !ok || !u.Active {
		return nil, store.ErrNotFound
	}
	u.Name, u.Photo = name, photo
	cp := *u
	return &cp, nil
}

func (c *memCatalog) DeactivateUser(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[id]
	if !ok || !u.Active {
		return store.ErrNotFound
	}
	u.Active = false
	return nil
}

func (c *memCatalog) UpdateUser(ctx context.Context, user *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[user.ID]
	if !ok || !u.Active {
		return store.ErrNotFound
	}
	for id, other := range c.users {
		if id != user.ID && other.Email == user.Email {
			return fmt.Errorf("%w: users_email_key", store.ErrDuplicate)
		}
	}
	cp := *user
	cp.Active = true
	c.users[user.ID] = &cp
	return nil
}

func (c *memCatalog) DeleteUser(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.users[id]; !ok {
		return store.ErrNotFound
	}
	if c.booked[id] {
		return fmt.Errorf("%w: bookings_user_id_fkey", store.ErrReferenced)
	}
	for rid, r := range c.reviews {
		if r.UserID == id {
			delete(c.reviews, rid)
		}
	}
	delete(c.users, id)
	return nil
}

func (c *memCatalog) ListReviews(ctx context.Context, limit, offset int) ([]models.Review, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Review{}
	for _, r := range c.reviews {
		out = append(out, *r)
	}
	return out, nil
}

func (c *memCatalog) GetReviewsByTourID(ctx context.Context, tourID string) ([]models.Review, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Review{}
	for _, r := range c.reviews {
		if r.TourID == tourID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (c *memCatalog) GetReviewByID(ctx context.Context, id string) (*models.Review, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review %s: %w", id, store.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (c *memCatalog) CreateReview(ctx context.Context, review *models.Review) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.reviews {
		if r.TourID == review.TourID && r.UserID == review.UserID {
			return fmt.Errorf("%w: reviews_tour_id_user_id_key", store.ErrDuplicate)
		}
	}
	cp := *review
	c.reviews[review.ID] = &cp
	return nil
}

func (c *memCatalog) UpdateReview(ctx context.Context, review *models.Review) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.reviews[review.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *review
	c.reviews[review.ID] = &cp
	return nil
}

func (c *memCatalog) DeleteReview(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.reviews[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.reviews, id)
	return nil
}

// memCarts keeps carts in memory
type memCarts struct {
	mu    sync.Mutex
	carts map[string]map[string]models.CartItem
}

func newMemCarts() *memCarts {
	return &memCarts{carts: map[string]map[string]models.CartItem{}}
}

func (m *memCarts) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart %s: %w", userID, store.ErrNotFound)
	}
	cart := &models.Cart{UserID: userID, Items: []models.CartItem{}}
	for _, item := range items {
		cart.Items = append(cart.Items, item)
	}
	cart.Recalculate()
	return cart, nil
}

func (m *memCarts) AddCartItem(ctx context.Context, item *models.CartItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.carts[item.UserID] == nil {
		m.carts[item.UserID] = map[string]models.CartItem{}
	}
	if _, ok := m.carts[item.UserID][item.TourID]; ok {
		return false, nil
	}
	m.carts[item.UserID][item.TourID] = *item
	return true, nil
}

func (m *memCarts) AdjustCartPersons(ctx context.Context, userID, tourID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.carts[userID][tourID]
	if !ok {
		return store.ErrNotFound
	}
	if item.Persons+delta < 1 {
		delete(m.carts[userID], tourID)
		return nil
	}
	item.Persons += delta
	m.carts[userID][tourID] = item
	return nil
}

func (m *memCarts) RemoveCartItem(ctx context.Context, userID, tourID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.carts[userID]
	if !ok {
		return store.ErrNotFound
	}
	delete(items, tourID)
	return nil
}

func (m *memCarts) ClearCart(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[userID]; !ok {
		return store.ErrNotFound
	}
	m.carts[userID] = map[string]models.CartItem{}
	return nil
}

// memCoordinator stands in for Redis
type memCoordinator struct {
	mu       sync.Mutex
	locks    map[string]string
	sessions map[string]redisclient.CheckoutSession
	down     bool
	nextID   int
}

func newMemCoordinator() *memCoordinator {
	return &memCoordinator{
		locks:    map[string]string{},
		sessions: map[string]redisclient.CheckoutSession{},
	}
}

func (c *memCoordinator) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return "", errStorageDown
	}
	if _, held := c.locks[key]; held {
		return "", nil
	}
	c.nextID++
	token := fmt.Sprintf("token-%d", c.nextID)
	c.locks[key] = token
	return token, nil
}

func (c *memCoordinator) ReleaseLock(ctx context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] == token {
		delete(c.locks, key)
	}
	return nil
}

func (c *memCoordinator) CacheCheckoutSession(ctx context.Context, bookingID string, s redisclient.CheckoutSession, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errStorageDown
	}
	c.sessions[bookingID] = s
	return nil
}

func (c *memCoordinator) GetCheckoutSession(ctx context.Context, bookingID string) (*redisclient.CheckoutSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errStorageDown
	}
	s, ok := c.sessions[bookingID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// recordingEvents captures published events
type recordingEvents struct {
	mu        sync.Mutex
	created   []*models.BookingCreatedEvent
	paid      []*models.BookingPaidEvent
	anomalies []*models.PaymentAnomalyEvent
}

func (r *recordingEvents) PublishBookingCreated(ctx context.Context, e *models.BookingCreatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, e)
	return nil
}

func (r *recordingEvents) PublishBookingPaid(ctx context.Context, e *models.BookingPaidEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paid = append(r.paid, e)
	return nil
}

func (r *recordingEvents) PublishPaymentAnomaly(ctx context.Context, e *models.PaymentAnomalyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies = append(r.anomalies, e)
	return nil
}

// fakeGateway records session requests; VerifyEvent is unused by checkout
type fakeGateway struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
	err      error
	delay    time.Duration
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", payment.ErrUnavailable, ctx.Err())
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	id := fmt.Sprintf("cs_test_%d", len(g.requests))
	var total int64
	for _, item := range req.Items {
		total += item.UnitAmount * item.Quantity
	}
	return &payment.Session{ID: id, URL: "https://checkout.example/" + id, AmountTotal: total}, nil
}

func (g *fakeGateway) VerifyEvent(payload []byte, signatureHeader string) (*payment.Event, error) {
	return nil, payment.ErrInvalidSignature
}

func (g *fakeGateway) calls() []payment.SessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payment.SessionRequest(nil), g.requests...)
}

// memSessions records forgotten checkout sessions
type memSessions struct {
	mu        sync.Mutex
	forgotten []string
}

func (m *memSessions) ForgetCheckoutSession(ctx context.Context, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgotten = append(m.forgotten, bookingID)
	return nil
}
