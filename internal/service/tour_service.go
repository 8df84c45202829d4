package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tour-service/internal/models"
	"tour-service/internal/store"
	"tour-service/internal/util"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	earthRadiusKm = 6378.1
	earthRadiusMi = 3963.2

	defaultPageSize = 100
	maxPageSize     = 100

	topRatedThreshold = 4.5
)

var tourSortColumns = map[string]string{
	"price":            "price ASC",
	"-price":           "price DESC",
	"ratings_average":  "ratings_average ASC",
	"-ratings_average": "ratings_average DESC",
	"created_at":       "created_at ASC",
	"-created_at":      "created_at DESC",
}

// TourQuery is the query string accepted by the tour listing
type TourQuery struct {
	Difficulty string `form:"difficulty"`
	MinPrice   string `form:"min_price"`
	MaxPrice   string `form:"max_price"`
	Sort       string `form:"sort"`
	Limit      int    `form:"limit"`
	Page       int    `form:"page"`
}

// TourInput carries tour fields for create and partial update
type TourInput struct {
	Name          *string          `json:"name"`
	Duration      *int             `json:"duration"`
	MaxGroupSize  *int             `json:"max_group_size"`
	Difficulty    *string          `json:"difficulty"`
	Price         *decimal.Decimal `json:"price"`
	PriceDiscount *decimal.Decimal `json:"price_discount"`
	Summary       *string          `json:"summary"`
	Description   *string          `json:"description"`
	ImageCover    *string          `json:"image_cover"`
	Images        []string         `json:"images"`
	StartLocation *models.GeoPoint `json:"start_location"`
	Locations     []models.Stop    `json:"locations"`
	StartDates    []time.Time      `json:"start_dates"`
	Secret        *bool            `json:"secret"`
}

// TourService handles the tour catalog
type TourService struct {
	tours   TourStore
	reviews ReviewStore
	logger  *zap.Logger
}

// NewTourService creates a new tour service
func NewTourService(tours TourStore, reviews ReviewStore) *TourService {
	return &TourService{
		tours:   tours,
		reviews: reviews,
		logger:  util.GetLogger(),
	}
}

// ListTours returns one page of visible tours
func (s *TourService) ListTours(ctx context.Context, q TourQuery) ([]models.Tour, error) {
	filter := store.TourFilter{}

	if q.Difficulty != "" {
		if !validDifficulty(q.Difficulty) {
			return nil, validationError("invalid_difficulty", "difficulty is either: easy, medium, difficult")
		}
		filter.Difficulty = q.Difficulty
	}

	var err error
	if filter.MinPrice, err = parsePrice(q.MinPrice); err != nil {
		return nil, validationError("invalid_price", "min_price must be a number")
	}
	if filter.MaxPrice, err = parsePrice(q.MaxPrice); err != nil {
		return nil, validationError("invalid_price", "max_price must be a number")
	}

	if filter.OrderBy, err = tourOrderBy(q.Sort); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = pageBounds(q.Page, q.Limit)

	tours, err := s.tours.ListTours(ctx, filter)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return tours, nil
}

// TopCheapTours returns the five best rated tours, cheapest first on ties
func (s *TourService) TopCheapTours(ctx context.Context) ([]models.Tour, error) {
	return s.ListTours(ctx, TourQuery{Sort: "-ratings_average,price", Limit: 5})
}

// GetTour returns a visible tour with its reviews
func (s *TourService) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	tour, err := s.loadTour(ctx, id)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.GetReviewsByTourID(ctx, id)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	tour.Reviews = reviews
	return tour, nil
}

// CreateTour adds a tour to the catalog
func (s *TourService) CreateTour(ctx context.Context, in TourInput) (*models.Tour, error) {
	tour := &models.Tour{ID: uuid.NewString()}
	applyTourInput(tour, in)
	if err := validateTour(tour); err != nil {
		return nil, err
	}

	if err := s.tours.CreateTour(ctx, tour); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflictError("tour_name_taken", "a tour with this name already exists")
		}
		return nil, unavailableError("storage_unavailable", err)
	}
	tour.Hydrate()

	s.logger.Info("Tour created", zap.String("tour_id", tour.ID), zap.String("slug", tour.Slug))
	return tour, nil
}

// UpdateTour applies the non-nil fields of in to a tour
func (s *TourService) UpdateTour(ctx context.Context, id string, in TourInput) (*models.Tour, error) {
	tour, err := s.loadTour(ctx, id)
	if err != nil {
		return nil, err
	}

	applyTourInput(tour, in)
	if err := validateTour(tour); err != nil {
		return nil, err
	}

	if err := s.tours.UpdateTour(ctx, tour); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, notFoundError("tour_not_found", "no tour found with that id")
		case errors.Is(err, store.ErrDuplicate):
			return nil, conflictError("tour_name_taken", "a tour with this name already exists")
		}
		return nil, unavailableError("storage_unavailable", err)
	}
	tour.Hydrate()
	return tour, nil
}

// DeleteTour removes a tour that nobody has booked
func (s *TourService) DeleteTour(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return validationError("invalid_tour_id", "tour id is malformed")
	}

	err := s.tours.DeleteTour(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("Tour deleted", zap.String("tour_id", id))
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFoundError("tour_not_found", "no tour found with that id")
	case errors.Is(err, store.ErrReferenced):
		return conflictError("tour_has_bookings", "a tour with bookings cannot be deleted")
	}
	return unavailableError("storage_unavailable", err)
}

// TourStats aggregates well rated tours by difficulty
func (s *TourService) TourStats(ctx context.Context) ([]models.DifficultyStats, error) {
	stats, err := s.tours.GetTourStats(ctx, topRatedThreshold)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return stats, nil
}

// MonthlyPlan counts tour starts per month of the given year
func (s *TourService) MonthlyPlan(ctx context.Context, year string) ([]models.MonthPlan, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 || y > 9999 {
		return nil, validationError("invalid_year", "year must be a four digit number")
	}

	plan, err := s.tours.GetMonthlyPlan(ctx, y)
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return plan, nil
}

// ToursWithin returns tours starting within distance of center, measured in unit
func (s *TourService) ToursWithin(ctx context.Context, distance, center, unit string) ([]models.Tour, error) {
	d, err := strconv.ParseFloat(distance, 64)
	if err != nil || d < 0 {
		return nil, validationError("invalid_distance", "distance must be a positive number")
	}
	lat, lng, err := parseLatLng(center)
	if err != nil {
		return nil, err
	}

	tours, err := s.tours.GetToursWithin(ctx, lat, lng, d/earthRadius(unit))
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return tours, nil
}

// Distances returns the distance from center to every tour start, in unit
func (s *TourService) Distances(ctx context.Context, center, unit string) ([]models.TourDistance, error) {
	lat, lng, err := parseLatLng(center)
	if err != nil {
		return nil, err
	}

	distances, err := s.tours.GetTourDistances(ctx, lat, lng, earthRadius(unit))
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return distances, nil
}

func (s *TourService) loadTour(ctx context.Context, id string) (*models.Tour, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, validationError("invalid_tour_id", "tour id is malformed")
	}

	tour, err := s.tours.GetTourByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("tour_not_found", "no tour found with that id")
	}
	if err != nil {
		return nil, unavailableError("storage_unavailable", err)
	}
	return tour, nil
}

func applyTourInput(t *models.Tour, in TourInput) {
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
		t.Slug = slug.Make(t.Name)
	}
	if in.Duration != nil {
		t.Duration = *in.Duration
	}
	if in.MaxGroupSize != nil {
		t.MaxGroupSize = *in.MaxGroupSize
	}
	if in.Difficulty != nil {
		t.Difficulty = *in.Difficulty
	}
	if in.Price != nil {
		t.Price = *in.Price
	}
	if in.PriceDiscount != nil {
		t.PriceDiscount = decimal.NewNullDecimal(*in.PriceDiscount)
	}
	if in.Summary != nil {
		t.Summary = strings.TrimSpace(*in.Summary)
	}
	if in.Description != nil {
		t.Description = strings.TrimSpace(*in.Description)
	}
	if in.ImageCover != nil {
		t.ImageCover = *in.ImageCover
	}
	if in.Images != nil {
		t.Images = in.Images
	}
	if in.StartLocation != nil {
		t.StartLocation = *in.StartLocation
		t.StartLat, t.StartLng = in.StartLocation.Lat, in.StartLocation.Lng
		t.StartAddress, t.StartDesc = in.StartLocation.Address, in.StartLocation.Description
	}
	if in.Locations != nil {
		t.Locations = in.Locations
	}
	if in.StartDates != nil {
		t.StartDates = in.StartDates
	}
	if in.Secret != nil {
		t.Secret = *in.Secret
	}
}

func validateTour(t *models.Tour) error {
	if n := utf8.RuneCountInString(t.Name); n < 10 || n > 40 {
		return validationError("invalid_name", "a tour name must have between 10 and 40 characters")
	}
	if t.Duration <= 0 {
		return validationError("invalid_duration", "a tour must have a duration")
	}
	if t.MaxGroupSize <= 0 {
		return validationError("invalid_group_size", "a tour must have a group size")
	}
	if !validDifficulty(t.Difficulty) {
		return validationError("invalid_difficulty", "difficulty is either: easy, medium, difficult")
	}
	if !t.Price.IsPositive() {
		return validationError("invalid_price", "a tour must have a positive price")
	}
	if !t.Price.Equal(t.Price.Round(2)) {
		return validationError("invalid_price", "a price has at most two decimal places")
	}
	if t.PriceDiscount.Valid && !t.PriceDiscount.Decimal.LessThan(t.Price) {
		return validationError("invalid_discount", "discount price should be below regular price")
	}
	if t.Summary == "" {
		return validationError("invalid_summary", "a tour must have a summary")
	}
	if t.ImageCover == "" {
		return validationError("invalid_image_cover", "a tour must have a cover image")
	}
	if !validCoordinates(t.StartLocation.Lat, t.StartLocation.Lng) {
		return validationError("invalid_location", "start location is out of range")
	}
	for _, stop := range t.Locations {
		if !validCoordinates(stop.Lat, stop.Lng) {
			return validationError("invalid_location", "tour location is out of range")
		}
	}
	return nil
}

func validDifficulty(d string) bool {
	switch d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyDifficult:
		return true
	}
	return false
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// parseLatLng reads a "lat,lng" pair
func parseLatLng(s string) (float64, float64, error) {
	invalid := validationError("invalid_latlng", "please provide latitude and longitude in the format lat,lng")

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, invalid
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, invalid
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, invalid
	}
	if !validCoordinates(lat, lng) {
		return 0, 0, invalid
	}
	return lat, lng, nil
}

func earthRadius(unit string) float64 {
	if unit == "mi" {
		return earthRadiusMi
	}
	return earthRadiusKm
}

func parsePrice(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func tourOrderBy(sort string) (string, error) {
	if sort == "" {
		return "", nil
	}
	var clauses []string
	for _, key := range strings.Split(sort, ",") {
		clause, ok := tourSortColumns[strings.TrimSpace(key)]
		if !ok {
			return "", validationError("invalid_sort", "cannot sort tours by "+key)
		}
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, ", "), nil
}

// pageBounds turns a 1-based page and page size into limit and offset
func pageBounds(page, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
