package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tour-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const tourColumns = `id, name, slug, duration, max_group_size, difficulty, ratings_average, ratings_quantity,
	price, price_discount, summary, description, image_cover, images, start_lat, start_lng,
	start_address, start_description, secret, created_at`

// angular distance (radians) between a tour's start and ($1, $2) on a unit sphere
const haversineSQL = `2 * ASIN(SQRT(
	POWER(SIN(RADIANS(start_lat - $1) / 2), 2) +
	COS(RADIANS($1)) * COS(RADIANS(start_lat)) * POWER(SIN(RADIANS(start_lng - $2) / 2), 2)))`

// TourFilter narrows ListTours
type TourFilter struct {
	Difficulty string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	OrderBy    string
	Limit      int
	Offset     int
}

// GetTourByID retrieves a visible tour by ID
func (s *Store) GetTourByID(ctx context.Context, id string) (*models.Tour, error) {
	var tour models.Tour
	err := s.db.GetContext(ctx, &tour,
		"SELECT "+tourColumns+" FROM tours WHERE id = $1 AND secret = FALSE", id)
	if err != nil {
		return nil, fmt.Errorf("tour %s: %w", id, translate(err))
	}

	tours := []models.Tour{tour}
	if err := s.attachTourDetails(ctx, tours); err != nil {
		return nil, err
	}
	return &tours[0], nil
}

// ListTours retrieves visible tours matching the filter
func (s *Store) ListTours(ctx context.Context, f TourFilter) ([]models.Tour, error) {
	var (
		where []string
		args  []interface{}
	)
	where = append(where, "secret = FALSE")
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		where = append(where, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC"
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf("SELECT %s FROM tours WHERE %s ORDER BY %s, id LIMIT $%d OFFSET $%d",
		tourColumns, strings.Join(where, " AND "), orderBy, len(args)-1, len(args))

	tours := []models.Tour{}
	if err := s.db.SelectContext(ctx, &tours, query, args...); err != nil {
		return nil, err
	}
	if err := s.attachTourDetails(ctx, tours); err != nil {
		return nil, err
	}
	return tours, nil
}

// CreateTour inserts a tour with its stops and start dates
func (s *Store) CreateTour(ctx context.Context, tour *models.Tour) error {
	if tour.Images == nil {
		tour.Images = []string{}
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO tours (id, name, slug, duration, max_group_size, difficulty, price, price_discount,
				summary, description, image_cover, images, start_lat, start_lng, start_address,
				start_description, secret)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING ratings_average, ratings_quantity, created_at`

		err := tx.QueryRowxContext(ctx, query,
			tour.ID, tour.Name, tour.Slug, tour.Duration, tour.MaxGroupSize, tour.Difficulty,
			tour.Price, tour.PriceDiscount, tour.Summary, tour.Description, tour.ImageCover,
			tour.Images, tour.StartLocation.Lat, tour.StartLocation.Lng, tour.StartLocation.Address,
			tour.StartLocation.Description, tour.Secret,
		).Scan(&tour.RatingsAverage, &tour.RatingsQuantity, &tour.CreatedAt)
		if err != nil {
			return translate(err)
		}

		return replaceTourSchedule(ctx, tx, tour)
	})
}

// UpdateTour writes every mutable column of a tour and replaces its schedule
func (s *Store) UpdateTour(ctx context.Context, tour *models.Tour) error {
	if tour.Images == nil {
		tour.Images = []string{}
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tours SET name = $2, slug = $3, duration = $4, max_group_size = $5, difficulty = $6,
				price = $7, price_discount = $8, summary = $9, description = $10, image_cover = $11,
				images = $12, start_lat = $13, start_lng = $14, start_address = $15,
				start_description = $16, secret = $17
			WHERE id = $1`,
			tour.ID, tour.Name, tour.Slug, tour.Duration, tour.MaxGroupSize, tour.Difficulty,
			tour.Price, tour.PriceDiscount, tour.Summary, tour.Description, tour.ImageCover,
			tour.Images, tour.StartLocation.Lat, tour.StartLocation.Lng, tour.StartLocation.Address,
			tour.StartLocation.Description, tour.Secret)
		if err != nil {
			return translate(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		return replaceTourSchedule(ctx, tx, tour)
	})
}

// DeleteTour removes a tour
func (s *Store) DeleteTour(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tours WHERE id = $1", id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTourStats aggregates highly rated tours by difficulty
func (s *Store) GetTourStats(ctx context.Context, minRating float64) ([]models.DifficultyStats, error) {
	stats := []models.DifficultyStats{}
	err := s.db.SelectContext(ctx, &stats, `
		SELECT UPPER(difficulty) AS difficulty,
			COUNT(*) AS num_tours,
			COALESCE(SUM(ratings_quantity), 0) AS num_ratings,
			ROUND(AVG(ratings_average)::numeric, 2)::float8 AS avg_rating,
			ROUND(AVG(price), 2) AS avg_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price
		FROM tours
		WHERE secret = FALSE AND ratings_average >= $1
		GROUP BY UPPER(difficulty)
		ORDER BY avg_price`, minRating)
	return stats, err
}

// GetMonthlyPlan counts tour starts per month of the given year
func (s *Store) GetMonthlyPlan(ctx context.Context, year int) ([]models.MonthPlan, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	plan := []models.MonthPlan{}
	err := s.db.SelectContext(ctx, &plan, `
		SELECT EXTRACT(MONTH FROM d.starts_at)::int AS month,
			COUNT(*) AS num_tour_starts,
			ARRAY_AGG(t.name ORDER BY t.name) AS tours
		FROM tour_start_dates d
		JOIN tours t ON t.id = d.tour_id
		WHERE t.secret = FALSE AND d.starts_at >= $1 AND d.starts_at < $2
		GROUP BY month
		ORDER BY num_tour_starts DESC, month
		LIMIT 12`, from, to)
	return plan, err
}

// GetToursWithin returns visible tours starting within an angular radius of a point
func (s *Store) GetToursWithin(ctx context.Context, lat, lng, radians float64) ([]models.Tour, error) {
	tours := []models.Tour{}
	query := fmt.Sprintf("SELECT %s FROM tours WHERE secret = FALSE AND %s <= $3 ORDER BY name",
		tourColumns, haversineSQL)
	if err := s.db.SelectContext(ctx, &tours, query, lat, lng, radians); err != nil {
		return nil, err
	}
	if err := s.attachTourDetails(ctx, tours); err != nil {
		return nil, err
	}
	return tours, nil
}

// GetTourDistances returns the distance from a point to every visible tour start,
// scaled by the given sphere radius
func (s *Store) GetTourDistances(ctx context.Context, lat, lng, radius float64) ([]models.TourDistance, error) {
	distances := []models.TourDistance{}
	query := fmt.Sprintf(
		"SELECT id, name, %s * $3 AS distance FROM tours WHERE secret = FALSE ORDER BY distance", haversineSQL)
	err := s.db.SelectContext(ctx, &distances, query, lat, lng, radius)
	return distances, err
}

// updateTourRatings recomputes a tour's rating aggregates from its reviews
func updateTourRatings(ctx context.Context, tx *sqlx.Tx, tourID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE tours SET
			ratings_quantity = agg.n,
			ratings_average = CASE WHEN agg.n = 0 THEN $2 ELSE ROUND(agg.avg::numeric, 1)::float8 END
		FROM (SELECT COUNT(*) AS n, COALESCE(AVG(rating), 0) AS avg FROM reviews WHERE tour_id = $1) agg
		WHERE tours.id = $1`, tourID, models.DefaultRatingsAverage)
	return err
}

func replaceTourSchedule(ctx context.Context, tx *sqlx.Tx, tour *models.Tour) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM tour_locations WHERE tour_id = $1", tour.ID); err != nil {
		return err
	}
	for _, stop := range tour.Locations {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO tour_locations (tour_id, lat, lng, address, description, day) VALUES ($1, $2, $3, $4, $5, $6)",
			tour.ID, stop.Lat, stop.Lng, stop.Address, stop.Description, stop.Day)
		if err != nil {
			return fmt.Errorf("failed to insert tour location: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tour_start_dates WHERE tour_id = $1", tour.ID); err != nil {
		return err
	}
	for _, startsAt := range tour.StartDates {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO tour_start_dates (tour_id, starts_at) VALUES ($1, $2)", tour.ID, startsAt)
		if err != nil {
			return fmt.Errorf("failed to insert tour start date: %w", err)
		}
	}
	return nil
}

// attachTourDetails loads stops and start dates for a batch of tours
func (s *Store) attachTourDetails(ctx context.Context, tours []models.Tour) error {
	if len(tours) == 0 {
		return nil
	}

	ids := make([]string, len(tours))
	index := make(map[string]int, len(tours))
	for i := range tours {
		ids[i] = tours[i].ID
		index[tours[i].ID] = i
		tours[i].Locations = []models.Stop{}
		tours[i].StartDates = []time.Time{}
		tours[i].Hydrate()
	}

	query, args, err := sqlx.In(
		"SELECT tour_id, lat, lng, address, description, day FROM tour_locations WHERE tour_id IN (?) ORDER BY day", ids)
	if err != nil {
		return err
	}
	var stops []models.Stop
	if err := s.db.SelectContext(ctx, &stops, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load tour locations: %w", err)
	}
	for _, stop := range stops {
		i := index[stop.TourID]
		tours[i].Locations = append(tours[i].Locations, stop)
	}

	query, args, err = sqlx.In(
		"SELECT tour_id, starts_at FROM tour_start_dates WHERE tour_id IN (?) ORDER BY starts_at", ids)
	if err != nil {
		return err
	}
	var dates []struct {
		TourID   string    `db:"tour_id"`
		StartsAt time.Time `db:"starts_at"`
	}
	if err := s.db.SelectContext(ctx, &dates, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load tour start dates: %w", err)
	}
	for _, d := range dates {
		i := index[d.TourID]
		tours[i].StartDates = append(tours[i].StartDates, d.StartsAt)
	}

	return nil
}
