package models

import (
	"math"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// User roles
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// Tour difficulties
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// DefaultRatingsAverage is the rating a tour carries before it has reviews
const DefaultRatingsAverage = 4.5

// User represents an account holder
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	Photo     string    `db:"photo" json:"photo,omitempty"`
	Active    bool      `db:"active" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GeoPoint is a point on the earth's surface with optional labels
type GeoPoint struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Address     string  `json:"address,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Tour represents a tour in the catalog
type Tour struct {
	ID              string              `db:"id" json:"id"`
	Name            string              `db:"name" json:"name"`
	Slug            string              `db:"slug" json:"slug"`
	Duration        int                 `db:"duration" json:"duration"`
	MaxGroupSize    int                 `db:"max_group_size" json:"max_group_size"`
	Difficulty      string              `db:"difficulty" json:"difficulty"`
	RatingsAverage  float64             `db:"ratings_average" json:"ratings_average"`
	RatingsQuantity int                 `db:"ratings_quantity" json:"ratings_quantity"`
	Price           decimal.Decimal     `db:"price" json:"price"`
	PriceDiscount   decimal.NullDecimal `db:"price_discount" json:"price_discount,omitempty"`
	Summary         string              `db:"summary" json:"summary"`
	Description     string              `db:"description" json:"description,omitempty"`
	ImageCover      string              `db:"image_cover" json:"image_cover"`
	Images          pq.StringArray      `db:"images" json:"images"`
	StartLat        float64             `db:"start_lat" json:"-"`
	StartLng        float64             `db:"start_lng" json:"-"`
	StartAddress    string              `db:"start_address" json:"-"`
	StartDesc       string              `db:"start_description" json:"-"`
	Secret          bool                `db:"secret" json:"-"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`

	StartLocation GeoPoint    `db:"-" json:"start_location"`
	Locations     []Stop      `db:"-" json:"locations"`
	StartDates    []time.Time `db:"-" json:"start_dates"`
	Reviews       []Review    `db:"-" json:"reviews,omitempty"`
	DurationWeeks int         `db:"-" json:"duration_weeks"`
}

// Stop is a location visited on a given day of a tour
type Stop struct {
	TourID      string  `db:"tour_id" json:"-"`
	Lat         float64 `db:"lat" json:"lat"`
	Lng         float64 `db:"lng" json:"lng"`
	Address     string  `db:"address" json:"address,omitempty"`
	Description string  `db:"description" json:"description,omitempty"`
	Day         int     `db:"day" json:"day"`
}

// Hydrate fills the fields derived from flat columns
func (t *Tour) Hydrate() {
	t.StartLocation = GeoPoint{
		Lat:         t.StartLat,
		Lng:         t.StartLng,
		Address:     t.StartAddress,
		Description: t.StartDesc,
	}
	t.DurationWeeks = int(math.Ceil(float64(t.Duration) / 7))
	if t.Images == nil {
		t.Images = pq.StringArray{}
	}
}

// Review is a user's rating of a tour
type Review struct {
	ID        string    `db:"id" json:"id"`
	TourID    string    `db:"tour_id" json:"tour_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	UserName  string    `db:"user_name" json:"user_name,omitempty"`
	Review    string    `db:"review" json:"review"`
	Rating    int       `db:"rating" json:"rating"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Booking is a ledger entry recording a user's intent to purchase a tour
type Booking struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	TourID    string          `db:"tour_id" json:"tour_id"`
	TourName  string          `db:"tour_name" json:"tour_name,omitempty"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Paid      bool            `db:"paid" json:"paid"`
	PaidAt    *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Cart holds the tours a user intends to buy
type Cart struct {
	UserID     string          `db:"user_id" json:"user_id"`
	Items      []CartItem      `db:"-" json:"tours"`
	TotalPrice decimal.Decimal `db:"-" json:"total_price"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// CartItem is a tour line in a cart
type CartItem struct {
	UserID     string          `db:"user_id" json:"-"`
	TourID     string          `db:"tour_id" json:"tour_id"`
	TourName   string          `db:"tour_name" json:"name"`
	Persons    int             `db:"persons" json:"persons"`
	Date       *time.Time      `db:"tour_date" json:"date,omitempty"`
	Price      decimal.Decimal `db:"price" json:"price"`
	ImageCover string          `db:"image_cover" json:"image_cover,omitempty"`
	TotalPrice decimal.Decimal `db:"-" json:"total_price"`
}

// Recalculate refreshes line totals and the cart total
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for i := range c.Items {
		item := &c.Items[i]
		item.TotalPrice = item.Price.Mul(decimal.NewFromInt(int64(item.Persons)))
		total = total.Add(item.TotalPrice)
	}
	c.TotalPrice = total
}

// DifficultyStats aggregates tours of one difficulty level
type DifficultyStats struct {
	Difficulty string          `db:"difficulty" json:"difficulty"`
	NumTours   int             `db:"num_tours" json:"num_tours"`
	NumRatings int             `db:"num_ratings" json:"num_ratings"`
	AvgRating  float64         `db:"avg_rating" json:"avg_rating"`
	AvgPrice   decimal.Decimal `db:"avg_price" json:"avg_price"`
	MinPrice   decimal.Decimal `db:"min_price" json:"min_price"`
	MaxPrice   decimal.Decimal `db:"max_price" json:"max_price"`
}

// MonthPlan counts tour starts in one month of a year
type MonthPlan struct {
	Month         int            `db:"month" json:"month"`
	NumTourStarts int            `db:"num_tour_starts" json:"num_tour_starts"`
	Tours         pq.StringArray `db:"tours" json:"tours"`
}

// TourDistance is a tour's distance from a reference point
type TourDistance struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Distance float64 `db:"distance" json:"distance"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
