package restaurant

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("restaurant not found")

type Restaurant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	Phone     string     `json:"phone"`
	Hours     []DayHours `json:"hours"`
	CreatedAt time.Time  `json:"createdAt"`
}

// DayHours — one row of the opening-hours table, e.g. Monday → "11:00 AM - 10:00 PM".
type DayHours struct {
	Day   string `json:"day"`
	Hours string `json:"hours"`
}

type MenuItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Allergens   []string `json:"allergens"`
	Tags        []string `json:"tags"`
}

type PolicyVersion struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	Rules     []string  `json:"rules"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Context is everything the host needs to know about one restaurant.
// Policy is nil when no version is active.
type Context struct {
	Restaurant
	Menu   []MenuItem     `json:"menu"`
	Policy *PolicyVersion `json:"policy"`
}

// Repo — persistence
type Repo interface {
	Create(ctx context.Context, r *Restaurant, menu []MenuItem, rules []string) error
	List(ctx context.Context) ([]Restaurant, error)
	Exists(ctx context.Context, id string) (bool, error)
	LoadContext(ctx context.Context, id string) (*Context, error)
	PublishPolicy(ctx context.Context, restaurantID string, rules []string) (*PolicyVersion, error)
}

type Service interface {
	List(ctx context.Context) ([]Restaurant, error)
	Get(ctx context.Context, id string) (*Context, error)
	PublishPolicy(ctx context.Context, restaurantID string, rules []string) (*PolicyVersion, error)
	SeedDemo(ctx context.Context) error
}
