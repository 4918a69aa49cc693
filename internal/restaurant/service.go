package restaurant

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

var ErrEmptyPolicy = errors.New("policy needs at least one rule")

type service struct {
	repo Repo
	log  zerolog.Logger
}

func NewService(repo Repo, log zerolog.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) List(ctx context.Context) ([]Restaurant, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, id string) (*Context, error) {
	return s.repo.LoadContext(ctx, id)
}

func (s *service) PublishPolicy(ctx context.Context, restaurantID string, rules []string) (*PolicyVersion, error) {
	clean := make([]string, 0, len(rules))
	for _, r := range rules {
		if r = strings.TrimSpace(r); r != "" {
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return nil, ErrEmptyPolicy
	}

	pv, err := s.repo.PublishPolicy(ctx, restaurantID, clean)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("restaurant_id", restaurantID).
		Int("version", pv.Version).
		Int("rules", len(pv.Rules)).
		Msg("policy published")
	return pv, nil
}

// SeedDemo inserts the demo restaurant when the store is empty.
func (s *service) SeedDemo(ctx context.Context) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.log.Debug().Int("restaurants", len(existing)).Msg("seed skipped")
		return nil
	}

	rest, menu, rules := demoRestaurant()
	if err := s.repo.Create(ctx, rest, menu, rules); err != nil {
		return err
	}

	s.log.Info().Str("restaurant_id", rest.ID).Str("name", rest.Name).Msg("demo restaurant seeded")
	return nil
}

func demoRestaurant() (*Restaurant, []MenuItem, []string) {
	rest := &Restaurant{
		Name:    "TableTalk Bistro",
		Address: "123 Culinary Ave, Food City, FC 90210",
		Phone:   "(555) 123-4567",
		Hours: []DayHours{
			{Day: "Monday", Hours: "11:00 AM - 10:00 PM"},
			{Day: "Tuesday", Hours: "11:00 AM - 10:00 PM"},
			{Day: "Wednesday", Hours: "11:00 AM - 10:00 PM"},
			{Day: "Thursday", Hours: "11:00 AM - 11:00 PM"},
			{Day: "Friday", Hours: "11:00 AM - 11:00 PM"},
			{Day: "Saturday", Hours: "10:00 AM - 11:00 PM"},
			{Day: "Sunday", Hours: "10:00 AM - 10:00 PM"},
		},
	}

	menu := []MenuItem{
		{
			Name:        "Grilled Salmon",
			Description: "Fresh Atlantic salmon with lemon butter sauce and asparagus.",
			Price:       24.00,
			Allergens:   []string{"Fish", "Dairy"},
			Tags:        []string{"Gluten-Free", "Special"},
		},
		{
			Name:        "Classic Burger",
			Description: "Angus beef patty, cheddar, lettuce, tomato, brioche bun.",
			Price:       16.00,
			Allergens:   []string{"Gluten", "Dairy"},
		},
		{
			Name:        "Quinoa Salad",
			Description: "Mixed greens, quinoa, avocado, cherry tomatoes, balsamic vinaigrette.",
			Price:       14.00,
			Tags:        []string{"Vegan", "Gluten-Free"},
		},
	}

	rules := []string{
		"Greet guests warmly.",
		"Inform guests about the daily special: Grilled Salmon.",
		"We do not take reservations for groups larger than 6 without a deposit.",
		"Vegan options are marked with (V) on the menu.",
		"The kitchen closes 30 minutes before closing time.",
	}

	return rest, menu, rules
}
