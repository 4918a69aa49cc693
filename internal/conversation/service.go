package conversation

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

const DefaultTitle = "New Chat"

var ErrRestaurantNotFound = errors.New("restaurant not found")

type service struct {
	repo        Repo
	restaurants RestaurantChecker
	listLimit   int
	log         zerolog.Logger
}

func NewService(repo Repo, restaurants RestaurantChecker, listLimit int, log zerolog.Logger) Service {
	if listLimit <= 0 {
		listLimit = 20
	}
	return &service{
		repo:        repo,
		restaurants: restaurants,
		listLimit:   listLimit,
		log:         log,
	}
}

func (s *service) Create(ctx context.Context, restaurantID string) (*Conversation, error) {
	ok, err := s.restaurants.Exists(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRestaurantNotFound
	}

	c, err := s.repo.Create(ctx, restaurantID, DefaultTitle)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("restaurant_id", restaurantID).Str("conversation_id", c.ID).Msg("conversation created")
	return c, nil
}

// List returns the most recent conversations, newest first.
func (s *service) List(ctx context.Context, restaurantID string) ([]Conversation, error) {
	return s.repo.ListByRestaurant(ctx, restaurantID, s.listLimit)
}

func (s *service) History(ctx context.Context, conversationID string) ([]Message, error) {
	return s.repo.History(ctx, conversationID)
}
