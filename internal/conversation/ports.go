package conversation

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrNotFound = errors.New("conversation not found")

type Conversation struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"-"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Message — append-only transcript row.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	CreatedAt      time.Time

	ScoreTotal *int
	Eval       *Evaluation
}

type Evaluation struct {
	Feedback string `json:"feedback"`
	Score    int    `json:"score"`
}

// Repo — persistence
type Repo interface {
	Create(ctx context.Context, restaurantID, title string) (*Conversation, error)
	ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]Conversation, error)
	// FindOwned misses with ErrNotFound unless the conversation belongs to restaurantID.
	FindOwned(ctx context.Context, restaurantID, conversationID string) (*Conversation, error)
	History(ctx context.Context, conversationID string) ([]Message, error)
	// AppendTurn writes both rows or neither.
	AppendTurn(ctx context.Context, conversationID string, user, assistant Message) error
}

// RestaurantChecker is satisfied by restaurant.Repo.
type RestaurantChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service interface {
	Create(ctx context.Context, restaurantID string) (*Conversation, error)
	List(ctx context.Context, restaurantID string) ([]Conversation, error)
	History(ctx context.Context, conversationID string) ([]Message, error)
}
