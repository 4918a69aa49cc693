package chat

import (
	"context"
	"io"

	"github.com/Vovarama1992/tabletalk-host/internal/conversation"
	"github.com/Vovarama1992/tabletalk-host/internal/restaurant"
)

// ContextLoader is satisfied by restaurant.Repo.
type ContextLoader interface {
	LoadContext(ctx context.Context, id string) (*restaurant.Context, error)
}

// TranscriptStore is satisfied by conversation.Repo.
type TranscriptStore interface {
	FindOwned(ctx context.Context, restaurantID, conversationID string) (*conversation.Conversation, error)
	AppendTurn(ctx context.Context, conversationID string, user, assistant conversation.Message) error
}

// TurnResult describes a turn whose reply was fully streamed.
// PersistErr is set when the transcript write failed afterwards.
type TurnResult struct {
	Reply      string
	PersistErr error
}

// Service — one turn from raw request body to streamed reply.
type Service interface {
	HandleTurn(ctx context.Context, payload []byte, out io.Writer) (*TurnResult, error)
}
