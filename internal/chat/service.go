package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/Vovarama1992/tabletalk-host/internal/ai"
	"github.com/Vovarama1992/tabletalk-host/internal/conversation"
	"github.com/Vovarama1992/tabletalk-host/internal/restaurant"
)

const (
	DefaultStreamTimeout = 30 * time.Second
	persistTimeout       = 5 * time.Second

	placeholderScore    = 100
	placeholderFeedback = "Response followed policy."
)

type Options struct {
	StreamTimeout time.Duration
	MaxMessages   int
}

type service struct {
	restaurants ContextLoader
	transcripts TranscriptStore
	ai          ai.Completer
	decoder     *decoder
	timeout     time.Duration
	log         zerolog.Logger
}

func NewService(
	restaurants ContextLoader,
	transcripts TranscriptStore,
	completer ai.Completer,
	opts Options,
	log zerolog.Logger,
) (Service, error) {
	dec, err := newDecoder(opts.MaxMessages)
	if err != nil {
		return nil, err
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = DefaultStreamTimeout
	}
	return &service{
		restaurants: restaurants,
		transcripts: transcripts,
		ai:          completer,
		decoder:     dec,
		timeout:     opts.StreamTimeout,
		log:         log,
	}, nil
}

// HandleTurn runs receive → load → assemble → stream → persist.
// Every error returned before the first write to out means nothing was sent.
func (s *service) HandleTurn(ctx context.Context, payload []byte, out io.Writer) (*TurnResult, error) {
	req, err := s.decoder.Decode(payload)
	if err != nil {
		return nil, err
	}

	log := s.log.With().
		Str("restaurant_id", req.RestaurantID).
		Str("conversation_id", req.ConversationID).
		Logger()

	rc, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	history := FilterHistory(req.Messages)
	if len(history) == 0 {
		return nil, ErrEmptyTurn
	}
	instruction := restaurant.BuildInstruction(*rc)

	log.Debug().
		Int("messages", len(history)).
		Int("instruction_len", len(instruction)).
		Msg("turn assembled")

	started := time.Now()
	reply, err := s.stream(ctx, instruction, history, out)
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(started)).Msg("turn aborted")
		return nil, err
	}

	result := &TurnResult{Reply: reply}
	if err := s.persist(ctx, req.ConversationID, history, reply); err != nil {
		result.PersistErr = err
		log.Error().Err(err).Msg("failed to save messages")
	}

	log.Info().
		Int("reply_len", len(reply)).
		Dur("elapsed", time.Since(started)).
		Bool("persisted", result.PersistErr == nil).
		Msg("turn completed")
	return result, nil
}

// load fetches the restaurant context and checks conversation ownership in
// parallel. A restaurant miss is reported before a conversation miss.
func (s *service) load(ctx context.Context, req TurnRequest) (*restaurant.Context, error) {
	var (
		rc      *restaurant.Context
		rcErr   error
		convErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		rc, rcErr = s.restaurants.LoadContext(ctx, req.RestaurantID)
	})
	wg.Go(func() {
		_, convErr = s.transcripts.FindOwned(ctx, req.RestaurantID, req.ConversationID)
	})
	wg.Wait()

	switch {
	case errors.Is(rcErr, restaurant.ErrNotFound):
		return nil, &NotFoundError{Resource: "restaurant", Message: "Restaurant not found"}
	case rcErr != nil:
		return nil, fmt.Errorf("load restaurant %s: %w", req.RestaurantID, rcErr)
	case errors.Is(convErr, conversation.ErrNotFound):
		return nil, &NotFoundError{
			Resource: "conversation",
			Message:  "Conversation not found or does not belong to this restaurant",
		}
	case convErr != nil:
		return nil, fmt.Errorf("load conversation %s: %w", req.ConversationID, convErr)
	}
	return rc, nil
}

// stream forwards deltas to out as they arrive and returns the full reply
// only when the provider signalled the end of the stream.
func (s *service) stream(ctx context.Context, system string, history []ai.Message, out io.Writer) (string, error) {
	turnCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	st, err := s.ai.StreamReply(turnCtx, system, history)
	if err != nil {
		return "", s.streamErr(ctx, turnCtx, err)
	}
	defer st.Close()

	var reply strings.Builder
	for {
		delta, err := st.Recv()
		if errors.Is(err, io.EOF) {
			return reply.String(), nil
		}
		if err != nil {
			return "", s.streamErr(ctx, turnCtx, err)
		}
		if delta == "" {
			continue
		}

		reply.WriteString(delta)
		if _, err := io.WriteString(out, delta); err != nil {
			return "", fmt.Errorf("%w: %v", ErrClientGone, err)
		}
	}
}

func (s *service) streamErr(parent, turn context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%w: %v", ErrClientGone, parent.Err())
	}
	if errors.Is(turn.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Budget: s.timeout}
	}
	return err
}

// persist writes the triggering user message and the reply in one
// transaction. It outlives client cancellation: the reply is already out.
func (s *service) persist(ctx context.Context, conversationID string, history []ai.Message, reply string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	score := placeholderScore
	user := conversation.Message{
		Role:    conversation.RoleUser,
		Content: triggeringUserText(history),
	}
	assistant := conversation.Message{
		Role:       conversation.RoleAssistant,
		Content:    reply,
		ScoreTotal: &score,
		Eval:       &conversation.Evaluation{Feedback: placeholderFeedback, Score: placeholderScore},
	}

	if err := s.transcripts.AppendTurn(ctx, conversationID, user, assistant); err != nil {
		return &PersistenceError{ConversationID: conversationID, Err: err}
	}
	return nil
}
