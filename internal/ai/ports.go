package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Message — one transcript entry handed to the model.
type Message struct {
	Role string // "user" | "assistant"
	Text string
}

// TokenStream yields reply deltas until io.EOF.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Completer streams a reply for a system instruction plus transcript.
type Completer interface {
	StreamReply(ctx context.Context, system string, history []Message) (TokenStream, error)
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (io.ReadCloser, error)
}

type SpeechRequest struct {
	Text  string
	Voice string
	Model string
}

var ErrMissingAPIKey = errors.New("ai: OpenAI API key is not configured")

// UpstreamError is a failure reported by the provider.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ai: upstream status=%d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
