package speech

import (
	"context"
	"errors"
	"io"
)

var ErrTextRequired = errors.New("text is required")

// Voices the provider accepts; anything else falls back to DefaultVoice.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

const (
	DefaultVoice    = "alloy"
	DefaultModel    = "tts-1"
	DefaultMaxChars = 4096
)

type Options struct {
	Model    string
	Voice    string
	MaxChars int
}

// Service — text in, mp3 out. The caller closes the returned body.
type Service interface {
	Speak(ctx context.Context, text string) (io.ReadCloser, error)
}
