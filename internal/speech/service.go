package speech

import (
	"context"
	"io"
	"slices"

	"github.com/rs/zerolog"

	"github.com/Vovarama1992/tabletalk-host/internal/ai"
)

type service struct {
	synth    ai.Synthesizer
	model    string
	voice    string
	maxChars int
	log      zerolog.Logger
}

func NewService(synth ai.Synthesizer, opts Options, log zerolog.Logger) Service {
	s := &service{
		synth:    synth,
		model:    opts.Model,
		voice:    opts.Voice,
		maxChars: opts.MaxChars,
		log:      log,
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if !slices.Contains(Voices, s.voice) {
		if s.voice != "" {
			log.Warn().Str("voice", s.voice).Msg("unknown tts voice, using default")
		}
		s.voice = DefaultVoice
	}
	if s.maxChars <= 0 {
		s.maxChars = DefaultMaxChars
	}
	return s
}

func (s *service) Speak(ctx context.Context, text string) (io.ReadCloser, error) {
	if text == "" {
		return nil, ErrTextRequired
	}

	text, cut := truncate(text, s.maxChars)
	if cut {
		s.log.Debug().Int("max_chars", s.maxChars).Msg("tts input truncated")
	}

	return s.synth.Synthesize(ctx, ai.SpeechRequest{
		Text:  text,
		Voice: s.voice,
		Model: s.model,
	})
}

// truncate cuts on rune boundaries.
func truncate(s string, max int) (string, bool) {
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}
