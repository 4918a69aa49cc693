package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OpenAIClient struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIClient never fails: a missing key is reported on each call.
func NewOpenAIClient(cfg OpenAIConfig, log zerolog.Logger) *OpenAIClient {
	c := &OpenAIClient{model: cfg.Model, log: log}
	if c.model == "" {
		c.model = openai.GPT4oMini
	}
	if cfg.APIKey == "" {
		return c
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	c.client = openai.NewClientWithConfig(oc)
	return c
}

func (c *OpenAIClient) StreamReply(
	ctx context.Context,
	system string,
	history []Message,
) (TokenStream, error) {
	if c.client == nil {
		return nil, ErrMissingAPIKey
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Text,
		})
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("model", c.model).Msg("completion stream rejected")
		return nil, upstream(err)
	}

	c.log.Debug().Str("model", c.model).Int("messages", len(msgs)).Msg("completion stream opened")
	return &openAIStream{stream: stream}, nil
}

func (c *OpenAIClient) Synthesize(ctx context.Context, req SpeechRequest) (io.ReadCloser, error) {
	if c.client == nil {
		return nil, ErrMissingAPIKey
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(req.Model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("model", req.Model).Str("voice", req.Voice).Msg("speech request failed")
		return nil, upstream(err)
	}
	return resp.ReadCloser, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", upstream(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

// upstream keeps context errors as-is so callers can tell a timeout apart
// from a provider failure.
func upstream(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: statusOr(apiErr.HTTPStatusCode), Message: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := strings.TrimSpace(string(reqErr.Body))
		if msg == "" && reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &UpstreamError{Status: statusOr(reqErr.HTTPStatusCode), Message: msg, Err: err}
	}

	return &UpstreamError{Status: http.StatusBadGateway, Message: err.Error(), Err: err}
}

func statusOr(code int) int {
	if code == 0 {
		return http.StatusBadGateway
	}
	return code
}
