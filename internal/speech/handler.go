package speech

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Vovarama1992/tabletalk-host/internal/ai"
	"github.com/Vovarama1992/tabletalk-host/internal/httpx"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	svc Service
	log zerolog.Logger
}

func NewHandler(svc Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Speak(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text any `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Text is required")
		return
	}
	text, ok := req.Text.(string)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Text is required")
		return
	}

	audio, err := h.svc.Speak(r.Context(), text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio); err != nil {
		h.log.Warn().Err(err).Msg("tts audio copy interrupted")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var upstream *ai.UpstreamError

	switch {
	case errors.Is(err, ErrTextRequired):
		httpx.Error(w, http.StatusBadRequest, "Text is required")
	case errors.Is(err, ai.ErrMissingAPIKey):
		httpx.Error(w, http.StatusInternalServerError, "OpenAI API Key is missing")
	case errors.As(err, &upstream):
		httpx.Error(w, upstream.Status, upstream.Message)
	default:
		h.log.Error().Err(err).Msg("tts failed")
		httpx.Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
