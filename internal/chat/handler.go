package chat

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Vovarama1992/tabletalk-host/internal/ai"
	"github.com/Vovarama1992/tabletalk-host/internal/httpx"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc Service
	log zerolog.Logger
}

func NewHandler(svc Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// HandleChat streams the reply as plain text.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	sw := newStreamWriter(w)
	_, err = h.svc.HandleTurn(r.Context(), payload, sw)
	if err == nil {
		sw.commit()
		return
	}

	if sw.started {
		// status line is gone; break the chunked body so the client sees a failure
		h.log.Warn().Err(err).Msg("reply stream interrupted")
		panic(http.ErrAbortHandler)
	}
	h.writeError(w, err)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		timeout    *TimeoutError
		upstream   *ai.UpstreamError
	)

	switch {
	case errors.As(err, &validation):
		httpx.ErrorDetails(w, http.StatusBadRequest, "Validation failed", validation.Violations)
	case errors.As(err, &notFound):
		httpx.Error(w, http.StatusNotFound, notFound.Message)
	case errors.Is(err, ErrEmptyTurn):
		httpx.Error(w, http.StatusBadRequest, "At least one user or assistant message is required")
	case errors.As(err, &timeout):
		httpx.Error(w, http.StatusGatewayTimeout, timeout.Error())
	case errors.As(err, &upstream):
		httpx.Error(w, upstream.Status, upstream.Message)
	case errors.Is(err, ai.ErrMissingAPIKey):
		httpx.Error(w, http.StatusInternalServerError, "OpenAI API Key is missing")
	case errors.Is(err, ErrClientGone):
		h.log.Debug().Err(err).Msg("client left before first byte")
	default:
		h.log.Error().Err(err).Msg("chat turn failed")
		httpx.Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// streamWriter commits a 200 text/plain response on the first write and
// flushes after every write.
type streamWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	return &streamWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *streamWriter) commit() {
	if s.started {
		return
	}
	s.started = true
	s.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	s.w.Header().Set("X-Content-Type-Options", "nosniff")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.WriteHeader(http.StatusOK)
}

func (s *streamWriter) Write(p []byte) (int, error) {
	s.commit()
	n, err := s.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}
