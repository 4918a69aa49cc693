package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Vovarama1992/tabletalk-host/internal/httpx"
)

type Handler struct {
	svc Service
	log zerolog.Logger
}

func NewHandler(svc Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RestaurantID string `json:"restaurantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.RestaurantID) == "" {
		httpx.ErrorDetails(w, http.StatusBadRequest, "Validation failed", []fieldError{
			{Field: "restaurantId", Message: "restaurantId is required"},
		})
		return
	}

	c, err := h.svc.Create(r.Context(), payload.RestaurantID)
	if errors.Is(err, ErrRestaurantNotFound) {
		httpx.Error(w, http.StatusNotFound, "Restaurant not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("create conversation")
		httpx.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"conversationId": c.ID})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurantId")
	if restaurantID == "" {
		httpx.Error(w, http.StatusBadRequest, "restaurantId is required")
		return
	}

	list, err := h.svc.List(r.Context(), restaurantID)
	if err != nil {
		h.log.Error().Err(err).Msg("list conversations")
		httpx.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if list == nil {
		list = []Conversation{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

// Messages returns the transcript oldest first as role/content pairs.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.log.Error().Err(err).Msg("get messages")
		httpx.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	out := make([]transcriptEntry, 0, len(history))
	for _, m := range history {
		out = append(out, transcriptEntry{Role: string(m.Role), Content: m.Content})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type transcriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
