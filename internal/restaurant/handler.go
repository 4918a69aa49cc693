package restaurant

import (
	"encoding/json"
	"errors"
	"net/http"

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list restaurants")
		httpx.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if list == nil {
		list = []Restaurant{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

// Get returns the info-panel payload: profile, hours, menu and active policy.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "Restaurant not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("load restaurant")
		httpx.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	httpx.JSON(w, http.StatusOK, rc)
}

func (h *Handler) PublishPolicy(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Rules []string `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	pv, err := h.svc.PublishPolicy(r.Context(), chi.URLParam(r, "id"), payload.Rules)
	switch {
	case errors.Is(err, ErrEmptyPolicy):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Restaurant not found")
	case err != nil:
		h.log.Error().Err(err).Msg("publish policy")
		httpx.Error(w, http.StatusInternalServerError, "Internal Server Error")
	default:
		httpx.JSON(w, http.StatusCreated, pv)
	}
}
