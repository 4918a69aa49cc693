package restaurant

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/api/restaurants", h.List)
	r.Get("/api/restaurants/{id}", h.Get)
	r.Post("/api/restaurants/{id}/policies", h.PublishPolicy)
}
