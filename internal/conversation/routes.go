package conversation

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/api/conversations", h.Create)
	r.Get("/api/conversations", h.List)
	r.Get("/api/conversations/{id}/messages", h.Messages)
}
