// Package demo serves the mock project/report endpoints. They carry no logic
// of their own; they exist to exercise the access guard.
package demo

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentinel-auth/sentinel/internal/authz"
	"github.com/sentinel-auth/sentinel/internal/platform/httpx"
)

// Handler mounts the guarded pass-through endpoints.
type Handler struct {
	guard authz.Guard
}

// NewHandler constructs a Handler.
func NewHandler(guard authz.Guard) *Handler {
	return &Handler{guard: guard}
}

// MountRoutes registers the mock routes with their required permissions.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAccess("projects", authz.ActionView))
		r.Get("/projects", h.listProjects)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAccess("reports", authz.ActionEdit))
		r.Get("/reports", h.showReports)
		r.Post("/reports", h.updateReports)
	})
}

type project struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string][]project{
		"projects": {
			{ID: 1, Name: "Intranet Upgrade", Status: "in_progress"},
			{ID: 2, Name: "Marketing Site Redesign", Status: "planning"},
		},
	})
}

func (h *Handler) showReports(w http.ResponseWriter, r *http.Request) {
	httpx.Detail(w, http.StatusOK, "Use POST to submit report updates.")
}

func (h *Handler) updateReports(w http.ResponseWriter, r *http.Request) {
	httpx.Detail(w, http.StatusOK, "Report updated successfully.")
}
