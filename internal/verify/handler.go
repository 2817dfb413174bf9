package verify

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentinel-auth/sentinel/internal/platform/httpx"
	"github.com/sentinel-auth/sentinel/internal/shared"
)

// Handler exposes the one-time confirmation endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers verification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/verify/{token}", h.handleConfirm)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.service.Confirm(r.Context(), token); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Detail(w, http.StatusNotFound, "Verification link is invalid or has expired.")
			return
		}
		h.logger.Error("confirm verification", slog.Any("error", err))
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	httpx.Detail(w, http.StatusOK, "Email verified.")
}
