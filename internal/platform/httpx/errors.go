package httpx

import (
	"errors"
	"net/http"

	"github.com/sentinel-auth/sentinel/internal/shared"
)

// RespondError maps domain errors to HTTP detail responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		Detail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
	case errors.Is(err, shared.ErrForbidden):
		Detail(w, http.StatusForbidden, detailOf(err, "Forbidden."))
	case errors.Is(err, shared.ErrInvalidInput):
		Detail(w, http.StatusBadRequest, detailOf(err, "Invalid input."))
	case errors.Is(err, shared.ErrNotFound):
		Detail(w, http.StatusNotFound, detailOf(err, "Not found."))
	case errors.Is(err, shared.ErrInvalidCredentials):
		Detail(w, http.StatusBadRequest, "Invalid credentials.")
	default:
		Detail(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// detailOf extracts the caller-facing message carried by a DetailError,
// falling back when the error is a bare sentinel.
func detailOf(err error, fallback string) string {
	var de *shared.DetailError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
