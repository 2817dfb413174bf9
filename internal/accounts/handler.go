package accounts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sentinel-auth/sentinel/internal/authz"
	"github.com/sentinel-auth/sentinel/internal/platform/httpx"
	"github.com/sentinel-auth/sentinel/internal/shared"
)

// Notifier issues a verification token and sends the verification message for
// a user. Implemented by the verify package.
type Notifier interface {
	SendVerification(ctx context.Context, user *User) error
}

// Handler wires HTTP endpoints for registration, login and profile flows.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	notifier Notifier
	guard    authz.Guard
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, notifier Notifier, guard authz.Guard) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		notifier: notifier,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountAuthRoutes registers registration and session routes.
func (h *Handler) MountAuthRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

// MountProfileRoutes registers the authenticated self-service routes.
func (h *Handler) MountProfileRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuthenticated())
		r.Get("/", h.showProfile)
		r.Put("/", h.updateProfile)
		r.Post("/deactivate", h.handleDeactivate)
	})
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required"`
	Password1 string `json:"password1" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"required"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "email, username and a password of at least 8 characters are required.")
		return
	}
	if req.Password1 != req.Password2 {
		httpx.Detail(w, http.StatusBadRequest, "The two password fields didn't match.")
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password1)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.notifier.SendVerification(r.Context(), user); err != nil {
		h.logger.Error("send verification", slog.Any("error", err), slog.Int64("user_id", user.ID))
	}
	httpx.Detail(w, http.StatusCreated, "Registration successful. Check your email to verify your account.")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "email and password are required.")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrEmailNotVerified) {
			// Unverified logins are rejected, never silently degraded; a
			// fresh verification link goes out with the rejection.
			if user != nil {
				if sendErr := h.notifier.SendVerification(r.Context(), user); sendErr != nil {
					h.logger.Error("resend verification", slog.Any("error", sendErr))
				}
			}
			httpx.Detail(w, http.StatusBadRequest, "Email not verified. A new verification link has been sent.")
			return
		}
		httpx.Detail(w, http.StatusBadRequest, "Invalid email or password.")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	httpx.Detail(w, http.StatusOK, "Login successful.")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	httpx.Detail(w, http.StatusOK, "Logged out.")
}

type profileResponse struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, profileResponse{
		ID:            user.ID,
		Email:         user.Email,
		Username:      user.Username,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		EmailVerified: user.EmailVerified,
	})
}

type profileUpdateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username" validate:"required"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req profileUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "username is required.")
		return
	}
	if err := h.service.UpdateProfile(r.Context(), user, req.FirstName, req.LastName, req.Username); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Detail(w, http.StatusOK, "Profile updated.")
}

type deactivateRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req deactivateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "password is required.")
		return
	}
	if err := h.service.Deactivate(r.Context(), user, req.Password); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	httpx.Detail(w, http.StatusOK, "Account deactivated.")
}

// currentUser unwraps the principal resolved by the guard. The boolean
// reports whether to proceed.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	p := authz.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return nil, false
	}
	if user, ok := p.(*User); ok {
		return user, true
	}
	user, err := h.service.GetByID(r.Context(), p.PrincipalID())
	if err != nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return nil, false
	}
	return user, true
}
