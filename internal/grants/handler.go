package grants

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentinel-auth/sentinel/internal/authz"
	"github.com/sentinel-auth/sentinel/internal/platform/httpx"
)

// Handler exposes the administrative grant management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Guard
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers the admin API. Every route requires an authenticated
// administrator.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdministrator())
		r.Get("/permissions", h.listPermissions)
		r.Post("/permissions", h.mutatePermission)
		r.Post("/roles/assign", h.mutateAssignment)
		r.Post("/roles", h.createRole)
		r.Delete("/roles/{slug}", h.deleteRole)
		r.Post("/resources", h.createResource)
	})
}

type permissionsResponse struct {
	Roles []RoleGrants `json:"roles"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRolesWithPermissions(r.Context())
	if err != nil {
		h.logger.Error("list roles with permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Roles: roles})
}

type permissionRequest struct {
	Role     string   `json:"role"`
	Resource string   `json:"resource"`
	Action   string   `json:"action"`
	Grant    FlexBool `json:"grant"`
}

func (h *Handler) mutatePermission(w http.ResponseWriter, r *http.Request) {
	req := permissionRequest{Grant: true}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	if req.Role == "" || req.Resource == "" || req.Action == "" {
		httpx.Detail(w, http.StatusBadRequest, "role, resource and action are required.")
		return
	}
	action, err := authz.ParseAction(req.Action)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	slug := authz.RoleSlug(req.Role)
	code := authz.ResourceCode(req.Resource)
	if req.Grant.Bool() {
		if _, err := h.service.GrantPermission(r.Context(), slug, code, action); err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.Detail(w, http.StatusOK, "Permission granted.")
		return
	}

	outcome, err := h.service.RevokePermission(r.Context(), slug, code, action)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if outcome == OutcomeNotFound {
		httpx.Detail(w, http.StatusNotFound, "Permission not found.")
		return
	}
	httpx.Detail(w, http.StatusOK, "Permission revoked.")
}

type assignmentRequest struct {
	User   string   `json:"user"`
	Role   string   `json:"role"`
	Assign FlexBool `json:"assign"`
}

func (h *Handler) mutateAssignment(w http.ResponseWriter, r *http.Request) {
	req := assignmentRequest{Assign: true}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	if req.User == "" || req.Role == "" {
		httpx.Detail(w, http.StatusBadRequest, "user and role are required.")
		return
	}

	slug := authz.RoleSlug(req.Role)
	if req.Assign.Bool() {
		if _, err := h.service.AssignRole(r.Context(), req.User, slug); err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.Detail(w, http.StatusOK, "Role assigned.")
		return
	}

	outcome, err := h.service.RevokeRole(r.Context(), req.User, slug)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if outcome == OutcomeNotFound {
		httpx.Detail(w, http.StatusNotFound, "Assignment not found.")
		return
	}
	httpx.Detail(w, http.StatusOK, "Role revoked.")
}

type createRoleRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	role, outcome, err := h.service.CreateRole(r.Context(), req.Name, req.Slug, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if outcome == OutcomeAlreadyExists {
		status = http.StatusOK
	}
	httpx.JSON(w, status, roleBody(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	slug := authz.RoleSlug(chi.URLParam(r, "slug"))
	if err := h.service.DeleteRole(r.Context(), slug); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Detail(w, http.StatusOK, "Role deleted.")
}

type createResourceRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) createResource(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Detail(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}
	resource, outcome, err := h.service.CreateResource(r.Context(), req.Code, req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if outcome == OutcomeAlreadyExists {
		status = http.StatusOK
	}
	httpx.JSON(w, status, map[string]any{
		"id":          resource.ID,
		"code":        resource.Code,
		"name":        resource.Name,
		"description": resource.Description,
	})
}

func roleBody(role *authz.Role) map[string]any {
	return map[string]any{
		"id":          role.ID,
		"name":        role.Name,
		"slug":        role.Slug,
		"description": role.Description,
	}
}
