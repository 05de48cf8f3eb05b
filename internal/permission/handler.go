package permission

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/auth"
	"github.com/frahmantamala/permission-management/internal/transport"
	"github.com/frahmantamala/permission-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	workflow internal.WorkflowConfig
}

func NewHandler(svc ServiceAPI, workflow internal.WorkflowConfig) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	workflow.ApplyDefaults()
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		workflow:    workflow,
	}
}

// CreatePermission handles POST /permisos
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	created, err := h.Service.Create(r.Context(), p, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusCreated, "Permission request created successfully", created)
}

// ListPermissions handles GET /permisos
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	page := h.PageParams(r, h.workflow.DefaultPageSize, h.workflow.MaxPageSize)
	q := r.URL.Query()
	filter, err := ParseListFilter(q.Get("status"), q.Get("requester_id"), page)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	result, err := h.Service.List(r.Context(), p, filter)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Permission requests retrieved successfully", result)
}

// GetPermission handles GET /permisos/{id}
func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	perm, err := h.Service.Get(r.Context(), p, id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Permission request retrieved successfully", perm)
}

// ReviewPermission handles PUT /permisos/{id}
func (h *Handler) ReviewPermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	var dto ReviewDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	perm, err := h.Service.Review(r.Context(), p, id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	msg := "Permission request approved successfully"
	if perm.Status == StatusRejected {
		msg = "Permission request rejected successfully"
	}
	h.WriteSuccess(w, http.StatusOK, msg, perm)
}

// DeletePermission handles DELETE /permisos/{id}
func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.Service.Delete(r.Context(), p, id); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Permission request deleted successfully", nil)
}

// ListPending handles GET /permisos/pending
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	page := h.PageParams(r, h.workflow.DefaultPageSize, h.workflow.MaxPageSize)
	p, _ := auth.PrincipalFromContext(r.Context())

	result, err := h.Service.Pending(r.Context(), p, page)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Pending permission requests retrieved successfully", result)
}

// GetStats handles GET /permisos/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	stats, err := h.Service.Stats(r.Context(), p)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Statistics retrieved successfully", stats)
}

// SearchPermissions handles GET /permisos/search?q=
func (h *Handler) SearchPermissions(w http.ResponseWriter, r *http.Request) {
	page := h.PageParams(r, h.workflow.DefaultPageSize, h.workflow.MaxPageSize)
	p, _ := auth.PrincipalFromContext(r.Context())

	result, err := h.Service.Search(r.Context(), p, r.URL.Query().Get("q"), page)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Search completed", result)
}
