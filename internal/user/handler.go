package user

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

// ListUsers handles GET /usuarios
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := h.PageParams(r, h.workflow.DefaultPageSize, h.workflow.MaxPageSize)
	q := r.URL.Query()
	filter, err := ParseListFilter(q.Get("role"), q.Get("active"), page)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	result, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Users retrieved successfully", result)
}

// ListStudents handles GET /usuarios/students
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Service.Students(r.Context())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Students retrieved successfully", students)
}

// SearchUsers handles GET /usuarios/search?q=
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	page := h.PageParams(r, h.workflow.DefaultPageSize, h.workflow.MaxPageSize)
	result, err := h.Service.Search(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Search completed", result)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())

	u, err := h.Service.Get(r.Context(), p, id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "User retrieved successfully", u)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	var dto UpdateUserDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if dto.Empty() {
		h.WriteAppError(w, r, internal.NewValidationError("No fields to update", internal.ErrCodeValidationFailed))
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	u, err := h.Service.Update(r.Context(), p, id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "User updated successfully", u)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.Service.Deactivate(r.Context(), p, id); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "User deactivated successfully", nil)
}

func (h *Handler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	stats, err := h.Service.Stats(r.Context(), p, id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteSuccess(w, http.StatusOK, "User statistics retrieved successfully", stats)
}
