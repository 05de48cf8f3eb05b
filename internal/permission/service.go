package permission

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/auth"
	"github.com/frahmantamala/permission-management/internal/core/common/pagination"
	permissionDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/permission"
	"github.com/frahmantamala/permission-management/internal/core/events"
)

type RepositoryAPI interface {
	Create(ctx context.Context, p *permissionDatamodel.PermissionRequest) error
	GetByID(ctx context.Context, id int64) (*permissionDatamodel.PermissionView, error)
	List(ctx context.Context, filter ListFilter) ([]*permissionDatamodel.PermissionView, int64, error)
	ListPending(ctx context.Context, page pagination.Params) ([]*permissionDatamodel.PermissionView, int64, error)
	Search(ctx context.Context, query string, requesterID *int64, page pagination.Params) ([]*permissionDatamodel.PermissionView, int64, error)
	// Review updates the row only while it is pending and reports the rows changed.
	Review(ctx context.Context, id, reviewerID int64, status Status, comment string, reviewedAt time.Time) (int64, error)
	// Delete removes the row only while it is pending and owned by requesterID.
	Delete(ctx context.Context, id, requesterID int64) (int64, error)
	Stats(ctx context.Context, requesterID *int64) (*permissionDatamodel.Stats, error)
}

type ServiceAPI interface {
	Create(ctx context.Context, p *auth.Principal, dto CreatePermissionDTO) (*Permission, error)
	Review(ctx context.Context, p *auth.Principal, id int64, dto ReviewDTO) (*Permission, error)
	Delete(ctx context.Context, p *auth.Principal, id int64) error
	Get(ctx context.Context, p *auth.Principal, id int64) (*Permission, error)
	List(ctx context.Context, p *auth.Principal, filter ListFilter) (pagination.Page[*Permission], error)
	Pending(ctx context.Context, p *auth.Principal, page pagination.Params) (pagination.Page[*Permission], error)
	Stats(ctx context.Context, p *auth.Principal) (*Stats, error)
	Search(ctx context.Context, p *auth.Principal, query string, page pagination.Params) (pagination.Page[*Permission], error)
}

type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	workflow  internal.WorkflowConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, publisher events.Publisher, workflow internal.WorkflowConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	workflow.ApplyDefaults()
	return &Service{
		repo:      repo,
		publisher: publisher,
		workflow:  workflow,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for requested_at and reviewed_at.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Create files a new pending request for the calling student.
func (s *Service) Create(ctx context.Context, p *auth.Principal, dto CreatePermissionDTO) (*Permission, error) {
	if err := auth.RequireRole(p, auth.RoleStudent); err != nil {
		return nil, err
	}

	dto.Normalize()
	start, end, appErr := dto.Validate(s.workflow)
	if appErr != nil {
		return nil, appErr
	}

	req := &permissionDatamodel.PermissionRequest{
		RequesterID:   p.UserID,
		Reason:        dto.Reason,
		StartDate:     start,
		EndDate:       end,
		Status:        string(StatusPending),
		ReviewComment: "",
		RequestedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "failed to create permission request", "requester_id", p.UserID, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "permission request created",
		"permission_id", req.ID,
		"requester_id", p.UserID,
		"start_date", dto.StartDate,
		"end_date", dto.EndDate)
	s.publish(ctx, events.NewPermissionCreatedEvent(req.ID, p.UserID))

	return s.load(ctx, req.ID)
}

// Review moves a pending request to approved or rejected. Exactly one of
// several concurrent reviewers wins; the rest get ErrAlreadyReviewed.
func (s *Service) Review(ctx context.Context, p *auth.Principal, id int64, dto ReviewDTO) (*Permission, error) {
	if err := auth.RequireAnyRole(p, auth.ElevatedRoles...); err != nil {
		return nil, err
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	status := Status(dto.Status)

	rows, err := s.repo.Review(ctx, id, p.UserID, status, dto.Comment, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to review permission request", "permission_id", id, "error", err)
		return nil, err
	}
	if rows == 0 {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		s.logger.WarnContext(ctx, "permission request already reviewed", "permission_id", id, "reviewer_id", p.UserID)
		return nil, internal.ErrAlreadyReviewed
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "permission request reviewed",
		"permission_id", id,
		"reviewer_id", p.UserID,
		"status", status)
	s.publish(ctx, events.NewPermissionReviewedEvent(id, updated.RequesterID, p.UserID, string(status)))

	return updated, nil
}

// Delete removes a pending request. Only its requester may do so.
func (s *Service) Delete(ctx context.Context, p *auth.Principal, id int64) error {
	if err := auth.RequireAuthenticated(p); err != nil {
		return err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.RequesterID != p.UserID {
		return internal.ErrNotOwner
	}
	if Status(existing.Status) != StatusPending {
		return internal.ErrNotPending
	}

	rows, err := s.repo.Delete(ctx, id, p.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete permission request", "permission_id", id, "error", err)
		return err
	}
	if rows == 0 {
		// reviewed between the read and the delete
		return internal.ErrNotPending
	}

	s.logger.InfoContext(ctx, "permission request deleted", "permission_id", id, "requester_id", p.UserID)
	s.publish(ctx, events.NewPermissionDeletedEvent(id, p.UserID))
	return nil
}

func (s *Service) Get(ctx context.Context, p *auth.Principal, id int64) (*Permission, error) {
	if err := auth.RequireAuthenticated(p); err != nil {
		return nil, err
	}
	view, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnershipOrElevated(p, view.RequesterID, auth.ElevatedRoles...); err != nil {
		return nil, err
	}
	return FromView(view), nil
}

// List pages through requests, newest first. Students only ever see their own.
func (s *Service) List(ctx context.Context, p *auth.Principal, filter ListFilter) (pagination.Page[*Permission], error) {
	if err := auth.RequireAuthenticated(p); err != nil {
		return pagination.Page[*Permission]{}, err
	}
	if !p.Role.IsElevated() {
		own := p.UserID
		filter.RequesterID = &own
	}

	views, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list permission requests", "error", err)
		return pagination.Page[*Permission]{}, err
	}
	return pagination.NewPage(FromViews(views), filter.Page, total), nil
}

// Pending is the review queue, oldest first.
func (s *Service) Pending(ctx context.Context, p *auth.Principal, page pagination.Params) (pagination.Page[*Permission], error) {
	if err := auth.RequireAnyRole(p, auth.ElevatedRoles...); err != nil {
		return pagination.Page[*Permission]{}, err
	}
	views, total, err := s.repo.ListPending(ctx, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list pending permission requests", "error", err)
		return pagination.Page[*Permission]{}, err
	}
	return pagination.NewPage(FromViews(views), page, total), nil
}

// Stats counts the caller's own requests for students and every request otherwise.
func (s *Service) Stats(ctx context.Context, p *auth.Principal) (*Stats, error) {
	if err := auth.RequireAuthenticated(p); err != nil {
		return nil, err
	}
	var requesterID *int64
	if !p.Role.IsElevated() {
		own := p.UserID
		requesterID = &own
	}
	stats, err := s.repo.Stats(ctx, requesterID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to compute permission stats", "error", err)
		return nil, err
	}
	return StatsFromDataModel(stats), nil
}

func (s *Service) Search(ctx context.Context, p *auth.Principal, query string, page pagination.Params) (pagination.Page[*Permission], error) {
	if err := auth.RequireAuthenticated(p); err != nil {
		return pagination.Page[*Permission]{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return pagination.Page[*Permission]{}, internal.NewValidationFieldError("q", "q is required", internal.ErrCodeRequired)
	}

	var requesterID *int64
	if !p.Role.IsElevated() {
		own := p.UserID
		requesterID = &own
	}

	views, total, err := s.repo.Search(ctx, query, requesterID, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to search permission requests", "query", query, "error", err)
		return pagination.Page[*Permission]{}, err
	}
	return pagination.NewPage(FromViews(views), page, total), nil
}

func (s *Service) load(ctx context.Context, id int64) (*Permission, error) {
	view, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromView(view), nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
