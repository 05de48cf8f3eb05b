package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/core/common/pagination"
	permissionDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/permission"
	"github.com/frahmantamala/permission-management/internal/permission"
	"gorm.io/gorm"
)

const (
	viewFrom    = "permission_requests AS pr"
	viewColumns = "pr.*, u.name AS requester_name, u.surname AS requester_surname, u.student_code AS requester_student_code, rv.name AS reviewer_name, rv.surname AS reviewer_surname"
	joinUser    = "JOIN users u ON u.id = pr.requester_id"
	joinRev     = "LEFT JOIN users rv ON rv.id = pr.reviewer_id"
)

type PermissionRepository struct {
	db    *gorm.DB
	stats *StatsReader
}

func NewPermissionRepository(db *gorm.DB, stats *StatsReader) *PermissionRepository {
	return &PermissionRepository{db: db, stats: stats}
}

func (r *PermissionRepository) Create(ctx context.Context, p *permissionDatamodel.PermissionRequest) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return internal.NewInternalError("failed to create permission request", err)
	}
	return nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, id int64) (*permissionDatamodel.PermissionView, error) {
	var views []*permissionDatamodel.PermissionView
	err := r.view(ctx).Where("pr.id = ?", id).Limit(1).Scan(&views).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to load permission request", err)
	}
	if len(views) == 0 {
		return nil, internal.ErrPermissionNotFound
	}
	return views[0], nil
}

func (r *PermissionRepository) List(ctx context.Context, filter permission.ListFilter) ([]*permissionDatamodel.PermissionView, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.RequesterID != nil {
			db = db.Where("pr.requester_id = ?", *filter.RequesterID)
		}
		if filter.Status != nil {
			db = db.Where("pr.status = ?", string(*filter.Status))
		}
		return db
	}
	return r.page(ctx, scope, "pr.requested_at DESC, pr.id DESC", filter.Page)
}

func (r *PermissionRepository) ListPending(ctx context.Context, page pagination.Params) ([]*permissionDatamodel.PermissionView, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where("pr.status = ?", string(permission.StatusPending))
	}
	return r.page(ctx, scope, "pr.requested_at ASC, pr.id ASC", page)
}

// Search matches reason case-insensitively. LOWER + LIKE behaves the same on
// Postgres and SQLite, unlike ILIKE.
func (r *PermissionRepository) Search(ctx context.Context, query string, requesterID *int64, page pagination.Params) ([]*permissionDatamodel.PermissionView, int64, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("LOWER(pr.reason) LIKE ? ESCAPE '\\'", pattern)
		if requesterID != nil {
			db = db.Where("pr.requester_id = ?", *requesterID)
		}
		return db
	}
	return r.page(ctx, scope, "pr.requested_at DESC, pr.id DESC", page)
}

func (r *PermissionRepository) Review(ctx context.Context, id, reviewerID int64, status permission.Status, comment string, reviewedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&permissionDatamodel.PermissionRequest{}).
		Where("id = ? AND status = ?", id, string(permission.StatusPending)).
		Updates(map[string]interface{}{
			"status":         string(status),
			"reviewer_id":    reviewerID,
			"review_comment": comment,
			"reviewed_at":    reviewedAt,
		})
	if res.Error != nil {
		return 0, internal.NewInternalError("failed to review permission request", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PermissionRepository) Delete(ctx context.Context, id, requesterID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND requester_id = ? AND status = ?", id, requesterID, string(permission.StatusPending)).
		Delete(&permissionDatamodel.PermissionRequest{})
	if res.Error != nil {
		return 0, internal.NewInternalError("failed to delete permission request", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PermissionRepository) Stats(ctx context.Context, requesterID *int64) (*permissionDatamodel.Stats, error) {
	if r.stats == nil {
		return nil, internal.NewInternalError("stats reader not configured", errors.New("nil stats reader"))
	}
	return r.stats.Stats(ctx, requesterID)
}

func (r *PermissionRepository) view(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(viewFrom).Select(viewColumns).Joins(joinUser).Joins(joinRev)
}

func (r *PermissionRepository) page(ctx context.Context, scope func(*gorm.DB) *gorm.DB, order string, page pagination.Params) ([]*permissionDatamodel.PermissionView, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Table(viewFrom).Joins(joinUser).Scopes(scope).Count(&total).Error
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to count permission requests", err)
	}

	var views []*permissionDatamodel.PermissionView
	err = r.view(ctx).Scopes(scope).
		Order(order).
		Offset(page.Offset()).
		Limit(page.Limit()).
		Scan(&views).Error
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to list permission requests", err)
	}
	return views, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
