package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/core/common/pagination"
	userDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/user"
	"github.com/frahmantamala/permission-management/internal/user"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

const userStatsQuery = `
SELECT
	COUNT(*) AS total_requests,
	COUNT(CASE WHEN status = 'approved' THEN 1 END) AS approved_requests,
	COUNT(CASE WHEN status = 'pending' THEN 1 END) AS pending_requests,
	COUNT(CASE WHEN status = 'rejected' THEN 1 END) AS rejected_requests
FROM permission_requests
WHERE requester_id = ?`

// Repository stores users through gorm; aggregate reads go through sqlx on the same pool.
type Repository struct {
	db *gorm.DB
	sx *sqlx.DB
}

func NewRepository(db *gorm.DB, sx *sqlx.DB) *Repository {
	return &Repository{db: db, sx: sx}
}

func (r *Repository) List(ctx context.Context, filter user.ListFilter) ([]*userDatamodel.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{})
	if filter.Role != nil {
		q = q.Where("role = ?", string(*filter.Role))
	}
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, internal.NewInternalError("failed to count users", err)
	}

	var users []*userDatamodel.User
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()).
		Find(&users).Error
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to list users", err)
	}
	return users, total, nil
}

func (r *Repository) ListStudents(ctx context.Context) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND active = ?", "student", true).
		Order("surname ASC").Order("name ASC").
		Find(&users).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list students", err)
	}
	return users, nil
}

// Search matches active users whose name, surname, email or student code
// contains query, ignoring case.
func (r *Repository) Search(ctx context.Context, query string, page pagination.Params) ([]*userDatamodel.User, int64, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("active = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(surname) LIKE ? OR LOWER(institutional_email) LIKE ? OR LOWER(COALESCE(student_code, '')) LIKE ?",
			pattern, pattern, pattern, pattern)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, internal.NewInternalError("failed to count users", err)
	}

	var users []*userDatamodel.User
	err := q.Order("surname ASC").Order("name ASC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&users).Error
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to search users", err)
	}
	return users, total, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return &u, nil
}

func (r *Repository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, "institutional_email = ?", strings.ToLower(email), excludeID)
}

func (r *Repository) StudentCodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	return r.exists(ctx, "student_code = ?", code, excludeID)
}

func (r *Repository) exists(ctx context.Context, cond, value string, excludeID int64) (bool, error) {
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where(cond, value)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, internal.NewInternalError("failed to check uniqueness", err)
	}
	return count > 0, nil
}

func (r *Repository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			if email, ok := fields["institutional_email"].(string); ok {
				if taken, _ := r.EmailExists(ctx, email, id); taken {
					return internal.ErrEmailTaken
				}
			}
			return internal.ErrStudentCodeTaken
		}
		return internal.NewInternalError("failed to update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	return r.Update(ctx, id, map[string]interface{}{"active": false})
}

func (r *Repository) Stats(ctx context.Context, id int64) (*user.Stats, error) {
	var stats user.Stats
	if err := r.sx.GetContext(ctx, &stats, r.sx.Rebind(userStatsQuery), id); err != nil {
		return nil, internal.NewInternalError("failed to load user stats", err)
	}
	return &stats, nil
}
