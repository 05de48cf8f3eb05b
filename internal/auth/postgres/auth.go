package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/frahmantamala/permission-management/internal"
	userDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("institutional_email = ?", strings.ToLower(email)).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return &u, nil
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

// Create inserts u. A unique violation that slipped past the pre-checks is
// reported as the matching conflict.
func (r *Repository) Create(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		if taken, _ := r.EmailExists(ctx, u.Email, 0); taken {
			return internal.ErrEmailTaken
		}
		return internal.ErrStudentCodeTaken
	}
	return internal.NewInternalError("failed to create user", err)
}

func (r *Repository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, "institutional_email = ?", strings.ToLower(email), excludeID)
}

func (r *Repository) StudentCodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	return r.exists(ctx, "student_code = ?", code, excludeID)
}

func (r *Repository) exists(ctx context.Context, cond string, value string, excludeID int64) (bool, error) {
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

func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return internal.NewInternalError("failed to update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}
