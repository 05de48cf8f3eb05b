package user

import (
	"context"
	"log/slog"
	"strings"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/auth"
	"github.com/frahmantamala/permission-management/internal/core/common/pagination"
	userDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	List(ctx context.Context, filter ListFilter) ([]*userDatamodel.User, int64, error)
	ListStudents(ctx context.Context) ([]*userDatamodel.User, error)
	Search(ctx context.Context, query string, page pagination.Params) ([]*userDatamodel.User, int64, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
	StudentCodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Deactivate(ctx context.Context, id int64) error
	Stats(ctx context.Context, id int64) (*Stats, error)
}

type ServiceAPI interface {
	List(ctx context.Context, filter ListFilter) (pagination.Page[*User], error)
	Students(ctx context.Context) ([]*User, error)
	Search(ctx context.Context, query string, page pagination.Params) (pagination.Page[*User], error)
	Get(ctx context.Context, p *auth.Principal, id int64) (*User, error)
	Update(ctx context.Context, p *auth.Principal, id int64, dto UpdateUserDTO) (*User, error)
	Deactivate(ctx context.Context, p *auth.Principal, id int64) error
	Stats(ctx context.Context, p *auth.Principal, id int64) (*Stats, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) (pagination.Page[*User], error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list users", "error", err)
		return pagination.Page[*User]{}, err
	}
	return pagination.NewPage(FromDataModels(users), filter.Page, total), nil
}

// Students returns active students ordered by surname, name.
func (s *Service) Students(ctx context.Context) ([]*User, error) {
	users, err := s.repo.ListStudents(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list students", "error", err)
		return nil, err
	}
	return FromDataModels(users), nil
}

func (s *Service) Search(ctx context.Context, query string, page pagination.Params) (pagination.Page[*User], error) {
	query = strings.TrimSpace(query)
	if err := requireQuery(query); err != nil {
		return pagination.Page[*User]{}, err
	}
	users, total, err := s.repo.Search(ctx, query, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to search users", "query", query, "error", err)
		return pagination.Page[*User]{}, err
	}
	return pagination.NewPage(FromDataModels(users), page, total), nil
}

func (s *Service) Get(ctx context.Context, p *auth.Principal, id int64) (*User, error) {
	if err := auth.RequireOwnershipOrElevated(p, id, auth.ElevatedRoles...); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(u), nil
}

// Update applies a partial update. Role and active changes need a director.
func (s *Service) Update(ctx context.Context, p *auth.Principal, id int64, dto UpdateUserDTO) (*User, error) {
	if err := auth.RequireOwnershipOrElevated(p, id, auth.ElevatedRoles...); err != nil {
		return nil, err
	}
	if dto.TouchesPrivileges() {
		if err := auth.RequireRole(p, auth.RoleDirector); err != nil {
			s.logger.WarnContext(ctx, "privilege change refused", "user_id", p.UserID, "target_id", id)
			return nil, err
		}
		if dto.Active != nil && !*dto.Active && p.UserID == id {
			return nil, internal.ErrCannotDeactivateSelf
		}
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if dto.Name != nil {
		fields["name"] = *dto.Name
	}
	if dto.Surname != nil {
		fields["surname"] = *dto.Surname
	}
	if dto.Email != nil && *dto.Email != existing.Email {
		taken, err := s.repo.EmailExists(ctx, *dto.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, internal.ErrEmailTaken
		}
		fields["institutional_email"] = *dto.Email
	}
	if dto.StudentCode != nil {
		if *dto.StudentCode == "" {
			fields["student_code"] = nil
		} else {
			taken, err := s.repo.StudentCodeExists(ctx, *dto.StudentCode, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, internal.ErrStudentCodeTaken
			}
			fields["student_code"] = *dto.StudentCode
		}
	}
	if dto.Role != nil {
		fields["role"] = *dto.Role
	}
	if dto.Active != nil {
		fields["active"] = *dto.Active
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			s.logger.ErrorContext(ctx, "failed to update user", "target_id", id, "error", err)
			return nil, err
		}
		s.logger.InfoContext(ctx, "user updated", "target_id", id, "by", p.UserID, "fields", len(fields))
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(updated), nil
}

// Deactivate soft-deletes a user. Records are never removed.
func (s *Service) Deactivate(ctx context.Context, p *auth.Principal, id int64) error {
	if err := auth.RequireRole(p, auth.RoleDirector); err != nil {
		return err
	}
	if p.UserID == id {
		return internal.ErrCannotDeactivateSelf
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to deactivate user", "target_id", id, "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "user deactivated", "target_id", id, "by", p.UserID)
	return nil
}

func (s *Service) Stats(ctx context.Context, p *auth.Principal, id int64) (*Stats, error) {
	if err := auth.RequireOwnershipOrElevated(p, id, auth.ElevatedRoles...); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx, id)
}

func requireQuery(q string) error {
	if q == "" {
		return internal.NewValidationFieldError("q", "q is required", internal.ErrCodeRequired)
	}
	return nil
}
