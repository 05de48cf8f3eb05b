package user

import (
	"strconv"
	"strings"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/auth"
	"github.com/frahmantamala/permission-management/internal/core/common/pagination"
	"github.com/frahmantamala/permission-management/internal/core/common/validation"
)

// ListFilter narrows GET /usuarios. Nil fields are not applied.
type ListFilter struct {
	Role   *auth.Role
	Active *bool
	Page   pagination.Params
}

// ParseListFilter reads role and active from the query string.
func ParseListFilter(rawRole, rawActive string, page pagination.Params) (ListFilter, error) {
	f := ListFilter{Page: page}
	v := validation.NewValidator()

	if rawRole != "" {
		role, err := auth.ParseRole(rawRole)
		if err != nil {
			v.AddError("role", "role must be one of "+strings.Join(auth.RoleNames(), ", "), internal.ErrCodeInvalidRole)
		} else {
			f.Role = &role
		}
	}

	if rawActive != "" {
		active, err := strconv.ParseBool(rawActive)
		if err != nil {
			v.AddError("active", "active must be true or false", internal.ErrCodeValidationFailed)
		} else {
			f.Active = &active
		}
	}

	if err := v.Validate(); err != nil {
		return ListFilter{}, err
	}
	return f, nil
}

// UpdateUserDTO is a partial update; only non-nil fields change.
type UpdateUserDTO struct {
	Name        *string `json:"name,omitempty"`
	Surname     *string `json:"surname,omitempty"`
	Email       *string `json:"institutional_email,omitempty"`
	StudentCode *string `json:"student_code,omitempty"`
	Role        *string `json:"role,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

func (d *UpdateUserDTO) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(d.Name)
	trim(d.Surname)
	trim(d.StudentCode)
	if d.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*d.Email))
		d.Email = &e
	}
	if d.Role != nil {
		r := strings.ToLower(strings.TrimSpace(*d.Role))
		d.Role = &r
	}
}

func (d UpdateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MinLength(2).MaxLength(100)
	}
	if d.Surname != nil {
		v.Field("surname", *d.Surname).Required().MinLength(2).MaxLength(100)
	}
	if d.Email != nil {
		v.Field("institutional_email", *d.Email).Required().Email().MaxLength(255)
	}
	if d.StudentCode != nil {
		v.Field("student_code", *d.StudentCode).MaxLength(20)
	}
	if d.Role != nil {
		v.Field("role", *d.Role).Required().OneOf(internal.ErrCodeInvalidRole, auth.RoleNames()...)
	}
	return v.Validate()
}

func (d UpdateUserDTO) Empty() bool {
	return d.Name == nil && d.Surname == nil && d.Email == nil &&
		d.StudentCode == nil && d.Role == nil && d.Active == nil
}

// TouchesPrivileges reports whether the update changes role or active flag.
func (d UpdateUserDTO) TouchesPrivileges() bool {
	return d.Role != nil || d.Active != nil
}
