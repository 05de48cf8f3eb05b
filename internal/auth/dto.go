package auth

import (
	"strings"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d *LoginDTO) Normalize() {
	d.Email = normalizeEmail(d.Email)
}

func (d LoginDTO) Validate(passwordMin int) *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(passwordMin)
	return v.Validate()
}

type RegisterDTO struct {
	Name        string  `json:"name"`
	Surname     string  `json:"surname"`
	Email       string  `json:"institutional_email"`
	Password    string  `json:"password"`
	StudentCode *string `json:"student_code,omitempty"`
	Role        string  `json:"role,omitempty"`
}

func (d *RegisterDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Surname = strings.TrimSpace(d.Surname)
	d.Email = normalizeEmail(d.Email)
	if d.StudentCode != nil {
		code := strings.TrimSpace(*d.StudentCode)
		if code == "" {
			d.StudentCode = nil
		} else {
			d.StudentCode = &code
		}
	}
	d.Role = strings.ToLower(strings.TrimSpace(d.Role))
}

// Validate only admits the student role: teacher and director accounts are
// provisioned by a director.
func (d RegisterDTO) Validate(passwordMin int) *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(100)
	v.Field("surname", d.Surname).Required().MinLength(2).MaxLength(100)
	v.Field("institutional_email", d.Email).Required().Email().MaxLength(255)
	v.Field("password", d.Password).Required().MinLength(passwordMin).MaxLength(72)
	v.Field("student_code", d.StudentCode).MaxLength(20)
	v.Field("role", d.Role).OneOf(internal.ErrCodeInvalidRole, string(RoleStudent))
	return v.Validate()
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	return v.Validate()
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate(passwordMin int) *internal.AppError {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(passwordMin).MaxLength(72)
	if d.NewPassword != "" && d.NewPassword == d.CurrentPassword {
		v.AddError("new_password", "new_password must differ from current_password", internal.ErrCodeValidationFailed)
	}
	return v.Validate()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
