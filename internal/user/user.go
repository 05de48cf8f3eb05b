package user

import (
	"time"

	"github.com/frahmantamala/permission-management/internal/auth"
	userDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/user"
)

// User is the public view of an account. The password hash never leaves the repository layer.
type User struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	Email       string    `json:"institutional_email"`
	StudentCode *string   `json:"student_code,omitempty"`
	Role        auth.Role `json:"role"`
	RoleLabel   string    `json:"role_label"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	return u.Name + " " + u.Surname
}

func (u *User) IsStudent() bool {
	return u.Role == auth.RoleStudent
}

// Stats counts the permission requests filed by one user.
type Stats struct {
	TotalRequests    int64 `json:"total_requests" db:"total_requests"`
	ApprovedRequests int64 `json:"approved_requests" db:"approved_requests"`
	PendingRequests  int64 `json:"pending_requests" db:"pending_requests"`
	RejectedRequests int64 `json:"rejected_requests" db:"rejected_requests"`
}

func FromDataModel(u *userDatamodel.User) *User {
	role := auth.Role(u.Role)
	return &User{
		ID:          u.ID,
		Name:        u.Name,
		Surname:     u.Surname,
		Email:       u.Email,
		StudentCode: u.StudentCode,
		Role:        role,
		RoleLabel:   role.Label(),
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func FromDataModels(us []*userDatamodel.User) []*User {
	out := make([]*User, 0, len(us))
	for _, u := range us {
		out = append(out, FromDataModel(u))
	}
	return out
}
