package permission

import "time"

type PermissionRequest struct {
	ID            int64      `gorm:"primaryKey"`
	RequesterID   int64      `gorm:"column:requester_id;not null;index"`
	Reason        string     `gorm:"column:reason;not null"`
	StartDate     time.Time  `gorm:"column:start_date;type:date;not null"`
	EndDate       time.Time  `gorm:"column:end_date;type:date;not null"`
	Status        string     `gorm:"column:status;not null;default:pending;index"`
	ReviewerID    *int64     `gorm:"column:reviewer_id"`
	ReviewComment string     `gorm:"column:review_comment;not null;default:''"`
	RequestedAt   time.Time  `gorm:"column:requested_at;not null"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at"`
}

func (PermissionRequest) TableName() string {
	return "permission_requests"
}

// PermissionView is a request joined with requester and reviewer names.
type PermissionView struct {
	PermissionRequest
	RequesterName        string  `gorm:"column:requester_name"`
	RequesterSurname     string  `gorm:"column:requester_surname"`
	RequesterStudentCode *string `gorm:"column:requester_student_code"`
	ReviewerName         *string `gorm:"column:reviewer_name"`
	ReviewerSurname      *string `gorm:"column:reviewer_surname"`
}

type Stats struct {
	Total    int64 `db:"total"`
	Pending  int64 `db:"pending"`
	Approved int64 `db:"approved"`
	Rejected int64 `db:"rejected"`
}
