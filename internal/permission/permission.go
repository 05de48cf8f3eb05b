package permission

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/permission-management/internal/core/common/validation"
	permissionDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/permission"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ReviewOutcomes are the statuses a reviewer may set.
var ReviewOutcomes = []Status{StatusApproved, StatusRejected}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	}
	return "Unknown"
}

type Person struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Surname     string  `json:"surname"`
	StudentCode *string `json:"student_code,omitempty"`
}

// Permission is a permission request as returned by the API.
type Permission struct {
	ID            int64      `json:"id"`
	RequesterID   int64      `json:"requester_id"`
	Requester     *Person    `json:"requester,omitempty"`
	Reason        string     `json:"reason"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	Days          int        `json:"days"`
	Status        Status     `json:"status"`
	StatusLabel   string     `json:"status_label"`
	ReviewerID    *int64     `json:"reviewer_id"`
	Reviewer      *Person    `json:"reviewer,omitempty"`
	ReviewComment string     `json:"review_comment"`
	RequestedAt   time.Time  `json:"requested_at"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
}

type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// InclusiveDays counts calendar days from start to end, both included.
func InclusiveDays(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

func FromDataModel(p *permissionDatamodel.PermissionRequest) *Permission {
	status := Status(p.Status)
	return &Permission{
		ID:            p.ID,
		RequesterID:   p.RequesterID,
		Reason:        p.Reason,
		StartDate:     p.StartDate.Format(validation.DateLayout),
		EndDate:       p.EndDate.Format(validation.DateLayout),
		Days:          InclusiveDays(p.StartDate, p.EndDate),
		Status:        status,
		StatusLabel:   status.Label(),
		ReviewerID:    p.ReviewerID,
		ReviewComment: p.ReviewComment,
		RequestedAt:   p.RequestedAt,
		ReviewedAt:    p.ReviewedAt,
	}
}

func FromView(v *permissionDatamodel.PermissionView) *Permission {
	p := FromDataModel(&v.PermissionRequest)
	p.Requester = &Person{
		ID:          v.RequesterID,
		Name:        v.RequesterName,
		Surname:     v.RequesterSurname,
		StudentCode: v.RequesterStudentCode,
	}
	if v.ReviewerID != nil && v.ReviewerName != nil {
		reviewer := &Person{ID: *v.ReviewerID, Name: *v.ReviewerName}
		if v.ReviewerSurname != nil {
			reviewer.Surname = *v.ReviewerSurname
		}
		p.Reviewer = reviewer
	}
	return p
}

func FromViews(vs []*permissionDatamodel.PermissionView) []*Permission {
	out := make([]*Permission, 0, len(vs))
	for _, v := range vs {
		out = append(out, FromView(v))
	}
	return out
}

func StatsFromDataModel(s *permissionDatamodel.Stats) *Stats {
	return &Stats{
		Total:    s.Total,
		Pending:  s.Pending,
		Approved: s.Approved,
		Rejected: s.Rejected,
	}
}
