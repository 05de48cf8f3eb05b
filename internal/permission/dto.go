package permission

import (
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/core/common/pagination"
	"github.com/frahmantamala/permission-management/internal/core/common/validation"
)

type CreatePermissionDTO struct {
	Reason    string `json:"reason"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (d *CreatePermissionDTO) Normalize() {
	d.Reason = strings.TrimSpace(d.Reason)
	d.StartDate = strings.TrimSpace(d.StartDate)
	d.EndDate = strings.TrimSpace(d.EndDate)
}

// Validate checks the fields and returns the parsed dates.
func (d CreatePermissionDTO) Validate(wf internal.WorkflowConfig) (start, end time.Time, appErr *internal.AppError) {
	v := validation.NewValidator()
	v.Field("reason", d.Reason).Required().MinLength(wf.ReasonMinLength).MaxLength(wf.ReasonMaxLength)
	v.Field("start_date", d.StartDate).Required().Date()
	v.Field("end_date", d.EndDate).Required().Date()

	start, startErr := validation.ParseDate(d.StartDate)
	end, endErr := validation.ParseDate(d.EndDate)
	if startErr == nil && endErr == nil && end.Before(start) {
		v.AddError("end_date", "end_date must be on or after start_date", internal.ErrCodeInvalidDateRange)
	}

	if appErr = v.Validate(); appErr != nil {
		return time.Time{}, time.Time{}, appErr
	}
	return start, end, nil
}

type ReviewDTO struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

func (d *ReviewDTO) Normalize() {
	d.Status = strings.ToLower(strings.TrimSpace(d.Status))
	d.Comment = strings.TrimSpace(d.Comment)
}

func (d ReviewDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", d.Status).Required().OneOf(internal.ErrCodeInvalidStatus, string(StatusApproved), string(StatusRejected))
	v.Field("comment", d.Comment).MaxLength(1000)
	return v.Validate()
}

// ListFilter narrows list queries. RequesterID is forced to the caller for students.
type ListFilter struct {
	RequesterID *int64
	Status      *Status
	Page        pagination.Params
}

// ParseListFilter reads status and requester_id from the query string.
func ParseListFilter(rawStatus, rawRequester string, page pagination.Params) (ListFilter, error) {
	f := ListFilter{Page: page}
	v := validation.NewValidator()

	if rawStatus != "" {
		st, err := ParseStatus(rawStatus)
		if err != nil {
			v.AddError("status", "status must be one of pending, approved, rejected", internal.ErrCodeInvalidStatus)
		} else {
			f.Status = &st
		}
	}

	if rawRequester != "" {
		id, err := parsePositiveID(rawRequester)
		if err != nil {
			v.AddError("requester_id", "requester_id must be a positive integer", internal.ErrCodeInvalidID)
		} else {
			f.RequesterID = &id
		}
	}

	if err := v.Validate(); err != nil {
		return ListFilter{}, err
	}
	return f, nil
}

func parsePositiveID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
