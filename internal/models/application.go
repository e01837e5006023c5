package models

import "time"

// ApplicationStatus tracks a hostel application through review.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// Application is a student's request for hostel accommodation.
type Application struct {
	ID         string            `db:"id" json:"id"`
	StudentID  string            `db:"student_id" json:"student_id"`
	HostelID   string            `db:"hostel_id" json:"hostel_id"`
	Status     ApplicationStatus `db:"status" json:"status"`
	Remarks    string            `db:"remarks" json:"remarks"`
	ReviewedBy *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationDetail resolves student and hostel names for listings.
type ApplicationDetail struct {
	Application
	StudentName string `db:"student_name" json:"student_name"`
	StudentReg  string `db:"student_reg" json:"student_reg"`
	HostelName  string `db:"hostel_name" json:"hostel_name"`
}

// ApplicationFilter captures filtering criteria for listing applications.
type ApplicationFilter struct {
	StudentID string
	HostelID  string
	Status    ApplicationStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
