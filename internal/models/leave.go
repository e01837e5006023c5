package models

import "time"

// LeaveStatus tracks a leave request through review.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "PENDING"
	LeaveStatusApproved LeaveStatus = "APPROVED"
	LeaveStatusRejected LeaveStatus = "REJECTED"
)

// LeaveRequest is a student's request to be away from the hostel.
type LeaveRequest struct {
	ID         string      `db:"id" json:"id"`
	StudentID  string      `db:"student_id" json:"student_id"`
	FromDate   time.Time   `db:"from_date" json:"from_date"`
	ToDate     time.Time   `db:"to_date" json:"to_date"`
	Reason     string      `db:"reason" json:"reason"`
	Status     LeaveStatus `db:"status" json:"status"`
	ReviewedBy *string     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time  `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// LeaveDetail resolves the requesting student for listings.
type LeaveDetail struct {
	LeaveRequest
	StudentName string `db:"student_name" json:"student_name"`
	StudentReg  string `db:"student_reg" json:"student_reg"`
}

// LeaveFilter captures filtering criteria for listing leave requests.
type LeaveFilter struct {
	StudentID string
	Status    LeaveStatus
	Page      int
	PageSize  int
}
