package models

import "time"

// StudentStatus tracks a student through the admission and allocation workflow.
type StudentStatus string

const (
	StudentStatusPending   StudentStatus = "PENDING"
	StudentStatusApproved  StudentStatus = "APPROVED"
	StudentStatusRejected  StudentStatus = "REJECTED"
	StudentStatusAllocated StudentStatus = "ALLOCATED"
)

// Student represents a resident registered with the hostel administration.
// RoomID and HostelID mirror the room_members table; room_members is the
// source of truth and both columns are only ever written inside the same
// transaction as the membership change.
type Student struct {
	ID        string        `db:"id" json:"id"`
	RegNo     string        `db:"reg_no" json:"reg_no"`
	FullName  string        `db:"full_name" json:"full_name"`
	Gender    string        `db:"gender" json:"gender"`
	Course    string        `db:"course" json:"course"`
	Year      int           `db:"year" json:"year"`
	Phone     string        `db:"phone" json:"phone"`
	Email     string        `db:"email" json:"email"`
	Status    StudentStatus `db:"status" json:"status"`
	RoomID    *string       `db:"room_id" json:"room_id,omitempty"`
	HostelID  *string       `db:"hostel_id" json:"hostel_id,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	HostelID  string
	RoomID    string
	Status    StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with resolved room and hostel context.
type StudentDetail struct {
	Student
	RoomNumber *string `db:"room_number" json:"room_number,omitempty"`
	HostelName *string `db:"hostel_name" json:"hostel_name,omitempty"`
}
