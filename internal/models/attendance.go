package models

import "time"

// AttendanceStatus enumerates daily roll call outcomes.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLeave   AttendanceStatus = "LEAVE"
)

// AttendanceRecord stores one student's roll call result for a date.
// (student_id, date) is unique; marking twice updates in place.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     string           `db:"notes" json:"notes"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail resolves the student for listings.
type AttendanceDetail struct {
	AttendanceRecord
	StudentName string `db:"student_name" json:"student_name"`
	StudentReg  string `db:"student_reg" json:"student_reg"`
}

// AttendanceFilter captures filtering criteria for attendance listings.
type AttendanceFilter struct {
	StudentID string
	HostelID  string
	Status    AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}
