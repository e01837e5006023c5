package models

import "time"

// ComplaintStatus tracks a complaint through resolution.
type ComplaintStatus string

const (
	ComplaintStatusOpen       ComplaintStatus = "OPEN"
	ComplaintStatusInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintStatusResolved   ComplaintStatus = "RESOLVED"
)

// ComplaintCategory groups complaints for triage.
type ComplaintCategory string

const (
	ComplaintCategoryElectrical  ComplaintCategory = "ELECTRICAL"
	ComplaintCategoryPlumbing    ComplaintCategory = "PLUMBING"
	ComplaintCategoryCleanliness ComplaintCategory = "CLEANLINESS"
	ComplaintCategoryFood        ComplaintCategory = "FOOD"
	ComplaintCategoryOther       ComplaintCategory = "OTHER"
)

// Complaint is an issue filed by a student against their room or hostel.
type Complaint struct {
	ID         string            `db:"id" json:"id"`
	StudentID  string            `db:"student_id" json:"student_id"`
	HostelID   *string           `db:"hostel_id" json:"hostel_id,omitempty"`
	RoomID     *string           `db:"room_id" json:"room_id,omitempty"`
	Category   ComplaintCategory `db:"category" json:"category"`
	Subject    string            `db:"subject" json:"subject"`
	Body       string            `db:"body" json:"body"`
	Status     ComplaintStatus   `db:"status" json:"status"`
	Resolution *string           `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy *string           `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time        `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// ComplaintDetail resolves the complainant for listings.
type ComplaintDetail struct {
	Complaint
	StudentName string  `db:"student_name" json:"student_name"`
	HostelName  *string `db:"hostel_name" json:"hostel_name,omitempty"`
}

// ComplaintFilter captures filtering criteria for listing complaints.
type ComplaintFilter struct {
	StudentID string
	HostelID  string
	Status    ComplaintStatus
	Category  ComplaintCategory
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
