package models

import "time"

// HostelType separates residences by intake.
type HostelType string

const (
	HostelTypeBoys  HostelType = "BOYS"
	HostelTypeGirls HostelType = "GIRLS"
)

// Hostel represents a residential building containing rooms.
// Occupancy aggregates are not stored; they are computed on read by summing
// the hostel's rooms (HostelSummary).
type Hostel struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Type      HostelType `db:"type" json:"type"`
	Address   string     `db:"address" json:"address"`
	WardenID  *string    `db:"warden_id" json:"warden_id,omitempty"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// HostelSummary is a hostel with occupancy aggregates derived from room state.
type HostelSummary struct {
	Hostel
	WardenName    *string `db:"warden_name" json:"warden_name,omitempty"`
	TotalRooms    int     `db:"total_rooms" json:"total_rooms"`
	TotalCapacity int     `db:"total_capacity" json:"total_capacity"`
	Occupied      int     `db:"occupied" json:"occupied"`
}

// HostelFilter captures filtering criteria for listing hostels.
type HostelFilter struct {
	Search    string
	Type      HostelType
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
