package models

import "time"

// RoomStatus reflects whether a room can accept allocations.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "AVAILABLE"
	RoomStatusFull        RoomStatus = "FULL"
	RoomStatusMaintenance RoomStatus = "MAINTENANCE"
)

// RoomType enumerates room configurations.
type RoomType string

const (
	RoomTypeSingle RoomType = "SINGLE"
	RoomTypeDouble RoomType = "DOUBLE"
	RoomTypeTriple RoomType = "TRIPLE"
	RoomTypeDorm   RoomType = "DORM"
)

// Room belongs to exactly one hostel. Membership is owned by the room_members
// table; Occupied always equals the member count and is recomputed inside the
// same transaction as every membership write. Status is FULL exactly when
// Occupied >= Capacity, unless an operator has forced MAINTENANCE.
type Room struct {
	ID        string     `db:"id" json:"id"`
	HostelID  string     `db:"hostel_id" json:"hostel_id"`
	Number    string     `db:"number" json:"number"`
	Floor     int        `db:"floor" json:"floor"`
	Type      RoomType   `db:"type" json:"type"`
	Capacity  int        `db:"capacity" json:"capacity"`
	Occupied  int        `db:"occupied" json:"occupied"`
	Status    RoomStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// RoomMember is a row of the membership set a room owns.
type RoomMember struct {
	StudentID string    `db:"student_id" json:"student_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	RegNo     string    `db:"reg_no" json:"reg_no"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

// RoomDetail is a room with hostel context and resolved members.
type RoomDetail struct {
	Room
	HostelName string       `db:"hostel_name" json:"hostel_name"`
	Members    []RoomMember `json:"members"`
}

// RoomFilter captures filtering criteria for listing rooms.
type RoomFilter struct {
	HostelID  string
	Status    RoomStatus
	Floor     *int
	Available bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
