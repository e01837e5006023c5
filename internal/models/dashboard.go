package models

import "time"

// DashboardSummary aggregates admin dashboard counters. Occupancy figures are
// derived from room membership at query time, never from stored counters.
type DashboardSummary struct {
	TotalStudents       int                   `json:"total_students"`
	StudentsByStatus    map[StudentStatus]int `json:"students_by_status"`
	TotalHostels        int                   `json:"total_hostels"`
	TotalRooms          int                   `json:"total_rooms"`
	TotalCapacity       int                   `json:"total_capacity"`
	TotalOccupied       int                   `json:"total_occupied"`
	OccupancyByHostel   []HostelOccupancy     `json:"occupancy_by_hostel"`
	OpenComplaints      int                   `json:"open_complaints"`
	PendingApplications int                   `json:"pending_applications"`
	PendingLeaves       int                   `json:"pending_leaves"`
	GeneratedAt         time.Time             `json:"generated_at"`
}

// HostelOccupancy is a per-hostel occupancy row on the dashboard.
type HostelOccupancy struct {
	HostelID   string `db:"hostel_id" json:"hostel_id"`
	HostelName string `db:"hostel_name" json:"hostel_name"`
	Rooms      int    `db:"rooms" json:"rooms"`
	Capacity   int    `db:"capacity" json:"capacity"`
	Occupied   int    `db:"occupied" json:"occupied"`
}

// SystemMetrics is a lightweight runtime snapshot exposed to admins.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
