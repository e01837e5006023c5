package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hostelhub/hostel-adm-api/internal/models"
)

// DashboardRepository exposes read-optimised aggregate queries for the admin
// dashboard. Every occupancy figure is derived from rooms and room membership.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository instantiates the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// StudentCounts returns total students and a breakdown by status.
func (r *DashboardRepository) StudentCounts(ctx context.Context) (int, map[models.StudentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM students GROUP BY status`
	rows := []struct {
		Status models.StudentStatus `db:"status"`
		Total  int                  `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return 0, nil, fmt.Errorf("count students by status: %w", err)
	}
	total := 0
	byStatus := make(map[models.StudentStatus]int, len(rows))
	for _, row := range rows {
		byStatus[row.Status] = row.Total
		total += row.Total
	}
	return total, byStatus, nil
}

// OccupancyByHostel returns per-hostel room, capacity and occupancy totals.
func (r *DashboardRepository) OccupancyByHostel(ctx context.Context) ([]models.HostelOccupancy, error) {
	const query = `SELECT h.id AS hostel_id, h.name AS hostel_name,
COUNT(r.id) AS rooms,
COALESCE(SUM(r.capacity), 0) AS capacity,
COALESCE(SUM(r.occupied), 0) AS occupied
FROM hostels h
LEFT JOIN rooms r ON r.hostel_id = h.id
WHERE h.active = TRUE
GROUP BY h.id, h.name
ORDER BY h.name ASC`
	var occupancy []models.HostelOccupancy
	if err := r.db.SelectContext(ctx, &occupancy, query); err != nil {
		return nil, fmt.Errorf("query hostel occupancy: %w", err)
	}
	return occupancy, nil
}

// HostelCount returns the number of active hostels.
func (r *DashboardRepository) HostelCount(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM hostels WHERE active = TRUE"); err != nil {
		return 0, fmt.Errorf("count hostels: %w", err)
	}
	return total, nil
}

// OpenComplaintCount returns the number of complaints awaiting resolution.
func (r *DashboardRepository) OpenComplaintCount(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM complaints WHERE status <> 'RESOLVED'"); err != nil {
		return 0, fmt.Errorf("count open complaints: %w", err)
	}
	return total, nil
}

// PendingApplicationCount returns the number of applications awaiting review.
func (r *DashboardRepository) PendingApplicationCount(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM applications WHERE status = 'PENDING'"); err != nil {
		return 0, fmt.Errorf("count pending applications: %w", err)
	}
	return total, nil
}

// PendingLeaveCount returns the number of leave requests awaiting review.
func (r *DashboardRepository) PendingLeaveCount(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM leave_requests WHERE status = 'PENDING'"); err != nil {
		return 0, fmt.Errorf("count pending leaves: %w", err)
	}
	return total, nil
}
