package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostelhub/hostel-adm-api/internal/models"
)

// LeaveRepository provides persistence for leave requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// List returns leave requests with the requesting student resolved.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveDetail, int, error) {
	base := `FROM leave_requests l
JOIN students s ON s.id = l.student_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("l.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("l.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT l.id, l.student_id, l.from_date, l.to_date, l.reason, l.status, l.reviewed_by, l.reviewed_at, l.created_at, l.updated_at,
s.full_name AS student_name, s.reg_no AS student_reg
%s WHERE %s ORDER BY l.created_at DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)

	var requests []models.LeaveDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return requests, total, nil
}

// GetByID returns a leave request by identifier.
func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	const query = `SELECT id, student_id, from_date, to_date, reason, status, reviewed_by, reviewed_at, created_at, updated_at FROM leave_requests WHERE id = $1`
	var request models.LeaveRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// HasOverlapping reports whether the student has a pending or approved leave
// overlapping the given window.
func (r *LeaveRepository) HasOverlapping(ctx context.Context, studentID string, from, to time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM leave_requests WHERE student_id = $1 AND status IN ('PENDING', 'APPROVED') AND from_date <= $3 AND to_date >= $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, from, to); err != nil {
		return false, fmt.Errorf("check overlapping leave: %w", err)
	}
	return exists, nil
}

// Create inserts a new leave request in PENDING state.
func (r *LeaveRepository) Create(ctx context.Context, request *models.LeaveRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.LeaveStatusPending
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	const query = `INSERT INTO leave_requests (id, student_id, from_date, to_date, reason, status, reviewed_by, reviewed_at, created_at, updated_at)
VALUES (:id, :student_id, :from_date, :to_date, :reason, :status, :reviewed_by, :reviewed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// Review records an approval or rejection decision.
func (r *LeaveRepository) Review(ctx context.Context, id string, status models.LeaveStatus, reviewerID string) error {
	now := time.Now().UTC()
	const query = `UPDATE leave_requests SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, now); err != nil {
		return fmt.Errorf("review leave request: %w", err)
	}
	return nil
}
