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

// ComplaintRepository provides persistence for maintenance complaints.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository creates the repository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// List returns complaints with the complainant resolved.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, int, error) {
	base := `FROM complaints c
JOIN students s ON s.id = c.student_id
LEFT JOIN hostels h ON h.id = c.hostel_id`
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("c.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.HostelID != "" {
		conditions = append(conditions, fmt.Sprintf("c.hostel_id = $%d", len(args)+1))
		args = append(args, filter.HostelID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("c.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"created_at":  "c.created_at",
		"status":      "c.status",
		"category":    "c.category",
		"resolved_at": "c.resolved_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.student_id, c.hostel_id, c.room_id, c.category, c.subject, c.body, c.status,
c.resolution, c.resolved_by, c.resolved_at, c.created_at, c.updated_at,
s.full_name AS student_name, h.name AS hostel_name
%s %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, column, order, size, offset)

	var complaints []models.ComplaintDetail
	if err := r.db.SelectContext(ctx, &complaints, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}
	return complaints, total, nil
}

// GetByID returns a complaint by identifier.
func (r *ComplaintRepository) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	const query = `SELECT id, student_id, hostel_id, room_id, category, subject, body, status, resolution, resolved_by, resolved_at, created_at, updated_at
FROM complaints WHERE id = $1`
	var complaint models.Complaint
	if err := r.db.GetContext(ctx, &complaint, query, id); err != nil {
		return nil, err
	}
	return &complaint, nil
}

// Create files a new complaint in OPEN state.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}
	if complaint.Status == "" {
		complaint.Status = models.ComplaintStatusOpen
	}
	now := time.Now().UTC()
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = now
	}
	complaint.UpdatedAt = now
	const query = `INSERT INTO complaints (id, student_id, hostel_id, room_id, category, subject, body, status, resolution, resolved_by, resolved_at, created_at, updated_at)
VALUES (:id, :student_id, :hostel_id, :room_id, :category, :subject, :body, :status, :resolution, :resolved_by, :resolved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, complaint); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// UpdateStatus moves a complaint through the triage workflow. Resolution text
// and resolver are only written when the new status is RESOLVED.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus, resolution *string, resolverID *string) error {
	now := time.Now().UTC()
	if status == models.ComplaintStatusResolved {
		const query = `UPDATE complaints SET status = $2, resolution = $3, resolved_by = $4, resolved_at = $5, updated_at = $5 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, status, resolution, resolverID, now); err != nil {
			return fmt.Errorf("resolve complaint: %w", err)
		}
		return nil
	}
	const query = `UPDATE complaints SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, now); err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	return nil
}
