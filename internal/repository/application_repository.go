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

// ApplicationRepository provides persistence for hostel applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// List returns applications with resolved student and hostel names.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	base := `FROM applications a
JOIN students s ON s.id = a.student_id
JOIN hostels h ON h.id = a.hostel_id`
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.HostelID != "" {
		conditions = append(conditions, fmt.Sprintf("a.hostel_id = $%d", len(args)+1))
		args = append(args, filter.HostelID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"created_at":  "a.created_at",
		"status":      "a.status",
		"reviewed_at": "a.reviewed_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "a.created_at"
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

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.hostel_id, a.status, a.remarks, a.reviewed_by, a.reviewed_at, a.created_at, a.updated_at,
s.full_name AS student_name, s.reg_no AS student_reg, h.name AS hostel_name
%s %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, column, order, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// GetByID returns an application by identifier.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	const query = `SELECT id, student_id, hostel_id, status, remarks, reviewed_by, reviewed_at, created_at, updated_at FROM applications WHERE id = $1`
	var application models.Application
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// HasPending reports whether the student already has an application awaiting review.
func (r *ApplicationRepository) HasPending(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM applications WHERE student_id = $1 AND status = 'PENDING')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID); err != nil {
		return false, fmt.Errorf("check pending application: %w", err)
	}
	return exists, nil
}

// Create inserts a new application in PENDING state.
func (r *ApplicationRepository) Create(ctx context.Context, application *models.Application) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	if application.Status == "" {
		application.Status = models.ApplicationStatusPending
	}
	now := time.Now().UTC()
	if application.CreatedAt.IsZero() {
		application.CreatedAt = now
	}
	application.UpdatedAt = now
	const query = `INSERT INTO applications (id, student_id, hostel_id, status, remarks, reviewed_by, reviewed_at, created_at, updated_at)
VALUES (:id, :student_id, :hostel_id, :status, :remarks, :reviewed_by, :reviewed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, application); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// Review records an approval or rejection decision. The student status change
// that accompanies an approval is written by the caller in the same request.
func (r *ApplicationRepository) Review(ctx context.Context, id string, status models.ApplicationStatus, remarks string, reviewerID string) error {
	now := time.Now().UTC()
	const query = `UPDATE applications SET status = $2, remarks = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, remarks, reviewerID, now); err != nil {
		return fmt.Errorf("review application: %w", err)
	}
	return nil
}
