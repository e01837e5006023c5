package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hostelhub/hostel-adm-api/internal/models"
)

// NoticeRepository provides persistence for the notice board.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository creates the repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// List returns notices visible to the provided audiences, pinned first.
func (r *NoticeRepository) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error) {
	base := "FROM notices"
	where := []string{"published_at <= NOW()"}
	where = append(where, "(expires_at IS NULL OR expires_at > NOW())")
	args := []interface{}{}

	allowedAudiences := map[string]struct{}{}
	for _, role := range filter.AudienceRoles {
		switch role {
		case models.RoleStudent:
			allowedAudiences[string(models.NoticeAudienceStudents)] = struct{}{}
		case models.RoleWarden:
			allowedAudiences[string(models.NoticeAudienceWardens)] = struct{}{}
		case models.RoleAdmin, models.RoleSuperAdmin:
			allowedAudiences[string(models.NoticeAudienceStudents)] = struct{}{}
			allowedAudiences[string(models.NoticeAudienceWardens)] = struct{}{}
			allowedAudiences[string(models.NoticeAudienceHostel)] = struct{}{}
		}
	}
	allowedAudiences[string(models.NoticeAudienceAll)] = struct{}{}
	if len(filter.HostelIDs) > 0 {
		where = append(where, fmt.Sprintf("(audience <> 'HOSTEL' OR target_hostel_id = ANY($%d))", len(args)+1))
		args = append(args, pqStringArray(filter.HostelIDs))
		allowedAudiences[string(models.NoticeAudienceHostel)] = struct{}{}
	}
	if len(allowedAudiences) > 0 {
		values := make([]string, 0, len(allowedAudiences))
		for v := range allowedAudiences {
			values = append(values, v)
		}
		where = append(where, fmt.Sprintf("audience = ANY($%d)", len(args)+1))
		args = append(args, pqStringArray(values))
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

	query := fmt.Sprintf(`SELECT id, title, content, audience, target_hostel_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at
%s WHERE %s
ORDER BY is_pinned DESC, priority DESC, published_at DESC
LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notices: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notices: %w", err)
	}
	return notices, total, nil
}

// GetByID returns a notice by identifier.
func (r *NoticeRepository) GetByID(ctx context.Context, id string) (*models.Notice, error) {
	const query = `SELECT id, title, content, audience, target_hostel_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at
FROM notices WHERE id = $1`
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		return nil, err
	}
	return &notice, nil
}

// Create inserts a new notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = now
	}
	notice.UpdatedAt = now
	query := `INSERT INTO notices (id, title, content, audience, target_hostel_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at)
VALUES (:id, :title, :content, :audience, :target_hostel_id, :priority, :is_pinned, :published_at, :expires_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// Update modifies an existing notice.
func (r *NoticeRepository) Update(ctx context.Context, notice *models.Notice) error {
	notice.UpdatedAt = time.Now().UTC()
	query := `UPDATE notices SET title = :title, content = :content, audience = :audience, target_hostel_id = :target_hostel_id,
priority = :priority, is_pinned = :is_pinned, published_at = :published_at, expires_at = :expires_at, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	return nil
}

// Delete removes a notice.
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM notices WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}

// pqStringArray helper ensures we pass string arrays consistently.
func pqStringArray(values []string) interface{} {
	return pq.Array(values)
}
