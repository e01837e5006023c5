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

// HostelRepository manages persistence for hostels. Occupancy aggregates are
// never stored; every read derives them by summing the hostel's rooms.
type HostelRepository struct {
	db *sqlx.DB
}

// NewHostelRepository constructs a HostelRepository.
func NewHostelRepository(db *sqlx.DB) *HostelRepository {
	return &HostelRepository{db: db}
}

const hostelSummaryColumns = `h.id, h.name, h.type, h.address, h.warden_id, h.active, h.created_at, h.updated_at,
        u.full_name AS warden_name,
        COUNT(r.id) AS total_rooms,
        COALESCE(SUM(r.capacity), 0) AS total_capacity,
        COALESCE(SUM(r.occupied), 0) AS occupied`

const hostelSummaryJoins = `FROM hostels h
        LEFT JOIN users u ON u.id = h.warden_id
        LEFT JOIN rooms r ON r.hostel_id = h.id`

const hostelSummaryGroup = `GROUP BY h.id, u.full_name`

// List returns hostels with derived occupancy, matching the provided filters.
func (r *HostelRepository) List(ctx context.Context, filter models.HostelFilter) ([]models.HostelSummary, int, error) {
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("h.type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("h.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(h.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "h.name",
		"type":       "h.type",
		"created_at": "h.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "h.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		hostelSummaryColumns, hostelSummaryJoins, where, hostelSummaryGroup, column, order, size, offset)

	var hostels []models.HostelSummary
	if err := r.db.SelectContext(ctx, &hostels, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list hostels: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM hostels h %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count hostels: %w", err)
	}
	return hostels, total, nil
}

// FindByID fetches a hostel row by ID.
func (r *HostelRepository) FindByID(ctx context.Context, id string) (*models.Hostel, error) {
	const query = `SELECT id, name, type, address, warden_id, active, created_at, updated_at FROM hostels WHERE id = $1`
	var hostel models.Hostel
	if err := r.db.GetContext(ctx, &hostel, query, id); err != nil {
		return nil, err
	}
	return &hostel, nil
}

// FindSummaryByID fetches a hostel with derived occupancy.
func (r *HostelRepository) FindSummaryByID(ctx context.Context, id string) (*models.HostelSummary, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE h.id = $1 %s", hostelSummaryColumns, hostelSummaryJoins, hostelSummaryGroup)
	var summary models.HostelSummary
	if err := r.db.GetContext(ctx, &summary, query, id); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Create inserts a new hostel.
func (r *HostelRepository) Create(ctx context.Context, hostel *models.Hostel) error {
	if hostel.ID == "" {
		hostel.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if hostel.CreatedAt.IsZero() {
		hostel.CreatedAt = now
	}
	hostel.UpdatedAt = now
	const query = `INSERT INTO hostels (id, name, type, address, warden_id, active, created_at, updated_at)
        VALUES (:id, :name, :type, :address, :warden_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hostel); err != nil {
		return fmt.Errorf("create hostel: %w", err)
	}
	return nil
}

// Update modifies an existing hostel.
func (r *HostelRepository) Update(ctx context.Context, hostel *models.Hostel) error {
	hostel.UpdatedAt = time.Now().UTC()
	const query = `UPDATE hostels SET name = :name, type = :type, address = :address, warden_id = :warden_id, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, hostel); err != nil {
		return fmt.Errorf("update hostel: %w", err)
	}
	return nil
}

// AssignWarden links a warden account to the hostel.
func (r *HostelRepository) AssignWarden(ctx context.Context, hostelID string, wardenID *string) error {
	const query = `UPDATE hostels SET warden_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, hostelID, wardenID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign warden: %w", err)
	}
	return nil
}

// Deactivate marks a hostel inactive without removing its rooms.
func (r *HostelRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE hostels SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate hostel: %w", err)
	}
	return nil
}
