package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostelhub/hostel-adm-api/internal/models"
)

// RoomRepository manages persistence for room records.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns rooms matching the provided filters.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.RoomDetail, int, error) {
	base := "FROM rooms r JOIN hostels h ON h.id = r.hostel_id"
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.HostelID != "" {
		conditions = append(conditions, fmt.Sprintf("r.hostel_id = $%d", len(args)+1))
		args = append(args, filter.HostelID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Floor != nil {
		conditions = append(conditions, fmt.Sprintf("r.floor = $%d", len(args)+1))
		args = append(args, *filter.Floor)
	}
	if filter.Available {
		conditions = append(conditions, "r.status = 'AVAILABLE'")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"number":   "r.number",
		"floor":    "r.floor",
		"capacity": "r.capacity",
		"occupied": "r.occupied",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "r.number"
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

	query := fmt.Sprintf(`SELECT r.id, r.hostel_id, r.number, r.floor, r.type, r.capacity, r.occupied, r.status, r.created_at, r.updated_at,
        h.name AS hostel_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var rooms []models.RoomDetail
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}
	return rooms, total, nil
}

// FindByID fetches a room by ID.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, hostel_id, number, floor, type, capacity, occupied, status, created_at, updated_at FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindDetailByID fetches a room with hostel context and its member list.
func (r *RoomRepository) FindDetailByID(ctx context.Context, id string) (*models.RoomDetail, error) {
	const query = `SELECT r.id, r.hostel_id, r.number, r.floor, r.type, r.capacity, r.occupied, r.status, r.created_at, r.updated_at,
        h.name AS hostel_name
        FROM rooms r JOIN hostels h ON h.id = r.hostel_id
        WHERE r.id = $1`
	var detail models.RoomDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}

	const membersQuery = `SELECT m.student_id, s.full_name, s.reg_no, m.joined_at
        FROM room_members m JOIN students s ON s.id = m.student_id
        WHERE m.room_id = $1 ORDER BY m.joined_at`
	if err := r.db.SelectContext(ctx, &detail.Members, membersQuery, id); err != nil {
		return nil, fmt.Errorf("list room members: %w", err)
	}
	return &detail, nil
}

// ExistsByNumber checks whether a hostel already has a room with the number.
func (r *RoomRepository) ExistsByNumber(ctx context.Context, hostelID, number, excludeID string) (bool, error) {
	query := "SELECT 1 FROM rooms WHERE hostel_id = $1 AND number = $2"
	args := []interface{}{hostelID, number}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("check room number: %w", err)
	}
	return true, nil
}

// Create inserts a new room with an empty membership set.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	room.Occupied = 0
	if room.Status == "" {
		room.Status = models.RoomStatusAvailable
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	const query = `INSERT INTO rooms (id, hostel_id, number, floor, type, capacity, occupied, status, created_at, updated_at)
        VALUES (:id, :hostel_id, :number, :floor, :type, :capacity, :occupied, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// Update modifies room attributes. Capacity changes re-derive status from the
// membership count under a row lock so the FULL flag stays consistent.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin room update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	locked, err := lockRoom(ctx, tx, room.ID)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE rooms SET number = $2, floor = $3, type = $4, capacity = $5, updated_at = $6 WHERE id = $1`,
		room.ID, room.Number, room.Floor, room.Type, room.Capacity, time.Now().UTC()); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	locked.Capacity = room.Capacity
	if err = refreshRoomState(ctx, tx, locked); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit room update: %w", err)
	}
	return nil
}

// SetMaintenance forces or clears the MAINTENANCE status. Clearing re-derives
// AVAILABLE/FULL from the membership count.
func (r *RoomRepository) SetMaintenance(ctx context.Context, id string, on bool) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin maintenance toggle: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	locked, err := lockRoom(ctx, tx, id)
	if err != nil {
		return err
	}
	if on {
		if _, err = tx.ExecContext(ctx,
			`UPDATE rooms SET status = 'MAINTENANCE', updated_at = $2 WHERE id = $1`,
			id, time.Now().UTC()); err != nil {
			return fmt.Errorf("set maintenance: %w", err)
		}
	} else {
		if _, err = tx.ExecContext(ctx,
			`UPDATE rooms SET status = 'AVAILABLE', updated_at = $2 WHERE id = $1`,
			id, time.Now().UTC()); err != nil {
			return fmt.Errorf("clear maintenance: %w", err)
		}
		locked.Status = "AVAILABLE"
		if err = refreshRoomState(ctx, tx, locked); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit maintenance toggle: %w", err)
	}
	return nil
}

// Delete removes an empty room. Rooms with members must be cleared first.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM rooms WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1)`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete room result: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("check room exists: %w", err)
		}
		if !exists {
			return sql.ErrNoRows
		}
		return ErrRoomOccupied
	}
	return nil
}
