package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

// Sentinel errors let the service layer map allocation outcomes to API errors.
var (
	ErrStudentMissing  = errors.New("student not found")
	ErrRoomMissing     = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomMaintenance = errors.New("room under maintenance")
	ErrSameRoom        = errors.New("student already in room")
	ErrRoomOccupied    = errors.New("room has members")
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// AllocationRepository performs the multi-row student/room allocation writes.
// Every operation runs in a single transaction with the affected room rows
// locked, so a room's occupied count always equals its member-list size and
// capacity can never be overshot by concurrent allocations.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs an AllocationRepository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

type lockedStudent struct {
	ID     string  `db:"id"`
	RoomID *string `db:"room_id"`
}

type lockedRoom struct {
	ID       string `db:"id"`
	HostelID string `db:"hostel_id"`
	Capacity int    `db:"capacity"`
	Status   string `db:"status"`
}

// Allocate places a student into a room, moving them out of any prior room.
// On any precondition failure the transaction rolls back with no partial
// mutation.
func (r *AllocationRepository) Allocate(ctx context.Context, studentID, roomID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allocate: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	student, err := lockStudent(ctx, tx, studentID)
	if err != nil {
		return err
	}
	if student.RoomID != nil && *student.RoomID == roomID {
		return ErrSameRoom
	}

	// Lock rooms in id order so two concurrent moves between the same pair
	// of rooms cannot deadlock.
	roomIDs := []string{roomID}
	if student.RoomID != nil {
		roomIDs = append(roomIDs, *student.RoomID)
	}
	sort.Strings(roomIDs)

	rooms := make(map[string]*lockedRoom, len(roomIDs))
	for _, id := range roomIDs {
		room, lockErr := lockRoom(ctx, tx, id)
		if lockErr != nil {
			if errors.Is(lockErr, ErrRoomMissing) && id != roomID {
				// Prior room has been deleted; membership cleanup below
				// still applies.
				continue
			}
			err = lockErr
			return err
		}
		rooms[id] = room
	}

	target, ok := rooms[roomID]
	if !ok {
		return ErrRoomMissing
	}
	if target.Status == "MAINTENANCE" {
		return ErrRoomMaintenance
	}

	occupied, err := countMembers(ctx, tx, roomID)
	if err != nil {
		return err
	}
	if occupied >= target.Capacity {
		return ErrRoomFull
	}

	if student.RoomID != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM room_members WHERE student_id = $1`, studentID); err != nil {
			return fmt.Errorf("remove prior membership: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO room_members (room_id, student_id, joined_at) VALUES ($1, $2, $3)`,
		roomID, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}

	for _, id := range roomIDs {
		room, locked := rooms[id]
		if !locked {
			continue
		}
		if err = refreshRoomState(ctx, tx, room); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE students SET room_id = $2, hostel_id = $3, status = 'ALLOCATED', updated_at = $4 WHERE id = $1`,
		studentID, roomID, target.HostelID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student allocation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit allocate: %w", err)
	}
	return nil
}

// Deallocate removes a student from their room, restoring the room's occupied
// count from the remaining members. A student without a room is a no-op.
func (r *AllocationRepository) Deallocate(ctx context.Context, studentID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deallocate: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deallocateInTx(ctx, tx, studentID, true); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit deallocate: %w", err)
	}
	return nil
}

// RemoveStudent deallocates and deletes the student in one transaction, so a
// deleted student can never linger in a room's member list.
func (r *AllocationRepository) RemoveStudent(ctx context.Context, studentID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deallocateInTx(ctx, tx, studentID, false); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit remove student: %w", err)
	}
	return nil
}

func deallocateInTx(ctx context.Context, tx *sqlx.Tx, studentID string, updateStudent bool) error {
	student, err := lockStudent(ctx, tx, studentID)
	if err != nil {
		return err
	}
	if student.RoomID == nil {
		return nil
	}

	room, err := lockRoom(ctx, tx, *student.RoomID)
	if err != nil && !errors.Is(err, ErrRoomMissing) {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM room_members WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("remove membership: %w", err)
	}
	if room != nil {
		if err := refreshRoomState(ctx, tx, room); err != nil {
			return err
		}
	}
	if updateStudent {
		if _, err := tx.ExecContext(ctx,
			`UPDATE students SET room_id = NULL, hostel_id = NULL, status = 'APPROVED', updated_at = $2 WHERE id = $1`,
			studentID, time.Now().UTC()); err != nil {
			return fmt.Errorf("clear student allocation: %w", err)
		}
	}
	return nil
}

func lockStudent(ctx context.Context, tx *sqlx.Tx, id string) (*lockedStudent, error) {
	var student lockedStudent
	if err := tx.GetContext(ctx, &student, `SELECT id, room_id FROM students WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentMissing
		}
		return nil, fmt.Errorf("lock student: %w", err)
	}
	return &student, nil
}

func lockRoom(ctx context.Context, tx *sqlx.Tx, id string) (*lockedRoom, error) {
	var room lockedRoom
	if err := tx.GetContext(ctx, &room, `SELECT id, hostel_id, capacity, status FROM rooms WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRoomMissing
		}
		return nil, fmt.Errorf("lock room: %w", err)
	}
	return &room, nil
}

func countMembers(ctx context.Context, tx *sqlx.Tx, roomID string) (int, error) {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM room_members WHERE room_id = $1`, roomID); err != nil {
		return 0, fmt.Errorf("count room members: %w", err)
	}
	return count, nil
}

// deriveRoomStatus returns the status a room should carry for the given
// member count. MAINTENANCE is sticky until an operator clears it; a full
// room reverts to AVAILABLE as soon as a seat frees up.
func deriveRoomStatus(current string, occupied, capacity int) string {
	switch {
	case current == "MAINTENANCE":
		return "MAINTENANCE"
	case occupied >= capacity:
		return "FULL"
	default:
		return "AVAILABLE"
	}
}

// refreshRoomState recounts the membership set and writes the count and the
// derived status back to the room row.
func refreshRoomState(ctx context.Context, tx *sqlx.Tx, room *lockedRoom) error {
	occupied, err := countMembers(ctx, tx, room.ID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE rooms SET occupied = $2, status = $3, updated_at = $4 WHERE id = $1`,
		room.ID, occupied, deriveRoomStatus(room.Status, occupied, room.Capacity), time.Now().UTC()); err != nil {
		return fmt.Errorf("refresh room state: %w", err)
	}
	return nil
}
