package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockStudentQuery() *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(`SELECT id, room_id FROM students WHERE id = $1 FOR UPDATE`))
}

func lockRoomQuery() *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(`SELECT id, hostel_id, capacity, status FROM rooms WHERE id = $1 FOR UPDATE`))
}

func memberCountQuery() string {
	return regexp.QuoteMeta(`SELECT COUNT(*) FROM room_members WHERE room_id = $1`)
}

func refreshRoomQuery() string {
	return regexp.QuoteMeta(`UPDATE rooms SET occupied = $2, status = $3, updated_at = $4 WHERE id = $1`)
}

func TestDeriveRoomStatus(t *testing.T) {
	cases := []struct {
		name     string
		current  string
		occupied int
		capacity int
		want     string
	}{
		{"fills at capacity", "AVAILABLE", 2, 2, "FULL"},
		{"reverts when a seat frees", "FULL", 1, 2, "AVAILABLE"},
		{"stays available below capacity", "AVAILABLE", 1, 4, "AVAILABLE"},
		{"maintenance sticky when empty", "MAINTENANCE", 0, 2, "MAINTENANCE"},
		{"maintenance sticky when full", "MAINTENANCE", 2, 2, "MAINTENANCE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveRoomStatus(tc.current, tc.occupied, tc.capacity))
		})
	}
}

func TestAllocateFirstRoom(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStudentQuery().String()).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow("stu-1", nil))
	mock.ExpectQuery(lockRoomQuery().String()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostel_id", "capacity", "status"}).
			AddRow("room-1", "hos-1", 2, "AVAILABLE"))
	mock.ExpectQuery(memberCountQuery()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO room_members").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second seat taken: the recount flips the room to FULL.
	mock.ExpectQuery(memberCountQuery()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(refreshRoomQuery()).
		WithArgs("room-1", 2, "FULL", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET room_id").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Allocate(context.Background(), "stu-1", "room-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateRejectsFullRoom(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStudentQuery().String()).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow("stu-1", nil))
	mock.ExpectQuery(lockRoomQuery().String()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostel_id", "capacity", "status"}).
			AddRow("room-1", "hos-1", 2, "FULL"))
	mock.ExpectQuery(memberCountQuery()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Allocate(context.Background(), "stu-1", "room-1")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateRejectsMaintenanceRoom(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStudentQuery().String()).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow("stu-1", nil))
	mock.ExpectQuery(lockRoomQuery().String()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostel_id", "capacity", "status"}).
			AddRow("room-1", "hos-1", 2, "MAINTENANCE"))
	mock.ExpectRollback()

	err := repo.Allocate(context.Background(), "stu-1", "room-1")
	assert.ErrorIs(t, err, ErrRoomMaintenance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateRejectsSameRoom(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStudentQuery().String()).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow("stu-1", "room-1"))
	mock.ExpectRollback()

	err := repo.Allocate(context.Background(), "stu-1", "room-1")
	assert.ErrorIs(t, err, ErrSameRoom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateMovesBetweenRooms(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	// Student holds room-a, moves to room-b. Rooms lock in sorted id order.
	mock.ExpectBegin()
	mock.ExpectQuery(lockStudentQuery().String()).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow("stu-1", "room-a"))
	mock.ExpectQuery(lockRoomQuery().String()).
		WithArgs("room-a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostel_id", "capacity", "status"}).
			AddRow("room-a", "hos-1", 2, "FULL"))
	mock.ExpectQuery(lockRoomQuery().String()).
		WithArgs("room-b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostel_id", "capacity", "status"}).
			AddRow("room-b", "hos-2", 3, "AVAILABLE"))
	mock.ExpectQuery(memberCountQuery()).
		WithArgs("room-b").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("DELETE FROM room_members").
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO room_members").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Both rooms refresh in sorted id order: the vacated room drops back to
	// AVAILABLE, the target stays AVAILABLE below its capacity of 3.
	mock.ExpectQuery(memberCountQuery()).
		WithArgs("room-a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(refreshRoomQuery()).
		WithArgs("room-a", 1, "AVAILABLE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(memberCountQuery()).
		WithArgs("room-b").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(refreshRoomQuery()).
		WithArgs("room-b", 2, "AVAILABLE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET room_id").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Allocate(context.Background(), "stu-1", "room-b")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateUnknownStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStudentQuery().String()).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}))
	mock.ExpectRollback()

	err := repo.Allocate(context.Background(), "missing", "room-1")
	assert.ErrorIs(t, err, ErrStudentMissing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeallocateWithoutRoomIsNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStudentQuery().String()).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow("stu-1", nil))
	mock.ExpectCommit()

	err := repo.Deallocate(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeallocateReleasesSeat(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStudentQuery().String()).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow("stu-1", "room-1"))
	mock.ExpectQuery(lockRoomQuery().String()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostel_id", "capacity", "status"}).
			AddRow("room-1", "hos-1", 2, "FULL"))
	mock.ExpectExec("DELETE FROM room_members").
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The departing member drops the FULL room back to AVAILABLE.
	mock.ExpectQuery(memberCountQuery()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(refreshRoomQuery()).
		WithArgs("room-1", 1, "AVAILABLE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET room_id = NULL").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Deallocate(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveStudentReleasesSeatAndDeletes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockStudentQuery().String()).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow("stu-1", "room-1"))
	mock.ExpectQuery(lockRoomQuery().String()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostel_id", "capacity", "status"}).
			AddRow("room-1", "hos-1", 2, "FULL"))
	mock.ExpectExec("DELETE FROM room_members").
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(memberCountQuery()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(refreshRoomQuery()).
		WithArgs("room-1", 1, "AVAILABLE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM students").
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RemoveStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
