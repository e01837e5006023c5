package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMaintenanceClearRederivesStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	// Clearing maintenance on a room whose members fill it lands on FULL,
	// not AVAILABLE.
	mock.ExpectBegin()
	mock.ExpectQuery(lockRoomQuery().String()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostel_id", "capacity", "status"}).
			AddRow("room-1", "hos-1", 2, "MAINTENANCE"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE rooms SET status = 'AVAILABLE', updated_at = $2 WHERE id = $1`)).
		WithArgs("room-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(memberCountQuery()).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(refreshRoomQuery()).
		WithArgs("room-1", 2, "FULL", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetMaintenance(context.Background(), "room-1", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
