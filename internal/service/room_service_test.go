package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/repository"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

type fakeRoomRepo struct {
	rooms       map[string]*models.Room
	numberTaken bool
	deleteErr   error
	created     *models.Room
	maintenance map[string]bool
}

func (f *fakeRoomRepo) List(context.Context, models.RoomFilter) ([]models.RoomDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeRoomRepo) FindByID(_ context.Context, id string) (*models.Room, error) {
	if room, ok := f.rooms[id]; ok {
		return room, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRoomRepo) FindDetailByID(_ context.Context, id string) (*models.RoomDetail, error) {
	if room, ok := f.rooms[id]; ok {
		return &models.RoomDetail{Room: *room}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRoomRepo) ExistsByNumber(context.Context, string, string, string) (bool, error) {
	return f.numberTaken, nil
}

func (f *fakeRoomRepo) Create(_ context.Context, room *models.Room) error {
	room.ID = "room-new"
	f.created = room
	return nil
}

func (f *fakeRoomRepo) Update(_ context.Context, room *models.Room) error {
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomRepo) SetMaintenance(_ context.Context, id string, on bool) error {
	if _, ok := f.rooms[id]; !ok {
		return sql.ErrNoRows
	}
	if f.maintenance == nil {
		f.maintenance = map[string]bool{}
	}
	f.maintenance[id] = on
	return nil
}

func (f *fakeRoomRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rooms, id)
	return nil
}

type fakeHostelReader struct {
	hostels map[string]*models.Hostel
}

func (f *fakeHostelReader) FindByID(_ context.Context, id string) (*models.Hostel, error) {
	if hostel, ok := f.hostels[id]; ok {
		return hostel, nil
	}
	return nil, sql.ErrNoRows
}

func TestCreateRoom(t *testing.T) {
	repo := &fakeRoomRepo{rooms: map[string]*models.Room{}}
	hostels := &fakeHostelReader{hostels: map[string]*models.Hostel{"hos-1": {ID: "hos-1", Name: "North Block"}}}
	svc := NewRoomService(repo, hostels, nil, nil, nil)

	room, err := svc.Create(context.Background(), CreateRoomRequest{
		HostelID: "hos-1",
		Number:   "101",
		Floor:    1,
		Type:     models.RoomTypeDouble,
		Capacity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "room-new", room.ID)
	assert.Equal(t, 2, room.Capacity)
	assert.Equal(t, "101", repo.created.Number)
}

func TestCreateRoomRejectsZeroCapacity(t *testing.T) {
	svc := NewRoomService(&fakeRoomRepo{}, &fakeHostelReader{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateRoomRequest{
		HostelID: "hos-1",
		Number:   "101",
		Type:     models.RoomTypeSingle,
		Capacity: 0,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateRoomRejectsUnknownHostel(t *testing.T) {
	svc := NewRoomService(&fakeRoomRepo{}, &fakeHostelReader{hostels: map[string]*models.Hostel{}}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateRoomRequest{
		HostelID: "missing",
		Number:   "101",
		Type:     models.RoomTypeSingle,
		Capacity: 1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateRoomRejectsDuplicateNumber(t *testing.T) {
	repo := &fakeRoomRepo{numberTaken: true}
	hostels := &fakeHostelReader{hostels: map[string]*models.Hostel{"hos-1": {ID: "hos-1"}}}
	svc := NewRoomService(repo, hostels, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateRoomRequest{
		HostelID: "hos-1",
		Number:   "101",
		Type:     models.RoomTypeSingle,
		Capacity: 1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSetMaintenanceRecordsAudit(t *testing.T) {
	repo := &fakeRoomRepo{rooms: map[string]*models.Room{"room-1": {ID: "room-1"}}}
	audit := &fakeAuditWriter{}
	svc := NewRoomService(repo, &fakeHostelReader{}, audit, nil, nil)

	err := svc.SetMaintenance(context.Background(), "admin-1", "room-1", true)
	require.NoError(t, err)
	assert.True(t, repo.maintenance["room-1"])
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionRoomMaintenance, audit.entries[0].Action)
	assert.JSONEq(t, `{"maintenance":"on"}`, string(audit.entries[0].NewValues))
}

func TestDeleteOccupiedRoomConflicts(t *testing.T) {
	repo := &fakeRoomRepo{deleteErr: repository.ErrRoomOccupied}
	svc := NewRoomService(repo, &fakeHostelReader{}, nil, nil, nil)

	err := svc.Delete(context.Background(), "room-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDeleteUnknownRoomNotFound(t *testing.T) {
	repo := &fakeRoomRepo{deleteErr: sql.ErrNoRows}
	svc := NewRoomService(repo, &fakeHostelReader{}, nil, nil, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
