package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/repository"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

// fakeAllocationRepo emulates the transactional allocation semantics with a
// mutex-guarded in-memory room: the last free seat goes to exactly one caller.
type fakeAllocationRepo struct {
	mu          sync.Mutex
	capacity    int
	members     map[string]struct{}
	maintenance bool
	allocations int
}

func newFakeAllocationRepo(capacity int) *fakeAllocationRepo {
	return &fakeAllocationRepo{capacity: capacity, members: map[string]struct{}{}}
}

func (f *fakeAllocationRepo) Allocate(_ context.Context, studentID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.maintenance {
		return repository.ErrRoomMaintenance
	}
	if _, ok := f.members[studentID]; ok {
		return repository.ErrSameRoom
	}
	if len(f.members) >= f.capacity {
		return repository.ErrRoomFull
	}
	f.members[studentID] = struct{}{}
	f.allocations++
	return nil
}

func (f *fakeAllocationRepo) Deallocate(_ context.Context, studentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, studentID)
	return nil
}

func (f *fakeAllocationRepo) RemoveStudent(_ context.Context, studentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, studentID)
	return nil
}

type fakeStudentReader struct {
	students map[string]*models.StudentDetail
}

func (f *fakeStudentReader) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := f.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type fakeAuditWriter struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (f *fakeAuditWriter) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeInvalidator) InvalidateDashboard(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func studentFixture(id string) *models.StudentDetail {
	return &models.StudentDetail{Student: models.Student{ID: id, RegNo: "R-" + id, FullName: "Student " + id}}
}

func TestAllocateSuccess(t *testing.T) {
	repo := newFakeAllocationRepo(2)
	students := &fakeStudentReader{students: map[string]*models.StudentDetail{"stu-1": studentFixture("stu-1")}}
	audit := &fakeAuditWriter{}
	invalidator := &fakeInvalidator{}
	svc := NewAllocationService(repo, students, audit, invalidator, nil)

	student, err := svc.Allocate(context.Background(), "admin-1", "stu-1", "room-1")
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "stu-1", student.ID)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionStudentAllocate, audit.entries[0].Action)
	assert.Equal(t, 1, invalidator.calls)
}

func TestAllocateMapsRoomFull(t *testing.T) {
	repo := newFakeAllocationRepo(1)
	repo.members["other"] = struct{}{}
	svc := NewAllocationService(repo, &fakeStudentReader{}, nil, nil, nil)

	_, err := svc.Allocate(context.Background(), "admin-1", "stu-1", "room-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrRoomFull.Code, appErr.Code)
}

func TestAllocateMapsMaintenance(t *testing.T) {
	repo := newFakeAllocationRepo(2)
	repo.maintenance = true
	svc := NewAllocationService(repo, &fakeStudentReader{}, nil, nil, nil)

	_, err := svc.Allocate(context.Background(), "admin-1", "stu-1", "room-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestAllocateMapsSameRoom(t *testing.T) {
	repo := newFakeAllocationRepo(2)
	repo.members["stu-1"] = struct{}{}
	svc := NewAllocationService(repo, &fakeStudentReader{}, nil, nil, nil)

	_, err := svc.Allocate(context.Background(), "admin-1", "stu-1", "room-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

// Two students race for the last free seat: exactly one wins and the loser
// gets a room-full rejection.
func TestAllocateLastSeatRace(t *testing.T) {
	repo := newFakeAllocationRepo(1)
	students := &fakeStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": studentFixture("stu-1"),
		"stu-2": studentFixture("stu-2"),
	}}
	svc := NewAllocationService(repo, students, nil, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"stu-1", "stu-2"} {
		wg.Add(1)
		go func(idx int, studentID string) {
			defer wg.Done()
			_, errs[idx] = svc.Allocate(context.Background(), "admin-1", studentID, "room-1")
		}(i, id)
	}
	wg.Wait()

	var successes, fulls int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		if appErrors.FromError(err).Code == appErrors.ErrRoomFull.Code {
			fulls++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, fulls)
	assert.Equal(t, 1, repo.allocations)
	assert.Len(t, repo.members, 1)
}

func TestAllocateSurvivesReloadFailure(t *testing.T) {
	repo := newFakeAllocationRepo(2)
	svc := NewAllocationService(repo, &fakeStudentReader{students: map[string]*models.StudentDetail{}}, nil, nil, nil)

	student, err := svc.Allocate(context.Background(), "admin-1", "stu-1", "room-1")
	require.NoError(t, err)
	assert.Nil(t, student)
	assert.Equal(t, 1, repo.allocations)
}

func TestDeallocateRecordsAuditAndInvalidates(t *testing.T) {
	repo := newFakeAllocationRepo(2)
	repo.members["stu-1"] = struct{}{}
	audit := &fakeAuditWriter{}
	invalidator := &fakeInvalidator{}
	svc := NewAllocationService(repo, &fakeStudentReader{}, audit, invalidator, nil)

	err := svc.Deallocate(context.Background(), "admin-1", "stu-1")
	require.NoError(t, err)
	assert.Empty(t, repo.members)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionStudentDeallocate, audit.entries[0].Action)
	assert.Equal(t, 1, invalidator.calls)
}

func TestRemoveStudentReleasesSeat(t *testing.T) {
	repo := newFakeAllocationRepo(2)
	repo.members["stu-1"] = struct{}{}
	audit := &fakeAuditWriter{}
	svc := NewAllocationService(repo, &fakeStudentReader{}, audit, nil, nil)

	err := svc.RemoveStudent(context.Background(), "admin-1", "stu-1")
	require.NoError(t, err)
	assert.Empty(t, repo.members)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionStudentDelete, audit.entries[0].Action)
}
