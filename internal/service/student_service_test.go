package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

type fakeStudentRepo struct {
	students   map[string]*models.StudentDetail
	regNoTaken bool
	created    *models.Student
	statuses   map[string]models.StudentStatus
}

func (f *fakeStudentRepo) List(context.Context, models.StudentFilter) ([]models.StudentDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := f.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) ExistsByRegNo(context.Context, string, string) (bool, error) {
	return f.regNoTaken, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	student.ID = "stu-new"
	f.created = student
	return nil
}

func (f *fakeStudentRepo) Update(context.Context, *models.Student) error {
	return nil
}

func (f *fakeStudentRepo) UpdateStatus(_ context.Context, id string, status models.StudentStatus) error {
	if f.statuses == nil {
		f.statuses = map[string]models.StudentStatus{}
	}
	f.statuses[id] = status
	return nil
}

func validRegistration() RegisterStudentRequest {
	return RegisterStudentRequest{
		RegNo:    "HST/2026/001",
		FullName: "Amina Yusuf",
		Gender:   "FEMALE",
		Course:   "Computer Science",
		Year:     2,
	}
}

func TestRegisterStudentStartsPending(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := NewStudentService(repo, nil, nil)

	student, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "stu-new", student.ID)
	assert.Equal(t, models.StudentStatusPending, student.Status)
	assert.Equal(t, "HST/2026/001", repo.created.RegNo)
}

func TestRegisterStudentRejectsDuplicateRegNo(t *testing.T) {
	svc := NewStudentService(&fakeStudentRepo{regNoTaken: true}, nil, nil)

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterStudentValidatesPayload(t *testing.T) {
	svc := NewStudentService(&fakeStudentRepo{}, nil, nil)

	req := validRegistration()
	req.Year = 0
	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApproveStudent(t *testing.T) {
	repo := &fakeStudentRepo{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", Status: models.StudentStatusPending}},
	}}
	svc := NewStudentService(repo, nil, nil)

	require.NoError(t, svc.Approve(context.Background(), "stu-1"))
	assert.Equal(t, models.StudentStatusApproved, repo.statuses["stu-1"])
}

func TestTransitionBlockedWhileAllocated(t *testing.T) {
	repo := &fakeStudentRepo{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", Status: models.StudentStatusAllocated}},
	}}
	svc := NewStudentService(repo, nil, nil)

	err := svc.Reject(context.Background(), "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.statuses)
}

func TestApproveUnknownStudentNotFound(t *testing.T) {
	svc := NewStudentService(&fakeStudentRepo{}, nil, nil)

	err := svc.Approve(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
