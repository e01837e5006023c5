package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

type fakeAttendanceRepo struct {
	records []*models.AttendanceRecord
}

func (f *fakeAttendanceRepo) List(context.Context, models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeAttendanceRepo) Upsert(_ context.Context, record *models.AttendanceRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeAttendanceRepo) CountByStatus(context.Context, string, time.Time, time.Time) (map[models.AttendanceStatus]int, error) {
	return map[models.AttendanceStatus]int{}, nil
}

func TestMarkRejectsNonResident(t *testing.T) {
	students := &fakeStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", Status: models.StudentStatusApproved}},
	}}
	svc := NewAttendanceService(&fakeAttendanceRepo{}, students, nil, nil)

	_, err := svc.Mark(context.Background(), "warden-1", MarkAttendanceRequest{
		StudentID: "stu-1",
		Date:      time.Now(),
		Status:    models.AttendanceStatusPresent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestMarkBulkCollectsFailures(t *testing.T) {
	repo := &fakeAttendanceRepo{}
	students := &fakeStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", Status: models.StudentStatusAllocated}},
		"stu-2": {Student: models.Student{ID: "stu-2", Status: models.StudentStatusAllocated}},
	}}
	svc := NewAttendanceService(repo, students, nil, nil)

	result, err := svc.MarkBulk(context.Background(), "warden-1", BulkMarkAttendanceRequest{
		Date: time.Now(),
		Entries: []BulkAttendanceEntry{
			{StudentID: "stu-1", Status: models.AttendanceStatusPresent},
			{StudentID: "stu-2", Status: models.AttendanceStatusAbsent, Notes: "unexcused"},
			{StudentID: "missing", Status: models.AttendanceStatusPresent},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Marked)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed["missing"], "student not found")
	require.Len(t, repo.records, 2)
	assert.Equal(t, "warden-1", repo.records[0].MarkedBy)
}
