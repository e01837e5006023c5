package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/repository"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
	"github.com/hostelhub/hostel-adm-api/pkg/jobs"
	"github.com/hostelhub/hostel-adm-api/pkg/storage"
)

type fakeFeeRepo struct {
	fees       map[string]*models.FeeRecord
	statements map[string]*models.StatementJob
	nextJobID  string
}

func (f *fakeFeeRepo) List(context.Context, models.FeeFilter) ([]models.FeeRecordDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeFeeRepo) GetByID(_ context.Context, id string) (*models.FeeRecord, error) {
	if record, ok := f.fees[id]; ok {
		return record, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeFeeRepo) Create(_ context.Context, record *models.FeeRecord) error {
	record.ID = "fee-new"
	if f.fees == nil {
		f.fees = map[string]*models.FeeRecord{}
	}
	f.fees[record.ID] = record
	return nil
}

func (f *fakeFeeRepo) MarkPaid(_ context.Context, id, paidRef string, paidAt time.Time) error {
	record, ok := f.fees[id]
	if !ok {
		return sql.ErrNoRows
	}
	record.Status = models.FeeStatusPaid
	record.PaidRef = &paidRef
	record.PaidAt = &paidAt
	return nil
}

func (f *fakeFeeRepo) MarkOverdueBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeFeeRepo) CreateStatementJob(_ context.Context, job *models.StatementJob) error {
	if f.nextJobID == "" {
		f.nextJobID = "job-1"
	}
	job.ID = f.nextJobID
	if f.statements == nil {
		f.statements = map[string]*models.StatementJob{}
	}
	f.statements[job.ID] = job
	return nil
}

func (f *fakeFeeRepo) GetStatementJob(_ context.Context, id string) (*models.StatementJob, error) {
	if job, ok := f.statements[id]; ok {
		return job, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeFeeRepo) UpdateStatementJob(_ context.Context, id string, params repository.UpdateStatementJobParams) error {
	job, ok := f.statements[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (f *fakeFeeRepo) ListQueuedStatementJobs(context.Context, int) ([]models.StatementJob, error) {
	var queued []models.StatementJob
	for _, job := range f.statements {
		if job.Status == models.StatementStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (f *fakeFeeRepo) ListFinishedStatementJobsBefore(context.Context, time.Time, int) ([]models.StatementJob, error) {
	return nil, nil
}

type recordingQueue struct {
	enqueued []jobs.Job
	err      error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

type fakeStatementFees struct {
	records []models.FeeRecord
}

func (f *fakeStatementFees) ListForStatement(context.Context, string, *time.Time, *time.Time) ([]models.FeeRecord, error) {
	return f.records, nil
}

func newTestExporter(t *testing.T) *StatementExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	students := &fakeStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", RegNo: "HST/2026/001", FullName: "Amina Yusuf"}},
	}}
	fees := &fakeStatementFees{records: []models.FeeRecord{
		{Description: "Hostel fee", AmountCents: 150000, Status: models.FeeStatusPaid, DueDate: time.Now()},
	}}
	return NewStatementExportService(fees, students, store, signer, StatementExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)
}

func TestRecordPaymentRejectsAlreadyPaid(t *testing.T) {
	repo := &fakeFeeRepo{fees: map[string]*models.FeeRecord{
		"fee-1": {ID: "fee-1", Status: models.FeeStatusPaid},
	}}
	svc := NewFeeService(repo, &fakeStudentReader{}, nil, nil, nil, nil)

	_, err := svc.RecordPayment(context.Background(), "fee-1", RecordPaymentRequest{PaidRef: "RCPT-9"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRecordPaymentSettlesPendingFee(t *testing.T) {
	repo := &fakeFeeRepo{fees: map[string]*models.FeeRecord{
		"fee-1": {ID: "fee-1", Status: models.FeeStatusPending},
	}}
	svc := NewFeeService(repo, &fakeStudentReader{}, nil, nil, nil, nil)

	record, err := svc.RecordPayment(context.Background(), "fee-1", RecordPaymentRequest{PaidRef: "RCPT-9"})
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, record.Status)
	require.NotNil(t, record.PaidRef)
	assert.Equal(t, "RCPT-9", *record.PaidRef)
}

func TestRequestStatementEnqueues(t *testing.T) {
	repo := &fakeFeeRepo{}
	queue := &recordingQueue{}
	students := &fakeStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1"}},
	}}
	svc := NewFeeService(repo, students, newTestExporter(t), queue, nil, nil)

	job, err := svc.RequestStatement(context.Background(), "user-1", RequestStatementRequest{
		StudentID: "stu-1",
		Format:    "csv",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatementStatusQueued, job.Status)
	assert.Equal(t, "user-1", job.CreatedBy)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
}

func TestRequestStatementMarksJobFailedWhenQueueRejects(t *testing.T) {
	repo := &fakeFeeRepo{}
	queue := &recordingQueue{err: errors.New("queue full")}
	students := &fakeStudentReader{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1"}},
	}}
	svc := NewFeeService(repo, students, newTestExporter(t), queue, nil, nil)

	_, err := svc.RequestStatement(context.Background(), "user-1", RequestStatementRequest{
		StudentID: "stu-1",
		Format:    "pdf",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	job := repo.statements["job-1"]
	require.NotNil(t, job)
	assert.Equal(t, models.StatementStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "queue full")
}

func TestRequestStatementRejectsInvertedRange(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, -1, 0)
	svc := NewFeeService(&fakeFeeRepo{}, &fakeStudentReader{}, newTestExporter(t), &recordingQueue{}, nil, nil)

	_, err := svc.RequestStatement(context.Background(), "user-1", RequestStatementRequest{
		StudentID: "stu-1",
		Format:    "csv",
		From:      &from,
		To:        &to,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStatementStatusOwnership(t *testing.T) {
	repo := &fakeFeeRepo{statements: map[string]*models.StatementJob{
		"job-1": {ID: "job-1", Status: models.StatementStatusQueued, CreatedBy: "user-1"},
	}}
	svc := NewFeeService(repo, &fakeStudentReader{}, nil, nil, nil, nil)

	_, err := svc.StatementStatus(context.Background(), "user-2", models.RoleStudent, "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	job, err := svc.StatementStatus(context.Background(), "user-1", models.RoleStudent, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)

	job, err = svc.StatementStatus(context.Background(), "admin-1", models.RoleAdmin, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
}

func TestProcessStatementJobFinishes(t *testing.T) {
	repo := &fakeFeeRepo{statements: map[string]*models.StatementJob{
		"job-1": {
			ID:     "job-1",
			Status: models.StatementStatusQueued,
			Params: models.StatementParams{StudentID: "stu-1", Format: models.StatementFormatCSV},
		},
	}}
	svc := NewFeeService(repo, &fakeStudentReader{}, newTestExporter(t), &recordingQueue{}, nil, nil)

	require.NoError(t, svc.ProcessStatementJob(context.Background(), jobs.Job{ID: "job-1", Type: "statement"}))
	job := repo.statements["job-1"]
	assert.Equal(t, models.StatementStatusFinished, job.Status)
	require.NotNil(t, job.ResultURL)
	assert.Contains(t, *job.ResultURL, "/api/v1/fees/statements/download/")
	assert.NotNil(t, job.FinishedAt)
}

func TestResolveDownloadRoundTrip(t *testing.T) {
	exporter := newTestExporter(t)
	job := &models.StatementJob{
		ID:     "job-1",
		Status: models.StatementStatusFinished,
		Params: models.StatementParams{StudentID: "stu-1", Format: models.StatementFormatCSV},
	}
	result, err := exporter.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	repo := &fakeFeeRepo{statements: map[string]*models.StatementJob{"job-1": job}}
	svc := NewFeeService(repo, &fakeStudentReader{}, exporter, &recordingQueue{}, nil, nil)

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck
	assert.Equal(t, models.StatementFormatCSV, download.Format)
	assert.Contains(t, download.Filename, "statement_stu-1_")
}

func TestResolveDownloadRejectsUnfinishedJob(t *testing.T) {
	exporter := newTestExporter(t)
	job := &models.StatementJob{
		ID:     "job-1",
		Status: models.StatementStatusProcessing,
		Params: models.StatementParams{StudentID: "stu-1", Format: models.StatementFormatCSV},
	}
	result, err := exporter.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	repo := &fakeFeeRepo{statements: map[string]*models.StatementJob{"job-1": job}}
	svc := NewFeeService(repo, &fakeStudentReader{}, exporter, &recordingQueue{}, nil, nil)

	_, err = svc.ResolveDownload(context.Background(), result.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestResolveDownloadRejectsForgedToken(t *testing.T) {
	svc := NewFeeService(&fakeFeeRepo{}, &fakeStudentReader{}, newTestExporter(t), &recordingQueue{}, nil, nil)

	_, err := svc.ResolveDownload(context.Background(), "not-a-real-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRecoverQueuedStatements(t *testing.T) {
	repo := &fakeFeeRepo{statements: map[string]*models.StatementJob{
		"job-1": {ID: "job-1", Status: models.StatementStatusQueued},
		"job-2": {ID: "job-2", Status: models.StatementStatusFinished},
	}}
	queue := &recordingQueue{}
	svc := NewFeeService(repo, &fakeStudentReader{}, newTestExporter(t), queue, nil, nil)

	require.NoError(t, svc.RecoverQueuedStatements(context.Background()))
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "job-1", queue.enqueued[0].ID)
}
