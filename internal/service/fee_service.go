package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/repository"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
	"github.com/hostelhub/hostel-adm-api/pkg/jobs"
)

type feeRepository interface {
	List(ctx context.Context, filter models.FeeFilter) ([]models.FeeRecordDetail, int, error)
	GetByID(ctx context.Context, id string) (*models.FeeRecord, error)
	Create(ctx context.Context, record *models.FeeRecord) error
	MarkPaid(ctx context.Context, id, paidRef string, paidAt time.Time) error
	MarkOverdueBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CreateStatementJob(ctx context.Context, job *models.StatementJob) error
	GetStatementJob(ctx context.Context, id string) (*models.StatementJob, error)
	UpdateStatementJob(ctx context.Context, id string, params repository.UpdateStatementJobParams) error
	ListQueuedStatementJobs(ctx context.Context, limit int) ([]models.StatementJob, error)
	ListFinishedStatementJobsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.StatementJob, error)
}

type statementQueue interface {
	Enqueue(job jobs.Job) error
}

// CreateFeeRequest bills a student for a fixed amount.
type CreateFeeRequest struct {
	StudentID   string    `json:"student_id" validate:"required"`
	Description string    `json:"description" validate:"required"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

// RecordPaymentRequest settles a pending fee record.
type RecordPaymentRequest struct {
	PaidRef string `json:"paid_ref" validate:"required"`
}

// RequestStatementRequest asks for an asynchronous statement export.
type RequestStatementRequest struct {
	StudentID string     `json:"student_id" validate:"required"`
	Format    string     `json:"format" validate:"required,oneof=csv pdf"`
	From      *time.Time `json:"from"`
	To        *time.Time `json:"to"`
}

// StatementDownload is a resolved, openable statement file.
type StatementDownload struct {
	File      *os.File
	Filename  string
	Format    models.StatementFormat
	ExpiresAt time.Time
}

// FeeService manages fee records and asynchronous statement exports.
type FeeService struct {
	repo      feeRepository
	students  allocationStudentReader
	exporter  *StatementExportService
	queue     statementQueue
	validator *validator.Validate
	logger    *zap.Logger

	cleanupStop chan struct{}
}

// NewFeeService constructs the fee service. The queue may be nil, in which
// case statement requests are rejected.
func NewFeeService(repo feeRepository, students allocationStudentReader, exporter *StatementExportService, queue statementQueue, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{
		repo:        repo,
		students:    students,
		exporter:    exporter,
		queue:       queue,
		validator:   validate,
		logger:      logger,
		cleanupStop: make(chan struct{}),
	}
}

// List returns fee records and pagination metadata.
func (s *FeeService) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeRecordDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee records")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return records, pagination, nil
}

// Get returns a single fee record.
func (s *FeeService) Get(ctx context.Context, id string) (*models.FeeRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee record")
	}
	return record, nil
}

// Create bills a student.
func (s *FeeService) Create(ctx context.Context, req CreateFeeRequest) (*models.FeeRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify student")
	}

	record := &models.FeeRecord{
		StudentID:   req.StudentID,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Status:      models.FeeStatusPending,
		DueDate:     req.DueDate.UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee record")
	}
	return record, nil
}

// RecordPayment marks a pending or overdue fee as paid.
func (s *FeeService) RecordPayment(ctx context.Context, id string, req RecordPaymentRequest) (*models.FeeRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == models.FeeStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee record is already paid")
	}
	if err := s.repo.MarkPaid(ctx, id, req.PaidRef, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	return s.Get(ctx, id)
}

// SweepOverdue flips unpaid records past their due date to OVERDUE.
func (s *FeeService) SweepOverdue(ctx context.Context) (int64, error) {
	affected, err := s.repo.MarkOverdueBefore(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep overdue fees")
	}
	if affected > 0 {
		s.logger.Info("marked overdue fee records", zap.Int64("count", affected))
	}
	return affected, nil
}

// RequestStatement persists a queued export job and hands it to the worker pool.
func (s *FeeService) RequestStatement(ctx context.Context, requesterID string, req RequestStatementRequest) (*models.StatementJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid statement request")
	}
	if s.queue == nil || s.exporter == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "statement exports are disabled")
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "statement range end precedes start")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify student")
	}

	job := &models.StatementJob{
		Params: models.StatementParams{
			StudentID: req.StudentID,
			Format:    models.StatementFormat(req.Format),
			From:      req.From,
			To:        req.To,
		},
		Status:    models.StatementStatusQueued,
		CreatedBy: requesterID,
	}
	if err := s.repo.CreateStatementJob(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist statement job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "statement"}); err != nil {
		s.markFailed(context.Background(), job.ID, "queue rejected job: "+err.Error())
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "statement queue is not accepting work")
	}
	return job, nil
}

// ProcessStatementJob is the worker entry point for queued statement exports.
func (s *FeeService) ProcessStatementJob(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetStatementJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load statement job %s: %w", job.ID, err)
	}
	if record.Status == models.StatementStatusFinished {
		return nil
	}

	processing := models.StatementStatusProcessing
	if err := s.repo.UpdateStatementJob(ctx, record.ID, repository.UpdateStatementJobParams{Status: &processing}); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	result, err := s.exporter.Generate(ctx, record)
	if err != nil {
		s.markFailed(ctx, record.ID, err.Error())
		return err
	}

	finished := models.StatementStatusFinished
	now := time.Now().UTC()
	if err := s.repo.UpdateStatementJob(ctx, record.ID, repository.UpdateStatementJobParams{
		Status:     &finished,
		ResultURL:  &result.URL,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark finished: %w", err)
	}
	s.logger.Info("statement export finished",
		zap.String("job_id", record.ID),
		zap.String("format", string(result.Format)))
	return nil
}

// StatementStatus returns job state. Students may only see jobs they created.
func (s *FeeService) StatementStatus(ctx context.Context, requesterID string, requesterRole models.UserRole, jobID string) (*models.StatementJob, error) {
	job, err := s.repo.GetStatementJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "statement job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load statement job")
	}
	if requesterRole != models.RoleAdmin && requesterRole != models.RoleSuperAdmin && job.CreatedBy != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "statement job belongs to another user")
	}
	return job, nil
}

// ResolveDownload exchanges a signed token for an open file handle.
func (s *FeeService) ResolveDownload(ctx context.Context, token string) (*StatementDownload, error) {
	if s.exporter == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "statement exports are disabled")
	}
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "download link is invalid or expired")
	}

	job, err := s.repo.GetStatementJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "statement job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load statement job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link does not match this job")
	}
	if job.Status != models.StatementStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "statement is not ready")
	}

	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "statement file is unavailable")
	}
	return &StatementDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverQueuedStatements re-enqueues jobs that were queued before a restart.
func (s *FeeService) RecoverQueuedStatements(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	pending, err := s.repo.ListQueuedStatementJobs(ctx, 50)
	if err != nil {
		return err
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "statement"}); err != nil {
			s.logger.Warn("failed to re-enqueue statement job",
				zap.String("job_id", job.ID),
				zap.Error(err))
			continue
		}
		s.logger.Info("re-enqueued statement job", zap.String("job_id", job.ID))
	}
	return nil
}

// StartCleanup periodically removes expired statement files and stale rows.
func (s *FeeService) StartCleanup(interval, resultTTL time.Duration) {
	if s.exporter == nil {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.cleanupExpired(resultTTL)
			case <-s.cleanupStop:
				return
			}
		}
	}()
}

// StopCleanup terminates the cleanup loop.
func (s *FeeService) StopCleanup() {
	close(s.cleanupStop)
}

func (s *FeeService) cleanupExpired(resultTTL time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-resultTTL)
	expired, err := s.repo.ListFinishedStatementJobsBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Warn("statement cleanup listing failed", zap.Error(err))
		return
	}
	for _, job := range expired {
		token := extractStatementToken(job.ResultURL)
		if token == "" {
			continue
		}
		_, relPath, _, err := s.exporter.ParseToken(token, true)
		if err != nil {
			s.logger.Warn("statement cleanup token parse failed",
				zap.String("job_id", job.ID),
				zap.Error(err))
			continue
		}
		if err := s.exporter.Delete(relPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("statement cleanup delete failed",
				zap.String("job_id", job.ID),
				zap.Error(err))
		}
	}

	removed, err := s.exporter.Cleanup(resultTTL)
	if err != nil {
		s.logger.Warn("statement storage sweep failed", zap.Error(err))
		return
	}
	if len(expired) > 0 || len(removed) > 0 {
		s.logger.Info("statement cleanup completed",
			zap.Int("jobs", len(expired)),
			zap.Int("files", len(removed)))
	}
}

func (s *FeeService) markFailed(ctx context.Context, jobID, message string) {
	failed := models.StatementStatusFailed
	now := time.Now().UTC()
	if err := s.repo.UpdateStatementJob(ctx, jobID, repository.UpdateStatementJobParams{
		Status:       &failed,
		ErrorMessage: &message,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Error("failed to mark statement job failed",
			zap.String("job_id", jobID),
			zap.Error(err))
	}
}

func extractStatementToken(resultURL *string) string {
	if resultURL == nil {
		return ""
	}
	idx := strings.LastIndex(*resultURL, "/")
	if idx < 0 || idx == len(*resultURL)-1 {
		return ""
	}
	return (*resultURL)[idx+1:]
}
