package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) error
	CountByStatus(ctx context.Context, studentID string, from, to time.Time) (map[models.AttendanceStatus]int, error)
}

// MarkAttendanceRequest holds payload for marking roll call.
type MarkAttendanceRequest struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Date      time.Time               `json:"date" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LEAVE"`
	Notes     string                  `json:"notes"`
}

// BulkMarkAttendanceRequest marks a whole roster for one date in one call.
type BulkMarkAttendanceRequest struct {
	Date    time.Time             `json:"date" validate:"required"`
	Entries []BulkAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// BulkAttendanceEntry is a single roster row in a bulk mark.
type BulkAttendanceEntry struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LEAVE"`
	Notes     string                  `json:"notes"`
}

// BulkMarkResult reports per-entry outcomes of a bulk mark.
type BulkMarkResult struct {
	Marked int               `json:"marked"`
	Failed map[string]string `json:"failed,omitempty"`
}

// AttendanceSummary reports a student's roll call totals over a window.
type AttendanceSummary struct {
	StudentID string                          `json:"student_id"`
	From      time.Time                       `json:"from"`
	To        time.Time                       `json:"to"`
	Counts    map[models.AttendanceStatus]int `json:"counts"`
}

// AttendanceService handles daily roll call use-cases.
type AttendanceService struct {
	repo      attendanceRepository
	students  allocationStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, students allocationStudentReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns attendance records and pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
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

// Mark records roll call for a resident student. Marking the same student and
// date again overwrites the earlier entry.
func (s *AttendanceService) Mark(ctx context.Context, markerID string, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status != models.StudentStatusAllocated {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only resident students have roll call")
	}

	record := &models.AttendanceRecord{
		StudentID: req.StudentID,
		Date:      req.Date.UTC().Truncate(24 * time.Hour),
		Status:    req.Status,
		Notes:     req.Notes,
		MarkedBy:  markerID,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	return record, nil
}

// MarkBulk records roll call for a roster in one request. Entries are applied
// independently; failures are collected per student rather than aborting the
// whole batch, so a warden can fix the flagged rows and resubmit just those.
func (s *AttendanceService) MarkBulk(ctx context.Context, markerID string, req BulkMarkAttendanceRequest) (*BulkMarkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	result := &BulkMarkResult{}
	for _, entry := range req.Entries {
		_, err := s.Mark(ctx, markerID, MarkAttendanceRequest{
			StudentID: entry.StudentID,
			Date:      req.Date,
			Status:    entry.Status,
			Notes:     entry.Notes,
		})
		if err != nil {
			if result.Failed == nil {
				result.Failed = map[string]string{}
			}
			result.Failed[entry.StudentID] = appErrors.FromError(err).Message
			continue
		}
		result.Marked++
	}
	if result.Marked > 0 {
		s.logger.Info("bulk attendance marked",
			zap.Int("marked", result.Marked),
			zap.Int("failed", len(result.Failed)))
	}
	return result, nil
}

// Summary aggregates a student's roll call results over a date window.
func (s *AttendanceService) Summary(ctx context.Context, studentID string, from, to time.Time) (*AttendanceSummary, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to precedes from")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	counts, err := s.repo.CountByStatus(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize attendance")
	}
	return &AttendanceSummary{StudentID: studentID, From: from, To: to, Counts: counts}, nil
}
