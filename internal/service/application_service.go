package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	GetByID(ctx context.Context, id string) (*models.Application, error)
	HasPending(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, application *models.Application) error
	Review(ctx context.Context, id string, status models.ApplicationStatus, remarks string, reviewerID string) error
}

type applicationStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
}

// SubmitApplicationRequest holds payload for filing an application.
type SubmitApplicationRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	HostelID  string `json:"hostel_id" validate:"required"`
	Remarks   string `json:"remarks"`
}

// ReviewApplicationRequest holds the reviewer decision.
type ReviewApplicationRequest struct {
	Approve bool   `json:"approve"`
	Remarks string `json:"remarks"`
}

// ApplicationService handles the hostel application workflow. Approving an
// application marks the student APPROVED; the seat itself is granted later
// through allocation.
type ApplicationService struct {
	repo      applicationRepository
	students  applicationStudentRepository
	hostels   roomHostelReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApplicationService constructs the application service.
func NewApplicationService(repo applicationRepository, students applicationStudentRepository, hostels roomHostelReader, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{repo: repo, students: students, hostels: hostels, validator: validate, logger: logger}
}

// List returns applications and pagination metadata.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
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
	return applications, pagination, nil
}

// Submit files an application for a student. A student can hold at most one
// pending application.
func (s *ApplicationService) Submit(ctx context.Context, req SubmitApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status == models.StudentStatusAllocated {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student already holds a room")
	}
	if _, err := s.hostels.FindByID(ctx, req.HostelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
	}
	pending, err := s.repo.HasPending(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending applications")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has a pending application")
	}

	application := &models.Application{
		StudentID: req.StudentID,
		HostelID:  req.HostelID,
		Status:    models.ApplicationStatusPending,
		Remarks:   req.Remarks,
	}
	if err := s.repo.Create(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	return application, nil
}

// Review approves or rejects a pending application. Approval also moves the
// student to APPROVED so allocation can proceed.
func (s *ApplicationService) Review(ctx context.Context, id, reviewerID string, req ReviewApplicationRequest) (*models.Application, error) {
	application, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if application.Status != models.ApplicationStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "application already reviewed")
	}

	status := models.ApplicationStatusRejected
	if req.Approve {
		status = models.ApplicationStatusApproved
	}
	if err := s.repo.Review(ctx, id, status, req.Remarks, reviewerID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review application")
	}

	if req.Approve {
		if err := s.students.UpdateStatus(ctx, application.StudentID, models.StudentStatusApproved); err != nil {
			s.logger.Warn("failed to mark student approved after application review",
				zap.String("student_id", application.StudentID), zap.Error(err))
		}
	}

	return s.repo.GetByID(ctx, id)
}
