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

type leaveRepository interface {
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveDetail, int, error)
	GetByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	HasOverlapping(ctx context.Context, studentID string, from, to time.Time) (bool, error)
	Create(ctx context.Context, request *models.LeaveRequest) error
	Review(ctx context.Context, id string, status models.LeaveStatus, reviewerID string) error
}

// RequestLeaveRequest holds payload for requesting leave.
type RequestLeaveRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	FromDate  time.Time `json:"from_date" validate:"required"`
	ToDate    time.Time `json:"to_date" validate:"required"`
	Reason    string    `json:"reason" validate:"required"`
}

// LeaveService handles the leave request workflow.
type LeaveService struct {
	repo      leaveRepository
	students  allocationStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs the leave service.
func NewLeaveService(repo leaveRepository, students allocationStudentReader, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns leave requests and pagination metadata.
func (s *LeaveService) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveDetail, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
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
	return requests, pagination, nil
}

// Request files a leave request for a resident student.
func (s *LeaveService) Request(ctx context.Context, req RequestLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	if req.ToDate.Before(req.FromDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to_date precedes from_date")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status != models.StudentStatusAllocated {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only resident students can request leave")
	}
	overlapping, err := s.repo.HasOverlapping(ctx, req.StudentID, req.FromDate, req.ToDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check overlapping leave")
	}
	if overlapping {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an overlapping leave request already exists")
	}

	request := &models.LeaveRequest{
		StudentID: req.StudentID,
		FromDate:  req.FromDate,
		ToDate:    req.ToDate,
		Reason:    req.Reason,
		Status:    models.LeaveStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	return request, nil
}

// Review approves or rejects a pending leave request.
func (s *LeaveService) Review(ctx context.Context, id, reviewerID string, approve bool) (*models.LeaveRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if request.Status != models.LeaveStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request already reviewed")
	}

	status := models.LeaveStatusRejected
	if approve {
		status = models.LeaveStatusApproved
	}
	if err := s.repo.Review(ctx, id, status, reviewerID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review leave request")
	}
	return s.repo.GetByID(ctx, id)
}
