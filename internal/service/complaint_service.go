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

type complaintRepository interface {
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, int, error)
	GetByID(ctx context.Context, id string) (*models.Complaint, error)
	Create(ctx context.Context, complaint *models.Complaint) error
	UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus, resolution *string, resolverID *string) error
}

// FileComplaintRequest holds payload for filing a complaint.
type FileComplaintRequest struct {
	StudentID string                   `json:"student_id" validate:"required"`
	Category  models.ComplaintCategory `json:"category" validate:"required,oneof=ELECTRICAL PLUMBING CLEANLINESS FOOD OTHER"`
	Subject   string                   `json:"subject" validate:"required,max=200"`
	Body      string                   `json:"body" validate:"required"`
}

// UpdateComplaintRequest moves a complaint through triage.
type UpdateComplaintRequest struct {
	Status     models.ComplaintStatus `json:"status" validate:"required,oneof=OPEN IN_PROGRESS RESOLVED"`
	Resolution string                 `json:"resolution"`
}

// ComplaintService handles the complaint workflow. A complaint is tagged with
// the student's room and hostel at filing time so it stays attributable even
// if the student later moves.
type ComplaintService struct {
	repo      complaintRepository
	students  allocationStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewComplaintService constructs the complaint service.
func NewComplaintService(repo complaintRepository, students allocationStudentReader, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns complaints and pagination metadata.
func (s *ComplaintService) List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, *models.Pagination, error) {
	complaints, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
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
	return complaints, pagination, nil
}

// Get returns a complaint by ID.
func (s *ComplaintService) Get(ctx context.Context, id string) (*models.Complaint, error) {
	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	return complaint, nil
}

// File records a new complaint in OPEN state.
func (s *ComplaintService) File(ctx context.Context, req FileComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	complaint := &models.Complaint{
		StudentID: req.StudentID,
		HostelID:  student.HostelID,
		RoomID:    student.RoomID,
		Category:  req.Category,
		Subject:   req.Subject,
		Body:      req.Body,
		Status:    models.ComplaintStatusOpen,
	}
	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create complaint")
	}
	return complaint, nil
}

// Update moves a complaint through the triage workflow. Resolving requires a
// resolution note; a resolved complaint cannot be reopened.
func (s *ComplaintService) Update(ctx context.Context, id, actorID string, req UpdateComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}
	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if complaint.Status == models.ComplaintStatusResolved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "complaint already resolved")
	}

	var resolution *string
	var resolver *string
	if req.Status == models.ComplaintStatusResolved {
		if req.Resolution == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "resolution note is required")
		}
		resolution = &req.Resolution
		if actorID != "" {
			resolver = &actorID
		}
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status, resolution, resolver); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update complaint")
	}
	return s.repo.GetByID(ctx, id)
}
