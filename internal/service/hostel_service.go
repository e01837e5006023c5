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

type hostelRepository interface {
	List(ctx context.Context, filter models.HostelFilter) ([]models.HostelSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.Hostel, error)
	FindSummaryByID(ctx context.Context, id string) (*models.HostelSummary, error)
	Create(ctx context.Context, hostel *models.Hostel) error
	Update(ctx context.Context, hostel *models.Hostel) error
	AssignWarden(ctx context.Context, hostelID string, wardenID *string) error
	Deactivate(ctx context.Context, id string) error
}

type hostelWardenReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateHostelRequest holds payload for creating hostels.
type CreateHostelRequest struct {
	Name    string            `json:"name" validate:"required"`
	Type    models.HostelType `json:"type" validate:"required,oneof=BOYS GIRLS"`
	Address string            `json:"address"`
}

// UpdateHostelRequest holds payload for updating hostels.
type UpdateHostelRequest struct {
	Name    string            `json:"name" validate:"required"`
	Type    models.HostelType `json:"type" validate:"required,oneof=BOYS GIRLS"`
	Address string            `json:"address"`
	Active  bool              `json:"active"`
}

// HostelService handles hostel management use-cases. Occupancy figures in its
// responses are always derived from room state at read time.
type HostelService struct {
	repo      hostelRepository
	users     hostelWardenReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHostelService constructs the hostel service.
func NewHostelService(repo hostelRepository, users hostelWardenReader, validate *validator.Validate, logger *zap.Logger) *HostelService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostelService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns hostels with derived occupancy and pagination metadata.
func (s *HostelService) List(ctx context.Context, filter models.HostelFilter) ([]models.HostelSummary, *models.Pagination, error) {
	hostels, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hostels")
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
	return hostels, pagination, nil
}

// Get returns a hostel with derived occupancy.
func (s *HostelService) Get(ctx context.Context, id string) (*models.HostelSummary, error) {
	summary, err := s.repo.FindSummaryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
	}
	return summary, nil
}

// Create registers a new hostel.
func (s *HostelService) Create(ctx context.Context, req CreateHostelRequest) (*models.Hostel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hostel payload")
	}
	hostel := &models.Hostel{
		Name:    req.Name,
		Type:    req.Type,
		Address: req.Address,
		Active:  true,
	}
	if err := s.repo.Create(ctx, hostel); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create hostel")
	}
	return hostel, nil
}

// Update modifies hostel attributes.
func (s *HostelService) Update(ctx context.Context, id string, req UpdateHostelRequest) (*models.Hostel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hostel payload")
	}
	hostel, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
	}
	hostel.Name = req.Name
	hostel.Type = req.Type
	hostel.Address = req.Address
	hostel.Active = req.Active
	if err := s.repo.Update(ctx, hostel); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update hostel")
	}
	return hostel, nil
}

// AssignWarden links a warden account to the hostel. Passing nil clears the
// assignment.
func (s *HostelService) AssignWarden(ctx context.Context, hostelID string, wardenID *string) error {
	if _, err := s.repo.FindByID(ctx, hostelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
	}
	if wardenID != nil {
		warden, err := s.users.FindByID(ctx, *wardenID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "warden not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load warden")
		}
		if warden.Role != models.RoleWarden {
			return appErrors.Clone(appErrors.ErrValidation, "user is not a warden")
		}
	}
	if err := s.repo.AssignWarden(ctx, hostelID, wardenID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign warden")
	}
	return nil
}

// Deactivate marks a hostel inactive. Its rooms and members are untouched.
func (s *HostelService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate hostel")
	}
	return nil
}
