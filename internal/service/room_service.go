package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/repository"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.RoomDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindDetailByID(ctx context.Context, id string) (*models.RoomDetail, error)
	ExistsByNumber(ctx context.Context, hostelID, number, excludeID string) (bool, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	SetMaintenance(ctx context.Context, id string, on bool) error
	Delete(ctx context.Context, id string) error
}

type roomHostelReader interface {
	FindByID(ctx context.Context, id string) (*models.Hostel, error)
}

// CreateRoomRequest holds payload for creating rooms.
type CreateRoomRequest struct {
	HostelID string          `json:"hostel_id" validate:"required"`
	Number   string          `json:"number" validate:"required"`
	Floor    int             `json:"floor" validate:"min=0"`
	Type     models.RoomType `json:"type" validate:"required,oneof=SINGLE DOUBLE TRIPLE DORM"`
	Capacity int             `json:"capacity" validate:"required,min=1"`
}

// UpdateRoomRequest holds payload for updating room attributes. Capacity may
// shrink below the current member count; existing members keep their seats
// and the room reports FULL until attrition brings it back within capacity.
type UpdateRoomRequest struct {
	Number   string          `json:"number" validate:"required"`
	Floor    int             `json:"floor" validate:"min=0"`
	Type     models.RoomType `json:"type" validate:"required,oneof=SINGLE DOUBLE TRIPLE DORM"`
	Capacity int             `json:"capacity" validate:"required,min=1"`
}

// RoomService handles room management use-cases.
type RoomService struct {
	repo      roomRepository
	hostels   roomHostelReader
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs the room service.
func NewRoomService(repo roomRepository, hostels roomHostelReader, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, hostels: hostels, audit: audit, validator: validate, logger: logger}
}

// List returns rooms and pagination metadata.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.RoomDetail, *models.Pagination, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
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
	return rooms, pagination, nil
}

// Get returns a room with its hostel context and member list.
func (s *RoomService) Get(ctx context.Context, id string) (*models.RoomDetail, error) {
	room, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// Create adds a new room to a hostel. New rooms start empty and AVAILABLE.
func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	if _, err := s.hostels.FindByID(ctx, req.HostelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
	}
	exists, err := s.repo.ExistsByNumber(ctx, req.HostelID, req.Number, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate room number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room number already used in this hostel")
	}

	room := &models.Room{
		HostelID: req.HostelID,
		Number:   req.Number,
		Floor:    req.Floor,
		Type:     req.Type,
		Capacity: req.Capacity,
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return room, nil
}

// Update modifies room attributes and re-derives its status.
func (s *RoomService) Update(ctx context.Context, id string, req UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	exists, err := s.repo.ExistsByNumber(ctx, existing.HostelID, req.Number, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate room number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room number already used in this hostel")
	}

	existing.Number = req.Number
	existing.Floor = req.Floor
	existing.Type = req.Type
	existing.Capacity = req.Capacity
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	return s.repo.FindByID(ctx, id)
}

// SetMaintenance toggles the maintenance flag. While set, the room rejects
// allocations regardless of free capacity; clearing it re-derives the status
// from current occupancy.
func (s *RoomService) SetMaintenance(ctx context.Context, actorID, id string, on bool) error {
	if err := s.repo.SetMaintenance(ctx, id, on); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update maintenance state")
	}
	if s.audit != nil {
		payload := []byte(`{"maintenance":"off"}`)
		if on {
			payload = []byte(`{"maintenance":"on"}`)
		}
		entry := &models.AuditLog{
			Action:     models.AuditActionRoomMaintenance,
			Resource:   "room",
			ResourceID: &id,
			NewValues:  payload,
		}
		if actorID != "" {
			entry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record maintenance audit log", zap.Error(err))
		}
	}
	return nil
}

// Delete removes an empty room. Rooms with members cannot be deleted.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomOccupied):
			return appErrors.Clone(appErrors.ErrConflict, "room still has members")
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	return nil
}
