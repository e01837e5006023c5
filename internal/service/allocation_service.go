package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/repository"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

type allocationRepository interface {
	Allocate(ctx context.Context, studentID, roomID string) error
	Deallocate(ctx context.Context, studentID string) error
	RemoveStudent(ctx context.Context, studentID string) error
}

type allocationStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type cacheInvalidator interface {
	InvalidateDashboard(ctx context.Context)
}

// AllocationService coordinates room allocation, deallocation and student
// removal. All occupancy mutations happen in single transactions inside the
// allocation repository; this layer maps outcomes to API errors and records
// the audit trail.
type AllocationService struct {
	repo     allocationRepository
	students allocationStudentReader
	audit    auditWriter
	cache    cacheInvalidator
	logger   *zap.Logger
}

// NewAllocationService constructs the allocation service.
func NewAllocationService(repo allocationRepository, students allocationStudentReader, audit auditWriter, cache cacheInvalidator, logger *zap.Logger) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{repo: repo, students: students, audit: audit, cache: cache, logger: logger}
}

// Allocate places a student into a room. A student already housed elsewhere
// is moved: the old membership is released and the new one created in the
// same transaction, so no seat is ever double counted.
func (s *AllocationService) Allocate(ctx context.Context, actorID, studentID, roomID string) (*models.StudentDetail, error) {
	if err := s.repo.Allocate(ctx, studentID, roomID); err != nil {
		switch {
		case errors.Is(err, repository.ErrStudentMissing):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		case errors.Is(err, repository.ErrRoomMissing):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		case errors.Is(err, repository.ErrRoomFull):
			return nil, appErrors.Clone(appErrors.ErrRoomFull, "room has no free capacity")
		case errors.Is(err, repository.ErrRoomMaintenance):
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "room is under maintenance")
		case errors.Is(err, repository.ErrSameRoom):
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already occupies this room")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate room")
	}

	s.recordAudit(ctx, actorID, models.AuditActionStudentAllocate, studentID, map[string]string{"room_id": roomID})
	s.invalidate(ctx)

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		// Allocation already committed; return the outcome without detail.
		s.logger.Warn("failed to reload student after allocation", zap.String("student_id", studentID), zap.Error(err))
		return nil, nil
	}
	return student, nil
}

// Deallocate releases a student's seat, if any. Releasing a student who has
// no room is a no-op rather than an error.
func (s *AllocationService) Deallocate(ctx context.Context, actorID, studentID string) error {
	if err := s.repo.Deallocate(ctx, studentID); err != nil {
		if errors.Is(err, repository.ErrStudentMissing) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deallocate room")
	}

	s.recordAudit(ctx, actorID, models.AuditActionStudentDeallocate, studentID, nil)
	s.invalidate(ctx)
	return nil
}

// RemoveStudent deletes a student record. Any held seat is released in the
// same transaction so room occupancy stays consistent with membership.
func (s *AllocationService) RemoveStudent(ctx context.Context, actorID, studentID string) error {
	if err := s.repo.RemoveStudent(ctx, studentID); err != nil {
		if errors.Is(err, repository.ErrStudentMissing) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}

	s.recordAudit(ctx, actorID, models.AuditActionStudentDelete, studentID, nil)
	s.invalidate(ctx)
	return nil
}

func (s *AllocationService) recordAudit(ctx context.Context, actorID, action, studentID string, values map[string]string) {
	if s.audit == nil {
		return
	}
	var payload []byte
	if len(values) > 0 {
		payload, _ = json.Marshal(values)
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "student",
		ResourceID: &studentID,
		NewValues:  payload,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record allocation audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *AllocationService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateDashboard(ctx)
}
