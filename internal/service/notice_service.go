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

type noticeRepository interface {
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error)
	GetByID(ctx context.Context, id string) (*models.Notice, error)
	Create(ctx context.Context, notice *models.Notice) error
	Update(ctx context.Context, notice *models.Notice) error
	Delete(ctx context.Context, id string) error
}

// PublishNoticeRequest holds payload for publishing notices.
type PublishNoticeRequest struct {
	Title          string                `json:"title" validate:"required,max=200"`
	Content        string                `json:"content" validate:"required"`
	Audience       models.NoticeAudience `json:"audience" validate:"required,oneof=ALL STUDENTS WARDENS HOSTEL"`
	TargetHostelID *string               `json:"target_hostel_id" validate:"required_if=Audience HOSTEL"`
	Priority       models.NoticePriority `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH"`
	IsPinned       bool                  `json:"is_pinned"`
	PublishedAt    *time.Time            `json:"published_at"`
	ExpiresAt      *time.Time            `json:"expires_at"`
}

// NoticeListRequest scopes the notice board to the caller.
type NoticeListRequest struct {
	Roles     []models.UserRole
	HostelIDs []string
	Page      int
	PageSize  int
}

// NoticeService handles the notice board workflow.
type NoticeService struct {
	repo      noticeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoticeService constructs the notice service.
func NewNoticeService(repo noticeRepository, validate *validator.Validate, logger *zap.Logger) *NoticeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoticeService{repo: repo, validator: validate, logger: logger}
}

// List returns notices visible to the caller, pinned first.
func (s *NoticeService) List(ctx context.Context, req NoticeListRequest) ([]models.Notice, *models.Pagination, error) {
	filter := models.NoticeFilter{
		AudienceRoles: req.Roles,
		HostelIDs:     req.HostelIDs,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}
	notices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return notices, pagination, nil
}

// Get returns a notice by ID.
func (s *NoticeService) Get(ctx context.Context, id string) (*models.Notice, error) {
	notice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	return notice, nil
}

// Publish creates a new notice. PublishedAt defaults to now, so a notice is
// visible immediately unless scheduled for later.
func (s *NoticeService) Publish(ctx context.Context, authorID string, req PublishNoticeRequest) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}
	publishedAt := time.Now().UTC()
	if req.PublishedAt != nil {
		publishedAt = req.PublishedAt.UTC()
	}
	priority := req.Priority
	if priority == "" {
		priority = models.NoticePriorityNormal
	}
	notice := &models.Notice{
		Title:          req.Title,
		Content:        req.Content,
		Audience:       req.Audience,
		TargetHostelID: req.TargetHostelID,
		Priority:       priority,
		IsPinned:       req.IsPinned,
		PublishedAt:    publishedAt,
		ExpiresAt:      req.ExpiresAt,
		CreatedBy:      authorID,
	}
	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish notice")
	}
	return notice, nil
}

// Update modifies an existing notice.
func (s *NoticeService) Update(ctx context.Context, id string, req PublishNoticeRequest) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}
	notice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}

	notice.Title = req.Title
	notice.Content = req.Content
	notice.Audience = req.Audience
	notice.TargetHostelID = req.TargetHostelID
	if req.Priority != "" {
		notice.Priority = req.Priority
	}
	notice.IsPinned = req.IsPinned
	if req.PublishedAt != nil {
		notice.PublishedAt = req.PublishedAt.UTC()
	}
	notice.ExpiresAt = req.ExpiresAt
	if err := s.repo.Update(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notice")
	}
	return notice, nil
}

// Delete removes a notice from the board.
func (s *NoticeService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notice")
	}
	return nil
}
