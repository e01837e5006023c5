package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

const dashboardSummaryCacheKey = "dashboard:summary"

type dashboardRepository interface {
	StudentCounts(ctx context.Context) (int, map[models.StudentStatus]int, error)
	OccupancyByHostel(ctx context.Context) ([]models.HostelOccupancy, error)
	HostelCount(ctx context.Context) (int, error)
	OpenComplaintCount(ctx context.Context) (int, error)
	PendingApplicationCount(ctx context.Context) (int, error)
	PendingLeaveCount(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the admin dashboard payload. The summary is
// cached; allocation changes invalidate it so occupancy never serves stale.
type DashboardService struct {
	repo    dashboardRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(repo dashboardRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }, cfg: cfg}
}

// Summary returns the dashboard summary, serving from cache when possible.
// The second return value reports whether the payload came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	var cached models.DashboardSummary
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, dashboardSummaryCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardSummaryCacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *DashboardService) build(ctx context.Context) (*models.DashboardSummary, error) {
	if s.metrics != nil {
		start := time.Now()
		defer func() {
			s.metrics.ObserveDBQuery("dashboard_summary", time.Since(start))
		}()
	}

	totalStudents, byStatus, err := s.repo.StudentCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate students")
	}
	occupancy, err := s.repo.OccupancyByHostel(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate occupancy")
	}
	hostels, err := s.repo.HostelCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count hostels")
	}
	openComplaints, err := s.repo.OpenComplaintCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count complaints")
	}
	pendingApplications, err := s.repo.PendingApplicationCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count applications")
	}
	pendingLeaves, err := s.repo.PendingLeaveCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count leave requests")
	}

	summary := &models.DashboardSummary{
		TotalStudents:       totalStudents,
		StudentsByStatus:    byStatus,
		TotalHostels:        hostels,
		OccupancyByHostel:   occupancy,
		OpenComplaints:      openComplaints,
		PendingApplications: pendingApplications,
		PendingLeaves:       pendingLeaves,
		GeneratedAt:         s.now(),
	}
	for _, row := range occupancy {
		summary.TotalRooms += row.Rooms
		summary.TotalCapacity += row.Capacity
		summary.TotalOccupied += row.Occupied
	}
	return summary, nil
}
