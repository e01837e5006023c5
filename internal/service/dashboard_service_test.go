package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
)

type fakeDashboardRepo struct {
	builds int
}

func (f *fakeDashboardRepo) StudentCounts(context.Context) (int, map[models.StudentStatus]int, error) {
	f.builds++
	return 12, map[models.StudentStatus]int{
		models.StudentStatusAllocated: 7,
		models.StudentStatusApproved:  3,
		models.StudentStatusPending:   2,
	}, nil
}

func (f *fakeDashboardRepo) OccupancyByHostel(context.Context) ([]models.HostelOccupancy, error) {
	return []models.HostelOccupancy{
		{HostelID: "hos-1", HostelName: "North Block", Rooms: 10, Capacity: 20, Occupied: 5},
		{HostelID: "hos-2", HostelName: "South Block", Rooms: 8, Capacity: 16, Occupied: 2},
	}, nil
}

func (f *fakeDashboardRepo) HostelCount(context.Context) (int, error)             { return 2, nil }
func (f *fakeDashboardRepo) OpenComplaintCount(context.Context) (int, error)      { return 3, nil }
func (f *fakeDashboardRepo) PendingApplicationCount(context.Context) (int, error) { return 4, nil }
func (f *fakeDashboardRepo) PendingLeaveCount(context.Context) (int, error)       { return 1, nil }

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestSummaryAggregatesOccupancy(t *testing.T) {
	repo := &fakeDashboardRepo{}
	svc := NewDashboardService(repo, nil, nil, nil, DashboardServiceConfig{})

	summary, fromCache, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 12, summary.TotalStudents)
	assert.Equal(t, 2, summary.TotalHostels)
	assert.Equal(t, 18, summary.TotalRooms)
	assert.Equal(t, 36, summary.TotalCapacity)
	assert.Equal(t, 7, summary.TotalOccupied)
	assert.Equal(t, 7, summary.StudentsByStatus[models.StudentStatusAllocated])
}

func TestSummaryServesFromCache(t *testing.T) {
	repo := &fakeDashboardRepo{}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, nil, nil, DashboardServiceConfig{CacheTTL: time.Minute})

	_, fromCache, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, fromCache)

	summary, fromCache, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, 12, summary.TotalStudents)
	assert.Equal(t, 1, repo.builds)
}

func TestSummaryRebuildsAfterInvalidation(t *testing.T) {
	repo := &fakeDashboardRepo{}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, nil, nil, DashboardServiceConfig{CacheTTL: time.Minute})

	_, _, err := svc.Summary(context.Background())
	require.NoError(t, err)

	cache.InvalidateDashboard(context.Background())

	_, fromCache, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, repo.builds)
}
