package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishhub/chms-api/internal/dto"
	"github.com/parishhub/chms-api/internal/models"
	"github.com/parishhub/chms-api/internal/repository"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
)

type mockDashboardMemberRepo struct {
	counts *repository.MemberCounts
	err    error
}

func (m *mockDashboardMemberRepo) Counts(ctx context.Context) (*repository.MemberCounts, error) {
	return m.counts, m.err
}

type mockDashboardMinistryRepo struct {
	count int
}

func (m *mockDashboardMinistryRepo) CountActive(ctx context.Context) (int, error) {
	return m.count, nil
}

type mockDashboardEventRepo struct {
	events []models.EventDetail
	err    error
}

func (m *mockDashboardEventRepo) ListUpcoming(ctx context.Context, after time.Time, limit int) ([]models.EventDetail, error) {
	return m.events, m.err
}

type mockDashboardTaskRepo struct {
	counts *repository.TaskCounts
}

func (m *mockDashboardTaskRepo) Counts(ctx context.Context) (*repository.TaskCounts, error) {
	return m.counts, nil
}

type mockDashboardShiftRepo struct {
	count int
}

func (m *mockDashboardShiftRepo) CountUnassignedInWindow(ctx context.Context, from, to time.Time) (int, error) {
	return m.count, nil
}

type mockDashboardCache struct {
	stored map[string]interface{}
	sets   int
}

func (m *mockDashboardCache) Get(ctx context.Context, key string, dest interface{}) error {
	if _, ok := m.stored[key]; ok {
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (m *mockDashboardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.stored == nil {
		m.stored = map[string]interface{}{}
	}
	m.stored[key] = value
	m.sets++
	return nil
}

func newDashboardFixture(members *mockDashboardMemberRepo, events *mockDashboardEventRepo, cache *mockDashboardCache) *DashboardService {
	return NewDashboardService(
		members,
		&mockDashboardMinistryRepo{count: 4},
		events,
		&mockDashboardTaskRepo{counts: &repository.TaskCounts{Pending: 3, InProgress: 2, Completed: 10, Overdue: 1}},
		&mockDashboardShiftRepo{count: 7},
		cache,
		time.Minute,
		nil,
	)
}

func TestDashboardOverview(t *testing.T) {
	cache := &mockDashboardCache{}
	svc := newDashboardFixture(
		&mockDashboardMemberRepo{counts: &repository.MemberCounts{Total: 40, Active: 35}},
		&mockDashboardEventRepo{events: []models.EventDetail{
			{Event: models.Event{ID: "e1", Title: "Sunday Service", StartsAt: time.Now().Add(24 * time.Hour)}},
		}},
		cache,
	)

	resp, err := svc.Overview(context.Background())
	require.NoError(t, err)

	members, ok := resp.Members.Data.(dto.MemberStats)
	require.True(t, ok)
	assert.Equal(t, 40, members.TotalMembers)
	assert.Equal(t, 35, members.ActiveMembers)
	assert.Equal(t, 4, members.Ministries)

	tasks, ok := resp.Tasks.Data.(dto.TaskStats)
	require.True(t, ok)
	assert.Equal(t, 5, tasks.Open)
	assert.Equal(t, 1, tasks.Overdue)

	shifts, ok := resp.Shifts.Data.(dto.ShiftStats)
	require.True(t, ok)
	assert.Equal(t, 7, shifts.UnassignedShifts)

	assert.Equal(t, 1, cache.sets)
}

func TestDashboardOverviewSectionFailureIsIsolated(t *testing.T) {
	cache := &mockDashboardCache{}
	svc := newDashboardFixture(
		&mockDashboardMemberRepo{err: errors.New("db down")},
		&mockDashboardEventRepo{},
		cache,
	)

	resp, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Members.Error)
	assert.Empty(t, resp.Tasks.Error)
	assert.Empty(t, resp.Shifts.Error)
	// A dirty payload is never cached so the next request retries.
	assert.Zero(t, cache.sets)
}

func TestDashboardOverviewServesCachedCopy(t *testing.T) {
	cache := &mockDashboardCache{stored: map[string]interface{}{"dashboard:overview": struct{}{}}}
	members := &mockDashboardMemberRepo{err: errors.New("should not be called")}
	svc := newDashboardFixture(members, &mockDashboardEventRepo{}, cache)

	resp, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Empty(t, resp.Members.Error)
}
