package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parishhub/chms-api/internal/dto"
	"github.com/parishhub/chms-api/internal/models"
	"github.com/parishhub/chms-api/internal/repository"
)

const dashboardCacheKey = "dashboard:overview"

// dashboardShiftWindowDays is the horizon for the open-shifts widget.
const dashboardShiftWindowDays = 14

type dashboardMemberRepository interface {
	Counts(ctx context.Context) (*repository.MemberCounts, error)
}

type dashboardMinistryRepository interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardEventRepository interface {
	ListUpcoming(ctx context.Context, after time.Time, limit int) ([]models.EventDetail, error)
}

type dashboardTaskRepository interface {
	Counts(ctx context.Context) (*repository.TaskCounts, error)
}

type dashboardShiftRepository interface {
	CountUnassignedInWindow(ctx context.Context, from, to time.Time) (int, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService builds the admin overview. The four sections load
// concurrently and independently; a failing section carries its own
// error while the others still render.
type DashboardService struct {
	members    dashboardMemberRepository
	ministries dashboardMinistryRepository
	events     dashboardEventRepository
	tasks      dashboardTaskRepository
	shifts     dashboardShiftRepository
	cache      dashboardCache
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(
	members dashboardMemberRepository,
	ministries dashboardMinistryRepository,
	events dashboardEventRepository,
	tasks dashboardTaskRepository,
	shifts dashboardShiftRepository,
	cache dashboardCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		members:    members,
		ministries: ministries,
		events:     events,
		tasks:      tasks,
		shifts:     shifts,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Overview returns the dashboard payload, serving the cached copy when
// fresh. Only a fully clean payload is cached so a transient section
// failure is retried on the next request.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardResponse, error) {
	if s.cache != nil {
		var cached dto.DashboardResponse
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	resp := &dto.DashboardResponse{}
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		resp.Members = s.memberSection(ctx)
	}()
	go func() {
		defer wg.Done()
		resp.Events = s.eventSection(ctx)
	}()
	go func() {
		defer wg.Done()
		resp.Tasks = s.taskSection(ctx)
	}()
	go func() {
		defer wg.Done()
		resp.Shifts = s.shiftSection(ctx)
	}()
	wg.Wait()

	clean := resp.Members.Error == "" && resp.Events.Error == "" && resp.Tasks.Error == "" && resp.Shifts.Error == ""
	if clean && s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard", zap.Error(err))
		}
	}
	return resp, nil
}

func (s *DashboardService) memberSection(ctx context.Context) dto.DashboardSection {
	counts, err := s.members.Counts(ctx)
	if err != nil {
		s.logger.Warn("dashboard member section failed", zap.Error(err))
		return dto.DashboardSection{Error: "failed to load member stats"}
	}
	ministries, err := s.ministries.CountActive(ctx)
	if err != nil {
		s.logger.Warn("dashboard ministry count failed", zap.Error(err))
		return dto.DashboardSection{Error: "failed to load member stats"}
	}
	return dto.DashboardSection{Data: dto.MemberStats{
		TotalMembers:  counts.Total,
		ActiveMembers: counts.Active,
		Ministries:    ministries,
	}}
}

func (s *DashboardService) eventSection(ctx context.Context) dto.DashboardSection {
	events, err := s.events.ListUpcoming(ctx, s.now().UTC(), 5)
	if err != nil {
		s.logger.Warn("dashboard event section failed", zap.Error(err))
		return dto.DashboardSection{Error: "failed to load upcoming events"}
	}
	upcoming := make([]dto.UpcomingEvent, 0, len(events))
	for _, e := range events {
		upcoming = append(upcoming, dto.UpcomingEvent{
			ID:       e.ID,
			Title:    e.Title,
			StartsAt: e.StartsAt.Format(time.RFC3339),
			Location: e.Location,
		})
	}
	return dto.DashboardSection{Data: upcoming}
}

func (s *DashboardService) taskSection(ctx context.Context) dto.DashboardSection {
	counts, err := s.tasks.Counts(ctx)
	if err != nil {
		s.logger.Warn("dashboard task section failed", zap.Error(err))
		return dto.DashboardSection{Error: "failed to load task stats"}
	}
	return dto.DashboardSection{Data: dto.TaskStats{
		Open:    counts.Pending + counts.InProgress,
		Overdue: counts.Overdue,
	}}
}

func (s *DashboardService) shiftSection(ctx context.Context) dto.DashboardSection {
	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, dashboardShiftWindowDays)
	count, err := s.shifts.CountUnassignedInWindow(ctx, from, to)
	if err != nil {
		s.logger.Warn("dashboard shift section failed", zap.Error(err))
		return dto.DashboardSection{Error: "failed to load shift stats"}
	}
	return dto.DashboardSection{Data: dto.ShiftStats{
		UnassignedShifts: count,
		WindowDays:       dashboardShiftWindowDays,
	}}
}
