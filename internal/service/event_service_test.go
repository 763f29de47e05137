package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
)

type mockEventRepo struct {
	items         map[string]*models.EventDetail
	registered    map[string]bool
	registrations int
	regs          []models.EventRegistration
	created       []models.Event
}

func (m *mockEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, int, error) {
	list := []models.EventDetail{}
	for _, event := range m.items {
		list = append(list, *event)
	}
	return list, len(list), nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.EventDetail, error) {
	if event, ok := m.items[id]; ok {
		cp := *event
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = "generated"
	}
	m.created = append(m.created, *event)
	return nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.Event) error {
	if _, ok := m.items[event.ID]; !ok {
		return sql.ErrNoRows
	}
	m.items[event.ID].Event = *event
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *mockEventRepo) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	return m.registered[eventID+"/"+userID], nil
}

func (m *mockEventRepo) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	return m.registrations, nil
}

func (m *mockEventRepo) Register(ctx context.Context, reg *models.EventRegistration) error {
	m.regs = append(m.regs, *reg)
	return nil
}

func (m *mockEventRepo) Unregister(ctx context.Context, eventID, userID string) error {
	if !m.registered[eventID+"/"+userID] {
		return sql.ErrNoRows
	}
	delete(m.registered, eventID+"/"+userID)
	return nil
}

func fixtureEvent(id string, capacity int, recurrence *string) *models.EventDetail {
	return &models.EventDetail{Event: models.Event{
		ID:         id,
		Title:      "Sunday Service",
		Location:   "Main Hall",
		StartsAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Capacity:   capacity,
		Recurrence: recurrence,
	}}
}

func TestEventServiceCreate(t *testing.T) {
	repo := &mockEventRepo{}
	svc := NewEventService(repo, nil, nil)

	event, err := svc.Create(context.Background(), CreateEventRequest{
		Title:    "Easter Vigil",
		StartsAt: "2026-04-04T20:00:00Z",
		EndsAt:   "2026-04-04T23:00:00Z",
		Capacity: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, "Easter Vigil", event.Title)
	assert.Len(t, repo.created, 1)
}

func TestEventServiceCreateRejectsInvertedTimes(t *testing.T) {
	svc := NewEventService(&mockEventRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateEventRequest{
		Title:    "Easter Vigil",
		StartsAt: "2026-04-04T23:00:00Z",
		EndsAt:   "2026-04-04T20:00:00Z",
	})
	require.Error(t, err)
}

func TestEventServiceCreateRejectsBadRecurrence(t *testing.T) {
	svc := NewEventService(&mockEventRepo{}, nil, nil)

	bad := "FREQ=SOMETIMES"
	_, err := svc.Create(context.Background(), CreateEventRequest{
		Title:      "Weekly Prayer",
		StartsAt:   "2026-03-01T10:00:00Z",
		EndsAt:     "2026-03-01T11:00:00Z",
		Recurrence: &bad,
	})
	require.Error(t, err)
}

func TestEventServiceRegister(t *testing.T) {
	repo := &mockEventRepo{items: map[string]*models.EventDetail{"e1": fixtureEvent("e1", 0, nil)}}
	svc := NewEventService(repo, nil, nil)

	reg, err := svc.Register(context.Background(), "e1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "e1", reg.EventID)
	assert.Equal(t, "u1", reg.UserID)
}

func TestEventServiceRegisterTwiceRejected(t *testing.T) {
	repo := &mockEventRepo{
		items:      map[string]*models.EventDetail{"e1": fixtureEvent("e1", 0, nil)},
		registered: map[string]bool{"e1/u1": true},
	}
	svc := NewEventService(repo, nil, nil)

	_, err := svc.Register(context.Background(), "e1", "u1")
	require.Error(t, err)
}

func TestEventServiceRegisterFullEvent(t *testing.T) {
	repo := &mockEventRepo{
		items:         map[string]*models.EventDetail{"e1": fixtureEvent("e1", 50, nil)},
		registrations: 50,
	}
	svc := NewEventService(repo, nil, nil)

	_, err := svc.Register(context.Background(), "e1", "u1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrEventFull.Code, appErr.Code)
}

func TestEventServiceUnregister(t *testing.T) {
	repo := &mockEventRepo{
		items:      map[string]*models.EventDetail{"e1": fixtureEvent("e1", 0, nil)},
		registered: map[string]bool{"e1/u1": true},
	}
	svc := NewEventService(repo, nil, nil)

	require.NoError(t, svc.Unregister(context.Background(), "e1", "u1"))
	require.Error(t, svc.Unregister(context.Background(), "e1", "u1"))
}

func TestEventServiceOccurrencesWeekly(t *testing.T) {
	rule := "FREQ=WEEKLY;BYDAY=SU"
	repo := &mockEventRepo{items: map[string]*models.EventDetail{"e1": fixtureEvent("e1", 0, &rule)}}
	svc := NewEventService(repo, nil, nil)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	occurrences, err := svc.Occurrences(context.Background(), "e1", from, to)
	require.NoError(t, err)
	// March 2026 holds five Sundays starting from the 1st.
	require.Len(t, occurrences, 5)
	for _, occ := range occurrences {
		assert.Equal(t, time.Sunday, occ.StartsAt.Weekday())
		assert.Equal(t, 2*time.Hour, occ.EndsAt.Sub(occ.StartsAt))
	}
}

func TestEventServiceOccurrencesNonRecurring(t *testing.T) {
	repo := &mockEventRepo{items: map[string]*models.EventDetail{"e1": fixtureEvent("e1", 0, nil)}}
	svc := NewEventService(repo, nil, nil)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	occurrences, err := svc.Occurrences(context.Background(), "e1", from, to)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)

	outside, err := svc.Occurrences(context.Background(), "e1", to, to.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, outside)
}
