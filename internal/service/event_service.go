package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EventDetail, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	CountRegistrations(ctx context.Context, eventID string) (int, error)
	Register(ctx context.Context, reg *models.EventRegistration) error
	Unregister(ctx context.Context, eventID, userID string) error
}

// EventService manages events, registrations and recurrence expansion.
type EventService struct {
	repo      eventRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs the service.
func NewEventService(repo eventRepository, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, validator: validate, logger: logger}
}

// CreateEventRequest describes the create payload. Recurrence, when set,
// must be a valid RRULE string (e.g. "FREQ=WEEKLY;BYDAY=SU").
type CreateEventRequest struct {
	Title       string  `json:"title" validate:"required,min=2,max=200"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	StartsAt    string  `json:"starts_at" validate:"required"`
	EndsAt      string  `json:"ends_at" validate:"required"`
	Capacity    int     `json:"capacity" validate:"omitempty,min=0"`
	Recurrence  *string `json:"recurrence"`
}

// UpdateEventRequest mirrors the create payload.
type UpdateEventRequest = CreateEventRequest

// EventListRequest describes filters for listing events.
type EventListRequest struct {
	Search    string `form:"search"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// EventOccurrence is one expanded instance of a recurring event.
type EventOccurrence struct {
	EventID  string    `json:"event_id"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// List returns events with pagination.
func (s *EventService) List(ctx context.Context, req EventListRequest) ([]models.EventDetail, *models.Pagination, error) {
	filter := models.EventFilter{
		Search:    req.Search,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp")
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp")
		}
		filter.To = &to
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return events, pagination, nil
}

// Get returns one event by id.
func (s *EventService) Get(ctx context.Context, id string) (*models.EventDetail, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get event")
	}
	return event, nil
}

// Create registers a new event.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest) (*models.Event, error) {
	event, err := s.buildEvent(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// Update modifies an existing event.
func (s *EventService) Update(ctx context.Context, id string, req UpdateEventRequest) (*models.Event, error) {
	event, err := s.buildEvent(req)
	if err != nil {
		return nil, err
	}
	event.ID = id
	if err := s.repo.Update(ctx, event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// Delete removes an event.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}

// Register takes a spot for the user, enforcing capacity and uniqueness.
func (s *EventService) Register(ctx context.Context, eventID, userID string) (*models.EventRegistration, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	already, err := s.repo.IsRegistered(ctx, eventID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	if already {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this event")
	}

	if event.Capacity > 0 {
		count, err := s.repo.CountRegistrations(ctx, eventID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
		}
		if count >= event.Capacity {
			return nil, appErrors.Clone(appErrors.ErrEventFull, "")
		}
	}

	reg := &models.EventRegistration{EventID: eventID, UserID: userID}
	if err := s.repo.Register(ctx, reg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register")
	}
	return reg, nil
}

// Unregister releases the user's spot.
func (s *EventService) Unregister(ctx context.Context, eventID, userID string) error {
	if err := s.repo.Unregister(ctx, eventID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unregister")
	}
	return nil
}

// Occurrences expands a recurring event's instances within [from, to].
// A non-recurring event yields its own single occurrence when it falls
// inside the window.
func (s *EventService) Occurrences(ctx context.Context, eventID string, from, to time.Time) ([]EventOccurrence, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	duration := event.EndsAt.Sub(event.StartsAt)
	occurrences := []EventOccurrence{}

	if !event.Recurring() {
		if !event.StartsAt.Before(from) && !event.StartsAt.After(to) {
			occurrences = append(occurrences, EventOccurrence{
				EventID:  event.ID,
				Title:    event.Title,
				Location: event.Location,
				StartsAt: event.StartsAt,
				EndsAt:   event.EndsAt,
			})
		}
		return occurrences, nil
	}

	rule, err := parseRecurrence(*event.Recurrence, event.StartsAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid recurrence rule")
	}

	for _, start := range rule.Between(from, to, true) {
		occurrences = append(occurrences, EventOccurrence{
			EventID:  event.ID,
			Title:    event.Title,
			Location: event.Location,
			StartsAt: start,
			EndsAt:   start.Add(duration),
		})
	}
	return occurrences, nil
}

func (s *EventService) buildEvent(req CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid starts_at timestamp")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid ends_at timestamp")
	}
	if !endsAt.After(startsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ends_at must be after starts_at")
	}
	if req.Recurrence != nil && *req.Recurrence != "" {
		if _, err := parseRecurrence(*req.Recurrence, startsAt); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid recurrence rule")
		}
	}
	return &models.Event{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Capacity:    req.Capacity,
		Recurrence:  req.Recurrence,
	}, nil
}

func parseRecurrence(raw string, dtstart time.Time) (*rrule.RRule, error) {
	opts, err := rrule.StrToROption(raw)
	if err != nil {
		return nil, err
	}
	if opts.Dtstart.IsZero() {
		opts.Dtstart = dtstart
	}
	return rrule.NewRRule(*opts)
}
