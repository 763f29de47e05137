package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/parishhub/chms-api/internal/dto"
	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
)

type shiftRepository interface {
	List(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ShiftDetail, error)
	ListGroup(ctx context.Context, ministryID string, date time.Time, startTime, endTime string) ([]models.ShiftDetail, error)
	Create(ctx context.Context, shift *models.Shift) error
	Assign(ctx context.Context, shiftID, memberID string, at time.Time) error
	Unassign(ctx context.Context, shiftID string) error
	Delete(ctx context.Context, id string) error
}

type shiftMinistryRepository interface {
	FindByID(ctx context.Context, id string) (*models.MinistryDetail, error)
}

type shiftMemberRepository interface {
	FindByID(ctx context.Context, id string) (*models.MinistryMemberDetail, error)
}

// ShiftService manages shift positions. List views present shifts
// grouped into time slots: every position sharing a (date, start, end)
// triple belongs to one slot, while each remains its own record.
type ShiftService struct {
	repo       shiftRepository
	ministries shiftMinistryRepository
	members    shiftMemberRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewShiftService constructs the service.
func NewShiftService(repo shiftRepository, ministries shiftMinistryRepository, members shiftMemberRepository, validate *validator.Validate, logger *zap.Logger) *ShiftService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShiftService{repo: repo, ministries: ministries, members: members, validator: validate, logger: logger}
}

// ShiftListRequest describes filters for listing shifts.
type ShiftListRequest struct {
	From       string `form:"from"`
	To         string `form:"to"`
	Unassigned *bool  `form:"unassigned"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	SortOrder  string `form:"sort_order"`
}

// List returns a ministry's shifts grouped into time slots.
func (s *ShiftService) List(ctx context.Context, ministryID string, req ShiftListRequest) ([]dto.ShiftSlot, *models.Pagination, error) {
	filter := models.ShiftFilter{
		MinistryID: ministryID,
		Unassigned: req.Unassigned,
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortOrder:  req.SortOrder,
	}
	if req.From != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
		}
		filter.To = &to
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	shifts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return GroupShifts(shifts), pagination, nil
}

// GroupShifts folds positions into time slots, preserving input order
// for both the slots and the positions inside each slot.
func GroupShifts(shifts []models.ShiftDetail) []dto.ShiftSlot {
	slots := []dto.ShiftSlot{}
	index := map[string]int{}
	for _, shift := range shifts {
		key := fmt.Sprintf("%s|%s|%s", shift.Date.Format("2006-01-02"), shift.StartTime, shift.EndTime)
		i, ok := index[key]
		if !ok {
			i = len(slots)
			index[key] = i
			slots = append(slots, dto.ShiftSlot{
				Date:      shift.Date.Format("2006-01-02"),
				StartTime: shift.StartTime,
				EndTime:   shift.EndTime,
			})
		}
		slots[i].Positions = append(slots[i].Positions, shift)
		slots[i].Total++
		if shift.Assigned() {
			slots[i].Assigned++
		} else {
			slots[i].Unassigned++
		}
	}
	return slots
}

// Get returns one shift position.
func (s *ShiftService) Get(ctx context.Context, id string) (*models.ShiftDetail, error) {
	shift, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get shift")
	}
	return shift, nil
}

// CreateGroup creates quantity independent positions sharing the same
// slot fields. Each insert succeeds or fails on its own; the result
// reports per-item outcomes and never rolls back earlier successes.
func (s *ShiftService) CreateGroup(ctx context.Context, ministryID string, req dto.CreateShiftGroupRequest) (*dto.BulkShiftResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if req.EndTime <= req.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}

	if _, err := s.ministries.FindByID(ctx, ministryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ministry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ministry")
	}

	result := &dto.BulkShiftResult{Items: make([]dto.ShiftItemResult, 0, req.Quantity)}
	for i := 0; i < req.Quantity; i++ {
		shift := &models.Shift{
			MinistryID: ministryID,
			Date:       date,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			Notes:      req.Notes,
		}
		if err := s.repo.Create(ctx, shift); err != nil {
			result.Failed++
			result.Items = append(result.Items, dto.ShiftItemResult{OK: false, Error: err.Error()})
			s.logger.Warn("shift create failed", zap.String("ministry_id", ministryID), zap.Error(err))
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, dto.ShiftItemResult{ShiftID: shift.ID, OK: true})
	}
	return result, nil
}

// DeleteGroup deletes every position of one slot. Items that vanish
// between listing and deletion count as failures without stopping the
// rest, so retrying a partially deleted slot converges.
func (s *ShiftService) DeleteGroup(ctx context.Context, ministryID string, req dto.DeleteShiftGroupRequest) (*dto.BulkShiftResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}

	shifts, err := s.repo.ListGroup(ctx, ministryID, date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift group")
	}
	if len(shifts) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "shift group not found")
	}

	result := &dto.BulkShiftResult{Items: make([]dto.ShiftItemResult, 0, len(shifts))}
	for _, shift := range shifts {
		if err := s.repo.Delete(ctx, shift.ID); err != nil {
			result.Failed++
			result.Items = append(result.Items, dto.ShiftItemResult{ShiftID: shift.ID, OK: false, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, dto.ShiftItemResult{ShiftID: shift.ID, OK: true})
	}
	return result, nil
}

// Assign fills a position with a ministry member.
func (s *ShiftService) Assign(ctx context.Context, shiftID string, req dto.AssignShiftRequest) (*models.ShiftDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	shift, err := s.repo.FindByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}

	member, err := s.members.FindByID(ctx, req.MemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}
	if member.MinistryID != shift.MinistryID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "member belongs to a different ministry")
	}
	if !member.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "member is inactive")
	}

	if err := s.repo.Assign(ctx, shiftID, req.MemberID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "shift is already assigned")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign shift")
	}
	return s.Get(ctx, shiftID)
}

// Unassign clears a position.
func (s *ShiftService) Unassign(ctx context.Context, shiftID string) (*models.ShiftDetail, error) {
	if err := s.repo.Unassign(ctx, shiftID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign shift")
	}
	return s.Get(ctx, shiftID)
}

// Delete removes one shift position.
func (s *ShiftService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete shift")
	}
	return nil
}
