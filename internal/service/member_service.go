package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
)

type memberRepository interface {
	List(ctx context.Context, filter models.MemberFilter) ([]models.MinistryMemberDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.MinistryMemberDetail, error)
	ExistsByUser(ctx context.Context, ministryID, userID string) (bool, error)
	HasActiveLead(ctx context.Context, ministryID string, excludeMemberID string) (bool, error)
	Create(ctx context.Context, member *models.MinistryMember) error
	Update(ctx context.Context, member *models.MinistryMember) error
	Delete(ctx context.Context, id string) error
}

type memberMinistryRepository interface {
	FindByID(ctx context.Context, id string) (*models.MinistryDetail, error)
}

type memberUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// MemberService manages ministry membership, including the rule that a
// ministry holds at most one active lead at a time.
type MemberService struct {
	repo       memberRepository
	ministries memberMinistryRepository
	users      memberUserRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewMemberService constructs the service.
func NewMemberService(repo memberRepository, ministries memberMinistryRepository, users memberUserRepository, validate *validator.Validate, logger *zap.Logger) *MemberService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &MemberService{repo: repo, ministries: ministries, users: users, validator: validate, logger: logger}
	svc.validator.RegisterValidation("memberrole", func(fl validator.FieldLevel) bool {
		return models.ValidMemberRole(models.MemberRole(strings.ToLower(fl.Field().String())))
	})
	return svc
}

// AddMemberRequest describes the create payload.
type AddMemberRequest struct {
	UserID               string   `json:"user_id" validate:"required"`
	Role                 string   `json:"role" validate:"required,memberrole"`
	AvailableDays        []string `json:"available_days"`
	MaxConsecutiveShifts int      `json:"max_consecutive_shifts" validate:"omitempty,min=1,max=10"`
}

// UpdateMemberRequest describes the update payload.
type UpdateMemberRequest struct {
	Role                 string   `json:"role" validate:"required,memberrole"`
	Active               bool     `json:"active"`
	AvailableDays        []string `json:"available_days"`
	MaxConsecutiveShifts int      `json:"max_consecutive_shifts" validate:"omitempty,min=1,max=10"`
}

// MemberListRequest describes filters for listing members.
type MemberListRequest struct {
	Role      string `form:"role"`
	Active    *bool  `form:"active"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// List returns members of a ministry with pagination.
func (s *MemberService) List(ctx context.Context, ministryID string, req MemberListRequest) ([]models.MinistryMemberDetail, *models.Pagination, error) {
	filter := models.MemberFilter{
		MinistryID: ministryID,
		Active:     req.Active,
		Search:     req.Search,
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}
	if req.Role != "" {
		role := models.MemberRole(strings.ToLower(req.Role))
		if !models.ValidMemberRole(role) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown member role")
		}
		filter.Role = &role
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	members, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return members, pagination, nil
}

// Get returns one membership record.
func (s *MemberService) Get(ctx context.Context, id string) (*models.MinistryMemberDetail, error) {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get member")
	}
	return member, nil
}

// Add links a user to a ministry.
func (s *MemberService) Add(ctx context.Context, ministryID string, req AddMemberRequest) (*models.MinistryMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	days, err := normalizeDays(req.AvailableDays)
	if err != nil {
		return nil, err
	}

	if _, err := s.ministries.FindByID(ctx, ministryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ministry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ministry")
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	exists, err := s.repo.ExistsByUser(ctx, ministryID, req.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already belongs to this ministry")
	}

	role := models.MemberRole(strings.ToLower(req.Role))
	if role == models.MemberRoleLead {
		if err := s.ensureNoOtherLead(ctx, ministryID, ""); err != nil {
			return nil, err
		}
	}

	member := &models.MinistryMember{
		MinistryID:           ministryID,
		UserID:               req.UserID,
		Role:                 role,
		Active:               true,
		AvailableDays:        pq.StringArray(days),
		MaxConsecutiveShifts: req.MaxConsecutiveShifts,
	}
	if err := s.repo.Create(ctx, member); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}
	return member, nil
}

// Update modifies an existing membership record.
func (s *MemberService) Update(ctx context.Context, id string, req UpdateMemberRequest) (*models.MinistryMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	days, err := normalizeDays(req.AvailableDays)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}

	role := models.MemberRole(strings.ToLower(req.Role))
	if role == models.MemberRoleLead && req.Active {
		if err := s.ensureNoOtherLead(ctx, existing.MinistryID, id); err != nil {
			return nil, err
		}
	}

	member := existing.MinistryMember
	member.Role = role
	member.Active = req.Active
	member.AvailableDays = pq.StringArray(days)
	member.MaxConsecutiveShifts = req.MaxConsecutiveShifts

	if err := s.repo.Update(ctx, &member); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update member")
	}
	return &member, nil
}

// Remove deletes a membership record.
func (s *MemberService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove member")
	}
	return nil
}

func (s *MemberService) ensureNoOtherLead(ctx context.Context, ministryID, excludeMemberID string) error {
	hasLead, err := s.repo.HasActiveLead(ctx, ministryID, excludeMemberID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ministry lead")
	}
	if hasLead {
		return appErrors.Clone(appErrors.ErrLeadExists, "")
	}
	return nil
}

func normalizeDays(days []string) ([]string, error) {
	out := make([]string, 0, len(days))
	seen := map[string]bool{}
	for _, d := range days {
		name := strings.ToLower(strings.TrimSpace(d))
		if !models.KnownWeekday(name) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday: "+d)
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}
