package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/parishhub/chms-api/internal/dto"
	"github.com/parishhub/chms-api/internal/models"
	"github.com/parishhub/chms-api/internal/repository"
	"github.com/parishhub/chms-api/pkg/config"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
	"github.com/parishhub/chms-api/pkg/mailer"
)

type rotationMinistryRepository interface {
	ListActive(ctx context.Context) ([]models.Ministry, error)
	FindByID(ctx context.Context, id string) (*models.MinistryDetail, error)
}

type rotationMemberRepository interface {
	ListActiveByMinistry(ctx context.Context, ministryID string) ([]models.MinistryMemberDetail, error)
}

type rotationShiftRepository interface {
	ListUnassignedInWindow(ctx context.Context, ministryID string, from, to time.Time) ([]models.Shift, error)
	ListAssignments(ctx context.Context, ministryID string, from, to time.Time) ([]repository.MemberAssignment, error)
	ListLastAssignments(ctx context.Context, ministryID string) ([]repository.MemberLastAssignment, error)
	Assign(ctx context.Context, shiftID, memberID string, at time.Time) error
}

// RotationService fills open shift positions across ministries. One run
// walks the upcoming window per ministry, picks the least recently
// assigned available volunteer for each open position and, unless the
// run is a dry run, persists and optionally notifies each assignment.
type RotationService struct {
	ministries rotationMinistryRepository
	members    rotationMemberRepository
	shifts     rotationShiftRepository
	mail       mailer.Mailer
	cfg        config.RotationConfig
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewRotationService constructs the rotation engine.
func NewRotationService(
	ministries rotationMinistryRepository,
	members rotationMemberRepository,
	shifts rotationShiftRepository,
	mail mailer.Mailer,
	cfg config.RotationConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *RotationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 14
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 90
	}
	return &RotationService{
		ministries: ministries,
		members:    members,
		shifts:     shifts,
		mail:       mail,
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// Rotate runs one rotation pass over every active ministry. A ministry
// that fails wholesale is reported in the result's error list; the run
// continues with the remaining ministries.
func (s *RotationService) Rotate(ctx context.Context, req dto.RotateShiftsRequest) (*dto.RotateShiftsResult, []dto.RotationAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rotation request")
	}

	days := req.Days
	if days <= 0 {
		days = s.cfg.DefaultDays
	}
	if days > s.cfg.MaxDays {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("days must not exceed %d", s.cfg.MaxDays))
	}
	limit := req.LimitPerMinistry
	if limit <= 0 {
		limit = s.cfg.LimitPerMinistry
	}

	ministries, err := s.ministries.ListActive(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ministries")
	}

	result := &dto.RotateShiftsResult{
		SkippedNoMembers:   []string{},
		SkippedNoAvailable: []string{},
		Errors:             []string{},
	}
	assignments := []dto.RotationAssignment{}

	for _, ministry := range ministries {
		planned, err := s.rotateMinistry(ctx, ministry, days, limit, req.DryRun, result)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", ministry.Name, err))
			continue
		}
		assignments = append(assignments, planned...)
	}

	if !req.DryRun && req.Notify {
		result.Emailed = s.notify(assignments)
	}

	s.logger.Info("rotation run finished",
		zap.Int("days", days),
		zap.Bool("dry_run", req.DryRun),
		zap.Int("created", result.Created),
		zap.Int("emailed", result.Emailed),
		zap.Int("errors", len(result.Errors)),
	)
	return result, assignments, nil
}

// RotateMinistry runs a rotation pass scoped to one ministry.
func (s *RotationService) RotateMinistry(ctx context.Context, ministryID string, req dto.RotateShiftsRequest) (*dto.RotateShiftsResult, []dto.RotationAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rotation request")
	}

	detail, err := s.ministries.FindByID(ctx, ministryID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "ministry not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ministry")
	}

	days := req.Days
	if days <= 0 {
		days = s.cfg.DefaultDays
	}
	if days > s.cfg.MaxDays {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("days must not exceed %d", s.cfg.MaxDays))
	}
	limit := req.LimitPerMinistry
	if limit <= 0 {
		limit = s.cfg.LimitPerMinistry
	}

	result := &dto.RotateShiftsResult{
		SkippedNoMembers:   []string{},
		SkippedNoAvailable: []string{},
		Errors:             []string{},
	}
	assignments, err := s.rotateMinistry(ctx, detail.Ministry, days, limit, req.DryRun, result)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "rotation failed")
	}

	if !req.DryRun && req.Notify {
		result.Emailed = s.notify(assignments)
	}
	return result, assignments, nil
}

// candidate tracks one member's rotation state during a run.
type candidate struct {
	member       models.MinistryMemberDetail
	lastAssigned time.Time
	// days already holding an assignment within the window, including
	// assignments planned earlier in this same run.
	busyDays map[string]bool
}

func (s *RotationService) rotateMinistry(ctx context.Context, ministry models.Ministry, days, limit int, dryRun bool, result *dto.RotateShiftsResult) ([]dto.RotationAssignment, error) {
	today := s.today()
	until := today.AddDate(0, 0, days)

	open, err := s.shifts.ListUnassignedInWindow(ctx, ministry.ID, today, until)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}

	members, err := s.members.ListActiveByMinistry(ctx, ministry.ID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		result.SkippedNoMembers = append(result.SkippedNoMembers, ministry.Name)
		return nil, nil
	}

	candidates, err := s.buildCandidates(ctx, ministry.ID, members, today, until)
	if err != nil {
		return nil, err
	}

	planned := []dto.RotationAssignment{}
	anyAssignable := false
	now := s.now().UTC()

	for _, shift := range open {
		if limit > 0 && len(planned) >= limit {
			break
		}

		pick := s.pick(candidates, shift.Date)
		if pick == nil {
			continue
		}
		anyAssignable = true

		if !dryRun {
			if err := s.shifts.Assign(ctx, shift.ID, pick.member.ID, now); err != nil {
				if err == sql.ErrNoRows {
					// Filled between the window read and the write,
					// likely a concurrent run. Skip it.
					result.Errors = append(result.Errors, fmt.Sprintf("shift %s already assigned", shift.ID))
					continue
				}
				result.Errors = append(result.Errors, fmt.Sprintf("shift %s: %v", shift.ID, err))
				continue
			}
		}

		pick.busyDays[dayKey(shift.Date)] = true
		pick.lastAssigned = now
		result.Created++
		planned = append(planned, dto.RotationAssignment{
			ShiftID:     shift.ID,
			MemberID:    pick.member.ID,
			MemberName:  pick.member.FullName,
			MemberEmail: pick.member.Email,
			Date:        shift.Date.Format("2006-01-02"),
			StartTime:   shift.StartTime,
			EndTime:     shift.EndTime,
		})
	}

	if !anyAssignable {
		result.SkippedNoAvailable = append(result.SkippedNoAvailable, ministry.Name)
	}
	return planned, nil
}

func (s *RotationService) buildCandidates(ctx context.Context, ministryID string, members []models.MinistryMemberDetail, from, to time.Time) ([]*candidate, error) {
	// A run that an in-window assignment would extend can start before the
	// window or continue past it, so the read is padded by the widest cap
	// among the candidates. Anything further out cannot affect a cap check.
	pad := 1
	for _, m := range members {
		if m.MaxConsecutiveShifts > pad {
			pad = m.MaxConsecutiveShifts
		}
	}
	existing, err := s.shifts.ListAssignments(ctx, ministryID, from.AddDate(0, 0, -pad), to.AddDate(0, 0, pad))
	if err != nil {
		return nil, err
	}
	busyByMember := map[string]map[string]bool{}
	for _, a := range existing {
		if busyByMember[a.MemberID] == nil {
			busyByMember[a.MemberID] = map[string]bool{}
		}
		busyByMember[a.MemberID][dayKey(a.Date)] = true
	}

	last, err := s.shifts.ListLastAssignments(ctx, ministryID)
	if err != nil {
		return nil, err
	}
	lastByMember := map[string]time.Time{}
	for _, l := range last {
		if l.AssignedAt != nil {
			lastByMember[l.MemberID] = *l.AssignedAt
		}
	}

	candidates := make([]*candidate, 0, len(members))
	for _, m := range members {
		busy := busyByMember[m.ID]
		if busy == nil {
			busy = map[string]bool{}
		}
		candidates = append(candidates, &candidate{
			member:       m,
			lastAssigned: lastByMember[m.ID],
			busyDays:     busy,
		})
	}
	return candidates, nil
}

// pick selects the least recently assigned eligible candidate for the
// given date. Members who never served sort first; ties break on name so
// repeated runs stay deterministic.
func (s *RotationService) pick(candidates []*candidate, date time.Time) *candidate {
	eligible := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.member.AvailableOn(date.Weekday()) {
			continue
		}
		if c.busyDays[dayKey(date)] {
			continue
		}
		if exceedsConsecutiveCap(c, date) {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if !eligible[i].lastAssigned.Equal(eligible[j].lastAssigned) {
			return eligible[i].lastAssigned.Before(eligible[j].lastAssigned)
		}
		return eligible[i].member.FullName < eligible[j].member.FullName
	})
	return eligible[0]
}

// exceedsConsecutiveCap reports whether serving on date would push the
// member past their max run of back-to-back calendar days.
func exceedsConsecutiveCap(c *candidate, date time.Time) bool {
	limit := c.member.MaxConsecutiveShifts
	if limit <= 0 {
		return false
	}
	run := 1
	for d := date.AddDate(0, 0, -1); c.busyDays[dayKey(d)]; d = d.AddDate(0, 0, -1) {
		run++
	}
	for d := date.AddDate(0, 0, 1); c.busyDays[dayKey(d)]; d = d.AddDate(0, 0, 1) {
		run++
	}
	return run > limit
}

// notify sends one mail per assignment. Delivery failures are logged and
// counted out; they never fail the run.
func (s *RotationService) notify(assignments []dto.RotationAssignment) int {
	if s.mail == nil {
		return 0
	}
	sent := 0
	for _, a := range assignments {
		email := a.MemberEmail
		if email == "" {
			continue
		}
		subject := fmt.Sprintf("Shift assignment for %s", a.Date)
		body := fmt.Sprintf("Hi %s,\n\nYou have been scheduled for a shift on %s from %s to %s.\n\nThank you for serving.",
			a.MemberName, a.Date, a.StartTime, a.EndTime)
		if err := s.mail.Send(email, subject, body); err != nil {
			s.logger.Warn("shift notification failed", zap.String("shift_id", a.ShiftID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

func (s *RotationService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
