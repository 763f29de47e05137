package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishhub/chms-api/internal/dto"
	"github.com/parishhub/chms-api/internal/models"
	"github.com/parishhub/chms-api/internal/repository"
	"github.com/parishhub/chms-api/pkg/config"
)

type mockRotationMinistryRepo struct {
	active []models.Ministry
}

func (m *mockRotationMinistryRepo) ListActive(ctx context.Context) ([]models.Ministry, error) {
	return m.active, nil
}

func (m *mockRotationMinistryRepo) FindByID(ctx context.Context, id string) (*models.MinistryDetail, error) {
	for _, ministry := range m.active {
		if ministry.ID == id {
			return &models.MinistryDetail{Ministry: ministry}, nil
		}
	}
	return nil, errors.New("not found")
}

type mockRotationMemberRepo struct {
	members map[string][]models.MinistryMemberDetail
}

func (m *mockRotationMemberRepo) ListActiveByMinistry(ctx context.Context, ministryID string) ([]models.MinistryMemberDetail, error) {
	return m.members[ministryID], nil
}

type mockRotationShiftRepo struct {
	open        map[string][]models.Shift
	assignments map[string][]repository.MemberAssignment
	last        map[string][]repository.MemberLastAssignment
	assigned    []string
	assignErr   error
}

func (m *mockRotationShiftRepo) ListUnassignedInWindow(ctx context.Context, ministryID string, from, to time.Time) ([]models.Shift, error) {
	return m.open[ministryID], nil
}

func (m *mockRotationShiftRepo) ListAssignments(ctx context.Context, ministryID string, from, to time.Time) ([]repository.MemberAssignment, error) {
	var out []repository.MemberAssignment
	for _, a := range m.assignments[ministryID] {
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockRotationShiftRepo) ListLastAssignments(ctx context.Context, ministryID string) ([]repository.MemberLastAssignment, error) {
	return m.last[ministryID], nil
}

func (m *mockRotationShiftRepo) Assign(ctx context.Context, shiftID, memberID string, at time.Time) error {
	if m.assignErr != nil {
		return m.assignErr
	}
	m.assigned = append(m.assigned, shiftID+":"+memberID)
	return nil
}

type mockMailer struct {
	sent    []string
	sendErr error
}

func (m *mockMailer) Send(to, subject, body string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, to)
	return nil
}

func rotationMember(id, name, email string, days []string, maxConsecutive int) models.MinistryMemberDetail {
	return models.MinistryMemberDetail{
		MinistryMember: models.MinistryMember{
			ID:                   id,
			MinistryID:           "min-1",
			Role:                 models.MemberRoleVolunteer,
			Active:               true,
			AvailableDays:        pq.StringArray(days),
			MaxConsecutiveShifts: maxConsecutive,
		},
		FullName: name,
		Email:    email,
	}
}

func newRotationFixture(shifts *mockRotationShiftRepo, members ...models.MinistryMemberDetail) *RotationService {
	svc := NewRotationService(
		&mockRotationMinistryRepo{active: []models.Ministry{{ID: "min-1", Name: "Welcome Team", Active: true}}},
		&mockRotationMemberRepo{members: map[string][]models.MinistryMemberDetail{"min-1": members}},
		shifts,
		nil,
		config.RotationConfig{DefaultDays: 7, MaxDays: 30},
		nil,
		nil,
	)
	// Monday 2026-03-02.
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return svc
}

func openShift(id string, date time.Time) models.Shift {
	return models.Shift{ID: id, MinistryID: "min-1", Date: date, StartTime: "09:00", EndTime: "12:00"}
}

var allDays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func TestRotationDryRunPersistsNothing(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{open: map[string][]models.Shift{"min-1": {
		openShift("s1", monday),
		openShift("s2", monday.AddDate(0, 0, 1)),
	}}}
	svc := newRotationFixture(shifts,
		rotationMember("m1", "Ana", "ana@example.com", allDays, 0),
		rotationMember("m2", "Ben", "ben@example.com", allDays, 0),
	)

	result, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{DryRun: true, Notify: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Len(t, assignments, 2)
	assert.Empty(t, shifts.assigned)
	assert.Zero(t, result.Emailed)
}

func TestRotationPrefersLeastRecentlyAssigned(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	recent := monday.AddDate(0, 0, -2)
	shifts := &mockRotationShiftRepo{
		open: map[string][]models.Shift{"min-1": {openShift("s1", monday)}},
		last: map[string][]repository.MemberLastAssignment{"min-1": {
			{MemberID: "m1", AssignedAt: &recent},
		}},
	}
	svc := newRotationFixture(shifts,
		rotationMember("m1", "Ana", "ana@example.com", allDays, 0),
		rotationMember("m2", "Ben", "ben@example.com", allDays, 0),
	)

	_, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	// Ben never served and therefore rotates in first.
	assert.Equal(t, "m2", assignments[0].MemberID)
	assert.Equal(t, []string{"s1:m2"}, shifts.assigned)
}

func TestRotationTieBreaksOnName(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{open: map[string][]models.Shift{"min-1": {openShift("s1", monday)}}}
	svc := newRotationFixture(shifts,
		rotationMember("m2", "Ben", "ben@example.com", allDays, 0),
		rotationMember("m1", "Ana", "ana@example.com", allDays, 0),
	)

	_, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "Ana", assignments[0].MemberName)
}

func TestRotationHonorsAvailability(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{open: map[string][]models.Shift{"min-1": {openShift("s1", monday)}}}
	svc := newRotationFixture(shifts,
		rotationMember("m1", "Ana", "ana@example.com", []string{"sunday"}, 0),
		rotationMember("m2", "Ben", "ben@example.com", []string{"monday"}, 0),
	)

	_, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "m2", assignments[0].MemberID)
}

func TestRotationSkipsDoubleBookingSameDay(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{open: map[string][]models.Shift{"min-1": {
		openShift("s1", monday),
		openShift("s2", monday),
	}}}
	svc := newRotationFixture(shifts,
		rotationMember("m1", "Ana", "ana@example.com", allDays, 0),
		rotationMember("m2", "Ben", "ben@example.com", allDays, 0),
	)

	_, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{})
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.NotEqual(t, assignments[0].MemberID, assignments[1].MemberID)
}

func TestRotationEnforcesConsecutiveCap(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{
		open: map[string][]models.Shift{"min-1": {openShift("s1", monday)}},
		assignments: map[string][]repository.MemberAssignment{"min-1": {
			{MemberID: "m1", Date: monday.AddDate(0, 0, -1)},
			{MemberID: "m1", Date: monday.AddDate(0, 0, -2)},
		}},
	}
	svc := newRotationFixture(shifts,
		rotationMember("m1", "Ana", "ana@example.com", allDays, 2),
	)

	result, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{})
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.Contains(t, result.SkippedNoAvailable, "Welcome Team")
}

func TestRotationConsecutiveCapSeesRunBeyondDefaultWindow(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	prior := make([]repository.MemberAssignment, 0, 9)
	for d := 1; d <= 9; d++ {
		prior = append(prior, repository.MemberAssignment{MemberID: "m1", Date: monday.AddDate(0, 0, -d)})
	}
	shifts := &mockRotationShiftRepo{
		open:        map[string][]models.Shift{"min-1": {openShift("s1", monday)}},
		assignments: map[string][]repository.MemberAssignment{"min-1": prior},
	}
	svc := newRotationFixture(shifts,
		rotationMember("m1", "Ana", "ana@example.com", allDays, 9),
	)

	result, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{})
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.Zero(t, result.Created)
	assert.Contains(t, result.SkippedNoAvailable, "Welcome Team")
}

func TestRotationSkipsMinistryWithoutMembers(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{open: map[string][]models.Shift{"min-1": {openShift("s1", monday)}}}
	svc := newRotationFixture(shifts)

	result, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{})
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.Contains(t, result.SkippedNoMembers, "Welcome Team")
}

func TestRotationNotifySendsMail(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{open: map[string][]models.Shift{"min-1": {openShift("s1", monday)}}}
	mail := &mockMailer{}
	svc := newRotationFixture(shifts, rotationMember("m1", "Ana", "ana@example.com", allDays, 0))
	svc.mail = mail

	result, _, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{Notify: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Emailed)
	assert.Equal(t, []string{"ana@example.com"}, mail.sent)
}

func TestRotationNotifyFailureDoesNotFailRun(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{open: map[string][]models.Shift{"min-1": {openShift("s1", monday)}}}
	svc := newRotationFixture(shifts, rotationMember("m1", "Ana", "ana@example.com", allDays, 0))
	svc.mail = &mockMailer{sendErr: errors.New("smtp down")}

	result, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{Notify: true})
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
	assert.Equal(t, 1, result.Created)
	assert.Zero(t, result.Emailed)
}

func TestRotationConcurrentFillReportedPerShift(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{
		open:      map[string][]models.Shift{"min-1": {openShift("s1", monday)}},
		assignErr: sql.ErrNoRows,
	}
	svc := newRotationFixture(shifts, rotationMember("m1", "Ana", "ana@example.com", allDays, 0))

	result, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{})
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.Zero(t, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "already assigned")
}

func TestRotationRejectsOversizedWindow(t *testing.T) {
	shifts := &mockRotationShiftRepo{}
	svc := newRotationFixture(shifts, rotationMember("m1", "Ana", "ana@example.com", allDays, 0))

	_, _, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{Days: 365})
	require.Error(t, err)
}

func TestRotationLimitPerMinistry(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{open: map[string][]models.Shift{"min-1": {
		openShift("s1", monday),
		openShift("s2", monday.AddDate(0, 0, 1)),
		openShift("s3", monday.AddDate(0, 0, 2)),
	}}}
	svc := newRotationFixture(shifts,
		rotationMember("m1", "Ana", "ana@example.com", allDays, 0),
		rotationMember("m2", "Ben", "ben@example.com", allDays, 0),
	)

	result, assignments, err := svc.Rotate(context.Background(), dto.RotateShiftsRequest{LimitPerMinistry: 2})
	require.NoError(t, err)
	assert.Len(t, assignments, 2)
	assert.Equal(t, 2, result.Created)
}

func TestRotateMinistryScopesToOne(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shifts := &mockRotationShiftRepo{open: map[string][]models.Shift{"min-1": {openShift("s1", monday)}}}
	svc := newRotationFixture(shifts, rotationMember("m1", "Ana", "ana@example.com", allDays, 0))

	result, assignments, err := svc.RotateMinistry(context.Background(), "min-1", dto.RotateShiftsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, assignments, 1)
	assert.Equal(t, "s1", assignments[0].ShiftID)
}
