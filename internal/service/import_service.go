package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/parishhub/chms-api/internal/dto"
	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
	"github.com/parishhub/chms-api/pkg/export"
	"github.com/parishhub/chms-api/pkg/jobs"
)

// importCSVHeader is the required header row of a member import file.
var importCSVHeader = []string{"full_name", "email", "phone", "role", "available_days", "max_consecutive_shifts"}

type importUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type importMemberRepository interface {
	ExistsByUser(ctx context.Context, ministryID, userID string) (bool, error)
	HasActiveLead(ctx context.Context, ministryID string, excludeMemberID string) (bool, error)
	Create(ctx context.Context, member *models.MinistryMember) error
}

type importMinistryRepository interface {
	FindByID(ctx context.Context, id string) (*models.MinistryDetail, error)
}

type cardQueue interface {
	Enqueue(job jobs.Job) error
}

type cardStorage interface {
	Save(filename string, data []byte) (string, error)
}

// CardJobPayload carries the data a card render job needs.
type CardJobPayload struct {
	MemberID   string
	FullName   string
	Email      string
	Phone      string
	Ministry   string
	Role       string
	ChurchName string
}

// CardJobType names membership card render jobs on the queue.
const CardJobType = "member_card"

// ImportService ingests member CSV files. Valid rows import even when
// others fail; every imported member gets a card render job queued.
type ImportService struct {
	users      importUserRepository
	members    importMemberRepository
	ministries importMinistryRepository
	queue      cardQueue
	logger     *zap.Logger
}

// NewImportService constructs the service.
func NewImportService(users importUserRepository, members importMemberRepository, ministries importMinistryRepository, queue cardQueue, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{users: users, members: members, ministries: ministries, queue: queue, logger: logger}
}

// ImportMembers parses the CSV stream and inserts one membership record
// per valid row, creating volunteer accounts for unknown emails.
func (s *ImportService) ImportMembers(ctx context.Context, ministryID string, actorID string, r io.Reader) (*dto.ImportMembersResult, error) {
	ministry, err := s.ministries.FindByID(ctx, ministryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ministry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ministry")
	}

	rows, parseErrors, err := parseMemberCSV(r)
	if err != nil {
		return nil, err
	}

	result := &dto.ImportMembersResult{Errors: parseErrors}
	for _, row := range rows {
		member, err := s.importRow(ctx, ministry, row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", row.Line, err))
			continue
		}
		result.Imported++

		if s.queue != nil {
			job := jobs.Job{
				ID:   uuid.NewString(),
				Type: CardJobType,
				Payload: CardJobPayload{
					MemberID:   member.ID,
					FullName:   row.FullName,
					Email:      row.Email,
					Phone:      row.Phone,
					Ministry:   ministry.Name,
					Role:       string(member.Role),
					ChurchName: "ParishHub",
				},
			}
			if err := s.queue.Enqueue(job); err != nil {
				s.logger.Warn("failed to queue member card", zap.String("member_id", member.ID), zap.Error(err))
				continue
			}
			result.CardsQueued++
		}
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionImport,
		Resource:   "ministry_members",
		ResourceID: &ministryID,
		Detail:     []byte(fmt.Sprintf(`{"imported":%d,"errors":%d}`, result.Imported, len(result.Errors))),
	}); err != nil {
		s.logger.Warn("failed to record import audit log", zap.Error(err))
	}
	return result, nil
}

func (s *ImportService) importRow(ctx context.Context, ministry *models.MinistryDetail, row dto.ImportedMemberRow) (*models.MinistryMember, error) {
	email := strings.ToLower(strings.TrimSpace(row.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		user, err = s.createVolunteerAccount(ctx, row.FullName, email, row.Phone)
		if err != nil {
			return nil, err
		}
	}

	exists, err := s.members.ExistsByUser(ctx, ministry.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s already belongs to this ministry", email)
	}

	role := models.MemberRole(strings.ToLower(row.Role))
	if role == "" {
		role = models.MemberRoleVolunteer
	}
	if !models.ValidMemberRole(role) {
		return nil, fmt.Errorf("unknown role %q", row.Role)
	}
	if role == models.MemberRoleLead {
		hasLead, err := s.members.HasActiveLead(ctx, ministry.ID, "")
		if err != nil {
			return nil, err
		}
		if hasLead {
			return nil, fmt.Errorf("ministry already has an active lead")
		}
	}

	member := &models.MinistryMember{
		MinistryID:           ministry.ID,
		UserID:               user.ID,
		Role:                 role,
		Active:               true,
		AvailableDays:        pq.StringArray(row.AvailableDays),
		MaxConsecutiveShifts: row.MaxConsecutiveShifts,
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *ImportService) createVolunteerAccount(ctx context.Context, fullName, email, phone string) (*models.User, error) {
	// Imported volunteers get a random password; they reset it on first
	// login through the normal password flow.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         models.RoleVolunteer,
		Active:       true,
	}
	if phone != "" {
		user.Phone = &phone
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func parseMemberCSV(r io.Reader) ([]dto.ImportedMemberRow, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "empty or unreadable CSV file")
	}
	if !validImportHeader(header) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation,
			"CSV header must be: "+strings.Join(importCSVHeader, ","))
	}

	rows := []dto.ImportedMemberRow{}
	parseErrors := []string{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		row, err := parseImportRecord(line, record)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, parseErrors, nil
}

func validImportHeader(header []string) bool {
	if len(header) != len(importCSVHeader) {
		return false
	}
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) != importCSVHeader[i] {
			return false
		}
	}
	return true
}

func parseImportRecord(line int, record []string) (dto.ImportedMemberRow, error) {
	row := dto.ImportedMemberRow{Line: line}
	if len(record) != len(importCSVHeader) {
		return row, fmt.Errorf("expected %d columns, got %d", len(importCSVHeader), len(record))
	}
	row.FullName = strings.TrimSpace(record[0])
	row.Email = strings.ToLower(strings.TrimSpace(record[1]))
	row.Phone = strings.TrimSpace(record[2])
	row.Role = strings.TrimSpace(record[3])

	if row.FullName == "" {
		return row, fmt.Errorf("full_name required")
	}
	if row.Email == "" || !strings.Contains(row.Email, "@") {
		return row, fmt.Errorf("valid email required")
	}

	if raw := strings.TrimSpace(record[4]); raw != "" {
		for _, day := range strings.Split(raw, ";") {
			name := strings.ToLower(strings.TrimSpace(day))
			if name == "" {
				continue
			}
			if !models.KnownWeekday(name) {
				return row, fmt.Errorf("unknown weekday %q", day)
			}
			row.AvailableDays = append(row.AvailableDays, name)
		}
	}

	if raw := strings.TrimSpace(record[5]); raw != "" {
		// Zero (or an empty column) leaves the member uncapped.
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 10 {
			return row, fmt.Errorf("invalid max_consecutive_shifts %q", raw)
		}
		row.MaxConsecutiveShifts = n
	}
	return row, nil
}

// NewCardJobHandler returns the queue handler that renders membership
// cards and stores them under cards/.
func NewCardJobHandler(exporter *export.MemberCardExporter, store cardStorage, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(CardJobPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type for job %s", job.ID)
		}
		data, err := exporter.Render(export.MemberCard{
			ChurchName: payload.ChurchName,
			FullName:   payload.FullName,
			Email:      payload.Email,
			Phone:      payload.Phone,
			Ministry:   payload.Ministry,
			Role:       payload.Role,
			MemberID:   payload.MemberID,
		})
		if err != nil {
			return err
		}
		name := fmt.Sprintf("cards/%s.pdf", payload.MemberID)
		if _, err := store.Save(name, data); err != nil {
			return err
		}
		logger.Debug("member card rendered", zap.String("member_id", payload.MemberID))
		return nil
	}
}
