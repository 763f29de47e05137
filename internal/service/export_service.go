package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parishhub/chms-api/internal/dto"
	"github.com/parishhub/chms-api/internal/models"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
	"github.com/parishhub/chms-api/pkg/export"
)

type exportMemberRepository interface {
	ListActiveByMinistry(ctx context.Context, ministryID string) ([]models.MinistryMemberDetail, error)
}

type exportShiftRepository interface {
	List(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftDetail, int, error)
}

type exportMinistryRepository interface {
	FindByID(ctx context.Context, id string) (*models.MinistryDetail, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type exportSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
}

// ExportService generates roster and schedule files and hands out
// signed, expiring download tokens instead of raw paths.
type ExportService struct {
	members    exportMemberRepository
	shifts     exportShiftRepository
	ministries exportMinistryRepository
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	store      exportStorage
	signer     exportSigner
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs the service.
func NewExportService(
	members exportMemberRepository,
	shifts exportShiftRepository,
	ministries exportMinistryRepository,
	store exportStorage,
	signer exportSigner,
	validate *validator.Validate,
	logger *zap.Logger,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		members:    members,
		shifts:     shifts,
		ministries: ministries,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		store:      store,
		signer:     signer,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate builds the requested export and returns its signed URL token.
func (s *ExportService) Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	ministry, err := s.ministries.FindByID(ctx, req.MinistryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ministry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ministry")
	}

	var dataset export.Dataset
	var title string
	switch req.Kind {
	case "roster":
		dataset, err = s.rosterDataset(ctx, ministry)
		title = fmt.Sprintf("%s roster", ministry.Name)
	case "schedule":
		dataset, err = s.scheduleDataset(ctx, ministry)
		title = fmt.Sprintf("%s schedule", ministry.Name)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export kind")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect export data")
	}

	var payload []byte
	switch req.Format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("%s/%s-%s.%s", req.Kind, req.MinistryID, exportID, req.Format)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	s.logger.Info("export generated",
		zap.String("kind", req.Kind),
		zap.String("format", req.Format),
		zap.String("ministry_id", req.MinistryID),
	)
	return &dto.ExportResponse{
		URL:       "/api/v1/exports/download?token=" + token,
		Format:    req.Format,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// OpenDownload validates a signed token and opens the referenced file.
func (s *ExportService) OpenDownload(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, nil
}

func (s *ExportService) rosterDataset(ctx context.Context, ministry *models.MinistryDetail) (export.Dataset, error) {
	members, err := s.members.ListActiveByMinistry(ctx, ministry.ID)
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{Headers: []string{"Name", "Email", "Phone", "Role", "Available Days"}}
	for _, m := range members {
		phone := ""
		if m.Phone != nil {
			phone = *m.Phone
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Name":           m.FullName,
			"Email":          m.Email,
			"Phone":          phone,
			"Role":           string(m.Role),
			"Available Days": joinDays(m.AvailableDays),
		})
	}
	return dataset, nil
}

func (s *ExportService) scheduleDataset(ctx context.Context, ministry *models.MinistryDetail) (export.Dataset, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	until := today.AddDate(0, 0, 30)
	shifts, _, err := s.shifts.List(ctx, models.ShiftFilter{
		MinistryID: ministry.ID,
		From:       &today,
		To:         &until,
		Page:       1,
		PageSize:   1000,
	})
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{Headers: []string{"Date", "Start", "End", "Assignee", "Notes"}}
	for _, shift := range shifts {
		assignee := "OPEN"
		if shift.AssigneeName != nil {
			assignee = *shift.AssigneeName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":     shift.Date.Format("2006-01-02"),
			"Start":    shift.StartTime,
			"End":      shift.EndTime,
			"Assignee": assignee,
			"Notes":    shift.Notes,
		})
	}
	return dataset, nil
}

func joinDays(days []string) string {
	out := ""
	for i, d := range days {
		if i > 0 {
			out += ";"
		}
		out += d
	}
	return out
}
