package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
	"github.com/noah-isme/sipodi-api/pkg/export"
)

// Export datasets.
const (
	ExportGTK     = "gtk"
	ExportTalents = "talents"
	ExportSchools = "schools"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type exportRepository interface {
	GTK(ctx context.Context, schoolID *string, limit int) ([]models.User, error)
	Talents(ctx context.Context, filter models.TalentFilter, limit int) ([]models.Talent, error)
}

type schoolStatistician interface {
	SchoolStatistics(ctx context.Context, actor models.Actor) ([]models.SchoolStatistics, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	MaxRows int
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders role-scoped datasets as CSV or PDF downloads.
type ExportService struct {
	repo   exportRepository
	stats  schoolStatistician
	audit  auditRecorder
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	cfg    ExportConfig
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportRepository, stats schoolStatistician, audit auditRecorder, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		repo:   repo,
		stats:  stats,
		audit:  audit,
		csv:    csv,
		pdf:    pdf,
		logger: logger,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Export renders dataset in format for actor. Only reviewers may export.
func (s *ExportService) Export(ctx context.Context, actor models.Actor, dataset, format string, meta RequestMeta) (*ExportFile, error) {
	if !actor.Role.IsReviewer() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Validation("invalid export request", appErrors.FieldError{Field: "format", Message: "format must be one of csv pdf"})
	}

	var (
		data  export.Dataset
		title string
		err   error
	)
	switch dataset {
	case ExportGTK:
		data, err = s.gtkDataset(ctx, actor)
		title = "Data GTK"
	case ExportTalents:
		data, err = s.talentDataset(ctx, actor)
		title = "Data Talenta GTK"
	case ExportSchools:
		data, err = s.schoolDataset(ctx, actor)
		title = "Statistik Sekolah"
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown export dataset")
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	file := &ExportFile{
		Filename: fmt.Sprintf("%s_%s.%s", dataset, now.Format("20060102_150405"), format),
		Rows:     len(data.Rows),
	}
	switch format {
	case FormatPDF:
		file.ContentType = "application/pdf"
		file.Data, err = s.pdf.Render(data, title, "Dibuat "+now.Format("02/01/2006 15:04")+" UTC")
	default:
		file.ContentType = "text/csv"
		file.Data, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	payload, _ := json.Marshal(map[string]interface{}{"dataset": dataset, "format": format, "rows": file.Rows})
	writeAudit(ctx, s.audit, s.logger, actor, meta, &models.AuditLog{
		Action:    models.AuditActionExport,
		Resource:  "exports",
		NewValues: payload,
	})
	return file, nil
}

func (s *ExportService) gtkDataset(ctx context.Context, actor models.Actor) (export.Dataset, error) {
	var school *string
	if actor.Role == models.RoleAdminSekolah {
		school = scopedSchool(actor)
	}
	users, err := s.repo.GTK(ctx, school, s.cfg.MaxRows)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gtk")
	}

	data := export.Dataset{Headers: []string{"Nama", "Email", "NUPTK", "NIP", "Jenis GTK", "Jabatan", "Sekolah", "Status"}}
	for _, u := range users {
		status := "Aktif"
		if !u.IsActive {
			status = "Nonaktif"
		}
		gtkType := ""
		if u.GTKType != nil {
			gtkType = string(*u.GTKType)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Nama":      u.FullName,
			"Email":     u.Email,
			"NUPTK":     deref(u.NUPTK),
			"NIP":       deref(u.NIP),
			"Jenis GTK": gtkType,
			"Jabatan":   deref(u.Position),
			"Sekolah":   deref(u.SchoolName),
			"Status":    status,
		})
	}
	return data, nil
}

func (s *ExportService) talentDataset(ctx context.Context, actor models.Actor) (export.Dataset, error) {
	filter := models.ScopeTalentFilter(actor, models.TalentFilter{})
	talents, err := s.repo.Talents(ctx, filter, s.cfg.MaxRows)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load talents")
	}

	data := export.Dataset{Headers: []string{"Nama GTK", "Sekolah", "Jenis", "Keterangan", "Status", "Diajukan"}}
	for i := range talents {
		t := &talents[i]
		summary := ""
		if detail, err := t.Detail(); err == nil {
			summary = detailSummary(detail)
		} else {
			s.logger.Warn("undecodable talent detail in export", zap.String("talent_id", t.ID), zap.Error(err))
		}
		data.Rows = append(data.Rows, map[string]string{
			"Nama GTK":   t.SubmitterName,
			"Sekolah":    deref(t.SchoolName),
			"Jenis":      t.Kind.Label(),
			"Keterangan": summary,
			"Status":     string(t.Status),
			"Diajukan":   t.CreatedAt.Format("2006-01-02"),
		})
	}
	return data, nil
}

func (s *ExportService) schoolDataset(ctx context.Context, actor models.Actor) (export.Dataset, error) {
	rows, err := s.stats.SchoolStatistics(ctx, actor)
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{Headers: []string{"Sekolah", "NPSN", "Status", "Jumlah GTK", "Jumlah Talenta", "Menunggu", "Disetujui"}}
	for _, r := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Sekolah":        r.Name,
			"NPSN":           r.NPSN,
			"Status":         string(r.Status),
			"Jumlah GTK":     strconv.Itoa(r.GTKCount),
			"Jumlah Talenta": strconv.Itoa(r.TalentCount),
			"Menunggu":       strconv.Itoa(r.PendingCount),
			"Disetujui":      strconv.Itoa(r.ApprovedCount),
		})
	}
	return data, nil
}

func detailSummary(detail models.TalentDetail) string {
	switch d := detail.(type) {
	case models.TrainingDetail:
		return fmt.Sprintf("%s (%s, %d hari)", d.ActivityName, d.Organizer, d.DurationDays)
	case models.MentorDetail:
		return fmt.Sprintf("%s, tingkat %s: %s", d.CompetitionName, d.Level, d.Achievement)
	case models.ParticipantDetail:
		return fmt.Sprintf("%s, tingkat %s: %s", d.CompetitionName, d.Level, d.Achievement)
	case models.InterestDetail:
		return d.InterestName
	}
	return ""
}

func scopedSchool(actor models.Actor) *string {
	school := ""
	if actor.SchoolID != nil {
		school = *actor.SchoolID
	}
	return &school
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
