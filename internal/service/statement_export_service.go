package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/pkg/export"
	"github.com/hostelhub/hostel-adm-api/pkg/storage"
)

type statementFeeReader interface {
	ListForStatement(ctx context.Context, studentID string, from, to *time.Time) ([]models.FeeRecord, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// StatementExportConfig tunes export behaviour.
type StatementExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// StatementExportResult captures successful generation metadata.
type StatementExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.StatementFormat
	ExpiresAt    time.Time
}

// StatementExportService renders a student's fee statement and persists the
// file behind a signed download token.
type StatementExportService struct {
	fees     statementFeeReader
	students allocationStudentReader
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      StatementExportConfig
}

// NewStatementExportService constructs a StatementExportService.
func NewStatementExportService(fees statementFeeReader, students allocationStudentReader, store fileStorage, signer *storage.SignedURLSigner, cfg StatementExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *StatementExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &StatementExportService{
		fees:     fees,
		students: students,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the statement dataset and stores the rendered file.
func (s *StatementExportService) Generate(ctx context.Context, job *models.StatementJob) (*StatementExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.StatementFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.StatementFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/fees/statements/download/%s", signedURL, token)

	return &StatementExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *StatementExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *StatementExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored statement file.
func (s *StatementExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *StatementExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *StatementExportService) buildFilename(job *models.StatementJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	studentPart := sanitizeFilename(job.Params.StudentID)
	return fmt.Sprintf("statement_%s_%s.%s", studentPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *StatementExportService) buildDataset(ctx context.Context, params models.StatementParams) (export.Dataset, string, error) {
	student, err := s.students.FindByID(ctx, params.StudentID)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load student: %w", err)
	}
	records, err := s.fees.ListForStatement(ctx, params.StudentID, params.From, params.To)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load fee records: %w", err)
	}

	headers := []string{"Description", "Due Date", "Amount", "Status", "Paid At", "Reference"}
	rows := make([]map[string]string, 0, len(records))
	var billedCents, paidCents int64
	for _, record := range records {
		row := map[string]string{
			"Description": record.Description,
			"Due Date":    record.DueDate.Format("2006-01-02"),
			"Amount":      formatCents(record.AmountCents),
			"Status":      string(record.Status),
		}
		if record.PaidAt != nil {
			row["Paid At"] = record.PaidAt.Format("2006-01-02")
		}
		if record.PaidRef != nil {
			row["Reference"] = *record.PaidRef
		}
		billedCents += record.AmountCents
		if record.Status == models.FeeStatusPaid {
			paidCents += record.AmountCents
		}
		rows = append(rows, row)
	}

	dataset := export.Dataset{
		Headers: headers,
		Rows:    rows,
		Footer: map[string]string{
			"Description": "Total",
			"Amount":      formatCents(billedCents),
			"Status":      fmt.Sprintf("paid %s, outstanding %s", formatCents(paidCents), formatCents(billedCents-paidCents)),
		},
	}
	title := fmt.Sprintf("Fee Statement - %s (%s)", student.FullName, student.RegNo)
	return dataset, title, nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
