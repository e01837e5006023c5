package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostelhub/hostel-adm-api/internal/models"
)

// FeeRepository provides persistence for fee records and statement export jobs.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// List returns fee records with the billed student resolved.
func (r *FeeRepository) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeRecordDetail, int, error) {
	base := `FROM fee_records f
JOIN students s ON s.id = f.student_id`
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("f.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("f.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, fmt.Sprintf("f.due_date < $%d", len(args)+1))
		args = append(args, *filter.DueBefore)
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"due_date":     "f.due_date",
		"amount_cents": "f.amount_cents",
		"status":       "f.status",
		"created_at":   "f.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "f.due_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT f.id, f.student_id, f.description, f.amount_cents, f.status, f.due_date, f.paid_at, f.paid_ref, f.created_at, f.updated_at,
s.full_name AS student_name, s.reg_no AS student_reg
%s %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, column, order, size, offset)

	var records []models.FeeRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee records: %w", err)
	}
	return records, total, nil
}

// ListForStatement returns all of a student's fee records in a date window,
// oldest first, for statement export.
func (r *FeeRepository) ListForStatement(ctx context.Context, studentID string, from, to *time.Time) ([]models.FeeRecord, error) {
	conditions := []string{"student_id = $1"}
	args := []interface{}{studentID}
	if from != nil {
		conditions = append(conditions, fmt.Sprintf("due_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("due_date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	query := fmt.Sprintf(`SELECT id, student_id, description, amount_cents, status, due_date, paid_at, paid_ref, created_at, updated_at
FROM fee_records WHERE %s ORDER BY due_date ASC`, strings.Join(conditions, " AND "))
	var records []models.FeeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list statement fee records: %w", err)
	}
	return records, nil
}

// GetByID returns a fee record by identifier.
func (r *FeeRepository) GetByID(ctx context.Context, id string) (*models.FeeRecord, error) {
	const query = `SELECT id, student_id, description, amount_cents, status, due_date, paid_at, paid_ref, created_at, updated_at FROM fee_records WHERE id = $1`
	var record models.FeeRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new fee record.
func (r *FeeRepository) Create(ctx context.Context, record *models.FeeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = models.FeeStatusPending
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO fee_records (id, student_id, description, amount_cents, status, due_date, paid_at, paid_ref, created_at, updated_at)
VALUES (:id, :student_id, :description, :amount_cents, :status, :due_date, :paid_at, :paid_ref, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create fee record: %w", err)
	}
	return nil
}

// MarkPaid settles a pending fee record. Returns sql.ErrNoRows via GetByID
// semantics when the record does not exist.
func (r *FeeRepository) MarkPaid(ctx context.Context, id, paidRef string, paidAt time.Time) error {
	const query = `UPDATE fee_records SET status = 'PAID', paid_at = $2, paid_ref = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, paidAt, paidRef, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark fee paid: %w", err)
	}
	return nil
}

// MarkOverdueBefore flips unpaid records past their due date to OVERDUE.
func (r *FeeRepository) MarkOverdueBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `UPDATE fee_records SET status = 'OVERDUE', updated_at = $2 WHERE status = 'PENDING' AND due_date < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark overdue fees: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue fees rows: %w", err)
	}
	return affected, nil
}

// CreateStatementJob inserts a new statement job row with generated defaults.
func (r *FeeRepository) CreateStatementJob(ctx context.Context, job *models.StatementJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.StatementStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO statement_jobs (id, params, status, result_url, created_by, created_at, finished_at, error_message)
VALUES (:id, :params, :status, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create statement job: %w", err)
	}
	return nil
}

// GetStatementJob returns a job row by its identifier.
func (r *FeeRepository) GetStatementJob(ctx context.Context, id string) (*models.StatementJob, error) {
	const query = `SELECT id, params, status, result_url, created_by, created_at, finished_at, error_message
FROM statement_jobs WHERE id = $1`
	var job models.StatementJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatementJobParams defines the mutable fields of a statement job.
type UpdateStatementJobParams struct {
	Status       *models.StatementStatus
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// UpdateStatementJob persists the provided changes for a job row.
func (r *FeeRepository) UpdateStatementJob(ctx context.Context, id string, params UpdateStatementJobParams) error {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.ResultURL != nil {
		set = append(set, fmt.Sprintf("result_url = $%d", argPos))
		args = append(args, *params.ResultURL)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", argPos))
		args = append(args, *params.FinishedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE statement_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update statement job: %w", err)
	}
	return nil
}

// ListQueuedStatementJobs returns jobs that never reached a worker, oldest first.
func (r *FeeRepository) ListQueuedStatementJobs(ctx context.Context, limit int) ([]models.StatementJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, params, status, result_url, created_by, created_at, finished_at, error_message
FROM statement_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.StatementJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued statement jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedStatementJobsBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *FeeRepository) ListFinishedStatementJobsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.StatementJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, params, status, result_url, created_by, created_at, finished_at, error_message
FROM statement_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.StatementJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished statement jobs: %w", err)
	}
	return jobs, nil
}
