package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FeeStatus tracks whether a fee record has been settled.
type FeeStatus string

const (
	FeeStatusPending FeeStatus = "PENDING"
	FeeStatusPaid    FeeStatus = "PAID"
	FeeStatusOverdue FeeStatus = "OVERDUE"
)

// FeeRecord is a billed amount against a student, in the smallest currency unit.
type FeeRecord struct {
	ID          string     `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	Description string     `db:"description" json:"description"`
	AmountCents int64      `db:"amount_cents" json:"amount_cents"`
	Status      FeeStatus  `db:"status" json:"status"`
	DueDate     time.Time  `db:"due_date" json:"due_date"`
	PaidAt      *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	PaidRef     *string    `db:"paid_ref" json:"paid_ref,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// FeeRecordDetail resolves the billed student for listings.
type FeeRecordDetail struct {
	FeeRecord
	StudentName string `db:"student_name" json:"student_name"`
	StudentReg  string `db:"student_reg" json:"student_reg"`
}

// FeeFilter captures filtering criteria for listing fee records.
type FeeFilter struct {
	StudentID string
	Status    FeeStatus
	DueBefore *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StatementFormat enumerates supported export formats.
type StatementFormat string

const (
	StatementFormatCSV StatementFormat = "csv"
	StatementFormatPDF StatementFormat = "pdf"
)

// StatementStatus captures background export job lifecycle states.
type StatementStatus string

const (
	StatementStatusQueued     StatementStatus = "QUEUED"
	StatementStatusProcessing StatementStatus = "PROCESSING"
	StatementStatusFinished   StatementStatus = "FINISHED"
	StatementStatusFailed     StatementStatus = "FAILED"
)

// StatementJob is the persisted metadata for an asynchronous fee statement export.
type StatementJob struct {
	ID           string          `db:"id" json:"id"`
	Params       StatementParams `db:"params" json:"params"`
	Status       StatementStatus `db:"status" json:"status"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// StatementParams stores request-scoped options persisted as JSONB.
type StatementParams struct {
	StudentID string          `json:"studentId"`
	Format    StatementFormat `json:"format"`
	From      *time.Time      `json:"from,omitempty"`
	To        *time.Time      `json:"to,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p StatementParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal statement params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *StatementParams) Scan(value interface{}) error {
	if value == nil {
		*p = StatementParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StatementParams", value)
	}
	if len(data) == 0 {
		*p = StatementParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal statement params: %w", err)
	}
	return nil
}
