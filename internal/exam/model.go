package exam

import (
	"database/sql"
	"time"
)

// Status is the lifecycle state of an exam.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Exam is the wire/display form of an exam record. DateTime is an ISO-8601
// string, empty while the exam is unscheduled.
type Exam struct {
	ID          string `json:"id"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Subject     string `json:"subject"`
	Status      Status `json:"status"`
	Room        string `json:"room"`
	DateTime    string `json:"dateTime,omitempty"`
}

// Record is an exam row as persisted. Status is kept raw until Decode checks it.
type Record struct {
	ID          string
	StudentID   string
	StudentName string
	Subject     string
	Status      string
	Room        string
	DateTime    sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Patch is a partial update. A nil field means "leave untouched"; a non-nil
// empty Room means "unassigned".
type Patch struct {
	Status   *Status `json:"status,omitempty" validate:"omitnil,examstatus"`
	Room     *string `json:"room,omitempty"`
	DateTime *string `json:"dateTime,omitempty" validate:"omitnil,instant"`
}

// Empty reports whether the patch carries no field at all.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Room == nil && p.DateTime == nil
}

// Fields is a validated patch in store form.
type Fields struct {
	Status   *Status
	Room     *string
	DateTime *time.Time
}

// NewExam is the input for out-of-band exam creation.
type NewExam struct {
	StudentID   string  `json:"studentId" validate:"required"`
	StudentName string  `json:"studentName" validate:"required"`
	Subject     string  `json:"subject" validate:"required"`
	Status      Status  `json:"status" validate:"omitempty,examstatus"`
	Room        string  `json:"room"`
	DateTime    *string `json:"dateTime,omitempty" validate:"omitnil,instant"`
}

// Snapshot is the full listing of the exams collection at one point in time.
// Invalid holds records that could not be decoded.
type Snapshot struct {
	Exams   []Exam        `json:"exams"`
	Invalid []DecodeError `json:"invalid,omitempty"`
}
