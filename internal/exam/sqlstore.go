package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"examflow/internal/store"
)

var columns = []string{"id", "student_id", "student_name", "subject", "status", "room", "date_time", "created_at", "updated_at"}

// SQLStore persists exams in Postgres or SQLite.
type SQLStore struct {
	db  *sql.DB
	sql squirrel.StatementBuilderType
	now func() time.Time
}

// NewSQLStore creates a store on an open database.
func NewSQLStore(db *store.DB) *SQLStore {
	return &SQLStore{db: db.Client, sql: db.Builder(), now: time.Now}
}

// FindByStudent returns every exam assigned to studentID.
func (s *SQLStore) FindByStudent(ctx context.Context, studentID string) ([]Record, error) {
	return s.query(ctx, s.sql.Select(columns...).From("exams").Where(squirrel.Eq{"student_id": studentID}))
}

// List returns the whole collection.
func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, s.sql.Select(columns...).From("exams").OrderBy("created_at", "id"))
}

// Get returns a single exam by id.
func (s *SQLStore) Get(ctx context.Context, id string) (Record, error) {
	q, args, err := s.sql.Select(columns...).From("exams").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return Record{}, fmt.Errorf("build query: %w", err)
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// Insert writes a new exam, assigning its id.
func (s *SQLStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := s.now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	_, err := s.sql.Insert("exams").
		Columns(columns...).
		Values(rec.ID, rec.StudentID, rec.StudentName, rec.Subject, rec.Status, rec.Room, rec.DateTime, rec.CreatedAt, rec.UpdatedAt).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update applies a field-level merge in a single statement.
func (s *SQLStore) Update(ctx context.Context, id string, f Fields) error {
	q := s.sql.Update("exams").Set("updated_at", s.now().UTC()).Where(squirrel.Eq{"id": id})
	if f.Status != nil {
		q = q.Set("status", string(*f.Status))
	}
	if f.Room != nil {
		q = q.Set("room", *f.Room)
	}
	if f.DateTime != nil {
		q = q.Set("date_time", f.DateTime.UTC())
	}
	res, err := q.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) query(ctx context.Context, b squirrel.SelectBuilder) ([]Record, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.Subject, &rec.Status, &rec.Room, &rec.DateTime, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
