package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"examflow/internal/store"
)

// SQLStore keeps profiles in the users table.
type SQLStore struct {
	db  *sql.DB
	sql squirrel.StatementBuilderType
}

// NewSQLStore creates a store on an open database.
func NewSQLStore(db *store.DB) *SQLStore {
	return &SQLStore{db: db.Client, sql: db.Builder()}
}

func (s *SQLStore) Get(ctx context.Context, uid string) (Profile, error) {
	return s.getWhere(ctx, squirrel.Eq{"uid": uid})
}

func (s *SQLStore) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return s.getWhere(ctx, squirrel.Eq{"email": email})
}

func (s *SQLStore) Insert(ctx context.Context, p Profile) error {
	var studentID sql.NullString
	if p.StudentID != "" {
		studentID = sql.NullString{String: p.StudentID, Valid: true}
	}
	_, err := s.sql.Insert("users").
		Columns("uid", "email", "name", "role", "student_id", "password_hash", "created_at").
		Values(p.UID, p.Email, p.Name, string(p.Role), studentID, p.passwordHash, time.Now().UTC()).
		RunWith(s.db).
		ExecContext(ctx)
	if store.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *SQLStore) getWhere(ctx context.Context, pred squirrel.Eq) (Profile, error) {
	q, args, err := s.sql.Select("uid", "email", "name", "role", "student_id", "password_hash").
		From("users").Where(pred).ToSql()
	if err != nil {
		return Profile{}, fmt.Errorf("build query: %w", err)
	}
	var (
		p         Profile
		email     sql.NullString
		role      string
		studentID sql.NullString
	)
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&p.UID, &email, &p.Name, &role, &studentID, &p.passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	if email.Valid {
		p.Email = &email.String
	}
	p.Role = Role(role)
	p.StudentID = studentID.String
	return p, nil
}
