package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteMigrate(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "examflow.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "migrations must be re-runnable")
	assert.True(t, db.Healthy(ctx))

	insert := func(uid, email string) error {
		_, err := db.Builder().Insert("users").
			Columns("uid", "email", "name", "role").
			Values(uid, email, "n", "student").
			RunWith(db.Client).ExecContext(ctx)
		return err
	}
	require.NoError(t, insert("u1", "a@example.com"))
	err = insert("u2", "a@example.com")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, squirrel.Dollar, Postgres.Placeholder())
	assert.Equal(t, squirrel.Question, SQLite.Placeholder())

	q, _, err := (&DB{Dialect: Postgres}).Builder().Select("id").From("exams").Where(squirrel.Eq{"id": "x"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM exams WHERE id = $1", q)
}

func TestHealthyNil(t *testing.T) {
	var db *DB
	assert.False(t, db.Healthy(context.Background()))
	var r *Redis
	assert.False(t, r.Healthy(context.Background()))
	assert.NoError(t, r.Close())
}
