package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examflow/internal/exam"
	"examflow/internal/feed"
	"examflow/internal/user"
)

func TestLoadFixtures(t *testing.T) {
	fx, err := loadFixtures("testdata/fixtures.yaml")
	require.NoError(t, err)
	assert.Len(t, fx.Users, 3)
	require.Len(t, fx.Exams, 2)
	assert.Equal(t, "2024-06-01T09:00:00.000Z", fx.Exams[0].DateTime)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - nmae: typo\n"), 0o600))
	_, err = loadFixtures(path)
	assert.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	fx, err := loadFixtures("testdata/fixtures.yaml")
	require.NoError(t, err)

	users := user.NewService(user.NewMemoryStore())
	exams := exam.NewRepository(exam.NewMemoryStore(), feed.NewInMemory(), zerolog.Nop())
	ctx := context.Background()

	sum, err := seed(ctx, fx, users, exams, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, summary{UsersCreated: 3, ExamsCreated: 2}, sum)

	sum, err = seed(ctx, fx, users, exams, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, summary{UsersSkipped: 3, ExamsSkipped: 2}, sum)

	ex, err := exams.FetchByStudent(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "A1", ex.Room)
	assert.Equal(t, "2024-06-01T09:00:00.000Z", ex.DateTime)

	_, err = users.Authenticate(ctx, "ada@examflow.test", "student-password")
	assert.NoError(t, err)
}

func TestSeedRejectsInvalidExam(t *testing.T) {
	users := user.NewService(user.NewMemoryStore())
	exams := exam.NewRepository(exam.NewMemoryStore(), feed.NewInMemory(), zerolog.Nop())
	fx := fixtures{Exams: []examFixture{{StudentID: "S1", StudentName: "Ada", Subject: "Math", Status: "postponed"}}}

	_, err := seed(context.Background(), fx, users, exams, zerolog.Nop())
	assert.ErrorIs(t, err, exam.ErrInvalidExam)
}
