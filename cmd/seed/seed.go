package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"examflow/internal/exam"
	"examflow/internal/user"
)

// fixtures is the seed file layout.
type fixtures struct {
	Users []userFixture `yaml:"users"`
	Exams []examFixture `yaml:"exams"`
}

type userFixture struct {
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	StudentID string `yaml:"student_id"`
}

type examFixture struct {
	StudentID   string `yaml:"student_id"`
	StudentName string `yaml:"student_name"`
	Subject     string `yaml:"subject"`
	Status      string `yaml:"status"`
	Room        string `yaml:"room"`
	DateTime    string `yaml:"date_time"`
}

type summary struct {
	UsersCreated, UsersSkipped int
	ExamsCreated, ExamsSkipped int
}

func loadFixtures(path string) (fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	var fx fixtures
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	return fx, nil
}

// seed creates every fixture that does not exist yet. Users are matched by
// email and exams by student id and subject, so re-running is harmless.
func seed(ctx context.Context, fx fixtures, users *user.Service, exams *exam.Repository, logger zerolog.Logger) (summary, error) {
	var sum summary
	for _, u := range fx.Users {
		_, err := users.Signup(ctx, user.SignupInput{
			Name:      u.Name,
			Email:     u.Email,
			Password:  u.Password,
			Role:      user.Role(u.Role),
			StudentID: u.StudentID,
		})
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			sum.UsersSkipped++
		case err != nil:
			return sum, fmt.Errorf("seed user %s: %w", u.Email, err)
		default:
			sum.UsersCreated++
			logger.Info().Str("email", u.Email).Str("role", u.Role).Msg("user created")
		}
	}

	snap, err := exams.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("list exams: %w", err)
	}
	existing := make(map[[2]string]bool, len(snap.Exams))
	for _, ex := range snap.Exams {
		existing[[2]string{ex.StudentID, ex.Subject}] = true
	}

	for _, e := range fx.Exams {
		key := [2]string{e.StudentID, e.Subject}
		if existing[key] {
			sum.ExamsSkipped++
			continue
		}
		in := exam.NewExam{
			StudentID:   e.StudentID,
			StudentName: e.StudentName,
			Subject:     e.Subject,
			Status:      exam.Status(e.Status),
			Room:        e.Room,
		}
		if e.DateTime != "" {
			dt := e.DateTime
			in.DateTime = &dt
		}
		ex, err := exams.Create(ctx, in)
		if err != nil {
			return sum, fmt.Errorf("seed exam %s/%s: %w", e.StudentID, e.Subject, err)
		}
		existing[key] = true
		sum.ExamsCreated++
		logger.Info().Str("exam_id", ex.ID).Str("student_id", ex.StudentID).Str("subject", ex.Subject).Msg("exam created")
	}
	return sum, nil
}
