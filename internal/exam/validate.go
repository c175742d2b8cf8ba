package exam

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("examstatus", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("instant", func(fl validator.FieldLevel) bool {
		_, err := ParseTimestamp(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks a patch and converts it to store form.
func (p Patch) Validate() (Fields, error) {
	if p.Empty() {
		return Fields{}, fmt.Errorf("%w: no fields to update", ErrInvalidPatch)
	}
	if err := validate.Struct(p); err != nil {
		return Fields{}, fmt.Errorf("%w: %s", ErrInvalidPatch, describe(err))
	}
	f := Fields{Status: p.Status, Room: p.Room}
	if p.DateTime != nil {
		t, err := ParseTimestamp(*p.DateTime)
		if err != nil {
			return Fields{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
		f.DateTime = &t
	}
	return f, nil
}

// Validate checks a new exam and converts it to a record. Status defaults
// to scheduled.
func (n NewExam) Validate() (Record, error) {
	if err := validate.Struct(n); err != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrInvalidExam, describe(err))
	}
	rec := Record{
		StudentID:   n.StudentID,
		StudentName: n.StudentName,
		Subject:     n.Subject,
		Status:      string(n.Status),
		Room:        n.Room,
	}
	if rec.Status == "" {
		rec.Status = string(StatusScheduled)
	}
	if n.DateTime != nil {
		t, err := ParseTimestamp(*n.DateTime)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrInvalidExam, err)
		}
		rec.DateTime.Time, rec.DateTime.Valid = t, true
	}
	return rec, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "examstatus":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s, %s, %s", fe.Field(), StatusScheduled, StatusInProgress, StatusCompleted))
		case "instant":
			msgs = append(msgs, fe.Field()+" must be an ISO-8601 date and time, e.g. "+time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC).Format(TimestampLayout))
		default:
			msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}
