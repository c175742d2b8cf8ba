package exam

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means no exam matched the query.
	ErrNotFound = errors.New("exam not found")
	// ErrSubscriptionFailed marks the terminal error of a subscription.
	ErrSubscriptionFailed = errors.New("exam subscription failed")
	// ErrInvalidPatch wraps validation failures of an update.
	ErrInvalidPatch = errors.New("invalid exam update")
	// ErrInvalidExam wraps validation failures of a new exam.
	ErrInvalidExam = errors.New("invalid exam")
)

// DecodeError describes a stored record that is not a valid Exam.
type DecodeError struct {
	ID       string   `json:"id"`
	Problems []string `json:"problems"`
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("exam %s: %s", e.ID, strings.Join(e.Problems, "; "))
}
