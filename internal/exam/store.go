package exam

import "context"

// Store is the document-store boundary for the exams collection.
type Store interface {
	FindByStudent(ctx context.Context, studentID string) ([]Record, error)
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	// Update sets only the non-nil fields; ErrNotFound when id is unknown.
	Update(ctx context.Context, id string, f Fields) error
}
