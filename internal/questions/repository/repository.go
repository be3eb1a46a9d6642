package repository

import (
	"context"
	"errors"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
)

var (
	ErrNotFound = errors.New("past question not found")
)

// Repository persists past questions.
type Repository interface {
	Create(ctx context.Context, q *questions.PastQuestion) (string, error)
	Get(ctx context.Context, id string) (*questions.PastQuestion, error)
	List(ctx context.Context) ([]*questions.PastQuestion, error)
	IncrementDownloads(ctx context.Context, id string) (*questions.PastQuestion, error)
	Count(ctx context.Context) (int64, error)
}
