package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions/repository"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/logger"
	"github.com/ProgrammerDavid1234/study-hub-software-engineering/pkg/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("not found")
)

// UploadInput is a validated upload. Only metadata is kept.
type UploadInput struct {
	CourseCode string
	Title      string
	Year       int
	Semester   string
	Level      string
	Format     string
	UploadedBy string
}

// Service defines the catalog operations used by pages and the JSON API.
type Service interface {
	Browse(ctx context.Context, f questions.Filter) ([]*questions.PastQuestion, error)
	Get(ctx context.Context, id string) (*questions.PastQuestion, error)
	Upload(ctx context.Context, in UploadInput) (*questions.PastQuestion, error)
	Download(ctx context.Context, id string) (*questions.PastQuestion, error)
	Recent(ctx context.Context, limit int) ([]*questions.PastQuestion, error)
	RecentUploads(ctx context.Context, uploadedBy string, limit int) ([]*questions.PastQuestion, error)
	Recommended(ctx context.Context, level string, limit int) ([]*questions.PastQuestion, error)
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() Service {
	return New(repository.NewMemoryRepo())
}

// NewMongoService returns a Service backed by a MongoDB collection.
func NewMongoService(ctx context.Context, col *mongo.Collection) (Service, error) {
	repo, err := repository.NewMongoRepo(ctx, col)
	if err != nil {
		return nil, fmt.Errorf("question repository: %w", err)
	}
	return New(repo), nil
}

func New(repo repository.Repository) Service {
	return &catalog{repo: repo}
}

// SeedIfEmpty loads items into repo when it holds no questions yet.
func SeedIfEmpty(ctx context.Context, repo repository.Repository, items []*questions.PastQuestion) (int, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for i, q := range items {
		cp := *q
		if _, err := repo.Create(ctx, &cp); err != nil {
			return i, fmt.Errorf("seed %s: %w", q.CourseCode, err)
		}
	}
	return len(items), nil
}

type catalog struct {
	repo repository.Repository
}

func (c *catalog) Browse(ctx context.Context, f questions.Filter) ([]*questions.PastQuestion, error) {
	all, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*questions.PastQuestion, 0, len(all))
	for _, q := range all {
		if f.Match(q) {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		if out[i].CourseCode != out[j].CourseCode {
			return out[i].CourseCode < out[j].CourseCode
		}
		return out[i].Year > out[j].Year
	})
	return out, nil
}

func (c *catalog) Get(ctx context.Context, id string) (*questions.PastQuestion, error) {
	q, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

func (c *catalog) Upload(ctx context.Context, in UploadInput) (*questions.PastQuestion, error) {
	now := time.Now().UTC()
	q := &questions.PastQuestion{
		CourseCode: strings.TrimSpace(in.CourseCode),
		Title:      strings.TrimSpace(in.Title),
		Year:       in.Year,
		Semester:   in.Semester,
		Level:      in.Level,
		Format:     in.Format,
		UploadedBy: in.UploadedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if q.CourseCode == "" || q.Title == "" {
		return nil, errors.New("course code and title are required")
	}
	if _, err := c.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	logger.Infof("past question %s uploaded: %s %s (%d)", q.ID, q.CourseCode, q.Title, q.Year)
	return q, nil
}

// Download records a download. No file is served.
func (c *catalog) Download(ctx context.Context, id string) (*questions.PastQuestion, error) {
	q, err := c.repo.IncrementDownloads(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	metrics.QuestionDownloads.Inc()
	return q, nil
}

func (c *catalog) Recent(ctx context.Context, limit int) ([]*questions.PastQuestion, error) {
	all, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return newestFirst(all, limit), nil
}

func (c *catalog) RecentUploads(ctx context.Context, uploadedBy string, limit int) ([]*questions.PastQuestion, error) {
	all, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	mine := all[:0]
	for _, q := range all {
		if q.UploadedBy == uploadedBy {
			mine = append(mine, q)
		}
	}
	return newestFirst(mine, limit), nil
}

// Recommended returns the most downloaded questions at level, falling back
// to the whole catalog when level is empty.
func (c *catalog) Recommended(ctx context.Context, level string, limit int) ([]*questions.PastQuestion, error) {
	list, err := c.Browse(ctx, questions.Filter{Level: level})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Downloads > list[j].Downloads })
	return truncate(list, limit), nil
}

func newestFirst(list []*questions.PastQuestion, limit int) []*questions.PastQuestion {
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return truncate(list, limit)
}

func truncate(list []*questions.PastQuestion, limit int) []*questions.PastQuestion {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}
