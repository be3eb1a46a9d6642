package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
)

// Service answers profile lookups for the session manager and the sign-up
// duplicate check. A missing row is (nil, nil).
type Service struct {
	repo ProfileRepository
}

func NewService(r ProfileRepository) *Service {
	return &Service{repo: r}
}

func (s *Service) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	p, err := s.repo.ProfileByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}
	return p, nil
}

func (s *Service) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	p, err := s.repo.ProfileByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("profile lookup by email: %w", err)
	}
	return p, nil
}
