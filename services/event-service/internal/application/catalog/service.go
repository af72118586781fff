// Package catalog manages the reference data events point at: users and categories.
package catalog

import (
	"context"

	"github.com/baechuer/real-time-ressys/pkg/logger"
	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
)

type Repo interface {
	InsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context, ids []string, page domain.Page) ([]*domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	InsertCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context, page domain.Page) ([]*domain.Category, error)
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id string) error
	CategoryInUse(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo Repo
}

func New(repo Repo) *Service { return &Service{repo: repo} }

func (s *Service) CreateUser(ctx context.Context, name, email string) (*domain.User, error) {
	u, err := domain.NewUser(name, email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.InsertUser(ctx, u); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("user_id", u.ID).Msg("user created")
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, ids []string, page domain.Page) ([]*domain.User, error) {
	return s.repo.ListUsers(ctx, ids, page.Normalize())
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.DeleteUser(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	c, err := domain.NewCategory(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.InsertCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context, page domain.Page) ([]*domain.Category, error) {
	return s.repo.ListCategories(ctx, page.Normalize())
}

func (s *Service) RenameCategory(ctx context.Context, id, name string) (*domain.Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Rename(name); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory refuses while any event still references the category.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return err
	}
	inUse, err := s.repo.CategoryInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrForbidden("category is used by events")
	}
	return s.repo.DeleteCategory(ctx, id)
}
