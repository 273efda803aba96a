// Package category holds the resource categories, imported from the legacy WordPress taxonomy.
package category

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
)

var (
	ErrNotFound = errors.New("category not found")

	nowFunc = time.Now // mockable
)

type Category struct {
	ID       int       `db:"id" json:"id"`
	WpID     int       `db:"wp_id" json:"wp_id"`
	Name     string    `db:"name" json:"name"`
	Slug     string    `db:"slug" json:"slug"`
	Created  time.Time `db:"created" json:"created"`
	Modified time.Time `db:"modified" json:"modified"`
}

type Repository interface {
	QueryCategories(ctx context.Context, exec ...core.DBExecutor) ([]Category, error)
	GetCategory(ctx context.Context, id int, exec ...core.DBExecutor) (Category, error)
	SaveCategory(ctx context.Context, c Category, exec ...core.DBExecutor) (Category, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the categories sorted by name.
func (svc *Service) List(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryCategories(ctx)
}

// Save creates or updates c. An empty slug is derived from the name.
func (svc *Service) Save(ctx context.Context, c Category) (Category, error) {
	c.Name = core.CleanString(c.Name)
	if c.Name == "" {
		return Category{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	if c.Slug = core.CleanString(c.Slug, true /* lower */); c.Slug == "" {
		c.Slug = core.Slugify(c.Name)
	}

	now := nowFunc().UTC()
	if c.ID == 0 {
		c.Created = now
	} else {
		orig, err := svc.repo.GetCategory(ctx, c.ID)
		if err != nil {
			return Category{}, err
		}
		c.Created = orig.Created
	}
	c.Modified = now
	return svc.repo.SaveCategory(ctx, c)
}
