// Package page is a lightweight CMS: static pages and FAQ entries.
package page

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
)

type Kind string

const (
	KindPage    Kind = "page"
	KindFAQ     Kind = "faq"
	KindGeneric Kind = "generic"
	KindHome    Kind = "home"
)

var (
	Kinds = []string{string(KindPage), string(KindFAQ), string(KindGeneric), string(KindHome)}

	// errors
	ErrNotFound   = errors.New("page not found")
	ErrSlugExists = errors.New("a page with this slug already exists")

	nowFunc = time.Now // mockable
)

// Page is a piece of staff-written HTML content.
// An FAQ entry is a page of kind faq: the title is the question, the content the answer.
type Page struct {
	ID       int       `db:"id" json:"id"`
	Kind     Kind      `db:"kind" json:"kind" validate:"required,pagekind"`
	Title    string    `db:"title" json:"title" validate:"required,max=255"`
	Slug     string    `db:"slug" json:"slug" validate:"max=255"`
	Content  string    `db:"content" json:"content"`
	Position int       `db:"position" json:"position"`
	Created  time.Time `db:"created" json:"created"`
	Modified time.Time `db:"modified" json:"modified"`
}

type Filter struct {
	ID   int
	Kind Kind
	Slug string
}

type Repository interface {
	QueryPages(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Page, error)
	GetPage(ctx context.Context, filter Filter, exec ...core.DBExecutor) (Page, error)
	SavePage(ctx context.Context, p Page, exec ...core.DBExecutor) (Page, error)
	DeletePage(ctx context.Context, id int, exec ...core.DBExecutor) error
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Get(ctx context.Context, kind Kind, slug string) (Page, error) {
	return svc.repo.GetPage(ctx, Filter{Kind: kind, Slug: core.CleanString(slug, true /* lower */)})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Page, error) {
	return svc.repo.GetPage(ctx, Filter{ID: id})
}

// List returns the pages of `kind` (all of them when empty), by position then title.
func (svc *Service) List(ctx context.Context, kind Kind) ([]Page, error) {
	return svc.repo.QueryPages(ctx, Filter{Kind: kind})
}

// ListBySlug is the API listing, optionally narrowed down to one slug.
func (svc *Service) ListBySlug(ctx context.Context, slug string) ([]Page, error) {
	return svc.repo.QueryPages(ctx, Filter{Slug: core.CleanString(slug, true /* lower */)})
}

func (svc *Service) FAQ(ctx context.Context) ([]Page, error) {
	return svc.List(ctx, KindFAQ)
}

// Save creates or updates p. An empty slug is derived from the title.
func (svc *Service) Save(ctx context.Context, p Page) (Page, error) {
	p.Title = core.CleanString(p.Title)
	p.Slug = core.CleanString(p.Slug, true /* lower */)
	if p.Kind == "" {
		p.Kind = KindPage
	}
	if err := svc.validate.Struct(p); err != nil {
		return Page{}, err
	}
	if p.Slug == "" {
		p.Slug = core.Slugify(p.Title)
	}

	existing, err := svc.repo.GetPage(ctx, Filter{Kind: p.Kind, Slug: p.Slug})
	switch {
	case err == nil && existing.ID != p.ID:
		return Page{}, core.NewValidationError(ErrSlugExists, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
	case err != nil && errors.Cause(err) != ErrNotFound:
		return Page{}, err
	}

	now := nowFunc().UTC()
	if p.ID == 0 {
		p.Created = now
	} else {
		orig, err := svc.repo.GetPage(ctx, Filter{ID: p.ID})
		if err != nil {
			return Page{}, err
		}
		p.Created = orig.Created
	}
	p.Modified = now
	return svc.repo.SavePage(ctx, p)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeletePage(ctx, id)
}
