package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/page"
)

var pageColumns = []string{"kind", "title", "slug", "content", "position", "created", "modified"}

type pageRepository struct {
	baseRepository
}

var _ page.Repository = (*pageRepository)(nil) // interface compliance check

func NewPageRepository(exec core.DBExecutor) *pageRepository {
	return &pageRepository{baseRepository{exec: exec}}
}

func pageWhere(filter page.Filter) *where {
	w := &where{}
	if filter.ID != 0 {
		w.add("id = ?", filter.ID)
	}
	if filter.Kind != "" {
		w.add("kind = ?", string(filter.Kind))
	}
	if filter.Slug != "" {
		w.add("slug = ?", filter.Slug)
	}
	return w
}

func (repo pageRepository) QueryPages(ctx context.Context, filter page.Filter, exec ...core.DBExecutor) ([]page.Page, error) {
	ex := repo.getExec(exec)
	w := pageWhere(filter)
	pages := make([]page.Page, 0)
	query := ex.Rebind("SELECT * FROM page" + w.String() + " ORDER BY position, title, id")
	if err := ex.SelectContext(ctx, &pages, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting pages")
	}
	return pages, nil
}

func (repo pageRepository) GetPage(ctx context.Context, filter page.Filter, exec ...core.DBExecutor) (page.Page, error) {
	ex := repo.getExec(exec)
	w := pageWhere(filter)
	if len(w.conds) == 0 {
		return page.Page{}, page.ErrNotFound
	}
	var p page.Page
	query := ex.Rebind("SELECT * FROM page" + w.String() + " ORDER BY id LIMIT 1")
	if err := ex.GetContext(ctx, &p, query, w.args...); err != nil {
		return page.Page{}, trapNoRowsErr(err, page.ErrNotFound, "selecting page")
	}
	return p, nil
}

func (repo pageRepository) SavePage(ctx context.Context, p page.Page, exec ...core.DBExecutor) (page.Page, error) {
	ex := repo.getExec(exec)
	if p.ID == 0 {
		id, err := insertReturningID(ctx, ex, "page", pageColumns, p)
		if err != nil {
			return page.Page{}, errors.Wrap(err, "inserting page")
		}
		p.ID = id
		return p, nil
	}
	if err := updateByID(ctx, ex, "page", pageColumns, p, page.ErrNotFound); err != nil {
		return page.Page{}, trapNoRowsErr(err, page.ErrNotFound, "updating page")
	}
	return p, nil
}

func (repo pageRepository) DeletePage(ctx context.Context, id int, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	res, err := ex.ExecContext(ctx, ex.Rebind("DELETE FROM page WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting page")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return page.ErrNotFound
	}
	return nil
}
