package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/category"
)

var categoryColumns = []string{"wp_id", "name", "slug", "created", "modified"}

type categoryRepository struct {
	baseRepository
}

var _ category.Repository = (*categoryRepository)(nil) // interface compliance check

func NewCategoryRepository(exec core.DBExecutor) *categoryRepository {
	return &categoryRepository{baseRepository{exec: exec}}
}

func (repo categoryRepository) QueryCategories(ctx context.Context, exec ...core.DBExecutor) ([]category.Category, error) {
	categories := make([]category.Category, 0)
	if err := repo.getExec(exec).SelectContext(ctx, &categories, "SELECT * FROM category ORDER BY name, id"); err != nil {
		return nil, errors.Wrap(err, "selecting categories")
	}
	return categories, nil
}

func (repo categoryRepository) GetCategory(ctx context.Context, id int, exec ...core.DBExecutor) (category.Category, error) {
	ex := repo.getExec(exec)
	var c category.Category
	if err := ex.GetContext(ctx, &c, ex.Rebind("SELECT * FROM category WHERE id = ?"), id); err != nil {
		return category.Category{}, trapNoRowsErr(err, category.ErrNotFound, "selecting category")
	}
	return c, nil
}

func (repo categoryRepository) SaveCategory(ctx context.Context, c category.Category, exec ...core.DBExecutor) (category.Category, error) {
	ex := repo.getExec(exec)
	if c.ID == 0 {
		id, err := insertReturningID(ctx, ex, "category", categoryColumns, c)
		if err != nil {
			return category.Category{}, errors.Wrap(err, "inserting category")
		}
		c.ID = id
		return c, nil
	}
	if err := updateByID(ctx, ex, "category", categoryColumns, c, category.ErrNotFound); err != nil {
		return category.Category{}, trapNoRowsErr(err, category.ErrNotFound, "updating category")
	}
	return c, nil
}
