package category_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocwc/oeweek2022/core/category"
	sqlxrepos "github.com/ocwc/oeweek2022/storage/database/sqlx"
	testutil "github.com/ocwc/oeweek2022/tests"
)

func TestService(t *testing.T) {
	db := testutil.PrepareDB(t)
	svc := category.NewService(sqlxrepos.NewCategoryRepository(db))
	ctx := context.Background()

	_, err := svc.Save(ctx, category.Category{Name: "  "})
	assert.Error(t, err)

	oer, err := svc.Save(ctx, category.Category{Name: "Open Educational Resources", WpID: 12})
	require.NoError(t, err)
	assert.Equal(t, "open-educational-resources", oer.Slug)

	access, err := svc.Save(ctx, category.Category{Name: "Access", Slug: "OA"})
	require.NoError(t, err)
	assert.Equal(t, "oa", access.Slug)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	if assert.Len(t, all, 2) {
		assert.Equal(t, access.ID, all[0].ID)
		assert.Equal(t, 12, all[1].WpID)
	}

	oer.Name = "OER"
	updated, err := svc.Save(ctx, oer)
	require.NoError(t, err)
	assert.True(t, updated.Created.Equal(oer.Created))

	_, err = svc.Save(ctx, category.Category{ID: 42, Name: "Ghost"})
	assert.Equal(t, category.ErrNotFound, err)
}
