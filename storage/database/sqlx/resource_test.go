package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/category"
	"github.com/ocwc/oeweek2022/core/resource"
	sqlxrepos "github.com/ocwc/oeweek2022/storage/database/sqlx"
	testutil "github.com/ocwc/oeweek2022/tests"
)

func TestResourceRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewResourceRepository(db)
	catRepo := sqlxrepos.NewCategoryRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	cat1, err := catRepo.SaveCategory(ctx, category.Category{Name: "OER", Slug: "oer", Created: now, Modified: now})
	require.NoError(t, err)
	cat2, err := catRepo.SaveCategory(ctx, category.Category{Name: "Open Data", Slug: "open-data", Created: now, Modified: now})
	require.NoError(t, err)

	r := testutil.CreateResource(t, repo, resource.Resource{
		Title:      "Open Day",
		Slug:       "open-day",
		Email:      "Jane@Example.org",
		OpenTags:   core.StringList{"Open Data"},
		Categories: []int{cat1.ID, cat2.ID},
		EventTime:  null.TimeFrom(time.Date(2023, 3, 7, 9, 30, 0, 0, time.UTC)),
		Lat:        null.Float64From(48.14816),
	})
	assert.ElementsMatch(t, []int{cat1.ID, cat2.ID}, r.Categories)
	assert.Equal(t, core.StringList{"Open Data"}, r.OpenTags)
	assert.Equal(t, 48.14816, r.Lat.Float64)
	assert.False(t, r.Lng.Valid)

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetResource(ctx, resource.GetFilter{UUID: r.UUID})
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
		assert.True(t, got.EventTime.Time.Equal(r.EventTime.Time))

		_, err = repo.GetResource(ctx, resource.GetFilter{ID: r.ID, Published: true})
		assert.Equal(t, resource.ErrNotFound, err)

		_, err = repo.GetResource(ctx, resource.GetFilter{})
		assert.Equal(t, resource.ErrNotFound, err)
	})

	t.Run("update categories", func(t *testing.T) {
		r.Categories = []int{cat2.ID}
		r.Title = "Open Night"
		_, err := repo.UpdateResource(ctx, r)
		require.NoError(t, err)

		got, err := repo.GetResource(ctx, resource.GetFilter{ID: r.ID})
		require.NoError(t, err)
		assert.Equal(t, []int{cat2.ID}, got.Categories)
		assert.Equal(t, "Open Night", got.Title)
	})

	t.Run("slug", func(t *testing.T) {
		exists, err := repo.SlugExists(ctx, "open-day", 0)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.SlugExists(ctx, "open-day", r.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("query", func(t *testing.T) {
		other := testutil.CreateResource(t, repo, resource.Resource{
			Title:     "Other",
			Link:      "https://example.org",
			EventType: "online",
		})

		got, err := repo.QueryResources(ctx, resource.QueryFilter{Email: "jane@example.org"}, nil)
		require.NoError(t, err)
		if assert.Len(t, got, 1) {
			assert.Equal(t, r.ID, got[0].ID)
		}

		got, err = repo.QueryResources(ctx, resource.QueryFilter{NeedsScreenshot: true}, nil)
		require.NoError(t, err)
		if assert.Len(t, got, 1) {
			assert.Equal(t, other.ID, got[0].ID)
		}

		got, err = repo.QueryResources(ctx, resource.QueryFilter{IDs: []int{r.ID, other.ID}}, []core.DBOrdering{{Field: "title", Ascending: true}})
		require.NoError(t, err)
		if assert.Len(t, got, 2) {
			assert.Equal(t, r.ID, got[0].ID)
		}

		got, err = repo.QueryResources(ctx, resource.QueryFilter{OpenTags: []string{"Open Data", "Open Science"}}, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("images", func(t *testing.T) {
		img, err := repo.CreateImage(ctx, resource.ResourceImage{Path: "images/resource/x.png", Created: now})
		require.NoError(t, err)

		r.ImageID = null.IntFrom(img.ID)
		_, err = repo.UpdateResource(ctx, r)
		require.NoError(t, err)

		got, err := repo.GetResource(ctx, resource.GetFilter{ID: r.ID})
		require.NoError(t, err)
		assert.Equal(t, null.StringFrom("images/resource/x.png"), got.ImagePath)

		fetched, err := repo.GetImage(ctx, img.ID)
		require.NoError(t, err)
		assert.Equal(t, img.Path, fetched.Path)
	})

	t.Run("published years", func(t *testing.T) {
		testutil.CreateResource(t, repo, testutil.Published(resource.Resource{Title: "Old Day", Year: 2021}))
		testutil.CreateResource(t, repo, testutil.Published(resource.Resource{Title: "Older Day", Year: 2019}))
		testutil.CreateResource(t, repo, resource.Resource{Title: "Draft Day", Year: 2020})

		years, err := repo.PublishedYears(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{2021, 2019}, years)
	})
}
