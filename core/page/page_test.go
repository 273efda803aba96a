package page_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/page"
	sqlxrepos "github.com/ocwc/oeweek2022/storage/database/sqlx"
	testutil "github.com/ocwc/oeweek2022/tests"
)

func newService(t *testing.T) *page.Service {
	db := testutil.PrepareDB(t)
	validate, _ := testutil.NewValidator()
	return page.NewService(sqlxrepos.NewPageRepository(db), validate)
}

func TestService(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	about, err := svc.Save(ctx, page.Page{Title: " About OE Week ", Content: "<p>About</p>"})
	require.NoError(t, err)
	assert.NotZero(t, about.ID)
	assert.Equal(t, page.KindPage, about.Kind)
	assert.Equal(t, "about-oe-week", about.Slug)
	assert.False(t, about.Created.IsZero())

	q2, err := svc.Save(ctx, page.Page{Kind: page.KindFAQ, Title: "How do I submit?", Position: 2})
	require.NoError(t, err)
	q1, err := svc.Save(ctx, page.Page{Kind: page.KindFAQ, Title: "What is OE Week?", Slug: "What", Position: 1})
	require.NoError(t, err)
	assert.Equal(t, "what", q1.Slug)

	t.Run("get", func(t *testing.T) {
		got, err := svc.Get(ctx, page.KindPage, "About-OE-Week")
		require.NoError(t, err)
		assert.Equal(t, about.ID, got.ID)

		_, err = svc.Get(ctx, page.KindFAQ, "about-oe-week")
		assert.Equal(t, page.ErrNotFound, err)
	})

	t.Run("faq by position", func(t *testing.T) {
		faq, err := svc.FAQ(ctx)
		require.NoError(t, err)
		if assert.Len(t, faq, 2) {
			assert.Equal(t, q1.ID, faq[0].ID)
			assert.Equal(t, q2.ID, faq[1].ID)
		}

		all, err := svc.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		bySlug, err := svc.ListBySlug(ctx, "what")
		require.NoError(t, err)
		assert.Len(t, bySlug, 1)
	})

	t.Run("slug clash", func(t *testing.T) {
		_, err := svc.Save(ctx, page.Page{Title: "About", Slug: "about-oe-week"})
		var vErr *core.ValidationError
		if assert.True(t, errors.As(err, &vErr)) {
			assert.Contains(t, vErr.FieldMap(), "slug")
		}

		// other kinds have their own slugs
		_, err = svc.Save(ctx, page.Page{Kind: page.KindGeneric, Title: "About", Slug: "about-oe-week"})
		assert.NoError(t, err)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := svc.Save(ctx, page.Page{Kind: "blog", Title: "Post"})
		assert.Error(t, err)
	})

	t.Run("update keeps created", func(t *testing.T) {
		about.Content = "<p>Updated</p>"
		got, err := svc.Save(ctx, about)
		require.NoError(t, err)
		assert.Equal(t, about.ID, got.ID)
		assert.True(t, got.Created.Equal(about.Created))

		reloaded, err := svc.GetByID(ctx, about.ID)
		require.NoError(t, err)
		assert.Equal(t, "<p>Updated</p>", reloaded.Content)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, q2.ID))
		assert.Equal(t, page.ErrNotFound, svc.Delete(ctx, q2.ID))
	})
}
