package sqlxrepos_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocwc/oeweek2022/core/mailing"
	sqlxrepos "github.com/ocwc/oeweek2022/storage/database/sqlx"
	testutil "github.com/ocwc/oeweek2022/tests"
)

func TestMailingRepository_Items(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewMailingRepository(db)
	ctx := context.Background()

	base := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	newItem := func(subject string, prio int, modified time.Time) mailing.Item {
		item, err := repo.CreateItem(ctx, mailing.Item{
			Subject:    subject,
			Body:       "body",
			FromEmail:  (&mail.Address{Address: "info@openeducationweek.org"}).String(),
			Recipients: "jane@example.org",
			Status:     mailing.StatusUnsent,
			Priority:   prio,
			Created:    base,
			Modified:   modified,
		})
		require.NoError(t, err)
		return item
	}

	late := newItem("late", mailing.PriorityNormal, base.Add(time.Hour))
	early := newItem("early", mailing.PriorityNormal, base)
	urgent := newItem("urgent", mailing.PriorityHigh, base.Add(2*time.Hour))

	items, err := repo.QueryItems(ctx, mailing.ItemFilter{Status: mailing.StatusUnsent})
	require.NoError(t, err)
	if assert.Len(t, items, 3) {
		assert.Equal(t, urgent.ID, items[0].ID)
		assert.Equal(t, early.ID, items[1].ID)
		assert.Equal(t, late.ID, items[2].ID)
	}

	limited, err := repo.QueryItems(ctx, mailing.ItemFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	urgent.Status = mailing.StatusSent
	_, err = repo.UpdateItem(ctx, urgent)
	require.NoError(t, err)

	sent, err := repo.QueryItems(ctx, mailing.ItemFilter{Status: mailing.StatusSent})
	require.NoError(t, err)
	assert.Len(t, sent, 1)

	_, err = repo.UpdateItem(ctx, mailing.Item{ID: 999, Status: mailing.StatusSent})
	assert.Equal(t, mailing.ErrNotFound, err)

	n, err := repo.DeleteItems(ctx, mailing.DeleteFilter{Status: mailing.StatusUnsent, ModifiedBefore: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DeleteItems(ctx, mailing.DeleteFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMailingRepository_Templates(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewMailingRepository(db)
	ctx := context.Background()

	// seeded by the migrations
	templates, err := repo.QueryTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 4)

	tmpl, err := repo.GetTemplate(ctx, mailing.TemplateFilter{Name: mailing.TemplateAccepted})
	require.NoError(t, err)
	def, _ := mailing.DefaultTemplate(mailing.TemplateAccepted)
	assert.Equal(t, def.Subject, tmpl.Subject)
	assert.Equal(t, def.Body, tmpl.Body)

	tmpl.Subject = "Accepted: {{title}}"
	_, err = repo.SaveTemplate(ctx, tmpl)
	require.NoError(t, err)

	got, err := repo.GetTemplate(ctx, mailing.TemplateFilter{ID: tmpl.ID})
	require.NoError(t, err)
	assert.Equal(t, "Accepted: {{title}}", got.Subject)

	_, err = repo.GetTemplate(ctx, mailing.TemplateFilter{Name: "nope"})
	assert.Equal(t, mailing.ErrNotFound, err)
	_, err = repo.GetTemplate(ctx, mailing.TemplateFilter{})
	assert.Equal(t, mailing.ErrNotFound, err)
}
