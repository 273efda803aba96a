package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/mailing"
)

var emailQueueColumns = []string{"subject", "body", "from_email", "recipients", "cc", "status", "priority", "created", "modified"}

type mailingRepository struct {
	baseRepository
}

var _ mailing.Repository = (*mailingRepository)(nil) // interface compliance check

func NewMailingRepository(exec core.DBExecutor) *mailingRepository {
	return &mailingRepository{baseRepository{exec: exec}}
}

func (repo mailingRepository) CreateItem(ctx context.Context, item mailing.Item, exec ...core.DBExecutor) (mailing.Item, error) {
	id, err := insertReturningID(ctx, repo.getExec(exec), "email_queue", emailQueueColumns, item)
	if err != nil {
		return mailing.Item{}, errors.Wrap(err, "inserting queue item")
	}
	item.ID = id
	return item, nil
}

// QueryItems returns the items in sending order: most urgent first, then least recently tried.
func (repo mailingRepository) QueryItems(ctx context.Context, filter mailing.ItemFilter, exec ...core.DBExecutor) ([]mailing.Item, error) {
	ex := repo.getExec(exec)
	var w where
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	query := ex.Rebind("SELECT * FROM email_queue" + w.String() + " ORDER BY priority DESC, modified, id" + limit(filter.Limit))

	items := make([]mailing.Item, 0)
	if err := ex.SelectContext(ctx, &items, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting queue items")
	}
	return items, nil
}

func (repo mailingRepository) UpdateItem(ctx context.Context, item mailing.Item, exec ...core.DBExecutor) (mailing.Item, error) {
	if err := updateByID(ctx, repo.getExec(exec), "email_queue", emailQueueColumns, item, mailing.ErrNotFound); err != nil {
		return mailing.Item{}, trapNoRowsErr(err, mailing.ErrNotFound, "updating queue item")
	}
	return item, nil
}

func (repo mailingRepository) DeleteItems(ctx context.Context, filter mailing.DeleteFilter, exec ...core.DBExecutor) (int, error) {
	ex := repo.getExec(exec)
	var w where
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if !filter.ModifiedBefore.IsZero() {
		w.add("modified < ?", filter.ModifiedBefore.UTC())
	}
	res, err := ex.ExecContext(ctx, ex.Rebind("DELETE FROM email_queue"+w.String()), w.args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting queue items")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting queue items")
}

func (repo mailingRepository) QueryTemplates(ctx context.Context, exec ...core.DBExecutor) ([]mailing.Template, error) {
	templates := make([]mailing.Template, 0)
	if err := repo.getExec(exec).SelectContext(ctx, &templates, "SELECT * FROM email_template ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "selecting email templates")
	}
	return templates, nil
}

func (repo mailingRepository) GetTemplate(ctx context.Context, filter mailing.TemplateFilter, exec ...core.DBExecutor) (mailing.Template, error) {
	ex := repo.getExec(exec)
	var w where
	switch {
	case filter.ID != 0:
		w.add("id = ?", filter.ID)
	case filter.Name != "":
		w.add("name = ?", filter.Name)
	default:
		return mailing.Template{}, mailing.ErrNotFound
	}

	var tmpl mailing.Template
	if err := ex.GetContext(ctx, &tmpl, ex.Rebind("SELECT * FROM email_template"+w.String()), w.args...); err != nil {
		return mailing.Template{}, trapNoRowsErr(err, mailing.ErrNotFound, "selecting email template")
	}
	return tmpl, nil
}

func (repo mailingRepository) SaveTemplate(ctx context.Context, tmpl mailing.Template, exec ...core.DBExecutor) (mailing.Template, error) {
	ex := repo.getExec(exec)
	cols := []string{"name", "subject", "body"}
	if tmpl.ID == 0 {
		id, err := insertReturningID(ctx, ex, "email_template", cols, tmpl)
		if err != nil {
			return mailing.Template{}, errors.Wrap(err, "inserting email template")
		}
		tmpl.ID = id
		return tmpl, nil
	}
	if err := updateByID(ctx, ex, "email_template", cols, tmpl, mailing.ErrNotFound); err != nil {
		return mailing.Template{}, trapNoRowsErr(err, mailing.ErrNotFound, "updating email template")
	}
	return tmpl, nil
}
