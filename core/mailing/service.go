// Package mailing holds the email templates and the outgoing email queue.
//
// Emails are not sent inline: they are stored UNSENT and a Worker flushes them in small batches.
package mailing

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
)

const (
	defaultBatchSize = 10
	defaultCleanAge  = 7 * 24 * time.Hour
)

var (
	// errors
	ErrNotFound     = errors.New("email template not found")
	ErrNotConfirmed = errors.New("this will delete all entries in the queue, please use --really-proper to confirm that it is desired")
	errNoRecipients = errors.New("email has no recipients")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateItem(ctx context.Context, item Item, exec ...core.DBExecutor) (Item, error)
		QueryItems(ctx context.Context, filter ItemFilter, exec ...core.DBExecutor) ([]Item, error)
		UpdateItem(ctx context.Context, item Item, exec ...core.DBExecutor) (Item, error)
		DeleteItems(ctx context.Context, filter DeleteFilter, exec ...core.DBExecutor) (int, error)

		QueryTemplates(ctx context.Context, exec ...core.DBExecutor) ([]Template, error)
		GetTemplate(ctx context.Context, filter TemplateFilter, exec ...core.DBExecutor) (Template, error)
		SaveTemplate(ctx context.Context, tmpl Template, exec ...core.DBExecutor) (Template, error)
	}

	// Queue stores outgoing emails and sends them in batches.
	Queue struct {
		repo      Repository
		mailSvc   core.EmailService
		logger    core.Logger
		from      mail.Address
		batchSize int
		cleanAge  time.Duration
		kick      chan struct{}
	}
)

func NewQueue(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Queue {
	q := &Queue{
		repo:      repo,
		mailSvc:   mailSvc,
		logger:    logger,
		from:      conf.DefaultFromEmail,
		batchSize: conf.Mailing.BatchSize,
		cleanAge:  conf.Mailing.CleanAge,
		kick:      make(chan struct{}, 1),
	}
	if q.batchSize <= 0 {
		q.batchSize = defaultBatchSize
	}
	if q.cleanAge <= 0 {
		q.cleanAge = defaultCleanAge
	}
	return q
}

// Enqueue stores `msg` as an UNSENT item and wakes the worker up.
func (q *Queue) Enqueue(ctx context.Context, msg *core.EmailMessage, priority ...int) (Item, error) {
	if !msg.HasRecipients() {
		return Item{}, errNoRecipients
	}
	from := q.from
	if msg.From != nil {
		from = *msg.From
	}
	var prio int
	if len(priority) > 0 {
		prio = priority[0]
	}

	now := nowFunc().UTC()
	item, err := q.repo.CreateItem(ctx, Item{
		Subject:    msg.Subject,
		Body:       msg.TextContent,
		FromEmail:  from.String(),
		Recipients: core.JoinAddresses(msg.To),
		Cc:         core.JoinAddresses(msg.Cc),
		Status:     StatusUnsent,
		Priority:   prio,
		Created:    now,
		Modified:   now,
	})
	if err != nil {
		return Item{}, errors.Wrap(err, "creating queue item")
	}
	q.Kick()
	return item, nil
}

// Kick asks the worker for an immediate flush. It never blocks.
func (q *Queue) Kick() {
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// SendBatch sends the most urgent UNSENT items, at most one batch.
// Failed items stay UNSENT; their modified time is bumped so that the next batch moves on to other items.
func (q *Queue) SendBatch(ctx context.Context) (int, error) {
	items, err := q.repo.QueryItems(ctx, ItemFilter{Status: StatusUnsent, Limit: q.batchSize})
	if err != nil {
		return 0, errors.Wrap(err, "querying unsent items")
	}

	var sent int
	for _, item := range items {
		if err = ctx.Err(); err != nil {
			return sent, err
		}

		sendErr := q.send(ctx, item)
		item.Modified = nowFunc().UTC()
		if sendErr != nil {
			q.logger.Error(fmt.Sprintf("failed to send email %d: %v", item.ID, sendErr), sendErr)
		} else {
			item.Status = StatusSent
			sent++
		}
		if _, err = q.repo.UpdateItem(ctx, item); err != nil {
			return sent, errors.Wrap(err, "updating queue item")
		}
	}
	return sent, nil
}

func (q *Queue) send(ctx context.Context, item Item) error {
	to, err := core.SplitAddresses(item.Recipients)
	if err != nil {
		return errors.Wrap(err, "parsing recipients")
	}
	if len(to) == 0 {
		return errNoRecipients
	}
	cc, err := core.SplitAddresses(item.Cc)
	if err != nil {
		return errors.Wrap(err, "parsing cc")
	}
	msg := &core.EmailMessage{
		To:          to,
		Cc:          cc,
		Subject:     item.Subject,
		TextContent: item.Body,
	}
	if from, err := mail.ParseAddress(item.FromEmail); err == nil {
		msg.From = from
	}
	return q.mailSvc.Send(ctx, msg)
}

// List returns the queue items, optionally filtered by status, in sending order.
func (q *Queue) List(ctx context.Context, status Status) ([]Item, error) {
	return q.repo.QueryItems(ctx, ItemFilter{Status: status})
}

// Clean deletes the UNSENT items not touched for longer than the clean age at `now`.
func (q *Queue) Clean(ctx context.Context, now time.Time) (int, error) {
	return q.repo.DeleteItems(ctx, DeleteFilter{
		Status:         StatusUnsent,
		ModifiedBefore: now.UTC().Add(-q.cleanAge),
	})
}

// MrProper deletes every item, sent or not. `really` must be set to confirm.
func (q *Queue) MrProper(ctx context.Context, really bool) (int, error) {
	if !really {
		return 0, ErrNotConfirmed
	}
	return q.repo.DeleteItems(ctx, DeleteFilter{})
}

// Templates gives read access to the email templates.
type Templates struct {
	repo Repository
}

func NewTemplates(repo Repository) *Templates {
	return &Templates{repo: repo}
}

// Get returns the named template, falling back to the built-in one.
func (t *Templates) Get(ctx context.Context, name string) (Template, error) {
	tmpl, err := t.repo.GetTemplate(ctx, TemplateFilter{Name: name})
	if err == nil {
		return tmpl, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Template{}, err
	}
	if def, ok := DefaultTemplate(name); ok {
		return def, nil
	}
	return Template{}, ErrNotFound
}

func (t *Templates) GetByID(ctx context.Context, id int) (Template, error) {
	return t.repo.GetTemplate(ctx, TemplateFilter{ID: id})
}

func (t *Templates) List(ctx context.Context) ([]Template, error) {
	return t.repo.QueryTemplates(ctx)
}
