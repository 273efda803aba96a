// Package resource handles OE Week submissions: events, assets (resources) and projects.
// It covers their submission, review and publication.
package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/mailing"
	"github.com/ocwc/oeweek2022/core/user"
)

const (
	currentEventsLimit = 8
	imageDir           = "images/resource"
)

var (
	// errors
	ErrNotFound           = errors.New("resource not found")
	ErrContributionClosed = errors.New("the contribution period is closed")
	ErrInvalidEmail       = errors.New("no submission with this email")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateResource(ctx context.Context, r Resource, exec ...core.DBExecutor) (Resource, error)
		UpdateResource(ctx context.Context, r Resource, exec ...core.DBExecutor) (Resource, error)
		GetResource(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Resource, error)
		QueryResources(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Resource, error)
		SlugExists(ctx context.Context, slug string, excludeID int, exec ...core.DBExecutor) (bool, error)
		PublishedYears(ctx context.Context, exec ...core.DBExecutor) ([]int, error)

		CreateImage(ctx context.Context, img ResourceImage, exec ...core.DBExecutor) (ResourceImage, error)
		GetImage(ctx context.Context, id int, exec ...core.DBExecutor) (ResourceImage, error)
		QueryImages(ctx context.Context, exec ...core.DBExecutor) ([]ResourceImage, error)
	}

	// Mailer queues outgoing emails.
	Mailer interface {
		Enqueue(ctx context.Context, msg *core.EmailMessage, priority ...int) (mailing.Item, error)
	}

	// Templates provides the email templates editable by staff.
	Templates interface {
		Get(ctx context.Context, name string) (mailing.Template, error)
	}

	// Accounts manages contributor accounts.
	Accounts interface {
		EnsureContributor(ctx context.Context, email, name string) (user.User, string, error)
		LoginURL(usr user.User) string
	}

	// TaskRunner runs jobs in the background.
	TaskRunner interface {
		Enqueue(name string, job func(ctx context.Context) error)
	}

	// ScreenshotFetcher fetches a screenshot of the resource link.
	ScreenshotFetcher interface {
		Fetch(ctx context.Context, resourceID int) error
	}

	// Locator fills the coordinates and timezone in from the city and country.
	Locator interface {
		GuessMissingLocation(ctx context.Context, resourceID int) error
	}

	// ImageStore writes image files under the media root.
	ImageStore interface {
		Save(ctx context.Context, name string, data []byte) (path string, err error)
	}

	ServiceDeps struct {
		Repo        Repository
		Mailer      Mailer
		Templates   Templates
		Accounts    Accounts
		Tasks       TaskRunner
		Screenshots ScreenshotFetcher
		Locator     Locator
		Images      ImageStore
		Validate    *validator.Validate
		Logger      core.Logger
		Conf        *core.Config
	}

	Service struct {
		repo          Repository
		mailer        Mailer
		templates     Templates
		accounts      Accounts
		tasks         TaskRunner
		shots         ScreenshotFetcher
		locator       Locator
		images        ImageStore
		validate      *validator.Validate
		logger        core.Logger
		week          core.Week
		ccEmail       mail.Address
		siteURL       string
		publicSiteURL string
		mediaURL      string
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{
		repo:          deps.Repo,
		mailer:        deps.Mailer,
		templates:     deps.Templates,
		accounts:      deps.Accounts,
		tasks:         deps.Tasks,
		shots:         deps.Screenshots,
		locator:       deps.Locator,
		images:        deps.Images,
		validate:      deps.Validate,
		logger:        deps.Logger,
		week:          deps.Conf.Week,
		ccEmail:       deps.Conf.SubmissionsCCEmail,
		siteURL:       deps.Conf.SiteURL,
		publicSiteURL: deps.Conf.PublicSiteURL,
		mediaURL:      deps.Conf.MediaURL,
	}
}

func (svc *Service) Week() core.Week        { return svc.week }
func (svc *Service) MediaURL() string       { return svc.mediaURL }
func (svc *Service) PublicSiteURL() string  { return svc.publicSiteURL }
func (svc *Service) ContributionOpen() bool { return svc.week.ContributionPeriodIsNow(nowFunc()) }

// Submit validates and stores a new submission, then schedules the background jobs
// and queues the acknowledgment email. The contribution period is not checked when forced.
func (svc *Service) Submit(ctx context.Context, sub Submission, force ...bool) (Resource, error) {
	now := nowFunc().UTC()
	if !(len(force) > 0 && force[0]) && !svc.week.ContributionPeriodIsNow(now) {
		return Resource{}, ErrContributionClosed
	}
	if err := sub.Validate(svc.validate); err != nil {
		return Resource{}, err
	}

	r := Resource{
		UUID:       uuid.New().String(),
		Status:     StatusNew,
		PostStatus: PostStatusDraft,
		Year:       svc.week.Year,
		Created:    now,
		Modified:   now,
	}
	sub.apply(&r)
	if raw, err := json.Marshal(sub); err == nil {
		r.RawPost = string(raw)
	}
	if err := svc.setSlug(ctx, &r); err != nil {
		return Resource{}, err
	}

	r, err := svc.repo.CreateResource(ctx, r)
	if err != nil {
		return Resource{}, errors.Wrap(err, "creating resource")
	}

	svc.scheduleJobs(r)

	if err = svc.notify(ctx, r, mailing.TemplateSubmissionReceived, svc.EditURL(r), true); err != nil {
		svc.logger.Error("failed to queue the submission email to "+r.Email, err)
	}
	return r, nil
}

// setSlug derives a unique slug from the title when the slug is empty.
func (svc *Service) setSlug(ctx context.Context, r *Resource) error {
	if r.Slug != "" {
		return nil
	}
	base := core.Slugify(r.Title)
	if base == "" {
		base = string(r.PostType)
	}
	slug := base
	for n := 1; ; n++ {
		exists, err := svc.repo.SlugExists(ctx, slug, r.ID)
		if err != nil {
			return errors.Wrap(err, "checking slug")
		}
		if !exists {
			r.Slug = slug
			return nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (svc *Service) scheduleJobs(r Resource) {
	if svc.tasks == nil {
		return
	}
	id := r.ID
	if svc.locator != nil && r.NeedsLocation() {
		svc.tasks.Enqueue(fmt.Sprintf("guess location of resource #%d", id), func(ctx context.Context) error {
			return svc.locator.GuessMissingLocation(ctx, id)
		})
	}
	if svc.shots != nil && r.NeedsScreenshot() {
		svc.tasks.Enqueue(fmt.Sprintf("fetch screenshot of resource #%d", id), func(ctx context.Context) error {
			return svc.shots.Fetch(ctx, id)
		})
	}
}

// notify queues the email built from template `name` to the submitter of r.
func (svc *Service) notify(ctx context.Context, r Resource, name, link string, cc bool) error {
	tmpl, err := svc.templates.Get(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "getting %s template", name)
	}
	subject, body := tmpl.Render(mailing.Vars{Title: r.Title, Name: r.Name(), Link: link})
	msg := &core.EmailMessage{
		To:          []mail.Address{{Name: r.Name(), Address: r.Email}},
		Subject:     subject,
		TextContent: body,
	}
	if cc && svc.ccEmail.Address != "" {
		msg.Cc = []mail.Address{svc.ccEmail}
	}
	_, err = svc.mailer.Enqueue(ctx, msg)
	return errors.Wrap(err, "queueing email")
}

// EditURL is where the submitter can edit their submission.
func (svc *Service) EditURL(r Resource) string {
	return fmt.Sprintf("%s/edit/%s/", svc.siteURL, r.UUID)
}

// CopyOf prefills the "contribute similar" form from an existing submission.
func (svc *Service) CopyOf(ctx context.Context, uuid string) (Submission, error) {
	r, err := svc.GetByUUID(ctx, uuid)
	if err != nil {
		return Submission{}, err
	}
	return copyOf(r), nil
}

// UpdateByUUID applies the submitter's edits. The review state is kept.
func (svc *Service) UpdateByUUID(ctx context.Context, uuid string, sub Submission) (Resource, error) {
	r, err := svc.GetByUUID(ctx, uuid)
	if err != nil {
		return Resource{}, err
	}
	if err = sub.Validate(svc.validate); err != nil {
		return Resource{}, err
	}
	sub.apply(&r)
	r.Modified = nowFunc().UTC()

	r, err = svc.repo.UpdateResource(ctx, r)
	return r, errors.Wrap(err, "updating resource")
}

func (svc *Service) GetByID(ctx context.Context, id int) (Resource, error) {
	return svc.repo.GetResource(ctx, GetFilter{ID: id})
}

// GetPublished returns the published resource, whatever its type.
func (svc *Service) GetPublished(ctx context.Context, id int) (Resource, error) {
	return svc.repo.GetResource(ctx, GetFilter{ID: id, Published: true})
}

func (svc *Service) GetByUUID(ctx context.Context, id string) (Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Resource{}, ErrNotFound
	}
	return svc.repo.GetResource(ctx, GetFilter{UUID: id})
}

// GetByYearSlug returns the published resource for a detail page.
func (svc *Service) GetByYearSlug(ctx context.Context, year int, slug string, postTypes ...PostType) (Resource, error) {
	return svc.repo.GetResource(ctx, GetFilter{Year: year, Slug: slug, PostTypes: postTypes, Published: true})
}

// Review moves a submission through the review state machine.
// Asking for feedback emails the submitter.
func (svc *Service) Review(ctx context.Context, id int, reviewer user.User, to Status) (Resource, error) {
	r, err := svc.GetByID(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	if err = r.transition(to, reviewer.ID); err != nil {
		return Resource{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}
	r.Modified = nowFunc().UTC()

	if r, err = svc.repo.UpdateResource(ctx, r); err != nil {
		return Resource{}, errors.Wrap(err, "updating resource")
	}

	if to == StatusFeedback {
		if err = svc.notify(ctx, r, mailing.TemplateFeedbackRequested, svc.EditURL(r), false); err != nil {
			svc.logger.Error("failed to queue the feedback email to "+r.Email, err)
		}
	}
	return r, nil
}

// ListItem is a resource as shown in the HTML listings.
type ListItem struct {
	Resource
	DayNumber string
	ImageSrc  string
}

// ListFilter narrows the public listings. A zero year is the current edition.
type ListFilter struct {
	Language string `query:"language"`
	Year     int    `query:"year"`
	OpenTag  string `query:"opentags"`
}

func (f ListFilter) apply(q *QueryFilter, currentYear int) {
	q.Year = currentYear
	if f.Year > 0 {
		q.Year = f.Year
	}
	q.FormLanguage = core.CleanString(f.Language)
	if tag := core.CleanString(f.OpenTag); tag != "" {
		q.OpenTags = []string{tag}
	}
}

// ListEvents returns the published events that have a time and a timezone, sorted by time.
// The day numbers are evaluated in `loc`.
func (svc *Service) ListEvents(ctx context.Context, loc *time.Location, filter ListFilter) ([]ListItem, error) {
	q := QueryFilter{
		PostTypes:    []PostType{PostTypeEvent},
		PostStatuses: []PostStatus{PostStatusPublish},
		HasEventTime: true,
	}
	filter.apply(&q, svc.week.Year)
	events, err := svc.repo.QueryResources(ctx, q, []core.DBOrdering{{Field: "event_time", Ascending: true}, {Field: "id", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	items := make([]ListItem, 0, len(events))
	for _, e := range events {
		ts, _ := e.EventTimeUTC()
		items = append(items, ListItem{
			Resource:  e,
			DayNumber: svc.week.DayNumber(ts, loc),
			ImageSrc:  e.ImageURLForList(svc.mediaURL),
		})
	}
	return items, nil
}

// ListResources returns the published assets, sorted by title.
func (svc *Service) ListResources(ctx context.Context, filter ListFilter) ([]ListItem, error) {
	q := QueryFilter{
		PostTypes:    []PostType{PostTypeResource},
		PostStatuses: []PostStatus{PostStatusPublish},
	}
	filter.apply(&q, svc.week.Year)
	resources, err := svc.repo.QueryResources(ctx, q, []core.DBOrdering{{Field: "title", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	items := make([]ListItem, 0, len(resources))
	for _, r := range resources {
		items = append(items, ListItem{Resource: r, ImageSrc: r.ImageURLForList(svc.mediaURL)})
	}
	return items, nil
}

// Years returns the editions having published resources, newest first. The current edition is always included.
func (svc *Service) Years(ctx context.Context) ([]int, error) {
	years, err := svc.repo.PublishedYears(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing years")
	}
	for _, y := range years {
		if y == svc.week.Year {
			return years, nil
		}
	}
	years = append(years, svc.week.Year)
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// Favorites returns the published events among `ids`, sorted by time.
func (svc *Service) Favorites(ctx context.Context, ids []int) ([]Resource, error) {
	if len(ids) == 0 {
		return []Resource{}, nil
	}
	events, err := svc.repo.QueryResources(ctx, QueryFilter{
		IDs:          ids,
		PostTypes:    []PostType{PostTypeEvent},
		PostStatuses: []PostStatus{PostStatusPublish},
	}, []core.DBOrdering{{Field: "event_time", Ascending: true}})
	return events, errors.Wrap(err, "querying favorites")
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Resource, error) {
	return svc.repo.QueryResources(ctx, filter, ordering)
}

// ListParams are the listing filters of the public API.
type ListParams struct {
	Year         int    `query:"year"`
	OpenTags     string `query:"opentags"` // comma separated
	Slug         string `query:"slug"`
	FormLanguage string `query:"form_language"`
	EventType    string `query:"event_type"` // local or online
	Date         string `query:"date"`       // YYYY-MM-DD or "other"
	Special      string `query:"special"`    // "current"
}

func (p ListParams) filter() QueryFilter {
	f := QueryFilter{
		PostStatuses: []PostStatus{PostStatusPublish},
		Year:         p.Year,
		Slug:         core.CleanString(p.Slug),
		FormLanguage: core.CleanString(p.FormLanguage),
	}
	for _, tag := range strings.Split(p.OpenTags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			f.OpenTags = append(f.OpenTags, tag)
		}
	}
	return f
}

// APIResources lists the published assets and projects, newest first.
func (svc *Service) APIResources(ctx context.Context, params ListParams) ([]Resource, error) {
	f := params.filter()
	f.PostTypes = []PostType{PostTypeResource, PostTypeProject}
	return svc.repo.QueryResources(ctx, f, []core.DBOrdering{{Field: "id"}})
}

// APIEvents lists the published events, by time.
func (svc *Service) APIEvents(ctx context.Context, params ListParams) ([]Resource, error) {
	if params.Special == "current" {
		return svc.CurrentEvents(ctx, nowFunc())
	}

	f := params.filter()
	f.PostTypes = []PostType{PostTypeEvent}

	switch params.EventType {
	case "local":
		f.Year = svc.week.Year
		f.HasCountry = true
		f.ExcludeEventTypes = []string{"webinar", "online"}
	case "online":
		f.Year = svc.week.Year
		f.EventTypes = OnlineEventTypes
	}

	switch date := strings.TrimSpace(params.Date); date {
	case "":
	case "other":
		// in March, outside of the week
		march := time.Date(svc.week.Start.Year(), time.March, 1, 0, 0, 0, 0, time.UTC)
		f.EventFrom = march
		f.EventTo = march.AddDate(0, 1, 0)
		f.OutsideFrom = svc.week.Start
		f.OutsideTo = svc.week.End
	default:
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "enter a valid date"})
		}
		f.EventFrom = day
		f.EventTo = day.AddDate(0, 0, 1)
	}

	return svc.repo.QueryResources(ctx, f, []core.DBOrdering{{Field: "event_time", Ascending: true}})
}

// CurrentEvents returns the next online events, including the ones that started less than an hour ago.
func (svc *Service) CurrentEvents(ctx context.Context, now time.Time) ([]Resource, error) {
	return svc.repo.QueryResources(ctx, QueryFilter{
		PostStatuses: []PostStatus{PostStatusPublish},
		EventTypes:   []string{"online"},
		EventFrom:    now.UTC().Add(-time.Hour),
		Limit:        currentEventsLimit,
	}, []core.DBOrdering{{Field: "event_time", Ascending: true}})
}

// EventSummary groups the published local events of the current edition by country.
func (svc *Service) EventSummary(ctx context.Context) ([]CountryEvents, error) {
	events, err := svc.repo.QueryResources(ctx, QueryFilter{
		PostTypes:         []PostType{PostTypeEvent},
		PostStatuses:      []PostStatus{PostStatusPublish},
		Year:              svc.week.Year,
		HasCountry:        true,
		ExcludeEventTypes: OnlineEventTypes,
	}, []core.DBOrdering{{Field: "country", Ascending: true}, {Field: "event_time", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}

	summary := make([]CountryEvents, 0)
	for _, e := range events {
		if n := len(summary); n > 0 && summary[n-1].Country == e.Country {
			summary[n-1].Count++
			summary[n-1].Events = append(summary[n-1].Events, e)
			continue
		}
		summary = append(summary, CountryEvents{Country: e.Country, Count: 1, Events: []Resource{e}})
	}
	return summary, nil
}

// NotifySubmitters emails the "accepted" message to the submitters of published resources
// not notified yet. It returns the number of emails queued.
func (svc *Service) NotifySubmitters(ctx context.Context) (int, error) {
	notified := false
	resources, err := svc.repo.QueryResources(ctx, QueryFilter{
		PostStatuses: []PostStatus{PostStatusPublish},
		Notified:     &notified,
	}, []core.DBOrdering{{Field: "id", Ascending: true}})
	if err != nil {
		return 0, errors.Wrap(err, "querying resources")
	}

	var sent int
	for _, r := range resources {
		if err = svc.notify(ctx, r, mailing.TemplateAccepted, svc.siteURL+r.DetailPath(), false); err != nil {
			svc.logger.Error(fmt.Sprintf("failed to notify the submitter of resource #%d", r.ID), err)
			continue
		}
		r.Notified = true
		if _, err = svc.repo.UpdateResource(ctx, r); err != nil {
			return sent, errors.Wrap(err, "updating resource")
		}
		sent++
	}
	return sent, nil
}

// SubmissionsFor lists the submissions of the current edition visible to `viewer`, newest first.
// Staff see them all, contributors only their own.
func (svc *Service) SubmissionsFor(ctx context.Context, viewer user.User) ([]Resource, error) {
	f := QueryFilter{CreatedFrom: svc.week.CFPOpen}
	if !viewer.IsStaff() {
		if viewer.Email == "" {
			return []Resource{}, nil
		}
		f.Email = viewer.Email
	}
	return svc.repo.QueryResources(ctx, f, []core.DBOrdering{{Field: "created"}})
}

// RequestAccess (re)creates the contributor account of a submitter and emails them a login link.
func (svc *Service) RequestAccess(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return ErrInvalidEmail
	}
	found, err := svc.repo.QueryResources(ctx, QueryFilter{Email: email, Limit: 1}, nil)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	if len(found) == 0 {
		return ErrInvalidEmail
	}
	r := found[0]

	usr, _, err := svc.accounts.EnsureContributor(ctx, email, r.Name())
	if err != nil {
		return errors.Wrap(err, "ensuring contributor account")
	}
	return svc.notify(ctx, r, mailing.TemplateAccountCreated, svc.accounts.LoginURL(usr), false)
}

// UploadImage stores an image uploaded by staff.
func (svc *Service) UploadImage(ctx context.Context, filename string, data []byte) (ResourceImage, error) {
	name := fmt.Sprintf("%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
	path, err := svc.images.Save(ctx, filepath.Join(imageDir, name), data)
	if err != nil {
		return ResourceImage{}, errors.Wrap(err, "saving image")
	}
	img, err := svc.repo.CreateImage(ctx, ResourceImage{Path: path, Created: nowFunc().UTC()})
	return img, errors.Wrap(err, "creating image")
}

func (svc *Service) GetImage(ctx context.Context, id int) (ResourceImage, error) {
	return svc.repo.GetImage(ctx, id)
}

func (svc *Service) ListImages(ctx context.Context) ([]ResourceImage, error) {
	return svc.repo.QueryImages(ctx)
}
