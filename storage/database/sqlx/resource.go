package sqlxrepos

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/resource"
)

const resourceSelect = "SELECT r.*, ri.path AS image_path FROM resource r LEFT JOIN resource_image ri ON ri.id = r.image_id"

var (
	resourceColumns = []string{
		"uuid", "post_type", "post_status", "status", "reviewer_id", "post_id", "form_id",
		"title", "slug", "content",
		"contact", "firstname", "lastname", "email", "institution", "institution_url", "institution_is_oeg_member",
		"form_language", "license",
		"link", "linkwebroom", "image_url",
		"city", "country", "lat", "lng", "address",
		"event_time", "event_type", "event_online", "event_source_datetime", "event_source_timezone",
		"event_directions", "event_other_text", "event_facilitator",
		"archive_planned", "archive_link",
		"tags", "opentags",
		"notified", "raw_post", "screenshot_status", "year", "oeaward", "image_id", "user_image",
		"twitter", "twitter_personal", "twitter_institution", "newsletter",
		"created", "modified",
	}

	resourceOrderings = map[string]string{
		"id":         "r.id",
		"title":      "lower(r.title)",
		"event_time": "r.event_time",
		"country":    "r.country",
		"created":    "r.created",
		"modified":   "r.modified",
	}
)

type resourceRepository struct {
	baseRepository
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(exec core.DBExecutor) *resourceRepository {
	return &resourceRepository{baseRepository{exec: exec}}
}

func (repo resourceRepository) CreateResource(ctx context.Context, r resource.Resource, exec ...core.DBExecutor) (resource.Resource, error) {
	ex := repo.getExec(exec)
	id, err := insertReturningID(ctx, ex, "resource", resourceColumns, r)
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "inserting resource")
	}
	if err = repo.setCategories(ctx, ex, id, r.Categories); err != nil {
		return resource.Resource{}, err
	}
	return repo.GetResource(ctx, resource.GetFilter{ID: id}, ex)
}

func (repo resourceRepository) UpdateResource(ctx context.Context, r resource.Resource, exec ...core.DBExecutor) (resource.Resource, error) {
	ex := repo.getExec(exec)
	if err := updateByID(ctx, ex, "resource", resourceColumns, r, resource.ErrNotFound); err != nil {
		return resource.Resource{}, trapNoRowsErr(err, resource.ErrNotFound, "updating resource")
	}
	if err := repo.setCategories(ctx, ex, r.ID, r.Categories); err != nil {
		return resource.Resource{}, err
	}
	return repo.GetResource(ctx, resource.GetFilter{ID: r.ID}, ex)
}

func (repo resourceRepository) setCategories(ctx context.Context, ex core.DBExecutor, resourceID int, categories []int) error {
	if _, err := ex.ExecContext(ctx, ex.Rebind("DELETE FROM resource_category WHERE resource_id = ?"), resourceID); err != nil {
		return errors.Wrap(err, "clearing resource categories")
	}
	seen := make(map[int]bool, len(categories))
	for _, catID := range categories {
		if seen[catID] {
			continue
		}
		seen[catID] = true
		query := ex.Rebind("INSERT INTO resource_category (resource_id, category_id) VALUES (?, ?)")
		if _, err := ex.ExecContext(ctx, query, resourceID, catID); err != nil {
			return errors.Wrap(err, "inserting resource category")
		}
	}
	return nil
}

// loadCategories fills the Categories of `resources` in, with a single query.
func (repo resourceRepository) loadCategories(ctx context.Context, ex core.DBExecutor, resources []resource.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	ids := make([]int, 0, len(resources))
	index := make(map[int]int, len(resources))
	for i, r := range resources {
		ids = append(ids, r.ID)
		index[r.ID] = i
		resources[i].Categories = []int{}
	}

	query, args, err := build(ex, "SELECT resource_id, category_id FROM resource_category WHERE resource_id IN (?) ORDER BY category_id", ids)
	if err != nil {
		return err
	}
	var links []struct {
		ResourceID int `db:"resource_id"`
		CategoryID int `db:"category_id"`
	}
	if err = ex.SelectContext(ctx, &links, query, args...); err != nil {
		return errors.Wrap(err, "selecting resource categories")
	}
	for _, l := range links {
		i := index[l.ResourceID]
		resources[i].Categories = append(resources[i].Categories, l.CategoryID)
	}
	return nil
}

func (repo resourceRepository) GetResource(ctx context.Context, filter resource.GetFilter, exec ...core.DBExecutor) (resource.Resource, error) {
	ex := repo.getExec(exec)
	var w where
	if filter.ID != 0 {
		w.add("r.id = ?", filter.ID)
	}
	if filter.UUID != "" {
		w.add("r.uuid = ?", filter.UUID)
	}
	if filter.Year != 0 {
		w.add("r.year = ?", filter.Year)
	}
	if filter.Slug != "" {
		w.add("r.slug = ?", filter.Slug)
	}
	if len(filter.PostTypes) > 0 {
		w.add("r.post_type IN (?)", stringsOf(filter.PostTypes))
	}
	if filter.Published {
		w.add("r.post_status = ?", string(resource.PostStatusPublish))
	}
	if len(w.conds) == 0 {
		return resource.Resource{}, resource.ErrNotFound
	}

	query, args, err := build(ex, resourceSelect+w.String()+" ORDER BY r.id LIMIT 1", w.args...)
	if err != nil {
		return resource.Resource{}, err
	}
	var r resource.Resource
	if err = ex.GetContext(ctx, &r, query, args...); err != nil {
		return resource.Resource{}, trapNoRowsErr(err, resource.ErrNotFound, "selecting resource")
	}

	found := []resource.Resource{r}
	if err = repo.loadCategories(ctx, ex, found); err != nil {
		return resource.Resource{}, err
	}
	return found[0], nil
}

func (repo resourceRepository) QueryResources(ctx context.Context, filter resource.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]resource.Resource, error) {
	ex := repo.getExec(exec)
	var w where

	if len(filter.PostTypes) > 0 {
		w.add("r.post_type IN (?)", stringsOf(filter.PostTypes))
	}
	if len(filter.PostStatuses) > 0 {
		w.add("r.post_status IN (?)", stringsOf(filter.PostStatuses))
	}
	if len(filter.Statuses) > 0 {
		w.add("r.status IN (?)", stringsOf(filter.Statuses))
	}
	if filter.Year != 0 {
		w.add("r.year = ?", filter.Year)
	}
	// opentags is a JSON list: match the quoted tag
	for _, tag := range filter.OpenTags {
		quoted, err := json.Marshal(tag)
		if err != nil {
			return nil, errors.Wrap(err, "encoding open tag")
		}
		w.add("r.opentags LIKE ?", "%"+string(quoted)+"%")
	}
	if filter.Slug != "" {
		w.add("r.slug = ?", filter.Slug)
	}
	if filter.FormLanguage != "" {
		w.add("r.form_language = ?", filter.FormLanguage)
	}
	if len(filter.EventTypes) > 0 {
		w.add("r.event_type IN (?)", filter.EventTypes)
	}
	if len(filter.ExcludeEventTypes) > 0 {
		w.add("r.event_type NOT IN (?)", filter.ExcludeEventTypes)
	}
	if filter.HasCountry {
		w.add("r.country <> ''")
	}
	if filter.Email != "" {
		w.add("lower(r.email) = ?", strings.ToLower(filter.Email))
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("r.created >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.EventFrom.IsZero() {
		w.add("r.event_time >= ?", filter.EventFrom.UTC())
	}
	if !filter.EventTo.IsZero() {
		w.add("r.event_time < ?", filter.EventTo.UTC())
	}
	if !filter.OutsideFrom.IsZero() && !filter.OutsideTo.IsZero() {
		w.add("r.event_time IS NOT NULL AND (r.event_time < ? OR r.event_time > ?)", filter.OutsideFrom.UTC(), filter.OutsideTo.UTC())
	}
	if filter.HasEventTime {
		w.add("r.event_time IS NOT NULL AND r.event_source_timezone <> ''")
	}
	if filter.NeedsScreenshot {
		w.add("r.link <> '' AND r.screenshot_status IN (?)",
			[]string{string(resource.ScreenshotNone), string(resource.ScreenshotPending)})
	}
	if filter.Notified != nil {
		w.add("r.notified = ?", *filter.Notified)
	}
	if len(filter.IDs) > 0 {
		w.add("r.id IN (?)", filter.IDs)
	}

	orderBy := core.OrderBy(ordering, resourceOrderings, "r.id DESC")
	query, args, err := build(ex, resourceSelect+w.String()+" ORDER BY "+orderBy+limit(filter.Limit), w.args...)
	if err != nil {
		return nil, err
	}
	resources := make([]resource.Resource, 0)
	if err = ex.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting resources")
	}
	if err = repo.loadCategories(ctx, ex, resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func (repo resourceRepository) SlugExists(ctx context.Context, slug string, excludeID int, exec ...core.DBExecutor) (bool, error) {
	ex := repo.getExec(exec)
	var n int
	query := ex.Rebind("SELECT COUNT(*) FROM resource WHERE slug = ? AND id <> ?")
	if err := ex.GetContext(ctx, &n, query, slug, excludeID); err != nil {
		return false, errors.Wrap(err, "checking slug")
	}
	return n > 0, nil
}

func (repo resourceRepository) PublishedYears(ctx context.Context, exec ...core.DBExecutor) ([]int, error) {
	ex := repo.getExec(exec)
	years := []int{}
	query := ex.Rebind("SELECT DISTINCT year FROM resource WHERE post_status = ? ORDER BY year DESC")
	if err := ex.SelectContext(ctx, &years, query, resource.PostStatusPublish); err != nil {
		return nil, errors.Wrap(err, "selecting years")
	}
	return years, nil
}

func (repo resourceRepository) CreateImage(ctx context.Context, img resource.ResourceImage, exec ...core.DBExecutor) (resource.ResourceImage, error) {
	ex := repo.getExec(exec)
	id, err := insertReturningID(ctx, ex, "resource_image", []string{"path", "created"}, img)
	if err != nil {
		return resource.ResourceImage{}, errors.Wrap(err, "inserting image")
	}
	img.ID = id
	return img, nil
}

func (repo resourceRepository) GetImage(ctx context.Context, id int, exec ...core.DBExecutor) (resource.ResourceImage, error) {
	ex := repo.getExec(exec)
	var img resource.ResourceImage
	if err := ex.GetContext(ctx, &img, ex.Rebind("SELECT * FROM resource_image WHERE id = ?"), id); err != nil {
		return resource.ResourceImage{}, trapNoRowsErr(err, resource.ErrNotFound, "selecting image")
	}
	return img, nil
}

func (repo resourceRepository) QueryImages(ctx context.Context, exec ...core.DBExecutor) ([]resource.ResourceImage, error) {
	ex := repo.getExec(exec)
	images := make([]resource.ResourceImage, 0)
	if err := ex.SelectContext(ctx, &images, "SELECT * FROM resource_image ORDER BY id DESC"); err != nil {
		return nil, errors.Wrap(err, "selecting images")
	}
	return images, nil
}
