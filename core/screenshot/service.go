// Package screenshot fetches pictures of the links of submitted resources.
package screenshot

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/sync/errgroup"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/resource"
)

const imageDir = "images/resource"

var (
	// ErrTimeout is returned by capturers when the page is not ready in time.
	ErrTimeout = errors.New("screenshot capture timed out")

	nowFunc = time.Now // mockable
)

// Capturer takes a PNG screenshot of a web page, at most maxWidth × maxHeight pixels.
type Capturer interface {
	Capture(ctx context.Context, url string, maxWidth, maxHeight int) ([]byte, error)
}

type Service struct {
	repo      resource.Repository
	capturer  Capturer
	images    resource.ImageStore
	logger    core.Logger
	maxWidth  int
	maxHeight int
	timeout   time.Duration
	year      int
}

var _ resource.ScreenshotFetcher = (*Service)(nil) // interface compliance check

func NewService(repo resource.Repository, capturer Capturer, images resource.ImageStore, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:      repo,
		capturer:  capturer,
		images:    images,
		logger:    logger,
		maxWidth:  conf.Screenshots.MaxWidth,
		maxHeight: conf.Screenshots.MaxHeight,
		timeout:   conf.Screenshots.LoadTimeout,
		year:      conf.Week.Year,
	}
}

func abortNeeded(r resource.Resource) bool {
	return !r.NeedsScreenshot()
}

// Fetch captures the link of the resource and stores the picture as its image.
// A capture that times out leaves the resource PENDING, to be retried by FetchPending.
func (svc *Service) Fetch(ctx context.Context, resourceID int) error {
	r, err := svc.repo.GetResource(ctx, resource.GetFilter{ID: resourceID})
	if err != nil {
		return errors.Wrapf(err, "getting resource #%d", resourceID)
	}
	if abortNeeded(r) {
		svc.logger.Debug(fmt.Sprintf("screenshot fetching aborted (early): %d", r.ID))
		return nil
	}

	if r.ImageID.Valid {
		r.ScreenshotStatus = resource.ScreenshotDone
		_, err = svc.repo.UpdateResource(ctx, r)
		return errors.Wrap(err, "updating resource")
	}

	png, err := svc.capture(ctx, r.Link)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			svc.logger.Warn(fmt.Sprintf("failed to fetch screenshot of resource #%d: %v", r.ID, err))
			r.ScreenshotStatus = resource.ScreenshotPending
			_, err = svc.repo.UpdateResource(ctx, r)
			return errors.Wrap(err, "updating resource")
		}
		return errors.Wrapf(err, "capturing %s", r.Link)
	}

	if r, err = svc.repo.GetResource(ctx, resource.GetFilter{ID: resourceID}); err != nil {
		return errors.Wrapf(err, "reloading resource #%d", resourceID)
	}
	if abortNeeded(r) {
		svc.logger.Debug(fmt.Sprintf("screenshot fetching aborted (late): %d", r.ID))
		return nil
	}

	path, err := svc.images.Save(ctx, fmt.Sprintf("%s/screenshot_%d.png", imageDir, r.ID), png)
	if err != nil {
		return errors.Wrap(err, "saving screenshot")
	}
	img, err := svc.repo.CreateImage(ctx, resource.ResourceImage{Path: path, Created: nowFunc().UTC()})
	if err != nil {
		return errors.Wrap(err, "creating image")
	}

	r.ImageID = null.IntFrom(img.ID)
	r.ImagePath = null.StringFrom(img.Path)
	r.ScreenshotStatus = resource.ScreenshotDone
	_, err = svc.repo.UpdateResource(ctx, r)
	return errors.Wrap(err, "updating resource")
}

func (svc *Service) capture(ctx context.Context, link string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	png, err := svc.capturer.Capture(ctx, link, svc.maxWidth, svc.maxHeight)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return nil, ErrTimeout
	}
	return png, err
}

// FetchPending fetches the missing screenshots of the current edition, `workers` at a time.
// It returns the number of resources processed without error.
func (svc *Service) FetchPending(ctx context.Context, workers int) (int, error) {
	resources, err := svc.repo.QueryResources(ctx, resource.QueryFilter{
		Year:            svc.year,
		PostStatuses:    []resource.PostStatus{resource.PostStatusDraft, resource.PostStatusPublish},
		NeedsScreenshot: true,
	}, []core.DBOrdering{{Field: "id", Ascending: true}})
	if err != nil {
		return 0, errors.Wrap(err, "querying resources")
	}

	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	done := make(chan struct{}, len(resources))
	for _, r := range resources {
		id := r.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := svc.Fetch(gctx, id); err != nil {
				svc.logger.Error(fmt.Sprintf("failed to fetch screenshot of resource #%d", id), err)
				return nil
			}
			done <- struct{}{}
			return nil
		})
	}
	err = g.Wait()
	return len(done), err
}
