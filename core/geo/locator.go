package geo

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/resource"
)

// Locator fills the coordinates and the timezone of resources in from their city and country.
type Locator struct {
	repo   resource.Repository
	gaz    *Gazetteer
	logger core.Logger
}

var _ resource.Locator = (*Locator)(nil) // interface compliance check

func NewLocator(repo resource.Repository, gaz *Gazetteer, logger core.Logger) *Locator {
	return &Locator{repo: repo, gaz: gaz, logger: logger}
}

func (l *Locator) GuessMissingLocation(ctx context.Context, resourceID int) error {
	_, err := l.guess(ctx, resourceID)
	return err
}

func (l *Locator) guess(ctx context.Context, resourceID int) (bool, error) {
	r, err := l.repo.GetResource(ctx, resource.GetFilter{ID: resourceID})
	if err != nil {
		return false, errors.Wrapf(err, "getting resource #%d", resourceID)
	}
	if !r.NeedsLocation() {
		return false, nil
	}

	city, ok := l.gaz.GuessCity(core.CleanString(r.Country), core.CleanString(r.City))
	if !ok {
		l.logger.Info(fmt.Sprintf("no location found for resource #%d (%s, %s)", r.ID, r.City, r.Country))
		return false, nil
	}

	// the location may have been edited meanwhile
	if r, err = l.repo.GetResource(ctx, resource.GetFilter{ID: resourceID}); err != nil {
		return false, errors.Wrapf(err, "reloading resource #%d", resourceID)
	}
	if !r.NeedsLocation() {
		return false, nil
	}

	r.Lat = null.Float64From(city.Latitude)
	r.Lng = null.Float64From(city.Longitude)
	if r.EventSourceTimezone == "" {
		r.EventSourceTimezone = city.Timezone
	}
	if _, err = l.repo.UpdateResource(ctx, r); err != nil {
		return false, errors.Wrapf(err, "updating resource #%d", resourceID)
	}
	return true, nil
}

// GuessAll locates the resources of `year` that have no coordinates yet.
// It returns the number of resources updated.
func (l *Locator) GuessAll(ctx context.Context, year int) (int, error) {
	resources, err := l.repo.QueryResources(ctx, resource.QueryFilter{Year: year}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying resources")
	}

	var n int
	for _, r := range resources {
		if r.Lat.Valid || !r.NeedsLocation() {
			continue
		}
		if err = ctx.Err(); err != nil {
			return n, err
		}
		ok, err := l.guess(ctx, r.ID)
		if err != nil {
			l.logger.Error(err.Error(), err)
			continue
		}
		if ok {
			n++
		}
	}
	return n, nil
}
