package resource

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ocwc/oeweek2022/core"
)

const twitterPrefix = "https://twitter.com/"

// EventTimeUTC returns the event time in UTC, ok is false when the event has no time.
func (r *Resource) EventTimeUTC() (time.Time, bool) {
	if !r.EventTime.Valid || r.EventTime.Time.IsZero() {
		return time.Time{}, false
	}
	return r.EventTime.Time.UTC(), true
}

// EveryTimezoneURL links to everytimezone.com with the event time selected.
// The offset is expressed in minutes from noon UTC on the event day.
func (r *Resource) EveryTimezoneURL() string {
	ts, ok := r.EventTimeUTC()
	if !ok {
		return ""
	}
	noon := time.Date(ts.Year(), ts.Month(), ts.Day(), 12, 0, 0, 0, time.UTC)
	offset := int(ts.Sub(noon).Minutes())
	return fmt.Sprintf("https://everytimezone.com/#%d-%d-%d,%d,6bj", ts.Year(), int(ts.Month()), ts.Day(), offset)
}

// EventOffsetInHours tells how soon the event starts, within the next 48 hours.
func (r *Resource) EventOffsetInHours(now time.Time) string {
	ts, ok := r.EventTimeUTC()
	if !ok {
		return ""
	}
	hours := int(math.Floor(ts.Sub(now).Hours()))
	switch {
	case hours == 1:
		return "in 1 hour"
	case hours > 1 && hours <= 48:
		return fmt.Sprintf("in %d hours", hours)
	default:
		return ""
	}
}

func (r *Resource) EventDay() string {
	if ts, ok := r.EventTimeUTC(); ok {
		return ts.Format("2006-01-02")
	}
	return ""
}

func (r *Resource) EventWeekday() string {
	if ts, ok := r.EventTimeUTC(); ok {
		return ts.Weekday().String()
	}
	return ""
}

// OEWeekday is the weekday of the event if it takes place during the week, core.OtherDay otherwise.
func (r *Resource) OEWeekday(week core.Week) string {
	ts, _ := r.EventTimeUTC()
	return week.Weekday(ts)
}

// ImageURLForDetail picks the first image available: the one set by staff, the stored screenshot,
// then the one uploaded by the submitter.
func (r *Resource) ImageURLForDetail(mediaURL string) string {
	if r.ImageURL != "" {
		return r.ImageURL
	}
	if r.ImagePath.Valid && r.ImagePath.String != "" {
		return mediaPath(mediaURL, r.ImagePath.String)
	}
	if r.UserImage != "" {
		return mediaPath(mediaURL, r.UserImage)
	}
	return ""
}

// ImageURLForList is ImageURLForDetail with the small variant of archive.org images.
func (r *Resource) ImageURLForList(mediaURL string) string {
	u := r.ImageURLForDetail(mediaURL)
	if strings.HasPrefix(u, "https://archive.org") && strings.HasSuffix(u, ".png") {
		u = strings.TrimSuffix(u, ".png") + "-sm.png"
	}
	return u
}

func (img ResourceImage) URL(mediaURL string) string {
	return mediaPath(mediaURL, img.Path)
}

func mediaPath(mediaURL, path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(mediaURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// FullURL is the permalink on the public site.
func (r *Resource) FullURL(publicSiteURL string) string {
	section := "resources"
	if r.IsEvent() {
		section = "events"
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(publicSiteURL, "/"), section, r.Slug)
}

// DetailPath is the path of the detail page on this site.
func (r *Resource) DetailPath() string {
	section := "resources"
	if r.IsEvent() {
		section = "events"
	}
	return fmt.Sprintf("/%s/%d/%s/", section, r.Year, r.Slug)
}

func (r *Resource) TwitterPersonalURL() string         { return TwitterURL(r.TwitterPersonal) }
func (r *Resource) TwitterPersonalUsername() string    { return TwitterUsername(r.TwitterPersonal) }
func (r *Resource) TwitterInstitutionURL() string      { return TwitterURL(r.TwitterInstitution) }
func (r *Resource) TwitterInstitutionUsername() string { return TwitterUsername(r.TwitterInstitution) }

// TwitterURL turns a handle ("@oeglobal", "oeglobal" or a profile URL) into a profile URL.
func TwitterURL(handle string) string {
	switch {
	case strings.HasPrefix(handle, twitterPrefix):
		return handle
	case strings.HasPrefix(handle, "@"):
		return twitterPrefix + handle[1:]
	default:
		return twitterPrefix + handle
	}
}

// TwitterUsername extracts the username from a handle or a profile URL.
func TwitterUsername(handle string) string {
	switch {
	case strings.HasPrefix(handle, twitterPrefix):
		return handle[len(twitterPrefix):]
	case strings.HasPrefix(handle, "@"):
		return handle[1:]
	default:
		return handle
	}
}
